package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/socialchef/tracechain/internal/chain"
	"github.com/socialchef/tracechain/internal/cli"
	"github.com/socialchef/tracechain/internal/config"
	"github.com/socialchef/tracechain/internal/credentials"
	apperrors "github.com/socialchef/tracechain/internal/errors"
	"github.com/socialchef/tracechain/internal/llm"
	"github.com/socialchef/tracechain/internal/logger"
	"github.com/socialchef/tracechain/internal/metrics"
	"github.com/socialchef/tracechain/internal/telemetry"
)

type flags struct {
	configPath string
	language   string
	runName    string
	once       string
}

func main() {
	f := &flags{}
	rootCmd := &cobra.Command{
		Use:   "tracechain",
		Short: "Two-step LLM chain with Langfuse tracing",
		Long: `tracechain asks a chat model which city a person comes from, then which
country that city is in, answering in the configured language.

When LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY are set, every invocation is
exported as an OpenTelemetry trace to LANGFUSE_BASE_URL/api/public/otel.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	rootCmd.Flags().StringVar(&f.configPath, "config", "config.yaml", "optional YAML file with pipeline settings")
	rootCmd.Flags().StringVar(&f.language, "language", "", "answer language (overrides PIPELINE_LANGUAGE)")
	rootCmd.Flags().StringVar(&f.runName, "run-name", "", "run name attached to traces (overrides RUN_NAME)")
	rootCmd.Flags().StringVar(&f.once, "once", "", "answer for a single person and exit")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeStartup {
			fmt.Fprintf(os.Stderr, "Could not start the chat model. Check your credentials: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if hint := apperrors.RecoveryFor(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.language != "" {
		cfg.Pipeline.Language = f.language
	}
	if f.runName != "" {
		cfg.Pipeline.RunName = f.runName
	}

	slog.SetDefault(logger.New(cfg.Env))

	reporter, err := metrics.Setup(cfg.AppName)
	if err != nil {
		slog.Warn("Failed to init metrics", "error", err)
	}
	defer func() {
		if err := reporter.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to shut down metrics", "error", err)
		}
	}()

	session := telemetry.NewSession(cfg.AppName)
	setupTracing(ctx, cfg, session)

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		flushTraces(ctx, session)
		return err
	}

	pipeline, err := chain.NewTwoStep(provider, cfg.Pipeline.CityTemplate, cfg.Pipeline.AnswerTemplate)
	if err != nil {
		flushTraces(ctx, session)
		return apperrors.NewConfigurationError("invalid pipeline prompts", "CONFIG_INVALID_PROMPT", err)
	}

	loop := &cli.Loop{
		In:       os.Stdin,
		Out:      os.Stdout,
		Pipeline: pipeline,
		Session:  session,
		RunName:  cfg.Pipeline.RunName,
		Language: cfg.Pipeline.Language,
	}

	if f.once != "" {
		answer, err := loop.Turn(ctx, f.once)
		flushTraces(ctx, session)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Answer: %s\n", answer)
		return nil
	}

	if err := loop.Run(ctx); err != nil {
		slog.Warn("Failed to flush traces", "error", err)
	}
	return nil
}

// setupTracing is best-effort: any failure leaves tracing disabled.
func setupTracing(ctx context.Context, cfg *config.Config, session *telemetry.Session) {
	creds := credentials.Credentials{
		PublicKey: cfg.Langfuse.PublicKey,
		SecretKey: cfg.Langfuse.SecretKey,
		BaseURL:   cfg.Langfuse.BaseURL,
	}
	if !creds.Present() {
		slog.Info("Langfuse not configured (set LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY)")
		return
	}

	transport, err := credentials.Resolve(creds, credentials.Environ{})
	if err != nil {
		slog.Warn("Failed to resolve OTLP settings, tracing disabled", "error", err)
		return
	}
	if err := session.Init(ctx, transport); err != nil {
		slog.Warn("Failed to init tracing, tracing disabled", "error", err)
	}
}

func flushTraces(ctx context.Context, session *telemetry.Session) {
	if err := session.Flush(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("Failed to flush traces", "error", err)
	}
}
