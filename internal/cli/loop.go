package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/socialchef/tracechain/internal/chain"
	apperrors "github.com/socialchef/tracechain/internal/errors"
	"github.com/socialchef/tracechain/internal/telemetry"
)

// Invoker runs one pipeline invocation.
type Invoker interface {
	Invoke(ctx context.Context, in chain.Input, cfg chain.InvocationConfig) (string, error)
}

// Loop reads one person per line and prints the pipeline's answer.
type Loop struct {
	In       io.Reader
	Out      io.Writer
	Pipeline Invoker
	Session  *telemetry.Session
	RunName  string
	Language string
}

// Run blocks until the user types exit or quit, input ends, or ctx is
// cancelled. Telemetry is flushed before it returns.
func (l *Loop) Run(ctx context.Context) error {
	readCtx, stopReading := context.WithCancel(ctx)
	defer stopReading()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(l.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-readCtx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(l.Out, "Type 'exit' or 'quit' to stop.")
loop:
	for {
		fmt.Fprint(l.Out, "Person: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.Out, "\nStopping chat.")
			break loop
		case text, ok := <-lines:
			if !ok {
				fmt.Fprintln(l.Out, "\nStopping chat.")
				break loop
			}
			line = strings.TrimSpace(text)
		}

		if line == "" {
			continue
		}
		if isExit(line) {
			break loop
		}

		answer, err := l.Turn(ctx, line)
		if err != nil {
			slog.Error("Invocation failed", "run_name", l.RunName, "error", err)
			fmt.Fprintf(l.Out, "Error: %v\n", err)
			if hint := apperrors.RecoveryFor(err); hint != "" {
				fmt.Fprintf(l.Out, "Hint: %s\n", hint)
			}
			continue
		}
		fmt.Fprintf(l.Out, "Answer: %s\n", answer)
	}

	// Flush with a fresh context: ctx may already be cancelled by a signal.
	return l.Session.Flush(context.WithoutCancel(ctx))
}

// Turn runs a single invocation with a freshly built config.
func (l *Loop) Turn(ctx context.Context, person string) (string, error) {
	cfg := chain.NewInvocationConfig(l.RunName, l.Session)
	return l.Pipeline.Invoke(ctx, chain.Input{Primary: person, Secondary: l.Language}, cfg)
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "exit", "quit":
		return true
	}
	return false
}
