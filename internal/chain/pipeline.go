package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/socialchef/tracechain/internal/llm"
	"github.com/socialchef/tracechain/internal/logger"
	"github.com/socialchef/tracechain/internal/metrics"
)

// Value names used by the two-step pipeline.
const (
	VarPerson   = "person"
	VarCity     = "city"
	VarLanguage = "language"
	VarAnswer   = "answer"

	StageCity   = "city"
	StageAnswer = "answer"
)

// Input is supplied by the caller for one invocation.
type Input struct {
	// Primary feeds the first stage only.
	Primary string
	// Secondary joins at the second stage.
	Secondary string
}

// Pipeline runs a stage graph against a model provider.
type Pipeline struct {
	provider llm.Provider
	graph    *Graph
}

// New creates a pipeline over an already validated graph.
func New(provider llm.Provider, graph *Graph) *Pipeline {
	return &Pipeline{provider: provider, graph: graph}
}

// NewTwoStep builds the city -> answer pipeline. cityPrompt must use only
// {person}; answerPrompt must use {city} and {language}.
func NewTwoStep(provider llm.Provider, cityPrompt, answerPrompt string) (*Pipeline, error) {
	city, err := ParseTemplate(cityPrompt)
	if err != nil {
		return nil, err
	}
	if !sameVars(city.Variables(), VarPerson) {
		return nil, fmt.Errorf("city prompt must contain exactly {%s}, got %v", VarPerson, city.Variables())
	}

	answer, err := ParseTemplate(answerPrompt)
	if err != nil {
		return nil, err
	}
	if !sameVars(answer.Variables(), VarCity, VarLanguage) {
		return nil, fmt.Errorf("answer prompt must contain exactly {%s} and {%s}, got %v", VarCity, VarLanguage, answer.Variables())
	}

	graph, err := NewGraph([]string{VarPerson, VarLanguage},
		Stage{Name: StageCity, Prompt: city, Output: VarCity},
		Stage{Name: StageAnswer, Prompt: answer, Output: VarAnswer},
	)
	if err != nil {
		return nil, err
	}
	return New(provider, graph), nil
}

// Invoke runs every stage in order and returns the final stage's reply.
// Provider errors are returned unchanged and stop the run.
func (p *Pipeline) Invoke(ctx context.Context, in Input, cfg InvocationConfig) (string, error) {
	values := map[string]string{
		VarPerson:   in.Primary,
		VarLanguage: in.Secondary,
	}
	return p.run(ctx, cfg, p.graph.Stages(), values, p.graph.Output())
}

// Derive runs only the first stage for primary.
func (p *Pipeline) Derive(ctx context.Context, primary string, cfg InvocationConfig) (string, error) {
	stage, ok := p.graph.Stage(StageCity)
	if !ok {
		return "", fmt.Errorf("pipeline has no %q stage", StageCity)
	}
	return p.run(ctx, cfg, []Stage{stage}, map[string]string{VarPerson: primary}, stage.Output)
}

// Answer runs only the second stage with a previously derived value.
func (p *Pipeline) Answer(ctx context.Context, derived, secondary string, cfg InvocationConfig) (string, error) {
	stage, ok := p.graph.Stage(StageAnswer)
	if !ok {
		return "", fmt.Errorf("pipeline has no %q stage", StageAnswer)
	}
	values := map[string]string{VarCity: derived, VarLanguage: secondary}
	return p.run(ctx, cfg, []Stage{stage}, values, stage.Output)
}

func (p *Pipeline) run(ctx context.Context, cfg InvocationConfig, stages []Stage, values map[string]string, output string) (result string, err error) {
	// Without a tracing handle nothing is recorded, not even on a span the
	// caller's context may carry.
	tracer := noop.NewTracerProvider().Tracer("")
	if cfg.Tracing != nil {
		tracer = cfg.Tracing.Tracer()
	}

	ctx, root := tracer.Start(ctx, cfg.RunName,
		trace.WithAttributes(
			attribute.String("run.name", cfg.RunName),
			attribute.String("run.id", cfg.RunID),
			attribute.String("langfuse.trace.name", cfg.RunName),
		),
	)
	defer func() {
		if err != nil {
			root.RecordError(err)
			root.SetStatus(codes.Error, err.Error())
		}
		root.End()
		metrics.InvocationsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("run.name", cfg.RunName),
			attribute.Bool("error", err != nil),
		))
	}()

	for _, stage := range stages {
		reply, stageErr := p.runStage(ctx, tracer, cfg, stage, scopeFor(stage, values))
		if stageErr != nil {
			return "", stageErr
		}
		values[stage.Output] = reply
	}
	return values[output], nil
}

func (p *Pipeline) runStage(ctx context.Context, tracer trace.Tracer, cfg InvocationConfig, stage Stage, scope map[string]string) (string, error) {
	prompt, err := stage.Prompt.Render(scope)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", stage.Name, err)
	}

	settings := p.provider.Settings()
	ctx, span := tracer.Start(ctx, "stage "+stage.Name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("run.name", cfg.RunName),
			attribute.String("stage.name", stage.Name),
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.system", settings.System),
			attribute.String("gen_ai.request.model", settings.Model),
			attribute.Float64("gen_ai.request.temperature", settings.Temperature),
			attribute.String("gen_ai.prompt", prompt),
		),
	)
	defer span.End()

	start := time.Now()
	reply, err := p.provider.Complete(ctx, prompt)
	recordCall(ctx, settings.System, stage.Name, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.String("gen_ai.completion", reply))

	slog.DebugContext(ctx, "Stage completed",
		"stage", stage.Name,
		"run_name", cfg.RunName,
		logger.WithTraceContext(ctx),
	)
	return reply, nil
}

func recordCall(ctx context.Context, system, stage string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("provider", system),
		attribute.String("stage", stage),
		attribute.Bool("error", err != nil),
	)
	metrics.LLMCallDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	metrics.LLMCallsTotal.Add(ctx, 1, attrs)
}

func sameVars(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	set := make(map[string]struct{}, len(got))
	for _, g := range got {
		set[g] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
