package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/socialchef/tracechain/internal/chain"
	"github.com/socialchef/tracechain/internal/credentials"
	apperrors "github.com/socialchef/tracechain/internal/errors"
	"github.com/socialchef/tracechain/internal/telemetry"
)

type fakeInvoker struct {
	inputs  []chain.Input
	configs []chain.InvocationConfig
	answer  func(chain.Input) (string, error)
}

func (f *fakeInvoker) Invoke(ctx context.Context, in chain.Input, cfg chain.InvocationConfig) (string, error) {
	f.inputs = append(f.inputs, in)
	f.configs = append(f.configs, cfg)
	return f.answer(in)
}

func TestLoop_Run(t *testing.T) {
	invoker := &fakeInvoker{answer: func(in chain.Input) (string, error) {
		return "answer for " + in.Primary, nil
	}}
	var out bytes.Buffer
	l := &Loop{
		In:       strings.NewReader("Marie Curie\n\n  Ada Lovelace  \nQUIT\nnever read\n"),
		Out:      &out,
		Pipeline: invoker,
		RunName:  "chain2-two-step",
		Language: "English",
	}

	require.NoError(t, l.Run(context.Background()))

	require.Len(t, invoker.inputs, 2)
	assert.Equal(t, chain.Input{Primary: "Marie Curie", Secondary: "English"}, invoker.inputs[0])
	assert.Equal(t, "Ada Lovelace", invoker.inputs[1].Primary)
	assert.Contains(t, out.String(), "Answer: answer for Marie Curie")
	assert.Contains(t, out.String(), "Answer: answer for Ada Lovelace")
	assert.NotContains(t, out.String(), "never read")

	assert.Equal(t, "chain2-two-step", invoker.configs[0].RunName)
	assert.NotEqual(t, invoker.configs[0].RunID, invoker.configs[1].RunID)
	assert.Nil(t, invoker.configs[0].Tracing)
}

func TestLoop_ErrorsDoNotStopTheLoop(t *testing.T) {
	invoker := &fakeInvoker{answer: func(in chain.Input) (string, error) {
		if in.Primary == "bad" {
			return "", errors.New("rate limited")
		}
		return "ok", nil
	}}
	var out bytes.Buffer
	l := &Loop{In: strings.NewReader("bad\ngood\n"), Out: &out, Pipeline: invoker}

	require.NoError(t, l.Run(context.Background()))
	assert.Len(t, invoker.inputs, 2)
	assert.Contains(t, out.String(), "Error: rate limited")
	assert.Contains(t, out.String(), "Answer: ok")
	assert.Contains(t, out.String(), "Stopping chat.")
}

func TestLoop_PrintsRecoveryHint(t *testing.T) {
	invoker := &fakeInvoker{answer: func(chain.Input) (string, error) {
		return "", apperrors.NewRateLimitError("OpenAI", "slow down")
	}}
	var out bytes.Buffer
	l := &Loop{In: strings.NewReader("Marie Curie\n"), Out: &out, Pipeline: invoker}

	require.NoError(t, l.Run(context.Background()))
	assert.Contains(t, out.String(), "Error: OpenAI API rate limit exceeded: slow down")
	assert.Contains(t, out.String(), "Hint: Wait a moment before sending the next message.")
}

func TestLoop_NoHintForPlainErrors(t *testing.T) {
	invoker := &fakeInvoker{answer: func(chain.Input) (string, error) {
		return "", errors.New("boom")
	}}
	var out bytes.Buffer
	l := &Loop{In: strings.NewReader("Marie Curie\n"), Out: &out, Pipeline: invoker}

	require.NoError(t, l.Run(context.Background()))
	assert.Contains(t, out.String(), "Error: boom")
	assert.NotContains(t, out.String(), "Hint:")
}

func TestLoop_FlushesSessionOnExit(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	session := telemetry.NewSession("test-app")
	tc, err := credentials.Resolve(
		credentials.Credentials{PublicKey: "pk", SecretKey: "sk"},
		credentials.NewMemorySettings(nil),
	)
	require.NoError(t, err)
	require.NoError(t, session.Init(context.Background(), tc, telemetry.WithExporter(exporter)))

	invoker := &fakeInvoker{answer: func(chain.Input) (string, error) { return "ok", nil }}
	l := &Loop{In: strings.NewReader("Marie Curie\nexit\n"), Out: io.Discard, Pipeline: invoker, Session: session}

	require.NoError(t, l.Run(context.Background()))
	assert.NotNil(t, invoker.configs[0].Tracing)

	_, ok := session.Handle()
	assert.False(t, ok, "session is shut down after the loop")
}

func TestLoop_Cancelled(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	l := &Loop{In: pr, Out: &out, Pipeline: &fakeInvoker{}}
	require.NoError(t, l.Run(ctx))
	assert.Contains(t, out.String(), "Stopping chat.")
}

func TestIsExit(t *testing.T) {
	assert.True(t, isExit("exit"))
	assert.True(t, isExit("Quit"))
	assert.False(t, isExit("exit now"))
}
