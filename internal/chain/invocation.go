package chain

import (
	"github.com/google/uuid"

	"github.com/socialchef/tracechain/internal/telemetry"
)

// InvocationConfig is built fresh for every Invoke call.
type InvocationConfig struct {
	RunName string
	RunID   string
	// Tracing is nil when no tracing session was initialized.
	Tracing *telemetry.Handle
}

// NewInvocationConfig attaches the session's handle when the session was
// initialized. session may be nil.
func NewInvocationConfig(runName string, session *telemetry.Session) InvocationConfig {
	handle, _ := session.Handle()
	return InvocationConfig{
		RunName: runName,
		RunID:   uuid.NewString(),
		Tracing: handle,
	}
}
