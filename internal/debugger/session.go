package debugger

import (
	"context"

	"github.com/google/go-dap"
)

// Capabilities extends the wire-level DAP capabilities with the one
// extension this engine depends on that the official schema (and so
// go-dap's Capabilities struct) does not carry: whether stopped events
// report the breakpointId that caused the stop, which one-shot
// breakpoints require to correlate themselves.
type Capabilities struct {
	dap.Capabilities
	SupportsBreakpointIdOnStop bool
}

// AdapterExitedEvent reports that the debug adapter process itself
// exited, as distinct from the debuggee (dap.ExitedEvent) or the
// debuggee's debug session (dap.TerminatedEvent).
type AdapterExitedEvent struct {
	ExitCode int
	Err      error
}

// SessionInfo is the response to the session-level "info" request:
// adapter process metadata not otherwise carried by any DAP response.
type SessionInfo struct {
	AdapterID  string
	PID        int
	RemoteAddr string
}

// DebugSession is the DAP transport collaborator: it frames and
// correlates requests/responses and demultiplexes the adapter's event
// stream. The engine never parses wire bytes itself; it only calls this
// interface and ranges over the channels it returns.
//
// Each Observe* method returns a channel plus an unsubscribe func;
// closing the returned func releases the subscription without
// affecting other observers of the same event kind.
type DebugSession interface {
	Initialize(ctx context.Context, clientID, clientName string) (Capabilities, error)
	Launch(ctx context.Context, args map[string]interface{}) error
	Attach(ctx context.Context, args map[string]interface{}) error
	Disconnect(ctx context.Context, terminateDebuggee bool) error

	SetBreakpoints(ctx context.Context, source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error)
	SetFunctionBreakpoints(ctx context.Context, breakpoints []dap.FunctionBreakpoint) ([]dap.Breakpoint, error)
	SetExceptionBreakpoints(ctx context.Context, filters []string) error
	ConfigurationDone(ctx context.Context) error

	Threads(ctx context.Context) ([]dap.Thread, error)
	StackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error)
	Scopes(ctx context.Context, frameID int) ([]dap.Scope, error)
	Variables(ctx context.Context, variablesReference int) ([]dap.Variable, error)

	Pause(ctx context.Context, threadID int) error
	Continue(ctx context.Context, threadID int) (allThreadsContinued bool, err error)
	Next(ctx context.Context, threadID int) error
	StepIn(ctx context.Context, threadID int) error
	StepOut(ctx context.Context, threadID int) error

	Evaluate(ctx context.Context, expression string, frameID int, context string) (dap.EvaluateResponseBody, error)
	Source(ctx context.Context, source dap.Source) (string, error)
	Info(ctx context.Context) (SessionInfo, error)

	ObserveInitializeEvents() (<-chan *dap.InitializedEvent, func())
	ObserveOutputEvents() (<-chan *dap.OutputEvent, func())
	ObserveContinuedEvents() (<-chan *dap.ContinuedEvent, func())
	ObserveStopEvents() (<-chan *dap.StoppedEvent, func())
	ObserveThreadEvents() (<-chan *dap.ThreadEvent, func())
	ObserveExitedDebugeeEvents() (<-chan *dap.ExitedEvent, func())
	ObserveTerminateDebugeeEvents() (<-chan *dap.TerminatedEvent, func())
	ObserveAdapterExitedEvents() (<-chan *AdapterExitedEvent, func())
	ObserveBreakpointEvents() (<-chan *dap.BreakpointEvent, func())
	ObserveModuleEvents() (<-chan *dap.ModuleEvent, func())
	ObserveCustomEvents() (<-chan *dap.Event, func())
}
