package debugger

import (
	"context"

	"github.com/google/go-dap"
)

// ScopeVariables pairs one scope with its resolved variables (absent
// for expensive scopes the caller did not explicitly ask for).
type ScopeVariables struct {
	Scope     dap.Scope
	Variables []dap.Variable
	Fetched   bool
}

// DebuggerInterface is the thin contract the command dispatcher uses to
// invoke semantic operations on the engine. It exists so commands never
// reach into engine internals; every operation here validates state and
// returns an *Error with a Kind on failure.
type DebuggerInterface interface {
	// Session lifecycle.
	Launch(ctx context.Context, adapter Adapter) error
	Run(ctx context.Context) error
	CloseSession(ctx context.Context, terminateDebuggee bool) error
	State() State

	// Capability inspection.
	AdapterCapabilities() (Capabilities, bool)
	SupportsCodeBlocks() bool
	SupportsStoppedAtBreakpoint() bool

	// Execution control.
	Continue(ctx context.Context, threadID int) error
	Next(ctx context.Context, threadID int) error
	StepIn(ctx context.Context, threadID int) error
	StepOut(ctx context.Context, threadID int) error
	Pause(ctx context.Context, threadID int) error

	// Threads.
	AllThreads() []*Thread
	FocusThread() *Thread
	SetFocusThread(id int) error

	// Modules (supplemented feature; see ModuleCollection).
	Modules() []dap.Module

	// Stack and variables.
	GetStackTrace(ctx context.Context, threadID, levels int) ([]dap.StackFrame, error)
	GetCurrentStackFrame() (*dap.StackFrame, error)
	SetSelectedStackFrame(threadID, idx int) error
	GetVariablesByScope(ctx context.Context, name string) ([]ScopeVariables, error)
	GetVariablesByReference(ctx context.Context, ref int) ([]dap.Variable, error)

	// Evaluation.
	EvaluateExpression(ctx context.Context, text string, isBlockOfCode bool) (dap.EvaluateResponseBody, error)

	// Breakpoints.
	SetSourceBreakpoint(ctx context.Context, path string, line int, once bool) (int, error)
	SetFunctionBreakpoint(ctx context.Context, name string, once bool) (int, error)
	GetAllBreakpoints() []*Breakpoint
	GetBreakpointByIndex(index int) (*Breakpoint, error)
	SetBreakpointEnabled(ctx context.Context, index int, enabled bool) error
	ToggleBreakpoint(ctx context.Context, index int) error
	ToggleAllBreakpoints(ctx context.Context) error
	DeleteBreakpoint(ctx context.Context, index int) error
	DeleteAllBreakpoints(ctx context.Context) error
	SetAllBreakpointsEnabled(ctx context.Context, enabled bool) error
}

// Command is implemented by each REPL command object the dispatcher
// holds. Name is used for dispatch and help text.
type Command interface {
	Name() string
	Run(ctx context.Context, d DebuggerInterface, console ConsoleIO, args []string) error
}

// StoppedHook is implemented optionally by a Command that needs to react
// whenever the engine transitions into the stopped state (e.g. to print
// a prompt prefix reflecting the current frame). The engine invokes it
// on every registered command that implements it, in registration order.
type StoppedHook interface {
	OnStopped(d DebuggerInterface, console ConsoleIO)
}
