package dapsession

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/go-dap"
	"github.com/vburojevic/xdbg/internal/debugger"
)

// Initialize sends the initialize request and decodes the response into
// the engine's extended Capabilities, which carries the
// supportsBreakpointIdOnStop extension go-dap's own Capabilities struct
// does not model.
func (s *Session) Initialize(ctx context.Context, clientID, clientName string) (debugger.Capabilities, error) {
	args := dap.InitializeRequestArguments{
		ClientID:                     clientID,
		ClientName:                   clientName,
		AdapterID:                    "xdbg",
		PathFormat:                   "path",
		LinesStartAt1:                true,
		ColumnsStartAt1:              true,
		SupportsVariableType:         true,
		SupportsRunInTerminalRequest: false,
	}

	var raw json.RawMessage
	if err := s.call(ctx, "initialize", args, &raw); err != nil {
		return debugger.Capabilities{}, err
	}

	var caps debugger.Capabilities
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &caps.Capabilities); err != nil {
			return debugger.Capabilities{}, err
		}
		var ext struct {
			SupportsBreakpointIdOnStop bool `json:"supportsBreakpointIdOnStop"`
		}
		_ = json.Unmarshal(raw, &ext)
		caps.SupportsBreakpointIdOnStop = ext.SupportsBreakpointIdOnStop
	}
	return caps, nil
}

// Launch sends the launch request with adapter-transformed arguments.
func (s *Session) Launch(ctx context.Context, args map[string]interface{}) error {
	return s.call(ctx, "launch", args, nil)
}

// Attach sends the attach request with adapter-transformed arguments.
func (s *Session) Attach(ctx context.Context, args map[string]interface{}) error {
	return s.call(ctx, "attach", args, nil)
}

// Disconnect tears down the session. terminateDebuggee controls whether
// the adapter is asked to kill the debuggee along with disconnecting.
func (s *Session) Disconnect(ctx context.Context, terminateDebuggee bool) error {
	args := dap.DisconnectArguments{TerminateDebuggee: terminateDebuggee}
	err := s.call(ctx, "disconnect", args, nil)
	s.shutdown()
	return err
}

// shutdown kills the adapter process (if still alive) and closes every
// event hub, releasing any blocked observers.
func (s *Session) shutdown() {
	switch {
	case s.cmd != nil && s.cmd.Process != nil:
		_ = s.cmd.Process.Signal(os.Interrupt)
	case s.conn != nil:
		_ = s.conn.Close()
	}
	s.initHub.closeAll()
	s.outputHub.closeAll()
	s.continuedHub.closeAll()
	s.stoppedHub.closeAll()
	s.threadHub.closeAll()
	s.exitedHub.closeAll()
	s.terminatedHub.closeAll()
	s.adapterExited.closeAll()
	s.breakpointHub.closeAll()
	s.moduleHub.closeAll()
	s.customHub.closeAll()
}

// SetBreakpoints replaces the full set of source breakpoints for source
// in a single request, per DAP's replace-all-for-a-source contract.
func (s *Session) SetBreakpoints(ctx context.Context, source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
	args := dap.SetBreakpointsArguments{Source: source, Breakpoints: breakpoints}
	var body struct {
		Breakpoints []dap.Breakpoint `json:"breakpoints"`
	}
	if err := s.call(ctx, "setBreakpoints", args, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// SetFunctionBreakpoints replaces the full set of function breakpoints.
func (s *Session) SetFunctionBreakpoints(ctx context.Context, breakpoints []dap.FunctionBreakpoint) ([]dap.Breakpoint, error) {
	args := dap.SetFunctionBreakpointsArguments{Breakpoints: breakpoints}
	var body struct {
		Breakpoints []dap.Breakpoint `json:"breakpoints"`
	}
	if err := s.call(ctx, "setFunctionBreakpoints", args, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// SetExceptionBreakpoints replaces the enabled exception filter set.
func (s *Session) SetExceptionBreakpoints(ctx context.Context, filters []string) error {
	args := dap.SetExceptionBreakpointsArguments{Filters: filters}
	return s.call(ctx, "setExceptionBreakpoints", args, nil)
}

// ConfigurationDone ends the configuring window, telling the adapter all
// initial breakpoints/filters have been sent.
func (s *Session) ConfigurationDone(ctx context.Context) error {
	return s.call(ctx, "configurationDone", nil, nil)
}

// Threads fetches the adapter's current thread list.
func (s *Session) Threads(ctx context.Context) ([]dap.Thread, error) {
	var body struct {
		Threads []dap.Thread `json:"threads"`
	}
	if err := s.call(ctx, "threads", nil, &body); err != nil {
		return nil, err
	}
	return body.Threads, nil
}

// StackTrace fetches up to levels frames for threadID, starting at
// startFrame. levels of 0 requests the full remaining stack.
func (s *Session) StackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	args := dap.StackTraceArguments{ThreadId: threadID, StartFrame: startFrame, Levels: levels}
	var body struct {
		StackFrames []dap.StackFrame `json:"stackFrames"`
		TotalFrames int              `json:"totalFrames"`
	}
	if err := s.call(ctx, "stackTrace", args, &body); err != nil {
		return nil, 0, err
	}
	return body.StackFrames, body.TotalFrames, nil
}

// Scopes fetches the scopes visible at frameID.
func (s *Session) Scopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	args := dap.ScopesArguments{FrameId: frameID}
	var body struct {
		Scopes []dap.Scope `json:"scopes"`
	}
	if err := s.call(ctx, "scopes", args, &body); err != nil {
		return nil, err
	}
	return body.Scopes, nil
}

// Variables fetches the children of variablesReference (a scope or a
// compound variable).
func (s *Session) Variables(ctx context.Context, variablesReference int) ([]dap.Variable, error) {
	args := dap.VariablesArguments{VariablesReference: variablesReference}
	var body struct {
		Variables []dap.Variable `json:"variables"`
	}
	if err := s.call(ctx, "variables", args, &body); err != nil {
		return nil, err
	}
	return body.Variables, nil
}

// Pause requests a break-in on threadID.
func (s *Session) Pause(ctx context.Context, threadID int) error {
	args := dap.PauseArguments{ThreadId: threadID}
	return s.call(ctx, "pause", args, nil)
}

// Continue resumes threadID, reporting whether the adapter says every
// thread resumed as a side effect.
func (s *Session) Continue(ctx context.Context, threadID int) (bool, error) {
	args := dap.ContinueArguments{ThreadId: threadID}
	var body dap.ContinueResponseBody
	if err := s.call(ctx, "continue", args, &body); err != nil {
		return false, err
	}
	return body.AllThreadsContinued, nil
}

// Next steps over the current line on threadID.
func (s *Session) Next(ctx context.Context, threadID int) error {
	args := dap.NextArguments{ThreadId: threadID}
	return s.call(ctx, "next", args, nil)
}

// StepIn steps into a call on the current line of threadID.
func (s *Session) StepIn(ctx context.Context, threadID int) error {
	args := dap.StepInArguments{ThreadId: threadID}
	return s.call(ctx, "stepIn", args, nil)
}

// StepOut steps out of the current function on threadID.
func (s *Session) StepOut(ctx context.Context, threadID int) error {
	args := dap.StepOutArguments{ThreadId: threadID}
	return s.call(ctx, "stepOut", args, nil)
}

// Evaluate evaluates expression in the given frame/context ("repl",
// "watch", "hover").
func (s *Session) Evaluate(ctx context.Context, expression string, frameID int, evalContext string) (dap.EvaluateResponseBody, error) {
	args := dap.EvaluateArguments{Expression: expression, FrameId: frameID, Context: evalContext}
	var body dap.EvaluateResponseBody
	if err := s.call(ctx, "evaluate", args, &body); err != nil {
		return dap.EvaluateResponseBody{}, err
	}
	return body, nil
}

// Source fetches the full text of a source identified either by path
// (already on disk, so this is rarely needed) or by sourceReference.
func (s *Session) Source(ctx context.Context, source dap.Source) (string, error) {
	args := dap.SourceArguments{Source: &source, SourceReference: source.SourceReference}
	var body struct {
		Content string `json:"content"`
	}
	if err := s.call(ctx, "source", args, &body); err != nil {
		return "", err
	}
	return body.Content, nil
}

// Info reports adapter process metadata. It is not part of the DAP
// wire protocol; xdbg answers it from what it already knows about the
// spawned process rather than round-tripping to the adapter.
func (s *Session) Info(ctx context.Context) (debugger.SessionInfo, error) {
	info := debugger.SessionInfo{AdapterID: "xdbg"}
	if s.cmd != nil && s.cmd.Process != nil {
		info.PID = s.cmd.Process.Pid
	} else if s.conn != nil {
		info.RemoteAddr = s.conn.RemoteAddr().String()
	}
	return info, nil
}

func (s *Session) ObserveInitializeEvents() (<-chan *dap.InitializedEvent, func()) {
	return s.initHub.subscribe()
}

func (s *Session) ObserveOutputEvents() (<-chan *dap.OutputEvent, func()) {
	return s.outputHub.subscribe()
}

func (s *Session) ObserveContinuedEvents() (<-chan *dap.ContinuedEvent, func()) {
	return s.continuedHub.subscribe()
}

func (s *Session) ObserveStopEvents() (<-chan *dap.StoppedEvent, func()) {
	return s.stoppedHub.subscribe()
}

func (s *Session) ObserveThreadEvents() (<-chan *dap.ThreadEvent, func()) {
	return s.threadHub.subscribe()
}

func (s *Session) ObserveExitedDebugeeEvents() (<-chan *dap.ExitedEvent, func()) {
	return s.exitedHub.subscribe()
}

func (s *Session) ObserveTerminateDebugeeEvents() (<-chan *dap.TerminatedEvent, func()) {
	return s.terminatedHub.subscribe()
}

func (s *Session) ObserveAdapterExitedEvents() (<-chan *debugger.AdapterExitedEvent, func()) {
	return s.adapterExited.subscribe()
}

func (s *Session) ObserveBreakpointEvents() (<-chan *dap.BreakpointEvent, func()) {
	return s.breakpointHub.subscribe()
}

func (s *Session) ObserveModuleEvents() (<-chan *dap.ModuleEvent, func()) {
	return s.moduleHub.subscribe()
}

func (s *Session) ObserveCustomEvents() (<-chan *dap.Event, func()) {
	return s.customHub.subscribe()
}
