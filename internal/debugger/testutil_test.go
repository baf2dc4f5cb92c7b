package debugger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/go-dap"
)

// fakeConsole records every line written to it and the current
// started/stopped-input gating state, so tests can assert on the REPL
// gating discipline spec.md §5 describes.
type fakeConsole struct {
	mu          sync.Mutex
	lines       []string
	inputOn     bool
	startCalls  int
	stopCalls   int
	closeCalled bool
}

func newFakeConsole() *fakeConsole { return &fakeConsole{} }

func (c *fakeConsole) Output(text string)     { c.OutputLine(text) }
func (c *fakeConsole) OutputLine(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, text)
}
func (c *fakeConsole) StartInput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputOn = true
	c.startCalls++
}
func (c *fakeConsole) StopInput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputOn = false
	c.stopCalls++
}
func (c *fakeConsole) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCalled = true
}

func (c *fakeConsole) InputOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputOn
}

func (c *fakeConsole) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

var _ ConsoleIO = (*fakeConsole)(nil)

// fakeAdapter is a minimal Adapter test double.
type fakeAdapter struct {
	name             string
	action           AdapterAction
	asyncStopThread  int
	hasAsyncStop     bool
	supportsCodeBlks bool
}

func (a *fakeAdapter) Name() string                 { return a.name }
func (a *fakeAdapter) Action() AdapterAction        { return a.action }
func (a *fakeAdapter) AsyncStopThread() (int, bool) { return a.asyncStopThread, a.hasAsyncStop }
func (a *fakeAdapter) SupportsCodeBlocks() bool     { return a.supportsCodeBlks }
func (a *fakeAdapter) TransformLaunchArguments(raw map[string]interface{}) map[string]interface{} {
	return raw
}
func (a *fakeAdapter) TransformAttachArguments(raw map[string]interface{}) map[string]interface{} {
	return raw
}
func (a *fakeAdapter) TransformExpression(expr string, isBlockOfCode bool) string { return expr }

var _ Adapter = (*fakeAdapter)(nil)

// fakeSession is a hand-rolled DebugSession test double: every
// request method is backed by a settable func field (nil defaults to a
// harmless zero-value success), and every Observe* method hands back a
// dedicated buffered channel the test pushes events onto directly.
type fakeSession struct {
	mu sync.Mutex

	initializeCaps Capabilities
	initializeErr  error

	launchErr, attachErr, disconnectErr error
	launchArgs, attachArgs              map[string]interface{}

	setBreakpointsFunc         func(dap.Source, []dap.SourceBreakpoint) ([]dap.Breakpoint, error)
	setFunctionBreakpointsFunc func([]dap.FunctionBreakpoint) ([]dap.Breakpoint, error)
	setExceptionBreakpointsErr error
	configurationDoneErr       error

	threadsFunc    func() ([]dap.Thread, error)
	stackTraceFunc func(threadID, startFrame, levels int) ([]dap.StackFrame, int, error)
	scopesFunc     func(frameID int) ([]dap.Scope, error)
	variablesFunc  func(ref int) ([]dap.Variable, error)

	pauseCalls   []int
	pauseErr     error
	continueFunc func(threadID int) (bool, error)
	nextErr      error
	stepInErr    error
	stepOutErr   error

	evaluateFunc func(expr string, frameID int, evalContext string) (dap.EvaluateResponseBody, error)
	sourceFunc   func(dap.Source) (string, error)

	initCh        chan *dap.InitializedEvent
	outCh         chan *dap.OutputEvent
	contCh        chan *dap.ContinuedEvent
	stopCh        chan *dap.StoppedEvent
	threadCh      chan *dap.ThreadEvent
	exitCh        chan *dap.ExitedEvent
	termCh        chan *dap.TerminatedEvent
	adapterExitCh chan *AdapterExitedEvent
	bpCh          chan *dap.BreakpointEvent
	modCh         chan *dap.ModuleEvent
	customCh      chan *dap.Event
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		initializeCaps: Capabilities{},
		initCh:         make(chan *dap.InitializedEvent, 4),
		outCh:          make(chan *dap.OutputEvent, 16),
		contCh:         make(chan *dap.ContinuedEvent, 16),
		stopCh:         make(chan *dap.StoppedEvent, 16),
		threadCh:       make(chan *dap.ThreadEvent, 16),
		exitCh:         make(chan *dap.ExitedEvent, 4),
		termCh:         make(chan *dap.TerminatedEvent, 4),
		adapterExitCh:  make(chan *AdapterExitedEvent, 4),
		bpCh:           make(chan *dap.BreakpointEvent, 16),
		modCh:          make(chan *dap.ModuleEvent, 16),
		customCh:       make(chan *dap.Event, 16),
	}
}

func (s *fakeSession) Initialize(ctx context.Context, clientID, clientName string) (Capabilities, error) {
	return s.initializeCaps, s.initializeErr
}

func (s *fakeSession) Launch(ctx context.Context, args map[string]interface{}) error {
	s.mu.Lock()
	s.launchArgs = args
	s.mu.Unlock()
	return s.launchErr
}

func (s *fakeSession) Attach(ctx context.Context, args map[string]interface{}) error {
	s.mu.Lock()
	s.attachArgs = args
	s.mu.Unlock()
	return s.attachErr
}

func (s *fakeSession) Disconnect(ctx context.Context, terminateDebuggee bool) error {
	return s.disconnectErr
}

func (s *fakeSession) SetBreakpoints(ctx context.Context, source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
	if s.setBreakpointsFunc != nil {
		return s.setBreakpointsFunc(source, breakpoints)
	}
	out := make([]dap.Breakpoint, len(breakpoints))
	for i, b := range breakpoints {
		out[i] = dap.Breakpoint{Verified: true, Line: b.Line, Source: &source}
	}
	return out, nil
}

func (s *fakeSession) SetFunctionBreakpoints(ctx context.Context, breakpoints []dap.FunctionBreakpoint) ([]dap.Breakpoint, error) {
	if s.setFunctionBreakpointsFunc != nil {
		return s.setFunctionBreakpointsFunc(breakpoints)
	}
	out := make([]dap.Breakpoint, len(breakpoints))
	for i := range breakpoints {
		out[i] = dap.Breakpoint{Verified: true}
	}
	return out, nil
}

func (s *fakeSession) SetExceptionBreakpoints(ctx context.Context, filters []string) error {
	return s.setExceptionBreakpointsErr
}

func (s *fakeSession) ConfigurationDone(ctx context.Context) error { return s.configurationDoneErr }

func (s *fakeSession) Threads(ctx context.Context) ([]dap.Thread, error) {
	if s.threadsFunc != nil {
		return s.threadsFunc()
	}
	return nil, nil
}

func (s *fakeSession) StackTrace(ctx context.Context, threadID, startFrame, levels int) ([]dap.StackFrame, int, error) {
	if s.stackTraceFunc != nil {
		return s.stackTraceFunc(threadID, startFrame, levels)
	}
	return nil, 0, nil
}

func (s *fakeSession) Scopes(ctx context.Context, frameID int) ([]dap.Scope, error) {
	if s.scopesFunc != nil {
		return s.scopesFunc(frameID)
	}
	return nil, nil
}

func (s *fakeSession) Variables(ctx context.Context, variablesReference int) ([]dap.Variable, error) {
	if s.variablesFunc != nil {
		return s.variablesFunc(variablesReference)
	}
	return nil, nil
}

func (s *fakeSession) Pause(ctx context.Context, threadID int) error {
	s.mu.Lock()
	s.pauseCalls = append(s.pauseCalls, threadID)
	s.mu.Unlock()
	return s.pauseErr
}

func (s *fakeSession) Continue(ctx context.Context, threadID int) (bool, error) {
	if s.continueFunc != nil {
		return s.continueFunc(threadID)
	}
	return true, nil
}

func (s *fakeSession) Next(ctx context.Context, threadID int) error    { return s.nextErr }
func (s *fakeSession) StepIn(ctx context.Context, threadID int) error  { return s.stepInErr }
func (s *fakeSession) StepOut(ctx context.Context, threadID int) error { return s.stepOutErr }

func (s *fakeSession) Evaluate(ctx context.Context, expression string, frameID int, evalContext string) (dap.EvaluateResponseBody, error) {
	if s.evaluateFunc != nil {
		return s.evaluateFunc(expression, frameID, evalContext)
	}
	return dap.EvaluateResponseBody{Result: expression}, nil
}

func (s *fakeSession) Source(ctx context.Context, source dap.Source) (string, error) {
	if s.sourceFunc != nil {
		return s.sourceFunc(source)
	}
	return "", nil
}

func (s *fakeSession) Info(ctx context.Context) (SessionInfo, error) {
	return SessionInfo{AdapterID: "fake"}, nil
}

func (s *fakeSession) ObserveInitializeEvents() (<-chan *dap.InitializedEvent, func()) {
	return s.initCh, func() {}
}
func (s *fakeSession) ObserveOutputEvents() (<-chan *dap.OutputEvent, func()) {
	return s.outCh, func() {}
}
func (s *fakeSession) ObserveContinuedEvents() (<-chan *dap.ContinuedEvent, func()) {
	return s.contCh, func() {}
}
func (s *fakeSession) ObserveStopEvents() (<-chan *dap.StoppedEvent, func()) {
	return s.stopCh, func() {}
}
func (s *fakeSession) ObserveThreadEvents() (<-chan *dap.ThreadEvent, func()) {
	return s.threadCh, func() {}
}
func (s *fakeSession) ObserveExitedDebugeeEvents() (<-chan *dap.ExitedEvent, func()) {
	return s.exitCh, func() {}
}
func (s *fakeSession) ObserveTerminateDebugeeEvents() (<-chan *dap.TerminatedEvent, func()) {
	return s.termCh, func() {}
}
func (s *fakeSession) ObserveAdapterExitedEvents() (<-chan *AdapterExitedEvent, func()) {
	return s.adapterExitCh, func() {}
}
func (s *fakeSession) ObserveBreakpointEvents() (<-chan *dap.BreakpointEvent, func()) {
	return s.bpCh, func() {}
}
func (s *fakeSession) ObserveModuleEvents() (<-chan *dap.ModuleEvent, func()) {
	return s.modCh, func() {}
}
func (s *fakeSession) ObserveCustomEvents() (<-chan *dap.Event, func()) {
	return s.customCh, func() {}
}

var _ DebugSession = (*fakeSession)(nil)

// sessionFactory builds a NewSessionFunc that hands out the
// sessions in order, one per call (one per launch/relaunch generation).
func sessionFactory(sessions ...*fakeSession) NewSessionFunc {
	i := 0
	return func(ctx context.Context, adapter Adapter) (DebugSession, error) {
		if i >= len(sessions) {
			return nil, fmt.Errorf("sessionFactory: no session left for generation %d", i)
		}
		s := sessions[i]
		i++
		return s, nil
	}
}

// waitFor polls cond until it returns true or the timeout elapses,
// returning false in the latter case. It exists because the engine's
// event handling runs on its own goroutine (spec.md §5); tests pushing
// an event onto a fake session's channel must wait for that goroutine
// to observe and act on it.
func waitFor(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

const testTimeout = 2 * time.Second
