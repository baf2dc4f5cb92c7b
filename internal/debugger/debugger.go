// Package debugger implements the session state machine that drives a
// Debug Adapter Protocol back end: it issues requests through a
// DebugSession collaborator, consumes that collaborator's event
// streams, and keeps the thread set, breakpoint registry, and source
// cache coherent across launches, relaunches, and stops.
package debugger

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-dap"
)

// NewSessionFunc builds a fresh DebugSession for one generation of a
// relaunch. The engine owns nothing about how the transport is wired up
// (spawning a process, dialing a socket); it only asks for a new one.
type NewSessionFunc func(ctx context.Context, adapter Adapter) (DebugSession, error)

// Debugger is the session state machine described by this package: it
// is the single source of truth for session lifecycle and the only
// mutator of its own state.
type Debugger struct {
	mu sync.Mutex

	newSession NewSessionFunc
	session    DebugSession
	console    ConsoleIO
	clock      clock.Clock

	adapter Adapter
	caps    Capabilities
	hasCaps bool

	state State

	threads     *ThreadCollection
	breakpoints *BreakpointCollection
	sourceCache *SourceFileCache
	modules     *ModuleCollection
	frames      map[int][]dap.StackFrame

	commands             []Command
	muteOutputCategories map[string]bool

	exceptionFilters []string

	readyForEvaluations bool
	disconnecting       bool

	generation     int
	unsub          []func()
	eventsDone     chan struct{}
	lastRelaunchAt time.Time

	exitRequested chan struct{}
	exitOnce      sync.Once

	logf func(format string, args ...interface{})
}

// Option configures optional Debugger behavior at construction time.
type Option func(*Debugger)

// WithMutedOutputCategories forwards output events whose category is
// NOT in this set; categories in the set are swallowed.
func WithMutedOutputCategories(categories ...string) Option {
	return func(d *Debugger) {
		for _, c := range categories {
			d.muteOutputCategories[c] = true
		}
	}
}

// WithClock injects a clock.Clock, letting tests control time-derived
// bookkeeping (e.g. relaunch generation timestamps) deterministically.
func WithClock(c clock.Clock) Option {
	return func(d *Debugger) { d.clock = c }
}

// WithLogf installs a sink for internal diagnostic logging (event
// handler failures, which spec never propagates into the event loop).
func WithLogf(logf func(format string, args ...interface{})) Option {
	return func(d *Debugger) { d.logf = logf }
}

// WithExceptionFilters names the exception-breakpoint filter ids
// enabled by default on every fresh BreakpointCollection a Launch
// creates (e.g. "panic" for an unhandled-panic filter); sent on the
// every Run via sendExceptionFilters.
func WithExceptionFilters(filters ...string) Option {
	return func(d *Debugger) { d.exceptionFilters = append(d.exceptionFilters, filters...) }
}

// New builds a Debugger in the terminated state (no active session until
// Launch) with an empty thread
// set and an empty breakpoint collection. newSession is called once per
// launch/relaunch to obtain a fresh DebugSession.
func New(newSession NewSessionFunc, console ConsoleIO, commands []Command, opts ...Option) *Debugger {
	d := &Debugger{
		newSession:           newSession,
		console:              console,
		clock:                clock.New(),
		state:                StateTerminated,
		threads:              NewThreadCollection(),
		breakpoints:          NewBreakpointCollection(),
		modules:              NewModuleCollection(),
		commands:             commands,
		muteOutputCategories: make(map[string]bool),
		frames:               make(map[int][]dap.StackFrame),
		exitRequested:        make(chan struct{}),
		logf:                 func(string, ...interface{}) {},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sourceCache == nil {
		d.sourceCache = NewSourceFileCache(nil)
	}
	return d
}

// ExitRequested returns a channel that is closed once the engine has
// decided its host process should exit: attach-mode termination, per
// spec.md §4.F.7 ("in attach mode, signal host to exit"). The CLI
// entrypoint selects on this alongside its own signal handling and
// QuitCmd's completion.
func (d *Debugger) ExitRequested() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exitRequested
}

func (d *Debugger) requestExit() {
	d.exitOnce.Do(func() { close(d.exitRequested) })
}

// State returns the current session state.
func (d *Debugger) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Debugger) setState(s State) {
	d.state = s
}

// requireState fails with NotRunning/NotStopped/NoActiveSession
// depending on which states were actually needed. Caller must hold d.mu.
func (d *Debugger) requireState(allowed ...State) error {
	if d.state == StateTerminated && !containsState(allowed, StateTerminated) {
		return newErr(KindNoActiveSession, "no active debug session")
	}
	if containsState(allowed, d.state) {
		return nil
	}
	switch d.state {
	case StateInitializing, StateConfiguring:
		return newErr(KindNotRunning, "program has not started running yet (state=%s)", d.state)
	case StateRunning:
		return newErr(KindNotStopped, "program is running, not stopped")
	default:
		return newErr(KindInternal, "operation not valid in state %s", d.state)
	}
}

func containsState(states []State, s State) bool {
	for _, want := range states {
		if want == s {
			return true
		}
	}
	return false
}

// Launch starts a brand new debug session against adapter: a fresh
// breakpoint collection (existing user breakpoints from a prior adapter
// are dropped only here, never by relaunch) and an initial relaunch.
func (d *Debugger) Launch(ctx context.Context, adapter Adapter) error {
	d.mu.Lock()
	d.adapter = adapter
	d.breakpoints = NewBreakpointCollection()
	for _, filter := range d.exceptionFilters {
		d.breakpoints.SetExceptionFilterEnabled(filter, true)
	}
	d.sourceCache.Flush()
	d.mu.Unlock()
	return d.relaunch(ctx)
}

// relaunch tears down any current session, builds a fresh one, and
// drives it through initialize. Breakpoints survive; they are re-sent
// once the new session reaches running (resetAllBreakpoints, invoked
// by Run in launch mode and by handleInitialized in attach mode).
func (d *Debugger) relaunch(ctx context.Context) error {
	d.mu.Lock()
	adapter := d.adapter
	d.teardownLocked(ctx)
	d.disconnecting = false
	d.generation++
	now := d.clock.Now()
	if !d.lastRelaunchAt.IsZero() {
		d.logf("relaunching debug session (generation %d, %s since previous)", d.generation, now.Sub(d.lastRelaunchAt))
	}
	d.lastRelaunchAt = now
	d.setState(StateInitializing)
	d.mu.Unlock()

	session, err := d.newSession(ctx, adapter)
	if err != nil {
		d.fatalf(ctx, "failed to start debug adapter: %v", err)
		return wrapErr(KindAdapterRequestFailed, err, "failed to create debug session")
	}

	d.mu.Lock()
	d.session = session
	d.subscribeLocked()
	d.mu.Unlock()

	caps, err := session.Initialize(ctx, "xdbg", "xdbg")
	if err != nil {
		d.fatalf(ctx, "adapter initialize failed: %v", err)
		return wrapErr(KindAdapterRequestFailed, err, "initialize request failed")
	}

	d.mu.Lock()
	d.caps = caps
	d.hasCaps = true
	if caps.SupportsBreakpointIdOnStop {
		d.breakpoints.EnableOnceState()
	}
	if caps.SupportsFunctionBreakpoints {
		d.breakpoints.EnableFunctionBreakpoints()
	}
	d.mu.Unlock()

	var launchArgs map[string]interface{}
	action := adapter.Action()
	if action == ActionLaunch {
		launchArgs = adapter.TransformLaunchArguments(nil)
		err = session.Launch(ctx, launchArgs)
	} else {
		launchArgs = adapter.TransformAttachArguments(nil)
		err = session.Attach(ctx, launchArgs)
	}
	if err != nil {
		d.fatalf(ctx, "adapter %s failed: %v", action, err)
		return wrapErr(KindAdapterRequestFailed, err, "%s request failed", action)
	}

	return nil
}

// fatalf logs a diagnostic and terminates the host process, preserving
// legacy behavior for fatal launch/relaunch failure (spec.md §7, §9).
// It exits through the package-level fatalExit var, which tests stub out.
func (d *Debugger) fatalf(ctx context.Context, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	d.console.OutputLine(msg)
	d.logf("fatal: %s", msg)
	fatalExit(0)
}

// fatalExit exits the host process; tests stub this out.
var fatalExit = os.Exit

// CloseSession tears the current session down: sets the disconnecting
// flag (so the resulting adapter-exited event is recognized as
// self-inflicted and ignored), issues disconnect, and drops references.
func (d *Debugger) CloseSession(ctx context.Context, terminateDebuggee bool) error {
	d.mu.Lock()
	session := d.session
	d.disconnecting = true
	d.mu.Unlock()

	if session == nil {
		return nil
	}
	err := session.Disconnect(ctx, terminateDebuggee)

	d.mu.Lock()
	d.teardownLocked(ctx)
	d.setState(StateTerminated)
	d.sourceCache.Flush()
	d.mu.Unlock()

	if err != nil {
		return wrapErr(KindAdapterRequestFailed, err, "disconnect request failed")
	}
	return nil
}

// teardownLocked unsubscribes from the current session's event streams
// and clears the thread set (Thread exists only for one run). It
// deliberately does not touch disconnecting: CloseSession relies on
// that flag staying true for the rest of this generation's lifetime so
// a late adapter-exited event arriving after teardown still resolves
// as self-inflicted rather than triggering a spurious relaunch. Only
// relaunch (beginning a genuinely new generation) clears it. Caller
// must hold d.mu.
func (d *Debugger) teardownLocked(ctx context.Context) {
	for _, unsub := range d.unsub {
		unsub()
	}
	d.unsub = nil
	d.session = nil
	d.threads = NewThreadCollection()
	d.modules = NewModuleCollection()
	d.frames = make(map[int][]dap.StackFrame)
	d.readyForEvaluations = false
}

// Run issues configurationDone, moving the engine from configuring to
// running. It is a no-op error if called outside configuring.
func (d *Debugger) Run(ctx context.Context) error {
	d.mu.Lock()
	if err := d.requireState(StateConfiguring); err != nil {
		d.mu.Unlock()
		return err
	}
	session := d.session
	d.mu.Unlock()

	if err := d.sendExceptionFilters(ctx, session); err != nil {
		return err
	}
	if err := session.ConfigurationDone(ctx); err != nil {
		return wrapErr(KindAdapterRequestFailed, err, "configurationDone request failed")
	}

	d.mu.Lock()
	d.setState(StateRunning)
	d.console.StopInput()
	d.mu.Unlock()

	return d.resetAllBreakpoints(ctx)
}

func (d *Debugger) sendExceptionFilters(ctx context.Context, session DebugSession) error {
	d.mu.Lock()
	filters := d.breakpoints.ExceptionFilters()
	d.mu.Unlock()
	if err := session.SetExceptionBreakpoints(ctx, filters); err != nil {
		return wrapErr(KindAdapterRequestFailed, err, "setExceptionBreakpoints request failed")
	}
	return nil
}

// Continue resumes threadID (or, per DAP convention, possibly all
// threads if the adapter reports allThreadsContinued).
func (d *Debugger) Continue(ctx context.Context, threadID int) error {
	d.mu.Lock()
	if err := d.requireState(StateStopped); err != nil {
		d.mu.Unlock()
		return err
	}
	session := d.session
	d.mu.Unlock()

	d.console.StopInput()
	allContinued, err := session.Continue(ctx, threadID)
	if err != nil {
		return wrapErr(KindAdapterRequestFailed, err, "continue request failed")
	}

	d.mu.Lock()
	if allContinued {
		d.threads.MarkAllThreadsRunning()
	} else {
		d.threads.MarkThreadRunning(threadID)
	}
	if d.threads.AllThreadsRunning() {
		d.setState(StateRunning)
	}
	d.mu.Unlock()
	return nil
}

func (d *Debugger) step(ctx context.Context, threadID int, do func(context.Context, int) error) error {
	d.mu.Lock()
	if err := d.requireState(StateStopped); err != nil {
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()

	d.console.StopInput()
	if err := do(ctx, threadID); err != nil {
		return wrapErr(KindAdapterRequestFailed, err, "step request failed")
	}

	d.mu.Lock()
	d.threads.MarkThreadRunning(threadID)
	if d.threads.AllThreadsRunning() {
		d.setState(StateRunning)
	}
	d.mu.Unlock()
	return nil
}

// Next steps over the current line.
func (d *Debugger) Next(ctx context.Context, threadID int) error {
	d.mu.Lock()
	session := d.session
	d.mu.Unlock()
	return d.step(ctx, threadID, session.Next)
}

// StepIn steps into a call on the current line.
func (d *Debugger) StepIn(ctx context.Context, threadID int) error {
	d.mu.Lock()
	session := d.session
	d.mu.Unlock()
	return d.step(ctx, threadID, session.StepIn)
}

// StepOut steps out of the current function.
func (d *Debugger) StepOut(ctx context.Context, threadID int) error {
	d.mu.Lock()
	session := d.session
	d.mu.Unlock()
	return d.step(ctx, threadID, session.StepOut)
}

// Pause requests a break-in on threadID. Permitted in running state
// only (a stopped program is already paused).
func (d *Debugger) Pause(ctx context.Context, threadID int) error {
	d.mu.Lock()
	if err := d.requireState(StateRunning); err != nil {
		d.mu.Unlock()
		return err
	}
	session := d.session
	d.mu.Unlock()

	if err := session.Pause(ctx, threadID); err != nil {
		return wrapErr(KindAdapterRequestFailed, err, "pause request failed")
	}
	return nil
}

// AllThreads returns every known thread in ascending id order.
func (d *Debugger) AllThreads() []*Thread {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threads.AllThreads()
}

// FocusThread returns the currently focused thread, or nil.
func (d *Debugger) FocusThread() *Thread {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threads.FocusThread()
}

// SetFocusThread sets the focus thread explicitly (e.g. a "thread N"
// command). Fails with NotFound if id is unknown.
func (d *Debugger) SetFocusThread(id int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.threads.GetThreadByID(id) == nil {
		return newErr(KindNotFound, "no thread with id %d", id)
	}
	d.threads.SetFocusThread(id)
	return nil
}

var _ DebuggerInterface = (*Debugger)(nil)
