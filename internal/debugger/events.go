package debugger

import (
	"context"
	"fmt"

	"github.com/google/go-dap"
)

// subscribeLocked subscribes to every event stream of d.session and
// starts the single pump goroutine that handles them all. Caller must
// hold d.mu; the pump takes the lock itself per event, so no handler
// runs until the caller releases it.
func (d *Debugger) subscribeLocked() {
	session := d.session
	ctx := context.Background()

	initCh, initUnsub := session.ObserveInitializeEvents()
	outCh, outUnsub := session.ObserveOutputEvents()
	contCh, contUnsub := session.ObserveContinuedEvents()
	stopCh, stopUnsub := session.ObserveStopEvents()
	threadCh, threadUnsub := session.ObserveThreadEvents()
	exitCh, exitUnsub := session.ObserveExitedDebugeeEvents()
	termCh, termUnsub := session.ObserveTerminateDebugeeEvents()
	adapterExitCh, adapterExitUnsub := session.ObserveAdapterExitedEvents()
	bpCh, bpUnsub := session.ObserveBreakpointEvents()
	modCh, modUnsub := session.ObserveModuleEvents()
	customCh, customUnsub := session.ObserveCustomEvents()

	d.unsub = []func(){
		initUnsub, outUnsub, contUnsub, stopUnsub, threadUnsub,
		exitUnsub, termUnsub, adapterExitUnsub, bpUnsub, modUnsub, customUnsub,
	}

	generation := d.generation
	go d.pump(generation, initCh, outCh, contCh, stopCh, threadCh, exitCh, termCh, adapterExitCh, bpCh, modCh, customCh, ctx)
}

// pump is the session's single event-handling goroutine: it selects
// over every observed channel and is the only mutator of Debugger state
// besides the REPL-driven command methods above, which also take d.mu.
// generation lets a handler recognize and discard events that arrive
// from a session that has since been superseded by a relaunch.
func (d *Debugger) pump(
	generation int,
	initCh <-chan *dap.InitializedEvent,
	outCh <-chan *dap.OutputEvent,
	contCh <-chan *dap.ContinuedEvent,
	stopCh <-chan *dap.StoppedEvent,
	threadCh <-chan *dap.ThreadEvent,
	exitCh <-chan *dap.ExitedEvent,
	termCh <-chan *dap.TerminatedEvent,
	adapterExitCh <-chan *AdapterExitedEvent,
	bpCh <-chan *dap.BreakpointEvent,
	modCh <-chan *dap.ModuleEvent,
	customCh <-chan *dap.Event,
	ctx context.Context,
) {
	for {
		select {
		case e, ok := <-initCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "initialized", func() { d.handleInitialized(ctx) })
			_ = e
		case e, ok := <-outCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "output", func() { d.handleOutput(e) })
		case e, ok := <-contCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "continued", func() { d.handleContinued(e) })
		case e, ok := <-stopCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "stopped", func() { d.handleStopped(ctx, e) })
		case e, ok := <-threadCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "thread", func() { d.handleThreadEvent(e) })
		case e, ok := <-exitCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "exited", func() { d.handleExited(e) })
		case e, ok := <-termCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "terminated", func() { d.handleTerminated(ctx, e) })
		case e, ok := <-adapterExitCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "adapter-exited", func() { d.handleAdapterExited(ctx, e) })
		case e, ok := <-bpCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "breakpoint", func() { d.handleBreakpointEvent(e) })
		case e, ok := <-modCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "module", func() { d.handleModuleEvent(e) })
		case e, ok := <-customCh:
			if !ok {
				return
			}
			d.safeHandle(generation, "custom", func() { d.handleCustomEvent(e) })
		}
	}
}

// safeHandle discards events from a stale generation (the session has
// since been replaced by a relaunch) and recovers a panicking handler,
// logging it rather than letting it take the whole process down: per
// design, event-handler failures are never propagated into the loop.
func (d *Debugger) safeHandle(generation int, kind string, fn func()) {
	d.mu.Lock()
	stale := generation != d.generation
	d.mu.Unlock()
	if stale {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logf("recovered from panic handling %s event: %v", kind, r)
		}
	}()
	fn()
}

// handleInitialized arrives once initialize completes and tells the
// engine it may start sending setBreakpoints/configurationDone. Attach
// mode has no configuring phase of its own (spec §5's attach shortcut);
// it re-sends breakpoints immediately and moves straight to running,
// optionally auto-pausing the adapter's hinted thread.
func (d *Debugger) handleInitialized(ctx context.Context) {
	d.mu.Lock()
	adapter := d.adapter
	d.mu.Unlock()

	if adapter != nil && adapter.Action() == ActionAttach {
		_ = d.resetAllBreakpoints(ctx)

		d.mu.Lock()
		session := d.session
		d.mu.Unlock()
		var threadList []dap.Thread
		if session != nil {
			threadList, _ = session.Threads(ctx)
		}

		d.mu.Lock()
		ids := make([]int, len(threadList))
		names := make([]string, len(threadList))
		for i, th := range threadList {
			ids[i] = th.Id
			names[i] = th.Name
		}
		d.threads.UpdateThreads(ids, names)
		d.setState(StateRunning)
		d.mu.Unlock()

		// Per spec.md §4.F.1: asyncStopThread hint, else the first thread
		// in the adapter's thread list, else no pause at all.
		stopThread, ok := adapter.AsyncStopThread()
		if !ok && len(threadList) > 0 {
			stopThread, ok = threadList[0].Id, true
		}
		if ok {
			_ = d.Pause(ctx, stopThread)
		} else {
			d.console.StartInput()
		}
		return
	}

	d.mu.Lock()
	d.setState(StateConfiguring)
	ready := d.readyForEvaluations
	if ready {
		d.console.StartInput()
	}
	d.mu.Unlock()
}

// handleOutput forwards debuggee output to the console, unless its
// category is muted.
func (d *Debugger) handleOutput(e *dap.OutputEvent) {
	d.mu.Lock()
	muted := d.muteOutputCategories[e.Body.Category]
	d.mu.Unlock()
	if muted {
		return
	}
	d.console.Output(e.Body.Output)
}

// handleContinued marks the resumed thread(s) running. Adapters are not
// required to send this for a continue the engine itself issued; it
// exists for spontaneous resumes the engine did not initiate.
func (d *Debugger) handleContinued(e *dap.ContinuedEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.Body.AllThreadsContinued {
		d.threads.MarkAllThreadsRunning()
	} else {
		d.threads.MarkThreadRunning(e.Body.ThreadId)
	}
	if d.threads.AllThreadsRunning() {
		d.setState(StateRunning)
	}
}

// handleStopped is the central stop handler: marks thread(s) stopped,
// picks a focus thread, disables any once-breakpoint that caused the
// stop, prints a stop banner, and invokes every registered StoppedHook.
func (d *Debugger) handleStopped(ctx context.Context, e *dap.StoppedEvent) {
	d.mu.Lock()
	if e.Body.ThreadId != 0 && d.threads.GetThreadByID(e.Body.ThreadId) == nil {
		d.threads.AddThread(e.Body.ThreadId, "")
	}
	if e.Body.AllThreadsStopped {
		d.threads.MarkAllThreadsStopped()
	} else if e.Body.ThreadId != 0 {
		d.threads.MarkThreadStopped(e.Body.ThreadId)
	}

	focus := e.Body.ThreadId
	if focus == 0 {
		if t := d.threads.FirstStoppedThread(); t != nil {
			focus = t.ID()
		}
	}
	if focus != 0 {
		d.threads.SetFocusThread(focus)
	}
	d.setState(StateStopped)
	reason := e.Body.Reason
	description := e.Body.Description
	d.mu.Unlock()

	d.disableOnceBreakpointIfMatched(ctx, e)

	d.console.OutputLine(stopBanner(reason, description, focus))
	d.console.StartInput()

	d.mu.Lock()
	commands := append([]Command(nil), d.commands...)
	d.mu.Unlock()
	for _, c := range commands {
		if hook, ok := c.(StoppedHook); ok {
			hook.OnStopped(d, d.console)
		}
	}
}

func stopBanner(reason, description string, threadID int) string {
	if description != "" {
		return fmt.Sprintf("stopped (thread %d): %s — %s", threadID, reason, description)
	}
	return fmt.Sprintf("stopped (thread %d): %s", threadID, reason)
}

// disableOnceBreakpointIfMatched locates the once-breakpoint(s) that
// caused a "breakpoint" stop via the adapter-supplied HitBreakpointIds
// (spec.md §4.F.4: "on every stop event carrying a breakpointId") and
// disables them, resending each affected batch.
func (d *Debugger) disableOnceBreakpointIfMatched(ctx context.Context, e *dap.StoppedEvent) {
	d.mu.Lock()
	supported := d.hasCaps && d.caps.SupportsBreakpointIdOnStop
	d.mu.Unlock()
	if !supported || e.Body.Reason != "breakpoint" || len(e.Body.HitBreakpointIds) == 0 {
		return
	}

	type affected struct {
		kind BreakpointKind
		path string
	}
	seen := make(map[affected]bool)
	var batches []affected

	d.mu.Lock()
	for _, id := range e.Body.HitBreakpointIds {
		bp, err := d.breakpoints.GetBreakpointByID(id)
		if err != nil || bp.State != BreakpointOnce {
			continue
		}
		bp.State = BreakpointDisabled
		a := affected{kind: bp.Kind, path: bp.Path}
		if !seen[a] {
			seen[a] = true
			batches = append(batches, a)
		}
	}
	d.mu.Unlock()

	for _, a := range batches {
		_ = d.resendKind(ctx, a.kind, a.path)
	}
}

// handleThreadEvent adds or removes a thread as it starts or exits.
func (d *Debugger) handleThreadEvent(e *dap.ThreadEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch e.Body.Reason {
	case "started":
		if d.threads.GetThreadByID(e.Body.ThreadId) == nil {
			d.threads.AddThread(e.Body.ThreadId, "")
		}
	case "exited":
		d.threads.RemoveThread(e.Body.ThreadId)
	}
}

// handleExited reports the debuggee process exit code. A DAP adapter
// always follows exited with terminated once it is done tearing the
// session down; handleTerminated is what actually drives the
// terminated-state transition and the launch-mode auto-relaunch, so
// that transition never fires twice for the same exit.
func (d *Debugger) handleExited(e *dap.ExitedEvent) {
	d.console.OutputLine(fmt.Sprintf("debuggee exited with code %d", e.Body.ExitCode))
}

// handleTerminated ends the debug session: the adapter-formal signal
// that the DAP conversation is over (dap.ExitedEvent, handled above,
// only ever reports the debuggee's exit code alongside it). Per spec.md
// §4.F.7, launch mode auto-relaunches with the REPL reopened; attach
// mode signals the host to exit instead. A self-inflicted terminate
// (disconnecting already set, i.e. our own CloseSession) is a no-op.
func (d *Debugger) handleTerminated(ctx context.Context, e *dap.TerminatedEvent) {
	d.finishGeneration(ctx, "debug session terminated")
}

// handleAdapterExited reacts to the adapter process itself dying
// unexpectedly (as distinct from a clean DAP terminated handshake).
// Same terminal handling as handleTerminated, with a message reflecting
// the process-level nature of the event.
func (d *Debugger) handleAdapterExited(ctx context.Context, e *AdapterExitedEvent) {
	var msg string
	if e.Err != nil {
		msg = fmt.Sprintf("debug adapter exited unexpectedly: %v", e.Err)
	} else {
		msg = fmt.Sprintf("debug adapter exited (code %d)", e.ExitCode)
	}
	d.finishGeneration(ctx, msg)
}

// finishGeneration is the shared tail of handleTerminated and
// handleAdapterExited: transition to terminated, print message, and
// either auto-relaunch (launch mode) or signal the host to exit (attach
// mode). disconnecting guards against reacting to our own teardown.
func (d *Debugger) finishGeneration(ctx context.Context, message string) {
	d.mu.Lock()
	if d.disconnecting {
		d.mu.Unlock()
		return
	}
	adapter := d.adapter
	d.setState(StateTerminated)
	d.console.StopInput()
	d.mu.Unlock()

	d.console.OutputLine(message)

	if adapter == nil {
		return
	}
	if adapter.Action() == ActionAttach {
		d.requestExit()
		return
	}

	d.console.StartInput()
	d.console.OutputLine("relaunching debug adapter...")
	if err := d.relaunch(ctx); err != nil {
		d.console.OutputLine(fmt.Sprintf("relaunch failed: %v", err))
	}
}

// handleBreakpointEvent reconciles an out-of-band breakpoint change
// (e.g. the adapter resolving a pending location after a module loads)
// by id, never by index: ids are volatile and exist only to correlate
// this event back to the Breakpoint that owns them.
func (d *Debugger) handleBreakpointEvent(e *dap.BreakpointEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.Body.Breakpoint.Id == 0 {
		return
	}
	bp, err := d.breakpoints.GetBreakpointByID(e.Body.Breakpoint.Id)
	if err != nil {
		return
	}
	switch e.Body.Reason {
	case "removed":
		d.breakpoints.DeleteBreakpoint(bp.Index)
	default:
		applyBreakpointResponse(bp, e.Body.Breakpoint)
		if e.Body.Breakpoint.Source.Path != "" {
			d.breakpoints.SetPathAndFile(bp.Index, e.Body.Breakpoint.Source.Path, e.Body.Breakpoint.Line)
		}
	}
}

// handleModuleEvent keeps ModuleCollection in sync with the adapter's
// module list, for display by a "modules" command.
func (d *Debugger) handleModuleEvent(e *dap.ModuleEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e.Body.Reason == "removed" {
		d.modules.remove(e.Body.Module.Id)
		return
	}
	d.modules.upsert(e.Body.Module)
}

// handleCustomEvent watches for the "readyForEvaluations" custom event
// some adapters send once the debuggee is actually ready to evaluate
// expressions against, rather than assuming readiness the instant a
// stop occurs. Other custom events are ignored.
func (d *Debugger) handleCustomEvent(e *dap.Event) {
	if e.Event != "readyForEvaluations" {
		return
	}
	d.mu.Lock()
	d.readyForEvaluations = true
	shouldStart := d.state == StateConfiguring
	d.mu.Unlock()
	if shouldStart {
		d.console.StartInput()
	}
}
