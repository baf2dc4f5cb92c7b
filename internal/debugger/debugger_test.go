package debugger

import (
	"context"
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDebugger(t *testing.T, sessions ...*fakeSession) (*Debugger, *fakeConsole) {
	t.Helper()
	console := newFakeConsole()
	eng := New(sessionFactory(sessions...), console, nil)
	return eng, console
}

// stubFatalExit replaces the package-level fatalExit hook for the
// duration of one test, recording whether it fired instead of exiting
// the test process.
func stubFatalExit(t *testing.T) *bool {
	t.Helper()
	called := false
	orig := fatalExit
	fatalExit = func(code int) { called = true }
	t.Cleanup(func() { fatalExit = orig })
	return &called
}

func TestLaunchReachesRunningAndStopsAtBreakpoint(t *testing.T) {
	sess := newFakeSession()
	eng, console := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionLaunch}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	assert.Equal(t, StateInitializing, eng.State())

	sess.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return eng.State() == StateConfiguring }, testTimeout))

	// Launch starts a fresh breakpoint collection, so breakpoints are
	// added once the session exists.
	idx, err := eng.SetSourceBreakpoint(context.Background(), "/prog/main.go", 10, false)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	require.NoError(t, eng.Run(context.Background()))
	require.True(t, waitFor(func() bool { return eng.State() == StateRunning }, testTimeout))

	bp, err := eng.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	assert.True(t, bp.Verified)
	assert.Equal(t, "/prog/main.go", bp.Path)

	sess.stopCh <- &dap.StoppedEvent{Body: dap.StoppedEventBody{Reason: "breakpoint", ThreadId: 1, AllThreadsStopped: true}}
	require.True(t, waitFor(func() bool { return eng.State() == StateStopped }, testTimeout))

	focus := eng.FocusThread()
	require.NotNil(t, focus)
	assert.Equal(t, 1, focus.ID())
	assert.True(t, console.InputOn())
	assert.Contains(t, console.Lines(), "stopped (thread 1): breakpoint")
}

func TestOnceBreakpointAutoDisablesOnMatchingStop(t *testing.T) {
	const adapterID = 99
	sess := newFakeSession()
	sess.initializeCaps = Capabilities{SupportsBreakpointIdOnStop: true}
	sess.setBreakpointsFunc = func(source dap.Source, breakpoints []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
		out := make([]dap.Breakpoint, len(breakpoints))
		for i, b := range breakpoints {
			out[i] = dap.Breakpoint{Id: adapterID, Verified: true, Line: b.Line, Source: &source}
		}
		return out, nil
	}
	eng, _ := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionLaunch}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return eng.State() == StateConfiguring }, testTimeout))

	// Added only once the adapter's capabilities (fetched during
	// initialize, ahead of this point) are known, so it actually
	// qualifies for BreakpointOnce rather than being downgraded.
	idx, err := eng.SetSourceBreakpoint(context.Background(), "/prog/main.go", 42, true)
	require.NoError(t, err)

	require.NoError(t, eng.Run(context.Background()))
	require.True(t, waitFor(func() bool { return eng.State() == StateRunning }, testTimeout))

	bp, err := eng.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	require.Equal(t, BreakpointOnce, bp.State)

	sess.stopCh <- &dap.StoppedEvent{Body: dap.StoppedEventBody{
		Reason: "breakpoint", ThreadId: 1, AllThreadsStopped: true,
		HitBreakpointIds: []int{adapterID},
	}}
	require.True(t, waitFor(func() bool { return eng.State() == StateStopped }, testTimeout))

	require.True(t, waitFor(func() bool {
		bp, err := eng.GetBreakpointByIndex(idx)
		return err == nil && bp.State == BreakpointDisabled
	}, testTimeout))
}

// TestToggleBreakpointRollsBackVerifiedOnAdapterFailure covers the
// rollback path resendBreakpointsForPath documents: a batch send that
// fails must not let its positionally-paired response corrupt the
// verified/message fields of breakpoints already in the batch, and the
// toggled breakpoint itself goes back to the state it had before the
// failed toggle.
func TestToggleBreakpointRollsBackVerifiedOnAdapterFailure(t *testing.T) {
	sess := newFakeSession()
	eng, _ := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionLaunch}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return eng.State() == StateConfiguring }, testTimeout))

	keepIdx, err := eng.SetSourceBreakpoint(context.Background(), "/prog/main.go", 7, false)
	require.NoError(t, err)
	toggleIdx, err := eng.SetSourceBreakpoint(context.Background(), "/prog/main.go", 9, false)
	require.NoError(t, err)
	require.NoError(t, eng.SetBreakpointEnabled(context.Background(), toggleIdx, false))

	require.NoError(t, eng.Run(context.Background()))
	require.True(t, waitFor(func() bool { return eng.State() == StateRunning }, testTimeout))

	keepBefore, err := eng.GetBreakpointByIndex(keepIdx)
	require.NoError(t, err)
	require.True(t, keepBefore.Verified, "the default fake session echoes every sent breakpoint back verified")

	sess.setBreakpointsFunc = func(dap.Source, []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
		return nil, assertAnError
	}

	err = eng.ToggleBreakpoint(context.Background(), toggleIdx)
	require.Error(t, err)
	assert.True(t, Is(err, KindAdapterRequestFailed))

	keepAfter, err := eng.GetBreakpointByIndex(keepIdx)
	require.NoError(t, err)
	assert.True(t, keepAfter.Verified, "a failed resend must not corrupt an unrelated breakpoint's already-confirmed verified state")

	toggled, err := eng.GetBreakpointByIndex(toggleIdx)
	require.NoError(t, err)
	assert.Equal(t, BreakpointDisabled, toggled.State, "a failed toggle leaves the breakpoint in its prior state")
}

var assertAnError = &Error{Kind: KindInternal, Message: "synthetic adapter failure for test"}

func TestFunctionBreakpointResolvesSourceLocation(t *testing.T) {
	sess := newFakeSession()
	sess.initializeCaps = Capabilities{Capabilities: dap.Capabilities{SupportsFunctionBreakpoints: true}}
	sess.setFunctionBreakpointsFunc = func(bps []dap.FunctionBreakpoint) ([]dap.Breakpoint, error) {
		out := make([]dap.Breakpoint, len(bps))
		for i, b := range bps {
			out[i] = dap.Breakpoint{Verified: true, Source: &dap.Source{Path: "/prog/handler.go"}, Line: 55}
			_ = b
		}
		return out, nil
	}
	eng, _ := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionLaunch}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return eng.State() == StateConfiguring }, testTimeout))
	require.NoError(t, eng.Run(context.Background()))
	require.True(t, waitFor(func() bool { return eng.State() == StateRunning }, testTimeout))

	idx, err := eng.SetFunctionBreakpoint(context.Background(), "handleRequest", false)
	require.NoError(t, err)

	bp, err := eng.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	assert.Equal(t, "/prog/handler.go", bp.Path)
	assert.Equal(t, 55, bp.Line)
	assert.True(t, bp.Verified)
}

func TestAttachModeAutoStopsOnHintedThread(t *testing.T) {
	sess := newFakeSession()
	sess.threadsFunc = func() ([]dap.Thread, error) {
		return []dap.Thread{{Id: 1, Name: "main"}, {Id: 2, Name: "worker"}}, nil
	}
	eng, console := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionAttach, asyncStopThread: 2, hasAsyncStop: true}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}

	require.True(t, waitFor(func() bool { return len(sess.pauseCalls) > 0 }, testTimeout))
	assert.Equal(t, []int{2}, sess.pauseCalls)
	require.True(t, waitFor(func() bool { return eng.FocusThread() != nil || len(eng.AllThreads()) == 2 }, testTimeout))
	assert.Len(t, eng.AllThreads(), 2)
	_ = console
}

func TestAttachModeFallsBackToFirstThreadWithoutHint(t *testing.T) {
	sess := newFakeSession()
	sess.threadsFunc = func() ([]dap.Thread, error) {
		return []dap.Thread{{Id: 9, Name: "only"}}, nil
	}
	eng, console := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionAttach}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}

	require.True(t, waitFor(func() bool { return len(sess.pauseCalls) > 0 }, testTimeout))
	assert.Equal(t, []int{9}, sess.pauseCalls)
	_ = console
}

func TestAttachModeStartsInputWhenNoThreadToPause(t *testing.T) {
	sess := newFakeSession()
	sess.threadsFunc = func() ([]dap.Thread, error) { return nil, nil }
	eng, console := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionAttach}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}

	require.True(t, waitFor(func() bool { return console.InputOn() }, testTimeout))
	assert.Empty(t, sess.pauseCalls)
}

func TestLaunchModeAutoRelaunchesOnTerminatedAndResendsBreakpoints(t *testing.T) {
	sess1 := newFakeSession()
	sess2 := newFakeSession()
	eng, console := newTestDebugger(t, sess1, sess2)
	adapter := &fakeAdapter{name: "test", action: ActionLaunch}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess1.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return eng.State() == StateConfiguring }, testTimeout))

	idx, err := eng.SetSourceBreakpoint(context.Background(), "/prog/main.go", 3, false)
	require.NoError(t, err)

	require.NoError(t, eng.Run(context.Background()))
	require.True(t, waitFor(func() bool { return eng.State() == StateRunning }, testTimeout))

	var gotBatch []dap.SourceBreakpoint
	sess2.setBreakpointsFunc = func(src dap.Source, bps []dap.SourceBreakpoint) ([]dap.Breakpoint, error) {
		gotBatch = bps
		out := make([]dap.Breakpoint, len(bps))
		for i, b := range bps {
			out[i] = dap.Breakpoint{Verified: true, Line: b.Line, Source: &src}
		}
		return out, nil
	}

	sess1.termCh <- &dap.TerminatedEvent{}

	require.True(t, waitFor(func() bool { return eng.State() == StateInitializing }, testTimeout))
	require.Contains(t, console.Lines(), "debug session terminated")
	require.Contains(t, console.Lines(), "relaunching debug adapter...")

	sess2.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return eng.State() == StateConfiguring }, testTimeout))
	require.NoError(t, eng.Run(context.Background()))
	require.True(t, waitFor(func() bool { return eng.State() == StateRunning }, testTimeout))

	require.True(t, waitFor(func() bool { return gotBatch != nil }, testTimeout))
	require.Len(t, gotBatch, 1)
	assert.Equal(t, 3, gotBatch[0].Line)

	bp, err := eng.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	assert.True(t, bp.Verified)
}

func TestAttachModeTerminationSignalsExitInsteadOfRelaunching(t *testing.T) {
	sess := newFakeSession()
	sess.threadsFunc = func() ([]dap.Thread, error) { return nil, nil }
	eng, console := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionAttach}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return console.InputOn() }, testTimeout))

	sess.termCh <- &dap.TerminatedEvent{}

	require.True(t, waitFor(func() bool {
		select {
		case <-eng.ExitRequested():
			return true
		default:
			return false
		}
	}, testTimeout), "ExitRequested channel was never closed after attach-mode termination")
	assert.Equal(t, StateTerminated, eng.State())
}

func TestSelfInflictedCloseSessionDoesNotTriggerRelaunch(t *testing.T) {
	sess := newFakeSession()
	eng, _ := newTestDebugger(t, sess)
	adapter := &fakeAdapter{name: "test", action: ActionLaunch}

	require.NoError(t, eng.Launch(context.Background(), adapter))
	sess.initCh <- &dap.InitializedEvent{}
	require.True(t, waitFor(func() bool { return eng.State() == StateConfiguring }, testTimeout))

	require.NoError(t, eng.CloseSession(context.Background(), true))
	assert.Equal(t, StateTerminated, eng.State())

	sess.termCh <- &dap.TerminatedEvent{}
	assert.False(t, waitFor(func() bool { return eng.State() == StateInitializing }, 200_000_000))
	assert.Equal(t, StateTerminated, eng.State())
}

func TestRelaunchFailureInvokesFatalExit(t *testing.T) {
	called := stubFatalExit(t)
	eng, _ := newTestDebugger(t)
	adapter := &fakeAdapter{name: "test", action: ActionLaunch}

	err := eng.Launch(context.Background(), adapter)
	require.Error(t, err)
	assert.True(t, Is(err, KindAdapterRequestFailed))
	assert.True(t, *called)
}
