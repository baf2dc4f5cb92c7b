package command

import (
	"context"
	"sync"

	"github.com/vburojevic/xdbg/internal/debugger"
)

func focusedThreadOrArg(d debugger.DebuggerInterface, args []string) (int, bool) {
	if len(args) > 0 {
		if id, err := parseThreadArg(args[0]); err == nil {
			return id, true
		}
	}
	if t := d.FocusThread(); t != nil {
		return t.ID(), true
	}
	return 0, false
}

// ContinueCmd resumes the focused (or named) thread.
type ContinueCmd struct{}

func (c *ContinueCmd) Name() string      { return "continue" }
func (c *ContinueCmd) Aliases() []string { return []string{"c", "cont"} }

func (c *ContinueCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	id, ok := focusedThreadOrArg(d, args)
	if !ok {
		console.OutputLine("no thread to continue")
		return nil
	}
	return d.Continue(ctx, id)
}

// NextCmd steps over the current line on the focused (or named) thread.
type NextCmd struct{}

func (c *NextCmd) Name() string      { return "next" }
func (c *NextCmd) Aliases() []string { return []string{"n"} }

func (c *NextCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	id, ok := focusedThreadOrArg(d, args)
	if !ok {
		console.OutputLine("no thread to step")
		return nil
	}
	return d.Next(ctx, id)
}

// StepCmd steps into a call on the current line of the focused (or
// named) thread.
type StepCmd struct{}

func (c *StepCmd) Name() string      { return "step" }
func (c *StepCmd) Aliases() []string { return []string{"s"} }

func (c *StepCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	id, ok := focusedThreadOrArg(d, args)
	if !ok {
		console.OutputLine("no thread to step")
		return nil
	}
	return d.StepIn(ctx, id)
}

// StepOutCmd steps out of the current function on the focused (or
// named) thread.
type StepOutCmd struct{}

func (c *StepOutCmd) Name() string      { return "stepout" }
func (c *StepOutCmd) Aliases() []string { return []string{"finish"} }

func (c *StepOutCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	id, ok := focusedThreadOrArg(d, args)
	if !ok {
		console.OutputLine("no thread to step out of")
		return nil
	}
	return d.StepOut(ctx, id)
}

// PauseCmd requests a break-in on the focused (or named) thread.
type PauseCmd struct{}

func (c *PauseCmd) Name() string { return "pause" }

func (c *PauseCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	id, ok := focusedThreadOrArg(d, args)
	if !ok {
		console.OutputLine("no thread to pause")
		return nil
	}
	return d.Pause(ctx, id)
}

// RunCmd issues configurationDone, moving the engine out of configuring.
type RunCmd struct{}

func (c *RunCmd) Name() string { return "run" }

func (c *RunCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	return d.Run(ctx)
}

// QuitCmd tears down the active session and signals the host to exit.
// The actual process exit is the CLI entrypoint's job (spec.md §1 keeps
// process-exit orchestration external to the engine); QuitCmd only
// disconnects and marks itself done, which closes the Done() channel.
type QuitCmd struct {
	done      chan struct{}
	closeOnce sync.Once
}

func (c *QuitCmd) Name() string      { return "quit" }
func (c *QuitCmd) Aliases() []string { return []string{"q", "exit"} }

func (c *QuitCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	defer c.signal()
	if d.State() == debugger.StateTerminated {
		return nil
	}
	return d.CloseSession(ctx, true)
}

func (c *QuitCmd) signal() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Requested reports whether quit has been invoked.
func (c *QuitCmd) Requested() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once quit has been invoked, so the
// CLI's read loop can block on it instead of polling.
func (c *QuitCmd) Done() <-chan struct{} { return c.done }
