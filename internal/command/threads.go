package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// ThreadsCmd lists every known thread, or with an argument, makes that
// thread the focus thread.
type ThreadsCmd struct{}

func (c *ThreadsCmd) Name() string { return "threads" }

func (c *ThreadsCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	if len(args) == 1 {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			console.OutputLine("usage: threads [id]")
			return nil
		}
		if err := d.SetFocusThread(id); err != nil {
			return err
		}
		console.OutputLine(fmt.Sprintf("focus thread set to %d", id))
		return nil
	}

	focus := d.FocusThread()
	all := d.AllThreads()
	rows := make([][]string, 0, len(all))
	for _, t := range all {
		marker := ""
		if focus != nil && focus.ID() == t.ID() {
			marker = "*"
		}
		state := "running"
		if t.IsStopped() {
			state = "stopped"
		}
		rows = append(rows, []string{marker, strconv.Itoa(t.ID()), t.Name(), state})
	}
	console.Output(renderTable([]string{"", "ID", "Name", "State"}, rows))
	return nil
}

// FrameCmd selects which stack frame of the focused thread subsequent
// print/locals commands read from, or with no argument, prints the
// currently selected frame.
type FrameCmd struct{}

func (c *FrameCmd) Name() string { return "frame" }
func (c *FrameCmd) Aliases() []string { return []string{"f"} }

func (c *FrameCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	focus := d.FocusThread()
	if focus == nil {
		return &debugger.Error{Kind: debugger.KindNotStopped, Message: "no focused thread"}
	}

	if len(args) == 1 {
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			console.OutputLine("usage: frame [index]")
			return nil
		}
		if err := d.SetSelectedStackFrame(focus.ID(), idx); err != nil {
			return err
		}
	}

	frame, err := d.GetCurrentStackFrame()
	if err != nil {
		return err
	}
	console.OutputLine(fmt.Sprintf("#%d  %s at %s:%d", focus.SelectedStackFrame(), frame.Name, frame.Source.Path, frame.Line))
	return nil
}

// BacktraceCmd prints the full stack trace of the focused thread.
type BacktraceCmd struct{}

func (c *BacktraceCmd) Name() string      { return "backtrace" }
func (c *BacktraceCmd) Aliases() []string { return []string{"bt", "where"} }

func (c *BacktraceCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	focus := d.FocusThread()
	if focus == nil {
		return &debugger.Error{Kind: debugger.KindNotStopped, Message: "no focused thread"}
	}
	frames, err := d.GetStackTrace(ctx, focus.ID(), 0)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(frames))
	for i, frame := range frames {
		marker := ""
		if i == focus.SelectedStackFrame() {
			marker = "*"
		}
		rows = append(rows, []string{marker, strconv.Itoa(i), frame.Name, fmt.Sprintf("%s:%d", frame.Source.Path, frame.Line)})
	}
	console.Output(renderTable([]string{"", "#", "Function", "Location"}, rows))
	return nil
}
