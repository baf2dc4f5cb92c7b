package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// DeleteCmd deletes one breakpoint by index, or every breakpoint if no
// index is given.
type DeleteCmd struct{}

func (c *DeleteCmd) Name() string      { return "delete" }
func (c *DeleteCmd) Aliases() []string { return []string{"d"} }

func (c *DeleteCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	if len(args) == 0 {
		if err := d.DeleteAllBreakpoints(ctx); err != nil {
			return err
		}
		console.OutputLine("all breakpoints deleted")
		return nil
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		console.OutputLine("usage: delete [index]")
		return nil
	}
	if err := d.DeleteBreakpoint(ctx, idx); err != nil {
		return err
	}
	console.OutputLine(fmt.Sprintf("breakpoint %d deleted", idx))
	return nil
}

// EnableCmd enables one breakpoint by index, or every breakpoint if no
// index is given.
type EnableCmd struct{}

func (c *EnableCmd) Name() string { return "enable" }

func (c *EnableCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	return setEnabled(ctx, d, console, args, true)
}

// DisableCmd disables one breakpoint by index, or every breakpoint if
// no index is given.
type DisableCmd struct{}

func (c *DisableCmd) Name() string { return "disable" }

func (c *DisableCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	return setEnabled(ctx, d, console, args, false)
}

func setEnabled(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string, enabled bool) error {
	verb := "disabled"
	if enabled {
		verb = "enabled"
	}
	if len(args) == 0 {
		if err := d.SetAllBreakpointsEnabled(ctx, enabled); err != nil {
			return err
		}
		console.OutputLine(fmt.Sprintf("all breakpoints %s", verb))
		return nil
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		console.OutputLine("usage: enable|disable [index]")
		return nil
	}
	if err := d.SetBreakpointEnabled(ctx, idx, enabled); err != nil {
		return err
	}
	console.OutputLine(fmt.Sprintf("breakpoint %d %s", idx, verb))
	return nil
}

// ToggleCmd flips one breakpoint's enabled state, or every breakpoint's
// if no index is given.
type ToggleCmd struct{}

func (c *ToggleCmd) Name() string { return "toggle" }

func (c *ToggleCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	if len(args) == 0 {
		if err := d.ToggleAllBreakpoints(ctx); err != nil {
			return err
		}
		console.OutputLine("all breakpoints toggled")
		return nil
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		console.OutputLine("usage: toggle [index]")
		return nil
	}
	if err := d.ToggleBreakpoint(ctx, idx); err != nil {
		return err
	}
	console.OutputLine(fmt.Sprintf("breakpoint %d toggled", idx))
	return nil
}

// BreakpointsCmd lists every registered breakpoint.
type BreakpointsCmd struct{}

func (c *BreakpointsCmd) Name() string      { return "breakpoints" }
func (c *BreakpointsCmd) Aliases() []string { return []string{"info-breakpoints"} }

func (c *BreakpointsCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	all := d.GetAllBreakpoints()
	if len(all) == 0 {
		console.OutputLine("no breakpoints")
		return nil
	}
	rows := make([][]string, 0, len(all))
	for _, bp := range all {
		rows = append(rows, breakpointRow(bp))
	}
	console.Output(renderTable([]string{"#", "Location", "State", "Verified"}, rows))
	return nil
}

func breakpointRow(bp *debugger.Breakpoint) []string {
	loc := fmt.Sprintf("%s:%d", bp.Path, bp.Line)
	if bp.Kind == debugger.BreakpointKindFunction {
		loc = bp.FunctionName
		if bp.Path != "" {
			loc = fmt.Sprintf("%s (%s:%d)", bp.FunctionName, bp.Path, bp.Line)
		}
	}
	verified := "no"
	if bp.Verified {
		verified = "yes"
	}
	return []string{strconv.Itoa(bp.Index), loc, string(bp.State), verified}
}
