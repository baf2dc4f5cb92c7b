package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// BreakCmd sets a source or function breakpoint: "break path:line" or
// "break funcName".
type BreakCmd struct{ once bool }

func (c *BreakCmd) Name() string { return "break" }

func (c *BreakCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	if len(args) != 1 {
		console.OutputLine("usage: break <path:line>|<funcName>")
		return nil
	}
	loc := args[0]

	path, line, isSource := parseSourceLocation(loc)
	var (
		idx int
		err error
	)
	if isSource {
		idx, err = d.SetSourceBreakpoint(ctx, path, line, c.once)
	} else {
		idx, err = d.SetFunctionBreakpoint(ctx, loc, c.once)
	}
	if err != nil {
		return err
	}

	bp, err := d.GetBreakpointByIndex(idx)
	if err != nil {
		return err
	}
	console.OutputLine(formatBreakpointCreated(bp))
	return nil
}

// TBreakCmd is the one-shot ("temporary") variant of BreakCmd.
type TBreakCmd struct{ BreakCmd }

// NewTBreakCmd builds a TBreakCmd; once is always requested, and is
// silently downgraded by the engine if the adapter cannot support it.
func NewTBreakCmd() *TBreakCmd {
	c := &TBreakCmd{}
	c.once = true
	return c
}

func (c *TBreakCmd) Name() string { return "tbreak" }

func parseSourceLocation(loc string) (path string, line int, ok bool) {
	idx := strings.LastIndex(loc, ":")
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(loc[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return loc[:idx], n, true
}

func formatBreakpointCreated(bp *debugger.Breakpoint) string {
	if bp.Verified {
		return fmt.Sprintf("breakpoint %d set", bp.Index)
	}
	return fmt.Sprintf("breakpoint %d pending until program starts", bp.Index)
}
