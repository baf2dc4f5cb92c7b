package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// LocalsCmd prints every variable in every non-expensive scope of the
// currently selected frame.
type LocalsCmd struct{}

func (c *LocalsCmd) Name() string { return "locals" }

func (c *LocalsCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	scopeName := ""
	if len(args) == 1 {
		scopeName = args[0]
	}
	scopes, err := d.GetVariablesByScope(ctx, scopeName)
	if err != nil {
		return err
	}
	for _, sv := range scopes {
		if !sv.Fetched {
			console.OutputLine(fmt.Sprintf("%s: (expensive, not fetched)", sv.Scope.Name))
			continue
		}
		console.OutputLine(fmt.Sprintf("%s:", sv.Scope.Name))
		for _, v := range sv.Variables {
			console.OutputLine(fmt.Sprintf("  %s = %s (%s)", v.Name, v.Value, v.Type))
		}
	}
	return nil
}

// PrintCmd evaluates an expression (or, if the argument parses as an
// integer, expands a variable by its variablesReference) in the
// context of the currently selected frame.
type PrintCmd struct{}

func (c *PrintCmd) Name() string      { return "print" }
func (c *PrintCmd) Aliases() []string { return []string{"p"} }

func (c *PrintCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	if len(args) == 0 {
		console.OutputLine("usage: print <expression>")
		return nil
	}
	expr := strings.Join(args, " ")
	if ref, err := strconv.Atoi(expr); err == nil {
		vars, err := d.GetVariablesByReference(ctx, ref)
		if err != nil {
			return err
		}
		for _, v := range vars {
			console.OutputLine(fmt.Sprintf("%s = %s (%s)", v.Name, v.Value, v.Type))
		}
		return nil
	}

	result, err := d.EvaluateExpression(ctx, expr, false)
	if err != nil {
		return err
	}
	console.OutputLine(fmt.Sprintf("%s", result.Result))
	return nil
}

// ModulesCmd lists every module the adapter has reported loaded.
type ModulesCmd struct{}

func (c *ModulesCmd) Name() string { return "modules" }

func (c *ModulesCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	mods := d.Modules()
	if len(mods) == 0 {
		console.OutputLine("no modules loaded")
		return nil
	}
	for _, m := range mods {
		console.OutputLine(fmt.Sprintf("%v: %s (%s)", m.Id, m.Name, m.Path))
	}
	return nil
}
