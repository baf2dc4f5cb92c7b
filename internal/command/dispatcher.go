// Package command implements the CommandDispatcher spec.md treats as an
// external collaborator: it parses one line of REPL input into a
// command name and argument list and invokes the matching
// debugger.Command. Each command is a thin adapter onto
// debugger.DebuggerInterface; none of them reach into engine internals.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// Dispatcher owns the registered command set and the engine/console it
// drives them against.
type Dispatcher struct {
	engine  debugger.DebuggerInterface
	console debugger.ConsoleIO
	byName  map[string]debugger.Command
	order   []debugger.Command
}

// New builds a Dispatcher with the given commands, indexed by Name()
// (and any aliases the command itself declares via Aliases()).
func New(engine debugger.DebuggerInterface, console debugger.ConsoleIO, commands []debugger.Command) *Dispatcher {
	d := &Dispatcher{
		engine:  engine,
		console: console,
		byName:  make(map[string]debugger.Command),
		order:   commands,
	}
	for _, c := range commands {
		d.byName[c.Name()] = c
		if a, ok := c.(Aliaser); ok {
			for _, alias := range a.Aliases() {
				d.byName[alias] = c
			}
		}
		if help, ok := c.(*HelpCmd); ok {
			help.dispatcher = d
		}
	}
	return d
}

// Aliaser is implemented optionally by a Command that answers to more
// than one name (e.g. "c" for "continue").
type Aliaser interface {
	Aliases() []string
}

// Commands returns every registered command, in registration order.
// Debugger.New needs this same slice to drive StoppedHook callbacks.
func (d *Dispatcher) Commands() []debugger.Command { return d.order }

// Dispatch parses one line of input and runs the matching command.
// An empty line is silently ignored, matching a typical REPL's
// behavior of doing nothing on bare Enter. An unknown command name
// prints a one-line error to the console rather than returning it,
// since the dispatcher is the end of the line for user-facing errors
// (spec.md §7: "the dispatcher prints them and returns to the prompt").
func (d *Dispatcher) Dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	name, args := fields[0], fields[1:]

	cmd, ok := d.byName[name]
	if !ok {
		d.console.OutputLine(fmt.Sprintf("undefined command: %q (try \"help\")", name))
		return
	}
	if err := cmd.Run(ctx, d.engine, d.console, args); err != nil {
		d.console.OutputLine(formatError(err))
	}
}

func formatError(err error) string {
	var derr *debugger.Error
	if e, ok := err.(*debugger.Error); ok {
		derr = e
	}
	if derr == nil {
		return fmt.Sprintf("error: %v", err)
	}
	return fmt.Sprintf("error (%s): %s", derr.Kind, derr.Message)
}
