package command

import (
	"context"
	"sort"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// HelpCmd lists every registered command name, alphabetically.
type HelpCmd struct {
	dispatcher *Dispatcher
}

func (c *HelpCmd) Name() string { return "help" }

func (c *HelpCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	names := make([]string, 0, len(c.dispatcher.order))
	for _, cmd := range c.dispatcher.order {
		if cmd.Name() == "" {
			continue
		}
		names = append(names, cmd.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		console.OutputLine(name)
	}
	return nil
}
