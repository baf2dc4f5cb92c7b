package command

import (
	"context"
	"fmt"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// promptSetter is implemented by consoleio.Terminal but not required by
// debugger.ConsoleIO itself, since plain Output/OutputLine consoles
// (e.g. a test double) have no notion of a persistent prompt string.
type promptSetter interface {
	SetPrompt(prompt string)
}

// PromptCmd has no directly invokable command; it only exists to
// implement debugger.StoppedHook so the prompt reflects the frame the
// engine just stopped at, the way a real interactive debugger's prompt
// names the current file:line.
type PromptCmd struct{}

func (c *PromptCmd) Name() string { return "" }

func (c *PromptCmd) Run(ctx context.Context, d debugger.DebuggerInterface, console debugger.ConsoleIO, args []string) error {
	return nil
}

// OnStopped updates the console's prompt to show the focus thread's
// current file:line, if the console supports a settable prompt.
func (c *PromptCmd) OnStopped(d debugger.DebuggerInterface, console debugger.ConsoleIO) {
	setter, ok := console.(promptSetter)
	if !ok {
		return
	}
	frame, err := d.GetCurrentStackFrame()
	if err != nil {
		setter.SetPrompt("(xdbg) ")
		return
	}
	setter.SetPrompt(fmt.Sprintf("(xdbg:%s:%d) ", frame.Source.Name, frame.Line))
}

var _ debugger.StoppedHook = (*PromptCmd)(nil)
