package command

import "github.com/vburojevic/xdbg/internal/debugger"

// DefaultCommands returns the full command set xdbg registers with its
// dispatcher (every operation spec.md's DebuggerInterface exposes, plus
// PromptCmd's StoppedHook-only registration) along with the QuitCmd
// instance so the CLI entrypoint can wait on its Done() channel to know
// when to stop.
func DefaultCommands() ([]debugger.Command, *QuitCmd) {
	quit := &QuitCmd{done: make(chan struct{})}
	commands := []debugger.Command{
		&BreakCmd{},
		NewTBreakCmd(),
		&DeleteCmd{},
		&EnableCmd{},
		&DisableCmd{},
		&ToggleCmd{},
		&BreakpointsCmd{},
		&RunCmd{},
		&ContinueCmd{},
		&NextCmd{},
		&StepCmd{},
		&StepOutCmd{},
		&PauseCmd{},
		&ThreadsCmd{},
		&FrameCmd{},
		&BacktraceCmd{},
		&LocalsCmd{},
		&PrintCmd{},
		&ModulesCmd{},
		quit,
		&PromptCmd{},
		&HelpCmd{},
	}
	return commands, quit
}
