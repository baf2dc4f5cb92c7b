// Package adapterpreset supplies the concrete debugger.Adapter
// descriptors xdbg ships with: one per supported debug back end. Each
// preset names its spawn command, whether it launches or attaches, and
// the argument/expression transforms the engine applies before handing
// anything to the DAP transport.
package adapterpreset

import (
	"fmt"

	"github.com/vburojevic/xdbg/internal/debugger"
)

// Preset is the concrete debugger.Adapter this package builds. Command
// and Args name the adapter binary to spawn; transforms are installed
// per language family in the constructors below.
type Preset struct {
	name    string
	action  debugger.AdapterAction
	command string
	args    []string

	program     string
	programArgs []string
	cwd         string
	stopOnEntry bool

	host string
	port int
	pid  int

	asyncStopThread   int
	hasAsyncStop      bool
	supportsCodeBlock bool

	transformLaunch     func(raw map[string]interface{}) map[string]interface{}
	transformAttach     func(raw map[string]interface{}) map[string]interface{}
	transformExpression func(expr string, isBlockOfCode bool) string
}

var _ debugger.Adapter = (*Preset)(nil)

func (p *Preset) Name() string                   { return p.name }
func (p *Preset) Action() debugger.AdapterAction { return p.action }

func (p *Preset) AsyncStopThread() (int, bool) { return p.asyncStopThread, p.hasAsyncStop }

func (p *Preset) SupportsCodeBlocks() bool { return p.supportsCodeBlock }

// Command reports the adapter binary and args this preset spawns, so
// the dapsession transport can start the right process.
func (p *Preset) Command() (string, []string) { return p.command, p.args }

// DialAddr reports the "host:port" this preset connects to instead of
// spawning a process, and whether it is a dial-based preset at all.
// node-inspector has no adapter binary of its own: the target runtime
// already exposes its inspector protocol on a TCP port.
func (p *Preset) DialAddr() (string, bool) {
	if p.command != "" {
		return "", false
	}
	return fmt.Sprintf("%s:%d", p.host, p.port), true
}

func (p *Preset) TransformLaunchArguments(raw map[string]interface{}) map[string]interface{} {
	if p.transformLaunch != nil {
		return p.transformLaunch(raw)
	}
	return raw
}

func (p *Preset) TransformAttachArguments(raw map[string]interface{}) map[string]interface{} {
	if p.transformAttach != nil {
		return p.transformAttach(raw)
	}
	return raw
}

func (p *Preset) TransformExpression(expr string, isBlockOfCode bool) string {
	if p.transformExpression != nil {
		return p.transformExpression(expr, isBlockOfCode)
	}
	return expr
}

// LaunchOptions carries the user-facing launch parameters a CLI command
// or config default supplies; each preset's TransformLaunchArguments
// shapes these into the adapter-specific launch request body.
type LaunchOptions struct {
	Program     string
	Args        []string
	Cwd         string
	StopOnEntry bool
}

// AttachOptions carries the user-facing attach parameters.
type AttachOptions struct {
	Host string
	Port int
	PID  int
}

// NewGoDelve builds the preset for Delve's DAP server
// (`dlv dap`), the reference Go debug adapter.
func NewGoDelve(opts LaunchOptions) *Preset {
	p := &Preset{
		name:              "go-delve",
		action:            debugger.ActionLaunch,
		command:           "dlv",
		args:              []string{"dap", "--listen=stdio"},
		program:           opts.Program,
		programArgs:       opts.Args,
		cwd:               opts.Cwd,
		stopOnEntry:       opts.StopOnEntry,
		supportsCodeBlock: false,
	}
	p.transformLaunch = func(raw map[string]interface{}) map[string]interface{} {
		args := map[string]interface{}{
			"mode":        "debug",
			"program":     p.program,
			"args":        p.programArgs,
			"stopOnEntry": p.stopOnEntry,
		}
		if p.cwd != "" {
			args["cwd"] = p.cwd
		}
		return mergeRaw(args, raw)
	}
	p.transformExpression = func(expr string, _ bool) string { return expr }
	return p
}

// NewGoDelveAttach builds a Delve preset that attaches to an already
// running process by pid, the shape `dlv dap` uses for attach mode.
func NewGoDelveAttach(opts AttachOptions) *Preset {
	p := &Preset{
		name:    "go-delve-attach",
		action:  debugger.ActionAttach,
		command: "dlv",
		args:    []string{"dap", "--listen=stdio"},
		host:    opts.Host,
		port:    opts.Port,
		pid:     opts.PID,
	}
	p.transformAttach = func(raw map[string]interface{}) map[string]interface{} {
		args := map[string]interface{}{
			"mode":      "local",
			"processId": p.pid,
		}
		return mergeRaw(args, raw)
	}
	p.transformExpression = func(expr string, _ bool) string { return expr }
	return p
}

// NewPythonDebugpy builds the preset for Microsoft's debugpy adapter,
// spawned via `python -m debugpy.adapter`.
func NewPythonDebugpy(opts LaunchOptions) *Preset {
	p := &Preset{
		name:              "python-debugpy",
		action:            debugger.ActionLaunch,
		command:           "python3",
		args:              []string{"-m", "debugpy.adapter"},
		program:           opts.Program,
		programArgs:       opts.Args,
		cwd:               opts.Cwd,
		stopOnEntry:       opts.StopOnEntry,
		supportsCodeBlock: true,
	}
	p.transformLaunch = func(raw map[string]interface{}) map[string]interface{} {
		args := map[string]interface{}{
			"program":     p.program,
			"args":        p.programArgs,
			"stopOnEntry": p.stopOnEntry,
			"console":     "internalConsole",
			"justMyCode":  true,
		}
		if p.cwd != "" {
			args["cwd"] = p.cwd
		}
		return mergeRaw(args, raw)
	}
	// debugpy's REPL evaluates indentation-sensitive Python, so a
	// multi-statement block must be wrapped to force exec() semantics
	// rather than single-expression eval() semantics.
	p.transformExpression = func(expr string, isBlockOfCode bool) string {
		if isBlockOfCode {
			return fmt.Sprintf("exec(%q)", expr)
		}
		return expr
	}
	return p
}

// NewNodeInspector builds the preset for vscode-js-debug / Node's
// built-in inspector protocol, attached to over a TCP port.
func NewNodeInspector(opts AttachOptions) *Preset {
	p := &Preset{
		name:         "node-inspector",
		action:       debugger.ActionAttach,
		host:         opts.Host,
		port:         opts.Port,
		hasAsyncStop: false,
	}
	if p.host == "" {
		p.host = "127.0.0.1"
	}
	p.transformAttach = func(raw map[string]interface{}) map[string]interface{} {
		args := map[string]interface{}{
			"address": p.host,
			"port":    p.port,
		}
		return mergeRaw(args, raw)
	}
	p.transformExpression = func(expr string, isBlockOfCode bool) string { return expr }
	return p
}

// WithAsyncStopThread records the thread id xdbg should pause
// immediately after attaching, per spec.md's attach-mode auto-stop.
func (p *Preset) WithAsyncStopThread(id int) *Preset {
	p.asyncStopThread = id
	p.hasAsyncStop = true
	return p
}

func mergeRaw(base, raw map[string]interface{}) map[string]interface{} {
	if raw == nil {
		return base
	}
	for k, v := range raw {
		base[k] = v
	}
	return base
}
