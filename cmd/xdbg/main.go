// Command xdbg is the interactive command-line debugger front end: it
// drives a Debug Adapter Protocol back end chosen by --adapter, reads
// REPL commands from stdin, and prints engine output to stdout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/vburojevic/xdbg/internal/adapterpreset"
	"github.com/vburojevic/xdbg/internal/clilog"
	"github.com/vburojevic/xdbg/internal/command"
	"github.com/vburojevic/xdbg/internal/config"
	"github.com/vburojevic/xdbg/internal/consoleio"
	"github.com/vburojevic/xdbg/internal/dapsession"
	"github.com/vburojevic/xdbg/internal/debugger"
)

// cli defines xdbg's top-level flags, parsed by kong the way the
// teacher's cmd/xcw/main.go parses its CLI struct.
type cli struct {
	Adapter     string   `help:"Adapter preset to use." default:"${config_adapter}"`
	Program     string   `arg:"" optional:"" help:"Program to launch, if the adapter preset launches rather than attaches."`
	Args        []string `help:"Arguments to pass to the launched program."`
	Cwd         string   `help:"Working directory for the launched program."`
	StopOnEntry bool     `help:"Stop at program entry." default:"${config_stop_on_entry}"`

	AttachHost string `help:"Host to attach to (attach-mode presets only)." default:"${config_attach_host}"`
	AttachPort int    `help:"Port to attach to (attach-mode presets only)." default:"${config_attach_port}"`
	AttachPID  int    `help:"PID to attach to (go-delve-attach only)."`

	Verbose bool `help:"Enable verbose diagnostic logging."`
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli
	kong.Parse(&c,
		kong.Name("xdbg"),
		kong.Description("xdbg: an interactive command-line front end for Debug Adapter Protocol back ends"),
		kong.UsageOnError(),
		kong.Vars{
			"config_adapter":       cfg.Defaults.Adapter,
			"config_stop_on_entry": fmt.Sprintf("%v", cfg.Defaults.StopOnEntry),
			"config_attach_host":   cfg.Defaults.AttachHost,
			"config_attach_port":   fmt.Sprintf("%d", cfg.Defaults.AttachPort),
		},
	)
	if c.Verbose {
		cfg.Verbose = true
	}

	if err := run(c, cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c cli, cfg *config.Config) error {
	logger := clilog.New(cfg.Verbose, c.Adapter)
	registry := adapterpreset.NewRegistry()

	adapter, newSession, err := buildAdapter(c, cfg, registry)
	if err != nil {
		return err
	}

	commands, quit := command.DefaultCommands()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	var dispatcher *command.Dispatcher
	var eng *debugger.Debugger
	console := consoleio.NewStdTerminal(func(line string) {
		dispatcher.Dispatch(ctx, line)
	})
	defer console.Close()

	eng = debugger.New(newSession, console, commands,
		debugger.WithLogf(logger.Printf),
		debugger.WithMutedOutputCategories(cfg.Defaults.MuteOutputCategories...),
		debugger.WithExceptionFilters(cfg.Defaults.ExceptionFilters...),
	)
	dispatcher = command.New(eng, console, commands)

	if err := eng.Launch(ctx, adapter); err != nil {
		return fmt.Errorf("launch failed: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = eng.CloseSession(context.Background(), true)
	case <-quit.Done():
	case <-eng.ExitRequested():
		// Attach-mode termination (spec.md §4.F.7): the debuggee process
		// the adapter was attached to is gone, and launch-mode's
		// auto-relaunch does not apply here, so the host exits too.
	}
	return nil
}

func buildAdapter(c cli, cfg *config.Config, registry *adapterpreset.Registry) (debugger.Adapter, debugger.NewSessionFunc, error) {
	name := c.Adapter
	if name == "" {
		name = cfg.Defaults.Adapter
	}

	program := c.Program
	if program == "" {
		program = cfg.Defaults.Program
	}

	switch name {
	case "go-delve-attach", "node-inspector":
		host := c.AttachHost
		if host == "" {
			host = cfg.Defaults.AttachHost
		}
		port := c.AttachPort
		if port == 0 {
			port = cfg.Defaults.AttachPort
		}
		adapter, err := registry.Attach(name, adapterpreset.AttachOptions{
			Host: host,
			Port: port,
			PID:  c.AttachPID,
		})
		if err != nil {
			return nil, nil, err
		}
		return adapter, spawnerFor(adapter), nil
	default:
		adapter, err := registry.Launch(name, adapterpreset.LaunchOptions{
			Program:     program,
			Args:        c.Args,
			Cwd:         c.Cwd,
			StopOnEntry: c.StopOnEntry || cfg.Defaults.StopOnEntry,
		})
		if err != nil {
			return nil, nil, err
		}
		return adapter, spawnerFor(adapter), nil
	}
}

// spawnerFor builds the NewSessionFunc the engine calls on every
// launch/relaunch: it spawns a fresh adapter process per generation,
// since a DAP adapter process is not reusable across sessions.
func spawnerFor(adapter debugger.Adapter) debugger.NewSessionFunc {
	preset, ok := adapter.(*adapterpreset.Preset)
	return func(ctx context.Context, a debugger.Adapter) (debugger.DebugSession, error) {
		if !ok {
			return nil, fmt.Errorf("unsupported adapter type %T", a)
		}
		if addr, isDial := preset.DialAddr(); isDial {
			return dapsession.Dial(ctx, "tcp", addr)
		}
		bin, args := preset.Command()
		return dapsession.Spawn(ctx, bin, args)
	}
}
