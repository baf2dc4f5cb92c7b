package adapterpreset

import "fmt"

// Registry resolves a config/CLI preset name to a constructor that
// builds the concrete debugger.Adapter for it. It mirrors the way the
// teacher's config layer resolves named presets, generalized to the
// per-language launch/attach shapes this domain needs instead of a
// single flat options struct.
type Registry struct {
	launch map[string]func(LaunchOptions) *Preset
	attach map[string]func(AttachOptions) *Preset
}

// NewRegistry builds the registry with xdbg's four built-in presets.
func NewRegistry() *Registry {
	return &Registry{
		launch: map[string]func(LaunchOptions) *Preset{
			"go-delve":       NewGoDelve,
			"python-debugpy": NewPythonDebugpy,
		},
		attach: map[string]func(AttachOptions) *Preset{
			"go-delve-attach": NewGoDelveAttach,
			"node-inspector":  NewNodeInspector,
		},
	}
}

// Launch builds the launch-mode preset named by name.
func (r *Registry) Launch(name string, opts LaunchOptions) (*Preset, error) {
	ctor, ok := r.launch[name]
	if !ok {
		return nil, fmt.Errorf("unknown launch adapter preset %q (known: %v)", name, r.LaunchNames())
	}
	return ctor(opts), nil
}

// Attach builds the attach-mode preset named by name.
func (r *Registry) Attach(name string, opts AttachOptions) (*Preset, error) {
	ctor, ok := r.attach[name]
	if !ok {
		return nil, fmt.Errorf("unknown attach adapter preset %q (known: %v)", name, r.AttachNames())
	}
	return ctor(opts), nil
}

// LaunchNames lists every registered launch preset name.
func (r *Registry) LaunchNames() []string {
	names := make([]string, 0, len(r.launch))
	for name := range r.launch {
		names = append(names, name)
	}
	return names
}

// AttachNames lists every registered attach preset name.
func (r *Registry) AttachNames() []string {
	names := make([]string, 0, len(r.attach))
	for name := range r.attach {
		names = append(names, name)
	}
	return names
}
