package debugger

// BreakpointKind distinguishes a source (path+line) breakpoint from a
// function-name breakpoint.
type BreakpointKind string

const (
	BreakpointKindSource   BreakpointKind = "source"
	BreakpointKindFunction BreakpointKind = "function"
)

// BreakpointState is enabled, disabled, or once (auto-disables on first hit).
type BreakpointState string

const (
	BreakpointEnabled  BreakpointState = "enabled"
	BreakpointDisabled BreakpointState = "disabled"
	BreakpointOnce     BreakpointState = "once"
)

// Breakpoint is a user breakpoint. Index is the stable, user-facing
// handle assigned once at creation and never reused; ID is the
// adapter-assigned identifier used solely to correlate incoming
// breakpoint-changed events, and is unset until a setBreakpoints
// response names it.
type Breakpoint struct {
	Index int
	Kind  BreakpointKind

	// Source location. For a function breakpoint, Path/Line are filled
	// in only after the adapter resolves the function to a location.
	Path string
	Line int

	// FunctionName is set only for BreakpointKindFunction.
	FunctionName string

	State    BreakpointState
	Verified bool
	Message  string

	id    int
	hasID bool
}

// ID returns the adapter-assigned id and whether one has been recorded.
func (b *Breakpoint) ID() (int, bool) { return b.id, b.hasID }

func (b *Breakpoint) setID(id int) {
	b.id = id
	b.hasID = true
}

// Enabled reports whether the breakpoint should currently be sent to
// the adapter (enabled or once, but not disabled).
func (b *Breakpoint) Enabled() bool {
	return b.State == BreakpointEnabled || b.State == BreakpointOnce
}

// toggleState flips enabled<->disabled; once collapses to disabled.
func (b *Breakpoint) toggleState() {
	switch b.State {
	case BreakpointEnabled, BreakpointOnce:
		b.State = BreakpointDisabled
	case BreakpointDisabled:
		b.State = BreakpointEnabled
	}
}

// snapshot captures mutable fields so a failed reconciliation can roll
// the breakpoint back to its prior shape.
type breakpointSnapshot struct {
	state    BreakpointState
	verified bool
	message  string
	id       int
	hasID    bool
}

func (b *Breakpoint) snapshot() breakpointSnapshot {
	return breakpointSnapshot{state: b.State, verified: b.Verified, message: b.Message, id: b.id, hasID: b.hasID}
}

func (b *Breakpoint) restore(s breakpointSnapshot) {
	b.State = s.state
	b.Verified = s.verified
	b.Message = s.message
	b.id = s.id
	b.hasID = s.hasID
}
