package debugger

import (
	"sort"

	"github.com/samber/lo"
)

// BreakpointCollection is the registry of user breakpoints. Breakpoints
// survive session teardown and relaunch; only explicit deletion removes
// one.
type BreakpointCollection struct {
	byIndex    map[int]*Breakpoint
	nextIndex  int
	onceOK     bool
	funcOK     bool
	exceptions map[string]bool
}

// NewBreakpointCollection returns an empty collection. fn/once support
// should be set from the adapter's advertised capabilities once known
// (see EnableOnceState, EnableFunctionBreakpoints).
func NewBreakpointCollection() *BreakpointCollection {
	return &BreakpointCollection{
		byIndex:    make(map[int]*Breakpoint),
		exceptions: make(map[string]bool),
	}
}

// EnableOnceState records that the adapter advertises
// supportsBreakpointIdOnStop, permitting BreakpointOnce.
func (c *BreakpointCollection) EnableOnceState() { c.onceOK = true }

// SupportsOnceState reports whether once-breakpoints are permitted.
func (c *BreakpointCollection) SupportsOnceState() bool { return c.onceOK }

// EnableFunctionBreakpoints records that the adapter advertises
// supportsFunctionBreakpoints.
func (c *BreakpointCollection) EnableFunctionBreakpoints() { c.funcOK = true }

// SupportsFunctionBreakpoints reports whether function breakpoints are permitted.
func (c *BreakpointCollection) SupportsFunctionBreakpoints() bool { return c.funcOK }

func (c *BreakpointCollection) initialState(once bool) BreakpointState {
	if once && c.onceOK {
		return BreakpointOnce
	}
	return BreakpointEnabled
}

// AddSourceBreakpoint registers a new source breakpoint and returns its index.
func (c *BreakpointCollection) AddSourceBreakpoint(path string, line int, once bool) int {
	idx := c.nextIndex
	c.nextIndex++
	c.byIndex[idx] = &Breakpoint{
		Index: idx,
		Kind:  BreakpointKindSource,
		Path:  path,
		Line:  line,
		State: c.initialState(once),
	}
	return idx
}

// AddFunctionBreakpoint registers a new function breakpoint and returns
// its index. The caller is responsible for checking SupportsFunctionBreakpoints
// first (per spec invariant (iii)); this method does not enforce it so
// that it composes cleanly with the engine's own capability checks.
func (c *BreakpointCollection) AddFunctionBreakpoint(name string, once bool) int {
	idx := c.nextIndex
	c.nextIndex++
	c.byIndex[idx] = &Breakpoint{
		Index:        idx,
		Kind:         BreakpointKindFunction,
		FunctionName: name,
		State:        c.initialState(once),
	}
	return idx
}

// DeleteBreakpoint removes a breakpoint by index. The index is never reused.
func (c *BreakpointCollection) DeleteBreakpoint(index int) {
	delete(c.byIndex, index)
}

// DeleteAllBreakpoints empties the collection. Indices already handed
// out are still never reused, since nextIndex is untouched.
func (c *BreakpointCollection) DeleteAllBreakpoints() {
	c.byIndex = make(map[int]*Breakpoint)
}

// GetBreakpointByIndex looks up a breakpoint by its stable index.
func (c *BreakpointCollection) GetBreakpointByIndex(index int) (*Breakpoint, error) {
	bp, ok := c.byIndex[index]
	if !ok {
		return nil, newErr(KindNotFound, "no breakpoint at index %d", index)
	}
	return bp, nil
}

// GetBreakpointByID looks up a breakpoint by its adapter-assigned id.
func (c *BreakpointCollection) GetBreakpointByID(id int) (*Breakpoint, error) {
	for _, bp := range c.byIndex {
		if bpID, ok := bp.ID(); ok && bpID == id {
			return bp, nil
		}
	}
	return nil, newErr(KindNotFound, "no breakpoint with adapter id %d", id)
}

func (c *BreakpointCollection) setBreakpointID(index, id int) {
	if bp, ok := c.byIndex[index]; ok {
		bp.setID(id)
	}
}

// SetPathAndFile records a resolved source location on a function
// breakpoint once the adapter reports one.
func (c *BreakpointCollection) SetPathAndFile(index int, path string, line int) {
	if bp, ok := c.byIndex[index]; ok {
		bp.Path = path
		bp.Line = line
	}
}

func (c *BreakpointCollection) allBreakpoints() []*Breakpoint {
	all := lo.Values(c.byIndex)
	sort.Slice(all, func(i, j int) bool { return all[i].Index < all[j].Index })
	return all
}

// GetAllEnabledBreakpointsForSource returns the enabled-or-once source
// breakpoints at path, ordered by index — the stable list the engine
// sends verbatim in a setBreakpoints request.
func (c *BreakpointCollection) GetAllEnabledBreakpointsForSource(path string) []*Breakpoint {
	return lo.Filter(c.allBreakpoints(), func(bp *Breakpoint, _ int) bool {
		return bp.Kind == BreakpointKindSource && bp.Path == path && bp.Enabled()
	})
}

// GetAllEnabledBreakpointsByPath groups every enabled-or-once source
// breakpoint by its source path.
func (c *BreakpointCollection) GetAllEnabledBreakpointsByPath() map[string][]*Breakpoint {
	grouped := make(map[string][]*Breakpoint)
	for _, bp := range c.allBreakpoints() {
		if bp.Kind != BreakpointKindSource || !bp.Enabled() {
			continue
		}
		grouped[bp.Path] = append(grouped[bp.Path], bp)
	}
	return grouped
}

// GetAllEnabledFunctionBreakpoints returns every enabled-or-once
// function breakpoint, ordered by index.
func (c *BreakpointCollection) GetAllEnabledFunctionBreakpoints() []*Breakpoint {
	return lo.Filter(c.allBreakpoints(), func(bp *Breakpoint, _ int) bool {
		return bp.Kind == BreakpointKindFunction && bp.Enabled()
	})
}

// GetAllBreakpointPaths returns every distinct source path carrying at
// least one breakpoint, enabled or not — used to clear stale batches
// for paths that no longer have any enabled breakpoint.
func (c *BreakpointCollection) GetAllBreakpointPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, bp := range c.allBreakpoints() {
		if bp.Kind != BreakpointKindSource || bp.Path == "" {
			continue
		}
		if !seen[bp.Path] {
			seen[bp.Path] = true
			paths = append(paths, bp.Path)
		}
	}
	return paths
}

// AllBreakpoints returns every breakpoint, ordered by index.
func (c *BreakpointCollection) AllBreakpoints() []*Breakpoint {
	return c.allBreakpoints()
}

// ToggleState flips a breakpoint's enabled/disabled state in place,
// returning an error if the index is unknown.
func (c *BreakpointCollection) ToggleState(index int) error {
	bp, err := c.GetBreakpointByIndex(index)
	if err != nil {
		return err
	}
	bp.toggleState()
	return nil
}

// SetEnabled sets a breakpoint enabled or disabled directly.
func (c *BreakpointCollection) SetEnabled(index int, enabled bool) error {
	bp, err := c.GetBreakpointByIndex(index)
	if err != nil {
		return err
	}
	if enabled {
		bp.State = BreakpointEnabled
	} else {
		bp.State = BreakpointDisabled
	}
	return nil
}

// ExceptionFilters returns the currently enabled exception-breakpoint
// filter ids, sorted for a stable setExceptionBreakpoints request.
func (c *BreakpointCollection) ExceptionFilters() []string {
	filters := lo.Keys(lo.PickBy(c.exceptions, func(_ string, enabled bool) bool { return enabled }))
	sort.Strings(filters)
	return filters
}

// SetExceptionFilterEnabled toggles one exception filter id.
func (c *BreakpointCollection) SetExceptionFilterEnabled(filter string, enabled bool) {
	c.exceptions[filter] = enabled
}
