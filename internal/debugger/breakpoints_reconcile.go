package debugger

import (
	"context"

	"github.com/google/go-dap"
)

// SetSourceBreakpoint registers a new source breakpoint at path:line and
// resends the full set for that path if a session is active. once
// requests a one-shot breakpoint; it is downgraded to a regular enabled
// breakpoint if the adapter does not advertise supportsBreakpointIdOnStop.
func (d *Debugger) SetSourceBreakpoint(ctx context.Context, path string, line int, once bool) (int, error) {
	d.mu.Lock()
	idx := d.breakpoints.AddSourceBreakpoint(path, line, once)
	d.mu.Unlock()

	if err := d.resendBreakpointsForPath(ctx, path); err != nil {
		return idx, err
	}
	return idx, nil
}

// SetFunctionBreakpoint registers a new function breakpoint and resends
// the full function breakpoint set if a session is active. Fails with
// UnsupportedCapability if the adapter does not advertise
// supportsFunctionBreakpoints.
func (d *Debugger) SetFunctionBreakpoint(ctx context.Context, name string, once bool) (int, error) {
	d.mu.Lock()
	if d.session != nil && !d.breakpoints.SupportsFunctionBreakpoints() {
		d.mu.Unlock()
		return 0, newErr(KindUnsupportedCapability, "adapter does not support function breakpoints")
	}
	idx := d.breakpoints.AddFunctionBreakpoint(name, once)
	d.mu.Unlock()

	if err := d.resendFunctionBreakpoints(ctx); err != nil {
		return idx, err
	}
	return idx, nil
}

// GetAllBreakpoints returns every breakpoint, ordered by index.
func (d *Debugger) GetAllBreakpoints() []*Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.breakpoints.AllBreakpoints()
}

// GetBreakpointByIndex looks up a breakpoint by its stable index.
func (d *Debugger) GetBreakpointByIndex(index int) (*Breakpoint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.breakpoints.GetBreakpointByIndex(index)
}

// SetBreakpointEnabled enables or disables one breakpoint and resends
// its batch.
func (d *Debugger) SetBreakpointEnabled(ctx context.Context, index int, enabled bool) error {
	d.mu.Lock()
	bp, err := d.breakpoints.GetBreakpointByIndex(index)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	if err := d.breakpoints.SetEnabled(index, enabled); err != nil {
		d.mu.Unlock()
		return err
	}
	kind, path := bp.Kind, bp.Path
	d.mu.Unlock()

	return d.resendKind(ctx, kind, path)
}

// ToggleBreakpoint flips one breakpoint's enabled state and resends its
// batch. If the resend fails, the breakpoint's prior state is restored.
func (d *Debugger) ToggleBreakpoint(ctx context.Context, index int) error {
	d.mu.Lock()
	bp, err := d.breakpoints.GetBreakpointByIndex(index)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	prior := bp.State
	if err := d.breakpoints.ToggleState(index); err != nil {
		d.mu.Unlock()
		return err
	}
	kind, path := bp.Kind, bp.Path
	d.mu.Unlock()

	if err := d.resendKind(ctx, kind, path); err != nil {
		d.mu.Lock()
		bp.State = prior
		d.mu.Unlock()
		return err
	}
	return nil
}

// SetAllBreakpointsEnabled enables or disables every breakpoint and
// resends every batch.
func (d *Debugger) SetAllBreakpointsEnabled(ctx context.Context, enabled bool) error {
	d.mu.Lock()
	for _, bp := range d.breakpoints.AllBreakpoints() {
		_ = d.breakpoints.SetEnabled(bp.Index, enabled)
	}
	d.mu.Unlock()
	return d.resetAllBreakpoints(ctx)
}

// ToggleAllBreakpoints flips every breakpoint's enabled state and
// resends every batch.
func (d *Debugger) ToggleAllBreakpoints(ctx context.Context) error {
	d.mu.Lock()
	for _, bp := range d.breakpoints.AllBreakpoints() {
		_ = d.breakpoints.ToggleState(bp.Index)
	}
	d.mu.Unlock()
	return d.resetAllBreakpoints(ctx)
}

// DeleteBreakpoint removes one breakpoint and resends its former batch
// so the adapter drops it too.
func (d *Debugger) DeleteBreakpoint(ctx context.Context, index int) error {
	d.mu.Lock()
	bp, err := d.breakpoints.GetBreakpointByIndex(index)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	kind, path := bp.Kind, bp.Path
	d.breakpoints.DeleteBreakpoint(index)
	d.mu.Unlock()

	return d.resendKind(ctx, kind, path)
}

// DeleteAllBreakpoints empties the collection and clears every batch
// the adapter currently holds.
func (d *Debugger) DeleteAllBreakpoints(ctx context.Context) error {
	d.mu.Lock()
	paths := d.breakpoints.GetAllBreakpointPaths()
	d.breakpoints.DeleteAllBreakpoints()
	session := d.session
	d.mu.Unlock()

	if session == nil {
		return nil
	}
	for _, path := range paths {
		if _, err := session.SetBreakpoints(ctx, dap.Source{Path: path}, nil); err != nil {
			return wrapErr(KindAdapterRequestFailed, err, "setBreakpoints request failed for %s", path)
		}
	}
	if _, err := session.SetFunctionBreakpoints(ctx, nil); err != nil {
		return wrapErr(KindAdapterRequestFailed, err, "setFunctionBreakpoints request failed")
	}
	return nil
}

func (d *Debugger) resendKind(ctx context.Context, kind BreakpointKind, path string) error {
	if kind == BreakpointKindFunction {
		return d.resendFunctionBreakpoints(ctx)
	}
	return d.resendBreakpointsForPath(ctx, path)
}

// resendBreakpointsForPath sends the full enabled batch for path and
// reconciles the response positionally, per DAP's contract that the
// response array matches the request array in length and order. On
// failure every breakpoint in the batch is rolled back to its prior
// snapshot.
func (d *Debugger) resendBreakpointsForPath(ctx context.Context, path string) error {
	d.mu.Lock()
	session := d.session
	if session == nil {
		d.mu.Unlock()
		return nil
	}
	batch := d.breakpoints.GetAllEnabledBreakpointsForSource(path)
	snapshots := make([]breakpointSnapshot, len(batch))
	sourceBPs := make([]dap.SourceBreakpoint, len(batch))
	for i, bp := range batch {
		snapshots[i] = bp.snapshot()
		sourceBPs[i] = dap.SourceBreakpoint{Line: bp.Line}
	}
	d.mu.Unlock()

	resp, err := session.SetBreakpoints(ctx, dap.Source{Path: path}, sourceBPs)
	if err != nil {
		d.mu.Lock()
		for i, bp := range batch {
			bp.restore(snapshots[i])
		}
		d.mu.Unlock()
		return wrapErr(KindAdapterRequestFailed, err, "setBreakpoints request failed for %s", path)
	}

	d.mu.Lock()
	for i, bp := range batch {
		if i >= len(resp) {
			break
		}
		applyBreakpointResponse(bp, resp[i])
	}
	d.mu.Unlock()
	return nil
}

func (d *Debugger) resendFunctionBreakpoints(ctx context.Context) error {
	d.mu.Lock()
	session := d.session
	if session == nil {
		d.mu.Unlock()
		return nil
	}
	batch := d.breakpoints.GetAllEnabledFunctionBreakpoints()
	snapshots := make([]breakpointSnapshot, len(batch))
	funcBPs := make([]dap.FunctionBreakpoint, len(batch))
	for i, bp := range batch {
		snapshots[i] = bp.snapshot()
		funcBPs[i] = dap.FunctionBreakpoint{Name: bp.FunctionName}
	}
	d.mu.Unlock()

	resp, err := session.SetFunctionBreakpoints(ctx, funcBPs)
	if err != nil {
		d.mu.Lock()
		for i, bp := range batch {
			bp.restore(snapshots[i])
		}
		d.mu.Unlock()
		return wrapErr(KindAdapterRequestFailed, err, "setFunctionBreakpoints request failed")
	}

	d.mu.Lock()
	for i, bp := range batch {
		if i >= len(resp) {
			break
		}
		applyBreakpointResponse(bp, resp[i])
		if bp.Path == "" && resp[i].Source.Path != "" {
			d.breakpoints.SetPathAndFile(bp.Index, resp[i].Source.Path, resp[i].Line)
		}
	}
	d.mu.Unlock()
	return nil
}

// applyBreakpointResponse copies a positionally-paired setBreakpoints
// response onto the local breakpoint. When the adapter omits an id, the
// engine has no way to correlate a later breakpoint-changed event back
// to this breakpoint, so it assumes verified unconditionally rather than
// trusting the response's (possibly still-pending) verified flag.
func applyBreakpointResponse(bp *Breakpoint, wire dap.Breakpoint) {
	bp.Message = wire.Message
	if wire.Id != 0 {
		bp.setID(wire.Id)
		bp.Verified = wire.Verified
	} else {
		bp.Verified = true
	}
}

// resetAllBreakpoints resends every path's batch and the function
// breakpoint batch: the reconciliation used on Run and after any bulk
// enable/disable/toggle.
func (d *Debugger) resetAllBreakpoints(ctx context.Context) error {
	d.mu.Lock()
	paths := d.breakpoints.GetAllBreakpointPaths()
	d.mu.Unlock()

	for _, path := range paths {
		if err := d.resendBreakpointsForPath(ctx, path); err != nil {
			return err
		}
	}

	d.mu.Lock()
	hasFunc := d.breakpoints.SupportsFunctionBreakpoints()
	d.mu.Unlock()
	if hasFunc {
		if err := d.resendFunctionBreakpoints(ctx); err != nil {
			return err
		}
	}
	return nil
}
