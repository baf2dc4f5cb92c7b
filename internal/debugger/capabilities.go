package debugger

// AdapterCapabilities returns the capabilities recorded from the most
// recent initialize response, and whether one has been recorded yet.
func (d *Debugger) AdapterCapabilities() (Capabilities, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps, d.hasCaps
}

// SupportsCodeBlocks reports whether the active adapter preset accepts
// multi-statement blocks in evaluateExpression.
func (d *Debugger) SupportsCodeBlocks() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.adapter != nil && d.adapter.SupportsCodeBlocks()
}

// SupportsStoppedAtBreakpoint reports whether stopped events carry
// enough information (breakpointId) to drive one-shot breakpoints.
func (d *Debugger) SupportsStoppedAtBreakpoint() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasCaps && d.caps.SupportsBreakpointIdOnStop
}
