package debugger

import (
	"context"

	"github.com/google/go-dap"
)

// GetStackTrace fetches (and caches, for GetCurrentStackFrame) up to
// levels frames for threadID. levels <= 0 requests the full stack.
func (d *Debugger) GetStackTrace(ctx context.Context, threadID, levels int) ([]dap.StackFrame, error) {
	d.mu.Lock()
	if err := d.requireState(StateStopped); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	if d.threads.GetThreadByID(threadID) == nil {
		d.mu.Unlock()
		return nil, newErr(KindNotFound, "no thread with id %d", threadID)
	}
	session := d.session
	d.mu.Unlock()

	frames, _, err := session.StackTrace(ctx, threadID, 0, levels)
	if err != nil {
		return nil, wrapErr(KindAdapterRequestFailed, err, "stackTrace request failed")
	}

	d.mu.Lock()
	d.frames[threadID] = frames
	d.mu.Unlock()
	return frames, nil
}

// GetCurrentStackFrame returns the frame selected on the focus thread,
// from the most recently fetched stack trace for that thread.
func (d *Debugger) GetCurrentStackFrame() (*dap.StackFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	thread := d.threads.FocusThread()
	if thread == nil {
		return nil, newErr(KindNotStopped, "no stopped thread is focused")
	}
	frames := d.frames[thread.ID()]
	idx := thread.SelectedStackFrame()
	if idx < 0 || idx >= len(frames) {
		return nil, newErr(KindNotFound, "no stack frame at index %d", idx)
	}
	frame := frames[idx]
	return &frame, nil
}

// SetSelectedStackFrame changes which cached frame is "current" for
// threadID, for subsequent print/locals/frame commands.
func (d *Debugger) SetSelectedStackFrame(threadID, idx int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	thread := d.threads.GetThreadByID(threadID)
	if thread == nil {
		return newErr(KindNotFound, "no thread with id %d", threadID)
	}
	frames := d.frames[threadID]
	if idx < 0 || idx >= len(frames) {
		return newErr(KindNotFound, "no stack frame at index %d", idx)
	}
	thread.SetSelectedStackFrame(idx)
	return nil
}

// GetVariablesByScope resolves the scopes for the current frame. Scopes
// the adapter marks Expensive are listed but left unfetched unless name
// matches one explicitly; all others are fetched concurrently.
func (d *Debugger) GetVariablesByScope(ctx context.Context, name string) ([]ScopeVariables, error) {
	frame, err := d.GetCurrentStackFrame()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	session := d.session
	d.mu.Unlock()

	scopes, err := session.Scopes(ctx, frame.Id)
	if err != nil {
		return nil, wrapErr(KindAdapterRequestFailed, err, "scopes request failed")
	}

	results := make([]ScopeVariables, len(scopes))
	type fetchResult struct {
		idx  int
		vars []dap.Variable
		err  error
	}
	done := make(chan fetchResult, len(scopes))
	pending := 0

	for i, scope := range scopes {
		results[i] = ScopeVariables{Scope: scope}
		if scope.Expensive && scope.Name != name {
			continue
		}
		pending++
		go func(i int, ref int) {
			vars, err := session.Variables(ctx, ref)
			done <- fetchResult{idx: i, vars: vars, err: err}
		}(i, scope.VariablesReference)
	}

	for p := 0; p < pending; p++ {
		r := <-done
		if r.err != nil {
			return nil, wrapErr(KindAdapterRequestFailed, r.err, "variables request failed for scope %s", scopes[r.idx].Name)
		}
		results[r.idx].Variables = r.vars
		results[r.idx].Fetched = true
	}
	return results, nil
}

// GetVariablesByReference resolves the children of a compound variable
// by its variablesReference, for expanding a struct/array/map in place.
func (d *Debugger) GetVariablesByReference(ctx context.Context, ref int) ([]dap.Variable, error) {
	d.mu.Lock()
	if err := d.requireState(StateStopped); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	session := d.session
	d.mu.Unlock()

	vars, err := session.Variables(ctx, ref)
	if err != nil {
		return nil, wrapErr(KindAdapterRequestFailed, err, "variables request failed")
	}
	return vars, nil
}

// EvaluateExpression evaluates text in the context of the currently
// selected frame, applying the active adapter's expression transform
// (isBlockOfCode requires SupportsCodeBlocks).
func (d *Debugger) EvaluateExpression(ctx context.Context, text string, isBlockOfCode bool) (dap.EvaluateResponseBody, error) {
	d.mu.Lock()
	if err := d.requireState(StateStopped); err != nil {
		d.mu.Unlock()
		return dap.EvaluateResponseBody{}, err
	}
	if isBlockOfCode && (d.adapter == nil || !d.adapter.SupportsCodeBlocks()) {
		d.mu.Unlock()
		return dap.EvaluateResponseBody{}, newErr(KindUnsupportedCapability, "adapter does not support multi-statement evaluation")
	}
	if !d.readyForEvaluations {
		d.mu.Unlock()
		return dap.EvaluateResponseBody{}, newErr(KindNotStopped, "adapter is not yet ready for evaluation")
	}
	session := d.session
	adapter := d.adapter
	d.mu.Unlock()

	frame, err := d.GetCurrentStackFrame()
	if err != nil {
		return dap.EvaluateResponseBody{}, err
	}

	expr := text
	if adapter != nil {
		expr = adapter.TransformExpression(text, isBlockOfCode)
	}

	resp, err := session.Evaluate(ctx, expr, frame.Id, "repl")
	if err != nil {
		return dap.EvaluateResponseBody{}, wrapErr(KindAdapterRequestFailed, err, "evaluate request failed")
	}
	return resp, nil
}
