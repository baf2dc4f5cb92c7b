package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakpointIndicesAreStableAndNeverReused(t *testing.T) {
	c := NewBreakpointCollection()

	i0 := c.AddSourceBreakpoint("/a.go", 1, false)
	i1 := c.AddSourceBreakpoint("/a.go", 2, false)
	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)

	c.DeleteBreakpoint(i0)
	i2 := c.AddSourceBreakpoint("/a.go", 3, false)
	assert.Equal(t, 2, i2, "a deleted index must never be handed out again")

	_, err := c.GetBreakpointByIndex(i0)
	assert.Error(t, err)
	assert.True(t, Is(err, KindNotFound))
}

func TestGetAllEnabledBreakpointsForSourceOrdersByIndexAndFiltersOthers(t *testing.T) {
	c := NewBreakpointCollection()

	a := c.AddSourceBreakpoint("/a.go", 10, false)
	_ = c.AddSourceBreakpoint("/b.go", 20, false) // different path
	b := c.AddSourceBreakpoint("/a.go", 30, false)
	disabled := c.AddSourceBreakpoint("/a.go", 40, false)
	require.NoError(t, c.SetEnabled(disabled, false))
	funcBP := c.AddFunctionBreakpoint("main.Run", false) // different kind
	_ = funcBP

	got := c.GetAllEnabledBreakpointsForSource("/a.go")
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Index)
	assert.Equal(t, b, got[1].Index)
}

func TestToggleStateIsIdempotentAcrossTwoFlips(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.go", 1, false)

	bp, err := c.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	original := bp.State

	require.NoError(t, c.ToggleState(idx))
	require.NoError(t, c.ToggleState(idx))

	bp, err = c.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	assert.Equal(t, original, bp.State, "toggling twice must return to the original state")
}

func TestToggleStateCollapsesOnceToDisabled(t *testing.T) {
	c := NewBreakpointCollection()
	c.EnableOnceState()
	idx := c.AddSourceBreakpoint("/a.go", 1, true)

	bp, err := c.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	require.Equal(t, BreakpointOnce, bp.State)

	require.NoError(t, c.ToggleState(idx))
	bp, err = c.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	assert.Equal(t, BreakpointDisabled, bp.State, "toggling a once-breakpoint collapses it to disabled, not back to once")
}

func TestAddDeleteRoundTripLeavesEnabledListUnchanged(t *testing.T) {
	c := NewBreakpointCollection()
	base := c.AddSourceBreakpoint("/a.go", 1, false)
	before := c.GetAllEnabledBreakpointsForSource("/a.go")
	require.Len(t, before, 1)

	extra := c.AddSourceBreakpoint("/a.go", 2, false)
	c.DeleteBreakpoint(extra)

	after := c.GetAllEnabledBreakpointsForSource("/a.go")
	require.Len(t, after, 1)
	assert.Equal(t, base, after[0].Index)
}

func TestOnceStateDowngradesToEnabledWithoutCapability(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.go", 1, true)

	bp, err := c.GetBreakpointByIndex(idx)
	require.NoError(t, err)
	assert.Equal(t, BreakpointEnabled, bp.State, "once is only honored once EnableOnceState has been called")
}

func TestFunctionBreakpointsCapabilityGating(t *testing.T) {
	c := NewBreakpointCollection()
	assert.False(t, c.SupportsFunctionBreakpoints())
	c.EnableFunctionBreakpoints()
	assert.True(t, c.SupportsFunctionBreakpoints())
}

func TestGetBreakpointByIDFindsOnlyAssignedIDs(t *testing.T) {
	c := NewBreakpointCollection()
	idx := c.AddSourceBreakpoint("/a.go", 1, false)

	_, err := c.GetBreakpointByID(42)
	assert.Error(t, err)

	c.setBreakpointID(idx, 42)
	bp, err := c.GetBreakpointByID(42)
	require.NoError(t, err)
	assert.Equal(t, idx, bp.Index)
}

func TestExceptionFiltersReturnsOnlyEnabledSorted(t *testing.T) {
	c := NewBreakpointCollection()
	c.SetExceptionFilterEnabled("panic", true)
	c.SetExceptionFilterEnabled("goroutine-leak", true)
	c.SetExceptionFilterEnabled("disabled-one", false)

	assert.Equal(t, []string{"goroutine-leak", "panic"}, c.ExceptionFilters())
}

func TestGetAllBreakpointPathsDedupsAndIgnoresFunctionBreakpoints(t *testing.T) {
	c := NewBreakpointCollection()
	c.AddSourceBreakpoint("/a.go", 1, false)
	c.AddSourceBreakpoint("/a.go", 2, false)
	c.AddSourceBreakpoint("/b.go", 1, false)
	c.AddFunctionBreakpoint("main.Run", false)

	assert.Equal(t, []string{"/a.go", "/b.go"}, c.GetAllBreakpointPaths())
}
