package debugger

import (
	"sort"

	"github.com/samber/lo"
)

// ThreadCollection is the set of threads the engine currently knows
// about, plus the focus thread user commands default to when no thread
// is named explicitly.
type ThreadCollection struct {
	byID        map[int]*Thread
	focusThread int
	hasFocus    bool
}

// NewThreadCollection returns an empty collection.
func NewThreadCollection() *ThreadCollection {
	return &ThreadCollection{byID: make(map[int]*Thread)}
}

// AddThread registers a new thread, replacing any existing thread with
// the same id.
func (c *ThreadCollection) AddThread(id int, name string) *Thread {
	t := newThread(id, name)
	c.byID[id] = t
	return t
}

// RemoveThread drops a thread from the collection. If it was the focus
// thread, the focus is cleared.
func (c *ThreadCollection) RemoveThread(id int) {
	delete(c.byID, id)
	if c.hasFocus && c.focusThread == id {
		c.hasFocus = false
		c.focusThread = 0
	}
}

// UpdateThreads replaces the collection with the given (id, name) pairs,
// preserving stopped state, selected frame, and focus for ids that
// survive the replacement.
func (c *ThreadCollection) UpdateThreads(ids []int, names []string) {
	next := make(map[int]*Thread, len(ids))
	for i, id := range ids {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if existing, ok := c.byID[id]; ok {
			existing.setName(name)
			next[id] = existing
			continue
		}
		next[id] = newThread(id, name)
	}
	c.byID = next
	if c.hasFocus {
		if _, ok := c.byID[c.focusThread]; !ok {
			c.hasFocus = false
			c.focusThread = 0
		}
	}
}

// GetThreadByID returns the thread with the given id, or nil.
func (c *ThreadCollection) GetThreadByID(id int) *Thread {
	return c.byID[id]
}

// AllThreads returns every known thread, ordered by ascending id for a
// stable listing.
func (c *ThreadCollection) AllThreads() []*Thread {
	all := lo.Values(c.byID)
	sort.Slice(all, func(i, j int) bool { return all[i].id < all[j].id })
	return all
}

// MarkThreadRunning marks one thread running, resetting its selected frame.
func (c *ThreadCollection) MarkThreadRunning(id int) {
	if t, ok := c.byID[id]; ok {
		t.markRunning()
	}
}

// MarkAllThreadsRunning marks every known thread running.
func (c *ThreadCollection) MarkAllThreadsRunning() {
	for _, t := range c.byID {
		t.markRunning()
	}
}

// MarkThreadStopped marks one thread stopped.
func (c *ThreadCollection) MarkThreadStopped(id int) {
	if t, ok := c.byID[id]; ok {
		t.markStopped()
	}
}

// MarkAllThreadsStopped marks every known thread stopped.
func (c *ThreadCollection) MarkAllThreadsStopped() {
	for _, t := range c.byID {
		t.markStopped()
	}
}

// AllThreadsRunning reports whether every known thread is running. An
// empty collection counts as "all running" (there is nothing stopped).
func (c *ThreadCollection) AllThreadsRunning() bool {
	for _, t := range c.byID {
		if t.stopped {
			return false
		}
	}
	return true
}

// FirstStoppedThread returns a stopped thread, breaking ties by
// ascending id for a stable result, or nil if none are stopped.
func (c *ThreadCollection) FirstStoppedThread() *Thread {
	stopped := lo.Filter(c.AllThreads(), func(t *Thread, _ int) bool { return t.stopped })
	if len(stopped) == 0 {
		return nil
	}
	return stopped[0]
}

// SetFocusThread sets the focus thread. It is a no-op (but still
// clears any prior focus) if id does not name a known thread.
func (c *ThreadCollection) SetFocusThread(id int) {
	if _, ok := c.byID[id]; !ok {
		c.hasFocus = false
		c.focusThread = 0
		return
	}
	c.hasFocus = true
	c.focusThread = id
}

// FocusThread returns the currently focused thread, or nil.
func (c *ThreadCollection) FocusThread() *Thread {
	if !c.hasFocus {
		return nil
	}
	return c.byID[c.focusThread]
}

// FocusThreadID returns the focus thread's id and whether one is set.
func (c *ThreadCollection) FocusThreadID() (int, bool) {
	return c.focusThread, c.hasFocus
}
