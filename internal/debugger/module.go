package debugger

import (
	"fmt"
	"sort"

	"github.com/google/go-dap"
	"github.com/samber/lo"
)

// ModuleCollection records the modules (shared libraries, packages)
// the adapter has reported loaded via "module" events. It is a small
// supplement to the core state machine: nothing in breakpoint
// reconciliation or the stop/continue lifecycle depends on it, so it
// lives outside the hot reconciliation path and is read only by a
// "modules" command.
//
// dap.Module.Id is a "number | string" per the DAP schema, so it is
// keyed here by its formatted string form rather than its raw type.
type ModuleCollection struct {
	byID map[string]dap.Module
}

// NewModuleCollection returns an empty collection.
func NewModuleCollection() *ModuleCollection {
	return &ModuleCollection{byID: make(map[string]dap.Module)}
}

func moduleKey(id interface{}) string { return fmt.Sprint(id) }

func (c *ModuleCollection) upsert(m dap.Module) {
	c.byID[moduleKey(m.Id)] = m
}

func (c *ModuleCollection) remove(id interface{}) {
	delete(c.byID, moduleKey(id))
}

// All returns every known module, ordered by id for a stable listing.
func (c *ModuleCollection) All() []dap.Module {
	all := lo.Values(c.byID)
	sort.Slice(all, func(i, j int) bool { return moduleKey(all[i].Id) < moduleKey(all[j].Id) })
	return all
}

// Modules returns every module the current session has reported
// loaded, per the module-list supplement to spec.md's data model.
func (d *Debugger) Modules() []dap.Module {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.modules.All()
}
