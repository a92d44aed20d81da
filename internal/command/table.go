// Package command implements the per-user command space: a shared
// underlying table plus a proxy that rewrites every name with the caller's
// identity prefix, so two users can hold the same logical command name
// with fully independent callbacks and lifecycles.
package command

import (
	"context"
	"sync"
)

// Handler is a registered command callback.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Table is the underlying process-wide command table. It is user-agnostic:
// isolation happens in the Proxy, which never lets an unprefixed name
// reach this layer.
type Table struct {
	commands sync.Map // map[string]Handler
}

// NewTable creates an empty command table.
func NewTable() *Table {
	return &Table{}
}

func (t *Table) store(name string, h Handler) {
	t.commands.Store(name, h)
}

func (t *Table) lookup(name string) (Handler, bool) {
	v, ok := t.commands.Load(name)
	if !ok {
		return nil, false
	}
	return v.(Handler), true
}

func (t *Table) remove(name string) {
	t.commands.Delete(name)
}

func (t *Table) names() []string {
	var out []string
	t.commands.Range(func(k, _ interface{}) bool {
		out = append(out, k.(string))
		return true
	})
	return out
}

// Len returns the number of entries across all users.
func (t *Table) Len() int {
	n := 0
	t.commands.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}
