package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// ErrCommandNotFound indicates the caller has no registration for the
// requested name, regardless of what other users have registered.
var ErrCommandNotFound = errors.New("command not registered")

// Proxy gives each ambient identity its own view of the shared table by
// rewriting names to "__{uid}__{name}" before any table access.
type Proxy struct {
	table *Table
}

// NewProxy creates a proxy over the given table.
func NewProxy(table *Table) *Proxy {
	return &Proxy{table: table}
}

func prefixFor(uid string) string {
	return "__" + uid + "__"
}

// Registration is the disposable handle returned by Register.
type Registration struct {
	table *Table
	name  string
	once  sync.Once
}

// Dispose removes only this specific prefixed registration. Idempotent.
func (r *Registration) Dispose() {
	r.once.Do(func() {
		r.table.remove(r.name)
	})
}

// Register binds a callback to name in the caller's command space,
// replacing any previous registration of the same name by the same user.
func (p *Proxy) Register(ctx context.Context, name string, h Handler) (*Registration, error) {
	uid, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	scoped := prefixFor(uid) + name
	p.table.store(scoped, h)
	return &Registration{table: p.table, name: scoped}, nil
}

// Execute resolves name in the caller's command space and invokes it.
func (p *Proxy) Execute(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	uid, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	h, ok := p.table.lookup(prefixFor(uid) + name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	return h(ctx, args)
}

// List returns the caller's registered logical names, sorted.
func (p *Proxy) List(ctx context.Context) ([]string, error) {
	uid, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	prefix := prefixFor(uid)
	var out []string
	for _, scoped := range p.table.names() {
		if strings.HasPrefix(scoped, prefix) {
			out = append(out, strings.TrimPrefix(scoped, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}
