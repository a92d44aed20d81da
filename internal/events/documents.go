// Package events multiplexes one underlying document change stream into
// per-user views. Document URIs carry an embedded ownership tag (a
// query-style uid= marker stamped on first contact); emit forwards an
// event only to listeners of the user the tag names, and only when that
// matches the ambient identity at emit time.
package events

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/TenantOS/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/TenantOS/backend/internal/tenant"
)

// ChangeType classifies a document event.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
)

// Event is one document change on the underlying stream.
type Event struct {
	URI       string     `json:"uri"`
	Change    ChangeType `json:"change"`
	Timestamp time.Time  `json:"timestamp"`
}

// Listener receives events for one user's view of the stream.
type Listener func(Event)

// TagURI stamps the ownership marker onto a document URI. Already-tagged
// URIs are returned unchanged, so the first contact wins.
func TagURI(uri, userID string) string {
	if OwnerOf(uri) != "" {
		return uri
	}
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "uid=" + url.QueryEscape(userID)
}

// OwnerOf extracts the ownership tag from a URI, or "" when untagged.
func OwnerOf(uri string) string {
	idx := strings.Index(uri, "?")
	if idx < 0 {
		return ""
	}
	vals, err := url.ParseQuery(uri[idx+1:])
	if err != nil {
		return ""
	}
	return vals.Get("uid")
}

// Proxy is the document-event fan-out. The underlying source is unaware
// of users; the proxy is what makes the stream look per-user.
type Proxy struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[string]map[int]Listener // uid -> listener set
	logger    *logging.Logger
}

// NewProxy creates an event proxy.
func NewProxy(logger *logging.Logger) *Proxy {
	return &Proxy{
		listeners: make(map[string]map[int]Listener),
		logger:    logger,
	}
}

// Disposable unregisters a listener.
type Disposable struct {
	proxy *Proxy
	uid   string
	id    int
	once  sync.Once
}

// Dispose removes the listener. Idempotent.
func (d *Disposable) Dispose() {
	d.once.Do(func() {
		d.proxy.mu.Lock()
		defer d.proxy.mu.Unlock()
		if set, ok := d.proxy.listeners[d.uid]; ok {
			delete(set, d.id)
			if len(set) == 0 {
				delete(d.proxy.listeners, d.uid)
			}
		}
	})
}

// OnChange registers a listener for the ambient identity's view.
func (p *Proxy) OnChange(ctx context.Context, l Listener) (*Disposable, error) {
	uid, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	if p.listeners[uid] == nil {
		p.listeners[uid] = make(map[int]Listener)
	}
	p.listeners[uid][id] = l
	return &Disposable{proxy: p, uid: uid, id: id}, nil
}

// Emit is the internal entry point, invoked once per underlying change.
// The event is delivered only when the URI's ownership tag matches the
// ambient identity; a mismatch means the event was raised on behalf of a
// different user's document and must not cross over.
func (p *Proxy) Emit(ctx context.Context, ev Event) error {
	uid, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}

	owner := OwnerOf(ev.URI)
	if owner == "" {
		ev.URI = TagURI(ev.URI, uid)
		owner = uid
	}
	if owner != uid {
		p.logger.Warn("dropping cross-user document event",
			zap.String("owner", owner),
			zap.String("ambient", uid),
		)
		return nil
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	p.mu.RLock()
	set := make([]Listener, 0, len(p.listeners[owner]))
	for _, l := range p.listeners[owner] {
		set = append(set, l)
	}
	p.mu.RUnlock()

	for _, l := range set {
		p.deliver(owner, l, ev)
	}
	return nil
}

// deliver invokes one listener, recovering panics so a faulty listener
// cannot block delivery to the rest.
func (p *Proxy) deliver(uid string, l Listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("document event listener panicked",
				zap.String("uid", uid),
				zap.String("uri", ev.URI),
				zap.Any("panic", r),
			)
		}
	}()
	l(ev)
}

// ListenerCount reports the number of listeners for a user. Test hook.
func (p *Proxy) ListenerCount(uid string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.listeners[uid])
}
