package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// Event is a single decoded barcode detection.
type Event struct {
	Barcode   string
	Symbology string
	At        time.Time
}

// Handler consumes barcode events delivered by a Source.
type Handler func(ctx context.Context, ev Event) error

// ErrClosed is returned when publishing to a source that has been torn down.
var ErrClosed = errors.New("scan: source closed")

// ErrNoSubscriber is returned when a source has no active handler.
var ErrNoSubscriber = errors.New("scan: no subscriber")

// Source delivers decoded barcode events to a single subscriber. Each
// billing session owns its own source; closing it makes any late publish
// inert instead of firing a stale callback.
type Source struct {
	mu      sync.Mutex
	handler Handler
	closed  bool
}

// NewSource constructs an open, unsubscribed source.
func NewSource() *Source {
	return &Source{}
}

// Subscribe attaches the handler. A source carries exactly one subscriber.
func (s *Source) Subscribe(h Handler) error {
	if h == nil {
		return errors.New("scan: handler is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.handler != nil {
		return errors.New("scan: source already subscribed")
	}
	s.handler = h
	return nil
}

// Publish delivers the event to the subscriber synchronously. The handler
// runs under the source lock so a concurrent Close cannot race a delivery;
// handlers must not call back into the source.
func (s *Source) Publish(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.handler == nil {
		return ErrNoSubscriber
	}
	return s.handler(ctx, ev)
}

// Close tears the subscription down. Further publishes return ErrClosed.
func (s *Source) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.handler = nil
}

// Allowlist is the set of barcode symbologies a deployment accepts.
type Allowlist map[string]struct{}

// NewAllowlist normalises the configured symbology names into a set.
func NewAllowlist(names []string) Allowlist {
	set := make(Allowlist, len(names))
	for _, name := range names {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

// Allows reports whether the symbology is acceptable. An empty symbology is
// allowed: feeds that do not report one are treated as pre-filtered by the
// decoder configuration.
func (a Allowlist) Allows(symbology string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(symbology))
	if trimmed == "" {
		return true
	}
	if len(a) == 0 {
		return true
	}
	_, ok := a[trimmed]
	return ok
}
