// Package memory implements backend.Backend in process memory, including the
// change feed. It serves tests and offline use of the CLI.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
)

var ErrDuplicateID = errors.New("duplicate id")

type Option func(*Store)

// WithClock overrides the source of server timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithUpdatedAt lists collections whose rows carry an updated_at column.
func WithUpdatedAt(collections ...string) Option {
	return func(s *Store) {
		for _, c := range collections {
			s.updatedAt[c] = true
		}
	}
}

// Store keeps rows per collection in insertion order.
type Store struct {
	mu        sync.RWMutex
	tables    map[string][]backend.Row
	updatedAt map[string]bool
	subs      map[string]map[*subscription]struct{}
	now       func() time.Time

	// pubMu keeps feed order equal to write order.
	pubMu sync.Mutex
}

var _ backend.Backend = (*Store)(nil)

func New(collections []string, opts ...Option) *Store {
	s := &Store{
		tables:    make(map[string][]backend.Row, len(collections)),
		updatedAt: make(map[string]bool),
		subs:      make(map[string]map[*subscription]struct{}),
		now:       time.Now,
	}
	for _, c := range collections {
		s.tables[c] = nil
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *Store) Select(ctx context.Context, collection string, q backend.Query) ([]backend.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, backend.Wrap("select", collection, err)
	}
	for _, f := range q.Filters {
		if err := f.Validate(); err != nil {
			return nil, backend.Wrap("select", collection, err)
		}
	}

	s.mu.RLock()
	rows, ok := s.tables[collection]
	if !ok {
		s.mu.RUnlock()
		return nil, backend.Wrap("select", collection, backend.ErrUnknownCollection)
	}
	out := make([]backend.Row, 0, len(rows))
	for _, r := range rows {
		if backend.MatchesAll(r, q.Filters) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()

	if q.Order != nil {
		col, asc := q.Order.Column, q.Order.Ascending
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := out[i][col]
			b, bok := out[j][col]
			// nulls sort last in both directions
			if !aok || a == nil {
				return false
			}
			if !bok || b == nil {
				return true
			}
			c, _ := backend.Compare(a, b)
			if asc {
				return c < 0
			}
			return c > 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if len(q.Columns) > 0 {
		for i, r := range out {
			out[i] = r.Project(q.Columns)
		}
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, collection string, rows ...backend.Row) ([]backend.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, backend.Wrap("insert", collection, err)
	}

	s.mu.Lock()
	existing, ok := s.tables[collection]
	if !ok {
		s.mu.Unlock()
		return nil, backend.Wrap("insert", collection, backend.ErrUnknownCollection)
	}

	ids := make(map[string]struct{}, len(existing)+len(rows))
	for _, r := range existing {
		ids[r.ID()] = struct{}{}
	}

	now := s.timestamp()
	stored := make([]backend.Row, 0, len(rows))
	for _, r := range rows {
		r = r.Clone()
		if r == nil {
			r = backend.Row{}
		}
		if r.ID() == "" {
			r["id"] = uuid.NewString()
		}
		if _, dup := ids[r.ID()]; dup {
			s.mu.Unlock()
			return nil, backend.Wrap("insert", collection, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID()))
		}
		ids[r.ID()] = struct{}{}
		if _, ok := r["created_at"]; !ok {
			r["created_at"] = now
		}
		if s.updatedAt[collection] {
			if _, ok := r["updated_at"]; !ok {
				r["updated_at"] = now
			}
		}
		stored = append(stored, r)
	}
	s.tables[collection] = append(existing, stored...)

	events := make([]backend.Event, 0, len(stored))
	out := make([]backend.Row, 0, len(stored))
	for _, r := range stored {
		events = append(events, backend.Event{Kind: backend.EventInsert, Collection: collection, New: r.Clone()})
		out = append(out, r.Clone())
	}
	s.publishLocked(collection, events)
	return out, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch backend.Row, where ...backend.Filter) ([]backend.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, backend.Wrap("update", collection, err)
	}
	for _, f := range where {
		if err := f.Validate(); err != nil {
			return nil, backend.Wrap("update", collection, err)
		}
	}

	s.mu.Lock()
	rows, ok := s.tables[collection]
	if !ok {
		s.mu.Unlock()
		return nil, backend.Wrap("update", collection, backend.ErrUnknownCollection)
	}

	for i, r := range rows {
		if r.ID() != id || !backend.MatchesAll(r, where) {
			continue
		}
		old := r.Clone()
		updated := r.Clone()
		for k, v := range patch {
			if k == "id" {
				continue
			}
			updated[k] = v
		}
		if s.updatedAt[collection] {
			if _, set := patch["updated_at"]; !set {
				updated["updated_at"] = s.timestamp()
			}
		}
		rows[i] = updated
		s.publishLocked(collection, []backend.Event{{
			Kind: backend.EventUpdate, Collection: collection, Old: old, New: updated.Clone(),
		}})
		return []backend.Row{updated.Clone()}, nil
	}
	s.mu.Unlock()
	return []backend.Row{}, nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return backend.Wrap("delete", collection, err)
	}

	s.mu.Lock()
	rows, ok := s.tables[collection]
	if !ok {
		s.mu.Unlock()
		return backend.Wrap("delete", collection, backend.ErrUnknownCollection)
	}
	for i, r := range rows {
		if r.ID() != id {
			continue
		}
		s.tables[collection] = append(rows[:i:i], rows[i+1:]...)
		s.publishLocked(collection, []backend.Event{{
			Kind: backend.EventDelete, Collection: collection, Old: r,
		}})
		return nil
	}
	s.mu.Unlock()
	return nil
}

// publishLocked queues events for matching subscribers and releases s.mu.
func (s *Store) publishLocked(collection string, events []backend.Event) {
	targets := make([]*subscription, 0, len(s.subs[collection]))
	for sub := range s.subs[collection] {
		targets = append(targets, sub)
	}
	s.pubMu.Lock()
	s.mu.Unlock()
	defer s.pubMu.Unlock()

	for _, ev := range events {
		row := ev.New
		if ev.Kind == backend.EventDelete {
			row = ev.Old
		}
		for _, sub := range targets {
			if sub.filter.Matches(row) {
				sub.push(ev)
			}
		}
	}
}

func (s *Store) Subscribe(ctx context.Context, collection string, filter backend.Filter, h backend.Handlers) (backend.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, backend.Wrap("subscribe", collection, err)
	}
	if err := filter.Validate(); err != nil {
		return nil, backend.Wrap("subscribe", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[collection]; !ok {
		return nil, backend.Wrap("subscribe", collection, backend.ErrUnknownCollection)
	}

	sub := newSubscription(s, collection, filter, h)
	if s.subs[collection] == nil {
		s.subs[collection] = make(map[*subscription]struct{})
	}
	s.subs[collection][sub] = struct{}{}
	go sub.run()
	return sub, nil
}

func (s *Store) unsubscribe(sub *subscription) {
	s.mu.Lock()
	delete(s.subs[sub.collection], sub)
	s.mu.Unlock()
}

// Subscribers returns the number of open subscriptions on a collection.
func (s *Store) Subscribers(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs[collection])
}
