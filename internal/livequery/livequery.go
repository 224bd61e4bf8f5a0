// Package livequery keeps an owner-scoped record list in sync with the
// backend: one initial fetch, then change-feed events folded in by Apply.
package livequery

import (
	"context"
	"fmt"
	"sync"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/common"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
	"github.com/VivreleHpi/crohn-companion-app/internal/notify"
	"github.com/VivreleHpi/crohn-companion-app/internal/repositories"
	"github.com/VivreleHpi/crohn-companion-app/internal/session"
)

type Status string

const (
	// StatusIdle means nobody is signed in; nothing was fetched.
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusSubscribed Status = "subscribed"
	// StatusDegraded means the fetch or the change feed failed; records are
	// as last known.
	StatusDegraded Status = "degraded"
	StatusClosed   Status = "closed"
)

type Deps struct {
	Backend  backend.Backend
	Session  session.Provider
	Notifier notify.Notifier
	Log      logging.Logger
}

type Options[T models.Record] struct {
	// Filter is an extra equality filter on top of the owner scope. It also
	// gates inserts arriving on the change feed.
	Filter  *backend.Filter
	Columns []string
	Order   *backend.Order
	Limit   int
	// OnChange receives a snapshot after every state change. Calls are
	// serialized.
	OnChange func(State[T])
}

type State[T models.Record] struct {
	Records   []T
	IsLoading bool
	Err       error
	Status    Status
}

type Query[T models.Record] struct {
	deps Deps
	coll models.Collection
	opts Options[T]
	log  logging.Logger

	mu     sync.Mutex
	state  State[T]
	closed bool
	sub    backend.Subscription

	emitMu    sync.Mutex
	cancel    context.CancelFunc
	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
	closeErr  error
}

// Open starts loading in the background and returns immediately. Ready is
// closed once the fetch and the subscription attempt have settled. The
// caller must Close the query; changing identity or options means Close and
// Open again.
func Open[T models.Record](ctx context.Context, deps Deps, coll models.Collection, opts Options[T]) *Query[T] {
	ctx, cancel := context.WithCancel(ctx)
	q := &Query[T]{
		deps:   deps,
		coll:   coll,
		opts:   opts,
		log:    deps.Log.With("collection", coll.Name),
		state:  State[T]{Records: []T{}, IsLoading: true, Status: StatusConnecting},
		cancel: cancel,
		ready:  make(chan struct{}),
	}
	go q.start(ctx)
	return q
}

func (q *Query[T]) Ready() <-chan struct{} {
	return q.ready
}

// State returns a snapshot of the current state.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Close tears the subscription down. Only the first call has an effect; after
// it returns no event changes the state.
func (q *Query[T]) Close() error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		sub := q.sub
		q.sub = nil
		q.state.Status = StatusClosed
		q.mu.Unlock()

		q.cancel()
		if sub != nil {
			q.closeErr = sub.Close()
		}
		q.markReady()
	})
	return q.closeErr
}

func (q *Query[T]) markReady() {
	q.readyOnce.Do(func() { close(q.ready) })
}

func (q *Query[T]) snapshotLocked() State[T] {
	s := q.state
	s.Records = append([]T(nil), q.state.Records...)
	return s
}

// commitLocked publishes the state and releases q.mu.
func (q *Query[T]) commitLocked() {
	snap := q.snapshotLocked()
	q.emitMu.Lock()
	q.mu.Unlock()
	defer q.emitMu.Unlock()
	if q.opts.OnChange != nil {
		q.opts.OnChange(snap)
	}
}

func (q *Query[T]) start(ctx context.Context) {
	defer q.markReady()

	ident, ok := q.deps.Session.CurrentIdentity(ctx)
	if !ok {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return
		}
		q.state.IsLoading = false
		q.state.Status = StatusIdle
		q.commitLocked()
		return
	}

	owner := q.coll.OwnerFilter(ident.ID)
	if err := q.load(ctx, owner); err != nil {
		return
	}
	q.subscribe(ctx, owner)
}

// load runs the initial fetch. On error the query stays unsubscribed until
// it is reopened, so State never mixes a failed fetch with later events.
func (q *Query[T]) load(ctx context.Context, owner backend.Filter) error {
	filters := []backend.Filter{owner}
	if q.opts.Filter != nil {
		filters = append(filters, *q.opts.Filter)
	}
	rows, err := q.deps.Backend.Select(ctx, q.coll.Name, backend.Query{
		Filters: filters,
		Columns: q.opts.Columns,
		Order:   q.opts.Order,
		Limit:   q.opts.Limit,
	})

	var records []T
	if err == nil {
		records = make([]T, 0, len(rows))
		for _, row := range rows {
			rec, derr := repositories.Decode[T](row)
			if derr != nil {
				err = derr
				break
			}
			records = append(records, rec)
		}
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return context.Canceled
	}
	q.state.IsLoading = false
	if err != nil {
		q.state.Err = err
		q.state.Status = StatusDegraded
	} else {
		q.state.Records = records
	}
	q.commitLocked()

	if err != nil {
		q.log.Error(ctx, "initial fetch failed", "error", err)
		q.deps.Notifier.Notify(ctx, notify.Notification{
			Title:       "Error fetching data",
			Description: fmt.Sprintf("Could not load %s: %v", q.coll.Name, err),
			Variant:     notify.VariantDestructive,
		})
	}
	return err
}

func (q *Query[T]) subscribe(ctx context.Context, owner backend.Filter) {
	sub, err := q.deps.Backend.Subscribe(ctx, q.coll.Name, owner, backend.Handlers{
		OnEvent:  q.handleEvent,
		OnStatus: q.handleStatus,
	})

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if sub != nil {
			_ = sub.Close()
		}
		return
	}
	if err != nil {
		q.state.Status = StatusDegraded
		q.commitLocked()
		q.log.Error(ctx, "subscribe failed", "error", err)
		q.warnOffline(ctx)
		return
	}
	q.sub = sub
	q.mu.Unlock()
	q.log.Debug(ctx, "subscribed", "filter", owner.String())
}

func (q *Query[T]) handleEvent(ev backend.Event) {
	ctx := context.Background()
	defer func() {
		if p := recover(); p != nil {
			q.log.Error(ctx, "change listener panicked", "kind", ev.Kind, "panic", p)
			q.warnSync(ctx, fmt.Sprint(p))
		}
	}()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	current := q.state.Records
	q.mu.Unlock()

	records, err := safeApply(current, ev, q.opts.Filter)
	if err != nil {
		q.log.Error(ctx, "change event rejected", "kind", ev.Kind, "error", err)
		q.warnSync(ctx, err.Error())
		return
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.state.Records = records
	q.commitLocked()
	q.log.Debug(ctx, "change applied", "kind", ev.Kind, "count", len(records))
}

// safeApply runs Apply and turns a panic into a ReconciliationError.
func safeApply[T models.Record](records []T, ev backend.Event, filter *backend.Filter) (out []T, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = records
			err = &common.ReconciliationError{
				Collection: ev.Collection,
				Kind:       string(ev.Kind),
				Err:        fmt.Errorf("panic: %v", p),
			}
		}
	}()
	return Apply(records, ev, filter)
}

func (q *Query[T]) handleStatus(s backend.Status, err error) {
	ctx := context.Background()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if s == backend.StatusSubscribed {
		q.state.Status = StatusSubscribed
		q.commitLocked()
		return
	}
	q.state.Status = StatusDegraded
	q.commitLocked()
	q.log.Warn(ctx, "change feed interrupted", "status", s, "error", err)
	q.warnOffline(ctx)
}

func (q *Query[T]) warnOffline(ctx context.Context) {
	q.deps.Notifier.Notify(ctx, notify.Notification{
		Title:       "Live updates unavailable",
		Description: fmt.Sprintf("Showing the last loaded %s.", q.coll.Name),
		Variant:     notify.VariantWarning,
	})
}

func (q *Query[T]) warnSync(ctx context.Context, detail string) {
	q.deps.Notifier.Notify(ctx, notify.Notification{
		Title:       "Sync issue",
		Description: detail,
		Variant:     notify.VariantWarning,
	})
}
