package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/logging"
)

// listener is the part of *pgx.Conn used by a subscription.
type listener interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type connectFunc func(ctx context.Context, dsn string) (listener, error)

func pgxConnect(ctx context.Context, dsn string) (listener, error) {
	return pgx.Connect(ctx, dsn)
}

var errMissingID = errors.New("notification carries no id")

// notification is the trigger payload. Rows carry only id and the owner
// column.
type notification struct {
	Table string          `json:"table"`
	Type  string          `json:"type"`
	New   json.RawMessage `json:"new"`
	Old   json.RawMessage `json:"old"`
}

func decodeNotification(payload string) (backend.Event, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return backend.Event{}, fmt.Errorf("decode notification: %w", err)
	}
	ev := backend.Event{Kind: backend.EventKind(strings.ToUpper(n.Type)), Collection: n.Table}
	switch ev.Kind {
	case backend.EventInsert, backend.EventUpdate, backend.EventDelete:
	default:
		return backend.Event{}, fmt.Errorf("unknown change type %q", n.Type)
	}

	var err error
	if ev.New, err = rawRow(n.New); err != nil {
		return backend.Event{}, err
	}
	if ev.Old, err = rawRow(n.Old); err != nil {
		return backend.Event{}, err
	}
	return ev, nil
}

func rawRow(raw json.RawMessage) (backend.Row, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return backend.ParseRow(raw)
}

// Subscribe opens a dedicated connection listening on Channel and forwards
// events for collection that match filter.
func (s *Store) Subscribe(ctx context.Context, collection string, filter backend.Filter, h backend.Handlers) (backend.Subscription, error) {
	if err := s.known("subscribe", collection); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, backend.Wrap("subscribe", collection, err)
	}

	conn, err := s.connect(ctx, s.dsn)
	if err != nil {
		return nil, backend.Wrap("subscribe", collection, err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, backend.Wrap("subscribe", collection, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		store:      s,
		conn:       conn,
		collection: collection,
		filter:     filter,
		handlers:   h,
		cancel:     cancel,
		done:       make(chan struct{}),
		log:        s.log.With("collection", collection, "filter", filter.String()),
	}
	go sub.run(loopCtx)
	return sub, nil
}

type subscription struct {
	store      *Store
	conn       listener
	collection string
	filter     backend.Filter
	handlers   backend.Handlers
	cancel     context.CancelFunc
	done       chan struct{}
	once       sync.Once
	log        logging.Logger
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.conn.Close(context.Background())

	s.handlers.Report(backend.StatusSubscribed, nil)
	for {
		n, err := s.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.handlers.Report(backend.StatusClosed, nil)
				return
			}
			s.log.Error(ctx, "change feed failed", "error", err)
			s.handlers.Report(backend.StatusChannelError, err)
			return
		}

		ev, err := decodeNotification(n.Payload)
		if err != nil {
			s.log.Warn(ctx, "skipping notification", "error", err)
			continue
		}
		if ev.Collection != s.collection {
			continue
		}
		ok, err := s.resolve(ctx, &ev)
		if err != nil {
			s.log.Warn(ctx, "skipping notification", "error", err, "kind", string(ev.Kind))
			continue
		}
		if ok {
			s.handlers.Deliver(ev)
		}
	}
}

// resolve turns the key-only rows of a notification into an event the
// handlers can apply. Inserted and updated rows are reloaded by id within the
// subscription filter; a row that is gone or outside the filter is skipped.
// Deleted rows keep their keys, and a filter on a column the keys do not
// carry lets the delete through, since deleting an unknown id is a no-op.
func (s *subscription) resolve(ctx context.Context, ev *backend.Event) (bool, error) {
	if ev.Kind == backend.EventDelete {
		if ev.Old == nil {
			return false, nil
		}
		if _, has := ev.Old[s.filter.Column]; has && !s.filter.Matches(ev.Old) {
			return false, nil
		}
		return true, nil
	}

	id := ev.New.ID()
	if id == "" {
		return false, errMissingID
	}
	rows, err := s.store.Select(ctx, s.collection, backend.Query{
		Filters: []backend.Filter{backend.Eq("id", id), s.filter},
	})
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	ev.New = rows[0]
	return true, nil
}

func (s *subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}
