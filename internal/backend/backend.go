// Package backend defines the contract between the tracker core and the hosted
// store: row CRUD, filtered queries and a per-collection change feed.
package backend

import "context"

// Backend is the hosted store. Implementations return *Error for every failure.
//
// Update changes the row with id only if it also matches every where filter,
// in one atomic step. It returns no rows when nothing qualified.
type Backend interface {
	Select(ctx context.Context, collection string, q Query) ([]Row, error)
	Insert(ctx context.Context, collection string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, collection, id string, patch Row, where ...Filter) ([]Row, error)
	Delete(ctx context.Context, collection, id string) error
	Subscribe(ctx context.Context, collection string, filter Filter, h Handlers) (Subscription, error)
}

// Query narrows a Select.
type Query struct {
	Filters []Filter
	// Columns projects the result; empty means every column.
	Columns []string
	Order   *Order
	// Limit caps the result size when positive.
	Limit int
}

type Order struct {
	Column    string
	Ascending bool
}

type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// Event is one change notification. Old is set for deletes (and updates when
// the store provides it); New is set for inserts and updates.
type Event struct {
	Kind       EventKind
	Collection string
	Old        Row
	New        Row
}

// Status is the transport state reported to a subscriber.
type Status string

const (
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusClosed       Status = "CLOSED"
)

// Handlers receive change events and transport status changes. Events of one
// subscription are delivered sequentially.
type Handlers struct {
	OnEvent  func(Event)
	OnStatus func(Status, error)
}

// Deliver calls OnEvent when set.
func (h Handlers) Deliver(ev Event) {
	if h.OnEvent != nil {
		h.OnEvent(ev)
	}
}

// Report calls OnStatus when set.
func (h Handlers) Report(s Status, err error) {
	if h.OnStatus != nil {
		h.OnStatus(s, err)
	}
}

// Subscription is a live change feed registration.
type Subscription interface {
	// Close unsubscribes. It is safe to call more than once.
	Close() error
}
