package livequery

import (
	"errors"
	"fmt"

	"github.com/VivreleHpi/crohn-companion-app/internal/backend"
	"github.com/VivreleHpi/crohn-companion-app/internal/common"
	"github.com/VivreleHpi/crohn-companion-app/internal/models"
)

var errMissingRow = errors.New("event carries no row")

// Apply folds one change event into records and returns the resulting list.
// The input slice is never modified. Records are matched by id.
//
// Inserts that fail filter are ignored; accepted inserts are appended at the
// end regardless of the query's order. Updates replace every entry with the
// event's id, so a twin left by a replayed insert does not go stale. Updates
// and deletes for unknown ids leave the list unchanged.
func Apply[T models.Record](records []T, ev backend.Event, filter *backend.Filter) ([]T, error) {
	switch ev.Kind {
	case backend.EventInsert:
		if filter != nil && !filter.Matches(ev.New) {
			return records, nil
		}
		rec, err := decodeEvent[T](ev, ev.New)
		if err != nil {
			return records, err
		}
		out := make([]T, 0, len(records)+1)
		out = append(out, records...)
		return append(out, rec), nil

	case backend.EventUpdate:
		rec, err := decodeEvent[T](ev, ev.New)
		if err != nil {
			return records, err
		}
		id := ev.New.ID()
		out := make([]T, len(records))
		copy(out, records)
		matched := false
		for i := range out {
			if out[i].RecordID() == id {
				out[i] = rec
				matched = true
			}
		}
		if !matched {
			return records, nil
		}
		return out, nil

	case backend.EventDelete:
		id := ev.Old.ID()
		if id == "" {
			return records, nil
		}
		out := make([]T, 0, len(records))
		for _, r := range records {
			if r.RecordID() != id {
				out = append(out, r)
			}
		}
		return out, nil

	default:
		return records, &common.ReconciliationError{
			Collection: ev.Collection,
			Kind:       string(ev.Kind),
			Err:        fmt.Errorf("unknown event kind %q", ev.Kind),
		}
	}
}

func decodeEvent[T models.Record](ev backend.Event, row backend.Row) (T, error) {
	var rec T
	if row == nil {
		return rec, &common.ReconciliationError{Collection: ev.Collection, Kind: string(ev.Kind), Err: errMissingRow}
	}
	if err := row.Decode(&rec); err != nil {
		return rec, &common.ReconciliationError{Collection: ev.Collection, Kind: string(ev.Kind), Err: err}
	}
	return rec, nil
}
