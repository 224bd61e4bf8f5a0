// Package models defines the tracked record types and the per-collection
// configuration consumed by repositories and live queries.
package models

import "github.com/VivreleHpi/crohn-companion-app/internal/backend"

// Record is implemented by every tracked entity.
type Record interface {
	RecordID() string
}

// Collection describes one backend table.
//
// OwnerField is the column that scopes records to an identity: "id" for
// profiles and "user_id" for every other collection. Both the initial fetch
// and the change-feed subscription filter on it.
type Collection struct {
	Name       string
	OwnerField string
	// KeyedByOwner marks collections whose primary key is the identity id.
	KeyedByOwner bool
}

const (
	FieldID     = "id"
	FieldUserID = "user_id"
)

var (
	Symptoms           = Collection{Name: "symptoms", OwnerField: FieldUserID}
	Stools             = Collection{Name: "stools", OwnerField: FieldUserID}
	Medications        = Collection{Name: "medications", OwnerField: FieldUserID}
	MedicationSchedule = Collection{Name: "medication_schedule", OwnerField: FieldUserID}
	Profiles           = Collection{Name: "profiles", OwnerField: FieldID, KeyedByOwner: true}
)

// Collections lists every known collection in a stable order.
func Collections() []Collection {
	return []Collection{Symptoms, Stools, Medications, MedicationSchedule, Profiles}
}

// CollectionByName resolves a collection from its table name.
func CollectionByName(name string) (Collection, bool) {
	for _, c := range Collections() {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// OwnerFilter scopes queries and subscriptions to one identity.
func (c Collection) OwnerFilter(identityID string) backend.Filter {
	return backend.Eq(c.OwnerField, identityID)
}
