package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// Store bundles the SQL repositories sharing one database.  Each field
// satisfies one of the service ports.
type Store struct {
	*EventRepo
	*InventoryRepo
	*BookingRepo
	*AccountRepo
	*NotificationRepo
}

// NewStore builds every repository on db.
func NewStore(db *sqlx.DB, layout model.Layout) *Store {
	return &Store{
		EventRepo:        NewEventRepo(db),
		InventoryRepo:    NewInventoryRepo(db, layout),
		BookingRepo:      NewBookingRepo(db),
		AccountRepo:      NewAccountRepo(db),
		NotificationRepo: NewNotificationRepo(db),
	}
}
