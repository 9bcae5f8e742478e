package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// EventInput is the organizer supplied part of an event.
type EventInput struct {
	Name       string
	Type       string
	Date       time.Time
	Venue      string
	TotalSeats int
	Price      decimal.Decimal
}

func (in EventInput) validate(today time.Time) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return model.Validation("name is required")
	case strings.TrimSpace(in.Venue) == "":
		return model.Validation("venue is required")
	case in.TotalSeats <= 0:
		return model.Validation("total_seats must be positive")
	case in.Price.IsNegative():
		return model.Validation("price must not be negative")
	case in.Date.IsZero():
		return model.Validation("date is required")
	case model.DaysBetween(today, in.Date) < 0:
		return model.Validation("date %s is in the past", in.Date.Format("2006-01-02"))
	}
	return nil
}

// CatalogService edits and reads the event catalog.  Seat counters are
// left to the booking service once an event exists.
type CatalogService struct {
	events EventCatalog
	now    Clock
}

// NewCatalogService wires a CatalogService.
func NewCatalogService(events EventCatalog, opts ...Option) *CatalogService {
	if events == nil {
		panic("nil catalog passed to NewCatalogService")
	}
	o := buildOptions(opts)
	return &CatalogService{events: events, now: o.now}
}

// CreateEvent adds an event with every seat available.
func (s *CatalogService) CreateEvent(ctx context.Context, in EventInput) (model.Event, error) {
	if err := in.validate(s.now()); err != nil {
		return model.Event{}, err
	}
	id, err := s.events.NextEventID(ctx)
	if err != nil {
		return model.Event{}, model.Storage("allocate event id", err)
	}
	ev := model.Event{
		ID:             id,
		Name:           strings.TrimSpace(in.Name),
		Type:           strings.TrimSpace(in.Type),
		Date:           model.DateOf(in.Date),
		Venue:          strings.TrimSpace(in.Venue),
		TotalSeats:     in.TotalSeats,
		SeatsAvailable: in.TotalSeats,
		Price:          in.Price.Round(2),
	}
	if err := s.events.CreateEvent(ctx, ev); err != nil {
		return model.Event{}, model.Storage("create event", err)
	}
	log.Printf("catalog: created event %d %q on %s", ev.ID, ev.Name, ev.Date.Format("2006-01-02"))
	return ev, nil
}

// UpdateEvent replaces the descriptive fields of an event.  Capacity
// cannot change once seats may have been sold; date moves go through
// BookingService.PostponeEvent so bookers are told.
func (s *CatalogService) UpdateEvent(ctx context.Context, id int64, in EventInput) (model.Event, error) {
	ev, err := s.events.GetEvent(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if ev.Cancelled {
		return model.Event{}, model.NotAvailable("event %q has been cancelled", ev.Name)
	}
	if in.TotalSeats == 0 {
		in.TotalSeats = ev.TotalSeats
	}
	if in.Date.IsZero() {
		in.Date = ev.Date
	}
	if err := in.validate(s.now()); err != nil {
		return model.Event{}, err
	}
	if in.TotalSeats != ev.TotalSeats {
		return model.Event{}, model.Validation("total_seats cannot be changed")
	}
	if !model.DateOf(in.Date).Equal(ev.Date) {
		return model.Event{}, model.Validation("use postpone to move an event")
	}
	ev.Name = strings.TrimSpace(in.Name)
	ev.Type = strings.TrimSpace(in.Type)
	ev.Venue = strings.TrimSpace(in.Venue)
	ev.Price = in.Price.Round(2)
	if err := s.events.UpdateEvent(ctx, ev); err != nil {
		return model.Event{}, model.Storage("update event", err)
	}
	return s.events.GetEvent(ctx, id)
}

// GetEvent returns one event.
func (s *CatalogService) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	return s.events.GetEvent(ctx, id)
}

// ListEvents searches the catalog.
func (s *CatalogService) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, model.Validation("min_price is above max_price")
	}
	out, err := s.events.ListEvents(ctx, f)
	if err != nil {
		return nil, model.Storage("list events", err)
	}
	return out, nil
}

// EventTypes returns the distinct event categories.
func (s *CatalogService) EventTypes(ctx context.Context) ([]string, error) {
	out, err := s.events.EventTypes(ctx)
	if err != nil {
		return nil, model.Storage("list event types", err)
	}
	return out, nil
}

// Today is the service's notion of the current time, used to derive
// event status on read.
func (s *CatalogService) Today() time.Time { return s.now() }
