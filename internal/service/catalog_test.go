package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-booking-engine/internal/model"
	"github.com/iliyamo/event-booking-engine/internal/repository/memory"
	"github.com/iliyamo/event-booking-engine/internal/service"
)

func newCatalog(today time.Time) (*service.CatalogService, *memory.Store) {
	store := memory.New(model.DefaultLayout())
	return service.NewCatalogService(store, service.WithClock(func() time.Time { return today })), store
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	cat, _ := newCatalog(today)

	ev, err := cat.CreateEvent(ctx, service.EventInput{
		Name: " Jazz Night ", Type: "Concert", Venue: "Blue Hall",
		Date: today.AddDate(0, 0, 3), TotalSeats: 40, Price: dec("12.499"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.ID)
	assert.Equal(t, "Jazz Night", ev.Name)
	assert.Equal(t, 40, ev.SeatsAvailable)
	assert.True(t, dec("12.50").Equal(ev.Price))
	assert.Equal(t, model.DateOf(today.AddDate(0, 0, 3)), ev.Date)

	types, err := cat.EventTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Concert"}, types)
}

func TestCreateEventValidation(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	cat, _ := newCatalog(today)
	ok := service.EventInput{Name: "A", Venue: "V", Date: today, TotalSeats: 1, Price: dec("0")}

	cases := map[string]func(in *service.EventInput){
		"no name":        func(in *service.EventInput) { in.Name = "  " },
		"no venue":       func(in *service.EventInput) { in.Venue = "" },
		"no seats":       func(in *service.EventInput) { in.TotalSeats = 0 },
		"negative price": func(in *service.EventInput) { in.Price = dec("-1") },
		"past date":      func(in *service.EventInput) { in.Date = today.AddDate(0, 0, -1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := ok
			mutate(&in)
			_, err := cat.CreateEvent(ctx, in)
			assert.ErrorIs(t, err, model.ErrValidation)
		})
	}

	_, err := cat.CreateEvent(ctx, ok)
	assert.NoError(t, err, "an event today is still bookable")
}

func TestUpdateEventKeepsCapacityAndDate(t *testing.T) {
	ctx := context.Background()
	today := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	cat, store := newCatalog(today)
	ev, err := cat.CreateEvent(ctx, service.EventInput{Name: "A", Venue: "V", Date: today.AddDate(0, 0, 5), TotalSeats: 10, Price: dec("5")})
	require.NoError(t, err)
	_, err = store.AllocateCount(ctx, ev.ID, 4)
	require.NoError(t, err)

	got, err := cat.UpdateEvent(ctx, ev.ID, service.EventInput{Name: "B", Type: "Sports", Venue: "Stadium", Price: dec("7.5")})
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, "Stadium", got.Venue)
	assert.Equal(t, 6, got.SeatsAvailable)
	assert.Equal(t, ev.Date, got.Date)

	_, err = cat.UpdateEvent(ctx, ev.ID, service.EventInput{Name: "B", Venue: "S", TotalSeats: 20, Price: dec("1")})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = cat.UpdateEvent(ctx, ev.ID, service.EventInput{Name: "B", Venue: "S", Date: today.AddDate(0, 0, 9), Price: dec("1")})
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = cat.UpdateEvent(ctx, 99, service.EventInput{Name: "B", Venue: "S"})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListEventsRejectsInvertedRange(t *testing.T) {
	cat, _ := newCatalog(time.Now())
	lo, hi := dec("10"), dec("5")
	_, err := cat.ListEvents(context.Background(), model.EventFilter{MinPrice: &lo, MaxPrice: &hi})
	assert.ErrorIs(t, err, model.ErrValidation)
}
