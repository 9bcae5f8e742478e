// Package memory is an in-process implementation of the booking engine
// stores.  All state sits behind one mutex, so each method is atomic.
// It backs the tests and STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-booking-engine/internal/model"
)

// Store holds events, seat maps, bookings, accounts and notifications.
type Store struct {
	mu sync.Mutex

	layout        model.Layout
	events        map[int64]model.Event
	seatMaps      map[int64][]model.Seat
	bookings      map[int64]model.Booking
	accounts      map[string]model.Account
	notifications map[int64]model.Notification

	lastEventID        int64
	lastBookingID      int64
	lastNotificationID int64
}

// New returns an empty Store whose seat maps use layout.  A zero layout
// means model.DefaultLayout.
func New(layout model.Layout) *Store {
	if len(layout.Rows) == 0 || layout.SeatsPerRow <= 0 {
		layout = model.DefaultLayout()
	}
	return &Store{
		layout:        layout,
		events:        make(map[int64]model.Event),
		seatMaps:      make(map[int64][]model.Seat),
		bookings:      make(map[int64]model.Booking),
		accounts:      make(map[string]model.Account),
		notifications: make(map[int64]model.Notification),
	}
}

// ---- events ----

func (s *Store) NextEventID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventID++
	return s.lastEventID, nil
}

func (s *Store) CreateEvent(ctx context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[e.ID]; ok {
		return model.Validation("event %d already exists", e.ID)
	}
	if e.ID > s.lastEventID {
		s.lastEventID = e.ID
	}
	s.events[e.ID] = e
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id int64) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return model.Event{}, model.NotFound("event", id)
	}
	return e, nil
}

func (s *Store) ListEvents(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := strings.ToLower(strings.TrimSpace(f.Text))
	out := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		if text != "" && !strings.Contains(strings.ToLower(e.Name), text) && !strings.Contains(strings.ToLower(e.Venue), text) {
			continue
		}
		if f.Type != "" && f.Type != "All" && e.Type != f.Type {
			continue
		}
		if f.MinPrice != nil && e.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && e.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) EventTypes(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range s.events {
		if e.Type != "" && !seen[e.Type] {
			seen[e.Type] = true
			out = append(out, e.Type)
		}
	}
	sort.Strings(out)
	return out, nil
}

// UpdateEvent overwrites the descriptive fields of an event.  The seat
// counter and capacity are kept.
func (s *Store) UpdateEvent(ctx context.Context, e model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.events[e.ID]
	if !ok {
		return model.NotFound("event", e.ID)
	}
	e.SeatsAvailable = cur.SeatsAvailable
	e.TotalSeats = cur.TotalSeats
	s.events[e.ID] = e
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return model.NotFound("event", id)
	}
	delete(s.events, id)
	delete(s.seatMaps, id)
	return nil
}

// ---- inventory ----

// seatsLocked returns the seat map of an existing event, creating it on
// first use.
func (s *Store) seatsLocked(eventID int64) ([]model.Seat, error) {
	if _, ok := s.events[eventID]; !ok {
		return nil, model.NotFound("event", eventID)
	}
	seats, ok := s.seatMaps[eventID]
	if !ok {
		seats = s.layout.Seats()
		s.seatMaps[eventID] = seats
	}
	return seats, nil
}

func (s *Store) Allocate(ctx context.Context, eventID int64, holder string, seatIDs []string) (model.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats, err := s.seatsLocked(eventID)
	if err != nil {
		return model.Allocation{}, err
	}
	index := make(map[string]int, len(seats))
	for i, st := range seats {
		index[st.ID] = i
	}
	seen := make(map[string]bool, len(seatIDs))
	var unavailable []string
	for _, id := range seatIDs {
		if seen[id] {
			return model.Allocation{}, model.Validation("seat %s requested twice", id)
		}
		seen[id] = true
		i, ok := index[id]
		if !ok || seats[i].Status != model.SeatAvailable {
			unavailable = append(unavailable, id)
		}
	}
	ev := s.events[eventID]
	if len(unavailable) > 0 || ev.SeatsAvailable < len(seatIDs) {
		return model.Allocation{OK: false, Unavailable: unavailable}, nil
	}
	for _, id := range seatIDs {
		i := index[id]
		seats[i].Status = model.SeatBooked
		seats[i].Holder = holder
	}
	ev.SeatsAvailable -= len(seatIDs)
	s.events[eventID] = ev
	return model.Allocation{OK: true}, nil
}

func (s *Store) AllocateCount(ctx context.Context, eventID int64, n int) (model.Allocation, error) {
	if n <= 0 {
		return model.Allocation{}, model.Validation("seat count must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return model.Allocation{}, model.NotFound("event", eventID)
	}
	if ev.SeatsAvailable < n {
		return model.Allocation{OK: false}, nil
	}
	ev.SeatsAvailable -= n
	s.events[eventID] = ev
	return model.Allocation{OK: true}, nil
}

// Release frees the listed seats.  Only seats that were BOOKED count
// towards the available counter.
func (s *Store) Release(ctx context.Context, eventID int64, seatIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats, err := s.seatsLocked(eventID)
	if err != nil {
		return err
	}
	want := make(map[string]bool, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = true
	}
	freed := 0
	for i := range seats {
		if want[seats[i].ID] && seats[i].Status == model.SeatBooked {
			seats[i].Status = model.SeatAvailable
			seats[i].Holder = ""
			freed++
		}
	}
	s.addAvailableLocked(eventID, freed)
	return nil
}

func (s *Store) ReleaseCount(ctx context.Context, eventID int64, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[eventID]; !ok {
		return model.NotFound("event", eventID)
	}
	s.addAvailableLocked(eventID, n)
	return nil
}

func (s *Store) addAvailableLocked(eventID int64, n int) {
	ev := s.events[eventID]
	ev.SeatsAvailable += n
	if ev.SeatsAvailable > ev.TotalSeats {
		ev.SeatsAvailable = ev.TotalSeats
	}
	s.events[eventID] = ev
}

func (s *Store) SeatMap(ctx context.Context, eventID int64) (model.SeatMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seats, err := s.seatsLocked(eventID)
	if err != nil {
		return model.SeatMap{}, err
	}
	return model.SeatMap{
		EventID:     eventID,
		Rows:        append([]string(nil), s.layout.Rows...),
		SeatsPerRow: s.layout.SeatsPerRow,
		Seats:       append([]model.Seat(nil), seats...),
	}, nil
}

// ---- bookings ----

func (s *Store) NextID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBookingID++
	return s.lastBookingID, nil
}

func (s *Store) Insert(ctx context.Context, b model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; ok {
		return model.Validation("booking %d already exists", b.ID)
	}
	b.SeatIDs = append([]string(nil), b.SeatIDs...)
	s.bookings[b.ID] = b
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, model.NotFound("booking", id)
	}
	return copyBooking(b), nil
}

// Find returns matching bookings, newest first.
func (s *Store) Find(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for _, b := range s.bookings {
		if f.Match(b) {
			out = append(out, copyBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) ApplyCancellation(ctx context.Context, id int64, c model.Cancellation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return false, model.NotFound("booking", id)
	}
	if b.Cancelled {
		return false, nil
	}
	at := c.At
	b.Cancelled = true
	b.CancelledAt = &at
	b.CancellationType = c.Type
	b.RefundReason = c.Reason
	b.RefundAmount = c.Refund.RefundAmount
	b.RefundPercentage = c.Refund.RefundPercentage
	b.PaymentStatus = c.PaymentStatus
	s.bookings[id] = b
	return true, nil
}

func (s *Store) ApplyPartialCancellation(ctx context.Context, id int64, p model.PartialCancellation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return false, model.NotFound("booking", id)
	}
	if b.Cancelled || p.Seats <= 0 || b.SeatsBooked <= p.Seats {
		return false, nil
	}
	b.SeatsBooked -= p.Seats
	b.TotalPrice = b.TotalPrice.Sub(p.Amount)
	if len(p.SeatIDs) > 0 {
		b.SeatIDs = removeSeats(b.SeatIDs, p.SeatIDs)
	}
	s.bookings[id] = b
	return true, nil
}

func removeSeats(have, drop []string) []string {
	gone := make(map[string]bool, len(drop))
	for _, id := range drop {
		gone[id] = true
	}
	out := make([]string, 0, len(have))
	for _, id := range have {
		if !gone[id] {
			out = append(out, id)
		}
	}
	return out
}

func copyBooking(b model.Booking) model.Booking {
	b.SeatIDs = append([]string(nil), b.SeatIDs...)
	if b.CancelledAt != nil {
		at := *b.CancelledAt
		b.CancelledAt = &at
	}
	return b
}

// ---- accounts ----

func (s *Store) EnsureAccount(ctx context.Context, username, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		s.accounts[username] = model.Account{Username: username, Email: email, MonthlySpent: decimal.Zero}
		return nil
	}
	if acc.Email == "" && email != "" {
		acc.Email = email
		s.accounts[username] = acc
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, username string) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return model.Account{}, model.NotFound("account", username)
	}
	return acc, nil
}

// ListAccounts returns accounts by credit points descending.
func (s *Store) ListAccounts(ctx context.Context, limit int) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreditPoints != out[j].CreditPoints {
			return out[i].CreditPoints > out[j].CreditPoints
		}
		return out[i].Username < out[j].Username
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// AddActivity applies d to the lifetime and monthly counters.  Ticket
// counters are clamped at zero.
func (s *Store) AddActivity(ctx context.Context, username string, d model.ActivityDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return model.NotFound("account", username)
	}
	acc.TicketsBought = max(acc.TicketsBought+d.Tickets, 0)
	acc.MonthlyTickets = max(acc.MonthlyTickets+d.Tickets, 0)
	acc.EventsAttended = max(acc.EventsAttended+d.Events, 0)
	acc.MonthlyEvents = max(acc.MonthlyEvents+d.Events, 0)
	acc.MonthlySpent = acc.MonthlySpent.Add(d.Spent)
	s.accounts[username] = acc
	return nil
}

func (s *Store) AddPoints(ctx context.Context, username string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok {
		return model.NotFound("account", username)
	}
	acc.CreditPoints += points
	s.accounts[username] = acc
	return nil
}

func (s *Store) DeductPoints(ctx context.Context, username string, points int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[username]
	if !ok || points <= 0 || acc.CreditPoints < points {
		return false, nil
	}
	acc.CreditPoints -= points
	s.accounts[username] = acc
	return true, nil
}

func (s *Store) ResetMonthly(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, acc := range s.accounts {
		acc.MonthlyTickets = 0
		acc.MonthlyEvents = 0
		acc.MonthlySpent = decimal.Zero
		s.accounts[name] = acc
	}
	return nil
}

// ---- notifications ----

func (s *Store) AddNotification(ctx context.Context, n model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastNotificationID++
	n.ID = s.lastNotificationID
	if n.Kind == "" {
		n.Kind = model.NotificationUser
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.notifications[n.ID] = n
	return nil
}

// ListNotifications returns username's notifications newest first.  An
// empty kind matches every kind.
func (s *Store) ListNotifications(ctx context.Context, username, kind string) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.Username == username && (kind == "" || n.Kind == kind) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UnreadCount(ctx context.Context, username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, x := range s.notifications {
		if x.Username == username && !x.Read {
			n++
		}
	}
	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, username string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.Username != username {
		return model.NotFound("notification", id)
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifications {
		if n.Username == username && !n.Read {
			n.Read = true
			s.notifications[id] = n
		}
	}
	return nil
}

func (s *Store) DeleteNotification(ctx context.Context, username string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.Username != username {
		return model.NotFound("notification", id)
	}
	delete(s.notifications, id)
	return nil
}
