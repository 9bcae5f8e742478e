package model

import (
	"strconv"
)

// Seat states inside a seat map.
const (
	SeatAvailable = "AVAILABLE"
	SeatBooked    = "BOOKED"
)

// Seat is one addressable place in an event's seat map.  Its ID is the
// row label followed by the number, e.g. "C7".
type Seat struct {
	ID     string `json:"seat_id"`
	Row    string `json:"row"`
	Number int    `json:"number"`
	Status string `json:"status"`
	Holder string `json:"holder,omitempty"`
}

// SeatMap is the ordered seat layout of a single event.
type SeatMap struct {
	EventID     int64    `json:"event_id"`
	Rows        []string `json:"rows"`
	SeatsPerRow int      `json:"seats_per_row"`
	Seats       []Seat   `json:"seats"`
}

// Layout describes how a seat map is generated on first access.
type Layout struct {
	Rows        []string
	SeatsPerRow int
}

// DefaultLayout is five rows of ten seats, A1 through E10.
func DefaultLayout() Layout {
	return Layout{Rows: []string{"A", "B", "C", "D", "E"}, SeatsPerRow: 10}
}

// Seats expands the layout into AVAILABLE seats in row-major order.
func (l Layout) Seats() []Seat {
	out := make([]Seat, 0, len(l.Rows)*l.SeatsPerRow)
	for _, row := range l.Rows {
		for n := 1; n <= l.SeatsPerRow; n++ {
			out = append(out, Seat{ID: row + strconv.Itoa(n), Row: row, Number: n, Status: SeatAvailable})
		}
	}
	return out
}

// Seat returns the seat with the given id.
func (m SeatMap) Seat(id string) (Seat, bool) {
	for _, s := range m.Seats {
		if s.ID == id {
			return s, true
		}
	}
	return Seat{}, false
}

// AvailableCount returns the number of AVAILABLE seats in the map.
func (m SeatMap) AvailableCount() int {
	n := 0
	for _, s := range m.Seats {
		if s.Status == SeatAvailable {
			n++
		}
	}
	return n
}

// Allocation is the result of an inventory allocation attempt.  A
// rejected allocation is not an error: OK is false and Unavailable lists
// the seats that could not be taken (empty for count based requests).
type Allocation struct {
	OK          bool
	Unavailable []string
}
