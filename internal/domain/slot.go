package domain

import (
	"fmt"
	"time"

	"github.com/wavetours/booking-engine/internal/money"
)

// SlotStatus is a derived view of booked/max capacity, never authoritative.
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusLimited   SlotStatus = "limited"
	SlotStatusFull      SlotStatus = "full"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// limitedThresholdPct: below this percentage of remaining capacity a slot is
// reported as "limited".
const limitedThresholdPct = 25

// Slot is a bookable (tour, date, time) unit with finite passenger capacity.
type Slot struct {
	ID          string       `json:"id"`
	TourID      string       `json:"tour_id"`
	Date        string       `json:"date"` // YYYY-MM-DD
	Time        string       `json:"time"` // HH:MM
	MaxCapacity int          `json:"max_capacity"`
	Booked      int          `json:"booked"`
	BasePrice   money.Amount `json:"base_price"` // minor units, base currency
	Cancelled   bool         `json:"cancelled"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// SlotKey builds the canonical lock/ledger key for a (tour, date, time) unit.
func SlotKey(tourID, date, tm string) string {
	return fmt.Sprintf("%s:%s:%s", tourID, date, tm)
}

// Key returns the canonical slot key.
func (s *Slot) Key() string {
	return SlotKey(s.TourID, s.Date, s.Time)
}

// Remaining returns the seats still available.
func (s *Slot) Remaining() int {
	r := s.MaxCapacity - s.Booked
	if r < 0 {
		return 0
	}
	return r
}

// Status derives the presentation status from booked/max.
func (s *Slot) Status() SlotStatus {
	if s.Cancelled {
		return SlotStatusCancelled
	}
	remaining := s.Remaining()
	switch {
	case remaining == 0:
		return SlotStatusFull
	case remaining*100 < s.MaxCapacity*limitedThresholdPct:
		return SlotStatusLimited
	default:
		return SlotStatusAvailable
	}
}

// DepartureTime parses the slot's date and time in the given location.
func (s *Slot) DepartureTime(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.Time, loc)
}
