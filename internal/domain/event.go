package domain

import "time"

// Event holds a bookable event and its capacity counter. The counter is only
// moved by registration creation (+1) and cancellation/compensation (-1,
// floored at zero); the store enforces registered_count <= capacity.
type Event struct {
	ID              string
	Title           string
	BasePriceCents  int64
	Currency        string
	Capacity        int
	RegisteredCount int
	Date            time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Registrable reports whether new registrations are accepted: the event date
// must be strictly in the future.
func (e *Event) Registrable(now time.Time) error {
	if !e.Date.After(now) {
		return ErrEventNotRegistrable
	}
	return nil
}

func (e *Event) HasCapacity() bool {
	return e.RegisteredCount < e.Capacity
}
