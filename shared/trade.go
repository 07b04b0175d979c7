package shared

import "time"

// Trade represents the closed record of a concluded position. It is append-only
// history, never mutated after creation.
type Trade struct {
	ID         string
	Market     string
	Direction  Direction
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PNL        float64
	ExitReason Reason
	CreatedOn  time.Time
	ClosedOn   time.Time
}
