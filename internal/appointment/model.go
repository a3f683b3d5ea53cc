package appointment

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("appointment not found")

// Appointment is one recommendation given by a doctor at a visit.
type Appointment struct {
	ID         int64
	TelegramID int64
	Date       time.Time
	Doctor     string
	Text       string
	CreatedAt  time.Time
}
