package library

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxActiveBorrowings = 5
	DefaultBorrowDays   = 14
	DefaultRenewDays    = 7
	// Loans created when a returned book is handed to the next reserver.
	HandoffBorrowDays = 14
)

// Borrowing records one loan. Returned only ever moves from false to true,
// and ReturnDue is only extended by renewals.
type Borrowing struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	BookID     uuid.UUID
	BorrowedAt time.Time
	ReturnDue  time.Time
	Returned   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

/* Rejects a borrowing whose return date is not after its borrow date. */
func (b Borrowing) Validate() error {
	if !b.ReturnDue.After(b.BorrowedAt) {
		return ErrResponseInvalidPeriod
	}
	return nil
}

func (b Borrowing) Active() bool {
	return !b.Returned
}

func (b Borrowing) Overdue(now time.Time) bool {
	return !b.Returned && b.ReturnDue.Before(now)
}

// Reservation is a waitlist entry for a book. It is consumed (Active set
// to false) when the book is handed to its user on a return.
type Reservation struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	BookID    uuid.UUID
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BorrowingFilter selects borrowings, newest first. Zero values match everything.
type BorrowingFilter struct {
	UserID     uuid.UUID
	BookID     uuid.UUID
	ActiveOnly bool
	DueBefore  time.Time
}

// ReservationFilter selects reservations, newest first.
type ReservationFilter struct {
	UserID     uuid.UUID
	BookID     uuid.UUID
	ActiveOnly bool
}

func dueAfter(from time.Time, days int) time.Time {
	return from.AddDate(0, 0, days)
}
