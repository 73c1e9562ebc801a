package library

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type BorrowRequest struct {
	UserID uuid.UUID
	BookID uuid.UUID
	Days   int
}

// Borrow lends an available book to an active user for req.Days days.
// The user row is locked before counting active loans and the book row
// before checking its status, so concurrent borrows on either cannot
// both pass.
func (s *Service) Borrow(ctx context.Context, req BorrowRequest) (Borrowing, error) {
	if req.Days <= 0 {
		return Borrowing{}, ErrResponseInvalidPeriod
	}

	var created Borrowing
	err := s.inTx(ctx, func(tx Repository) error {
		user, err := tx.LockUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return ErrResponseInactiveUser
		}

		active, err := tx.CountActiveBorrowings(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("counting active borrowings: %w", err)
		}
		if active >= MaxActiveBorrowings {
			return ErrResponseMaxActiveBorrowingsExceeded
		}

		book, err := tx.LockBook(ctx, req.BookID)
		if err != nil {
			return err
		}
		if book.Status != StatusAvailable {
			return ErrResponseBookNotAvailable
		}

		now := s.now()
		borrowing := Borrowing{
			ID:         uuid.New(),
			UserID:     user.ID,
			BookID:     book.ID,
			BorrowedAt: now,
			ReturnDue:  dueAfter(now, req.Days),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := borrowing.Validate(); err != nil {
			return err
		}

		created, err = tx.CreateBorrowing(ctx, borrowing)
		if err != nil {
			return err
		}
		_, err = tx.SetBookStatus(ctx, book.ID, StatusBorrowed, now)
		return err
	})
	if err != nil {
		s.logFailure("borrow", err, "user_id", req.UserID, "book_id", req.BookID)
		return Borrowing{}, err
	}

	s.logger.Info("borrowing created", "borrowing_id", created.ID, "user_id", created.UserID, "book_id", created.BookID, "return_due", created.ReturnDue)
	return created, nil
}

// ReturnBorrowing marks a borrowing returned. When the book has an active
// reservation the oldest one is consumed and a new HandoffBorrowDays loan
// is created for its user; that new Borrowing is the result and the book
// stays borrowed. Otherwise the book becomes available and the original
// Borrowing is the result.
//
// Returning an already returned borrowing changes nothing and reports it as is.
func (s *Service) ReturnBorrowing(ctx context.Context, id uuid.UUID) (Borrowing, error) {
	var (
		result      Borrowing
		handedOffTo *Reservation
		noop        bool
	)
	err := s.inTx(ctx, func(tx Repository) error {
		handedOffTo, noop = nil, false

		borrowing, err := tx.LockBorrowing(ctx, id)
		if err != nil {
			return err
		}
		if borrowing.Returned {
			result, noop = borrowing, true
			return nil
		}

		now := s.now()
		borrowing.Returned = true
		borrowing.UpdatedAt = now
		returned, err := tx.UpdateBorrowing(ctx, borrowing)
		if err != nil {
			return err
		}

		book, err := tx.LockBook(ctx, borrowing.BookID)
		if err != nil {
			return err
		}

		next, found, err := tx.NextActiveReservation(ctx, book.ID)
		if err != nil {
			return fmt.Errorf("finding next reservation: %w", err)
		}
		if !found {
			if _, err := tx.SetBookStatus(ctx, book.ID, StatusAvailable, now); err != nil {
				return err
			}
			result = returned
			return nil
		}

		consumed, err := tx.DeactivateReservation(ctx, next.ID, now)
		if err != nil {
			return err
		}
		handoff := Borrowing{
			ID:         uuid.New(),
			UserID:     consumed.UserID,
			BookID:     book.ID,
			BorrowedAt: now,
			ReturnDue:  dueAfter(now, HandoffBorrowDays),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := handoff.Validate(); err != nil {
			return err
		}
		result, err = tx.CreateBorrowing(ctx, handoff)
		if err != nil {
			return err
		}
		if book.Status != StatusBorrowed {
			if _, err := tx.SetBookStatus(ctx, book.ID, StatusBorrowed, now); err != nil {
				return err
			}
		}
		handedOffTo = &consumed
		return nil
	})
	if err != nil {
		s.logFailure("return", err, "borrowing_id", id)
		return Borrowing{}, err
	}

	switch {
	case noop:
		s.logger.Debug("borrowing already returned", "borrowing_id", id)
	case handedOffTo != nil:
		s.logger.Info("reservation handed off", "returned_borrowing_id", id, "reservation_id", handedOffTo.ID, "borrowing_id", result.ID, "user_id", result.UserID, "book_id", result.BookID)
	default:
		s.logger.Info("borrowing returned", "borrowing_id", id, "book_id", result.BookID)
	}
	return result, nil
}

type ReserveRequest struct {
	UserID uuid.UUID
	BookID uuid.UUID
}

// Reserve puts an active user on the waitlist of a book. The book's
// current status does not matter: reserving an available book is accepted
// and does not borrow it.
func (s *Service) Reserve(ctx context.Context, req ReserveRequest) (Reservation, error) {
	var created Reservation
	err := s.inTx(ctx, func(tx Repository) error {
		user, err := tx.LockUser(ctx, req.UserID)
		if err != nil {
			return err
		}
		if !user.IsActive {
			return ErrResponseInactiveUser
		}
		if _, err := tx.GetBookByID(ctx, req.BookID); err != nil {
			return err
		}

		exists, err := tx.HasActiveReservation(ctx, user.ID, req.BookID)
		if err != nil {
			return fmt.Errorf("checking active reservation: %w", err)
		}
		if exists {
			return ErrResponseDuplicateReservation
		}

		now := s.now()
		created, err = tx.CreateReservation(ctx, Reservation{
			ID:        uuid.New(),
			UserID:    user.ID,
			BookID:    req.BookID,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		return err
	})
	if err != nil {
		s.logFailure("reserve", err, "user_id", req.UserID, "book_id", req.BookID)
		return Reservation{}, err
	}

	s.logger.Info("reservation created", "reservation_id", created.ID, "user_id", created.UserID, "book_id", created.BookID)
	return created, nil
}

type RenewRequest struct {
	BorrowingID uuid.UUID
	ExtraDays   int
}

// Renew pushes the return date of an unreturned borrowing by req.ExtraDays.
// It is refused while a user other than the borrower holds an active
// reservation on the book.
func (s *Service) Renew(ctx context.Context, req RenewRequest) (Borrowing, error) {
	if req.ExtraDays <= 0 {
		return Borrowing{}, ErrResponseInvalidPeriod
	}

	var renewed Borrowing
	err := s.inTx(ctx, func(tx Repository) error {
		borrowing, err := tx.LockBorrowing(ctx, req.BorrowingID)
		if err != nil {
			return err
		}
		if borrowing.Returned {
			return ErrResponseBorrowingReturned
		}

		blocked, err := tx.HasOtherActiveReservation(ctx, borrowing.BookID, borrowing.UserID)
		if err != nil {
			return fmt.Errorf("checking reservations: %w", err)
		}
		if blocked {
			return ErrResponseRenewalBlocked
		}

		borrowing.ReturnDue = dueAfter(borrowing.ReturnDue, req.ExtraDays)
		borrowing.UpdatedAt = s.now()
		if err := borrowing.Validate(); err != nil {
			return err
		}
		renewed, err = tx.UpdateBorrowing(ctx, borrowing)
		return err
	})
	if err != nil {
		s.logFailure("renew", err, "borrowing_id", req.BorrowingID)
		return Borrowing{}, err
	}

	s.logger.Info("borrowing renewed", "borrowing_id", renewed.ID, "return_due", renewed.ReturnDue)
	return renewed, nil
}
