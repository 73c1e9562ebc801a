package library

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

func (s *Service) GetBorrowing(ctx context.Context, id uuid.UUID) (Borrowing, error) {
	return s.repo.GetBorrowingByID(ctx, id)
}

/* Lists borrowings newest first. uuid.Nil as userID lists every user's borrowings. */
func (s *Service) ListBorrowings(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]Borrowing, error) {
	borrowings, err := s.repo.ListBorrowings(ctx, BorrowingFilter{UserID: userID, ActiveOnly: activeOnly})
	if err != nil {
		return nil, fmt.Errorf("listing borrowings: %w", err)
	}
	return borrowings, nil
}

// ListOverdue returns the unreturned borrowings whose return date has
// passed, optionally restricted to one user.
func (s *Service) ListOverdue(ctx context.Context, userID uuid.UUID) ([]Borrowing, error) {
	borrowings, err := s.repo.ListBorrowings(ctx, BorrowingFilter{
		UserID:     userID,
		ActiveOnly: true,
		DueBefore:  s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("listing overdue borrowings: %w", err)
	}
	return borrowings, nil
}

/* Users with at least one unreturned borrowing, by username. active filters on the account flag when set. */
func (s *Service) ListBorrowers(ctx context.Context, active *bool) ([]User, error) {
	users, err := s.repo.ListBorrowers(ctx, active)
	if err != nil {
		return nil, fmt.Errorf("listing borrowers: %w", err)
	}
	return users, nil
}

func (s *Service) BorrowedBooks(ctx context.Context, userID uuid.UUID) ([]Book, error) {
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	borrowings, err := s.repo.ListBorrowings(ctx, BorrowingFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("listing borrowings: %w", err)
	}

	books := make([]Book, 0, len(borrowings))
	for _, b := range borrowings {
		book, err := s.repo.GetBookByID(ctx, b.BookID)
		if err != nil {
			return nil, fmt.Errorf("loading borrowed book %s: %w", b.BookID, err)
		}
		books = append(books, book)
	}
	return books, nil
}

func (s *Service) ListReservations(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]Reservation, error) {
	reservations, err := s.repo.ListReservations(ctx, ReservationFilter{UserID: userID, ActiveOnly: activeOnly})
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	return reservations, nil
}
