package library

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repository.go -destination=mocks/mock_repository.go -package=mocks

// Tx is the handle of an open transaction. *sql.Tx, *sqlx.Tx and the
// in-memory store's wrapper all satisfy it.
type Tx interface {
	Commit() error
	Rollback() error
}

// Repository is the persistence boundary. BeginTx returns a Repository
// bound to the new transaction; every call on it runs inside that
// transaction until Commit or Rollback. The Lock* methods take an
// exclusive row lock held until the transaction ends.
//
// Not-found results are reported with the matching ErrResponse, and
// constraint violations with the domain error they stand for.
type Repository interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Repository, Tx, error)

	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	LockUser(ctx context.Context, id uuid.UUID) (User, error)
	SetUserActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) (User, error)

	CreateAuthor(ctx context.Context, a Author) (Author, error)
	GetAuthorByID(ctx context.Context, id uuid.UUID) (Author, error)
	ListAuthors(ctx context.Context) ([]Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error

	CreateBook(ctx context.Context, b Book) (Book, error)
	GetBookByID(ctx context.Context, id uuid.UUID) (Book, error)
	LockBook(ctx context.Context, id uuid.UUID) (Book, error)
	UpdateBook(ctx context.Context, b Book) (Book, error)
	SetBookStatus(ctx context.Context, id uuid.UUID, status BookStatus, updatedAt time.Time) (Book, error)
	ListBooks(ctx context.Context, filter BookFilter) ([]Book, error)
	ListBooksTotals(ctx context.Context, filter BookFilter) (int, error)

	CreateBorrowing(ctx context.Context, b Borrowing) (Borrowing, error)
	GetBorrowingByID(ctx context.Context, id uuid.UUID) (Borrowing, error)
	LockBorrowing(ctx context.Context, id uuid.UUID) (Borrowing, error)
	UpdateBorrowing(ctx context.Context, b Borrowing) (Borrowing, error)
	CountActiveBorrowings(ctx context.Context, userID uuid.UUID) (int, error)
	ListBorrowings(ctx context.Context, filter BorrowingFilter) ([]Borrowing, error)
	ListBorrowers(ctx context.Context, active *bool) ([]User, error)

	CreateReservation(ctx context.Context, r Reservation) (Reservation, error)
	NextActiveReservation(ctx context.Context, bookID uuid.UUID) (Reservation, bool, error)
	HasActiveReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	HasOtherActiveReservation(ctx context.Context, bookID, userID uuid.UUID) (bool, error)
	DeactivateReservation(ctx context.Context, id uuid.UUID, updatedAt time.Time) (Reservation, error)
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
}
