package database

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/library-service/cmd/api/library"
)

// -- Borrowings --

const borrowingColumns = "id, user_id, book_id, borrowed_at, return_due, returned, created_at, updated_at"

type borrowingRow struct {
	ID         uuid.UUID `db:"id"`
	UserID     uuid.UUID `db:"user_id"`
	BookID     uuid.UUID `db:"book_id"`
	BorrowedAt time.Time `db:"borrowed_at"`
	ReturnDue  time.Time `db:"return_due"`
	Returned   bool      `db:"returned"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r borrowingRow) toBorrowing() library.Borrowing {
	return library.Borrowing(r)
}

// CreateBorrowing relies on the partial unique index on unreturned
// borrowings per book and on the return_due check constraint: violating
// them reports ErrResponseBookNotAvailable and ErrResponseInvalidPeriod.
func (store *Store) CreateBorrowing(ctx context.Context, b library.Borrowing) (library.Borrowing, error) {
	sqlStatement := `
	INSERT INTO borrowings (` + borrowingColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + borrowingColumns
	var row borrowingRow
	err := store.get(ctx, &row, sqlStatement, b.ID, b.UserID, b.BookID, b.BorrowedAt, b.ReturnDue, b.Returned, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return library.Borrowing{}, fmt.Errorf("storing borrowing on db: %w", classify(err))
	}
	return row.toBorrowing(), nil
}

func (store *Store) GetBorrowingByID(ctx context.Context, id uuid.UUID) (library.Borrowing, error) {
	sqlStatement := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE id = $1`
	var row borrowingRow
	if err := store.get(ctx, &row, sqlStatement, id); err != nil {
		return library.Borrowing{}, fmt.Errorf("searching borrowing by ID: %w", rowError(err, library.ErrResponseBorrowingNotFound))
	}
	return row.toBorrowing(), nil
}

func (store *Store) LockBorrowing(ctx context.Context, id uuid.UUID) (library.Borrowing, error) {
	sqlStatement := `SELECT ` + borrowingColumns + ` FROM borrowings WHERE id = $1 FOR NO KEY UPDATE`
	var row borrowingRow
	if err := store.get(ctx, &row, sqlStatement, id); err != nil {
		return library.Borrowing{}, fmt.Errorf("locking borrowing: %w", rowError(err, library.ErrResponseBorrowingNotFound))
	}
	return row.toBorrowing(), nil
}

/* Writes the returned flag and the return date. A returned borrowing is never flipped back. */
func (store *Store) UpdateBorrowing(ctx context.Context, b library.Borrowing) (library.Borrowing, error) {
	sqlStatement := `
	UPDATE borrowings
	SET returned = returned OR $2, return_due = $3, updated_at = $4
	WHERE id = $1
	RETURNING ` + borrowingColumns
	var row borrowingRow
	if err := store.get(ctx, &row, sqlStatement, b.ID, b.Returned, b.ReturnDue, b.UpdatedAt); err != nil {
		return library.Borrowing{}, fmt.Errorf("updating borrowing on db: %w", rowError(err, library.ErrResponseBorrowingNotFound))
	}
	return row.toBorrowing(), nil
}

func (store *Store) CountActiveBorrowings(ctx context.Context, userID uuid.UUID) (int, error) {
	sqlStatement := `SELECT COUNT(*) FROM borrowings WHERE user_id = $1 AND NOT returned`
	var count int
	if err := store.get(ctx, &count, sqlStatement, userID); err != nil {
		return 0, fmt.Errorf("counting active borrowings from db: %w", classify(err))
	}
	return count, nil
}

func (store *Store) ListBorrowings(ctx context.Context, filter library.BorrowingFilter) ([]library.Borrowing, error) {
	exps := []goqu.Expression{}
	if filter.UserID != uuid.Nil {
		exps = append(exps, goqu.C("user_id").Eq(filter.UserID.String()))
	}
	if filter.BookID != uuid.Nil {
		exps = append(exps, goqu.C("book_id").Eq(filter.BookID.String()))
	}
	if filter.ActiveOnly {
		exps = append(exps, goqu.C("returned").IsFalse())
	}
	if !filter.DueBefore.IsZero() {
		exps = append(exps, goqu.C("return_due").Lt(filter.DueBefore))
	}

	sqlStatement, args, err := goqu.Dialect(dialectPostgres).
		From("borrowings").
		Select(columns(borrowingColumns)...).
		Where(exps...).
		Order(goqu.C("borrowed_at").Desc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return []library.Borrowing{}, fmt.Errorf("building borrowings query: %w", err)
	}

	rows := []borrowingRow{}
	if err := store.selectRows(ctx, &rows, sqlStatement, args...); err != nil {
		return []library.Borrowing{}, fmt.Errorf("listing borrowings from db: %w", classify(err))
	}

	borrowings := make([]library.Borrowing, 0, len(rows))
	for _, r := range rows {
		borrowings = append(borrowings, r.toBorrowing())
	}
	return borrowings, nil
}

/* Users holding at least one unreturned borrowing, by username. */
func (store *Store) ListBorrowers(ctx context.Context, active *bool) ([]library.User, error) {
	borrowers := goqu.Dialect(dialectPostgres).
		From("borrowings").
		Select("user_id").
		Where(goqu.C("returned").IsFalse())

	exps := []goqu.Expression{goqu.C("id").In(borrowers)}
	if active != nil {
		exps = append(exps, goqu.C("is_active").Eq(*active))
	}

	sqlStatement, args, err := goqu.Dialect(dialectPostgres).
		From("users").
		Select(columns(userColumns)...).
		Where(exps...).
		Order(goqu.C("username").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return []library.User{}, fmt.Errorf("building borrowers query: %w", err)
	}

	rows := []userRow{}
	if err := store.selectRows(ctx, &rows, sqlStatement, args...); err != nil {
		return []library.User{}, fmt.Errorf("listing borrowers from db: %w", classify(err))
	}

	users := make([]library.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

// -- Reservations --

const reservationColumns = "id, user_id, book_id, active, created_at, updated_at"

type reservationRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	BookID    uuid.UUID `db:"book_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r reservationRow) toReservation() library.Reservation {
	return library.Reservation(r)
}

func (store *Store) CreateReservation(ctx context.Context, r library.Reservation) (library.Reservation, error) {
	sqlStatement := `
	INSERT INTO reservations (` + reservationColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING ` + reservationColumns
	var row reservationRow
	if err := store.get(ctx, &row, sqlStatement, r.ID, r.UserID, r.BookID, r.Active, r.CreatedAt, r.UpdatedAt); err != nil {
		return library.Reservation{}, fmt.Errorf("storing reservation on db: %w", classify(err))
	}
	return row.toReservation(), nil
}

// NextActiveReservation locks and returns the oldest active reservation
// of a book, ties broken by id.
func (store *Store) NextActiveReservation(ctx context.Context, bookID uuid.UUID) (library.Reservation, bool, error) {
	sqlStatement := `
	SELECT ` + reservationColumns + `
	FROM reservations
	WHERE book_id = $1 AND active
	ORDER BY created_at ASC, id ASC
	LIMIT 1
	FOR UPDATE`
	rows := []reservationRow{}
	if err := store.selectRows(ctx, &rows, sqlStatement, bookID); err != nil {
		return library.Reservation{}, false, fmt.Errorf("searching next reservation: %w", classify(err))
	}
	if len(rows) == 0 {
		return library.Reservation{}, false, nil
	}
	return rows[0].toReservation(), true, nil
}

func (store *Store) HasActiveReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	sqlStatement := `SELECT EXISTS (SELECT 1 FROM reservations WHERE user_id = $1 AND book_id = $2 AND active)`
	var exists bool
	if err := store.get(ctx, &exists, sqlStatement, userID, bookID); err != nil {
		return false, fmt.Errorf("searching active reservation: %w", classify(err))
	}
	return exists, nil
}

func (store *Store) HasOtherActiveReservation(ctx context.Context, bookID, userID uuid.UUID) (bool, error) {
	sqlStatement := `SELECT EXISTS (SELECT 1 FROM reservations WHERE book_id = $1 AND user_id <> $2 AND active)`
	var exists bool
	if err := store.get(ctx, &exists, sqlStatement, bookID, userID); err != nil {
		return false, fmt.Errorf("searching active reservations: %w", classify(err))
	}
	return exists, nil
}

func (store *Store) DeactivateReservation(ctx context.Context, id uuid.UUID, updatedAt time.Time) (library.Reservation, error) {
	sqlStatement := `
	UPDATE reservations
	SET active = FALSE, updated_at = $2
	WHERE id = $1
	RETURNING ` + reservationColumns
	var row reservationRow
	if err := store.get(ctx, &row, sqlStatement, id, updatedAt); err != nil {
		return library.Reservation{}, fmt.Errorf("deactivating reservation on db: %w", rowError(err, library.ErrResponseReservationNotFound))
	}
	return row.toReservation(), nil
}

func (store *Store) ListReservations(ctx context.Context, filter library.ReservationFilter) ([]library.Reservation, error) {
	exps := []goqu.Expression{}
	if filter.UserID != uuid.Nil {
		exps = append(exps, goqu.C("user_id").Eq(filter.UserID.String()))
	}
	if filter.BookID != uuid.Nil {
		exps = append(exps, goqu.C("book_id").Eq(filter.BookID.String()))
	}
	if filter.ActiveOnly {
		exps = append(exps, goqu.C("active").IsTrue())
	}

	sqlStatement, args, err := goqu.Dialect(dialectPostgres).
		From("reservations").
		Select(columns(reservationColumns)...).
		Where(exps...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return []library.Reservation{}, fmt.Errorf("building reservations query: %w", err)
	}

	rows := []reservationRow{}
	if err := store.selectRows(ctx, &rows, sqlStatement, args...); err != nil {
		return []library.Reservation{}, fmt.Errorf("listing reservations from db: %w", classify(err))
	}

	reservations := make([]library.Reservation, 0, len(rows))
	for _, r := range rows {
		reservations = append(reservations, r.toReservation())
	}
	return reservations, nil
}
