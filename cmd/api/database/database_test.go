package database_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/library-service/cmd/api/database"
	"github.com/library-service/cmd/api/library"
	"github.com/matryer/is"

	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var store *database.Store
var sqlDB *sqlx.DB
var migrationsPath string
var ctx context.Context = context.Background()

// TestMain is called before all the tests run.
// The PostgreSQL tests need DATABASE_URL and DATABASE_MIGRATIONS_PATH and
// are skipped when DATABASE_URL is not set.
func TestMain(m *testing.M) {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Println("DATABASE_URL not set, skipping PostgreSQL tests")
		os.Exit(m.Run())
	}

	driverName := os.Getenv("DATABASE_DRIVER")
	if driverName == "" {
		driverName = database.DriverPQ
	}

	var err error
	sqlDB, err = database.ConnectDb(ctx, driverName, connStr, database.DefaultPoolConfig())
	if err != nil {
		log.Fatalln(err)
	}

	store = database.NewStore(sqlDB)
	migrationsPath = os.Getenv("DATABASE_MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "../../../migrations"
	}
	err = database.MigrationUp(store, migrationsPath)
	if err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalln(err)
		}
		log.Println(err)
	}

	os.Exit(m.Run())
}

func requireDB(t *testing.T) {
	t.Helper()
	if store == nil {
		t.Skip("DATABASE_URL not set")
	}
	t.Cleanup(func() { teardownDB(t) })
}

func TestUsers(t *testing.T) {
	requireDB(t)

	t.Run("creates, locks and deactivates a user", func(t *testing.T) {
		is := is.New(t)

		u := newUser("reader")
		created, err := store.CreateUser(ctx, u)
		is.NoErr(err)
		compareUsers(is, created, u)

		txRepo, tx, err := store.BeginTx(ctx, nil)
		is.NoErr(err)
		locked, err := txRepo.LockUser(ctx, u.ID)
		is.NoErr(err)
		is.Equal(locked.ID, u.ID)
		updated, err := txRepo.SetUserActive(ctx, u.ID, false, u.UpdatedAt.Add(time.Minute))
		is.NoErr(err)
		is.True(!updated.IsActive)
		is.NoErr(tx.Commit())

		fetched, err := store.GetUserByID(ctx, u.ID)
		is.NoErr(err)
		is.True(!fetched.IsActive)
	})

	t.Run("duplicated usernames are refused case-insensitively", func(t *testing.T) {
		is := is.New(t)

		_, err := store.CreateUser(ctx, newUser("twin"))
		is.NoErr(err)

		dup := newUser("TWIN")
		_, err = store.CreateUser(ctx, dup)
		is.True(errors.Is(err, library.ErrResponseDuplicateUser))
	})

	t.Run("an unknown user is not found", func(t *testing.T) {
		is := is.New(t)

		_, err := store.GetUserByID(ctx, uuid.New())
		is.True(errors.Is(err, library.ErrResponseUserNotFound))
	})
}

func TestCatalog(t *testing.T) {
	requireDB(t)

	t.Run("an author with books cannot be deleted", func(t *testing.T) {
		is := is.New(t)

		author := createAuthor(is)
		createBook(is, author.ID, "978-0-00")

		err := store.DeleteAuthor(ctx, author.ID)
		is.True(errors.Is(err, library.ErrResponseAuthorHasBooks))

		err = store.DeleteAuthor(ctx, uuid.New())
		is.True(errors.Is(err, library.ErrResponseAuthorNotFound))
	})

	t.Run("isbn is unique and the author must exist", func(t *testing.T) {
		is := is.New(t)

		author := createAuthor(is)
		b := createBook(is, author.ID, "978-0-01")

		dup := b
		dup.ID = uuid.New()
		_, err := store.CreateBook(ctx, dup)
		is.True(errors.Is(err, library.ErrResponseDuplicateISBN))

		orphan := b
		orphan.ID = uuid.New()
		orphan.ISBN = "978-0-02"
		orphan.AuthorID = uuid.New()
		_, err = store.CreateBook(ctx, orphan)
		is.True(errors.Is(err, library.ErrResponseAuthorNotFound))
	})

	t.Run("updates keep the status and lists are filtered and paged", func(t *testing.T) {
		is := is.New(t)

		author := createAuthor(is)
		for i := 0; i < 12; i++ {
			createBook(is, author.ID, fmt.Sprintf("isbn-%02d", i))
		}
		b := createBook(is, author.ID, "isbn-poetry")
		_, err := store.SetBookStatus(ctx, b.ID, library.StatusBorrowed, time.Now().UTC())
		is.NoErr(err)

		b.Title = "Updated title"
		b.Category = "Poetry"
		b.PageCount = toPointer(120)
		updated, err := store.UpdateBook(ctx, b)
		is.NoErr(err)
		is.Equal(updated.Status, library.StatusBorrowed)
		is.Equal(*updated.PageCount, 120)

		filter := library.BookFilter{AuthorID: author.ID, Page: 2, PageSize: 10}
		total, err := store.ListBooksTotals(ctx, filter)
		is.NoErr(err)
		is.Equal(total, 13)
		page, err := store.ListBooks(ctx, filter)
		is.NoErr(err)
		is.Equal(len(page), 3)

		filter = library.BookFilter{Title: "UPDATED", Category: "poetry", Status: library.StatusBorrowed, Page: 1, PageSize: 10}
		page, err = store.ListBooks(ctx, filter)
		is.NoErr(err)
		is.Equal(len(page), 1)
		is.Equal(page[0].ID, b.ID)
	})
}

func TestLedger(t *testing.T) {
	requireDB(t)

	t.Run("one unreturned borrowing per book", func(t *testing.T) {
		is := is.New(t)

		u := createUser(is, "one")
		b := createBook(is, createAuthor(is).ID, "978-1-00")

		first := newBorrowing(u.ID, b.ID, time.Now().UTC())
		_, err := store.CreateBorrowing(ctx, first)
		is.NoErr(err)

		_, err = store.CreateBorrowing(ctx, newBorrowing(u.ID, b.ID, time.Now().UTC()))
		is.True(errors.Is(err, library.ErrResponseBookNotAvailable))

		first.Returned = true
		first.UpdatedAt = time.Now().UTC()
		returned, err := store.UpdateBorrowing(ctx, first)
		is.NoErr(err)
		is.True(returned.Returned)

		// The flag never goes back.
		first.Returned = false
		stillReturned, err := store.UpdateBorrowing(ctx, first)
		is.NoErr(err)
		is.True(stillReturned.Returned)

		count, err := store.CountActiveBorrowings(ctx, u.ID)
		is.NoErr(err)
		is.Equal(count, 0)
	})

	t.Run("the return date must come after the borrow date", func(t *testing.T) {
		is := is.New(t)

		u := createUser(is, "period")
		b := createBook(is, createAuthor(is).ID, "978-1-01")

		invalid := newBorrowing(u.ID, b.ID, time.Now().UTC())
		invalid.ReturnDue = invalid.BorrowedAt
		_, err := store.CreateBorrowing(ctx, invalid)
		is.True(errors.Is(err, library.ErrResponseInvalidPeriod))
	})

	t.Run("reservations queue first in, first out", func(t *testing.T) {
		is := is.New(t)

		b := createBook(is, createAuthor(is).ID, "978-1-02")
		first := createUser(is, "first")
		second := createUser(is, "second")
		now := time.Now().UTC().Round(time.Millisecond)

		r2 := newReservation(second.ID, b.ID, now.Add(time.Second))
		r1 := newReservation(first.ID, b.ID, now)
		for _, r := range []library.Reservation{r2, r1} {
			_, err := store.CreateReservation(ctx, r)
			is.NoErr(err)
		}

		_, err := store.CreateReservation(ctx, newReservation(first.ID, b.ID, now))
		is.True(errors.Is(err, library.ErrResponseDuplicateReservation))

		txRepo, tx, err := store.BeginTx(ctx, nil)
		is.NoErr(err)
		next, found, err := txRepo.NextActiveReservation(ctx, b.ID)
		is.NoErr(err)
		is.True(found)
		is.Equal(next.ID, r1.ID)
		_, err = txRepo.DeactivateReservation(ctx, next.ID, now)
		is.NoErr(err)
		is.NoErr(tx.Commit())

		blocked, err := store.HasOtherActiveReservation(ctx, b.ID, second.ID)
		is.NoErr(err)
		is.True(!blocked)
		blocked, err = store.HasOtherActiveReservation(ctx, b.ID, first.ID)
		is.NoErr(err)
		is.True(blocked)

		reservations, err := store.ListReservations(ctx, library.ReservationFilter{BookID: b.ID})
		is.NoErr(err)
		is.Equal(len(reservations), 2)
		is.Equal(reservations[0].ID, r2.ID)
	})

	t.Run("reservations made at the same instant are served by id", func(t *testing.T) {
		is := is.New(t)

		b := createBook(is, createAuthor(is).ID, "978-1-04")
		now := time.Now().UTC().Round(time.Millisecond)

		lower := newReservation(createUser(is, "tie-lower").ID, b.ID, now)
		lower.ID = uuid.MustParse("00000000-0000-4000-8000-000000000001")
		higher := newReservation(createUser(is, "tie-higher").ID, b.ID, now)
		higher.ID = uuid.MustParse("ffffffff-0000-4000-8000-000000000001")
		for _, r := range []library.Reservation{higher, lower} {
			_, err := store.CreateReservation(ctx, r)
			is.NoErr(err)
		}

		for i := 0; i < 3; i++ {
			txRepo, tx, err := store.BeginTx(ctx, nil)
			is.NoErr(err)
			next, found, err := txRepo.NextActiveReservation(ctx, b.ID)
			is.NoErr(err)
			is.True(found)
			is.Equal(next.ID, lower.ID)
			is.NoErr(tx.Rollback())
		}
	})

	t.Run("overdue listings and borrowers", func(t *testing.T) {
		is := is.New(t)

		late := createUser(is, "late")
		b := createBook(is, createAuthor(is).ID, "978-1-03")
		now := time.Now().UTC()
		_, err := store.CreateBorrowing(ctx, newBorrowing(late.ID, b.ID, now.AddDate(0, 0, -30)))
		is.NoErr(err)

		overdue, err := store.ListBorrowings(ctx, library.BorrowingFilter{ActiveOnly: true, DueBefore: now, UserID: late.ID})
		is.NoErr(err)
		is.Equal(len(overdue), 1)

		active := true
		borrowers, err := store.ListBorrowers(ctx, &active)
		is.NoErr(err)
		found := false
		for _, u := range borrowers {
			found = found || u.ID == late.ID
		}
		is.True(found)
	})
}

func TestConcurrentBorrowWithRowLocks(t *testing.T) {
	requireDB(t)
	is := is.New(t)

	svc := library.NewService(store)
	b := createBook(is, createAuthor(is).ID, "978-2-00")

	const attempts = 10
	users := make([]library.User, attempts)
	for i := range users {
		users[i] = createUser(is, fmt.Sprintf("racer%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Borrow(ctx, library.BorrowRequest{UserID: users[i].ID, BookID: b.ID, Days: 14})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		is.True(errors.Is(err, library.ErrResponseBookNotAvailable))
	}
	is.Equal(successes, 1)

	active, err := store.ListBorrowings(ctx, library.BorrowingFilter{BookID: b.ID, ActiveOnly: true})
	is.NoErr(err)
	is.Equal(len(active), 1)
}

func TestLockedUserStillAcceptsBorrowings(t *testing.T) {
	requireDB(t)
	is := is.New(t)

	reserver := createUser(is, "reserver")
	b := createBook(is, createAuthor(is).ID, "978-2-01")

	// A borrow by the reserver holds their row while it waits for the book.
	borrowRepo, borrowTx, err := store.BeginTx(ctx, nil)
	is.NoErr(err)
	defer func() { _ = borrowTx.Rollback() }()
	_, err = borrowRepo.LockUser(ctx, reserver.ID)
	is.NoErr(err)

	// A return holding the book hands it off to the reserver.
	returnRepo, returnTx, err := store.BeginTx(ctx, nil)
	is.NoErr(err)
	defer func() { _ = returnTx.Rollback() }()
	_, err = returnRepo.LockBook(ctx, b.ID)
	is.NoErr(err)

	bounded, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err = returnRepo.CreateBorrowing(bounded, newBorrowing(reserver.ID, b.ID, time.Now().UTC()))
	is.NoErr(err)
	is.NoErr(returnTx.Commit())
}

func TestDownMigrations(t *testing.T) {
	if store == nil {
		t.Skip("DATABASE_URL not set")
	}
	is := is.New(t)
	driver, err := postgres.WithInstance(sqlDB.DB, &postgres.Config{})
	is.NoErr(err)

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres", driver)
	is.NoErr(err)

	t.Cleanup(func() {
		is.NoErr(m.Up())
	})

	err = m.Down()
	is.NoErr(err)
	sqlStatement := `SELECT EXISTS (
		SELECT FROM
			pg_tables
		WHERE
			schemaname = 'public' AND
			tablename  = 'borrowings'
		);`
	var tableExists bool
	err = sqlDB.QueryRow(sqlStatement).Scan(&tableExists)
	is.NoErr(err)
	is.True(!tableExists)
}

func toPointer[T any](v T) *T {
	return &v
}

func newUser(username string) library.User {
	now := time.Now().UTC().Round(time.Millisecond)
	return library.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createUser(is *is.I, username string) library.User {
	is.Helper()

	u, err := store.CreateUser(ctx, newUser(username))
	is.NoErr(err)
	return u
}

func createAuthor(is *is.I) library.Author {
	is.Helper()

	a, err := store.CreateAuthor(ctx, library.Author{ID: uuid.New(), Name: "Machado de Assis"})
	is.NoErr(err)
	return a
}

func createBook(is *is.I, authorID uuid.UUID, isbn string) library.Book {
	is.Helper()

	now := time.Now().UTC().Round(time.Millisecond)
	b, err := store.CreateBook(ctx, library.Book{
		ID:        uuid.New(),
		Title:     "Dom Casmurro " + isbn,
		AuthorID:  authorID,
		ISBN:      isbn,
		Status:    library.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	})
	is.NoErr(err)
	return b
}

func newBorrowing(userID, bookID uuid.UUID, borrowedAt time.Time) library.Borrowing {
	return library.Borrowing{
		ID:         uuid.New(),
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: borrowedAt,
		ReturnDue:  borrowedAt.AddDate(0, 0, library.DefaultBorrowDays),
		CreatedAt:  borrowedAt,
		UpdatedAt:  borrowedAt,
	}
}

func newReservation(userID, bookID uuid.UUID, createdAt time.Time) library.Reservation {
	return library.Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		BookID:    bookID,
		Active:    true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func compareUsers(is *is.I, a, b library.User) {
	is.Helper()

	// Make sure we have the correct timestamps.
	is.True(a.CreatedAt.Equal(b.CreatedAt))
	is.True(a.UpdatedAt.Equal(b.UpdatedAt))

	// Overwrite to be able to compare them.
	b.CreatedAt = a.CreatedAt
	b.UpdatedAt = a.UpdatedAt

	// Assert that they are equal.
	is.Equal(a, b)
}

func teardownDB(t *testing.T) {
	is := is.New(t)

	// Truncating every table, cleaning up all the records.
	_, err := sqlDB.Exec(`TRUNCATE TABLE reservations, borrowings, books, authors, users CASCADE`)
	is.NoErr(err)
}
