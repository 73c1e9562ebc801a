package inmemory_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/library-service/cmd/api/inmemory"
	"github.com/library-service/cmd/api/library"
	"github.com/matryer/is"
)

var ctx context.Context = context.Background()

func newStore() *inmemory.InMemoryStore {
	store, err := inmemory.NewInMemoryStore()
	if err != nil {
		log.Fatalln(err)
	}
	return store
}

func TestUsers(t *testing.T) {
	store := newStore()
	now := time.Now().UTC().Round(time.Millisecond)

	u := library.User{
		ID:        uuid.New(),
		Username:  "reader",
		Email:     "reader@example.com",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.Run("creates and fetches a user without errors", func(t *testing.T) {
		is := is.New(t)

		newUser, err := store.CreateUser(ctx, u)
		is.NoErr(err)
		is.Equal(newUser, u)

		fetched, err := store.GetUserByID(ctx, u.ID)
		is.NoErr(err)
		compareUsers(is, fetched, u)
	})

	t.Run("refuses a second user with the same username or email", func(t *testing.T) {
		is := is.New(t)

		sameName := u
		sameName.ID = uuid.New()
		sameName.Email = "other@example.com"
		_, err := store.CreateUser(ctx, sameName)
		is.True(errors.Is(err, library.ErrResponseDuplicateUser))

		sameEmail := u
		sameEmail.ID = uuid.New()
		sameEmail.Username = "other"
		sameEmail.Email = "READER@example.com"
		_, err = store.CreateUser(ctx, sameEmail)
		is.True(errors.Is(err, library.ErrResponseDuplicateUser))
	})

	t.Run("deactivates a user", func(t *testing.T) {
		is := is.New(t)

		updatedAt := now.Add(time.Minute)
		updated, err := store.SetUserActive(ctx, u.ID, false, updatedAt)
		is.NoErr(err)
		is.True(!updated.IsActive)
		is.True(updated.UpdatedAt.Equal(updatedAt))
	})

	t.Run("fetching an non existing user should return a not found error", func(t *testing.T) {
		is := is.New(t)

		returned, err := store.GetUserByID(ctx, uuid.New())
		is.True(errors.Is(err, library.ErrResponseUserNotFound))
		is.Equal(returned, library.User{})
	})
}

func TestAuthors(t *testing.T) {
	store := newStore()

	t.Run("lists authors by name", func(t *testing.T) {
		is := is.New(t)

		for _, name := range []string{"Ursula", "Borges", "Machado"} {
			_, err := store.CreateAuthor(ctx, library.Author{ID: uuid.New(), Name: name})
			is.NoErr(err)
		}

		authors, err := store.ListAuthors(ctx)
		is.NoErr(err)
		is.Equal(len(authors), 3)
		is.Equal(authors[0].Name, "Borges")
		is.Equal(authors[2].Name, "Ursula")
	})

	t.Run("an author with books cannot be deleted", func(t *testing.T) {
		is := is.New(t)

		author := createAuthor(is, store)
		b := createBook(is, store, author.ID, "978-0")

		err := store.DeleteAuthor(ctx, author.ID)
		is.True(errors.Is(err, library.ErrResponseAuthorHasBooks))

		_, err = store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
	})

	t.Run("deletes an author without books", func(t *testing.T) {
		is := is.New(t)

		author := createAuthor(is, store)
		is.NoErr(store.DeleteAuthor(ctx, author.ID))

		_, err := store.GetAuthorByID(ctx, author.ID)
		is.True(errors.Is(err, library.ErrResponseAuthorNotFound))

		err = store.DeleteAuthor(ctx, author.ID)
		is.True(errors.Is(err, library.ErrResponseAuthorNotFound))
	})
}

func TestBooks(t *testing.T) {
	store := newStore()

	is := is.New(t)
	author := createAuthor(is, store)

	t.Run("creates a book without errors", func(t *testing.T) {
		is := is.New(t)

		b := library.Book{
			ID:        uuid.New(),
			Title:     "Ficciones",
			AuthorID:  author.ID,
			ISBN:      "978-1",
			PageCount: toPointer(224),
			Status:    library.StatusAvailable,
			CreatedAt: time.Now().UTC().Round(time.Millisecond),
			UpdatedAt: time.Now().UTC().Round(time.Millisecond),
		}

		newBook, err := store.CreateBook(ctx, b)
		is.NoErr(err)
		compareBooks(is, newBook, b)

		fetched, err := store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
		compareBooks(is, fetched, b)
	})

	t.Run("refuses a duplicated isbn", func(t *testing.T) {
		is := is.New(t)

		createBook(is, store, author.ID, "978-2")
		b := library.Book{ID: uuid.New(), Title: "Copy", AuthorID: author.ID, ISBN: "978-2", Status: library.StatusAvailable}

		_, err := store.CreateBook(ctx, b)
		is.True(errors.Is(err, library.ErrResponseDuplicateISBN))
	})

	t.Run("refuses a book of an unknown author", func(t *testing.T) {
		is := is.New(t)

		b := library.Book{ID: uuid.New(), Title: "Orphan", AuthorID: uuid.New(), ISBN: "978-3", Status: library.StatusAvailable}

		_, err := store.CreateBook(ctx, b)
		is.True(errors.Is(err, library.ErrResponseAuthorNotFound))
	})

	t.Run("updating a book keeps its status", func(t *testing.T) {
		is := is.New(t)

		b := createBook(is, store, author.ID, "978-4")
		_, err := store.SetBookStatus(ctx, b.ID, library.StatusBorrowed, time.Now().UTC())
		is.NoErr(err)

		b.Title = "A new title"
		b.Status = library.StatusAvailable
		updated, err := store.UpdateBook(ctx, b)
		is.NoErr(err)
		is.Equal(updated.Title, "A new title")
		is.Equal(updated.Status, library.StatusBorrowed)
	})

	t.Run("updating an non existing book should return a not found error", func(t *testing.T) {
		is := is.New(t)

		returned, err := store.UpdateBook(ctx, library.Book{ID: uuid.New(), AuthorID: author.ID, ISBN: "978-5"})
		is.True(errors.Is(err, library.ErrResponseBookNotFound))
		is.Equal(returned, library.Book{})
	})
}

func TestListBooks(t *testing.T) {
	store := newStore()

	is := is.New(t)
	author := createAuthor(is, store)
	listSize := 25

	t.Run("List books without errors even if there is no books in the database", func(t *testing.T) {
		is := is.New(t)

		filter := library.BookFilter{Page: 1, PageSize: 10}
		returnedBooks, err := store.ListBooks(ctx, filter)
		is.NoErr(err)
		is.Equal(returnedBooks, []library.Book{})

		total, err := store.ListBooksTotals(ctx, filter)
		is.NoErr(err)
		is.Equal(total, 0)
	})

	// Setting up, creating books to be listed. Titles are stored in reverse.
	for i := listSize - 1; i >= 0; i-- {
		b := library.Book{
			ID:       uuid.New(),
			Title:    fmt.Sprintf("Book number %06v", i),
			AuthorID: author.ID,
			ISBN:     fmt.Sprintf("isbn-%d", i),
			Category: []string{"poetry", "novel"}[i%2],
			Status:   library.StatusAvailable,
		}
		_, err := store.CreateBook(ctx, b)
		is.NoErr(err)
	}

	t.Run("lists books ordered by title and paginated", func(t *testing.T) {
		is := is.New(t)

		filter := library.BookFilter{Page: 3, PageSize: 10}
		returnedBooks, err := store.ListBooks(ctx, filter)
		is.NoErr(err)
		is.Equal(len(returnedBooks), 5)
		is.Equal(returnedBooks[0].Title, "Book number 000020")

		total, err := store.ListBooksTotals(ctx, filter)
		is.NoErr(err)
		is.Equal(total, listSize)
	})

	t.Run("filters by title case-insensitively and by category", func(t *testing.T) {
		is := is.New(t)

		filter := library.BookFilter{Title: "NUMBER 00001", Category: "Novel", Page: 1, PageSize: 10}
		returnedBooks, err := store.ListBooks(ctx, filter)
		is.NoErr(err)
		is.Equal(len(returnedBooks), 5) // 11, 13, 15, 17, 19
		for _, b := range returnedBooks {
			is.Equal(b.Category, "novel")
		}
	})
}

func TestBorrowings(t *testing.T) {
	store := newStore()

	is := is.New(t)
	author := createAuthor(is, store)
	u := createUser(is, store, "borrower")
	now := time.Now().UTC().Round(time.Millisecond)

	t.Run("refuses a second unreturned borrowing of the same book", func(t *testing.T) {
		is := is.New(t)

		b := createBook(is, store, author.ID, "978-10")
		first := newBorrowing(u.ID, b.ID, now)
		_, err := store.CreateBorrowing(ctx, first)
		is.NoErr(err)

		_, err = store.CreateBorrowing(ctx, newBorrowing(u.ID, b.ID, now))
		is.True(errors.Is(err, library.ErrResponseBookNotAvailable))

		first.Returned = true
		_, err = store.UpdateBorrowing(ctx, first)
		is.NoErr(err)

		_, err = store.CreateBorrowing(ctx, newBorrowing(u.ID, b.ID, now))
		is.NoErr(err)
	})

	t.Run("refuses a return date that is not after the borrow date", func(t *testing.T) {
		is := is.New(t)

		b := createBook(is, store, author.ID, "978-11")
		invalid := newBorrowing(u.ID, b.ID, now)
		invalid.ReturnDue = invalid.BorrowedAt

		_, err := store.CreateBorrowing(ctx, invalid)
		is.True(errors.Is(err, library.ErrResponseInvalidPeriod))
	})

	t.Run("counts and lists only the active borrowings", func(t *testing.T) {
		is := is.New(t)

		other := createUser(is, store, "counter")
		var last library.Borrowing
		for i := 0; i < 3; i++ {
			b := createBook(is, store, author.ID, fmt.Sprintf("978-2%d", i))
			var err error
			last, err = store.CreateBorrowing(ctx, newBorrowing(other.ID, b.ID, now.Add(time.Duration(i)*time.Hour)))
			is.NoErr(err)
		}
		last.Returned = true
		_, err := store.UpdateBorrowing(ctx, last)
		is.NoErr(err)

		count, err := store.CountActiveBorrowings(ctx, other.ID)
		is.NoErr(err)
		is.Equal(count, 2)

		active, err := store.ListBorrowings(ctx, library.BorrowingFilter{UserID: other.ID, ActiveOnly: true})
		is.NoErr(err)
		is.Equal(len(active), 2)
		is.True(active[0].BorrowedAt.After(active[1].BorrowedAt))

		all, err := store.ListBorrowings(ctx, library.BorrowingFilter{UserID: other.ID})
		is.NoErr(err)
		is.Equal(len(all), 3)
	})

	t.Run("a returned borrowing stays returned", func(t *testing.T) {
		is := is.New(t)

		b := createBook(is, store, author.ID, "978-12")
		borrowing, err := store.CreateBorrowing(ctx, newBorrowing(u.ID, b.ID, now))
		is.NoErr(err)

		borrowing.Returned = true
		_, err = store.UpdateBorrowing(ctx, borrowing)
		is.NoErr(err)

		borrowing.Returned = false
		updated, err := store.UpdateBorrowing(ctx, borrowing)
		is.NoErr(err)
		is.True(updated.Returned)
	})

	t.Run("lists overdue borrowings and borrowers", func(t *testing.T) {
		is := is.New(t)

		late := createUser(is, store, "late")
		b := createBook(is, store, author.ID, "978-13")
		overdue := newBorrowing(late.ID, b.ID, now.AddDate(0, 0, -30))
		_, err := store.CreateBorrowing(ctx, overdue)
		is.NoErr(err)

		borrowings, err := store.ListBorrowings(ctx, library.BorrowingFilter{ActiveOnly: true, DueBefore: now})
		is.NoErr(err)
		is.Equal(len(borrowings), 1)
		is.Equal(borrowings[0].ID, overdue.ID)

		_, err = store.SetUserActive(ctx, late.ID, false, now)
		is.NoErr(err)

		inactive := false
		borrowers, err := store.ListBorrowers(ctx, &inactive)
		is.NoErr(err)
		is.Equal(len(borrowers), 1)
		is.Equal(borrowers[0].ID, late.ID)

		everyone, err := store.ListBorrowers(ctx, nil)
		is.NoErr(err)
		is.Equal(len(everyone), 3) // borrower, counter and late
	})
}

func TestReservations(t *testing.T) {
	store := newStore()

	is := is.New(t)
	author := createAuthor(is, store)
	b := createBook(is, store, author.ID, "978-30")
	first := createUser(is, store, "first")
	second := createUser(is, store, "second")
	now := time.Now().UTC().Round(time.Millisecond)

	t.Run("no reservation is found on a book nobody reserved", func(t *testing.T) {
		is := is.New(t)

		_, found, err := store.NextActiveReservation(ctx, b.ID)
		is.NoErr(err)
		is.True(!found)
	})

	firstRes := newReservation(first.ID, b.ID, now)
	secondRes := newReservation(second.ID, b.ID, now.Add(time.Second))
	for _, r := range []library.Reservation{secondRes, firstRes} {
		_, err := store.CreateReservation(ctx, r)
		is.NoErr(err)
	}

	t.Run("refuses a second active reservation for the same user and book", func(t *testing.T) {
		is := is.New(t)

		_, err := store.CreateReservation(ctx, newReservation(first.ID, b.ID, now))
		is.True(errors.Is(err, library.ErrResponseDuplicateReservation))

		exists, err := store.HasActiveReservation(ctx, first.ID, b.ID)
		is.NoErr(err)
		is.True(exists)
	})

	t.Run("serves the oldest reservation first", func(t *testing.T) {
		is := is.New(t)

		next, found, err := store.NextActiveReservation(ctx, b.ID)
		is.NoErr(err)
		is.True(found)
		is.Equal(next.ID, firstRes.ID)

		_, err = store.DeactivateReservation(ctx, next.ID, now)
		is.NoErr(err)

		next, found, err = store.NextActiveReservation(ctx, b.ID)
		is.NoErr(err)
		is.True(found)
		is.Equal(next.ID, secondRes.ID)
	})

	t.Run("only other users' reservations count as blocking", func(t *testing.T) {
		is := is.New(t)

		blocked, err := store.HasOtherActiveReservation(ctx, b.ID, second.ID)
		is.NoErr(err)
		is.True(!blocked)

		blocked, err = store.HasOtherActiveReservation(ctx, b.ID, first.ID)
		is.NoErr(err)
		is.True(blocked)
	})

	t.Run("lists reservations newest first", func(t *testing.T) {
		is := is.New(t)

		all, err := store.ListReservations(ctx, library.ReservationFilter{BookID: b.ID})
		is.NoErr(err)
		is.Equal(len(all), 2)
		is.Equal(all[0].ID, secondRes.ID)

		active, err := store.ListReservations(ctx, library.ReservationFilter{UserID: first.ID, ActiveOnly: true})
		is.NoErr(err)
		is.Equal(len(active), 0)
	})

	t.Run("reservations made at the same instant are served by id", func(t *testing.T) {
		is := is.New(t)

		tied := createBook(is, store, author.ID, "978-31")
		lower := newReservation(second.ID, tied.ID, now)
		lower.ID = uuid.MustParse("00000000-0000-4000-8000-000000000001")
		higher := newReservation(first.ID, tied.ID, now)
		higher.ID = uuid.MustParse("ffffffff-0000-4000-8000-000000000001")
		for _, r := range []library.Reservation{higher, lower} {
			_, err := store.CreateReservation(ctx, r)
			is.NoErr(err)
		}

		for i := 0; i < 3; i++ {
			next, found, err := store.NextActiveReservation(ctx, tied.ID)
			is.NoErr(err)
			is.True(found)
			is.Equal(next.ID, lower.ID)
		}
	})
}

func TestTx(t *testing.T) {
	store := newStore()

	is := is.New(t)
	author := createAuthor(is, store)
	u := createUser(is, store, "tx")
	b := createBook(is, store, author.ID, "978-40")

	t.Run("rolled back changes are not visible", func(t *testing.T) {
		is := is.New(t)

		txRepo, tx, err := store.BeginTx(ctx, nil)
		is.NoErr(err)

		_, err = txRepo.CreateBorrowing(ctx, newBorrowing(u.ID, b.ID, time.Now().UTC()))
		is.NoErr(err)
		_, err = txRepo.SetBookStatus(ctx, b.ID, library.StatusBorrowed, time.Now().UTC())
		is.NoErr(err)

		is.NoErr(tx.Rollback())

		fetched, err := store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
		is.Equal(fetched.Status, library.StatusAvailable)

		count, err := store.CountActiveBorrowings(ctx, u.ID)
		is.NoErr(err)
		is.Equal(count, 0)
	})

	t.Run("committed changes are visible and rollback afterwards is a no-op", func(t *testing.T) {
		is := is.New(t)

		txRepo, tx, err := store.BeginTx(ctx, nil)
		is.NoErr(err)

		_, err = txRepo.SetBookStatus(ctx, b.ID, library.StatusReserved, time.Now().UTC())
		is.NoErr(err)

		// Not visible outside the transaction yet.
		fetched, err := store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
		is.Equal(fetched.Status, library.StatusAvailable)

		is.NoErr(tx.Commit())
		is.NoErr(tx.Rollback())

		fetched, err = store.GetBookByID(ctx, b.ID)
		is.NoErr(err)
		is.Equal(fetched.Status, library.StatusReserved)
	})

	t.Run("a cancelled context does not open a transaction", func(t *testing.T) {
		is := is.New(t)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := store.BeginTx(cancelled, nil)
		is.True(errors.Is(err, context.Canceled))
	})

	t.Run("waiting for an open transaction gives up with the context", func(t *testing.T) {
		is := is.New(t)

		_, holder, err := store.BeginTx(ctx, nil)
		is.NoErr(err)

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		_, _, err = store.BeginTx(short, nil)
		is.True(errors.Is(err, context.DeadlineExceeded))

		is.NoErr(holder.Rollback())

		// The abandoned wait must not keep the store locked.
		next, cancelNext := context.WithTimeout(ctx, time.Second)
		defer cancelNext()
		_, tx, err := store.BeginTx(next, nil)
		is.NoErr(err)
		is.NoErr(tx.Rollback())
	})
}

func toPointer[T any](v T) *T {
	return &v
}

func createAuthor(is *is.I, store *inmemory.InMemoryStore) library.Author {
	is.Helper()

	a, err := store.CreateAuthor(ctx, library.Author{ID: uuid.New(), Name: "Jorge Luis Borges"})
	is.NoErr(err)
	return a
}

func createBook(is *is.I, store *inmemory.InMemoryStore, authorID uuid.UUID, isbn string) library.Book {
	is.Helper()

	now := time.Now().UTC().Round(time.Millisecond)
	b, err := store.CreateBook(ctx, library.Book{
		ID:        uuid.New(),
		Title:     "Book " + isbn,
		AuthorID:  authorID,
		ISBN:      isbn,
		Status:    library.StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	})
	is.NoErr(err)
	return b
}

func createUser(is *is.I, store *inmemory.InMemoryStore, username string) library.User {
	is.Helper()

	now := time.Now().UTC().Round(time.Millisecond)
	u, err := store.CreateUser(ctx, library.User{
		ID:        uuid.New(),
		Username:  username,
		Email:     username + "@example.com",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	is.NoErr(err)
	return u
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

// compareBooks asserts that two books are equal,
// handling time.Time values correctly.
func compareBooks(is *is.I, a, b library.Book) {
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

func compareUsers(is *is.I, a, b library.User) {
	is.Helper()

	is.True(a.CreatedAt.Equal(b.CreatedAt))
	is.True(a.UpdatedAt.Equal(b.UpdatedAt))

	b.CreatedAt = a.CreatedAt
	b.UpdatedAt = a.UpdatedAt

	is.Equal(a, b)
}
