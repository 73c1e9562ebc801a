package inmemory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-memdb"
	"github.com/library-service/cmd/api/library"
)

// InMemoryStore implements library.Repository on go-memdb. memdb admits a
// single write transaction at a time, so a transaction opened by BeginTx
// holds what amounts to an exclusive lock on every row until it ends.
type InMemoryStore struct {
	db  *memdb.MemDB
	exc *memdb.Txn
}

func NewInMemoryStore() (*InMemoryStore, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"user": {
				Name: "user",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"username": {
						Name:         "username",
						Unique:       true,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Username", Lowercase: true},
					},
					"email": {
						Name:         "email",
						Unique:       true,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Email", Lowercase: true},
					},
				},
			},
			"author": {
				Name: "author",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
			"book": {
				Name: "book",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"isbn": {
						Name:         "isbn",
						Unique:       true,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "ISBN"},
					},
					"author_id": {
						Name:    "author_id",
						Unique:  false,
						Indexer: &memdb.StringFieldIndex{Field: "AuthorID"},
					},
				},
			},
			"borrowing": {
				Name: "borrowing",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"returned": {
						Name:    "returned",
						Unique:  false,
						Indexer: &memdb.BoolFieldIndex{Field: "Returned"},
					},
					"user_returned": { // Composite index for counting a user's active loans
						Name:   "user_returned",
						Unique: false,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "UserID"},
								&memdb.BoolFieldIndex{Field: "Returned"},
							},
						},
					},
					"book_returned": {
						Name:   "book_returned",
						Unique: false,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "BookID"},
								&memdb.BoolFieldIndex{Field: "Returned"},
							},
						},
					},
				},
			},
			"reservation": {
				Name: "reservation",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					"book_active": {
						Name:   "book_active",
						Unique: false,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "BookID"},
								&memdb.BoolFieldIndex{Field: "Active"},
							},
						},
					},
					"user_book_active": {
						Name:   "user_book_active",
						Unique: false,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "UserID"},
								&memdb.StringFieldIndex{Field: "BookID"},
								&memdb.BoolFieldIndex{Field: "Active"},
							},
						},
					},
				},
			},
		},
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("validating in-memory schema: %w", err)
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize in-memory database: %w", err)
	}
	return &InMemoryStore{db: db, exc: nil}, nil
}

// txn returns the transaction the store is bound to. When the store is not
// bound to one (the call is not part of a larger transaction) a new one is
// opened, and insideTx is false: the caller must Abort it when done and
// Commit it on success.
func (store *InMemoryStore) txn(write bool) (exc *memdb.Txn, insideTx bool) {
	if store.exc != nil {
		return store.exc, true
	}
	return store.db.Txn(write), false
}

// -- Users --

type AdaptedUser struct {
	ID        string
	Username  string
	Email     string
	FullName  string
	IsActive  bool
	IsStaff   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func adaptUserIdToString(u library.User) AdaptedUser {
	return AdaptedUser{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func adaptUserIdToUUID(u AdaptedUser) library.User {
	return library.User{
		ID:        uuid.MustParse(u.ID),
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (store *InMemoryStore) CreateUser(ctx context.Context, u library.User) (library.User, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	for _, index := range []struct{ name, value string }{{"username", u.Username}, {"email", u.Email}} {
		raw, err := exc.First("user", index.name, index.value)
		if err != nil {
			return library.User{}, fmt.Errorf("storing user on db: %w", err)
		}
		if raw != nil {
			return library.User{}, fmt.Errorf("storing user on db: %w", library.ErrResponseDuplicateUser)
		}
	}

	if err := exc.Insert("user", adaptUserIdToString(u)); err != nil {
		return library.User{}, fmt.Errorf("storing user on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return u, nil
}

func (store *InMemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (library.User, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	return getUser(exc, id)
}

/* Inside a transaction the row is already exclusive to the caller. */
func (store *InMemoryStore) LockUser(ctx context.Context, id uuid.UUID) (library.User, error) {
	return store.GetUserByID(ctx, id)
}

func getUser(exc *memdb.Txn, id uuid.UUID) (library.User, error) {
	raw, err := exc.First("user", "id", id.String())
	if err != nil {
		return library.User{}, fmt.Errorf("searching user by ID: %w", err)
	}
	if raw == nil {
		return library.User{}, fmt.Errorf("searching user by ID: %w", library.ErrResponseUserNotFound)
	}
	return adaptUserIdToUUID(raw.(AdaptedUser)), nil
}

func (store *InMemoryStore) SetUserActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) (library.User, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("user", "id", id.String())
	if err != nil {
		return library.User{}, fmt.Errorf("updating user on db: %w", err)
	}
	if raw == nil {
		return library.User{}, fmt.Errorf("updating user on db: %w", library.ErrResponseUserNotFound)
	}

	updatedUser := raw.(AdaptedUser)
	updatedUser.IsActive = active
	updatedUser.UpdatedAt = updatedAt

	if err := exc.Insert("user", updatedUser); err != nil {
		return library.User{}, fmt.Errorf("updating user on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return adaptUserIdToUUID(updatedUser), nil
}

// -- Authors --

type AdaptedAuthor struct {
	ID          string
	Name        string
	Biography   string
	BirthDate   *time.Time
	Nationality string
}

func adaptAuthorIdToString(a library.Author) AdaptedAuthor {
	return AdaptedAuthor{
		ID:          a.ID.String(),
		Name:        a.Name,
		Biography:   a.Biography,
		BirthDate:   a.BirthDate,
		Nationality: a.Nationality,
	}
}

func adaptAuthorIdToUUID(a AdaptedAuthor) library.Author {
	return library.Author{
		ID:          uuid.MustParse(a.ID),
		Name:        a.Name,
		Biography:   a.Biography,
		BirthDate:   a.BirthDate,
		Nationality: a.Nationality,
	}
}

func (store *InMemoryStore) CreateAuthor(ctx context.Context, a library.Author) (library.Author, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	if err := exc.Insert("author", adaptAuthorIdToString(a)); err != nil {
		return library.Author{}, fmt.Errorf("storing author on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return a, nil
}

func (store *InMemoryStore) GetAuthorByID(ctx context.Context, id uuid.UUID) (library.Author, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("author", "id", id.String())
	if err != nil {
		return library.Author{}, fmt.Errorf("searching author by ID: %w", err)
	}
	if raw == nil {
		return library.Author{}, fmt.Errorf("searching author by ID: %w", library.ErrResponseAuthorNotFound)
	}
	return adaptAuthorIdToUUID(raw.(AdaptedAuthor)), nil
}

func (store *InMemoryStore) ListAuthors(ctx context.Context) ([]library.Author, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	it, err := exc.Get("author", "id")
	if err != nil {
		return []library.Author{}, fmt.Errorf("listing authors from db: %w", err)
	}

	authors := []library.Author{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		authors = append(authors, adaptAuthorIdToUUID(obj.(AdaptedAuthor)))
	}

	sort.SliceStable(authors, func(i, j int) bool {
		return authors[i].Name < authors[j].Name
	})
	return authors, nil
}

/* Authors are protected from deletion while any book references them. */
func (store *InMemoryStore) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	book, err := exc.First("book", "author_id", id.String())
	if err != nil {
		return fmt.Errorf("deleting author from db: %w", err)
	}
	if book != nil {
		return fmt.Errorf("deleting author from db: %w", library.ErrResponseAuthorHasBooks)
	}

	count, err := exc.DeleteAll("author", "id", id.String())
	if err != nil {
		return fmt.Errorf("deleting author from db: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("deleting author from db: %w", library.ErrResponseAuthorNotFound)
	}

	if !insideTx {
		exc.Commit()
	}
	return nil
}

// -- Books --

type AdaptedBook struct {
	ID              string
	Title           string
	Subtitle        string
	AuthorID        string
	Description     string
	Category        string
	Publisher       string
	PublicationDate *time.Time
	ISBN            string
	PageCount       *int
	LastEdition     *time.Time
	Language        string
	CoverURL        string
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func adaptBookIdToString(b library.Book) AdaptedBook {
	return AdaptedBook{
		ID:              b.ID.String(),
		Title:           b.Title,
		Subtitle:        b.Subtitle,
		AuthorID:        b.AuthorID.String(),
		Description:     b.Description,
		Category:        b.Category,
		Publisher:       b.Publisher,
		PublicationDate: b.PublicationDate,
		ISBN:            b.ISBN,
		PageCount:       b.PageCount,
		LastEdition:     b.LastEdition,
		Language:        b.Language,
		CoverURL:        b.CoverURL,
		Status:          string(b.Status),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func adaptBookIdToUUID(b AdaptedBook) library.Book {
	return library.Book{
		ID:              uuid.MustParse(b.ID),
		Title:           b.Title,
		Subtitle:        b.Subtitle,
		AuthorID:        uuid.MustParse(b.AuthorID),
		Description:     b.Description,
		Category:        b.Category,
		Publisher:       b.Publisher,
		PublicationDate: b.PublicationDate,
		ISBN:            b.ISBN,
		PageCount:       b.PageCount,
		LastEdition:     b.LastEdition,
		Language:        b.Language,
		CoverURL:        b.CoverURL,
		Status:          library.BookStatus(b.Status),
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

/* memdb does not enforce secondary unique indexes or references, so books check both here. */
func checkBookConstraints(exc *memdb.Txn, b library.Book) error {
	author, err := exc.First("author", "id", b.AuthorID.String())
	if err != nil {
		return err
	}
	if author == nil {
		return library.ErrResponseAuthorNotFound
	}

	raw, err := exc.First("book", "isbn", b.ISBN)
	if err != nil {
		return err
	}
	if raw != nil && raw.(AdaptedBook).ID != b.ID.String() {
		return library.ErrResponseDuplicateISBN
	}
	return nil
}

func (store *InMemoryStore) CreateBook(ctx context.Context, bookEntry library.Book) (library.Book, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	if err := checkBookConstraints(exc, bookEntry); err != nil {
		return library.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	if err := exc.Insert("book", adaptBookIdToString(bookEntry)); err != nil {
		return library.Book{}, fmt.Errorf("storing book on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return bookEntry, nil
}

func (store *InMemoryStore) GetBookByID(ctx context.Context, id uuid.UUID) (library.Book, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("book", "id", id.String())
	if err != nil {
		return library.Book{}, fmt.Errorf("searching book by ID: %w", err)
	}
	if raw == nil {
		return library.Book{}, fmt.Errorf("searching book by ID: %w", library.ErrResponseBookNotFound)
	}
	return adaptBookIdToUUID(raw.(AdaptedBook)), nil
}

func (store *InMemoryStore) LockBook(ctx context.Context, id uuid.UUID) (library.Book, error) {
	return store.GetBookByID(ctx, id)
}

func (store *InMemoryStore) UpdateBook(ctx context.Context, bookEntry library.Book) (library.Book, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("book", "id", bookEntry.ID.String())
	if err != nil {
		return library.Book{}, fmt.Errorf("updating book on db: %w", err)
	}
	if raw == nil {
		return library.Book{}, fmt.Errorf("updating book on db: %w", library.ErrResponseBookNotFound)
	}
	if err := checkBookConstraints(exc, bookEntry); err != nil {
		return library.Book{}, fmt.Errorf("updating book on db: %w", err)
	}

	current := raw.(AdaptedBook)
	updatedBook := adaptBookIdToString(bookEntry)
	//CreatedAt and Status will not change
	updatedBook.CreatedAt = current.CreatedAt
	updatedBook.Status = current.Status

	if err := exc.Insert("book", updatedBook); err != nil {
		return library.Book{}, fmt.Errorf("updating book on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return adaptBookIdToUUID(updatedBook), nil
}

func (store *InMemoryStore) SetBookStatus(ctx context.Context, id uuid.UUID, status library.BookStatus, updatedAt time.Time) (library.Book, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("book", "id", id.String())
	if err != nil {
		return library.Book{}, fmt.Errorf("setting book status on db: %w", err)
	}
	if raw == nil {
		return library.Book{}, fmt.Errorf("setting book status on db: %w", library.ErrResponseBookNotFound)
	}

	updatedBook := raw.(AdaptedBook)
	updatedBook.Status = string(status)
	updatedBook.UpdatedAt = updatedAt

	if err := exc.Insert("book", updatedBook); err != nil {
		return library.Book{}, fmt.Errorf("setting book status on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return adaptBookIdToUUID(updatedBook), nil
}

func matchesBookFilter(b AdaptedBook, filter library.BookFilter) bool {
	if filter.Title != "" && !strings.Contains(strings.ToLower(b.Title), strings.ToLower(filter.Title)) {
		return false
	}
	if filter.Category != "" && !strings.EqualFold(b.Category, filter.Category) {
		return false
	}
	if filter.AuthorID != uuid.Nil && b.AuthorID != filter.AuthorID.String() {
		return false
	}
	if filter.Status != "" && b.Status != string(filter.Status) {
		return false
	}
	return true
}

func (store *InMemoryStore) filteredBooks(filter library.BookFilter) ([]library.Book, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	it, err := exc.Get("book", "id")
	if err != nil {
		return nil, err
	}

	books := []library.Book{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		b := obj.(AdaptedBook)
		if !matchesBookFilter(b, filter) {
			continue
		}
		books = append(books, adaptBookIdToUUID(b))
	}
	return books, nil
}

/* Books are listed by title. Ties keep the id order of the index. */
func (store *InMemoryStore) ListBooks(ctx context.Context, filter library.BookFilter) ([]library.Book, error) {
	books, err := store.filteredBooks(filter)
	if err != nil {
		return []library.Book{}, fmt.Errorf("listing books from db: %w", err)
	}

	sort.SliceStable(books, func(i, j int) bool {
		return books[i].Title < books[j].Title
	})

	// Apply pagination
	start := (filter.Page - 1) * filter.PageSize
	if start < 0 || start >= len(books) {
		return []library.Book{}, nil
	}
	end := start + filter.PageSize
	if end > len(books) {
		end = len(books)
	}
	return books[start:end], nil
}

func (store *InMemoryStore) ListBooksTotals(ctx context.Context, filter library.BookFilter) (int, error) {
	books, err := store.filteredBooks(filter)
	if err != nil {
		return 0, fmt.Errorf("counting books from db: %w", err)
	}
	return len(books), nil
}

// -- Borrowings --

type AdaptedBorrowing struct {
	ID         string
	UserID     string
	BookID     string
	BorrowedAt time.Time
	ReturnDue  time.Time
	Returned   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func adaptBorrowingIdToString(b library.Borrowing) AdaptedBorrowing {
	return AdaptedBorrowing{
		ID:         b.ID.String(),
		UserID:     b.UserID.String(),
		BookID:     b.BookID.String(),
		BorrowedAt: b.BorrowedAt,
		ReturnDue:  b.ReturnDue,
		Returned:   b.Returned,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func adaptBorrowingIdToUUID(b AdaptedBorrowing) library.Borrowing {
	return library.Borrowing{
		ID:         uuid.MustParse(b.ID),
		UserID:     uuid.MustParse(b.UserID),
		BookID:     uuid.MustParse(b.BookID),
		BorrowedAt: b.BorrowedAt,
		ReturnDue:  b.ReturnDue,
		Returned:   b.Returned,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

// CreateBorrowing refuses a second unreturned borrowing for the same book
// and a return date that is not after the borrow date.
func (store *InMemoryStore) CreateBorrowing(ctx context.Context, b library.Borrowing) (library.Borrowing, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	if err := b.Validate(); err != nil {
		return library.Borrowing{}, fmt.Errorf("storing borrowing on db: %w", err)
	}

	for _, ref := range []struct {
		table string
		id    uuid.UUID
		err   error
	}{
		{"user", b.UserID, library.ErrResponseUserNotFound},
		{"book", b.BookID, library.ErrResponseBookNotFound},
	} {
		raw, err := exc.First(ref.table, "id", ref.id.String())
		if err != nil {
			return library.Borrowing{}, fmt.Errorf("storing borrowing on db: %w", err)
		}
		if raw == nil {
			return library.Borrowing{}, fmt.Errorf("storing borrowing on db: %w", ref.err)
		}
	}

	active, err := exc.First("borrowing", "book_returned", b.BookID.String(), false)
	if err != nil {
		return library.Borrowing{}, fmt.Errorf("storing borrowing on db: %w", err)
	}
	if active != nil && !b.Returned {
		return library.Borrowing{}, fmt.Errorf("storing borrowing on db: %w", library.ErrResponseBookNotAvailable)
	}

	if err := exc.Insert("borrowing", adaptBorrowingIdToString(b)); err != nil {
		return library.Borrowing{}, fmt.Errorf("storing borrowing on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return b, nil
}

func (store *InMemoryStore) GetBorrowingByID(ctx context.Context, id uuid.UUID) (library.Borrowing, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("borrowing", "id", id.String())
	if err != nil {
		return library.Borrowing{}, fmt.Errorf("searching borrowing by ID: %w", err)
	}
	if raw == nil {
		return library.Borrowing{}, fmt.Errorf("searching borrowing by ID: %w", library.ErrResponseBorrowingNotFound)
	}
	return adaptBorrowingIdToUUID(raw.(AdaptedBorrowing)), nil
}

func (store *InMemoryStore) LockBorrowing(ctx context.Context, id uuid.UUID) (library.Borrowing, error) {
	return store.GetBorrowingByID(ctx, id)
}

/* Only the returned flag, the return date and UpdatedAt of a borrowing ever change. */
func (store *InMemoryStore) UpdateBorrowing(ctx context.Context, b library.Borrowing) (library.Borrowing, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("borrowing", "id", b.ID.String())
	if err != nil {
		return library.Borrowing{}, fmt.Errorf("updating borrowing on db: %w", err)
	}
	if raw == nil {
		return library.Borrowing{}, fmt.Errorf("updating borrowing on db: %w", library.ErrResponseBorrowingNotFound)
	}

	updated := raw.(AdaptedBorrowing)
	updated.Returned = updated.Returned || b.Returned
	updated.ReturnDue = b.ReturnDue
	updated.UpdatedAt = b.UpdatedAt
	if err := adaptBorrowingIdToUUID(updated).Validate(); err != nil {
		return library.Borrowing{}, fmt.Errorf("updating borrowing on db: %w", err)
	}

	if err := exc.Insert("borrowing", updated); err != nil {
		return library.Borrowing{}, fmt.Errorf("updating borrowing on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return adaptBorrowingIdToUUID(updated), nil
}

func (store *InMemoryStore) CountActiveBorrowings(ctx context.Context, userID uuid.UUID) (int, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	it, err := exc.Get("borrowing", "user_returned", userID.String(), false)
	if err != nil {
		return 0, fmt.Errorf("counting active borrowings from db: %w", err)
	}

	count := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		count++
	}
	return count, nil
}

func (store *InMemoryStore) ListBorrowings(ctx context.Context, filter library.BorrowingFilter) ([]library.Borrowing, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	var (
		it  memdb.ResultIterator
		err error
	)
	if filter.ActiveOnly {
		it, err = exc.Get("borrowing", "returned", false)
	} else {
		it, err = exc.Get("borrowing", "id")
	}
	if err != nil {
		return []library.Borrowing{}, fmt.Errorf("listing borrowings from db: %w", err)
	}

	borrowings := []library.Borrowing{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		b := adaptBorrowingIdToUUID(obj.(AdaptedBorrowing))
		if filter.UserID != uuid.Nil && b.UserID != filter.UserID {
			continue
		}
		if filter.BookID != uuid.Nil && b.BookID != filter.BookID {
			continue
		}
		if !filter.DueBefore.IsZero() && !b.ReturnDue.Before(filter.DueBefore) {
			continue
		}
		borrowings = append(borrowings, b)
	}

	sort.SliceStable(borrowings, func(i, j int) bool {
		return borrowings[i].BorrowedAt.After(borrowings[j].BorrowedAt)
	})
	return borrowings, nil
}

func (store *InMemoryStore) ListBorrowers(ctx context.Context, active *bool) ([]library.User, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	it, err := exc.Get("borrowing", "returned", false)
	if err != nil {
		return []library.User{}, fmt.Errorf("listing borrowers from db: %w", err)
	}

	seen := map[string]bool{}
	users := []library.User{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		b := obj.(AdaptedBorrowing)
		if seen[b.UserID] {
			continue
		}
		seen[b.UserID] = true

		u, err := getUser(exc, uuid.MustParse(b.UserID))
		if err != nil {
			return []library.User{}, fmt.Errorf("listing borrowers from db: %w", err)
		}
		if active != nil && u.IsActive != *active {
			continue
		}
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// -- Reservations --

type AdaptedReservation struct {
	ID        string
	UserID    string
	BookID    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func adaptReservationIdToString(r library.Reservation) AdaptedReservation {
	return AdaptedReservation{
		ID:        r.ID.String(),
		UserID:    r.UserID.String(),
		BookID:    r.BookID.String(),
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func adaptReservationIdToUUID(r AdaptedReservation) library.Reservation {
	return library.Reservation{
		ID:        uuid.MustParse(r.ID),
		UserID:    uuid.MustParse(r.UserID),
		BookID:    uuid.MustParse(r.BookID),
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

/* A user holds at most one active reservation per book. */
func (store *InMemoryStore) CreateReservation(ctx context.Context, r library.Reservation) (library.Reservation, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	if r.Active {
		raw, err := exc.First("reservation", "user_book_active", r.UserID.String(), r.BookID.String(), true)
		if err != nil {
			return library.Reservation{}, fmt.Errorf("storing reservation on db: %w", err)
		}
		if raw != nil {
			return library.Reservation{}, fmt.Errorf("storing reservation on db: %w", library.ErrResponseDuplicateReservation)
		}
	}

	if err := exc.Insert("reservation", adaptReservationIdToString(r)); err != nil {
		return library.Reservation{}, fmt.Errorf("storing reservation on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return r, nil
}

// NextActiveReservation returns the oldest active reservation of a book.
// Reservations created at the same instant are served by id.
func (store *InMemoryStore) NextActiveReservation(ctx context.Context, bookID uuid.UUID) (library.Reservation, bool, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	it, err := exc.Get("reservation", "book_active", bookID.String(), true)
	if err != nil {
		return library.Reservation{}, false, fmt.Errorf("searching next reservation: %w", err)
	}

	var next *AdaptedReservation
	for obj := it.Next(); obj != nil; obj = it.Next() {
		r := obj.(AdaptedReservation)
		if next == nil || r.CreatedAt.Before(next.CreatedAt) || (r.CreatedAt.Equal(next.CreatedAt) && r.ID < next.ID) {
			next = &r
		}
	}
	if next == nil {
		return library.Reservation{}, false, nil
	}
	return adaptReservationIdToUUID(*next), true, nil
}

func (store *InMemoryStore) HasActiveReservation(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("reservation", "user_book_active", userID.String(), bookID.String(), true)
	if err != nil {
		return false, fmt.Errorf("searching active reservation: %w", err)
	}
	return raw != nil, nil
}

/* Reports whether a user other than userID holds an active reservation on the book. */
func (store *InMemoryStore) HasOtherActiveReservation(ctx context.Context, bookID, userID uuid.UUID) (bool, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	it, err := exc.Get("reservation", "book_active", bookID.String(), true)
	if err != nil {
		return false, fmt.Errorf("searching active reservations: %w", err)
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if obj.(AdaptedReservation).UserID != userID.String() {
			return true, nil
		}
	}
	return false, nil
}

func (store *InMemoryStore) DeactivateReservation(ctx context.Context, id uuid.UUID, updatedAt time.Time) (library.Reservation, error) {
	exc, insideTx := store.txn(true)
	if !insideTx {
		defer exc.Abort()
	}

	raw, err := exc.First("reservation", "id", id.String())
	if err != nil {
		return library.Reservation{}, fmt.Errorf("deactivating reservation on db: %w", err)
	}
	if raw == nil {
		return library.Reservation{}, fmt.Errorf("deactivating reservation on db: %w", library.ErrResponseReservationNotFound)
	}

	updated := raw.(AdaptedReservation)
	updated.Active = false
	updated.UpdatedAt = updatedAt

	if err := exc.Insert("reservation", updated); err != nil {
		return library.Reservation{}, fmt.Errorf("deactivating reservation on db: %w", err)
	}

	if !insideTx {
		exc.Commit()
	}
	return adaptReservationIdToUUID(updated), nil
}

func (store *InMemoryStore) ListReservations(ctx context.Context, filter library.ReservationFilter) ([]library.Reservation, error) {
	exc, insideTx := store.txn(false)
	if !insideTx {
		defer exc.Abort()
	}

	it, err := exc.Get("reservation", "id")
	if err != nil {
		return []library.Reservation{}, fmt.Errorf("listing reservations from db: %w", err)
	}

	reservations := []library.Reservation{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		r := obj.(AdaptedReservation)
		if filter.UserID != uuid.Nil && r.UserID != filter.UserID.String() {
			continue
		}
		if filter.BookID != uuid.Nil && r.BookID != filter.BookID.String() {
			continue
		}
		if filter.ActiveOnly && !r.Active {
			continue
		}
		reservations = append(reservations, adaptReservationIdToUUID(r))
	}

	sort.SliceStable(reservations, func(i, j int) bool {
		return reservations[i].CreatedAt.After(reservations[j].CreatedAt)
	})
	return reservations, nil
}

// -- Transactions --

// BeginTx opens a write transaction. It waits while another one is open,
// which makes every transaction on the store serializable, and gives up
// when ctx is done. opts is accepted for interface compatibility and ignored.
func (store *InMemoryStore) BeginTx(ctx context.Context, opts *sql.TxOptions) (library.Repository, library.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", err)
	}

	acquired := make(chan *memdb.Txn, 1)
	go func() {
		acquired <- store.db.Txn(true)
	}()

	var txn *memdb.Txn
	select {
	case txn = <-acquired:
	case <-ctx.Done():
		// The writer lock is released as soon as the pending txn gets it.
		go func() {
			(<-acquired).Abort()
		}()
		return nil, nil, fmt.Errorf("beginning transaction: %w", ctx.Err())
	}
	if txn == nil {
		return nil, nil, fmt.Errorf("failed to create transaction")
	}

	txWrapper := &TxWrapper{txn: txn}
	txStore := &InMemoryStore{
		db:  store.db,
		exc: txWrapper.txn,
	}

	return txStore, txWrapper, nil
}

type TxWrapper struct {
	txn *memdb.Txn
}

func (tx *TxWrapper) Commit() error {
	tx.txn.Commit()
	return nil
}

/* Rolling back after Commit is a no-op. */
func (tx *TxWrapper) Rollback() error {
	tx.txn.Abort()
	return nil
}
