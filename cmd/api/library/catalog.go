package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type BookStatus string

const (
	StatusAvailable BookStatus = "available"
	StatusBorrowed  BookStatus = "borrowed"
	StatusReserved  BookStatus = "reserved"
)

func (s BookStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusBorrowed, StatusReserved:
		return true
	}
	return false
}

type Author struct {
	ID          uuid.UUID
	Name        string
	Biography   string
	BirthDate   *time.Time
	Nationality string
}

// Book is owned by its Author through a protect-on-delete reference.
// Status mirrors the ledger: it is borrowed exactly while one unreturned
// Borrowing exists for the book.
type Book struct {
	ID              uuid.UUID
	Title           string
	Subtitle        string
	AuthorID        uuid.UUID
	Description     string
	Category        string
	Publisher       string
	PublicationDate *time.Time
	ISBN            string
	PageCount       *int
	LastEdition     *time.Time
	Language        string
	CoverURL        string
	Status          BookStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

const (
	PageSizeDefault = 10
	PageSizeMax     = 100
)

type BookFilter struct {
	Title    string
	Category string
	AuthorID uuid.UUID
	Status   BookStatus
	Page     int
	PageSize int
}

type PagedBooks struct {
	PageCurrent int
	PageTotal   int
	PageSize    int
	ItemsTotal  int
	Results     []Book
}

type CreateAuthorRequest struct {
	Name        string
	Biography   string
	BirthDate   *time.Time
	Nationality string
}

func (s *Service) CreateAuthor(ctx context.Context, req CreateAuthorRequest) (Author, error) {
	if strings.TrimSpace(req.Name) == "" {
		return Author{}, ErrResponseAuthorEntryBlankFields
	}

	newAuthor := Author{
		ID:          uuid.New(),
		Name:        req.Name,
		Biography:   req.Biography,
		BirthDate:   req.BirthDate,
		Nationality: req.Nationality,
	}
	return s.repo.CreateAuthor(ctx, newAuthor)
}

func (s *Service) GetAuthor(ctx context.Context, id uuid.UUID) (Author, error) {
	return s.repo.GetAuthorByID(ctx, id)
}

func (s *Service) ListAuthors(ctx context.Context) ([]Author, error) {
	return s.repo.ListAuthors(ctx)
}

/* Deletes an author. Fails with ErrResponseAuthorHasBooks while any book still references it. */
func (s *Service) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	return s.inTx(ctx, func(tx Repository) error {
		if _, err := tx.GetAuthorByID(ctx, id); err != nil {
			return err
		}
		return tx.DeleteAuthor(ctx, id)
	})
}

type CreateBookRequest struct {
	Title           string
	Subtitle        string
	AuthorID        uuid.UUID
	Description     string
	Category        string
	Publisher       string
	PublicationDate *time.Time
	ISBN            string
	PageCount       *int
	LastEdition     *time.Time
	Language        string
	CoverURL        string
}

/* Verifies if the mandatory book fields are filled. */
func FilledFields(req CreateBookRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return ErrResponseBookEntryBlankFields
	}
	if strings.TrimSpace(req.ISBN) == "" {
		return ErrResponseBookEntryBlankFields
	}
	if req.AuthorID == uuid.Nil {
		return ErrResponseBookEntryBlankFields
	}
	if req.PageCount != nil && *req.PageCount < 0 {
		return ErrResponseBookEntryBlankFields
	}
	return nil
}

/* Stores a new book. New books always start available. */
func (s *Service) CreateBook(ctx context.Context, req CreateBookRequest) (Book, error) {
	if err := FilledFields(req); err != nil {
		return Book{}, err
	}

	createdAt := s.now()
	newBook := Book{
		ID:              uuid.New(),
		Title:           req.Title,
		Subtitle:        req.Subtitle,
		AuthorID:        req.AuthorID,
		Description:     req.Description,
		Category:        req.Category,
		Publisher:       req.Publisher,
		PublicationDate: req.PublicationDate,
		ISBN:            req.ISBN,
		PageCount:       req.PageCount,
		LastEdition:     req.LastEdition,
		Language:        req.Language,
		CoverURL:        req.CoverURL,
		Status:          StatusAvailable,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}

	var created Book
	err := s.inTx(ctx, func(tx Repository) error {
		if _, err := tx.GetAuthorByID(ctx, req.AuthorID); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateBook(ctx, newBook)
		return err
	})
	if err != nil {
		return Book{}, err
	}
	return created, nil
}

func (s *Service) GetBook(ctx context.Context, id uuid.UUID) (Book, error) {
	return s.repo.GetBookByID(ctx, id)
}

type UpdateBookRequest struct {
	ID uuid.UUID
	CreateBookRequest
}

/* Updates the descriptive metadata of a book. The status is left untouched. */
func (s *Service) UpdateBook(ctx context.Context, req UpdateBookRequest) (Book, error) {
	if err := FilledFields(req.CreateBookRequest); err != nil {
		return Book{}, err
	}

	var updated Book
	err := s.inTx(ctx, func(tx Repository) error {
		current, err := tx.LockBook(ctx, req.ID)
		if err != nil {
			return err
		}
		if _, err := tx.GetAuthorByID(ctx, req.AuthorID); err != nil {
			return err
		}

		current.Title = req.Title
		current.Subtitle = req.Subtitle
		current.AuthorID = req.AuthorID
		current.Description = req.Description
		current.Category = req.Category
		current.Publisher = req.Publisher
		current.PublicationDate = req.PublicationDate
		current.ISBN = req.ISBN
		current.PageCount = req.PageCount
		current.LastEdition = req.LastEdition
		current.Language = req.Language
		current.CoverURL = req.CoverURL
		current.UpdatedAt = s.now()

		updated, err = tx.UpdateBook(ctx, current)
		return err
	})
	if err != nil {
		return Book{}, err
	}
	return updated, nil
}

// SetBookStatus edits the status directly. It is an administrative path:
// the caller is responsible for only routing privileged users here.
func (s *Service) SetBookStatus(ctx context.Context, id uuid.UUID, status BookStatus) (Book, error) {
	if !status.Valid() {
		return Book{}, ErrResponseInvalidBookStatus
	}

	var updated Book
	err := s.inTx(ctx, func(tx Repository) error {
		if _, err := tx.LockBook(ctx, id); err != nil {
			return err
		}
		var err error
		updated, err = tx.SetBookStatus(ctx, id, status, s.now())
		return err
	})
	if err != nil {
		return Book{}, err
	}
	s.logger.Info("book status set directly", "book_id", id, "status", status)
	return updated, nil
}

type ListBooksRequest struct {
	Title    string
	Category string
	AuthorID uuid.UUID
	Status   BookStatus
	Page     int
	PageSize int
}

/* Returns a page of books matching the filter, ordered by title. */
func (s *Service) ListBooks(ctx context.Context, req ListBooksRequest) (PagedBooks, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = PageSizeDefault
	}
	if req.Page < 0 || req.PageSize < 0 || req.PageSize > PageSizeMax {
		return PagedBooks{}, ErrResponseQueryPageInvalid
	}
	if req.Status != "" && !req.Status.Valid() {
		return PagedBooks{}, ErrResponseInvalidBookStatus
	}

	filter := BookFilter{
		Title:    req.Title,
		Category: req.Category,
		AuthorID: req.AuthorID,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	itemsTotal, err := s.repo.ListBooksTotals(ctx, filter)
	if err != nil {
		return PagedBooks{}, fmt.Errorf("counting books: %w", err)
	}
	if itemsTotal == 0 {
		return PagedBooks{Results: []Book{}}, nil
	}

	pageTotal := (itemsTotal + req.PageSize - 1) / req.PageSize
	if req.Page > pageTotal {
		return PagedBooks{}, ErrResponseQueryPageOutOfRange
	}

	books, err := s.repo.ListBooks(ctx, filter)
	if err != nil {
		return PagedBooks{}, fmt.Errorf("listing books: %w", err)
	}

	return PagedBooks{
		PageCurrent: req.Page,
		PageTotal:   pageTotal,
		PageSize:    req.PageSize,
		ItemsTotal:  itemsTotal,
		Results:     books,
	}, nil
}
