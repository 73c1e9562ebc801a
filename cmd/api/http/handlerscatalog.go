package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/library-service/cmd/api/library"
)

type AuthorEntry struct {
	Name        string     `json:"name"`
	Biography   string     `json:"biography"`
	BirthDate   *time.Time `json:"birth_date"`
	Nationality string     `json:"nationality"`
}

func (h *Handler) createAuthor(w http.ResponseWriter, r *http.Request) {
	var entry AuthorEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	created, err := h.service.CreateAuthor(r.Context(), library.CreateAuthorRequest{
		Name:        entry.Name,
		Biography:   entry.Biography,
		BirthDate:   entry.BirthDate,
		Nationality: entry.Nationality,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, authorToResponse(created))
}

func (h *Handler) getAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	author, err := h.service.GetAuthor(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, authorToResponse(author))
}

func (h *Handler) listAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.ListAuthors(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	results := make([]AuthorResponse, 0, len(authors))
	for _, a := range authors {
		results = append(results, authorToResponse(a))
	}
	responseJSON(w, http.StatusOK, results)
}

func (h *Handler) deleteAuthor(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	if err := h.service.DeleteAuthor(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type BookEntry struct {
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle"`
	AuthorID        uuid.UUID  `json:"author_id"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Publisher       string     `json:"publisher"`
	PublicationDate *time.Time `json:"publication_date"`
	ISBN            string     `json:"isbn"`
	PageCount       *int       `json:"page_count"`
	LastEdition     *time.Time `json:"last_edition"`
	Language        string     `json:"language"`
	CoverURL        string     `json:"cover_url"`
}

/* Converts from BookEntry type to CreateBookRequest type, with no json tags. */
func bookToCreateReq(b BookEntry) library.CreateBookRequest {
	return library.CreateBookRequest{
		Title:           b.Title,
		Subtitle:        b.Subtitle,
		AuthorID:        b.AuthorID,
		Description:     b.Description,
		Category:        b.Category,
		Publisher:       b.Publisher,
		PublicationDate: b.PublicationDate,
		ISBN:            b.ISBN,
		PageCount:       b.PageCount,
		LastEdition:     b.LastEdition,
		Language:        b.Language,
		CoverURL:        b.CoverURL,
	}
}

/* Validation of the mandatory fields happens in the service. */
func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var entry BookEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	created, err := h.service.CreateBook(r.Context(), bookToCreateReq(entry))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, bookToResponse(created))
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	var entry BookEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	updated, err := h.service.UpdateBook(r.Context(), library.UpdateBookRequest{
		ID:                id,
		CreateBookRequest: bookToCreateReq(entry),
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(updated))
}

/* Returns the book with that specific ID. */
func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(book))
}

type BookStatusEntry struct {
	Status library.BookStatus `json:"status"`
}

func (h *Handler) setBookStatus(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	var entry BookStatusEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	updated, err := h.service.SetBookStatus(r.Context(), id, entry.Status)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, bookToResponse(updated))
}

/* Returns a page of the stored books. */
func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	authorID, valid := queryID(query, "author_id")
	if !valid {
		responseJSON(w, http.StatusBadRequest, ErrResponseQueryInvalid.WithDetail("author_id"))
		return
	}

	page, pageSize, valid := extractPageParams(query)
	if !valid {
		responseJSON(w, http.StatusBadRequest, library.ErrResponseQueryPageInvalid)
		return
	}

	params := library.ListBooksRequest{
		Title:    query.Get("title"),
		Category: query.Get("category"),
		AuthorID: authorID,
		Status:   library.BookStatus(query.Get("status")),
		Page:     page,
		PageSize: pageSize,
	}

	pagedBooks, err := h.service.ListBooks(r.Context(), params)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	responseJSON(w, http.StatusOK, pagedBooksToResponse(pagedBooks))
}

type AuthorResponse struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Biography   string     `json:"biography"`
	BirthDate   *time.Time `json:"birth_date"`
	Nationality string     `json:"nationality"`
}

func authorToResponse(a library.Author) AuthorResponse {
	return AuthorResponse{
		ID:          a.ID,
		Name:        a.Name,
		Biography:   a.Biography,
		BirthDate:   a.BirthDate,
		Nationality: a.Nationality,
	}
}

type BookResponse struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Subtitle        string             `json:"subtitle"`
	AuthorID        uuid.UUID          `json:"author_id"`
	Description     string             `json:"description"`
	Category        string             `json:"category"`
	Publisher       string             `json:"publisher"`
	PublicationDate *time.Time         `json:"publication_date"`
	ISBN            string             `json:"isbn"`
	PageCount       *int               `json:"page_count"`
	LastEdition     *time.Time         `json:"last_edition"`
	Language        string             `json:"language"`
	CoverURL        string             `json:"cover_url"`
	Status          library.BookStatus `json:"status"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

/*Copy the fields of a book object to an http layer struct with json tags*/
func bookToResponse(b library.Book) BookResponse {
	return BookResponse{
		ID:              b.ID,
		Title:           b.Title,
		Subtitle:        b.Subtitle,
		AuthorID:        b.AuthorID,
		Description:     b.Description,
		Category:        b.Category,
		Publisher:       b.Publisher,
		PublicationDate: b.PublicationDate,
		ISBN:            b.ISBN,
		PageCount:       b.PageCount,
		LastEdition:     b.LastEdition,
		Language:        b.Language,
		CoverURL:        b.CoverURL,
		Status:          b.Status,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type PageOfBooksResponse struct {
	PageCurrent int            `json:"page_current"`
	PageTotal   int            `json:"page_total"`
	PageSize    int            `json:"page_size"`
	ItemsTotal  int            `json:"items_total"`
	Results     []BookResponse `json:"results"`
}

/*Copy the fields of a PagedBooks object to an http layer struct with json tags*/
func pagedBooksToResponse(page library.PagedBooks) PageOfBooksResponse {
	results := []BookResponse{}
	for _, book := range page.Results {
		results = append(results, bookToResponse(book))
	}

	return PageOfBooksResponse{
		PageCurrent: page.PageCurrent,
		PageTotal:   page.PageTotal,
		PageSize:    page.PageSize,
		ItemsTotal:  page.ItemsTotal,
		Results:     results,
	}
}
