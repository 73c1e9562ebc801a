package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/library-service/cmd/api/library"
)

type BorrowEntry struct {
	BookID uuid.UUID `json:"book_id"`
	Days   *int      `json:"days"`
}

func (h *Handler) borrow(w http.ResponseWriter, r *http.Request) {
	var entry BorrowEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	days := library.DefaultBorrowDays
	if entry.Days != nil {
		days = *entry.Days
	}

	created, err := h.service.Borrow(r.Context(), library.BorrowRequest{
		UserID: caller(r).ID,
		BookID: entry.BookID,
		Days:   days,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, borrowingToResponse(created))
}

/* Loads the borrowing named in the path, answering itself unless the caller owns it or is staff. */
func (h *Handler) ownBorrowing(w http.ResponseWriter, r *http.Request) (library.Borrowing, bool) {
	id, err := isolateId(w, r)
	if err != nil {
		return library.Borrowing{}, false
	}

	b, err := h.service.GetBorrowing(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return library.Borrowing{}, false
	}

	current := caller(r)
	if b.UserID != current.ID && !current.IsStaff {
		responseJSON(w, http.StatusForbidden, library.ErrResponseNotOwner)
		return library.Borrowing{}, false
	}
	return b, true
}

func (h *Handler) getBorrowing(w http.ResponseWriter, r *http.Request) {
	b, ok := h.ownBorrowing(w, r)
	if !ok {
		return
	}
	responseJSON(w, http.StatusOK, borrowingToResponse(b))
}

// returnBorrowing answers with the returned borrowing, or with the new
// borrowing of the reserver when the book was handed off. A hand-off is
// announced through the notifier once the response is written.
func (h *Handler) returnBorrowing(w http.ResponseWriter, r *http.Request) {
	b, ok := h.ownBorrowing(w, r)
	if !ok {
		return
	}

	result, err := h.service.ReturnBorrowing(r.Context(), b.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, borrowingToResponse(result))

	if result.ID != b.ID && h.notifier != nil {
		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := h.notifier.ReservationFulfilled(ctx, result); err != nil {
				h.logger.Warn("notifying reservation hand-off", "borrowing_id", result.ID, "error", err)
			}
		}()
	}
}

type RenewEntry struct {
	ExtraDays *int `json:"extra_days"`
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	b, ok := h.ownBorrowing(w, r)
	if !ok {
		return
	}

	var entry RenewEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	extra := library.DefaultRenewDays
	if entry.ExtraDays != nil {
		extra = *entry.ExtraDays
	}

	renewed, err := h.service.Renew(r.Context(), library.RenewRequest{
		BorrowingID: b.ID,
		ExtraDays:   extra,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, borrowingToResponse(renewed))
}

/* Lists the caller's borrowings. Staff see everyone's, optionally narrowed by user_id. */
func (h *Handler) listBorrowings(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.scopedUser(w, r)
	if !ok {
		return
	}

	borrowings, err := h.service.ListBorrowings(r.Context(), userID, r.URL.Query().Get("active") == "true")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	responseJSON(w, http.StatusOK, borrowingsToResponse(borrowings))
}

func (h *Handler) listOverdue(w http.ResponseWriter, r *http.Request) {
	userID, valid := queryID(r.URL.Query(), "user_id")
	if !valid {
		responseJSON(w, http.StatusBadRequest, ErrResponseQueryInvalid.WithDetail("user_id"))
		return
	}

	borrowings, err := h.service.ListOverdue(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	responseJSON(w, http.StatusOK, borrowingsToResponse(borrowings))
}

func (h *Handler) listBorrowers(w http.ResponseWriter, r *http.Request) {
	var active *bool
	switch r.URL.Query().Get("status") {
	case "":
	case "active":
		active = toPointer(true)
	case "inactive":
		active = toPointer(false)
	default:
		responseJSON(w, http.StatusBadRequest, ErrResponseQueryInvalid.WithDetail("status"))
		return
	}

	users, err := h.service.ListBorrowers(r.Context(), active)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	responseJSON(w, http.StatusOK, usersToResponse(users))
}

type ReserveEntry struct {
	BookID uuid.UUID `json:"book_id"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var entry ReserveEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	created, err := h.service.Reserve(r.Context(), library.ReserveRequest{
		UserID: caller(r).ID,
		BookID: entry.BookID,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, reservationToResponse(created))
}

func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.scopedUser(w, r)
	if !ok {
		return
	}

	reservations, err := h.service.ListReservations(r.Context(), userID, r.URL.Query().Get("active") == "true")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	results := make([]ReservationResponse, 0, len(reservations))
	for _, res := range reservations {
		results = append(results, reservationToResponse(res))
	}
	responseJSON(w, http.StatusOK, results)
}

/* The caller's own ID, or for staff the user_id query parameter (uuid.Nil meaning everyone). */
func (h *Handler) scopedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	current := caller(r)
	if !current.IsStaff {
		return current.ID, true
	}

	userID, valid := queryID(r.URL.Query(), "user_id")
	if !valid {
		responseJSON(w, http.StatusBadRequest, ErrResponseQueryInvalid.WithDetail("user_id"))
		return uuid.Nil, false
	}
	return userID, true
}

type BorrowingResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	BookID     uuid.UUID `json:"book_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	ReturnDue  time.Time `json:"return_due"`
	Returned   bool      `json:"returned"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func borrowingToResponse(b library.Borrowing) BorrowingResponse {
	return BorrowingResponse{
		ID:         b.ID,
		UserID:     b.UserID,
		BookID:     b.BookID,
		BorrowedAt: b.BorrowedAt,
		ReturnDue:  b.ReturnDue,
		Returned:   b.Returned,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func borrowingsToResponse(borrowings []library.Borrowing) []BorrowingResponse {
	results := make([]BorrowingResponse, 0, len(borrowings))
	for _, b := range borrowings {
		results = append(results, borrowingToResponse(b))
	}
	return results
}

type ReservationResponse struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	BookID    uuid.UUID `json:"book_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func reservationToResponse(r library.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:        r.ID,
		UserID:    r.UserID,
		BookID:    r.BookID,
		Active:    r.Active,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toPointer[T any](v T) *T {
	return &v
}
