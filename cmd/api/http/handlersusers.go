package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/library-service/cmd/api/library"
)

type UserEntry struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// registerUser never grants staff rights: staff accounts are provisioned
// out of band.
func (h *Handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var entry UserEntry
	if !decodeEntry(w, r, &entry) {
		return
	}

	created, err := h.service.RegisterUser(r.Context(), library.RegisterUserRequest{
		Username: entry.Username,
		Email:    entry.Email,
		FullName: entry.FullName,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusCreated, userToResponse(created))
}

/* Returns a user. Only the user itself and staff may look it up. */
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	current := caller(r)
	if current.ID != id && !current.IsStaff {
		responseJSON(w, http.StatusForbidden, library.ErrResponseStaffOnly)
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, userToResponse(user))
}

type UserActiveEntry struct {
	IsActive *bool `json:"is_active"`
}

func (h *Handler) setUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	var entry UserActiveEntry
	if !decodeEntry(w, r, &entry) {
		return
	}
	if entry.IsActive == nil {
		responseJSON(w, http.StatusBadRequest, ErrResponseActiveEntryBlank)
		return
	}

	updated, err := h.service.SetUserActive(r.Context(), id, *entry.IsActive)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	responseJSON(w, http.StatusOK, userToResponse(updated))
}

/* Lists the books a user currently holds. */
func (h *Handler) borrowedBooks(w http.ResponseWriter, r *http.Request) {
	id, err := isolateId(w, r)
	if err != nil {
		return
	}

	books, err := h.service.BorrowedBooks(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	results := make([]BookResponse, 0, len(books))
	for _, b := range books {
		results = append(results, bookToResponse(b))
	}
	responseJSON(w, http.StatusOK, results)
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	IsStaff   bool      `json:"is_staff"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func userToResponse(u library.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		IsStaff:   u.IsStaff,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func usersToResponse(users []library.User) []UserResponse {
	results := make([]UserResponse, 0, len(users))
	for _, u := range users {
		results = append(results, userToResponse(u))
	}
	return results
}
