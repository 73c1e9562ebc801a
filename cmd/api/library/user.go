package library

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the account that borrows and reserves. Identity and credentials
// are handled upstream; the ledger only needs IsActive and, at the
// boundary, IsStaff.
type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	FullName  string
	IsActive  bool
	IsStaff   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type RegisterUserRequest struct {
	Username string
	Email    string
	FullName string
	IsStaff  bool
}

func (s *Service) RegisterUser(ctx context.Context, req RegisterUserRequest) (User, error) {
	if strings.TrimSpace(req.Username) == "" || !strings.Contains(req.Email, "@") {
		return User{}, ErrResponseUserEntryBlankFields
	}

	createdAt := s.now()
	newUser := User{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		IsActive:  true,
		IsStaff:   req.IsStaff,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	return s.repo.CreateUser(ctx, newUser)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.GetUserByID(ctx, id)
}

/* Activates or deactivates a user account. Inactive users can neither borrow nor reserve. */
func (s *Service) SetUserActive(ctx context.Context, id uuid.UUID, active bool) (User, error) {
	var updated User
	err := s.inTx(ctx, func(tx Repository) error {
		if _, err := tx.LockUser(ctx, id); err != nil {
			return err
		}
		var err error
		updated, err = tx.SetUserActive(ctx, id, active, s.now())
		return err
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}
