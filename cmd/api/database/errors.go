package database

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/library-service/cmd/api/library"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// constraintErrors maps the named constraints of the schema to the domain
// error a violation stands for.
var constraintErrors = map[string]error{
	"users_username_key":                    library.ErrResponseDuplicateUser,
	"users_email_key":                       library.ErrResponseDuplicateUser,
	"books_isbn_key":                        library.ErrResponseDuplicateISBN,
	"books_author_id_fkey":                  library.ErrResponseAuthorNotFound,
	"books_status_check":                    library.ErrResponseInvalidBookStatus,
	"borrowings_one_active_per_book":        library.ErrResponseBookNotAvailable,
	"borrowings_return_due_check":           library.ErrResponseInvalidPeriod,
	"borrowings_user_id_fkey":               library.ErrResponseUserNotFound,
	"borrowings_book_id_fkey":               library.ErrResponseBookNotFound,
	"reservations_one_active_per_user_book": library.ErrResponseDuplicateReservation,
	"reservations_user_id_fkey":             library.ErrResponseUserNotFound,
	"reservations_book_id_fkey":             library.ErrResponseBookNotFound,
}

/* Extracts the SQLSTATE code and constraint name from a lib/pq or pgx error. */
func pgErrorInfo(err error) (code, constraint string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

// classify translates database failures the service can act on:
// deadlocks, serialization failures and lock timeouts become
// library.ErrTxConflict, and violations of known constraints become the
// matching domain error. Anything else is returned unchanged.
func classify(err error) error {
	code, constraint, ok := pgErrorInfo(err)
	if !ok {
		return err
	}

	switch code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%w: %w", library.ErrTxConflict, err)
	case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation:
		if domainErr, found := constraintErrors[constraint]; found {
			return domainErr
		}
	}
	return err
}
