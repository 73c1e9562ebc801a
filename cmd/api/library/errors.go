package library

import (
	"errors"
)

// ErrorKind classifies a domain failure. The set is closed: the HTTP layer
// switches over every value to pick a status code.
type ErrorKind int

const (
	KindInvalidEntry ErrorKind = iota + 1
	KindNotFound
	KindForbidden
	KindConflict
	KindBookNotAvailable
	KindMaxActiveBorrowingsExceeded
	KindInactiveUser
	KindDuplicateReservation
	KindRenewalBlocked
	KindBorrowingReturned
	KindInvalidPeriod
	KindUnauthenticated
	KindTimeout
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidEntry:
		return "invalid_entry"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindBookNotAvailable:
		return "book_not_available"
	case KindMaxActiveBorrowingsExceeded:
		return "max_active_borrowings_exceeded"
	case KindInactiveUser:
		return "inactive_user"
	case KindDuplicateReservation:
		return "duplicate_reservation"
	case KindRenewalBlocked:
		return "renewal_blocked"
	case KindBorrowingReturned:
		return "borrowing_returned"
	case KindInvalidPeriod:
		return "invalid_period"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindTimeout:
		return "timeout"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

type ErrResponse struct {
	Kind    ErrorKind `json:"-"`
	Code    int       `json:"error_code"`
	Message string    `json:"error_message"`
}

func (e ErrResponse) Error() string {
	return e.Message
}

/* Two ErrResponse values match when they carry the same code, so a sentinel still matches after WithDetail. */
func (e ErrResponse) Is(target error) bool {
	t, ok := target.(ErrResponse)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

/* Returns a copy of the error with a detail appended to its message. */
func (e ErrResponse) WithDetail(detail string) ErrResponse {
	e.Message = e.Message + detail
	return e
}

/* Reports the kind of the first domain error found in err's chain. */
func KindOf(err error) (ErrorKind, bool) {
	var errR ErrResponse
	if errors.As(err, &errR) {
		return errR.Kind, true
	}
	return 0, false
}

// ErrTxConflict is reported by a store when the database aborted a
// transaction because of a deadlock, a serialization failure or a lock
// timeout. The whole transaction may be retried.
var ErrTxConflict = errors.New("transaction conflict")

var ErrResponseBookEntryBlankFields = ErrResponse{KindInvalidEntry, 100, "fields title, isbn and author_id must be filled correctly."}
var ErrResponseBookNotFound = ErrResponse{KindNotFound, 101, "book not found"}
var ErrResponseEntryInvalidJSON = ErrResponse{KindInvalidEntry, 102, "invalid json request."}
var ErrResponseIdInvalidFormat = ErrResponse{KindInvalidEntry, 103, "the endpoint does not carry a valid format ID."}
var ErrResponseQueryPageInvalid = ErrResponse{KindInvalidEntry, 106, "query parameter 'page' must be an int starting in 1. 'page_size' must be an int beetween 1 and 100."}
var ErrResponseQueryPageOutOfRange = ErrResponse{KindInvalidEntry, 107, "page out of range."}
var ErrResponseInvalidBookStatus = ErrResponse{KindInvalidEntry, 108, "status must be: available, borrowed or reserved."}

var ErrResponseAuthorEntryBlankFields = ErrResponse{KindInvalidEntry, 120, "field name must be filled correctly."}
var ErrResponseAuthorNotFound = ErrResponse{KindNotFound, 121, "author not found"}
var ErrResponseAuthorHasBooks = ErrResponse{KindConflict, 122, "author still has books and cannot be deleted"}
var ErrResponseDuplicateISBN = ErrResponse{KindConflict, 123, "there is already a book with this isbn"}

var ErrResponseUserEntryBlankFields = ErrResponse{KindInvalidEntry, 130, "fields username and email must be filled correctly."}
var ErrResponseUserNotFound = ErrResponse{KindNotFound, 131, "user not found"}
var ErrResponseDuplicateUser = ErrResponse{KindConflict, 132, "there is already a user with this username or email"}
var ErrResponseStaffOnly = ErrResponse{KindForbidden, 133, "only staff users can perform this action"}
var ErrResponseNotOwner = ErrResponse{KindForbidden, 134, "only the borrower or staff users can access this borrowing"}

var ErrResponseBookNotAvailable = ErrResponse{KindBookNotAvailable, 200, "book is not available for borrowing"}
var ErrResponseMaxActiveBorrowingsExceeded = ErrResponse{KindMaxActiveBorrowingsExceeded, 201, "user has reached the active borrow limit (5)"}
var ErrResponseInactiveUser = ErrResponse{KindInactiveUser, 202, "user account is inactive"}
var ErrResponseDuplicateReservation = ErrResponse{KindDuplicateReservation, 203, "user already has an active reservation for this book"}
var ErrResponseRenewalBlocked = ErrResponse{KindRenewalBlocked, 204, "cannot renew: another user has an active reservation for this book"}
var ErrResponseBorrowingReturned = ErrResponse{KindBorrowingReturned, 205, "cannot renew a returned borrowing"}
var ErrResponseInvalidPeriod = ErrResponse{KindInvalidPeriod, 206, "return date must be after borrow date"}
var ErrResponseBorrowingNotFound = ErrResponse{KindNotFound, 207, "borrowing not found"}
var ErrResponseReservationNotFound = ErrResponse{KindNotFound, 208, "reservation not found"}
