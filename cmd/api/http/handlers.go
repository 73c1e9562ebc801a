package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/library-service/cmd/api/library"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock_service.go -package=mocks

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrResponseRequestTimeout = library.ErrResponse{Kind: library.KindTimeout, Code: 109, Message: "error from context:"}
var ErrResponseUnauthenticated = library.ErrResponse{Kind: library.KindUnauthenticated, Code: 110, Message: "header X-User-ID must carry the ID of a registered user."}
var ErrResponseInternal = library.ErrResponse{Kind: library.KindInternal, Code: 111, Message: "internal server error."}
var ErrResponseActiveEntryBlank = library.ErrResponse{Kind: library.KindInvalidEntry, Code: 112, Message: "field is_active must be filled."}
var ErrResponseQueryInvalid = library.ErrResponse{Kind: library.KindInvalidEntry, Code: 113, Message: "invalid query parameter: "}

type ServiceAPI interface {
	RegisterUser(ctx context.Context, req library.RegisterUserRequest) (library.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (library.User, error)
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) (library.User, error)

	CreateAuthor(ctx context.Context, req library.CreateAuthorRequest) (library.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (library.Author, error)
	ListAuthors(ctx context.Context) ([]library.Author, error)
	DeleteAuthor(ctx context.Context, id uuid.UUID) error

	CreateBook(ctx context.Context, req library.CreateBookRequest) (library.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (library.Book, error)
	UpdateBook(ctx context.Context, req library.UpdateBookRequest) (library.Book, error)
	SetBookStatus(ctx context.Context, id uuid.UUID, status library.BookStatus) (library.Book, error)
	ListBooks(ctx context.Context, req library.ListBooksRequest) (library.PagedBooks, error)

	Borrow(ctx context.Context, req library.BorrowRequest) (library.Borrowing, error)
	ReturnBorrowing(ctx context.Context, id uuid.UUID) (library.Borrowing, error)
	Reserve(ctx context.Context, req library.ReserveRequest) (library.Reservation, error)
	Renew(ctx context.Context, req library.RenewRequest) (library.Borrowing, error)

	GetBorrowing(ctx context.Context, id uuid.UUID) (library.Borrowing, error)
	ListBorrowings(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]library.Borrowing, error)
	ListOverdue(ctx context.Context, userID uuid.UUID) ([]library.Borrowing, error)
	ListBorrowers(ctx context.Context, active *bool) ([]library.User, error)
	BorrowedBooks(ctx context.Context, userID uuid.UUID) ([]library.Book, error)
	ListReservations(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]library.Reservation, error)
}

// Notifier is told about reservations fulfilled by a return, after the
// return has been committed.
type Notifier interface {
	ReservationFulfilled(ctx context.Context, b library.Borrowing) error
}

type Handler struct {
	service  ServiceAPI
	notifier Notifier
	logger   Logger
}

type HandlerOption func(*Handler)

func WithNotifier(notifier Notifier) HandlerOption {
	return func(h *Handler) {
		h.notifier = notifier
	}
}

func WithLogger(logger Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

func NewHandler(service ServiceAPI, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type contextKey string

const contextUser contextKey = "user"

/* Loads the caller named by X-User-ID and stores it in the request context. */
func (h *Handler) identify(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil {
			responseJSON(w, statusFor(ErrResponseUnauthenticated.Kind), ErrResponseUnauthenticated)
			return
		}

		user, err := h.service.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, library.ErrResponseUserNotFound) {
				responseJSON(w, statusFor(ErrResponseUnauthenticated.Kind), ErrResponseUnauthenticated)
				return
			}
			h.handleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), contextUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) staffOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !caller(r).IsStaff {
			responseJSON(w, http.StatusForbidden, library.ErrResponseStaffOnly)
			return
		}
		next(w, r)
	}
}

/* Returns the user stored by identify. */
func caller(r *http.Request) library.User {
	user, _ := r.Context().Value(contextUser).(library.User)
	return user
}

// handleError writes the response for a failed service call. Domain errors
// map to a status by kind, context errors to 504 and anything else to a
// generic 500.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var errR library.ErrResponse
	if errors.As(err, &errR) {
		status := statusFor(errR.Kind)
		if status == http.StatusInternalServerError {
			h.logger.Error("domain error answered with 500", "path", r.URL.Path, "error", err)
			responseJSON(w, status, ErrResponseInternal)
			return
		}
		responseJSON(w, status, errR)
		return
	}

	for _, ctxErr := range []error{context.DeadlineExceeded, context.Canceled} {
		if errors.Is(err, ctxErr) {
			h.logger.Warn("request context done", "path", r.URL.Path, "error", err)
			responseJSON(w, statusFor(ErrResponseRequestTimeout.Kind), ErrResponseRequestTimeout.WithDetail(ctxErr.Error()))
			return
		}
	}

	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	responseJSON(w, statusFor(ErrResponseInternal.Kind), ErrResponseInternal)
}

func statusFor(kind library.ErrorKind) int {
	switch kind {
	case library.KindInvalidEntry,
		library.KindInvalidPeriod,
		library.KindDuplicateReservation,
		library.KindRenewalBlocked,
		library.KindBorrowingReturned:
		return http.StatusBadRequest
	case library.KindNotFound:
		return http.StatusNotFound
	case library.KindForbidden,
		library.KindInactiveUser:
		return http.StatusForbidden
	case library.KindConflict,
		library.KindBookNotAvailable,
		library.KindMaxActiveBorrowingsExceeded:
		return http.StatusConflict
	case library.KindUnauthenticated:
		return http.StatusUnauthorized
	case library.KindTimeout:
		return http.StatusGatewayTimeout
	case library.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

/* Decodes the JSON body into entry, answering 400 itself when it cannot. An empty body leaves entry untouched. */
func decodeEntry(w http.ResponseWriter, r *http.Request, entry any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(entry)
	if err != nil && !errors.Is(err, io.EOF) {
		responseJSON(w, http.StatusBadRequest, library.ErrResponseEntryInvalidJSON.WithDetail(err.Error()))
		return false
	}
	return true
}

/* Isolates the {id} path variable. */
func isolateId(w http.ResponseWriter, r *http.Request) (id uuid.UUID, err error) {
	id, err = uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		responseJSON(w, http.StatusBadRequest, library.ErrResponseIdInvalidFormat)
		return id, err
	}
	return id, nil
}

/* Parses an optional uuid query parameter. */
func queryID(query url.Values, key string) (uuid.UUID, bool) {
	raw := query.Get(key)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

/*Validates and prepares the page parameters of the query.*/
func extractPageParams(query url.Values) (page, pageSize int, valid bool) {
	var err error
	pageStr := query.Get("page") //Convert page value to int and set default to 1.
	if pageStr == "" {
		page = 1
	} else {
		page, err = strconv.Atoi(pageStr)
		if err != nil {
			return 0, 0, false
		}
		if page <= 0 {
			return 0, 0, false
		}
	}

	pageSizeStr := query.Get("page_size") //Convert page_size value to int and set default to 10.
	if pageSizeStr == "" {
		pageSize = library.PageSizeDefault
	} else {
		pageSize, err = strconv.Atoi(pageSizeStr)
		if err != nil {
			return 0, 0, false
		}
		if !(0 < pageSize && pageSize <= library.PageSizeMax) {
			return 0, 0, false
		}
	}

	return page, pageSize, true
}

/*Writes a JSON response into a http.ResponseWriter. */
func responseJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("encoding response", "error", err)
	}
}
