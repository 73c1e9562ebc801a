package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type ServerConfig struct {
	Port           int
	RequestTimeout time.Duration
}

func NewServer(config ServerConfig, h *Handler) *http.Server {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.Use(jsonContent)
	r.Use(withTimeout(config.RequestTimeout))

	r.HandleFunc("/ping", ping).Methods(http.MethodGet)

	r.HandleFunc("/users", h.registerUser).Methods(http.MethodPost)
	r.Handle("/users/{id}", h.identify(h.getUser)).Methods(http.MethodGet)
	r.Handle("/users/{id}/active", h.identify(h.staffOnly(h.setUserActive))).Methods(http.MethodPatch)
	r.HandleFunc("/users/{id}/borrowed-books", h.borrowedBooks).Methods(http.MethodGet)

	r.HandleFunc("/authors", h.listAuthors).Methods(http.MethodGet)
	r.Handle("/authors", h.identify(h.createAuthor)).Methods(http.MethodPost)
	r.HandleFunc("/authors/{id}", h.getAuthor).Methods(http.MethodGet)
	r.Handle("/authors/{id}", h.identify(h.deleteAuthor)).Methods(http.MethodDelete)

	r.HandleFunc("/books", h.listBooks).Methods(http.MethodGet)
	r.Handle("/books", h.identify(h.createBook)).Methods(http.MethodPost)
	r.HandleFunc("/books/{id}", h.getBook).Methods(http.MethodGet)
	r.Handle("/books/{id}", h.identify(h.updateBook)).Methods(http.MethodPut)
	r.Handle("/books/{id}/status", h.identify(h.staffOnly(h.setBookStatus))).Methods(http.MethodPatch)

	// Fixed paths go before /borrowings/{id}.
	r.Handle("/borrowings/overdue", h.identify(h.staffOnly(h.listOverdue))).Methods(http.MethodGet)
	r.Handle("/borrowings/borrowers", h.identify(h.staffOnly(h.listBorrowers))).Methods(http.MethodGet)
	r.Handle("/borrowings", h.identify(h.listBorrowings)).Methods(http.MethodGet)
	r.Handle("/borrowings", h.identify(h.borrow)).Methods(http.MethodPost)
	r.Handle("/borrowings/{id}", h.identify(h.getBorrowing)).Methods(http.MethodGet)
	r.Handle("/borrowings/{id}/return", h.identify(h.returnBorrowing)).Methods(http.MethodPost)
	r.Handle("/borrowings/{id}/renew", h.identify(h.renew)).Methods(http.MethodPost)

	r.Handle("/reservations", h.identify(h.listReservations)).Methods(http.MethodGet)
	r.Handle("/reservations", h.identify(h.reserve)).Methods(http.MethodPost)

	server := http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &server
}

/* Tests the http server connection.  */
func ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("request served", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		next.ServeHTTP(w, r)
	})
}

/* Bounds every request context by timeout. A zero timeout leaves the context untouched. */
func withTimeout(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if timeout <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
