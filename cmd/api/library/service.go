package library

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Service holds no mutable state of its own: everything it decides on is
// read from the Repository inside the transaction that acts on it.
type Service struct {
	repo         Repository
	clock        func() time.Time
	logger       Logger
	retryOptions []RetryOption
}

type Option func(*Service)

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithLogger(logger Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRetryOptions tunes how transactions aborted with ErrTxConflict are retried.
func WithRetryOptions(opts ...RetryOption) Option {
	return func(s *Service) {
		s.retryOptions = opts
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		clock:  time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) now() time.Time {
	return s.clock().UTC().Round(time.Millisecond)
}

// inTx runs fn inside one read-committed transaction and commits it. Any
// error from fn rolls the whole transaction back. Attempts aborted by the
// database with ErrTxConflict are run again from scratch.
func (s *Service) inTx(ctx context.Context, fn func(tx Repository) error) error {
	return RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		txRepo, tx, err := s.repo.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}

		if err := fn(txRepo); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rolling back transaction", "error", rbErr)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	}, s.retryOptions...)
}

func (s *Service) logFailure(op string, err error, args ...any) {
	if kind, ok := KindOf(err); ok {
		s.logger.Debug(op+" rejected", append(args, "kind", kind.String(), "reason", err.Error())...)
		return
	}
	s.logger.Error(op+" failed", append(args, "error", err)...)
}
