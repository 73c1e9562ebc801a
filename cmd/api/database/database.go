package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/library-service/cmd/api/library"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // goqu dialect
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // "pgx" database/sql driver
	_ "github.com/lib/pq"              // "postgres" database/sql driver
)

const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"

	dialectPostgres = "postgres"
)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Store implements library.Repository on PostgreSQL. The executor is the
// pool itself, or the *sqlx.Tx of the transaction the store is bound to.
type Store struct {
	db     *sqlx.DB
	exc    sqlx.ExtContext
	logger Logger
}

type Option func(*Store)

func WithLogger(logger Logger) Option {
	return func(store *Store) {
		store.logger = logger
	}
}

func NewStore(db *sqlx.DB, opts ...Option) *Store {
	store := &Store{
		db:     db,
		exc:    db,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (store *Store) BeginTx(ctx context.Context, opts *sql.TxOptions) (library.Repository, library.Tx, error) {
	tx, err := store.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("beginning transaction: %w", classify(err))
	}

	txRepo := &Store{
		db:     store.db,
		exc:    tx,
		logger: store.logger,
	}
	return txRepo, tx, nil
}

// PoolConfig tunes the connection pool of the *sqlx.DB.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    50,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: time.Minute * 5,
	}
}

/* Connects to the database through a connection string with the given driver (DriverPQ or DriverPgx) and pings it. */
func ConnectDb(ctx context.Context, driverName, connStr string, pool PoolConfig) (*sqlx.DB, error) {
	if driverName != DriverPQ && driverName != DriverPgx {
		return nil, fmt.Errorf("connecting to db: unsupported driver %q", driverName)
	}

	db, err := sqlx.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("connecting to db, opening: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to db, pinging: %w", err)
	}
	return db, nil
}

/* Applies every pending migration found at path. Returns migrate.ErrNoChange when the schema is up to date. */
func MigrationUp(store *Store, path string) error {
	driver, err := postgres.WithInstance(store.db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", path),
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}

	err = m.Up()
	if err != nil {
		return fmt.Errorf("migrating up: %w", err)
	}
	return nil
}

func (store *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	store.logger.Debug("querying", "sql", query)
	return sqlx.GetContext(ctx, store.exc, dest, query, args...)
}

func (store *Store) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	store.logger.Debug("querying", "sql", query)
	return sqlx.SelectContext(ctx, store.exc, dest, query, args...)
}

func (store *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	store.logger.Debug("executing", "sql", query)
	return store.exc.ExecContext(ctx, query, args...)
}

/* Maps a missing row to notFound and every other error through classify. */
func rowError(err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return classify(err)
}

func columns(names string) []any {
	cols := []any{}
	for _, name := range strings.Split(names, ",") {
		cols = append(cols, strings.TrimSpace(name))
	}
	return cols
}

// -- Users --

const userColumns = "id, username, email, full_name, is_active, is_staff, created_at, updated_at"

type userRow struct {
	ID        uuid.UUID `db:"id"`
	Username  string    `db:"username"`
	Email     string    `db:"email"`
	FullName  string    `db:"full_name"`
	IsActive  bool      `db:"is_active"`
	IsStaff   bool      `db:"is_staff"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r userRow) toUser() library.User {
	return library.User(r)
}

func (store *Store) CreateUser(ctx context.Context, u library.User) (library.User, error) {
	sqlStatement := `
	INSERT INTO users (` + userColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + userColumns
	var row userRow
	err := store.get(ctx, &row, sqlStatement, u.ID, u.Username, u.Email, u.FullName, u.IsActive, u.IsStaff, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return library.User{}, fmt.Errorf("storing user on db: %w", classify(err))
	}
	return row.toUser(), nil
}

func (store *Store) GetUserByID(ctx context.Context, id uuid.UUID) (library.User, error) {
	sqlStatement := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var row userRow
	if err := store.get(ctx, &row, sqlStatement, id); err != nil {
		return library.User{}, fmt.Errorf("searching user by ID: %w", rowError(err, library.ErrResponseUserNotFound))
	}
	return row.toUser(), nil
}

/* Reads the user row and locks it until the transaction ends. Foreign key checks against the row still pass. */
func (store *Store) LockUser(ctx context.Context, id uuid.UUID) (library.User, error) {
	sqlStatement := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR NO KEY UPDATE`
	var row userRow
	if err := store.get(ctx, &row, sqlStatement, id); err != nil {
		return library.User{}, fmt.Errorf("locking user: %w", rowError(err, library.ErrResponseUserNotFound))
	}
	return row.toUser(), nil
}

func (store *Store) SetUserActive(ctx context.Context, id uuid.UUID, active bool, updatedAt time.Time) (library.User, error) {
	sqlStatement := `
	UPDATE users
	SET is_active = $2, updated_at = $3
	WHERE id = $1
	RETURNING ` + userColumns
	var row userRow
	if err := store.get(ctx, &row, sqlStatement, id, active, updatedAt); err != nil {
		return library.User{}, fmt.Errorf("updating user on db: %w", rowError(err, library.ErrResponseUserNotFound))
	}
	return row.toUser(), nil
}

// -- Authors --

const authorColumns = "id, name, biography, birth_date, nationality"

type authorRow struct {
	ID          uuid.UUID  `db:"id"`
	Name        string     `db:"name"`
	Biography   string     `db:"biography"`
	BirthDate   *time.Time `db:"birth_date"`
	Nationality string     `db:"nationality"`
}

func (r authorRow) toAuthor() library.Author {
	return library.Author(r)
}

func (store *Store) CreateAuthor(ctx context.Context, a library.Author) (library.Author, error) {
	sqlStatement := `
	INSERT INTO authors (` + authorColumns + `)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + authorColumns
	var row authorRow
	if err := store.get(ctx, &row, sqlStatement, a.ID, a.Name, a.Biography, a.BirthDate, a.Nationality); err != nil {
		return library.Author{}, fmt.Errorf("storing author on db: %w", classify(err))
	}
	return row.toAuthor(), nil
}

func (store *Store) GetAuthorByID(ctx context.Context, id uuid.UUID) (library.Author, error) {
	sqlStatement := `SELECT ` + authorColumns + ` FROM authors WHERE id = $1`
	var row authorRow
	if err := store.get(ctx, &row, sqlStatement, id); err != nil {
		return library.Author{}, fmt.Errorf("searching author by ID: %w", rowError(err, library.ErrResponseAuthorNotFound))
	}
	return row.toAuthor(), nil
}

func (store *Store) ListAuthors(ctx context.Context) ([]library.Author, error) {
	sqlStatement := `SELECT ` + authorColumns + ` FROM authors ORDER BY name, id`
	rows := []authorRow{}
	if err := store.selectRows(ctx, &rows, sqlStatement); err != nil {
		return []library.Author{}, fmt.Errorf("listing authors from db: %w", classify(err))
	}

	authors := make([]library.Author, 0, len(rows))
	for _, r := range rows {
		authors = append(authors, r.toAuthor())
	}
	return authors, nil
}

/* Deletes an author. The books foreign key restricts the delete while any book references the author. */
func (store *Store) DeleteAuthor(ctx context.Context, id uuid.UUID) error {
	result, err := store.exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		if code, _, ok := pgErrorInfo(err); ok && code == codeForeignKeyViolation {
			return fmt.Errorf("deleting author from db: %w", library.ErrResponseAuthorHasBooks)
		}
		return fmt.Errorf("deleting author from db: %w", classify(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting author from db: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deleting author from db: %w", library.ErrResponseAuthorNotFound)
	}
	return nil
}

// -- Books --

const bookColumns = "id, title, subtitle, author_id, description, category, publisher, publication_date, isbn, page_count, last_edition, language, cover_url, status, created_at, updated_at"

type bookRow struct {
	ID              uuid.UUID  `db:"id"`
	Title           string     `db:"title"`
	Subtitle        string     `db:"subtitle"`
	AuthorID        uuid.UUID  `db:"author_id"`
	Description     string     `db:"description"`
	Category        string     `db:"category"`
	Publisher       string     `db:"publisher"`
	PublicationDate *time.Time `db:"publication_date"`
	ISBN            string     `db:"isbn"`
	PageCount       *int       `db:"page_count"`
	LastEdition     *time.Time `db:"last_edition"`
	Language        string     `db:"language"`
	CoverURL        string     `db:"cover_url"`
	Status          string     `db:"status"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r bookRow) toBook() library.Book {
	return library.Book{
		ID:              r.ID,
		Title:           r.Title,
		Subtitle:        r.Subtitle,
		AuthorID:        r.AuthorID,
		Description:     r.Description,
		Category:        r.Category,
		Publisher:       r.Publisher,
		PublicationDate: r.PublicationDate,
		ISBN:            r.ISBN,
		PageCount:       r.PageCount,
		LastEdition:     r.LastEdition,
		Language:        r.Language,
		CoverURL:        r.CoverURL,
		Status:          library.BookStatus(r.Status),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

/* Stores the book into the database, checks and returns it if succeed. */
func (store *Store) CreateBook(ctx context.Context, b library.Book) (library.Book, error) {
	sqlStatement := `
	INSERT INTO books (` + bookColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING ` + bookColumns
	var row bookRow
	err := store.get(ctx, &row, sqlStatement,
		b.ID, b.Title, b.Subtitle, b.AuthorID, b.Description, b.Category, b.Publisher, b.PublicationDate,
		b.ISBN, b.PageCount, b.LastEdition, b.Language, b.CoverURL, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return library.Book{}, fmt.Errorf("storing book on db: %w", classify(err))
	}
	return row.toBook(), nil
}

func (store *Store) GetBookByID(ctx context.Context, id uuid.UUID) (library.Book, error) {
	sqlStatement := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	var row bookRow
	if err := store.get(ctx, &row, sqlStatement, id); err != nil {
		return library.Book{}, fmt.Errorf("searching book by ID: %w", rowError(err, library.ErrResponseBookNotFound))
	}
	return row.toBook(), nil
}

/* Reads the book row and locks it until the transaction ends. Foreign key checks against the row still pass. */
func (store *Store) LockBook(ctx context.Context, id uuid.UUID) (library.Book, error) {
	sqlStatement := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR NO KEY UPDATE`
	var row bookRow
	if err := store.get(ctx, &row, sqlStatement, id); err != nil {
		return library.Book{}, fmt.Errorf("locking book: %w", rowError(err, library.ErrResponseBookNotFound))
	}
	return row.toBook(), nil
}

/* Updates the metadata of a book. status and created_at are never touched here. */
func (store *Store) UpdateBook(ctx context.Context, b library.Book) (library.Book, error) {
	sqlStatement := `
	UPDATE books
	SET title = $2, subtitle = $3, author_id = $4, description = $5, category = $6, publisher = $7,
		publication_date = $8, isbn = $9, page_count = $10, last_edition = $11, language = $12,
		cover_url = $13, updated_at = $14
	WHERE id = $1
	RETURNING ` + bookColumns
	var row bookRow
	err := store.get(ctx, &row, sqlStatement,
		b.ID, b.Title, b.Subtitle, b.AuthorID, b.Description, b.Category, b.Publisher,
		b.PublicationDate, b.ISBN, b.PageCount, b.LastEdition, b.Language, b.CoverURL, b.UpdatedAt)
	if err != nil {
		return library.Book{}, fmt.Errorf("updating book on db: %w", rowError(err, library.ErrResponseBookNotFound))
	}
	return row.toBook(), nil
}

func (store *Store) SetBookStatus(ctx context.Context, id uuid.UUID, status library.BookStatus, updatedAt time.Time) (library.Book, error) {
	sqlStatement := `
	UPDATE books
	SET status = $2, updated_at = $3
	WHERE id = $1
	RETURNING ` + bookColumns
	var row bookRow
	if err := store.get(ctx, &row, sqlStatement, id, string(status), updatedAt); err != nil {
		return library.Book{}, fmt.Errorf("setting book status on db: %w", rowError(err, library.ErrResponseBookNotFound))
	}
	return row.toBook(), nil
}

func bookFilterExpressions(filter library.BookFilter) []goqu.Expression {
	exps := []goqu.Expression{}
	if filter.Title != "" {
		exps = append(exps, goqu.C("title").ILike("%"+filter.Title+"%"))
	}
	if filter.Category != "" {
		exps = append(exps, goqu.Func("LOWER", goqu.C("category")).Eq(strings.ToLower(filter.Category)))
	}
	if filter.AuthorID != uuid.Nil {
		exps = append(exps, goqu.C("author_id").Eq(filter.AuthorID.String()))
	}
	if filter.Status != "" {
		exps = append(exps, goqu.C("status").Eq(string(filter.Status)))
	}
	return exps
}

/* Lists a page of books matching the filter, ordered by title. */
func (store *Store) ListBooks(ctx context.Context, filter library.BookFilter) ([]library.Book, error) {
	offset := (filter.Page - 1) * filter.PageSize
	if offset < 0 {
		offset = 0
	}

	sqlStatement, args, err := goqu.Dialect(dialectPostgres).
		From("books").
		Select(columns(bookColumns)...).
		Where(bookFilterExpressions(filter)...).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc()).
		Limit(uint(filter.PageSize)).
		Offset(uint(offset)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return []library.Book{}, fmt.Errorf("building books query: %w", err)
	}

	rows := []bookRow{}
	if err := store.selectRows(ctx, &rows, sqlStatement, args...); err != nil {
		return []library.Book{}, fmt.Errorf("listing books from db: %w", classify(err))
	}

	books := make([]library.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, r.toBook())
	}
	return books, nil
}

func (store *Store) ListBooksTotals(ctx context.Context, filter library.BookFilter) (int, error) {
	sqlStatement, args, err := goqu.Dialect(dialectPostgres).
		From("books").
		Select(goqu.COUNT("*")).
		Where(bookFilterExpressions(filter)...).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("building books count query: %w", err)
	}

	var total int
	if err := store.get(ctx, &total, sqlStatement, args...); err != nil {
		return 0, fmt.Errorf("counting books from db: %w", classify(err))
	}
	return total, nil
}
