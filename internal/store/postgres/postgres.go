package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle. Tests use it with sqlmock.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// inTx runs fn in a serializable transaction and commits when it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return mapError(err)
	}
	if err := tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError turns driver errors into store sentinels. Errors that already wrap
// a sentinel pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrConflict)
	case "23503", "23514":
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrInvalidInput)
	case "40001", "40P01":
		return fmt.Errorf("concurrent update: %w", store.ErrConflict)
	}
	return err
}

// conditions accumulates WHERE clauses with positional arguments.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) arg(val any) string {
	c.args = append(c.args, val)
	return "$" + strconv.Itoa(len(c.args))
}

func (c *conditions) add(clause string) {
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) equals(column string, val any) {
	c.add(column + " = " + c.arg(val))
}

// search matches any of the columns case-insensitively against term.
func (c *conditions) search(term string, columns ...string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	p := c.arg("%" + escapeLike(term) + "%")
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, col+" ILIKE "+p)
	}
	c.add("(" + strings.Join(parts, " OR ") + ")")
}

// flag adds predicate, or its negation, when want is set.
func (c *conditions) flag(want *bool, predicate string) {
	if want == nil {
		return
	}
	if *want {
		c.add("(" + predicate + ")")
		return
	}
	c.add("NOT (" + predicate + ")")
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

func (c *conditions) page(q domain.ListQuery) string {
	if q.Unbounded() {
		return ""
	}
	return " LIMIT " + c.arg(q.Limit) + " OFFSET " + c.arg(q.Offset())
}

// orderBy resolves q.SortBy against a whitelist of SQL expressions. Unknown
// keys fall back to the fallback key; tiebreak keeps paging stable.
func orderBy(q domain.ListQuery, columns map[string]string, fallback string, tiebreak string) string {
	expr, ok := columns[q.SortBy]
	if !ok {
		expr = columns[fallback]
	}
	dir := "ASC"
	if q.Descending() {
		dir = "DESC"
	}
	return " ORDER BY " + expr + " " + dir + ", " + tiebreak
}

func escapeLike(val string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(val)
}

func (s *Store) count(ctx context.Context, from string, c *conditions) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) "+from+c.where(), c.args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullID(val int64) any {
	if val < 1 {
		return nil
	}
	return val
}

func nullIDPtr(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullInt(val *int) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func idPtr(val sql.NullInt64) *int64 {
	if !val.Valid {
		return nil
	}
	id := val.Int64
	return &id
}

func intPtr(val sql.NullInt64) *int {
	if !val.Valid {
		return nil
	}
	n := int(val.Int64)
	return &n
}

func timePtr(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}
