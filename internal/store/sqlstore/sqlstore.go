package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"notes/internal/errs"
	"notes/internal/store"
)

// DBType represents the type of database
type DBType string

const (
	SQLite   DBType = "sqlite3" // mattn/go-sqlite3, cgo
	SQLiteGo DBType = "sqlite"  // glebarez/go-sqlite, pure Go
	Postgres DBType = "postgres"
)

// SQLStore implements the store.Store interface for SQL databases
type SQLStore struct {
	db     *sql.DB
	dbType DBType
}

var _ store.Store = (*SQLStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens a SQLStore with the given driver and connection string and
// applies the schema.
func New(driver, connStr string) (*SQLStore, error) {
	dbType := DBType(driver)
	switch dbType {
	case SQLite, SQLiteGo, Postgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dbType.isSQLite() {
		// One writer at a time; also keeps :memory: databases on a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLStore{
		db:     db,
		dbType: dbType,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return store, nil
}

func (t DBType) isSQLite() bool {
	return t == SQLite || t == SQLiteGo
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.dbType != Postgres {
		return query
	}
	var result strings.Builder
	argNum := 1
	for _, c := range query {
		if c == '?' {
			fmt.Fprintf(&result, "$%d", argNum)
			argNum++
		} else {
			result.WriteRune(c)
		}
	}
	return result.String()
}

// placeholders returns "?,?,?" with n marks.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func intArgs(ids []int) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// insert runs an INSERT and returns the generated id.
func (s *SQLStore) insert(ctx context.Context, q querier, query string, args ...any) (int, error) {
	if s.dbType == Postgres {
		var id int
		err := q.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id)
		return id, err
	}
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	return int(id), err
}

// exec runs a statement and reports how many rows it touched.
func (s *SQLStore) exec(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	result, err := q.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// withTx runs fn inside a transaction, committing only when fn succeeds.
func (s *SQLStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// uniqueViolation reports whether err is a UNIQUE constraint failure and, if
// so, which users column caused it.
func uniqueViolation(err error) (field string, ok bool) {
	var detail string

	var liteErr sqlite3.Error
	var pqErr *pq.Error
	switch {
	case errors.As(err, &liteErr):
		if liteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
			return "", false
		}
		detail = liteErr.Error()
	case errors.As(err, &pqErr):
		if pqErr.Code != "23505" {
			return "", false
		}
		detail = pqErr.Constraint + " " + pqErr.Detail
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		// glebarez/go-sqlite surfaces the engine message as-is
		detail = err.Error()
	default:
		return "", false
	}

	switch {
	case strings.Contains(detail, "email"):
		return "email", true
	case strings.Contains(detail, "name"):
		return "name", true
	}
	return "", true
}

func notFound(what string, id int) error {
	return fmt.Errorf("%s %d: %w", what, id, errs.ErrNotFound)
}
