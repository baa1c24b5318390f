package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"assettracker-backend/internal/logger"
	"assettracker-backend/internal/repository"
)

const (
	uniqueViolation      = "23505"
	pendingRequestIndex  = "uq_asset_requests_pending"
	usersEmailConstraint = "users_email_key"
)

var dialect = goqu.Dialect("postgres")

// Store is the PostgreSQL backend. A Store handed to a WithinTx callback routes every
// statement through the same *sqlx.Tx.
type Store struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
	tx  *sqlx.Tx
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	x := sqlx.NewDb(db, "postgres")
	return &Store{db: x, ext: x}
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{db: db, ext: db}, nil
}

// DB exposes the underlying handle for health checks and test setup.
func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Users() repository.UserRepository { return NewUserRepository(s.ext) }

// Inside a transaction GetByID takes a row lock, so competing transitions on the same
// request or asset queue up instead of racing to the conditional update.
func (s *Store) Assets() repository.AssetRepository {
	return &assetRepository{db: s.ext, lock: s.tx != nil}
}

func (s *Store) Requests() repository.AssetRequestRepository {
	return &assetRequestRepository{db: s.ext, lock: s.tx != nil}
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close(context.Context) error {
	if s.tx != nil {
		return nil
	}
	return s.db.Close()
}

// WithinTx runs fn in a READ COMMITTED transaction. Status updates stay conditional on
// the expected status even when the row was read under lock.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if s.tx != nil {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, &Store{db: s.db, ext: tx, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// notFound maps sql.ErrNoRows to the domain's missing-entity error.
func notFound(err, missing error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return missing
	}
	return err
}

// conditional checks the outcome of an UPDATE guarded by the expected status. When no
// row matched it distinguishes a missing record from a stale one.
func conditional(ctx context.Context, ext sqlx.ExtContext, res sql.Result, table, id string, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table)
	if err := sqlx.GetContext(ctx, ext, &exists, query, id); err != nil {
		return err
	}
	if !exists {
		return missing
	}
	return repository.ErrStaleState
}
