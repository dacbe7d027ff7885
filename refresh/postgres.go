package refresh

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/bizdesk/authcore/refresh/migrations"
)

// PostgresStore is a PostgreSQL-backed Store. Rotation runs inside a
// transaction: the DELETE of the consumed row gates the INSERT of the next
// one, so concurrent rotations of the same hash serialize on the row lock
// and exactly one wins.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle. The schema must already be
// in place; OpenPostgres applies it.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects via the pgx stdlib driver, verifies the connection,
// and applies the embedded goose migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrations: %v", ErrUnavailable, err)
	}

	return NewPostgresStore(db), nil
}

// Close releases the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO refresh_tokens (token_hash, id, user_id, tenant_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.SecretHash.Hex(), rec.ID, rec.UserID, rec.TenantID, rec.IssuedAt, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, hash Hash) (Record, error) {
	query := `
		SELECT id, user_id, tenant_id, issued_at, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`
	rec := Record{SecretHash: hash}
	err := s.db.QueryRowContext(ctx, query, hash.Hex()).
		Scan(&rec.ID, &rec.UserID, &rec.TenantID, &rec.IssuedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if rec.ExpiredAt(time.Now()) {
		return Record{}, ErrExpired
	}
	return rec, nil
}

func (s *PostgresStore) Rotate(ctx context.Context, hash Hash, next Record) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer tx.Rollback()

	now := time.Now()

	consume := `
		DELETE FROM refresh_tokens
		WHERE token_hash = $1
		RETURNING id, user_id, tenant_id, issued_at, expires_at
	`
	old := Record{SecretHash: hash}
	err = tx.QueryRowContext(ctx, consume, hash.Hex()).
		Scan(&old.ID, &old.UserID, &old.TenantID, &old.IssuedAt, &old.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, s.classifyMissing(ctx, tx, hash, now)
	}
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if old.ExpiredAt(now) {
		// Keep the lazy delete of the stale row.
		if err := tx.Commit(); err != nil {
			return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Record{}, ErrExpired
	}

	tombstone := `
		INSERT INTO consumed_refresh_tokens (token_hash, user_id, tenant_id, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.ExecContext(ctx, tombstone, hash.Hex(), old.UserID, old.TenantID, old.ExpiresAt); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	next.UserID = old.UserID
	next.TenantID = old.TenantID
	insert := `
		INSERT INTO refresh_tokens (token_hash, id, user_id, tenant_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, insert,
		next.SecretHash.Hex(), next.ID, next.UserID, next.TenantID, next.IssuedAt, next.ExpiresAt); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return old, nil
}

// classifyMissing distinguishes a replayed hash from an unknown one once the
// live row is gone.
func (s *PostgresStore) classifyMissing(ctx context.Context, tx *sql.Tx, hash Hash, now time.Time) error {
	query := `
		SELECT user_id, tenant_id
		FROM consumed_refresh_tokens
		WHERE token_hash = $1 AND expires_at > $2
	`
	var userID, tenantID string
	err := tx.QueryRowContext(ctx, query, hash.Hex(), now).Scan(&userID, &tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &ReuseError{UserID: userID, TenantID: tenantID}
}

func (s *PostgresStore) Delete(ctx context.Context, hash Hash) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token_hash = $1
	`
	if _, err := s.db.ExecContext(ctx, query, hash.Hex()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) DeleteAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE user_id = $1
	`
	res, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	now := time.Now()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM consumed_refresh_tokens
		WHERE expires_at <= $1
	`, now); err != nil {
		return n, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}
