package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// unique_violation per the Postgres error code table.
const pgUniqueViolation = "23505"

// PostgresStore persists profiles in a Postgres table. The unique
// primary key on id is what makes concurrent creation converge: the
// second inserter gets a unique violation and refetches the winner's
// row.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle. The caller owns the
// handle's lifecycle and should have run [Migrate] first.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Profile, error) {
	const query = `
		SELECT id, email, name, role, verification_status, created_at, updated_at
		FROM profiles WHERE id = $1`

	var p Profile
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Email, &p.Name, &p.Role, &p.VerificationStatus,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get profile: %v", ErrStoreUnavailable, err)
	}
	return &p, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p *Profile) error {
	const query = `
		INSERT INTO profiles (id, email, name, role, verification_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Email, p.Name, p.Role, p.VerificationStatus,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return ErrDuplicateID
		}
		return fmt.Errorf("%w: insert profile: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p *Profile) error {
	// On conflict only email and updated_at move; role and
	// verification status are set once at creation and owned by the
	// review pipeline afterwards.
	const query = `
		INSERT INTO profiles (id, email, name, role, verification_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, updated_at = EXCLUDED.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Email, p.Name, p.Role, p.VerificationStatus,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert profile: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, p *Profile) error {
	const query = `
		UPDATE profiles
		SET email = $2, name = $3, role = $4, verification_status = $5, updated_at = $6
		WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query,
		p.ID, p.Email, p.Name, p.Role, p.VerificationStatus, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: update profile: %v", ErrStoreUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: update profile: %v", ErrStoreUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
