package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/tenantq/internal/domain"
)

type pgControlPlaneStore struct {
	pool *pgxpool.Pool
}

// NewPgControlPlaneStore returns a ControlPlaneStore backed by the
// control-plane PostgreSQL database.
func NewPgControlPlaneStore(pool *pgxpool.Pool) ControlPlaneStore {
	return &pgControlPlaneStore{pool: pool}
}

func (s *pgControlPlaneStore) Insert(ctx context.Context, t *domain.Tenant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tenants
			(identifier, display_name, tier, status, db_user, db_secret, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.DisplayName, t.Tier, t.Status, t.DBUser, t.DBSecret, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %q", domain.ErrTenantExists, t.ID)
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

func (s *pgControlPlaneStore) Get(ctx context.Context, id string) (*domain.Tenant, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT identifier, display_name, tier, status, db_user, db_secret, created_at, updated_at
		FROM tenants WHERE identifier = $1`, id)

	var t domain.Tenant
	err := row.Scan(&t.ID, &t.DisplayName, &t.Tier, &t.Status, &t.DBUser, &t.DBSecret, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", domain.ErrTenantNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

func (s *pgControlPlaneStore) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT identifier, display_name, tier, status, db_user, db_secret, created_at, updated_at
		FROM tenants ORDER BY identifier ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*domain.Tenant
	for rows.Next() {
		var t domain.Tenant
		if err := rows.Scan(&t.ID, &t.DisplayName, &t.Tier, &t.Status, &t.DBUser, &t.DBSecret, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

func (s *pgControlPlaneStore) UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE tenants SET status = $1, updated_at = now() WHERE identifier = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", domain.ErrTenantNotFound, id)
	}
	return nil
}

func (s *pgControlPlaneStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tenants WHERE identifier = $1`, id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %q", domain.ErrTenantNotFound, id)
	}
	return nil
}
