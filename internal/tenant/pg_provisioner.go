package tenant

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sql/notification_schema.sql
var notificationSchemaSQL string

// queueTableDDL is applied once per declared queue. The supporting index
// matches the claim query's (status, created_at) access path.
const queueTableDDL = `
CREATE TABLE IF NOT EXISTS queues.%s (
    id         BIGSERIAL PRIMARY KEY,
    payload    JSONB       NOT NULL,
    status     TEXT        NOT NULL DEFAULT 'pending',
    claimed_by TEXT,
    claimed_at TIMESTAMPTZ,
    result     TEXT,
    done_at    TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %s_status_created_at_idx
    ON queues.%s (status, created_at);`

// pgProvisioner executes tenant DDL. The admin pool is connected to the
// maintenance database of the tenants cluster (CREATE DATABASE cannot run
// inside the database being created, nor inside a transaction). Per-tenant
// schema statements run over short-lived direct connections built from the
// base template, because the target database did not exist when the process
// started.
type pgProvisioner struct {
	admin   *pgxpool.Pool
	baseCfg *pgx.ConnConfig
}

// NewPgProvisioner builds a Provisioner from the admin pool and the tenant
// base connection URL (the same template the resolver uses).
func NewPgProvisioner(admin *pgxpool.Pool, tenantBaseURL string) (Provisioner, error) {
	cfg, err := pgx.ParseConfig(tenantBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse tenant database template: %w", err)
	}
	return &pgProvisioner{admin: admin, baseCfg: cfg}, nil
}

func (p *pgProvisioner) tenantConn(ctx context.Context, dbName string) (*pgx.Conn, error) {
	cfg := p.baseCfg.Copy()
	cfg.Database = dbName
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to tenant database %q: %w", dbName, err)
	}
	return conn, nil
}

func (p *pgProvisioner) DatabaseExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := p.admin.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check database %q: %w", name, err)
	}
	return exists, nil
}

func (p *pgProvisioner) CreateDatabase(ctx context.Context, name string) error {
	// Database names cannot be bind parameters; name is already validated
	// against the tenant identifier pattern before reaching DDL.
	if _, err := p.admin.Exec(ctx, fmt.Sprintf(`CREATE DATABASE %s`, name)); err != nil {
		return fmt.Errorf("create database %q: %w", name, err)
	}
	return nil
}

func (p *pgProvisioner) ApplySchema(ctx context.Context, name string, queues []string) error {
	conn, err := p.tenantConn(ctx, name)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, notificationSchemaSQL); err != nil {
		return fmt.Errorf("create notification schema: %w", err)
	}
	if _, err := conn.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS queues`); err != nil {
		return fmt.Errorf("create queues schema: %w", err)
	}
	for _, q := range queues {
		if _, err := conn.Exec(ctx, fmt.Sprintf(queueTableDDL, q, q, q)); err != nil {
			return fmt.Errorf("create queue table %q: %w", q, err)
		}
	}
	return nil
}

func (p *pgProvisioner) CreateRole(ctx context.Context, dbName, user, secret string) error {
	// The role is cluster-level, but its grants bind it to this database only.
	createRole := fmt.Sprintf(`CREATE ROLE %s LOGIN PASSWORD '%s'`, user, secret)
	if _, err := p.admin.Exec(ctx, createRole); err != nil {
		return fmt.Errorf("create role %q: %w", user, err)
	}
	grant := fmt.Sprintf(`GRANT CONNECT ON DATABASE %s TO %s`, dbName, user)
	if _, err := p.admin.Exec(ctx, grant); err != nil {
		return fmt.Errorf("grant connect on %q: %w", dbName, err)
	}

	conn, err := p.tenantConn(ctx, dbName)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	grants := []string{
		fmt.Sprintf(`GRANT USAGE ON SCHEMA queues, notification TO %s`, user),
		fmt.Sprintf(`GRANT SELECT, INSERT, UPDATE ON ALL TABLES IN SCHEMA queues, notification TO %s`, user),
		fmt.Sprintf(`GRANT USAGE ON ALL SEQUENCES IN SCHEMA queues, notification TO %s`, user),
	}
	for _, g := range grants {
		if _, err := conn.Exec(ctx, g); err != nil {
			return fmt.Errorf("grant privileges to %q: %w", user, err)
		}
	}
	return nil
}

func (p *pgProvisioner) TerminateConnections(ctx context.Context, name string) error {
	// Dropping a database with open connections fails, so sever all live
	// sessions first (our own pools were evicted before this runs).
	_, err := p.admin.Exec(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`, name)
	if err != nil {
		return fmt.Errorf("terminate connections to %q: %w", name, err)
	}
	return nil
}

func (p *pgProvisioner) DropDatabase(ctx context.Context, name string) error {
	if _, err := p.admin.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, name)); err != nil {
		return fmt.Errorf("drop database %q: %w", name, err)
	}
	return nil
}

func (p *pgProvisioner) DropRole(ctx context.Context, user string) error {
	if _, err := p.admin.Exec(ctx, fmt.Sprintf(`DROP ROLE IF EXISTS %s`, user)); err != nil {
		return fmt.Errorf("drop role %q: %w", user, err)
	}
	return nil
}
