package queuestore

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/notifyhub/tenantq/internal/domain"
)

// Queue names come from the routing tables, but the façades still refuse
// anything that is not a plain identifier before it reaches a SQL string.
var queueNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

func validQueueName(queue string) error {
	if !queueNamePattern.MatchString(queue) {
		return fmt.Errorf("%w: %q", domain.ErrQueueNotFound, queue)
	}
	return nil
}

// mapPgError translates pgx errors into domain sentinels so callers can
// distinguish configuration bugs (missing queue table), client errors
// (missing tenant database), and transient storage failures.
func mapPgError(err error, tenant, queue string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UndefinedTable:
			return fmt.Errorf("%w: %q (tenant %q)", domain.ErrQueueNotFound, queue, tenant)
		case pgerrcode.InvalidCatalogName:
			return fmt.Errorf("%w: %q", domain.ErrTenantUnknown, tenant)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	return err
}
