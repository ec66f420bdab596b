// Package journal implements durable submission logs for the store.
package journal

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/podium/internal/adapters/repository"
)

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown journal driver")

// Open connects the journal named by driver. The returned journal owns its
// connection and must be closed.
func Open(ctx context.Context, driver, dsn string) (repository.Journal, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
