package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// migrationLockKey identifies the metering schema migration in
// pg_locks. Any other process using the same key serializes with us.
const migrationLockKey int64 = 6_183_550_427

type unlockFunc func(ctx context.Context) error

// acquireMigrationLock takes the postgres advisory lock for schema
// migrations, or fails immediately if another migrator holds it.
func acquireMigrationLock(ctx context.Context, db *sql.DB) (unlockFunc, error) {
	if db == nil {
		return nil, errors.New("migration lock requires database handle")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var locked bool
	if err := db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockKey).Scan(&locked); err != nil {
		return nil, fmt.Errorf("acquire migration lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another migration process holds the lock")
	}

	unlock := func(unlockCtx context.Context) error {
		if unlockCtx == nil {
			unlockCtx = context.Background()
		}
		var released bool
		if err := db.QueryRowContext(unlockCtx, "SELECT pg_advisory_unlock($1)", migrationLockKey).Scan(&released); err != nil {
			return fmt.Errorf("release migration lock: %w", err)
		}
		if !released {
			return errors.New("migration lock was not held by this session")
		}
		return nil
	}
	return unlock, nil
}
