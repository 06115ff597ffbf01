package db

import (
	"context"
	"fmt"
)

// TryAcquirePassLock takes the engine's single-flight advisory lock on a
// dedicated connection. Advisory locks are session scoped, so the connection
// is pinned until ReleasePassLock; letting the pool recycle it would drop the
// lock mid-pass.
func (db *DB) TryAcquirePassLock(ctx context.Context) (bool, error) {
	db.lockMu.Lock()
	defer db.lockMu.Unlock()

	if db.lockConn != nil {
		return false, nil
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", passLockID).Scan(&acquired); err != nil {
		conn.Release()

		return false, fmt.Errorf("try acquire pass lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return false, nil
	}

	db.lockConn = conn

	return true, nil
}

// ReleasePassLock releases the advisory lock and returns the pinned
// connection to the pool.
func (db *DB) ReleasePassLock(ctx context.Context) error {
	db.lockMu.Lock()
	defer db.lockMu.Unlock()

	if db.lockConn == nil {
		return nil
	}

	_, err := db.lockConn.Exec(ctx, "SELECT pg_advisory_unlock($1)", passLockID)

	db.lockConn.Release()
	db.lockConn = nil

	if err != nil {
		return fmt.Errorf("release pass lock: %w", err)
	}

	return nil
}
