package db

import "time"

// Connection defaults.
const (
	defaultMaxConns          = 8
	defaultMinConns          = 1
	defaultMaxConnIdleTime   = 5 * time.Minute
	defaultMaxConnLifetime   = time.Hour
	defaultHealthCheckPeriod = 30 * time.Second
	maxConnectionRetries     = 5
	connectionRetrySleep     = 2 * time.Second
)

// Advisory lock identifiers. The migration lock and the pass lock must not
// collide with each other or with other tools sharing the database.
const (
	migrationLockID = 1000
	passLockID      = int64(58121)
)
