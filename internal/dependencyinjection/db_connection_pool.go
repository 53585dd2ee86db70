package dependencyinjection

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/dbmetrics"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
)

const DBConnectionPoolInstanceName = "db_connection_pool_instance"

type DBConnectionPoolOptions struct {
	DatabaseURL string
	// MonitorService is optional. When set, every query duration is reported to it.
	MonitorService monitor.MonitorServiceInterface
	// Zero values keep the pool defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (opts DBConnectionPoolOptions) poolOptions() []db.PoolOption {
	var poolOpts []db.PoolOption
	if opts.MaxOpenConns > 0 {
		poolOpts = append(poolOpts, db.WithMaxOpenConns(opts.MaxOpenConns))
	}
	if opts.MaxIdleConns > 0 {
		poolOpts = append(poolOpts, db.WithMaxIdleConns(opts.MaxIdleConns))
	}
	if opts.ConnMaxLifetime > 0 {
		poolOpts = append(poolOpts, db.WithConnMaxLifetime(opts.ConnMaxLifetime))
	}
	return poolOpts
}

// NewDBConnectionPool creates the connection pool to the shared database, or returns the one created before.
func NewDBConnectionPool(ctx context.Context, opts DBConnectionPoolOptions) (db.DBConnectionPool, error) {
	return getOrCreate(DBConnectionPoolInstanceName, func() (db.DBConnectionPool, error) {
		log.Ctx(ctx).Info("⚙️ Setting up DBConnectionPool")
		dbConnectionPool, err := db.OpenDBConnectionPool(opts.DatabaseURL, opts.poolOptions()...)
		if err != nil {
			return nil, fmt.Errorf("opening DB connection pool: %w", err)
		}
		if opts.MonitorService == nil {
			return dbConnectionPool, nil
		}

		monitoredPool, err := dbmetrics.NewConnectionPool(dbConnectionPool, opts.MonitorService)
		if err != nil {
			return nil, fmt.Errorf("wrapping DB connection pool with metrics: %w", err)
		}
		return monitoredPool, nil
	})
}
