package db

import (
	"context"
	"fmt"
	"time"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/db/migrations"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

// Migrate applies up to count migrations of the router's set against the database at dbURL. A count of zero means
// no limit.
func Migrate(dbURL string, dir migrate.MigrationDirection, count int, migrationRouter migrations.MigrationRouter) (int, error) {
	dbConnectionPool, err := OpenDBConnectionPool(dbURL)
	if err != nil {
		return 0, fmt.Errorf("database URL '%s': %w", utils.TruncateString(dbURL, len(dbURL)/4), err)
	}
	defer dbConnectionPool.Close()

	ms := migrate.MigrationSet{
		TableName: migrationRouter.TableName,
	}

	m := migrate.HttpFileSystemMigrationSource{FileSystem: migrationRouter.FS}
	ctx := context.Background()
	db, err := dbConnectionPool.SqlDB(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetching sql.DB: %w", err)
	}
	return ms.ExecMax(db, dbConnectionPool.DriverName(), m, dir, count)
}

// MigrationStatus tells whether one migration of a set was applied, and when. AppliedAt is nil for pending ones.
type MigrationStatus struct {
	ID        string
	AppliedAt *time.Time
}

// GetMigrationStatus lists every migration of the router's set, in order, with the time it was applied to the database
// at dbURL.
func GetMigrationStatus(ctx context.Context, dbURL string, migrationRouter migrations.MigrationRouter) ([]MigrationStatus, error) {
	dbConnectionPool, err := OpenDBConnectionPool(dbURL)
	if err != nil {
		return nil, fmt.Errorf("database URL '%s': %w", utils.TruncateString(dbURL, len(dbURL)/4), err)
	}
	defer dbConnectionPool.Close()

	source := migrate.HttpFileSystemMigrationSource{FileSystem: migrationRouter.FS}
	migrationList, err := source.FindMigrations()
	if err != nil {
		return nil, fmt.Errorf("finding migrations in %s: %w", migrationRouter.TableName, err)
	}

	sqlDB, err := dbConnectionPool.SqlDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching sql.DB: %w", err)
	}
	ms := migrate.MigrationSet{TableName: migrationRouter.TableName}
	records, err := ms.GetMigrationRecords(sqlDB, dbConnectionPool.DriverName())
	if err != nil {
		return nil, fmt.Errorf("getting records of %s: %w", migrationRouter.TableName, err)
	}

	appliedAt := make(map[string]time.Time, len(records))
	for _, r := range records {
		appliedAt[r.Id] = r.AppliedAt
	}

	statuses := make([]MigrationStatus, 0, len(migrationList))
	for _, m := range migrationList {
		status := MigrationStatus{ID: m.Id}
		if at, ok := appliedAt[m.Id]; ok {
			status.AppliedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// MigrateUpInTransaction applies every "up" migration of the router's set using the provided executer, which is
// expected to be a transaction already scoped to the target schema. Applied migrations are recorded in the router's
// tracking table using the same layout sql-migrate uses, so later runs of Migrate against that schema continue from
// where this left off. It returns the number of migrations applied.
func MigrateUpInTransaction(ctx context.Context, sqlExec SQLExecuter, migrationRouter migrations.MigrationRouter) (int, error) {
	source := migrate.HttpFileSystemMigrationSource{FileSystem: migrationRouter.FS}
	migrationList, err := source.FindMigrations()
	if err != nil {
		return 0, fmt.Errorf("finding migrations in %s: %w", migrationRouter.TableName, err)
	}

	createTrackingTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) NOT NULL PRIMARY KEY,
			applied_at TIMESTAMPTZ
		)
	`, migrationRouter.TableName)
	if _, err = sqlExec.ExecContext(ctx, createTrackingTable); err != nil {
		return 0, fmt.Errorf("creating migration tracking table %s: %w", migrationRouter.TableName, err)
	}

	var applied []string
	if err = sqlExec.SelectContext(ctx, &applied, fmt.Sprintf("SELECT id FROM %s", migrationRouter.TableName)); err != nil {
		return 0, fmt.Errorf("listing applied migrations: %w", err)
	}
	alreadyApplied := make(map[string]struct{}, len(applied))
	for _, id := range applied {
		alreadyApplied[id] = struct{}{}
	}

	insertQuery := fmt.Sprintf("INSERT INTO %s (id, applied_at) VALUES ($1, NOW())", migrationRouter.TableName)
	n := 0
	for _, m := range migrationList {
		if _, ok := alreadyApplied[m.Id]; ok {
			continue
		}
		for _, stmt := range m.Up {
			if _, err = sqlExec.ExecContext(ctx, stmt); err != nil {
				return n, fmt.Errorf("applying migration %s: %w", m.Id, err)
			}
		}
		if _, err = sqlExec.ExecContext(ctx, insertQuery, m.Id); err != nil {
			return n, fmt.Errorf("recording migration %s: %w", m.Id, err)
		}
		n++
	}

	log.Ctx(ctx).Debugf("applied %d migrations from %s in transaction", n, migrationRouter.TableName)
	return n, nil
}
