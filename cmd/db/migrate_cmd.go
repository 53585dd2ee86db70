package db

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/cmd/utils"
	"github.com/tenantcrm/crm-platform-backend/db"
	"github.com/tenantcrm/crm-platform-backend/db/migrations"
)

// migrationTarget is one database (or tenant schema) a migration set is applied to.
type migrationTarget struct {
	// Name is printed before the target's status. Empty for the shared namespace.
	Name string
	DSN  string
}

// migrationTargetsFn resolves, at run time, the databases a migrate command works on.
type migrationTargetsFn func(ctx context.Context) ([]migrationTarget, error)

// MigrateCmd returns the 'migrate up|down|status' command tree for the migration set of router, applied to every
// target returned by targetsFn.
func MigrateCmd(router migrations.MigrationRouter, targetsFn migrationTargetsFn) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:              "migrate",
		Short:            "Schema migration helpers",
		PersistentPreRun: utils.PropagatePersistentPreRun,
		RunE:             utils.CallHelpCommand,
	}

	run := func(ctx context.Context, dir migrate.MigrationDirection, count int) error {
		targets, err := targetsFn(ctx)
		if err != nil {
			return err
		}
		return executeMigrationsOnTargets(ctx, targets, dir, count, router)
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up [count]",
			Short: "Migrates database up [count] migrations. Every pending migration when count is omitted.",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				count := 0
				if len(args) > 0 {
					var err error
					if count, err = parseCount(args[0]); err != nil {
						return err
					}
				}
				return run(cmd.Context(), migrate.Up, count)
			},
		},
		&cobra.Command{
			Use:   "down count",
			Short: "Migrates database down count migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				count, err := parseCount(args[0])
				if err != nil {
					return err
				}
				return run(cmd.Context(), migrate.Down, count)
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Lists the migrations and when each one was applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx := cmd.Context()
				targets, err := targetsFn(ctx)
				if err != nil {
					return err
				}
				for _, target := range targets {
					statuses, err := db.GetMigrationStatus(ctx, target.DSN, router)
					if err != nil {
						return fmt.Errorf("getting migration status of %s: %w", orShared(target.Name), err)
					}
					if err = printMigrationStatus(cmd.OutOrStdout(), target.Name, statuses); err != nil {
						return err
					}
				}
				return nil
			},
		},
	)

	return migrateCmd
}

func executeMigrationsOnTargets(ctx context.Context, targets []migrationTarget, dir migrate.MigrationDirection, count int, router migrations.MigrationRouter) error {
	for _, target := range targets {
		if target.Name == "" {
			if err := ExecuteMigrations(ctx, target.DSN, dir, count, router); err != nil {
				return err
			}
			continue
		}

		log.Ctx(ctx).Infof("Applying %s migrations %s on %s", router.TableName, migrationDirectionStr(dir), target.Name)
		if err := ExecuteMigrations(ctx, target.DSN, dir, count, router); err != nil {
			return fmt.Errorf("migrating %s %s: %w", target.Name, migrationDirectionStr(dir), err)
		}
	}
	return nil
}

func parseCount(arg string) (int, error) {
	count, err := strconv.Atoi(arg)
	if err != nil || count < 0 {
		return 0, fmt.Errorf("invalid [count] argument: %s", arg)
	}
	return count, nil
}

func orShared(name string) string {
	if name == "" {
		return "the shared namespace"
	}
	return name
}

func printMigrationStatus(out io.Writer, name string, statuses []db.MigrationStatus) error {
	if name != "" {
		fmt.Fprintf(out, "%s:\n", name)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED AT")
	for _, s := range statuses {
		appliedAt := "pending"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\n", s.ID, appliedAt)
	}
	return w.Flush()
}

// ExecuteMigrations executes the migrations on the database, according with the direction, count and folder containing
// the migration files.
func ExecuteMigrations(ctx context.Context, dbURL string, dir migrate.MigrationDirection, count int, migrationRouter migrations.MigrationRouter) error {
	numMigrationsRun, err := db.Migrate(dbURL, dir, count, migrationRouter)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	if numMigrationsRun == 0 {
		log.Ctx(ctx).Info("No migrations applied.")
	} else {
		log.Ctx(ctx).Infof("Successfully applied %d migrations %s.", numMigrationsRun, migrationDirectionStr(dir))
	}
	return nil
}

func migrationDirectionStr(dir migrate.MigrationDirection) string {
	if dir == migrate.Up {
		return "up"
	}
	return "down"
}
