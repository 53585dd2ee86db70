package db

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tenantcrm/crm-platform-backend/cmd/utils"
	"github.com/tenantcrm/crm-platform-backend/db/migrations"
)

const DBConfigOptionFlagName = "database-url"

type DatabaseCommand struct{}

func (c *DatabaseCommand) Command(globalOptions *utils.GlobalOptionsType) *cobra.Command {
	cmd := &cobra.Command{
		Use:              "db",
		Short:            "Database related commands",
		PersistentPreRun: utils.PropagatePersistentPreRun,
		RunE:             utils.CallHelpCommand,
	}

	cmd.AddCommand(c.adminMigrationsCmd(globalOptions))  // 'admin migrate up|down|status'
	cmd.AddCommand(c.tenantMigrationsCmd(globalOptions)) // 'tenant migrate up|down|status [--tenant-schema]'

	return cmd
}

// adminMigrationsCmd migrates the shared namespace holding the tenant directory and the signup requests.
func (c *DatabaseCommand) adminMigrationsCmd(globalOptions *utils.GlobalOptionsType) *cobra.Command {
	adminCmd := &cobra.Command{
		Use:              "admin",
		Short:            "Admin migrations used to configure the shared namespace",
		PersistentPreRun: utils.PropagatePersistentPreRun,
		RunE:             utils.CallHelpCommand,
	}

	adminCmd.AddCommand(MigrateCmd(migrations.AdminMigrationRouter, func(context.Context) ([]migrationTarget, error) {
		return []migrationTarget{{DSN: globalOptions.DatabaseURL}}, nil
	}))

	return adminCmd
}

// tenantMigrationsCmd migrates the schema of every tenant, or only the one named by --tenant-schema.
func (c *DatabaseCommand) tenantMigrationsCmd(globalOptions *utils.GlobalOptionsType) *cobra.Command {
	var tenantSchema string

	tenantCmd := &cobra.Command{
		Use:              "tenant",
		Short:            "Tenant migrations applied to every tenant schema",
		PersistentPreRun: utils.PropagatePersistentPreRun,
		RunE:             utils.CallHelpCommand,
	}
	tenantCmd.PersistentFlags().StringVar(&tenantSchema, "tenant-schema", "", "Only migrate the tenant with this schema name")

	tenantCmd.AddCommand(MigrateCmd(migrations.TenantMigrationRouter, func(ctx context.Context) ([]migrationTarget, error) {
		return tenantMigrationTargets(ctx, globalOptions.DatabaseURL, tenantSchema)
	}))

	return tenantCmd
}
