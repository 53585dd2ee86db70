package cmd

import (
	"go/types"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/cmd/db"
	cmdUtils "github.com/tenantcrm/crm-platform-backend/cmd/utils"
	di "github.com/tenantcrm/crm-platform-backend/internal/dependencyinjection"
	"github.com/tenantcrm/crm-platform-backend/internal/monitor"
)

// globalOptions holds the CLI options shared by every command and subcommand.
var globalOptions cmdUtils.GlobalOptionsType

func rootCmd() *cobra.Command {
	configOpts := config.ConfigOptions{
		{
			Name:           "log-level",
			Usage:          `The log level used in this project. Options: "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL", or "PANIC".`,
			OptType:        types.String,
			FlagDefault:    "TRACE",
			ConfigKey:      &globalOptions.LogLevel,
			CustomSetValue: cmdUtils.SetConfigOptionLogLevel,
			Required:       true,
		},
		{
			Name:      "sentry-dsn",
			Usage:     "The DSN (client key) of the Sentry project. If not provided, Sentry will not be used.",
			OptType:   types.String,
			ConfigKey: &globalOptions.SentryDSN,
			Required:  false,
		},
		cmdUtils.CrashTrackerTypeConfigOption(&globalOptions.CrashTrackerType),
		{
			Name:        "environment",
			Usage:       `The environment where the application is running. Example: "development", "staging", "production".`,
			OptType:     types.String,
			FlagDefault: "development",
			ConfigKey:   &globalOptions.Environment,
			Required:    true,
		},
		{
			Name:        db.DBConfigOptionFlagName,
			Usage:       `Postgres DB URL`,
			OptType:     types.String,
			FlagDefault: "postgres://localhost:5432/crm?sslmode=disable",
			ConfigKey:   &globalOptions.DatabaseURL,
			Required:    true,
		},
		{
			Name:        "db-max-open-conns",
			Usage:       "The maximum number of open connections to the database.",
			OptType:     types.Int,
			ConfigKey:   &globalOptions.DBMaxOpenConns,
			FlagDefault: 20,
			Required:    false,
		},
		{
			Name:        "db-max-idle-conns",
			Usage:       "The maximum number of idle connections kept in the database pool.",
			OptType:     types.Int,
			ConfigKey:   &globalOptions.DBMaxIdleConns,
			FlagDefault: 2,
			Required:    false,
		},
		{
			Name:           "db-conn-max-lifetime",
			Usage:          `How long a database connection may be reused, e.g. "5m".`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionDuration,
			ConfigKey:      &globalOptions.DBConnMaxLifetime,
			FlagDefault:    "5m",
			Required:       false,
		},
		{
			Name:           "base-domain",
			Usage:          `The domain new tenants get their subdomain under. Example: "crm.example.com".`,
			OptType:        types.String,
			CustomSetValue: cmdUtils.SetConfigOptionBaseDomain,
			FlagDefault:    "localhost",
			ConfigKey:      &globalOptions.BaseDomain,
			Required:       true,
		},
	}

	rootCmd := &cobra.Command{
		Use:     "crm-platform",
		Short:   "CRM Platform",
		Long:    "The CRM Platform backend provisions isolated tenants from demo requests and serves their API.",
		Version: globalOptions.Version,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}
			log.Info("Version: ", globalOptions.Version)
			log.Info("GitCommit: ", globalOptions.GitCommit)
		},
		RunE: cmdUtils.CallHelpCommand,
	}

	if err := configOpts.Init(rootCmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}
	// Read by cmdUtils.LoadEnvFile before the CLI is built. Declared so cobra accepts it.
	rootCmd.PersistentFlags().String("env-file", "", "Path of a .env file loaded before the other options are read")

	return rootCmd
}

// dbConnectionPoolOptions returns the pool options for databaseURL, sized by the global options.
func dbConnectionPoolOptions(databaseURL string) di.DBConnectionPoolOptions {
	return di.DBConnectionPoolOptions{
		DatabaseURL:     databaseURL,
		MaxOpenConns:    globalOptions.DBMaxOpenConns,
		MaxIdleConns:    globalOptions.DBMaxIdleConns,
		ConnMaxLifetime: globalOptions.DBConnMaxLifetime,
	}
}

// SetupCLI sets up the CLI and returns the root command with the subcommands attached.
func SetupCLI(version, gitCommit string) *cobra.Command {
	globalOptions.Version = version
	globalOptions.GitCommit = gitCommit
	rootCmd := rootCmd()

	rootCmd.AddCommand((&ServeCommand{}).Command(&ServerService{}, &monitor.MonitorService{}))
	rootCmd.AddCommand((&db.DatabaseCommand{}).Command(&globalOptions))
	rootCmd.AddCommand((&DemoRequestsCommand{}).Command(&DemoRequestsService{}))
	rootCmd.AddCommand((&TenantsCommand{}).Command(&TenantsService{}))

	return rootCmd
}
