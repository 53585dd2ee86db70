package utils

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
)

type GlobalOptionsType struct {
	LogLevel    logrus.Level
	SentryDSN   string
	Environment string
	Version     string
	GitCommit   string
	DatabaseURL string
	BaseDomain  string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	CrashTrackerType crashtracker.CrashTrackerType
}

// CrashTrackerOptions returns the crash tracker options derived from the global options.
func (g GlobalOptionsType) CrashTrackerOptions() crashtracker.CrashTrackerOptions {
	opts := crashtracker.CrashTrackerOptions{CrashTrackerType: g.CrashTrackerType}
	g.PopulateCrashTrackerOptions(&opts)
	return opts
}

// PopulateCrashTrackerOptions fills the crash tracker options that come from the global options.
func (g GlobalOptionsType) PopulateCrashTrackerOptions(crashTrackerOptions *crashtracker.CrashTrackerOptions) {
	if crashTrackerOptions.CrashTrackerType == crashtracker.CrashTrackerTypeSentry {
		crashTrackerOptions.SentryDSN = g.SentryDSN
	}
	crashTrackerOptions.Environment = g.Environment
	crashTrackerOptions.GitCommit = g.GitCommit
}
