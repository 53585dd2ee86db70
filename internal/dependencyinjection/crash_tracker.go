package dependencyinjection

import (
	"context"
	"fmt"

	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
)

const CrashTrackerInstanceName = "crash_tracker_instance"

// buildCrashTrackerInstanceName keys crash trackers by type, so a dry-run and a Sentry client can coexist.
func buildCrashTrackerInstanceName(crashTrackerType crashtracker.CrashTrackerType) string {
	return fmt.Sprintf("%s-%s", CrashTrackerInstanceName, string(crashTrackerType))
}

func NewCrashTracker(ctx context.Context, opts crashtracker.CrashTrackerOptions) (crashtracker.CrashTrackerClient, error) {
	return getOrCreate(buildCrashTrackerInstanceName(opts.CrashTrackerType), func() (crashtracker.CrashTrackerClient, error) {
		client, err := crashtracker.GetClient(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("error creating a new crash tracker instance: %w", err)
		}
		return client, nil
	})
}
