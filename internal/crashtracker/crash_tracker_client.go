package crashtracker

import (
	"context"
	"time"
)

type CrashTrackerClient interface {
	// LogAndReportErrors logs err, prefixed with msg when it is not empty, and reports it along with the tags found in
	// ctx.
	LogAndReportErrors(ctx context.Context, err error, msg string)
	LogAndReportMessages(ctx context.Context, msg string)
	FlushEvents(waitTime time.Duration) bool
	Recover()
	Clone() CrashTrackerClient
}
