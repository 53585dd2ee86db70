package crashtracker

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"
)

type dryRunClient struct{}

func (dryRunClient) LogAndReportErrors(ctx context.Context, err error, msg string) {
	if msg != "" {
		err = fmt.Errorf("%s: %w", msg, err)
	}
	entryWithTags(ctx).Errorf("[DRY_RUN Crash Reporter] %+v", err)
}

func (dryRunClient) LogAndReportMessages(ctx context.Context, msg string) {
	entryWithTags(ctx).Infof("[DRY_RUN Crash Reporter] %s", msg)
}

func (dryRunClient) FlushEvents(time.Duration) bool {
	return false
}

func (dryRunClient) Recover() {}

func (dryRunClient) Clone() CrashTrackerClient {
	return dryRunClient{}
}

func NewDryRunClient() CrashTrackerClient {
	return dryRunClient{}
}

func entryWithTags(ctx context.Context) *log.Entry {
	fields := log.F{}
	for k, v := range TagsFromContext(ctx) {
		fields[k] = v
	}
	return log.Ctx(ctx).WithFields(fields)
}

var _ CrashTrackerClient = dryRunClient{}
