package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/tenantcrm/crm-platform-backend/cmd/utils"
	di "github.com/tenantcrm/crm-platform-backend/internal/dependencyinjection"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/workflow"
)

// DemoRequestsServiceOptions carries what the CLI collected for building a demo request processor.
type DemoRequestsServiceOptions struct {
	DatabaseURL string
	BaseDomain  string
	Email       message.MessengerOptions
	Workflow    cmdUtils.WorkflowOptions
}

type DemoRequestsServiceInterface interface {
	GetProcessor(ctx context.Context, opts DemoRequestsServiceOptions) (workflow.DemoRequestProcessor, error)
}

type DemoRequestsService struct{}

var _ DemoRequestsServiceInterface = (*DemoRequestsService)(nil)

func (s *DemoRequestsService) GetProcessor(ctx context.Context, opts DemoRequestsServiceOptions) (workflow.DemoRequestProcessor, error) {
	dbConnectionPool, err := di.NewDBConnectionPool(ctx, dbConnectionPoolOptions(opts.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("getting database connection pool: %w", err)
	}

	crashTrackerClient, err := di.NewCrashTracker(ctx, globalOptions.CrashTrackerOptions())
	if err != nil {
		return nil, fmt.Errorf("creating crash tracker client: %w", err)
	}

	emailClient, err := di.NewEmailClient(opts.Email)
	if err != nil {
		return nil, fmt.Errorf("creating email client: %w", err)
	}

	processor, err := di.NewDemoRequestProcessor(di.DemoRequestProcessorOptions{
		DBConnectionPool:     dbConnectionPool,
		BaseDomain:           opts.BaseDomain,
		EmailMessengerClient: emailClient,
		CrashTrackerClient:   crashTrackerClient,
		ProductName:          opts.Workflow.ProductName,
		StepTimeout:          opts.Workflow.StepTimeout,
		NotificationTimeout:  opts.Workflow.NotificationTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("creating demo request processor: %w", err)
	}
	return processor, nil
}

type DemoRequestsCommand struct{}

func (c *DemoRequestsCommand) Command(service DemoRequestsServiceInterface) *cobra.Command {
	serviceOpts := DemoRequestsServiceOptions{}

	configOpts := config.ConfigOptions{}
	configOpts = append(configOpts, cmdUtils.EmailConfigOptions(&serviceOpts.Email)...)
	configOpts = append(configOpts, cmdUtils.WorkflowConfigOptions(&serviceOpts.Workflow)...)

	// getProcessor is shared by the subcommands. The connection pool it opens is closed by closeDependencies.
	getProcessor := func(cmd *cobra.Command) workflow.DemoRequestProcessor {
		ctx := cmd.Context()
		processor, err := service.GetProcessor(ctx, serviceOpts)
		if err != nil {
			log.Ctx(ctx).Fatalf("Error building the demo request processor: %s", err.Error())
		}
		return processor
	}

	cmd := &cobra.Command{
		Use:   "demo-requests",
		Short: "Review and process demo requests",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.PropagatePersistentPreRun(cmd, args)

			configOpts.Require()
			if err := configOpts.SetValues(); err != nil {
				log.Ctx(cmd.Context()).Fatalf("Error setting values of config options: %s", err.Error())
			}

			serviceOpts.DatabaseURL = globalOptions.DatabaseURL
			serviceOpts.BaseDomain = globalOptions.BaseDomain
			serviceOpts.Email.Environment = globalOptions.Environment
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			closeDependencies(cmd.Context())
		},
		RunE: cmdUtils.CallHelpCommand,
	}

	if err := configOpts.Init(cmd); err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	cmd.AddCommand(
		c.listPendingCommand(getProcessor),
		c.processCommand(getProcessor),
		c.bulkProcessCommand(getProcessor),
		c.resumeCommand(getProcessor),
		c.rejectCommand(getProcessor),
	)

	return cmd
}

func (c *DemoRequestsCommand) listPendingCommand(getProcessor func(*cobra.Command) workflow.DemoRequestProcessor) *cobra.Command {
	return &cobra.Command{
		Use:   "list-pending",
		Short: "List the demo requests waiting for review, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			requests, err := getProcessor(cmd).ListPendingDemoRequests(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing pending demo requests: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOMPANY\tCONTACT\tEMAIL\tCREATED AT")
			for _, r := range requests {
				fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\n",
					r.ID, r.CompanyName, r.ContactFirstName, r.ContactLastName, r.ContactEmail, r.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func (c *DemoRequestsCommand) processCommand(getProcessor func(*cobra.Command) workflow.DemoRequestProcessor) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Provision a tenant for a pending demo request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := getProcessor(cmd).ProcessDemoRequest(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("processing demo request %d: %w", id, err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "The demo request ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (c *DemoRequestsCommand) resumeCommand(getProcessor func(*cobra.Command) workflow.DemoRequestProcessor) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Finish the provisioning of a demo request that already has a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := getProcessor(cmd).ResumeProvisioning(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("resuming demo request %d: %w", id, err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "The demo request ID")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// bulkReportRow is one line of the bulk-process CSV report. Passwords are never written to the report.
type bulkReportRow struct {
	RequestID  int64  `csv:"request_id"`
	Success    bool   `csv:"success"`
	TenantID   string `csv:"tenant_id"`
	SchemaName string `csv:"schema_name"`
	Domain     string `csv:"domain"`
	AdminEmail string `csv:"admin_email"`
	EmailSent  bool   `csv:"email_sent"`
	Message    string `csv:"message"`
}

func newBulkReportRows(results []*workflow.WorkflowResult) []*bulkReportRow {
	rows := make([]*bulkReportRow, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		row := &bulkReportRow{
			RequestID: r.RequestID,
			Success:   r.Success,
			EmailSent: r.EmailSent,
			Message:   r.Message,
		}
		if r.Tenant != nil {
			row.TenantID = strconv.FormatInt(r.Tenant.ID, 10)
			row.SchemaName = r.Tenant.SchemaName
		}
		if r.Domain != nil {
			row.Domain = r.Domain.Domain
		}
		if r.AdminUser != nil {
			row.AdminEmail = r.AdminUser.Email
		}
		rows = append(rows, row)
	}
	return rows
}

func (c *DemoRequestsCommand) bulkProcessCommand(getProcessor func(*cobra.Command) workflow.DemoRequestProcessor) *cobra.Command {
	var rawIDs []string
	var reportPath string
	cmd := &cobra.Command{
		Use:   "bulk-process",
		Short: "Process several demo requests, one after the other",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := parseIDs(rawIDs)
			if err != nil {
				return err
			}

			result := getProcessor(cmd).BulkProcessDemoRequests(cmd.Context(), ids)
			if reportPath != "" {
				if err = writeBulkReport(reportPath, result); err != nil {
					return err
				}
				log.Ctx(cmd.Context()).Infof("Bulk process report written to %s", reportPath)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringSliceVar(&rawIDs, "ids", nil, `The demo request IDs, separated by ","`)
	cmd.Flags().StringVar(&reportPath, "report-csv", "", "Optional path of a CSV file where a per-request report is written")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

func writeBulkReport(path string, result *workflow.BulkResult) error {
	var results []*workflow.WorkflowResult
	if result != nil {
		results = result.Results
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening bulk process report %s: %w", path, err)
	}
	defer f.Close()

	if err = gocsv.Marshal(newBulkReportRows(results), f); err != nil {
		return fmt.Errorf("writing bulk process report to %s: %w", path, err)
	}
	return nil
}

func (c *DemoRequestsCommand) rejectCommand(getProcessor func(*cobra.Command) workflow.DemoRequestProcessor) *cobra.Command {
	var id int64
	var reason string
	var yes bool
	cmd := &cobra.Command{
		Use:   "reject",
		Short: "Reject a pending demo request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cmdUtils.Confirm(fmt.Sprintf("Reject demo request %d", id), yes, nil, nil); err != nil {
				return err
			}

			request, err := getProcessor(cmd).RejectDemoRequest(cmd.Context(), id, reason)
			if err != nil {
				return fmt.Errorf("rejecting demo request %d: %w", id, err)
			}
			return printJSON(cmd.OutOrStdout(), request)
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "The demo request ID")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the request is rejected. It is appended to the request notes.")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func parseIDs(rawIDs []string) ([]int64, error) {
	ids := make([]int64, 0, len(rawIDs))
	for _, raw := range rawIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid demo request ID %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one demo request ID is required")
	}
	return ids, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

// closeDependencies releases the connection pool the DI container opened for a one-shot command.
func closeDependencies(ctx context.Context) {
	di.DeleteAndCloseInstanceByKey(ctx, di.DBConnectionPoolInstanceName)
}
