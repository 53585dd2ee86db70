package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/tenantcrm/crm-platform-backend/cmd/utils"
	di "github.com/tenantcrm/crm-platform-backend/internal/dependencyinjection"
	"github.com/tenantcrm/crm-platform-backend/internal/provisioning"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

type TenantsServiceInterface interface {
	GetProvisioner(ctx context.Context, databaseURL, baseDomain string) (provisioning.TenantProvisioner, error)
	GetTenantManager(ctx context.Context, databaseURL string) (tenant.ManagerInterface, error)
}

type TenantsService struct{}

var _ TenantsServiceInterface = (*TenantsService)(nil)

func (s *TenantsService) GetProvisioner(ctx context.Context, databaseURL, baseDomain string) (provisioning.TenantProvisioner, error) {
	dbConnectionPool, err := di.NewDBConnectionPool(ctx, dbConnectionPoolOptions(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("getting database connection pool: %w", err)
	}

	provisioner, err := di.NewProvisioningManager(di.ProvisioningManagerOptions{
		DBConnectionPool: dbConnectionPool,
		BaseDomain:       baseDomain,
	})
	if err != nil {
		return nil, fmt.Errorf("creating provisioning manager: %w", err)
	}
	return provisioner, nil
}

func (s *TenantsService) GetTenantManager(ctx context.Context, databaseURL string) (tenant.ManagerInterface, error) {
	dbConnectionPool, err := di.NewDBConnectionPool(ctx, dbConnectionPoolOptions(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("getting database connection pool: %w", err)
	}

	tenantManager, err := di.NewTenantManager(dbConnectionPool)
	if err != nil {
		return nil, fmt.Errorf("creating tenant manager: %w", err)
	}
	return tenantManager, nil
}

type TenantsCommand struct{}

func (c *TenantsCommand) Command(service TenantsServiceInterface) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenants",
		Short: "Tenant management related commands",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmdUtils.PropagatePersistentPreRun(cmd, args)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			closeDependencies(cmd.Context())
		},
		RunE: cmdUtils.CallHelpCommand,
	}

	cmd.AddCommand(
		c.provisionCommand(service),
		c.seedPermissionsCommand(service),
		c.deleteCommand(service),
	)

	return cmd
}

func (c *TenantsCommand) provisionCommand(service TenantsServiceInterface) *cobra.Command {
	setup := provisioning.TenantSetup{}
	var subscriptionStatus string
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision a tenant with its schema, primary domain and default permissions, without a demo request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			setup.SubscriptionStatus = tenant.SubscriptionStatus(subscriptionStatus)

			provisioner, err := service.GetProvisioner(ctx, globalOptions.DatabaseURL, globalOptions.BaseDomain)
			if err != nil {
				return err
			}

			result, err := provisioner.CreateTenantWithSetup(ctx, setup)
			if err != nil {
				return fmt.Errorf("provisioning tenant %q: %w", setup.Name, err)
			}
			if result.PermissionsWarning != "" {
				log.Ctx(ctx).Warnf("Tenant provisioned without default permissions: %s", result.PermissionsWarning)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&setup.Name, "name", "", "The tenant name, usually the company name")
	cmd.Flags().StringVar(&setup.ContactEmail, "email", "", "The tenant contact email")
	cmd.Flags().StringVar(&subscriptionStatus, "subscription-status", string(tenant.TrialSubscriptionStatus),
		`The tenant subscription status. Options: "trial", "active", "suspended", "cancelled"`)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *TenantsCommand) seedPermissionsCommand(service TenantsServiceInterface) *cobra.Command {
	var tenantID int64
	cmd := &cobra.Command{
		Use:   "seed-permissions",
		Short: "Seed the default roles and permissions into a tenant schema. Existing rows are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			provisioner, err := service.GetProvisioner(ctx, globalOptions.DatabaseURL, globalOptions.BaseDomain)
			if err != nil {
				return err
			}

			if err = provisioner.SeedPermissions(ctx, tenantID); err != nil {
				return fmt.Errorf("seeding permissions of tenant %d: %w", tenantID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Permissions seeded for tenant %d\n", tenantID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant-id", 0, "The tenant ID")
	_ = cmd.MarkFlagRequired("tenant-id")
	return cmd
}

func (c *TenantsCommand) deleteCommand(service TenantsServiceInterface) *cobra.Command {
	var tenantID int64
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a tenant, its domains and its schema with all of its data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tenantManager, err := service.GetTenantManager(ctx, globalOptions.DatabaseURL)
			if err != nil {
				return err
			}

			t, err := tenantManager.GetTenantByID(ctx, tenantID)
			if err != nil {
				if errors.Is(err, tenant.ErrTenantDoesNotExist) {
					return fmt.Errorf("tenant %d does not exist", tenantID)
				}
				return fmt.Errorf("getting tenant %d: %w", tenantID, err)
			}
			domains, err := tenantManager.GetDomainsForTenant(ctx, tenantID)
			if err != nil {
				return fmt.Errorf("getting domains of tenant %d: %w", tenantID, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tenant %d %q, schema %s\n", t.ID, t.Name, t.SchemaName)
			for _, d := range domains {
				fmt.Fprintf(out, "  domain %s (primary: %t)\n", d.Domain, d.IsPrimary)
			}

			label := fmt.Sprintf("Drop schema %s and delete tenant %d", t.SchemaName, t.ID)
			if err = cmdUtils.Confirm(label, yes, nil, nil); err != nil {
				return err
			}

			if err = tenantManager.DeleteTenant(ctx, tenantID); err != nil {
				return fmt.Errorf("deleting tenant %d: %w", tenantID, err)
			}
			fmt.Fprintf(out, "Tenant %d deleted\n", tenantID)
			return nil
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant-id", 0, "The tenant ID")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("tenant-id")
	return cmd
}
