// Package permissions holds the default role and permission catalog every tenant starts with.
package permissions

import "fmt"

type Permission struct {
	Code        string
	Description string
}

type Role struct {
	Name        string
	Description string
	Permissions []string
}

// Catalog is a set of permissions and the roles granting them.
type Catalog struct {
	Permissions []Permission
	Roles       []Role
}

const (
	ReadContacts       = "contacts:read"
	WriteContacts      = "contacts:write"
	ReadCompanies      = "companies:read"
	WriteCompanies     = "companies:write"
	ReadOpportunities  = "opportunities:read"
	WriteOpportunities = "opportunities:write"
	ReadActivities     = "activities:read"
	WriteActivities    = "activities:write"
	ReadReports        = "reports:read"
	ManageUsers        = "users:manage"
	ManageBilling      = "billing:manage"
	ManageSettings     = "settings:manage"
)

// DefaultCatalog returns the catalog seeded into new tenants.
func DefaultCatalog() Catalog {
	readAll := []string{ReadContacts, ReadCompanies, ReadOpportunities, ReadActivities, ReadReports}
	salesWrite := []string{WriteContacts, WriteCompanies, WriteOpportunities, WriteActivities}

	return Catalog{
		Permissions: []Permission{
			{Code: ReadContacts, Description: "View contacts"},
			{Code: WriteContacts, Description: "Create, edit and delete contacts"},
			{Code: ReadCompanies, Description: "View companies"},
			{Code: WriteCompanies, Description: "Create, edit and delete companies"},
			{Code: ReadOpportunities, Description: "View opportunities"},
			{Code: WriteOpportunities, Description: "Create, edit and delete opportunities"},
			{Code: ReadActivities, Description: "View activities"},
			{Code: WriteActivities, Description: "Log and edit activities"},
			{Code: ReadReports, Description: "View reports and dashboards"},
			{Code: ManageUsers, Description: "Invite, deactivate and change roles of users"},
			{Code: ManageBilling, Description: "Manage the subscription and payment details"},
			{Code: ManageSettings, Description: "Change the organization settings"},
		},
		Roles: []Role{
			{
				Name:        "admin",
				Description: "Full access, including users, billing and settings",
				Permissions: append(append(append([]string{}, readAll...), salesWrite...), ManageUsers, ManageBilling, ManageSettings),
			},
			{
				Name:        "manager",
				Description: "Manages the sales team data and users",
				Permissions: append(append(append([]string{}, readAll...), salesWrite...), ManageUsers),
			},
			{
				Name:        "sales",
				Description: "Works on contacts, companies, opportunities and activities",
				Permissions: append(append([]string{}, readAll...), salesWrite...),
			},
			{
				Name:        "viewer",
				Description: "Read-only access",
				Permissions: readAll,
			},
		},
	}
}

// Validate checks that every role only grants permissions defined in the catalog.
func (c Catalog) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf("catalog has no roles")
	}

	known := make(map[string]struct{}, len(c.Permissions))
	for _, p := range c.Permissions {
		if p.Code == "" {
			return fmt.Errorf("permission code cannot be empty")
		}
		known[p.Code] = struct{}{}
	}

	for _, r := range c.Roles {
		if r.Name == "" {
			return fmt.Errorf("role name cannot be empty")
		}
		for _, code := range r.Permissions {
			if _, ok := known[code]; !ok {
				return fmt.Errorf("role %s grants unknown permission %s", r.Name, code)
			}
		}
	}

	return nil
}
