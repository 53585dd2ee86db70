package router

import (
	"fmt"
	"net/url"
)

// GetDSNForSchema returns the database DSN for a tenant schema. It is the same as the root database DSN, but with the
// `search_path` query parameter set to the given schema.
func GetDSNForSchema(dataSourceName, schemaName string) (string, error) {
	if schemaName == "" {
		return "", fmt.Errorf("schema name cannot be empty")
	}

	u, err := url.Parse(dataSourceName)
	if err != nil {
		return "", fmt.Errorf("parsing database DSN: %w", err)
	}

	q := u.Query()
	q.Set("search_path", schemaName)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
