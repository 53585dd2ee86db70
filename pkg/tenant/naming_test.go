package tenant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
)

var rxSchemaGrammar = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

type inMemoryNames struct {
	schemas map[string]bool
	domains map[string]bool
	checked []string
	err     error
}

func newInMemoryNames() *inMemoryNames {
	return &inMemoryNames{schemas: map[string]bool{}, domains: map[string]bool{}}
}

func (n *inMemoryNames) SchemaNameExists(_ context.Context, schemaName string) (bool, error) {
	n.checked = append(n.checked, schemaName)
	return n.schemas[schemaName], n.err
}

func (n *inMemoryNames) DomainExists(_ context.Context, domain string) (bool, error) {
	n.checked = append(n.checked, domain)
	return n.domains[domain], n.err
}

func Test_SchemaNameBase(t *testing.T) {
	testCases := []struct {
		companyName string
		want        string
	}{
		{"Acme & Co", "acme_co"},
		{"  Ünïcödé Café  ", "unicode_cafe"},
		{"Straße GmbH", "strasse_gmbh"},
		{"123 Industries", "tenant_123_industries"},
		{"_leading underscore", "leading_underscore"},
		{"public", "tenant_public"},
		{"Information Schema", "tenant_information_schema"},
		{"PG_Catalog", "tenant_pg_catalog"},
		{"!!!", "tenant"},
		{"北京公司", "tenant"},
		{"", "tenant"},
		{strings.Repeat("a", 80), strings.Repeat("a", 63)},
		{strings.Repeat("a", 62) + " b", strings.Repeat("a", 62)},
	}

	for _, tc := range testCases {
		t.Run(tc.companyName, func(t *testing.T) {
			got := SchemaNameBase(tc.companyName)
			assert.Equal(t, tc.want, got)
			assert.Regexp(t, rxSchemaGrammar, got)
			assert.False(t, IsReservedSchemaName(got))
		})
	}
}

func Test_SchemaNameBase_alwaysMatchesGrammar(t *testing.T) {
	inputs := []string{
		"Acme Corp.", "ACME-CORP", "acme--corp", "9to5", "Ωmega", "Émile & Zoë's Bakery", "pg_toast", "\t\n",
		"日本語 Company 2", "🚀 Rocket", "a", "Z", "O'Reilly Media", "tenant", strings.Repeat("ü", 100),
	}
	for _, input := range inputs {
		got := SchemaNameBase(input)
		assert.Regexp(t, rxSchemaGrammar, got, input)
		assert.False(t, IsReservedSchemaName(got), input)
	}
}

func Test_DomainSlug(t *testing.T) {
	assert.Equal(t, "acme-co", DomainSlug("Acme & Co"))
	assert.Equal(t, "123-industries", DomainSlug("123 Industries"))
	assert.Equal(t, "emile-zoe-s-bakery", DomainSlug("Émile & Zoë's Bakery"))
	assert.Equal(t, "tenant", DomainSlug("北京公司"))
	assert.Equal(t, strings.Repeat("b", 63), DomainSlug(strings.Repeat("b", 70)))
}

func Test_withSuffix(t *testing.T) {
	assert.Equal(t, "acme", withSuffix("acme", "_", 0, 63))
	assert.Equal(t, "acme_7", withSuffix("acme", "_", 7, 63))

	long := strings.Repeat("a", 63)
	got := withSuffix(long, "_", 12, 63)
	assert.Len(t, got, 63)
	assert.Equal(t, strings.Repeat("a", 60)+"_12", got)

	// a separator left dangling by the truncation is removed
	got = withSuffix(strings.Repeat("a", 60)+"_bc", "_", 1, 63)
	assert.Equal(t, strings.Repeat("a", 60)+"_1", got)
}

func Test_NameAllocator_GenerateSchemaName(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the base name when it is free", func(t *testing.T) {
		names := newInMemoryNames()
		allocator, err := NewNameAllocator(names)
		require.NoError(t, err)

		got, err := allocator.GenerateSchemaName(ctx, "Acme & Co")
		require.NoError(t, err)
		assert.Equal(t, "acme_co", got)
		assert.Equal(t, []string{"acme_co"}, names.checked)
	})

	t.Run("tries monotonically increasing suffixes", func(t *testing.T) {
		names := newInMemoryNames()
		names.schemas["acme_co"] = true
		names.schemas["acme_co_1"] = true
		names.schemas["acme_co_2"] = true
		allocator, err := NewNameAllocator(names, WithAllocationCache(0, 0))
		require.NoError(t, err)

		got, err := allocator.GenerateSchemaName(ctx, "Acme & Co")
		require.NoError(t, err)
		assert.Equal(t, "acme_co_3", got)
		assert.Equal(t, []string{"acme_co", "acme_co_1", "acme_co_2", "acme_co_3"}, names.checked)
	})

	t.Run("suffixed names still fit the identifier limit", func(t *testing.T) {
		names := newInMemoryNames()
		base := strings.Repeat("x", 63)
		names.schemas[base] = true
		for i := 1; i < 10; i++ {
			names.schemas[withSuffix(base, "_", i, 63)] = true
		}
		allocator, err := NewNameAllocator(names)
		require.NoError(t, err)

		got, err := allocator.GenerateSchemaName(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("x", 60)+"_10", got)
		assert.Regexp(t, rxSchemaGrammar, got)
	})

	t.Run("does not hand out the same name twice while it is being provisioned", func(t *testing.T) {
		names := newInMemoryNames()
		allocator, err := NewNameAllocator(names)
		require.NoError(t, err)

		first, err := allocator.GenerateSchemaName(ctx, "Globex")
		require.NoError(t, err)
		second, err := allocator.GenerateSchemaName(ctx, "Globex")
		require.NoError(t, err)
		assert.Equal(t, "globex", first)
		assert.Equal(t, "globex_1", second)

		allocator.Release(first, "")
		third, err := allocator.GenerateSchemaName(ctx, "Globex")
		require.NoError(t, err)
		assert.Equal(t, "globex", third)
	})

	t.Run("returns a conflict when the attempts are exhausted", func(t *testing.T) {
		names := newInMemoryNames()
		names.schemas["initech"] = true
		names.schemas["initech_1"] = true
		names.schemas["initech_2"] = true
		allocator, err := NewNameAllocator(names, WithMaxAttempts(3))
		require.NoError(t, err)

		_, err = allocator.GenerateSchemaName(ctx, "Initech")
		require.ErrorIs(t, err, ErrNameAllocationExhausted)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	})

	t.Run("propagates checker errors", func(t *testing.T) {
		names := newInMemoryNames()
		names.err = errors.New("db down")
		allocator, err := NewNameAllocator(names)
		require.NoError(t, err)

		_, err = allocator.GenerateSchemaName(ctx, "Initech")
		require.ErrorContains(t, err, "db down")
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		cancelledCtx, cancel := context.WithCancel(ctx)
		cancel()

		allocator, err := NewNameAllocator(newInMemoryNames())
		require.NoError(t, err)

		_, err = allocator.GenerateSchemaName(cancelledCtx, "Initech")
		require.ErrorIs(t, err, context.Canceled)
	})
}

func Test_NameAllocator_GenerateDomainName(t *testing.T) {
	ctx := context.Background()

	t.Run("concatenates the slug and the base domain", func(t *testing.T) {
		allocator, err := NewNameAllocator(newInMemoryNames())
		require.NoError(t, err)

		got, err := allocator.GenerateDomainName(ctx, "Acme & Co", "CRM.Example.com")
		require.NoError(t, err)
		assert.Equal(t, "acme-co.crm.example.com", got)
	})

	t.Run("tries -N suffixes on the slug", func(t *testing.T) {
		names := newInMemoryNames()
		names.domains["acme-co.crm.example.com"] = true
		names.domains["acme-co-1.crm.example.com"] = true
		allocator, err := NewNameAllocator(names)
		require.NoError(t, err)

		got, err := allocator.GenerateDomainName(ctx, "Acme & Co", "crm.example.com")
		require.NoError(t, err)
		assert.Equal(t, "acme-co-2.crm.example.com", got)
	})

	t.Run("rejects an invalid base domain", func(t *testing.T) {
		allocator, err := NewNameAllocator(newInMemoryNames())
		require.NoError(t, err)

		_, err = allocator.GenerateDomainName(ctx, "Acme", "not a domain")
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("keeps the label DNS-safe", func(t *testing.T) {
		allocator, err := NewNameAllocator(newInMemoryNames())
		require.NoError(t, err)

		got, err := allocator.GenerateDomainName(ctx, strings.Repeat("Long Name ", 20), "crm.example.com")
		require.NoError(t, err)
		label, _, _ := strings.Cut(got, ".")
		assert.LessOrEqual(t, len(label), 63)
		assert.False(t, strings.HasSuffix(label, "-"))
		assert.Equal(t, fmt.Sprintf("%s.crm.example.com", label), got)
	})
}

func Test_NewNameAllocator(t *testing.T) {
	_, err := NewNameAllocator(nil)
	require.EqualError(t, err, "name checker cannot be nil")

	_, err = NewNameAllocator(newInMemoryNames(), WithMaxAttempts(-1))
	require.EqualError(t, err, "max attempts cannot be negative")
}
