package tenant

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/stellar/go-stellar-sdk/support/log"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tenantcrm/crm-platform-backend/db/schemactx"
	"github.com/tenantcrm/crm-platform-backend/internal/apperror"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

const (
	// ReservedNamePrefix is prepended to schema names that would otherwise start with a non-letter or collide with a
	// namespace Postgres or this service owns.
	ReservedNamePrefix = "tenant_"
	// FallbackName is used when nothing usable survives normalization.
	FallbackName = "tenant"

	maxDNSLabelLength  = 63
	maxDomainLength    = 253
	schemaSeparator    = "_"
	domainSeparator    = "-"
	defaultCacheTTL    = 10 * time.Minute
	defaultCacheSize   = 1024
	domainNameCacheKey = "domain:"
	schemaNameCacheKey = "schema:"
)

var ErrNameAllocationExhausted = apperror.Conflict("could not allocate a unique name", nil)

var (
	rxNonSchemaChars = regexp.MustCompile(`[^a-z0-9]+`)
	rxNonDomainChars = regexp.MustCompile(`[^a-z0-9]+`)

	reservedSchemaNames = []string{"public", "information_schema"}

	// letters that do not decompose into a base letter plus combining marks
	ligatureReplacer = strings.NewReplacer(
		"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE", "ø", "o", "Ø", "O",
		"ł", "l", "Ł", "L", "đ", "d", "Đ", "D", "þ", "th", "Þ", "TH", "ı", "i",
	)
)

// IsReservedSchemaName reports whether a schema name belongs to Postgres itself or to the shared namespace.
func IsReservedSchemaName(schemaName string) bool {
	if strings.HasPrefix(schemaName, "pg_") {
		return true
	}
	for _, reserved := range reservedSchemaNames {
		if schemaName == reserved {
			return true
		}
	}
	return false
}

// transliterate folds accented letters into their ASCII base. Characters without an ASCII base survive and are
// stripped by the callers.
func transliterate(s string) string {
	s = ligatureReplacer.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// SchemaNameBase derives the collision-unaware schema name for a company name: lowercase ASCII letters, digits and
// underscores, starting with a letter, not reserved and at most 63 characters long.
func SchemaNameBase(companyName string) string {
	name := strings.ToLower(transliterate(companyName))
	name = rxNonSchemaChars.ReplaceAllString(name, schemaSeparator)
	name = strings.Trim(name, schemaSeparator)

	switch {
	case name == "":
		return FallbackName
	case name[0] < 'a' || name[0] > 'z', IsReservedSchemaName(name):
		name = ReservedNamePrefix + name
	}

	return truncate(name, schemactx.MaxIdentifierLength, schemaSeparator)
}

// DomainSlug derives the DNS label used as the left-most part of a tenant's domain.
func DomainSlug(companyName string) string {
	slug := strings.ToLower(transliterate(companyName))
	slug = rxNonDomainChars.ReplaceAllString(slug, domainSeparator)
	slug = strings.Trim(slug, domainSeparator)
	if slug == "" {
		return FallbackName
	}
	return truncate(slug, maxDNSLabelLength, domainSeparator)
}

// withSuffix appends separator+n to base, shortening base so the result still fits maxLen.
func withSuffix(base, separator string, n, maxLen int) string {
	if n == 0 {
		return base
	}
	suffix := separator + strconv.Itoa(n)
	return truncate(base, maxLen-len(suffix), separator) + suffix
}

func truncate(s string, maxLen int, separator string) string {
	if len(s) <= maxLen {
		return s
	}
	return strings.TrimRight(s[:maxLen], separator)
}

// NameChecker answers whether a candidate name is already taken. Implementations must be read-only.
type NameChecker interface {
	SchemaNameExists(ctx context.Context, schemaName string) (bool, error)
	DomainExists(ctx context.Context, domain string) (bool, error)
}

// NameAllocator turns a company name into a schema name and a domain that are not in use yet. Candidates are tried
// in order (base, base_1, base_2, ...), so suffixes grow monotonically and are never reused.
//
// Allocation does not reserve anything in the database: two concurrent callers may be handed the same name, and the
// unique constraints on tenants.schema_name and domains.domain decide which one wins. Names handed out by this
// allocator are also remembered in memory for a while so that concurrent provisioning in the same process skips them.
type NameAllocator struct {
	checker     NameChecker
	maxAttempts int
	recent      *expirable.LRU[string, struct{}]
}

type NameAllocatorOption func(a *NameAllocator)

// WithMaxAttempts caps the number of candidates tried. Zero, the default, means no cap.
func WithMaxAttempts(maxAttempts int) NameAllocatorOption {
	return func(a *NameAllocator) {
		a.maxAttempts = maxAttempts
	}
}

// WithAllocationCache changes the size and TTL of the in-memory set of recently handed out names. A size of zero
// disables it.
func WithAllocationCache(size int, ttl time.Duration) NameAllocatorOption {
	return func(a *NameAllocator) {
		if size <= 0 {
			a.recent = nil
			return
		}
		a.recent = expirable.NewLRU[string, struct{}](size, nil, ttl)
	}
}

func NewNameAllocator(checker NameChecker, opts ...NameAllocatorOption) (*NameAllocator, error) {
	if checker == nil {
		return nil, fmt.Errorf("name checker cannot be nil")
	}

	a := &NameAllocator{
		checker: checker,
		recent:  expirable.NewLRU[string, struct{}](defaultCacheSize, nil, defaultCacheTTL),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxAttempts < 0 {
		return nil, fmt.Errorf("max attempts cannot be negative")
	}
	return a, nil
}

// GenerateSchemaName returns a schema name derived from companyName that no tenant or existing schema uses.
func (a *NameAllocator) GenerateSchemaName(ctx context.Context, companyName string) (string, error) {
	base := SchemaNameBase(companyName)
	name, err := a.allocate(ctx, schemaNameCacheKey, func(n int) string {
		return withSuffix(base, schemaSeparator, n, schemactx.MaxIdentifierLength)
	}, a.checker.SchemaNameExists)
	if err != nil {
		return "", fmt.Errorf("allocating schema name for %q: %w", companyName, err)
	}
	return name, nil
}

// GenerateDomainName returns "{slug}.{baseDomain}" (or "{slug}-N.{baseDomain}") that no tenant uses yet.
func (a *NameAllocator) GenerateDomainName(ctx context.Context, companyName, baseDomain string) (string, error) {
	baseDomain = strings.Trim(utils.NormalizeHost(baseDomain), ".")
	if err := utils.ValidateDNS(baseDomain); err != nil {
		return "", apperror.Validationf("invalid base domain %q", baseDomain)
	}

	labelLimit := min(maxDNSLabelLength, maxDomainLength-len(baseDomain)-1)
	if labelLimit < len(FallbackName)+3 {
		return "", apperror.Validationf("base domain %q is too long", baseDomain)
	}

	slug := truncate(DomainSlug(companyName), labelLimit, domainSeparator)
	name, err := a.allocate(ctx, domainNameCacheKey, func(n int) string {
		return withSuffix(slug, domainSeparator, n, labelLimit) + "." + baseDomain
	}, a.checker.DomainExists)
	if err != nil {
		return "", fmt.Errorf("allocating domain for %q: %w", companyName, err)
	}
	return name, nil
}

func (a *NameAllocator) allocate(ctx context.Context, cacheKeyPrefix string, candidate func(n int) string, exists func(context.Context, string) (bool, error)) (string, error) {
	for n := 0; a.maxAttempts == 0 || n < a.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		name := candidate(n)
		if a.recent != nil {
			if _, ok := a.recent.Get(cacheKeyPrefix + name); ok {
				continue
			}
		}

		taken, err := exists(ctx, name)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}

		if a.recent != nil {
			a.recent.Add(cacheKeyPrefix+name, struct{}{})
		}
		if n > 0 {
			log.Ctx(ctx).Debugf("allocated %s after %d collisions", name, n)
		}
		return name, nil
	}

	return "", ErrNameAllocationExhausted
}

// Release forgets that a name was handed out, so it can be allocated again right away. Used when provisioning with the
// name failed and nothing was persisted.
func (a *NameAllocator) Release(schemaName, domain string) {
	if a.recent == nil {
		return
	}
	if schemaName != "" {
		a.recent.Remove(schemaNameCacheKey + schemaName)
	}
	if domain != "" {
		a.recent.Remove(domainNameCacheKey + domain)
	}
}
