// Package notification delivers the emails sent to a tenant's users during onboarding.
package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/internal/auth"
	"github.com/tenantcrm/crm-platform-backend/internal/htmltemplate"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/internal/utils"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

const (
	DefaultProductName   = "TenantCRM"
	defaultSendAttempts  = 3
	defaultRetryDelay    = 500 * time.Millisecond
	welcomeEmailTitleFmt = "Your %s workspace is ready"
)

// WelcomeNotifier sends the first administrator of a tenant their credentials.
type WelcomeNotifier interface {
	SendWelcomeEmail(ctx context.Context, user *auth.User, t *tenant.Tenant, password string) error
}

// PrimaryDomainGetter finds the hostname the tenant signs in at.
type PrimaryDomainGetter interface {
	GetPrimaryDomain(ctx context.Context, tenantID int64) (*tenant.Domain, error)
}

type EmailNotifier struct {
	messengerClient message.MessengerClient
	domains         PrimaryDomainGetter
	productName     string
	attempts        uint
	retryDelay      time.Duration
}

var _ WelcomeNotifier = (*EmailNotifier)(nil)

type EmailNotifierOption func(n *EmailNotifier)

func WithProductName(productName string) EmailNotifierOption {
	return func(n *EmailNotifier) {
		n.productName = productName
	}
}

// WithRetry sets how many times a send is attempted and the base delay of the exponential backoff between attempts.
func WithRetry(attempts uint, delay time.Duration) EmailNotifierOption {
	return func(n *EmailNotifier) {
		n.attempts = attempts
		n.retryDelay = delay
	}
}

func NewEmailNotifier(messengerClient message.MessengerClient, domains PrimaryDomainGetter, opts ...EmailNotifierOption) (*EmailNotifier, error) {
	if messengerClient == nil {
		return nil, fmt.Errorf("messenger client cannot be nil")
	}
	if domains == nil {
		return nil, fmt.Errorf("primary domain getter cannot be nil")
	}

	n := &EmailNotifier{
		messengerClient: messengerClient,
		domains:         domains,
		productName:     DefaultProductName,
		attempts:        defaultSendAttempts,
		retryDelay:      defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.attempts == 0 {
		return nil, fmt.Errorf("send attempts must be greater than zero")
	}

	return n, nil
}

// SendWelcomeEmail renders the welcome email and sends it, retrying transient provider failures until the attempts
// run out or ctx is done.
func (n *EmailNotifier) SendWelcomeEmail(ctx context.Context, user *auth.User, t *tenant.Tenant, password string) error {
	if user == nil || t == nil {
		return fmt.Errorf("user and tenant are required")
	}

	domain, err := n.domains.GetPrimaryDomain(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("getting primary domain of tenant %s: %w", t.SchemaName, err)
	}

	body, err := htmltemplate.ExecuteHTMLTemplateForWelcomeEmail(htmltemplate.WelcomeEmailTemplate{
		FirstName:   user.FirstName,
		Email:       user.Email,
		Password:    password,
		TenantName:  t.Name,
		LoginURL:    LoginURL(domain.Domain),
		ProductName: n.productName,
	})
	if err != nil {
		return fmt.Errorf("rendering welcome email: %w", err)
	}

	msg := message.Message{
		ToEmail: user.Email,
		Title:   fmt.Sprintf(welcomeEmailTitleFmt, n.productName),
		Body:    body,
	}
	if err = msg.Validate(); err != nil {
		return fmt.Errorf("building welcome email: %w", err)
	}

	err = retry.Do(
		func() error {
			return n.messengerClient.SendMessage(ctx, msg)
		},
		retry.Attempts(n.attempts),
		retry.Delay(n.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(attempt uint, err error) {
			log.Ctx(ctx).Warnf("attempt %d to send the welcome email to %s failed: %v", attempt+1, utils.TruncateString(user.Email, 3), err)
		}),
	)
	if err != nil {
		return fmt.Errorf("sending welcome email with %s: %w", n.messengerClient.MessengerType(), err)
	}

	log.Ctx(ctx).Infof("welcome email sent to the admin of tenant %s", t.SchemaName)
	return nil
}

// LoginURL is the address a tenant's users sign in at.
func LoginURL(domain string) string {
	return "https://" + strings.TrimSuffix(domain, ".") + "/login"
}
