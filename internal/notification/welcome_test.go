package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tenantcrm/crm-platform-backend/internal/auth"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
	"github.com/tenantcrm/crm-platform-backend/pkg/tenant"
)

func Test_NewEmailNotifier(t *testing.T) {
	_, err := NewEmailNotifier(nil, tenant.NewTenantManagerMock(t))
	assert.EqualError(t, err, "messenger client cannot be nil")

	_, err = NewEmailNotifier(message.NewMessengerClientMock(t), nil)
	assert.EqualError(t, err, "primary domain getter cannot be nil")

	_, err = NewEmailNotifier(message.NewMessengerClientMock(t), tenant.NewTenantManagerMock(t), WithRetry(0, time.Millisecond))
	assert.EqualError(t, err, "send attempts must be greater than zero")
}

func Test_EmailNotifier_SendWelcomeEmail(t *testing.T) {
	ctx := context.Background()
	user := &auth.User{ID: "u-1", Email: "ada@acme.com", FirstName: "Ada"}
	acme := &tenant.Tenant{ID: 7, Name: "Acme & Co", SchemaName: "acme_co"}
	primary := &tenant.Domain{Domain: "acme-co.crm.test", TenantID: 7, IsPrimary: true}

	isWelcomeEmail := mock.MatchedBy(func(msg message.Message) bool {
		return msg.ToEmail == "ada@acme.com" &&
			msg.Title == "Your TenantCRM workspace is ready" &&
			strings.Contains(msg.Body, "https://acme-co.crm.test/login") &&
			strings.Contains(msg.Body, "S3cret-Passw0rd")
	})

	t.Run("sends the credentials on the first attempt", func(t *testing.T) {
		domains := tenant.NewTenantManagerMock(t)
		domains.On("GetPrimaryDomain", ctx, int64(7)).Return(primary, nil).Once()
		client := message.NewMessengerClientMock(t)
		client.On("SendMessage", ctx, isWelcomeEmail).Return(nil).Once()

		n, err := NewEmailNotifier(client, domains, WithRetry(3, time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, n.SendWelcomeEmail(ctx, user, acme, "S3cret-Passw0rd"))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		domains := tenant.NewTenantManagerMock(t)
		domains.On("GetPrimaryDomain", ctx, int64(7)).Return(primary, nil).Once()
		client := message.NewMessengerClientMock(t)
		client.On("SendMessage", ctx, isWelcomeEmail).Return(errors.New("throttled")).Twice()
		client.On("SendMessage", ctx, isWelcomeEmail).Return(nil).Once()

		n, err := NewEmailNotifier(client, domains, WithRetry(3, time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, n.SendWelcomeEmail(ctx, user, acme, "S3cret-Passw0rd"))
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		domains := tenant.NewTenantManagerMock(t)
		domains.On("GetPrimaryDomain", ctx, int64(7)).Return(primary, nil).Once()
		client := message.NewMessengerClientMock(t)
		client.On("SendMessage", ctx, isWelcomeEmail).Return(errors.New("provider down")).Times(3)
		client.On("MessengerType").Return(message.MessengerTypeAWSEmail).Once()

		n, err := NewEmailNotifier(client, domains, WithRetry(3, time.Millisecond))
		require.NoError(t, err)
		err = n.SendWelcomeEmail(ctx, user, acme, "S3cret-Passw0rd")
		assert.EqualError(t, err, "sending welcome email with AWS_EMAIL: provider down")
	})

	t.Run("stops when the context is done", func(t *testing.T) {
		cancelledCtx, cancel := context.WithCancel(ctx)
		cancel()

		domains := tenant.NewTenantManagerMock(t)
		domains.On("GetPrimaryDomain", cancelledCtx, int64(7)).Return(primary, nil).Once()
		client := message.NewMessengerClientMock(t)
		client.On("SendMessage", cancelledCtx, mock.Anything).Return(errors.New("provider down")).Maybe()
		client.On("MessengerType").Return(message.MessengerTypeAWSEmail).Once()

		n, err := NewEmailNotifier(client, domains, WithRetry(3, time.Second))
		require.NoError(t, err)
		err = n.SendWelcomeEmail(cancelledCtx, user, acme, "S3cret-Passw0rd")
		assert.Error(t, err)
	})

	t.Run("fails when the tenant has no primary domain", func(t *testing.T) {
		domains := tenant.NewTenantManagerMock(t)
		domains.On("GetPrimaryDomain", ctx, int64(7)).Return(nil, tenant.ErrDomainDoesNotExist).Once()

		n, err := NewEmailNotifier(message.NewMessengerClientMock(t), domains)
		require.NoError(t, err)
		err = n.SendWelcomeEmail(ctx, user, acme, "S3cret-Passw0rd")
		assert.ErrorIs(t, err, tenant.ErrDomainDoesNotExist)
	})
}

func Test_LoginURL(t *testing.T) {
	assert.Equal(t, "https://acme.crm.test/login", LoginURL("acme.crm.test."))
}
