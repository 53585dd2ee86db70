package utils

import (
	"go/types"
	"time"

	"github.com/stellar/go-stellar-sdk/support/config"

	"github.com/tenantcrm/crm-platform-backend/internal/crashtracker"
	"github.com/tenantcrm/crm-platform-backend/internal/message"
)

// EmailConfigOptions returns the config options of the email provider used for welcome emails.
func EmailConfigOptions(opts *message.MessengerOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:           "email-sender-type",
			Usage:          `The messenger type used to send emails. Options: "TWILIO_EMAIL", "AWS_EMAIL", "DRY_RUN"`,
			OptType:        types.String,
			CustomSetValue: SetConfigOptionMessengerType,
			ConfigKey:      &opts.MessengerType,
			FlagDefault:    string(message.MessengerTypeDryRun),
			Required:       true,
		},
		{
			Name:      "twilio-sendgrid-api-key",
			Usage:     "The API key of the Twilio SendGrid account",
			OptType:   types.String,
			ConfigKey: &opts.TwilioSendGridAPIKey,
			Required:  false,
		},
		{
			Name:      "twilio-sendgrid-sender-address",
			Usage:     "The email address that Twilio SendGrid will use to send emails",
			OptType:   types.String,
			ConfigKey: &opts.TwilioSendGridSenderAddress,
			Required:  false,
		},
		{
			Name:      "aws-access-key-id",
			Usage:     "The AWS access key ID",
			OptType:   types.String,
			ConfigKey: &opts.AWSAccessKeyID,
			Required:  false,
		},
		{
			Name:      "aws-secret-access-key",
			Usage:     "The AWS secret access key",
			OptType:   types.String,
			ConfigKey: &opts.AWSSecretAccessKey,
			Required:  false,
		},
		{
			Name:      "aws-region",
			Usage:     "The AWS region",
			OptType:   types.String,
			ConfigKey: &opts.AWSRegion,
			Required:  false,
		},
		{
			Name:      "aws-ses-sender-id",
			Usage:     "The email address that AWS will use to send emails. Uses AWS SES.",
			OptType:   types.String,
			ConfigKey: &opts.AWSSESSenderID,
			Required:  false,
		},
	}
}

// WorkflowOptions holds the tunables of the demo request workflow shared by the serve and demo-requests commands.
type WorkflowOptions struct {
	ProductName         string
	NotificationTimeout time.Duration
	StepTimeout         time.Duration
}

func WorkflowConfigOptions(opts *WorkflowOptions) []*config.ConfigOption {
	return []*config.ConfigOption{
		{
			Name:        "product-name",
			Usage:       "The product name used in the welcome email.",
			OptType:     types.String,
			ConfigKey:   &opts.ProductName,
			FlagDefault: "CRM Platform",
			Required:    false,
		},
		{
			Name:           "notification-timeout",
			Usage:          `How long the welcome email step may take before it is given up, e.g. "30s". A timeout does not fail the request.`,
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDuration,
			ConfigKey:      &opts.NotificationTimeout,
			FlagDefault:    "30s",
			Required:       false,
		},
		{
			Name:           "step-timeout",
			Usage:          `How long the tenant and admin user creation steps may take each, e.g. "2m".`,
			OptType:        types.String,
			CustomSetValue: SetConfigOptionDuration,
			ConfigKey:      &opts.StepTimeout,
			FlagDefault:    "2m",
			Required:       false,
		},
	}
}

func CrashTrackerTypeConfigOption(targetPointer interface{}) *config.ConfigOption {
	return &config.ConfigOption{
		Name:           "crash-tracker-type",
		Usage:          `Crash tracker type. Options: "SENTRY", "DRY_RUN"`,
		OptType:        types.String,
		CustomSetValue: SetConfigOptionCrashTrackerType,
		ConfigKey:      targetPointer,
		FlagDefault:    string(crashtracker.CrashTrackerTypeDryRun),
		Required:       true,
	}
}
