// Package message sends transactional emails through the configured provider.
package message

import (
	"fmt"
	"slices"
	"strings"
)

type MessengerType string

const (
	// MessengerTypeTwilioEmail sends emails using Twilio SendGrid.
	MessengerTypeTwilioEmail MessengerType = "TWILIO_EMAIL"
	// MessengerTypeAWSEmail sends emails using AWS SES.
	MessengerTypeAWSEmail MessengerType = "AWS_EMAIL"
	// MessengerTypeDryRun prints emails instead of sending them. Meant for development.
	MessengerTypeDryRun MessengerType = "DRY_RUN"
)

func (mt MessengerType) All() []MessengerType {
	return []MessengerType{MessengerTypeTwilioEmail, MessengerTypeAWSEmail, MessengerTypeDryRun}
}

func ParseMessengerType(messengerTypeStr string) (MessengerType, error) {
	mType := MessengerType(strings.ToUpper(strings.TrimSpace(messengerTypeStr)))
	if slices.Contains(MessengerType("").All(), mType) {
		return mType, nil
	}

	return "", fmt.Errorf("invalid message sender type %q", mType)
}

type MessengerOptions struct {
	MessengerType MessengerType
	Environment   string

	// Twilio Email (SendGrid)
	TwilioSendGridAPIKey        string
	TwilioSendGridSenderAddress string

	// AWS SES
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	AWSSESSenderID     string
}

func GetClient(opts MessengerOptions) (MessengerClient, error) {
	switch opts.MessengerType {
	case MessengerTypeTwilioEmail:
		return NewTwilioSendGridClient(opts.TwilioSendGridAPIKey, opts.TwilioSendGridSenderAddress)
	case MessengerTypeAWSEmail:
		return NewAWSSESClient(opts.AWSAccessKeyID, opts.AWSSecretAccessKey, opts.AWSRegion, opts.AWSSESSenderID)
	case MessengerTypeDryRun:
		return NewDryRunClient()
	default:
		return nil, fmt.Errorf("unknown message sender type: %q", opts.MessengerType)
	}
}
