package message

import "context"

// MessengerClient delivers a single message through one provider.
type MessengerClient interface {
	SendMessage(ctx context.Context, message Message) error
	MessengerType() MessengerType
}
