package dependencyinjection

import (
	"fmt"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/tenantcrm/crm-platform-backend/internal/message"
)

const EmailClientInstanceName = "email_client_instance"

func buildEmailClientInstanceName(messengerType message.MessengerType) string {
	return fmt.Sprintf("%s-%s", EmailClientInstanceName, string(messengerType))
}

func NewEmailClient(opts message.MessengerOptions) (message.MessengerClient, error) {
	return getOrCreate(buildEmailClientInstanceName(opts.MessengerType), func() (message.MessengerClient, error) {
		log.Infof("⚙️ Setting Email client to: %v", opts.MessengerType)
		client, err := message.GetClient(opts)
		if err != nil {
			return nil, fmt.Errorf("creating Email client: %w", err)
		}
		return client, nil
	})
}
