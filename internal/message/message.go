package message

import (
	"fmt"
	"strings"

	"github.com/tenantcrm/crm-platform-backend/internal/utils"
)

type Message struct {
	ToEmail string
	Title   string
	// Body is either a full HTML document or a fragment that gets wrapped in the default email layout.
	Body string
}

// Validate checks the message has a recipient, a subject and a body.
func (m *Message) Validate() error {
	if err := utils.ValidateEmail(m.ToEmail); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("title is empty")
	}
	if strings.TrimSpace(m.Body) == "" {
		return fmt.Errorf("body is empty")
	}
	return nil
}
