package message

import (
	"html/template"
	"strings"

	"github.com/tenantcrm/crm-platform-backend/internal/htmltemplate"
)

// htmlBody returns body as a full HTML document, wrapping fragments in the default layout.
func htmlBody(body string) (string, error) {
	if strings.Contains(body, "<html") {
		return body, nil
	}
	return htmltemplate.ExecuteHTMLTemplateForEmailEmptyBody(htmltemplate.EmptyBodyEmailTemplate{Body: template.HTML(body)})
}
