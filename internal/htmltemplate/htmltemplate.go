package htmltemplate

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed tmpl/*.tmpl
var Tmpl embed.FS

var funcMap = template.FuncMap{
	"EmailStyle": func() template.HTML {
		return emailStyle
	},
}

func ExecuteHTMLTemplate(templateName string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(funcMap).ParseFS(Tmpl, "tmpl/*.tmpl")
	if err != nil {
		return "", fmt.Errorf("error parsing embedded template files: %w", err)
	}

	var executedTemplate bytes.Buffer
	err = t.ExecuteTemplate(&executedTemplate, templateName, data)
	if err != nil {
		return "", fmt.Errorf("executing html template: %w", err)
	}

	return executedTemplate.String(), nil
}

type EmptyBodyEmailTemplate struct {
	Body template.HTML
}

func ExecuteHTMLTemplateForEmailEmptyBody(data EmptyBodyEmailTemplate) (string, error) {
	return ExecuteHTMLTemplate("empty_body.tmpl", data)
}

// WelcomeEmailTemplate holds the credentials sent to the first administrator of a new tenant.
type WelcomeEmailTemplate struct {
	FirstName   string
	Email       string
	Password    string
	TenantName  string
	LoginURL    string
	ProductName string
}

func ExecuteHTMLTemplateForWelcomeEmail(data WelcomeEmailTemplate) (string, error) {
	return ExecuteHTMLTemplate("welcome_email.tmpl", data)
}

const emailStyle = template.HTML(`
    <style>
        body {
			font-family: Arial, sans-serif;
			line-height: 1.6;
			color: #1f2933;
			background-color: #ffffff;
			margin: 0;
			padding: 20px;
		}
		p {
			margin-bottom: 16px;
		}
		.button {
			display: inline-block;
			padding: 10px 20px;
			background-color: #2457c5;
			color: #ffffff;
			text-decoration: none;
			border-radius: 5px;
			font-weight: bold;
		}
    </style>
`)
