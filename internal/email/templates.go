package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type matchOffersEmailData struct {
	baseEmailData
	CitizenName string
	CaseType    string
	NewOffers   int
}

type matchSelectedEmailData struct {
	baseEmailData
	ProviderName string
	CaseType     string
}

type matchAcceptedEmailData struct {
	baseEmailData
	CitizenName   string
	ProviderName  string
	ProviderPhone string
}

type matchDeclinedEmailData struct {
	baseEmailData
	CitizenName  string
	ProviderName string
	Reason       string
}

type matchExpiredEmailData struct {
	baseEmailData
	ProviderName string
	CaseType     string
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// renderEmailTemplate renders the named template inside the base layout.
func renderEmailTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
