// Package delivery renders a newsletter issue to HTML and sends it
// over SMTP. Rendering executes an inline html/template string into a
// buffer; actual dispatch uses net/smtp directly, since no third-party SMTP/mail-delivery library
// fits this path. See DESIGN.md for this package's stdlib justification.
package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/config"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

var issueTemplate = template.Must(template.New("issue").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Subject}}</title>
</head>
<body style="font-family: sans-serif; max-width: 640px; margin: 0 auto;">
  <h1>{{.Subject}}</h1>
  {{if .BigNews}}
  <div style="background:#f4f4f4; padding: 12px; margin-bottom: 16px;">
    <strong>Big news:</strong> {{.BigNews}}
  </div>
  {{end}}
  {{range .Examples}}
  <div style="margin-bottom: 20px;">
    <h2>{{.Position}}. {{.Title}}</h2>
    <p>{{.Description}}</p>
    {{if .HowToReplicate}}<p><strong>How to replicate:</strong> {{.HowToReplicate}}</p>{{end}}
    {{if .WhyUseful}}<p><strong>Why it's useful:</strong> {{.WhyUseful}}</p>{{end}}
    {{if .SourceURL}}<p><a href="{{.SourceURL}}">{{.SourceTitle}}</a></p>{{end}}
  </div>
  {{end}}
</body>
</html>
`))

type templateData struct {
	Subject  string
	BigNews  string
	Examples []core.NewsletterExample
}

// RenderHTML renders issue and its examples to a self-contained HTML
// document suitable for an email body.
func RenderHTML(issue *core.NewsletterIssue, examples []core.NewsletterExample) (string, error) {
	var buf bytes.Buffer
	data := templateData{Subject: issue.SubjectLine, BigNews: issue.BigNewsSummary, Examples: examples}
	if err := issueTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render newsletter HTML: %w", err)
	}
	return buf.String(), nil
}

// Send delivers html as the body of a multipart-free HTML email over
// the configured SMTP relay. net/smtp.SendMail negotiates STARTTLS
// itself when the server advertises the extension, so no separate TLS
// dial is needed for typical submission ports (587).
func Send(cfg config.Email, subject, html string) error {
	if cfg.SMTP.Host == "" {
		return fmt.Errorf("email.smtp.host is not configured")
	}
	if len(cfg.ToAddresses) == 0 {
		return fmt.Errorf("email.to_addresses is empty")
	}

	from := cfg.FromAddress
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(cfg.ToAddresses, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.WriteString(html)

	addr := fmt.Sprintf("%s:%d", cfg.SMTP.Host, cfg.SMTP.Port)
	var auth smtp.Auth
	if cfg.SMTP.Username != "" {
		auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
	}

	if err := smtp.SendMail(addr, auth, cfg.FromAddress, cfg.ToAddresses, msg.Bytes()); err != nil {
		return fmt.Errorf("failed to send newsletter email via %s: %w", addr, err)
	}
	return nil
}
