package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/config"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/core"
)

func TestRenderHTMLIncludesSubjectAndExamples(t *testing.T) {
	issue := &core.NewsletterIssue{
		ID:             "issue-1",
		SubjectLine:    "\U0001F680 AI Weekly: Big News + 1 Practical AI Tips",
		BigNewsSummary: "A major model was released.",
		GeneratedAt:    time.Now(),
	}
	examples := []core.NewsletterExample{
		{Position: 1, Title: "Automate your inbox", Description: "Use an agent to triage email.", SourceURL: "https://example.com/ep1", SourceTitle: "Episode One"},
	}

	html, err := RenderHTML(issue, examples)

	require.NoError(t, err)
	assert.Contains(t, html, issue.SubjectLine)
	assert.Contains(t, html, "A major model was released.")
	assert.Contains(t, html, "Automate your inbox")
	assert.Contains(t, html, "https://example.com/ep1")
}

func TestRenderHTMLOmitsBigNewsBlockWhenEmpty(t *testing.T) {
	issue := &core.NewsletterIssue{SubjectLine: "subject", BigNewsSummary: ""}

	html, err := RenderHTML(issue, nil)

	require.NoError(t, err)
	assert.NotContains(t, html, "Big news:")
}

func TestSendRequiresHost(t *testing.T) {
	err := Send(config.Email{ToAddresses: []string{"a@example.com"}}, "subject", "<html></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.host")
}

func TestSendRequiresRecipients(t *testing.T) {
	err := Send(config.Email{SMTP: config.SMTPConfig{Host: "smtp.example.com"}}, "subject", "<html></html>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "to_addresses")
}
