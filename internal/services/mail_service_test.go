package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMailService_NoHostIsNoop(t *testing.T) {
	svc := NewMailService(SMTPConfig{}, zap.NewNop())
	_, ok := svc.(*noopMailService)
	require.True(t, ok)
	assert.NoError(t, svc.SendOnboardingLink(context.Background(), "a@b.test", "Hillview", "https://x"))
	assert.NoError(t, svc.SendStaffCredentials(context.Background(), "a@b.test", "Hillview", "https://x", "pw"))
}

func TestSMTPMailService_Message(t *testing.T) {
	svc := NewMailService(SMTPConfig{
		Host:     "smtp.example.test",
		Port:     587,
		From:     "billing@example.test",
		FromName: "Hillview Billing",
	}, zap.NewNop()).(*smtpMailService)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	data := emailData{
		Title:     "Your staff login for Hillview",
		Intro:     "A staff account was created for you.",
		Detail:    "Temp-Pass-123",
		ButtonURL: "https://app.example.test/staff/login?accountId=1",
		ButtonTxt: "Sign in",
		School:    "Hillview <Primary>",
		Year:      2026,
	}
	html, text, err := svc.render(data)
	require.NoError(t, err)
	assert.Contains(t, html, "Hillview &lt;Primary&gt;")
	assert.Contains(t, html, "Temp-Pass-123")
	assert.Contains(t, text, "Sign in: https://app.example.test/staff/login?accountId=1")
	assert.Contains(t, text, "Hillview <Primary> (2026)")

	msg := string(svc.message("staff@example.test", data.Title, html, text))
	assert.True(t, strings.HasPrefix(msg, "From: Hillview Billing <billing@example.test>\r\n"))
	assert.Contains(t, msg, "To: staff@example.test\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
	assert.Contains(t, msg, "Date: Mon, 02 Mar 2026 09:00:00 +0000")
	assert.True(t, strings.HasSuffix(msg, "--\r\n"))
}
