package notifications

import (
	"context"
	"strings"
	"testing"

	"staydesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderNotification(t *testing.T) {
	n := &EmailNotification{
		Type:          NotificationTypeBookingCancelled,
		RecipientName: "<Ada>",
		Subject:       subjectFor(NotificationTypeBookingCancelled),
		BookingID:     uuid.New(),
		TemplateData: map[string]interface{}{
			"reason":   "guest request",
			"refunded": "300.00",
			"currency": "EUR",
		},
	}

	html, text, err := RenderNotification(n)
	require.NoError(t, err)
	assert.Contains(t, html, "&lt;Ada&gt;")
	assert.Contains(t, text, "Hi <Ada>,")
	assert.Contains(t, text, "Reason: guest request")
	assert.Contains(t, text, "300.00 EUR")
	assert.Contains(t, text, n.BookingID.String())
}

func TestRenderNotification_DefaultName(t *testing.T) {
	_, text, err := RenderNotification(&EmailNotification{Type: NotificationTypeBookingConfirmed})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Hi guest,"))
}

func TestNewSMTPEmailService_Validates(t *testing.T) {
	_, err := NewSMTPEmailService(&SMTPConfig{Port: 587, FromEmail: "desk@example.com"}, logger.Discard())
	assert.Error(t, err)

	_, err = NewSMTPEmailService(&SMTPConfig{Host: "smtp.example.com", Port: 70000, FromEmail: "desk@example.com"}, logger.Discard())
	assert.Error(t, err)

	svc, err := NewSMTPEmailService(&SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "desk@example.com", FromName: "Front Desk"}, logger.Discard())
	require.NoError(t, err)

	msg := string(svc.buildMessage("guest@example.com", "Hello", "<p>hi</p>", "hi"))
	assert.Contains(t, msg, "From: Front Desk <desk@example.com>\r\n")
	assert.Contains(t, msg, "Subject: Hello\r\n")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, msg, "Content-Type: text/html; charset=UTF-8")
}

func TestSMTPEmailService_RequiresRecipient(t *testing.T) {
	svc, err := NewSMTPEmailService(&SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "desk@example.com"}, logger.Discard())
	require.NoError(t, err)

	err = svc.SendNotification(context.Background(), &EmailNotification{ID: uuid.New()})
	assert.Error(t, err)
}

func TestLogEmailService(t *testing.T) {
	svc := NewLogEmailService(logger.Discard())
	assert.NoError(t, svc.SendNotification(context.Background(), &EmailNotification{
		Type:    NotificationTypeRefundProcessed,
		Subject: "Your refund has been processed",
	}))
}
