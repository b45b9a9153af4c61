package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"staydesk/pkg/logger"
)

// EmailService delivers a notification to its recipient
type EmailService interface {
	SendNotification(ctx context.Context, notification *EmailNotification) error
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool
	Timeout   time.Duration
}

func (c *SMTPConfig) validate() error {
	if c == nil {
		return fmt.Errorf("SMTP config is nil")
	}
	if c.Host == "" {
		return fmt.Errorf("SMTP host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SMTP port must be between 1 and 65535")
	}
	if c.FromEmail == "" {
		return fmt.Errorf("from email is required")
	}
	return nil
}

// SMTPEmailService sends notifications over SMTP
type SMTPEmailService struct {
	config *SMTPConfig
	logger *logger.Logger
}

// NewSMTPEmailService validates config and returns an SMTP sender
func NewSMTPEmailService(config *SMTPConfig, log *logger.Logger) (*SMTPEmailService, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid SMTP configuration: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &SMTPEmailService{config: config, logger: log.WithComponent("smtp")}, nil
}

// SendNotification renders and sends one notification
func (s *SMTPEmailService) SendNotification(ctx context.Context, notification *EmailNotification) error {
	if notification.RecipientEmail == "" {
		return fmt.Errorf("notification %s has no recipient", notification.ID)
	}

	htmlBody, textBody, err := RenderNotification(notification)
	if err != nil {
		return fmt.Errorf("failed to generate email content: %w", err)
	}

	message := s.buildMessage(notification.RecipientEmail, notification.Subject, htmlBody, textBody)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	if s.config.UseTLS {
		err = s.sendWithSTARTTLS(ctx, addr, auth, notification.RecipientEmail, message)
	} else {
		err = smtp.SendMail(addr, auth, s.config.FromEmail, []string{notification.RecipientEmail}, message)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.InfoContext(ctx, "Email sent",
		"notification_type", string(notification.Type),
		"booking_id", notification.BookingID.String(),
	)
	return nil
}

func (s *SMTPEmailService) sendWithSTARTTLS(ctx context.Context, addr string, auth smtp.Auth, to string, message []byte) error {
	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to start SMTP session: %w", err)
	}
	defer client.Quit()

	if err = client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return w.Close()
}

// buildMessage creates a multipart/alternative message
func (s *SMTPEmailService) buildMessage(to, subject, htmlBody, textBody string) []byte {
	boundary := "boundary_" + strconv.FormatInt(time.Now().UnixNano(), 10)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n", boundary, textBody)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n", boundary, htmlBody)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}

// LogEmailService writes notifications to the log instead of sending them.
// It is used when no SMTP server is configured.
type LogEmailService struct {
	logger *logger.Logger
}

func NewLogEmailService(log *logger.Logger) *LogEmailService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &LogEmailService{logger: log.WithComponent("email-log")}
}

func (s *LogEmailService) SendNotification(ctx context.Context, notification *EmailNotification) error {
	_, text, err := RenderNotification(notification)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Email notification",
		"notification_type", string(notification.Type),
		"booking_id", notification.BookingID.String(),
		"subject", notification.Subject,
		"body", text,
	)
	return nil
}

type templateView struct {
	Name    string
	Subject string
	Lines   []string
}

var htmlTemplate = template.Must(template.New("html").Parse(`<h2>{{.Subject}}</h2>
<p>Hi {{.Name}},</p>
{{range .Lines}}<p>{{.}}</p>
{{end}}<p>Best regards,<br>The front desk</p>`))

var textTemplate = texttemplate.Must(texttemplate.New("text").Parse(`Hi {{.Name}},

{{range .Lines}}{{.}}
{{end}}
Best regards,
The front desk`))

// RenderNotification renders the HTML and plain text bodies of a notification
func RenderNotification(n *EmailNotification) (string, string, error) {
	name := n.RecipientName
	if name == "" {
		name = "guest"
	}
	view := templateView{Name: name, Subject: n.Subject, Lines: bodyLines(n)}

	var htmlBuf, textBuf bytes.Buffer
	if err := htmlTemplate.Execute(&htmlBuf, view); err != nil {
		return "", "", fmt.Errorf("failed to execute HTML template: %w", err)
	}
	if err := textTemplate.Execute(&textBuf, view); err != nil {
		return "", "", fmt.Errorf("failed to execute text template: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

func bodyLines(n *EmailNotification) []string {
	d := n.TemplateData
	get := func(key string) string {
		if v, ok := d[key]; ok && v != nil {
			return fmt.Sprint(v)
		}
		return ""
	}

	ref := n.BookingID.String()
	switch n.Type {
	case NotificationTypeBookingReceived:
		return []string{
			fmt.Sprintf("We received booking %s for %s to %s.", ref, get("check_in"), get("check_out")),
			"We will confirm it shortly.",
		}
	case NotificationTypeBookingConfirmed:
		return []string{fmt.Sprintf("Booking %s for %s to %s is confirmed.", ref, get("check_in"), get("check_out"))}
	case NotificationTypeBookingCancelled:
		lines := []string{fmt.Sprintf("Booking %s has been cancelled.", ref)}
		if r := get("reason"); r != "" {
			lines = append(lines, "Reason: "+r)
		}
		return append(lines, fmt.Sprintf("Returned so far: %s %s.", get("refunded"), get("currency")))
	case NotificationTypeBookingCheckedIn:
		return []string{fmt.Sprintf("You are checked in. Check-out is on %s.", get("check_out"))}
	case NotificationTypeBookingCompleted:
		return []string{fmt.Sprintf("Your stay under booking %s is complete. We hope to see you again.", ref)}
	case NotificationTypeBookingNoShow:
		return []string{fmt.Sprintf("You did not check in on %s for booking %s. Please contact us if your plans changed.", get("check_in"), ref)}
	case NotificationTypePaymentUpdated:
		return []string{fmt.Sprintf("The payment status of booking %s is now %s. Paid: %s %s.", ref, get("payment_status"), get("amount_paid"), get("currency"))}
	case NotificationTypeRefundRequested, NotificationTypeRefundApproved, NotificationTypeRefundRejected, NotificationTypeRefundProcessed:
		return []string{fmt.Sprintf("Refund %s of %s %s for booking %s: %s.", get("refund_request_id"), get("amount"), get("currency"), ref, strings.ToLower(strings.TrimPrefix(string(n.Type), "REFUND_")))}
	case NotificationTypeCreditNoteIssued:
		lines := []string{fmt.Sprintf("A credit note of %s %s was issued for booking %s.", get("amount"), get("currency"), ref)}
		if inv := get("invoice_ref"); inv != "" {
			lines = append(lines, "Invoice: "+inv)
		}
		return lines
	default:
		return []string{fmt.Sprintf("There is an update on booking %s.", ref)}
	}
}
