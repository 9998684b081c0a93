package mailer

import (
	"bytes"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"
)

const defaultDialTimeout = 10 * time.Second

type Config struct {
	Host            string
	Port            int
	Username        string
	Password        string
	From            string
	ContactReceiver string
	DialTimeout     time.Duration
}

type Mailer struct {
	cfg Config
	log *zerolog.Logger
}

func New(cfg Config, log *zerolog.Logger) (*Mailer, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, errors.New("smtp host, port and sender address are required")
	}
	if cfg.ContactReceiver == "" {
		cfg.ContactReceiver = cfg.From
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	return &Mailer{cfg: cfg, log: log}, nil
}

var verificationTmpl = template.Must(template.New("verification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #1e40af;">Welcome to the Internship Program!</h2>
  <p>Dear <strong>{{.FullName}}</strong>,</p>
  <p>Thank you for registering for our <strong>{{.Field}}</strong> internship program.</p>
  <p>Your registration has been confirmed and payment has been processed successfully.</p>
  <div style="background-color: #f3f4f6; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #1e40af; margin-top: 0;">Your Verification Code</h3>
    <p style="font-size: 24px; font-weight: bold; color: #1e40af; letter-spacing: 2px;">{{.Code}}</p>
  </div>
  <p><strong>Important:</strong> Please keep this verification code safe. You will need it when your internship begins.</p>
  <br>
  <p>Best regards,<br>The Internship Team</p>
</div>
`))

var contactTmpl = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 700px; margin: 0 auto;">
  <h2 style="color: #1e40af;">New message from the Contact form</h2>
  <p><strong>Name:</strong> {{.Name}}</p>
  <p><strong>Email:</strong> {{.Email}}</p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 16px 0;" />
  <p style="white-space: pre-wrap;">{{.Message}}</p>
</div>
`))

// SendVerificationEmail delivers the post-payment verification code to the
// applicant.
func (m *Mailer) SendVerificationEmail(to, fullName, field, code string) error {
	var body bytes.Buffer
	if err := verificationTmpl.Execute(&body, map[string]string{
		"FullName": fullName,
		"Field":    field,
		"Code":     code,
	}); err != nil {
		return fmt.Errorf("render verification email: %w", err)
	}

	subject := "Internship Registration Verification"
	if err := m.send(to, "", subject, body.String()); err != nil {
		m.log.Warn().Err(err).Str("email", to).Msg("failed to send verification email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("email", to).Msg("verification email sent")
	return nil
}

// SendContactEmail relays a contact-form submission to the configured
// receiver mailbox.
func (m *Mailer) SendContactEmail(name, email, message string) error {
	var body bytes.Buffer
	if err := contactTmpl.Execute(&body, map[string]string{
		"Name":    name,
		"Email":   email,
		"Message": message,
	}); err != nil {
		return fmt.Errorf("render contact email: %w", err)
	}

	subject := "New Contact Message from " + name
	if err := m.send(m.cfg.ContactReceiver, email, subject, body.String()); err != nil {
		m.log.Warn().Err(err).Str("email", email).Msg("failed to relay contact message")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("from", email).Msg("contact message relayed")
	return nil
}

func (m *Mailer) send(to, replyTo, subject, htmlBody string) error {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	if replyTo != "" {
		fmt.Fprintf(&msg, "Reply-To: %s\r\n", replyTo)
	}
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, m.cfg.DialTimeout)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return client.Quit()
}
