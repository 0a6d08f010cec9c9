package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
	"unicode"

	"github.com/cmlabs-hris/taskflow-backend-go/internal/config"
	"github.com/cmlabs-hris/taskflow-backend-go/internal/pkg/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

const maxRetries = 3

// Result reports the outcome of one dispatch. Callers log failures and carry on.
type Result struct {
	Success bool
	Error   string
}

func failed(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

type InvitationEmail struct {
	InviterName      string
	InviterEmail     string
	InviteeName      string
	InviteeEmail     string
	Role             string
	Department       *string
	InviteLink       string
	CustomMessage    *string
	IsNewUser        bool
	OrganisationName string
}

type WelcomeEmail struct {
	Name             string
	Email            string
	OrganisationName string
	Role             string
	DashboardLink    string
}

type OTPEmail struct {
	Email     string
	Code      string
	ExpiresIn time.Duration
}

// Dispatcher sends the transactional emails of the invitation flow.
type Dispatcher interface {
	SendInvitation(ctx context.Context, msg InvitationEmail) Result
	SendWelcome(ctx context.Context, msg WelcomeEmail) Result
	SendOTP(ctx context.Context, msg OTPEmail) Result
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type smtpDispatcher struct {
	cfg       config.SMTPConfig
	templates *template.Template
	send      sendFunc
	backoff   time.Duration
}

// NewDispatcher parses the embedded templates and returns an SMTP dispatcher.
// With no SMTP host configured every send is logged and reported successful.
func NewDispatcher(cfg config.SMTPConfig) (Dispatcher, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &smtpDispatcher{
		cfg:       cfg,
		templates: tmpl,
		send:      smtp.SendMail,
		backoff:   time.Second,
	}, nil
}

func (s *smtpDispatcher) render(name string, data any) (string, error) {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return body.String(), nil
}

// SendInvitation implements Dispatcher.
func (s *smtpDispatcher) SendInvitation(ctx context.Context, msg InvitationEmail) Result {
	body, err := s.render("invitation.html", msg)
	if err != nil {
		return s.record("invitation", failed(err))
	}
	subject := fmt.Sprintf("%s invited you to join %s", msg.InviterName, msg.OrganisationName)
	return s.record("invitation", s.sendHTML(ctx, msg.InviteeEmail, subject, body))
}

// SendWelcome implements Dispatcher.
func (s *smtpDispatcher) SendWelcome(ctx context.Context, msg WelcomeEmail) Result {
	body, err := s.render("welcome.html", msg)
	if err != nil {
		return s.record("welcome", failed(err))
	}
	subject := fmt.Sprintf("Welcome to %s", msg.OrganisationName)
	return s.record("welcome", s.sendHTML(ctx, msg.Email, subject, body))
}

type otpEmailData struct {
	Code    string
	Minutes int
}

// SendOTP implements Dispatcher.
func (s *smtpDispatcher) SendOTP(ctx context.Context, msg OTPEmail) Result {
	body, err := s.render("otp.html", otpEmailData{Code: msg.Code, Minutes: int(msg.ExpiresIn.Minutes())})
	if err != nil {
		return s.record("otp", failed(err))
	}
	return s.record("otp", s.sendHTML(ctx, msg.Email, "Your verification code", body))
}

func (s *smtpDispatcher) record(template string, res Result) Result {
	metrics.RecordEmailDispatch(template, res.Success)
	return res
}

func (s *smtpDispatcher) sendHTML(ctx context.Context, to, subject, htmlBody string) Result {
	// Skip sending if SMTP is not configured
	if s.cfg.Host == "" {
		slog.WarnContext(ctx, "SMTP not configured, skipping email send", "to", to, "subject", subject)
		return Result{Success: true}
	}

	from := s.cfg.From
	if strings.ContainsFunc(to, unicode.IsControl) {
		return failed(errors.New("recipient address contains control characters"))
	}

	sender := mail.Address{Name: headerValue(s.cfg.FromName), Address: from}
	headers := fmt.Sprintf("From: %s\r\n", sender.String())
	headers += fmt.Sprintf("To: %s\r\n", to)
	headers += fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", headerValue(subject)))
	headers += "MIME-Version: 1.0\r\n"
	headers += "Content-Type: text/html; charset=\"UTF-8\"\r\n"
	headers += "\r\n"

	message := []byte(headers + htmlBody)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := s.send(addr, auth, from, []string{to}, message)
		if err == nil {
			slog.InfoContext(ctx, "Email sent successfully", "to", to, "subject", subject, "attempt", attempt)
			return Result{Success: true}
		}

		lastErr = err
		slog.ErrorContext(ctx, "Failed to send email",
			"to", to,
			"subject", subject,
			"attempt", attempt,
			"max_retries", maxRetries,
			"error", err,
		)

		// Wait before retrying (exponential backoff: 1s, 2s, 4s)
		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return failed(ctx.Err())
			case <-time.After(s.backoff * time.Duration(1<<(attempt-1))):
			}
		}
	}

	return failed(fmt.Errorf("failed to send email after %d attempts: %w", maxRetries, lastErr))
}

// headerValue folds control characters to spaces so user-supplied text cannot
// start a new header line.
func headerValue(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}
