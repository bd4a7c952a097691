package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"webstarter-backend/internal/config"
	"webstarter-backend/internal/model"
	"webstarter-backend/pkg/logger"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const (
	EmailTypeWelcome       = "welcome"
	EmailTypePasswordReset = "password-reset"
	EmailTypeNotification  = "notification"
)

var (
	ErrInvalidEmailType = errors.New("invalid email type")
	ErrEmailRejected    = errors.New("email rejected by provider")
)

func IsEmailType(t string) bool {
	switch t {
	case EmailTypeWelcome, EmailTypePasswordReset, EmailTypeNotification:
		return true
	}
	return false
}

// MailSender is the part of *sendgrid.Client the service uses.
type MailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type EmailService struct {
	sender    MailSender
	fromName  string
	fromEmail string
	appName   string
	appURL    string
}

func NewEmailService(cfg config.EmailConfig, app config.AppConfig) *EmailService {
	if cfg.SendGridAPIKey == "" {
		logger.Warnf("SendGrid API key not configured, /api/email will fail")
	}
	return NewEmailServiceWithSender(sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg, app)
}

func NewEmailServiceWithSender(sender MailSender, cfg config.EmailConfig, app config.AppConfig) *EmailService {
	return &EmailService{
		sender:    sender,
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
		appName:   app.Name,
		appURL:    strings.TrimRight(app.URL, "/"),
	}
}

// templateData is shared by every template; unused fields stay empty.
type templateData struct {
	AppName      string
	DashboardURL string
	Name         string
	ResetLink    string
	Title        string
	Message      string
	ActionURL    string
	ActionText   string
}

type emailTemplate struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

const htmlLayoutStart = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Heading}}</title>
  </head>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
`

const htmlLayoutEnd = `      <p>Best regards,<br>The Team</p>
    </div>
  </body>
</html>
`

var emailTemplates = map[string]emailTemplate{
	EmailTypeWelcome: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`Welcome to {{.AppName}}!`)),
		html: htmltemplate.Must(htmltemplate.New("html").Parse(
			`{{define "heading"}}Welcome!{{end}}` + layout(`      <h1 style="color: #2563eb;">Welcome to {{.AppName}}!</h1>
      <p>Hi {{.Name}},</p>
      <p>Thank you for signing up! We're excited to have you on board.</p>
      <p>Your account has been successfully created and you can now access all the features of our platform.</p>
      <div style="margin: 30px 0;"><a href="{{.DashboardURL}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Go to Dashboard</a></div>
      <p>If you have any questions, feel free to reach out to our support team.</p>
`))),
		text: texttemplate.Must(texttemplate.New("text").Parse(`Welcome to {{.AppName}}!

Hi {{.Name}},

Thank you for signing up! We're excited to have you on board.

Your account has been successfully created and you can now access all the features of our platform.

Visit your dashboard: {{.DashboardURL}}

If you have any questions, feel free to reach out to our support team.

Best regards,
The Team
`)),
	},
	EmailTypePasswordReset: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`Password Reset Request`)),
		html: htmltemplate.Must(htmltemplate.New("html").Parse(
			`{{define "heading"}}Password Reset{{end}}` + layout(`      <h1 style="color: #2563eb;">Password Reset Request</h1>
      <p>You requested a password reset for your account.</p>
      <p>Click the button below to reset your password:</p>
      <div style="margin: 30px 0;"><a href="{{.ResetLink}}" style="background-color: #dc2626; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Reset Password</a></div>
      <p>If you didn't request this password reset, please ignore this email.</p>
      <p>This link will expire in 24 hours for security reasons.</p>
`))),
		text: texttemplate.Must(texttemplate.New("text").Parse(`Password Reset Request

You requested a password reset for your account.

Click the link below to reset your password:
{{.ResetLink}}

If you didn't request this password reset, please ignore this email.

This link will expire in 24 hours for security reasons.

Best regards,
The Team
`)),
	},
	EmailTypeNotification: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`{{.Title}}`)),
		html: htmltemplate.Must(htmltemplate.New("html").Parse(
			`{{define "heading"}}{{.Title}}{{end}}` + layout(`      <h1 style="color: #2563eb;">{{.Title}}</h1>
      <p>{{.Message}}</p>
{{if and .ActionURL .ActionText}}      <div style="margin: 30px 0;"><a href="{{.ActionURL}}" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">{{.ActionText}}</a></div>
{{end}}`))),
		text: texttemplate.Must(texttemplate.New("text").Parse(`{{.Title}}

{{.Message}}
{{if and .ActionURL .ActionText}}
{{.ActionText}}: {{.ActionURL}}
{{end}}
Best regards,
The Team
`)),
	},
}

func layout(body string) string {
	return strings.Replace(htmlLayoutStart, "{{.Heading}}", `{{template "heading" .}}`, 1) + body + htmlLayoutEnd
}

// Send renders the template for req.Type and hands it to SendGrid.
func (s *EmailService) Send(ctx context.Context, req *model.EmailRequest) (*model.EmailReceipt, error) {
	tmpl, ok := emailTemplates[req.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmailType, req.Type)
	}

	data := templateData{
		AppName:      s.appName,
		DashboardURL: s.appURL + "/dashboard",
		Name:         req.Name,
		ResetLink:    req.ResetLink,
		Title:        req.Title,
		Message:      req.Message,
		ActionURL:    req.ActionURL,
		ActionText:   req.ActionText,
	}

	subject, err := renderText(tmpl.subject, data)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	text, err := renderText(tmpl.text, data)
	if err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	var html bytes.Buffer
	if err := tmpl.html.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	message.Subject = subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(req.To, req.To))
	message.AddPersonalizations(p)

	message.AddContent(mail.NewContent("text/plain", text))
	message.AddContent(mail.NewContent("text/html", html.String()))

	resp, err := s.sender.SendWithContext(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("send %s email: %w", req.Type, err)
	}

	log := logger.WithFields(logrus.Fields{
		"type":        req.Type,
		"status_code": resp.StatusCode,
	})
	if resp.StatusCode >= 400 {
		log.WithField("body", resp.Body).Warn("SendGrid rejected email")
		return nil, fmt.Errorf("%w: status %d", ErrEmailRejected, resp.StatusCode)
	}
	log.Info("Email sent")

	return &model.EmailReceipt{
		StatusCode: resp.StatusCode,
		MessageID:  firstHeader(resp.Headers, "X-Message-Id"),
	}, nil
}

func renderText(t *texttemplate.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstHeader(headers map[string][]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
