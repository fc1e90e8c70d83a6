package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/redmonkez12/account-service/internal/auth"
)

// content is the per-template copy rendered into the shared layout
type content struct {
	Subject     string
	Heading     string
	Intro       string
	ButtonLabel string
	LinkPath    string // appended to the frontend URL, token goes in the query
}

var templates = map[auth.Template]content{
	auth.TemplateVerifyAfterSignup: {
		Subject:     "Verify your email address",
		Heading:     "Welcome!",
		Intro:       "Thanks for signing up. Click the button below to verify your email address and activate your account.",
		ButtonLabel: "Verify Email Address",
		LinkPath:    "/verify",
	},
	auth.TemplateVerifyAfterLogin: {
		Subject:     "Verify your email address",
		Heading:     "Almost there",
		Intro:       "Your account has not been verified yet, so that login was turned away. Click the button below to verify your email address.",
		ButtonLabel: "Verify Email Address",
		LinkPath:    "/verify",
	},
	auth.TemplateVerifyAfterChange: {
		Subject:     "Confirm your new email address",
		Heading:     "Email address changed",
		Intro:       "The email address on your account was changed to this one. Click the button below to confirm it.",
		ButtonLabel: "Confirm Email Address",
		LinkPath:    "/verify",
	},
	auth.TemplateResetPassword: {
		Subject:     "Reset your password",
		Heading:     "Password reset request",
		Intro:       "You requested to reset your password. Click the button below to choose a new one. If you didn't request this, you can safely ignore this email.",
		ButtonLabel: "Reset Password",
		LinkPath:    "/reset-password",
	},
}

var layout = template.Must(template.New("email").Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #4F46E5; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
        .button { display: inline-block; background-color: #4F46E5; color: white !important; padding: 12px 30px; text-decoration: none; border-radius: 5px; margin: 20px 0; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Heading}}</h1>
    </div>
    <div class="content">
        <p>Hi {{.Name}},</p>
        <p>{{.Intro}}</p>

        <a href="{{.Link}}" class="button" style="color: white !important;">{{.ButtonLabel}}</a>

        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all; color: #4F46E5;">{{.Link}}</p>
    </div>
    <div class="footer">
        <p>If this email wasn't meant for you, you can ignore it.</p>
    </div>
</body>
</html>
`))

// Service sends transactional email over SMTP. It implements auth.Mailer.
type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
}

func NewService(smtpHost, smtpPort, smtpUser, smtpPassword, frontendURL string) *Service {
	return &Service{
		smtpHost:     smtpHost,
		smtpPort:     smtpPort,
		smtpUser:     smtpUser,
		smtpPassword: smtpPassword,
		fromEmail:    smtpUser,
		frontendURL:  frontendURL,
	}
}

// Send renders the template and delivers it synchronously. Errors return to
// the caller; the session manager decides what a failed send means.
func (s *Service) Send(ctx context.Context, address string, tmpl auth.Template, params auth.MailParams) error {
	c, ok := templates[tmpl]
	if !ok {
		return fmt.Errorf("unknown email template: %s", tmpl)
	}

	link := fmt.Sprintf("%s%s?token=%s", s.frontendURL, c.LinkPath, params.Token)

	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		Heading, Name, Intro, ButtonLabel, Link string
	}{
		Heading:     c.Heading,
		Name:        params.Name,
		Intro:       c.Intro,
		ButtonLabel: c.ButtonLabel,
		Link:        link,
	})
	if err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	if err := s.sendMail(address, c.Subject, buf.String()); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

func (s *Service) sendMail(to, subject, body string) error {
	smtpAuth := smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return smtp.SendMail(addr, smtpAuth, s.fromEmail, []string{to}, msg)
}
