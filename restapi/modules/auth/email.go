// Package auth provides email services for user invitations.
package auth

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/leancoach/coach-backend/internal/config"
	"github.com/leancoach/coach-backend/model"
	"go.uber.org/zap"
)

// InvitationSender delivers invitation links
type InvitationSender interface {
	SendInvitation(inv *model.Invitation, orgName string) error
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	BaseURL      string // Base URL for invitation links
}

var _ InvitationSender = (*EmailConfig)(nil)

// NewEmailConfig builds the mailer from configuration
func NewEmailConfig(cfg config.SMTPConfig) *EmailConfig {
	return &EmailConfig{
		SMTPHost:     cfg.Host,
		SMTPPort:     cfg.Port,
		SMTPUsername: cfg.Username,
		SMTPPassword: cfg.Password,
		FromEmail:    cfg.FromEmail,
		FromName:     cfg.FromName,
		BaseURL:      cfg.BaseURL,
	}
}

// InvitationLink returns the frontend URL for an invitation token
func (e *EmailConfig) InvitationLink(token string) string {
	return fmt.Sprintf("%s/invitation/%s", e.BaseURL, token)
}

// InvitationEmailData holds data for invitation email template
type InvitationEmailData struct {
	Organization   string
	Email          string
	Role           string
	InvitationLink string
	ExpiresIn      string
	SupportEmail   string
}

// SendInvitation emails an invitation, or logs the link when SMTP is not configured
func (e *EmailConfig) SendInvitation(inv *model.Invitation, orgName string) error {
	link := e.InvitationLink(inv.Token)

	if e.SMTPHost == "" {
		zap.L().Info("SMTP not configured, invitation link follows",
			zap.String("org", orgName),
			zap.String("email", inv.Email),
			zap.String("role", string(inv.Role)),
			zap.String("link", link),
			zap.Duration("valid_for", model.InvitationTTL))
		return nil
	}

	data := InvitationEmailData{
		Organization:   orgName,
		Email:          inv.Email,
		Role:           string(inv.Role),
		InvitationLink: link,
		ExpiresIn:      "48 hours",
		SupportEmail:   e.FromEmail,
	}

	body, err := renderInvitationEmail(data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}

	return e.sendEmail(inv.Email, "You've been invited to "+orgName+" on LEAN AI COACH", body)
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #1f4e79; color: white; padding: 20px; text-align: center; }
		.content { padding: 30px; background-color: #f9f9f9; }
		.button {
			display: inline-block;
			background-color: #1f4e79;
			color: white;
			padding: 12px 30px;
			text-decoration: none;
			border-radius: 4px;
			margin: 20px 0;
		}
		.info-box {
			background-color: #e8eef5;
			border-left: 4px solid #1f4e79;
			padding: 15px;
			margin: 20px 0;
		}
		.footer { padding: 20px; text-align: center; color: #666; font-size: 12px; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Join {{.Organization}}</h1>
		</div>

		<div class="content">
			<p>You've been invited to collaborate on A3 problem-solving documents.</p>

			<div class="info-box">
				<strong>Your Role:</strong> {{.Role}}<br>
				<strong>Email:</strong> {{.Email}}
			</div>

			<p>To complete your account setup and set your password, please click the button below:</p>

			<center>
				<a href="{{.InvitationLink}}" class="button">Accept Invitation &amp; Set Password</a>
			</center>

			<p><strong>Important:</strong> This invitation link will expire in {{.ExpiresIn}}.</p>

			<p>If you didn't expect this invitation, please ignore this email or contact your administrator.</p>
		</div>

		<div class="footer">
			<p>LEAN AI COACH<br>
			Questions? Contact <a href="mailto:{{.SupportEmail}}">{{.SupportEmail}}</a></p>
		</div>
	</div>
</body>
</html>
`))

// renderInvitationEmail renders the invitation email template
func renderInvitationEmail(data InvitationEmailData) (string, error) {
	var buf bytes.Buffer
	if err := invitationTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sendEmail sends an email using SMTP
func (e *EmailConfig) sendEmail(to, subject, htmlBody string) error {
	var auth smtp.Auth
	if e.SMTPUsername != "" {
		auth = smtp.PlainAuth("", e.SMTPUsername, e.SMTPPassword, e.SMTPHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s",
		e.FromName, e.FromEmail, to, subject, htmlBody,
	))

	addr := fmt.Sprintf("%s:%s", e.SMTPHost, e.SMTPPort)
	return smtp.SendMail(addr, auth, e.FromEmail, []string{to}, msg)
}
