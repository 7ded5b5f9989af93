package notify

import (
	"context"
	"fmt"
	"html"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// BrevoSink emails the license key through Brevo's transactional API.
type BrevoSink struct {
	client      *brevo.APIClient
	fromEmail   string
	fromName    string
	serviceName string
}

// NewBrevoSink creates a Brevo sink. basePath overrides the API endpoint when non-empty.
func NewBrevoSink(apiKey, fromEmail, fromName, serviceName, basePath string) *BrevoSink {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	if basePath != "" {
		cfg.BasePath = basePath
	}

	return &BrevoSink{
		client:      brevo.NewAPIClient(cfg),
		fromEmail:   fromEmail,
		fromName:    fromName,
		serviceName: serviceName,
	}
}

func (s *BrevoSink) Name() string { return "brevo" }

// Send sends the license email.
func (s *BrevoSink) Send(ctx context.Context, n Notice) error {
	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  s.fromName,
			Email: s.fromEmail,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: n.Email},
		},
		Subject:     fmt.Sprintf("%s - Your License Key", s.serviceName),
		HtmlContent: s.htmlBody(n),
		TextContent: s.textBody(n),
	}

	_, resp, err := s.client.TransactionalEmailsApi.SendTransacEmail(ctx, email)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("brevo API error: status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (s *BrevoSink) htmlBody(n Notice) string {
	return fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head>
			<meta charset="UTF-8">
			<title>License Key</title>
		</head>
		<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
			<div style="background-color: #f8f9fa; padding: 30px; border-radius: 10px; text-align: center;">
				<h1 style="color: #333; margin-bottom: 20px;">Thank you for purchasing %s</h1>
				<p style="color: #666; font-size: 16px;">Order: %s</p>
				<p style="color: #666; font-size: 16px; margin-bottom: 20px;">Your license key is:</p>
				<div style="background-color: #007bff; color: white; padding: 20px; border-radius: 10px; font-size: 20px; font-weight: bold; letter-spacing: 2px; margin: 20px 0;">
					%s
				</div>
				<p style="color: #999; font-size: 14px; margin-top: 20px;">The key activates on one device. Keep it private.</p>
			</div>
		</body>
		</html>
	`, html.EscapeString(s.serviceName), html.EscapeString(n.OrderNo), html.EscapeString(n.LicenseKey))
}

func (s *BrevoSink) textBody(n Notice) string {
	return fmt.Sprintf(`Thank you for purchasing %s!

Order: %s
License Key: %s

The key activates on one device. Keep it private.`, s.serviceName, n.OrderNo, n.LicenseKey)
}
