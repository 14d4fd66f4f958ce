package notify

import (
	"context"
	"fmt"

	"studiobook/internal/config"
	"studiobook/internal/domain"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// ResendNotifier delivers customer emails through the Resend API.
type ResendNotifier struct {
	client      *resend.Client
	from        string
	companyName string
	logger      *zerolog.Logger
}

func NewResendNotifier(cfg config.EmailConfig, logger *zerolog.Logger) *ResendNotifier {
	return &ResendNotifier{
		client:      resend.NewClient(cfg.ResendKey),
		from:        cfg.FromAddress,
		companyName: cfg.CompanyName,
		logger:      logger,
	}
}

func (n *ResendNotifier) Send(ctx context.Context, email domain.Email) error {
	body, err := renderBody(email)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.companyName, n.from),
		To:      []string{email.To},
		Subject: Subject(email.Kind),
		Html:    body,
	}

	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send %s email to %s: %w", email.Kind, email.To, err)
	}

	n.logger.Info().
		Str("kind", email.Kind).
		Str("to", email.To).
		Str("message_id", sent.Id).
		Msg("email sent")
	return nil
}
