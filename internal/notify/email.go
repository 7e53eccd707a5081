// Package notify sends user-facing billing notifications over SES.
package notify

import (
	"context"

	"dartsight/internal/common/config"
	"dartsight/internal/common/errors"
	"dartsight/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailSender is the slice of the SES client the notifier needs.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type EmailNotifier struct {
	sender EmailSender
	cfg    config.NotificationConfig
	logger logger.Logger
}

func NewEmailNotifier(sender EmailSender, cfg config.NotificationConfig, log logger.Logger) *EmailNotifier {
	return &EmailNotifier{
		sender: sender,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

const paymentFailedSubject = "Your payment didn't go through"

const paymentFailedBody = `We couldn't process your latest payment, so analysis uploads are paused on your account.

Update your payment method from the billing portal on your dashboard to pick up where you left off. Stripe will retry the charge automatically over the next few days.`

// PaymentFailed emails a subscriber whose invoice charge failed. Disabled
// configurations log and return nil so webhook processing never depends on
// the email channel being set up.
func (n *EmailNotifier) PaymentFailed(ctx context.Context, email string) error {
	if !n.cfg.Email.Enabled {
		n.logger.Debug("email notifications disabled, skipping", map[string]interface{}{
			"type": "payment_failed",
		})
		return nil
	}

	input := &ses.SendEmailInput{
		Source: aws.String(n.cfg.Email.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(paymentFailedSubject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(paymentFailedBody)},
			},
		},
	}

	if _, err := n.sender.SendEmail(ctx, input); err != nil {
		return errors.NewNotificationSendFailedError("payment_failed", err)
	}

	n.logger.Info("payment-failed email sent", map[string]interface{}{
		"email": email,
	})
	return nil
}
