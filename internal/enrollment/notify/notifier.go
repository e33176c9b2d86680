// internal/enrollment/notify/notifier.go
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"enrollment-core/internal/common/config"
	apperrors "enrollment-core/internal/common/errors"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"
)

// EmailSender sends a confirmation email via SES.
type EmailSender interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// SMSSender sends a confirmation SMS via SNS.
type SMSSender interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier consumes submission events off a buffered channel and sends
// confirmation email and SMS. Delivery is best-effort: a send failure is
// logged and the event dropped, never surfaced to the submission path.
type Notifier struct {
	cfg    config.NotificationConfig
	email  EmailSender
	sms    SMSSender
	events chan models.SubmissionEvent
	logger logger.Logger
}

func NewNotifier(cfg config.NotificationConfig, email EmailSender, sms SMSSender, log logger.Logger) *Notifier {
	return &Notifier{
		cfg:    cfg,
		email:  email,
		sms:    sms,
		events: make(chan models.SubmissionEvent, 64),
		logger: log,
	}
}

// Emit queues one event. Never blocks: if the buffer is full the event is
// dropped with a warning, because confirmation delivery must not slow the
// submission path.
func (n *Notifier) Emit(event models.SubmissionEvent) {
	select {
	case n.events <- event:
	default:
		n.logger.Warn("notification buffer full, dropping event", map[string]interface{}{
			"applicationId": event.ApplicationID,
		})
	}
}

// Run drains the event channel until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-n.events:
			n.process(ctx, event)
		}
	}
}

func (n *Notifier) process(ctx context.Context, event models.SubmissionEvent) {
	if n.cfg.Email.Enabled && event.Email != "" && n.email != nil {
		if err := n.sendEmail(ctx, event); err != nil {
			se := apperrors.NewNotificationSendFailedError("email", err)
			n.logger.Error(se.Message, map[string]interface{}{
				"applicationId": event.ApplicationID,
				"email":         event.Email,
				"error":         err,
			})
		}
	}

	if n.cfg.SMS.Enabled && event.Phone != "" && n.sms != nil {
		if err := n.sendSMS(ctx, event); err != nil {
			se := apperrors.NewNotificationSendFailedError("sms", err)
			n.logger.Error(se.Message, map[string]interface{}{
				"applicationId": event.ApplicationID,
				"phone":         event.Phone,
				"error":         err,
			})
		}
	}
}

func (n *Notifier) sendEmail(ctx context.Context, event models.SubmissionEvent) error {
	subject := fmt.Sprintf("Your %s enrollment was submitted", event.CarrierName)
	body := fmt.Sprintf(
		"Your application with %s was submitted on %s and is pending carrier review. Reference: %s",
		event.CarrierName,
		event.SubmittedAt,
		event.ApplicationID,
	)

	_, err := n.email.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{event.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, event models.SubmissionEvent) error {
	message := fmt.Sprintf(
		"Your %s enrollment was submitted. Reference: %s",
		event.CarrierName,
		event.ApplicationID,
	)

	_, err := n.sms.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(event.Phone),
		Message:     aws.String(message),
	})
	return err
}
