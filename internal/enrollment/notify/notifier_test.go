// internal/enrollment/notify/notifier_test.go
package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrollment-core/internal/common/config"
	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"
)

// ==========================
// Test Doubles
// ==========================

type fakeEmailSender struct {
	mu     sync.Mutex
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeEmailSender) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{}, nil
}

func (f *fakeEmailSender) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inputs)
}

type fakeSMSSender struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSMSSender) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func testNotificationConfig(email, sms bool) config.NotificationConfig {
	var cfg config.NotificationConfig
	cfg.Email.Enabled = email
	cfg.Email.FromEmail = "enrollments@example.com"
	cfg.SMS.Enabled = sms
	cfg.AWS.Region = "us-east-1"
	return cfg
}

func testEvent() models.SubmissionEvent {
	return models.SubmissionEvent{
		ApplicationID: "APP-1",
		CarrierSlug:   "allstate",
		CarrierName:   "Allstate",
		Email:         "jane@example.com",
		Phone:         "+15550100",
		SubmittedAt:   "2026-10-01T00:00:00Z",
	}
}

// ==========================
// Delivery Tests
// ==========================

func TestProcess_SendsEmailAndSMSWhenEnabled(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	n := NewNotifier(testNotificationConfig(true, true), email, sms, logger.NewTestLogger(t))

	n.process(context.Background(), testEvent())

	require.Len(t, email.inputs, 1)
	assert.Equal(t, []string{"jane@example.com"}, email.inputs[0].Destination.ToAddresses)
	assert.Equal(t, "enrollments@example.com", *email.inputs[0].Source)
	assert.Contains(t, *email.inputs[0].Message.Subject.Data, "Allstate")

	require.Len(t, sms.inputs, 1)
	assert.Equal(t, "+15550100", *sms.inputs[0].PhoneNumber)
	assert.Contains(t, *sms.inputs[0].Message, "APP-1")
}

func TestProcess_SkipsDisabledChannels(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	n := NewNotifier(testNotificationConfig(true, false), email, sms, logger.NewTestLogger(t))

	n.process(context.Background(), testEvent())

	assert.Len(t, email.inputs, 1)
	assert.Empty(t, sms.inputs)
}

func TestProcess_SkipsMissingContactDetails(t *testing.T) {
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	n := NewNotifier(testNotificationConfig(true, true), email, sms, logger.NewTestLogger(t))

	event := testEvent()
	event.Email = ""
	event.Phone = ""
	n.process(context.Background(), event)

	assert.Empty(t, email.inputs)
	assert.Empty(t, sms.inputs)
}

func TestProcess_SendFailureIsSwallowed(t *testing.T) {
	email := &fakeEmailSender{err: errors.New("ses throttled")}
	sms := &fakeSMSSender{}
	n := NewNotifier(testNotificationConfig(true, true), email, sms, logger.NewTestLogger(t))

	n.process(context.Background(), testEvent())

	// The email failed but the SMS still went out.
	assert.Len(t, sms.inputs, 1)
}

// ==========================
// Buffering Tests
// ==========================

func TestEmit_NeverBlocksWhenBufferIsFull(t *testing.T) {
	n := NewNotifier(testNotificationConfig(true, true), &fakeEmailSender{}, &fakeSMSSender{}, logger.NewTestLogger(t))

	// No consumer running; overfill the buffer.
	for i := 0; i < 200; i++ {
		n.Emit(testEvent())
	}
}

func TestRun_DrainsQueuedEvents(t *testing.T) {
	email := &fakeEmailSender{}
	n := NewNotifier(testNotificationConfig(true, false), email, &fakeSMSSender{}, logger.NewTestLogger(t))

	n.Emit(testEvent())
	n.Emit(testEvent())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return email.sent() == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
