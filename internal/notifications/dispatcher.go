package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	"github.com/partnerly/dispatch-backend/pkg/logger"
	"github.com/partnerly/dispatch-backend/pkg/mailer"
)

// Recipient is one email target with its rendering locale. Synthetic
// addresses are placeholders from phone-only signups and are skipped
// without counting as delivery failures.
type Recipient struct {
	Email     string
	Locale    enums.Locale
	Synthetic bool
}

// DispatchInput describes one fan-out: the same template rendered per
// recipient locale.
type DispatchInput struct {
	RequestID  uuid.UUID
	Type       enums.NotificationType
	Template   enums.NotificationTemplate
	Recipients []Recipient
	Data       TemplateData
}

// DeliveryResult is one recipient's outcome. Skipped recipients (synthetic
// addresses) carry no error and do not count as failures.
type DeliveryResult struct {
	Recipient string
	Skipped   bool
	Err       error
}

// DispatchResult aggregates per-recipient outcomes. The fan-out succeeded
// only when every non-skipped recipient delivered.
type DispatchResult struct {
	Deliveries []DeliveryResult
}

// Err combines the send failures, one entry per failed recipient. Callers
// treat it as advisory; the failed attempts are already recorded.
func (r DispatchResult) Err() error {
	var errs []error
	for _, delivery := range r.Deliveries {
		if delivery.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", delivery.Recipient, delivery.Err))
		}
	}
	return multierr.Combine(errs...)
}

// Dispatcher renders and delivers notifications best effort. Each recipient
// is attempted independently; a failed send is recorded on its notification
// row and never aborts the remaining recipients.
type Dispatcher struct {
	repo   Repository
	mailer mailer.Mailer
	logg   *logger.Logger
	now    func() time.Time
}

// NewDispatcher builds the notification dispatcher.
func NewDispatcher(repo Repository, mail mailer.Mailer, logg *logger.Logger) (*Dispatcher, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{repo: repo, mailer: mail, logg: logg, now: time.Now}, nil
}

// Dispatch fans the message out to every recipient. Send failures surface
// in the per-recipient result; the returned error covers record-keeping
// failures only.
func (d *Dispatcher) Dispatch(ctx context.Context, input DispatchInput) (DispatchResult, error) {
	var result DispatchResult
	var errs []error
	for _, recipient := range input.Recipients {
		if recipient.Email == "" {
			continue
		}
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"request_id": input.RequestID.String(),
			"template":   input.Template,
			"recipient":  recipient.Email,
		})
		if recipient.Synthetic {
			d.logg.Info(logCtx, "skipping synthetic recipient")
			result.Deliveries = append(result.Deliveries, DeliveryResult{Recipient: recipient.Email, Skipped: true})
			continue
		}
		sendErr, err := d.deliver(ctx, input, recipient)
		if err != nil {
			d.logg.Error(logCtx, "failed to record notification", err)
			errs = append(errs, err)
			continue
		}
		result.Deliveries = append(result.Deliveries, DeliveryResult{Recipient: recipient.Email, Err: sendErr})
	}
	return result, multierr.Combine(errs...)
}

// deliver renders, sends, and records one attempt. The first return value is
// the send failure, if any; the second is the record-keeping failure.
func (d *Dispatcher) deliver(ctx context.Context, input DispatchInput, recipient Recipient) (error, error) {
	locale := recipient.Locale.Or(enums.LocaleEnglish)
	subject, html, err := RenderTemplate(input.Template, locale, input.Data)
	if err != nil {
		return nil, fmt.Errorf("render %s for %s: %w", input.Template, recipient.Email, err)
	}

	row := &models.Notification{
		RequestID: input.RequestID,
		Type:      input.Type,
		Template:  input.Template,
		Recipient: recipient.Email,
		Locale:    locale,
		Subject:   subject,
	}
	sendErr := d.mailer.Send(ctx, mailer.Message{
		To:      recipient.Email,
		Subject: subject,
		HTML:    html,
		Text:    mailer.HTMLToText(html),
	})
	if sendErr != nil {
		message := sendErr.Error()
		row.Error = &message
		logCtx := d.logg.WithField(ctx, "recipient", recipient.Email)
		d.logg.Error(logCtx, "mail delivery failed", sendErr)
	} else {
		sentAt := d.now().UTC()
		row.Delivered = true
		row.SentAt = &sentAt
	}
	return sendErr, d.repo.Create(ctx, row)
}
