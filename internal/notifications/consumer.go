package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partnerly/dispatch-backend/pkg/db/models"
	"github.com/partnerly/dispatch-backend/pkg/enums"
	"github.com/partnerly/dispatch-backend/pkg/logger"
	"github.com/partnerly/dispatch-backend/pkg/outbox"
	"github.com/partnerly/dispatch-backend/pkg/outbox/idempotency"
	"github.com/partnerly/dispatch-backend/pkg/outbox/payloads"
)

const dispatchNotificationConsumer = "dispatch-notifications"

type requestReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
}

type recipientSource interface {
	SLARecipients(ctx context.Context) []string
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, input DispatchInput) (DispatchResult, error)
}

// ConsumerParams configure the notification consumer.
type ConsumerParams struct {
	Requests     requestReader
	Directory    Directory
	Settings     recipientSource
	Dispatcher   notificationDispatcher
	Subscription *pubsub.Subscriber
	Idempotency  *idempotency.Manager
	Logger       *logger.Logger
}

// Consumer watches dispatch events and fans each one out as localized mail.
type Consumer struct {
	requests     requestReader
	directory    Directory
	settings     recipientSource
	dispatcher   notificationDispatcher
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a dispatch notification consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Requests == nil {
		return nil, fmt.Errorf("request reader required")
	}
	if params.Directory == nil {
		return nil, fmt.Errorf("directory required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if params.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		requests:     params.Requests,
		directory:    params.Directory,
		settings:     params.Settings,
		dispatcher:   params.Dispatcher,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, dispatchNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handleEvent(ctx, eventType, envelope, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, dispatchNotificationConsumer, eventID)
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func (c *Consumer) handleEvent(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope, logCtx context.Context) error {
	switch eventType {
	case enums.EventRequestAssigned:
		var payload payloads.RequestAssignedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse assigned payload: %w", err)
		}
		return c.handleAssigned(ctx, payload, envelope.OccurredAt)
	case enums.EventRequestAccepted, enums.EventRequestRejected:
		var payload payloads.RequestDecisionEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse decision payload: %w", err)
		}
		return c.handleDecision(ctx, payload)
	case enums.EventRequestAdvanced:
		var payload payloads.RequestAdvancedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse advanced payload: %w", err)
		}
		return c.handleAdvanced(ctx, payload)
	case enums.EventRequestSLAExpired:
		var payload payloads.RequestSLAExpiredEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return fmt.Errorf("parse sla payload: %w", err)
		}
		return c.handleSLAExpired(ctx, payload)
	default:
		c.logg.Info(logCtx, "no notification configured for event")
		return nil
	}
}

func (c *Consumer) handleAssigned(ctx context.Context, payload payloads.RequestAssignedEvent, occurredAt time.Time) error {
	partner, err := c.directory.FindPartner(ctx, payload.PartnerID)
	if err != nil {
		return fmt.Errorf("load partner %s: %w", payload.PartnerID, err)
	}
	minutes := int(payload.SLADeadline.Sub(occurredAt).Round(time.Minute).Minutes())

	if err := c.notify(ctx, payload.RequestID, enums.NotificationTypeDispatch, enums.TemplateAssigned,
		Recipient{Email: partner.ContactEmail, Locale: partner.Locale},
		TemplateData{
			RequestNumber:  payload.RequestNumber,
			PartnerName:    partner.Name(partner.Locale),
			TimeoutMinutes: minutes,
		}); err != nil {
		return err
	}

	customer, err := c.customerForRequest(ctx, payload.RequestID)
	if err != nil {
		return err
	}
	if customer == nil {
		return nil
	}
	return c.notify(ctx, payload.RequestID, enums.NotificationTypeDispatch, enums.TemplateAssigned,
		Recipient{Email: customer.Email, Locale: customer.Locale, Synthetic: customer.SyntheticEmail},
		TemplateData{
			RequestNumber:  payload.RequestNumber,
			PartnerName:    partner.Name(customer.Locale),
			TimeoutMinutes: minutes,
		})
}

func (c *Consumer) handleDecision(ctx context.Context, payload payloads.RequestDecisionEvent) error {
	partner, err := c.directory.FindPartner(ctx, payload.PartnerID)
	if err != nil {
		return fmt.Errorf("load partner %s: %w", payload.PartnerID, err)
	}
	customer, err := c.customerForRequest(ctx, payload.RequestID)
	if err != nil {
		return err
	}
	if customer == nil {
		return nil
	}

	template := enums.TemplateAccepted
	if payload.Response == enums.AssignmentResponseRejected {
		template = enums.TemplateRejected
	}
	return c.notify(ctx, payload.RequestID, enums.NotificationTypeDispatch, template,
		Recipient{Email: customer.Email, Locale: customer.Locale, Synthetic: customer.SyntheticEmail},
		TemplateData{
			RequestNumber: payload.RequestNumber,
			PartnerName:   partner.Name(customer.Locale),
			Reason:        payload.Reason,
		})
}

func (c *Consumer) handleAdvanced(ctx context.Context, payload payloads.RequestAdvancedEvent) error {
	customer, err := c.customerForRequest(ctx, payload.RequestID)
	if err != nil {
		return err
	}
	if customer == nil {
		return nil
	}
	return c.notify(ctx, payload.RequestID, enums.NotificationTypeDispatch, enums.TemplateForStatus(payload.Status),
		Recipient{Email: customer.Email, Locale: customer.Locale, Synthetic: customer.SyntheticEmail},
		TemplateData{
			RequestNumber: payload.RequestNumber,
			Status:        string(payload.Status),
		})
}

func (c *Consumer) handleSLAExpired(ctx context.Context, payload payloads.RequestSLAExpiredEvent) error {
	partner, err := c.directory.FindPartner(ctx, payload.PartnerID)
	if err != nil {
		return fmt.Errorf("load partner %s: %w", payload.PartnerID, err)
	}

	recipients := make([]Recipient, 0, 4)
	for _, email := range c.settings.SLARecipients(ctx) {
		recipients = append(recipients, Recipient{Email: email, Locale: enums.LocaleEnglish})
	}
	recipients = append(recipients, Recipient{Email: partner.ContactEmail, Locale: partner.Locale})

	for _, recipient := range recipients {
		if err := c.notify(ctx, payload.RequestID, enums.NotificationTypeSLA, enums.TemplateSLATimeout,
			recipient,
			TemplateData{
				RequestNumber:  payload.RequestNumber,
				PartnerName:    partner.Name(recipient.Locale),
				TimeoutMinutes: payload.TimeoutMinutes,
			}); err != nil {
			return err
		}
	}
	return nil
}

// customerForRequest resolves the requesting customer. A request that was
// deleted after the event was published is not an error; the notification is
// simply dropped.
func (c *Consumer) customerForRequest(ctx context.Context, requestID uuid.UUID) (*models.Customer, error) {
	request, err := c.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}
	customer, err := c.directory.FindCustomer(ctx, request.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load customer %s: %w", request.CustomerID, err)
	}
	return customer, nil
}

// notify dispatches one message. Record-keeping errors propagate so the
// event is retried; send failures are already stored per recipient, so they
// are logged and the event is acked.
func (c *Consumer) notify(ctx context.Context, requestID uuid.UUID, typ enums.NotificationType, template enums.NotificationTemplate, recipient Recipient, data TemplateData) error {
	result, err := c.dispatcher.Dispatch(ctx, DispatchInput{
		RequestID:  requestID,
		Type:       typ,
		Template:   template,
		Recipients: []Recipient{recipient},
		Data:       data,
	})
	if err != nil {
		return err
	}
	if sendErr := result.Err(); sendErr != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"request_id": requestID.String(),
			"template":   template,
			"error":      sendErr.Error(),
		})
		c.logg.Warn(logCtx, "notification delivered partially")
	}
	return nil
}
