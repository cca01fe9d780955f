package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishReservationEvent publishes a reservation event keyed by reservation
func (ep *EventPublisher) PublishReservationEvent(ctx context.Context, event *models.ReservationEvent) error {
	key := fmt.Sprintf("reservation-%d", event.ReservationID)
	return ep.producer.PublishEvent(ctx, key, event.EventType, event)
}

// PublishInvoiceEvent publishes an invoice event keyed by invoice
func (ep *EventPublisher) PublishInvoiceEvent(ctx context.Context, event *models.InvoiceEvent) error {
	key := fmt.Sprintf("invoice-%d", event.InvoiceID)
	return ep.producer.PublishEvent(ctx, key, event.EventType, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onReservationEvent func(context.Context, *models.ReservationEvent) error
	onInvoiceEvent     func(context.Context, *models.InvoiceEvent) error
	logger             *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnReservationEvent registers a handler for reservation events
func (eh *EventHandler) OnReservationEvent(handler func(context.Context, *models.ReservationEvent) error) {
	eh.onReservationEvent = handler
}

// OnInvoiceEvent registers a handler for invoice and payment events
func (eh *EventHandler) OnInvoiceEvent(handler func(context.Context, *models.InvoiceEvent) error) {
	eh.onInvoiceEvent = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch {
	case isReservationEvent(baseEvent.EventType):
		if eh.onReservationEvent != nil {
			var event models.ReservationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal reservation event: %w", err)
			}
			return eh.onReservationEvent(ctx, &event)
		}

	case isInvoiceEvent(baseEvent.EventType):
		if eh.onInvoiceEvent != nil {
			var event models.InvoiceEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal invoice event: %w", err)
			}
			return eh.onInvoiceEvent(ctx, &event)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}

func isReservationEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "RESERVATION_") || eventType == models.EventTypeRoomAssigned
}

func isInvoiceEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "INVOICE_") || eventType == models.EventTypePaymentRecorded
}
