package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/store"
	"frontdesk-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the transactional storage the managers run on.
type Store interface {
	Queries() store.Queries
	RunInTx(ctx context.Context, fn func(q store.Queries) error) error
}

// EventPublisher publishes committed changes to the event stream.
type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, event *models.ReservationEvent) error
	PublishInvoiceEvent(ctx context.Context, event *models.InvoiceEvent) error
}

// IdempotencyStore remembers client-supplied idempotency keys.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const dateLayout = "2006-01-02"

func authorize(actor models.Actor) error {
	if !actor.CanMutate() {
		return fmt.Errorf("%w: role %q may not change front-desk records", apperr.ErrForbidden, actor.Role)
	}
	return nil
}

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperr.ErrValidation, fmt.Sprintf(format, args...))
}

func parseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, validationError("%s is required", field)
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, validationError("%s must be a date formatted YYYY-MM-DD", field)
	}
	return d, nil
}

// observe records the latency of an operation and, when it failed, the
// failure kind.
func observe(operation string, start time.Time, err error) {
	util.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		util.OperationFailuresTotal.WithLabelValues(operation, string(apperr.KindOf(err))).Inc()
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// notifier publishes events after commit. A failed publish is logged and
// counted, never returned.
type notifier struct {
	publisher EventPublisher
	logger    *zap.Logger
}

func (n notifier) reservation(ctx context.Context, event *models.ReservationEvent) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.PublishReservationEvent(ctx, event); err != nil {
		util.EventPublishFailuresTotal.WithLabelValues(event.EventType).Inc()
		n.logger.Error("Failed to publish reservation event",
			zap.String("event_type", event.EventType),
			zap.Int64("reservation_id", event.ReservationID),
			zap.Error(err))
	}
}

func (n notifier) invoice(ctx context.Context, event *models.InvoiceEvent) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.PublishInvoiceEvent(ctx, event); err != nil {
		util.EventPublishFailuresTotal.WithLabelValues(event.EventType).Inc()
		n.logger.Error("Failed to publish invoice event",
			zap.String("event_type", event.EventType),
			zap.Int64("invoice_id", event.InvoiceID),
			zap.Error(err))
	}
}
