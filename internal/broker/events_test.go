package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"frontdesk-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestHandleMessageRoutesReservationEvents(t *testing.T) {
	roomID := int64(101)
	occupied := models.RoomOccupied
	prev := models.ReservationConfirmed

	var got *models.ReservationEvent
	eh := NewEventHandler()
	eh.OnReservationEvent(func(_ context.Context, e *models.ReservationEvent) error {
		got = e
		return nil
	})
	eh.OnInvoiceEvent(func(context.Context, *models.InvoiceEvent) error {
		t.Fatal("invoice handler must not be called")
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.ReservationEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "e-1",
			EventType: models.EventTypeReservationStatusChanged,
			Timestamp: time.Now(),
		},
		ReservationID:  12,
		RoomID:         &roomID,
		PreviousStatus: &prev,
		Status:         models.ReservationCheckedIn,
		RoomStatus:     &occupied,
	}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.ReservationID)
	assert.Equal(t, models.ReservationCheckedIn, got.Status)
	assert.Equal(t, models.RoomOccupied, *got.RoomStatus)
}

func TestHandleMessageRoutesInvoiceEvents(t *testing.T) {
	var got *models.InvoiceEvent
	eh := NewEventHandler()
	eh.OnInvoiceEvent(func(_ context.Context, e *models.InvoiceEvent) error {
		got = e
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.InvoiceEvent{
		BaseEvent:     models.BaseEvent{EventID: "e-2", EventType: models.EventTypePaymentRecorded},
		InvoiceID:     3,
		Amount:        decimal.NewFromInt(3000),
		Balance:       decimal.Zero,
		PaymentStatus: models.PaymentPaid,
	}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(3000)))
}

func TestHandleMessageIgnoresUnknownAndRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	assert.NoError(t, eh.HandleMessage(context.Background(), message(t, models.BaseEvent{EventType: "GUEST_WAVED"})))
	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")}))
}
