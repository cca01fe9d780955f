package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeReservationCreated       = "RESERVATION_CREATED"
	EventTypeReservationUpdated       = "RESERVATION_UPDATED"
	EventTypeReservationStatusChanged = "RESERVATION_STATUS_CHANGED"
	EventTypeRoomAssigned             = "ROOM_ASSIGNED"
	EventTypeReservationDeleted       = "RESERVATION_DELETED"
	EventTypeInvoiceCreated           = "INVOICE_CREATED"
	EventTypePaymentRecorded          = "PAYMENT_RECORDED"
	EventTypeInvoiceUpdated           = "INVOICE_UPDATED"
	EventTypeInvoiceDeleted           = "INVOICE_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReservationEvent is published after a reservation change commits.
// RoomStatus is set whenever the change touched a room.
type ReservationEvent struct {
	BaseEvent
	ReservationID  int64              `json:"reservation_id"`
	RoomID         *int64             `json:"room_id,omitempty"`
	PreviousStatus *ReservationStatus `json:"previous_status,omitempty"`
	Status         ReservationStatus  `json:"status"`
	RoomStatus     *RoomStatus        `json:"room_status,omitempty"`
	ActorID        int64              `json:"actor_id"`
}

// InvoiceEvent is published after an invoice or payment change commits.
type InvoiceEvent struct {
	BaseEvent
	InvoiceID             int64           `json:"invoice_id"`
	InvoiceNumber         string          `json:"invoice_number"`
	ReservationID         int64           `json:"reservation_id"`
	PaymentID             *int64          `json:"payment_id,omitempty"`
	Amount                decimal.Decimal `json:"amount"`
	Balance               decimal.Decimal `json:"balance"`
	PreviousPaymentStatus PaymentStatus   `json:"previous_payment_status,omitempty"`
	PaymentStatus         PaymentStatus   `json:"payment_status"`
	ActorID               int64           `json:"actor_id"`
}
