package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Reservation is a booking of a room, or of a room type pending assignment,
// for a guest over a date range.
type Reservation struct {
	ID              int64             `db:"id" json:"id"`
	CustomerID      int64             `db:"customer_id" json:"customer_id"`
	RoomID          *int64            `db:"room_id" json:"room_id"`
	RoomTypeID      int64             `db:"room_type_id" json:"room_type_id"`
	CheckInDate     time.Time         `db:"check_in_date" json:"check_in_date"`
	CheckOutDate    time.Time         `db:"check_out_date" json:"check_out_date"`
	CheckInTime     string            `db:"check_in_time" json:"check_in_time"`
	CheckOutTime    string            `db:"check_out_time" json:"check_out_time"`
	GuestCount      int               `db:"guest_count" json:"guest_count"`
	SpecialRequests string            `db:"special_requests" json:"special_requests,omitempty"`
	BookingSource   string            `db:"booking_source" json:"booking_source"`
	Status          ReservationStatus `db:"status" json:"status"`
	TotalAmount     decimal.Decimal   `db:"total_amount" json:"total_amount"`
	AdvancePayment  decimal.Decimal   `db:"advance_payment" json:"advance_payment"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// HasRoom reports whether a specific room has been assigned.
func (r *Reservation) HasRoom() bool {
	return r.RoomID != nil && *r.RoomID > 0
}

// Room is a physical room.
type Room struct {
	ID         int64      `db:"id" json:"id"`
	RoomNumber string     `db:"room_number" json:"room_number"`
	Floor      int        `db:"floor" json:"floor"`
	RoomTypeID int64      `db:"room_type_id" json:"room_type_id"`
	Status     RoomStatus `db:"status" json:"status"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// HotelService is a priced add-on from the service catalogue.
type HotelService struct {
	ID    int64           `db:"id" json:"id"`
	Name  string          `db:"name" json:"name"`
	Price decimal.Decimal `db:"price" json:"price"`
}

// ServiceRequest is an add-on ordered with a reservation.
type ServiceRequest struct {
	ID            int64           `db:"id" json:"id"`
	ReservationID int64           `db:"reservation_id" json:"reservation_id"`
	ServiceID     int64           `db:"service_id" json:"service_id"`
	Quantity      int             `db:"quantity" json:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Invoice is the billing record of a reservation. There is at most one per
// reservation.
type Invoice struct {
	ID            int64           `db:"id" json:"id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	ReservationID int64           `db:"reservation_id" json:"reservation_id"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount    decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	DueDate       *time.Time      `db:"due_date" json:"due_date,omitempty"`
	Notes         string          `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// InvoiceItem is a line on an invoice.
type InvoiceItem struct {
	ID          int64           `db:"id" json:"id"`
	InvoiceID   int64           `db:"invoice_id" json:"invoice_id"`
	Description string          `db:"description" json:"description"`
	Quantity    int             `db:"quantity" json:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
}

// Payment is money applied against an invoice. Payments are never updated.
type Payment struct {
	ID              int64           `db:"id" json:"id"`
	InvoiceID       int64           `db:"invoice_id" json:"invoice_id"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Method          string          `db:"method" json:"method"`
	PaymentDate     time.Time       `db:"payment_date" json:"payment_date"`
	ReferenceNumber string          `db:"reference_number" json:"reference_number,omitempty"`
	Notes           string          `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// AuditTrail selects the log table an entry belongs to.
type AuditTrail string

const (
	TrailReservation AuditTrail = "reservation"
	TrailPayment     AuditTrail = "payment"
)

// Audit action types
const (
	ActionCreate        = "create"
	ActionUpdate        = "update"
	ActionDelete        = "delete"
	ActionStatusChange  = "status_change"
	ActionCheckIn       = "check_in"
	ActionCheckOut      = "check_out"
	ActionRoomAssigned  = "room_assigned"
	ActionCreateInvoice = "create_invoice"
	ActionRecordPayment = "record_payment"
	ActionUpdateInvoice = "update_invoice"
	ActionDeleteInvoice = "delete_invoice"
)

// AuditLogEntry is an append-only record of a mutating action. It is
// observational only and never read back to rebuild state.
type AuditLogEntry struct {
	ID            int64          `db:"id" json:"id"`
	Trail         AuditTrail     `db:"-" json:"trail"`
	SubjectID     int64          `db:"subject_id" json:"subject_id"`
	ActionType    string         `db:"action_type" json:"action_type"`
	ActorID       int64          `db:"actor_id" json:"actor_id"`
	PreviousState types.JSONText `db:"previous_state" json:"previous_state,omitempty"`
	NewState      types.JSONText `db:"new_state" json:"new_state,omitempty"`
	Notes         string         `db:"notes" json:"notes,omitempty"`
	ClientIP      string         `db:"client_ip" json:"client_ip,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// Staff roles
const (
	RoleFrontDesk = "front_desk"
	RoleAdmin     = "admin"
)

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	ClientIP string `json:"client_ip"`
}

// CanMutate reports whether the actor may change front-desk state.
func (a Actor) CanMutate() bool {
	return a.UserID > 0 && (a.Role == RoleFrontDesk || a.Role == RoleAdmin)
}

// ReservationFilters narrows ListReservations.
type ReservationFilters struct {
	Status     *ReservationStatus
	RoomID     *int64
	CustomerID *int64
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
