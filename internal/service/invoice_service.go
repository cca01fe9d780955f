package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/audit"
	"frontdesk-service/internal/ledger"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/store"
	"frontdesk-service/internal/util"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultPaymentMethod = "cash"

// InvoiceService handles invoices and payments
type InvoiceService struct {
	store          Store
	audit          *audit.Writer
	numbers        *InvoiceNumberer
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	events         notifier
	logger         *zap.Logger
	now            func() time.Time
}

// NewInvoiceService creates a new invoice service. idempotency and
// publisher may be nil.
func NewInvoiceService(
	store Store,
	auditWriter *audit.Writer,
	numbers *InvoiceNumberer,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
	publisher EventPublisher,
) *InvoiceService {
	logger := util.GetLogger()
	return &InvoiceService{
		store:          store,
		audit:          auditWriter,
		numbers:        numbers,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		events:         notifier{publisher: publisher, logger: logger},
		logger:         logger,
		now:            time.Now,
	}
}

// CreateInvoiceRequest represents a request to bill a reservation
type CreateInvoiceRequest struct {
	ReservationID   int64           `json:"reservation_id" binding:"required"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PaidAmount      decimal.Decimal `json:"paid_amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	DueDate         string          `json:"due_date"`
	Notes           string          `json:"notes"`
}

// RecordPaymentRequest represents a payment against an invoice
type RecordPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"method" binding:"required"`
	PaymentDate     string          `json:"payment_date"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	IdempotencyKey  string          `json:"-"`
}

// UpdateInvoiceRequest holds the invoice fields that may be edited. A
// non-nil empty DueDate clears the due date.
type UpdateInvoiceRequest struct {
	DueDate       *string               `json:"due_date"`
	Notes         *string               `json:"notes"`
	PaymentStatus *models.PaymentStatus `json:"payment_status"`
}

// InvoiceResult is the outcome of an invoice mutation. SideEffects lists
// the audit writes, including failed ones, which never fail the operation.
type InvoiceResult struct {
	Invoice     *models.Invoice      `json:"invoice"`
	Items       []models.InvoiceItem `json:"items,omitempty"`
	Payment     *models.Payment      `json:"payment,omitempty"`
	Balance     decimal.Decimal      `json:"balance"`
	SideEffects []audit.SideEffect   `json:"-"`
}

// PaymentResult is the outcome of RecordPayment
type PaymentResult struct {
	Payment       *models.Payment      `json:"payment"`
	InvoiceID     int64                `json:"invoice_id"`
	NewBalance    decimal.Decimal      `json:"new_balance"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	SideEffects   []audit.SideEffect   `json:"-"`
}

// InvoiceDetails is an invoice with its lines and payments
type InvoiceDetails struct {
	Invoice  *models.Invoice      `json:"invoice"`
	Items    []models.InvoiceItem `json:"items"`
	Payments []models.Payment     `json:"payments"`
	Balance  decimal.Decimal      `json:"balance"`
}

// openInvoice describes an invoice to create inside a running transaction.
type openInvoice struct {
	ReservationID   int64
	Total           decimal.Decimal
	Paid            decimal.Decimal
	PaymentMethod   string
	ReferenceNumber string
	DueDate         *time.Time
	Notes           string
	Items           []models.InvoiceItem
}

// CreateInvoice bills a reservation. A reservation has at most one invoice.
func (s *InvoiceService) CreateInvoice(ctx context.Context, actor models.Actor, req *CreateInvoiceRequest) (result *InvoiceResult, err error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.CreateInvoice",
		attribute.Int64("reservation_id", req.ReservationID))
	defer func(start time.Time) {
		observe("create_invoice", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}
	if req.ReservationID <= 0 {
		return nil, validationError("reservation_id is required")
	}
	if err := ledger.ValidateOpening(req.TotalAmount, req.PaidAmount); err != nil {
		return nil, err
	}
	dueDate, err := optionalDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		if _, err := q.GetReservationForUpdate(ctx, req.ReservationID); err != nil {
			return err
		}

		existing, err := q.GetInvoiceByReservationID(ctx, req.ReservationID)
		if err == nil {
			return fmt.Errorf("%w: reservation %d already has invoice %s",
				apperr.ErrConflict, req.ReservationID, existing.InvoiceNumber)
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		result, err = s.open(ctx, q, actor, openInvoice{
			ReservationID:   req.ReservationID,
			Total:           req.TotalAmount,
			Paid:            req.PaidAmount,
			PaymentMethod:   req.PaymentMethod,
			ReferenceNumber: req.ReferenceNumber,
			DueDate:         dueDate,
			Notes:           req.Notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created",
		zap.Int64("invoice_id", result.Invoice.ID),
		zap.String("invoice_number", result.Invoice.InvoiceNumber),
		zap.Int64("reservation_id", result.Invoice.ReservationID))
	s.publishCreated(ctx, actor, result)
	return result, nil
}

// open creates an invoice, its lines and its opening payment on q. Without
// explicit items a single line equal to the total is written.
func (s *InvoiceService) open(ctx context.Context, q store.Queries, actor models.Actor, in openInvoice) (*InvoiceResult, error) {
	total, paid := ledger.Round(in.Total), ledger.Round(in.Paid)
	if err := ledger.ValidateOpening(total, paid); err != nil {
		return nil, err
	}

	inv := &models.Invoice{
		ReservationID: in.ReservationID,
		TotalAmount:   total,
		PaidAmount:    paid,
		PaymentStatus: ledger.ComputeStatus(total, paid),
		DueDate:       in.DueDate,
		Notes:         in.Notes,
	}
	if err := s.numbers.insert(ctx, q, inv); err != nil {
		return nil, err
	}

	items := in.Items
	if len(items) == 0 {
		items = []models.InvoiceItem{{
			Description: fmt.Sprintf("Reservation #%d", in.ReservationID),
			Quantity:    1,
			UnitPrice:   total,
			Amount:      total,
		}}
	}
	for i := range items {
		items[i].InvoiceID = inv.ID
		if err := q.InsertInvoiceItem(ctx, &items[i]); err != nil {
			return nil, fmt.Errorf("failed to create invoice item: %w", err)
		}
	}

	result := &InvoiceResult{
		Invoice: inv,
		Items:   items,
		Balance: ledger.DisplayBalance(total, paid),
	}

	if paid.IsPositive() {
		method := strings.TrimSpace(in.PaymentMethod)
		if method == "" {
			method = defaultPaymentMethod
		}
		payment := &models.Payment{
			InvoiceID:       inv.ID,
			Amount:          paid,
			Method:          method,
			PaymentDate:     s.now(),
			ReferenceNumber: in.ReferenceNumber,
			Notes:           "Payment recorded with invoice " + inv.InvoiceNumber,
		}
		if err := q.InsertPayment(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to record opening payment: %w", err)
		}
		result.Payment = payment
	}

	result.SideEffects = append(result.SideEffects, s.audit.Record(ctx, q, audit.Entry{
		Trail:     models.TrailPayment,
		SubjectID: inv.ID,
		Action:    models.ActionCreateInvoice,
		Actor:     actor,
		Next: map[string]interface{}{
			"invoice_number": inv.InvoiceNumber,
			"reservation_id": inv.ReservationID,
			"total_amount":   inv.TotalAmount,
			"paid_amount":    inv.PaidAmount,
			"payment_status": inv.PaymentStatus,
		},
		Notes: in.Notes,
	}))
	return result, nil
}

func (s *InvoiceService) publishCreated(ctx context.Context, actor models.Actor, result *InvoiceResult) {
	util.InvoicesCreatedTotal.Inc()
	if p := result.Payment; p != nil {
		util.PaymentsRecordedTotal.WithLabelValues(p.Method).Inc()
		util.PaymentAmountTotal.Add(p.Amount.InexactFloat64())
	}

	inv := result.Invoice
	event := &models.InvoiceEvent{
		BaseEvent:     newBaseEvent(models.EventTypeInvoiceCreated),
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ReservationID: inv.ReservationID,
		Amount:        inv.PaidAmount,
		Balance:       result.Balance,
		PaymentStatus: inv.PaymentStatus,
		ActorID:       actor.UserID,
	}
	if result.Payment != nil {
		event.PaymentID = &result.Payment.ID
	}
	s.events.invoice(ctx, event)
}

// RecordPayment applies a payment to an invoice. The payment, the invoice
// balance and the audit entry are written in one transaction.
func (s *InvoiceService) RecordPayment(ctx context.Context, actor models.Actor, invoiceID int64, req *RecordPaymentRequest) (result *PaymentResult, err error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.RecordPayment",
		attribute.Int64("invoice_id", invoiceID))
	defer func(start time.Time) {
		observe("record_payment", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return nil, validationError("payment method is required")
	}
	amount := ledger.Round(req.Amount)
	if !amount.IsPositive() {
		return nil, validationError("payment amount must be greater than zero")
	}
	paymentDate := s.now()
	if req.PaymentDate != "" {
		if paymentDate, err = parseDate("payment_date", req.PaymentDate); err != nil {
			return nil, err
		}
	}

	release, err := s.claim(ctx, invoiceID, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	var previous models.PaymentStatus
	var inv *models.Invoice
	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		var err error
		inv, err = q.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		previous = inv.PaymentStatus
		previousPaid := inv.PaidAmount

		newPaid, status, err := ledger.ApplyPayment(inv, amount)
		if err != nil {
			return err
		}

		payment := &models.Payment{
			InvoiceID:       inv.ID,
			Amount:          amount,
			Method:          method,
			PaymentDate:     paymentDate,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
		}
		if err := q.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}

		inv.PaidAmount = newPaid
		inv.PaymentStatus = status
		if err := q.UpdateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invoice balance: %w", err)
		}

		result = &PaymentResult{
			Payment:       payment,
			InvoiceID:     inv.ID,
			NewBalance:    ledger.DisplayBalance(inv.TotalAmount, newPaid),
			PaymentStatus: status,
		}
		result.SideEffects = append(result.SideEffects, s.audit.Record(ctx, q, audit.Entry{
			Trail:     models.TrailPayment,
			SubjectID: inv.ID,
			Action:    models.ActionRecordPayment,
			Actor:     actor,
			Previous:  map[string]interface{}{"paid_amount": previousPaid, "payment_status": previous},
			Next: map[string]interface{}{
				"payment_id":     payment.ID,
				"amount":         amount,
				"method":         method,
				"paid_amount":    newPaid,
				"payment_status": status,
			},
			Notes: req.Notes,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.PaymentsRecordedTotal.WithLabelValues(method).Inc()
	util.PaymentAmountTotal.Add(amount.InexactFloat64())
	s.logger.Info("Payment recorded",
		zap.Int64("invoice_id", invoiceID),
		zap.Int64("payment_id", result.Payment.ID),
		zap.String("amount", amount.StringFixed(ledger.CurrencyPlaces)),
		zap.String("payment_status", string(result.PaymentStatus)))

	s.events.invoice(ctx, &models.InvoiceEvent{
		BaseEvent:             newBaseEvent(models.EventTypePaymentRecorded),
		InvoiceID:             inv.ID,
		InvoiceNumber:         inv.InvoiceNumber,
		ReservationID:         inv.ReservationID,
		PaymentID:             &result.Payment.ID,
		Amount:                amount,
		Balance:               result.NewBalance,
		PreviousPaymentStatus: previous,
		PaymentStatus:         result.PaymentStatus,
		ActorID:               actor.UserID,
	})
	return result, nil
}

// claim reserves an idempotency key for a payment. The returned func
// releases it again. Without a key or a key store nothing is claimed, and
// an unreachable key store lets the payment through.
func (s *InvoiceService) claim(ctx context.Context, invoiceID int64, key string) (func(), error) {
	noop := func() {}
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil {
		return noop, nil
	}

	scoped := fmt.Sprintf("payment:%d:%s", invoiceID, key)
	claimed, err := s.idempotency.Claim(ctx, scoped, s.idempotencyTTL)
	if err != nil {
		s.logger.Warn("Idempotency store unavailable, accepting payment",
			zap.Int64("invoice_id", invoiceID),
			zap.Error(err))
		return noop, nil
	}
	if !claimed {
		s.logger.Info("Duplicate payment submission detected",
			zap.Int64("invoice_id", invoiceID),
			zap.String("idempotency_key", key))
		return nil, fmt.Errorf("%w: payment with idempotency key %q was already submitted", apperr.ErrConflict, key)
	}

	return func() {
		if err := s.idempotency.Release(context.Background(), scoped); err != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", scoped), zap.Error(err))
		}
	}, nil
}

// UpdateInvoice edits due date, notes and payment status. A payment status
// set here is a manual override and is recorded as such in the audit trail.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, actor models.Actor, id int64, req *UpdateInvoiceRequest) (result *InvoiceResult, err error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.UpdateInvoice", attribute.Int64("invoice_id", id))
	defer func(start time.Time) {
		observe("update_invoice", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return nil, validationError("unknown payment status %q", *req.PaymentStatus)
	}
	var dueDate *time.Time
	if req.DueDate != nil {
		if dueDate, err = optionalDate("due_date", *req.DueDate); err != nil {
			return nil, err
		}
	}

	var previous models.PaymentStatus
	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		inv, err := q.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		before := invoiceSnapshot(inv)
		previous = inv.PaymentStatus

		if req.DueDate != nil {
			inv.DueDate = dueDate
		}
		if req.Notes != nil {
			inv.Notes = *req.Notes
		}
		var notes []string
		if req.PaymentStatus != nil && *req.PaymentStatus != inv.PaymentStatus {
			notes = append(notes, fmt.Sprintf("payment status manually changed from %s to %s", inv.PaymentStatus, *req.PaymentStatus))
			inv.PaymentStatus = *req.PaymentStatus
		}

		if err := q.UpdateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}

		result = &InvoiceResult{
			Invoice: inv,
			Balance: ledger.DisplayBalance(inv.TotalAmount, inv.PaidAmount),
		}
		result.SideEffects = append(result.SideEffects, s.audit.Record(ctx, q, audit.Entry{
			Trail:     models.TrailPayment,
			SubjectID: inv.ID,
			Action:    models.ActionUpdateInvoice,
			Actor:     actor,
			Previous:  before,
			Next:      invoiceSnapshot(inv),
			Notes:     strings.Join(notes, "; "),
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	inv := result.Invoice
	if previous != inv.PaymentStatus {
		s.logger.Warn("Invoice payment status overridden",
			zap.Int64("invoice_id", inv.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(inv.PaymentStatus)),
			zap.Int64("actor_id", actor.UserID))
	}
	s.events.invoice(ctx, &models.InvoiceEvent{
		BaseEvent:             newBaseEvent(models.EventTypeInvoiceUpdated),
		InvoiceID:             inv.ID,
		InvoiceNumber:         inv.InvoiceNumber,
		ReservationID:         inv.ReservationID,
		Balance:               result.Balance,
		PreviousPaymentStatus: previous,
		PaymentStatus:         inv.PaymentStatus,
		ActorID:               actor.UserID,
	})
	return result, nil
}

// DeleteInvoice removes an invoice that has no payments, along with its
// lines. The audit entry is written before the rows go.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, actor models.Actor, id int64) (result *InvoiceResult, err error) {
	ctx, span := util.StartSpan(ctx, "InvoiceService.DeleteInvoice", attribute.Int64("invoice_id", id))
	defer func(start time.Time) {
		observe("delete_invoice", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		inv, err := q.GetInvoiceForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.PaymentStatus == models.PaymentPaid || inv.PaidAmount.IsPositive() {
			return fmt.Errorf("%w: cannot delete invoice %s with recorded payments", apperr.ErrConflict, inv.InvoiceNumber)
		}

		items, err := q.GetInvoiceItems(ctx, id)
		if err != nil {
			return err
		}

		result = &InvoiceResult{Invoice: inv, Items: items}
		result.SideEffects = append(result.SideEffects, s.audit.Record(ctx, q, audit.Entry{
			Trail:     models.TrailPayment,
			SubjectID: inv.ID,
			Action:    models.ActionDeleteInvoice,
			Actor:     actor,
			Previous:  map[string]interface{}{"invoice": invoiceSnapshot(inv), "items": items},
		}))

		return q.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice deleted",
		zap.Int64("invoice_id", id),
		zap.String("invoice_number", result.Invoice.InvoiceNumber))
	s.events.invoice(ctx, &models.InvoiceEvent{
		BaseEvent:     newBaseEvent(models.EventTypeInvoiceDeleted),
		InvoiceID:     id,
		InvoiceNumber: result.Invoice.InvoiceNumber,
		ReservationID: result.Invoice.ReservationID,
		PaymentStatus: result.Invoice.PaymentStatus,
		ActorID:       actor.UserID,
	})
	return result, nil
}

// GetInvoice retrieves an invoice with its items and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*InvoiceDetails, error) {
	inv, err := s.store.Queries().GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, inv)
}

// GetInvoiceByReservation retrieves the invoice billed for a reservation
func (s *InvoiceService) GetInvoiceByReservation(ctx context.Context, reservationID int64) (*InvoiceDetails, error) {
	inv, err := s.store.Queries().GetInvoiceByReservationID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, inv)
}

func (s *InvoiceService) details(ctx context.Context, inv *models.Invoice) (*InvoiceDetails, error) {
	q := s.store.Queries()
	items, err := q.GetInvoiceItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	payments, err := q.GetPaymentsByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetails{
		Invoice:  inv,
		Items:    items,
		Payments: payments,
		Balance:  ledger.DisplayBalance(inv.TotalAmount, inv.PaidAmount),
	}, nil
}

// InvoiceLogs returns the payment trail of an invoice. Entries outlive
// deleted invoices.
func (s *InvoiceService) InvoiceLogs(ctx context.Context, invoiceID int64) ([]models.AuditLogEntry, error) {
	return s.store.Queries().ListAuditEntries(ctx, models.TrailPayment, invoiceID)
}

func invoiceSnapshot(inv *models.Invoice) map[string]interface{} {
	snap := map[string]interface{}{
		"invoice_number": inv.InvoiceNumber,
		"total_amount":   inv.TotalAmount,
		"paid_amount":    inv.PaidAmount,
		"payment_status": inv.PaymentStatus,
		"notes":          inv.Notes,
	}
	if inv.DueDate != nil {
		snap["due_date"] = inv.DueDate.Format(dateLayout)
	}
	return snap
}

func optionalDate(field, value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := parseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
