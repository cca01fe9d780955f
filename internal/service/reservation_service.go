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

const (
	defaultCheckInTime   = "14:00"
	defaultCheckOutTime  = "12:00"
	defaultBookingSource = "walk_in"
)

// ReservationService handles the reservation lifecycle
type ReservationService struct {
	store    Store
	invoices *InvoiceService
	audit    *audit.Writer
	events   notifier
	logger   *zap.Logger
}

// NewReservationService creates a new reservation service. Advance payments
// taken at booking are billed through invoices.
func NewReservationService(
	store Store,
	invoices *InvoiceService,
	auditWriter *audit.Writer,
	publisher EventPublisher,
) *ReservationService {
	logger := util.GetLogger()
	return &ReservationService{
		store:    store,
		invoices: invoices,
		audit:    auditWriter,
		events:   notifier{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// CreateReservationRequest represents a booking. Either RoomID or
// RoomTypeID must be set.
type CreateReservationRequest struct {
	CustomerID      int64                     `json:"customer_id" binding:"required"`
	RoomID          *int64                    `json:"room_id"`
	RoomTypeID      int64                     `json:"room_type_id"`
	CheckInDate     string                    `json:"check_in_date" binding:"required"`
	CheckOutDate    string                    `json:"check_out_date" binding:"required"`
	CheckInTime     string                    `json:"check_in_time"`
	CheckOutTime    string                    `json:"check_out_time"`
	GuestCount      int                       `json:"guest_count"`
	SpecialRequests string                    `json:"special_requests"`
	BookingSource   string                    `json:"booking_source"`
	Status          *models.ReservationStatus `json:"status"`
	TotalAmount     decimal.Decimal           `json:"total_amount"`
	AdvancePayment  decimal.Decimal           `json:"advance_payment"`
	PaymentMethod   string                    `json:"payment_method"`
	Services        []ServiceLine             `json:"services"`
}

// ServiceLine orders a catalogue add-on with a reservation
type ServiceLine struct {
	ServiceID int64 `json:"service_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

// UpdateReservationRequest carries the fields to change. Nil fields are left
// as they are. AdvancePayment may only restate the booked advance.
type UpdateReservationRequest struct {
	CheckInDate     *string                   `json:"check_in_date"`
	CheckOutDate    *string                   `json:"check_out_date"`
	CheckInTime     *string                   `json:"check_in_time"`
	CheckOutTime    *string                   `json:"check_out_time"`
	GuestCount      *int                      `json:"guest_count"`
	SpecialRequests *string                   `json:"special_requests"`
	TotalAmount     *decimal.Decimal          `json:"total_amount"`
	AdvancePayment  *decimal.Decimal          `json:"advance_payment"`
	Status          *models.ReservationStatus `json:"status"`
	Notes           string                    `json:"notes"`
}

// ReservationResult is the outcome of a reservation mutation. SideEffects
// lists the audit writes, including failed ones, which never fail the
// operation.
type ReservationResult struct {
	Reservation *models.Reservation     `json:"reservation"`
	Services    []models.ServiceRequest `json:"services,omitempty"`
	Room        *models.Room            `json:"room,omitempty"`
	Invoice     *InvoiceResult          `json:"invoice,omitempty"`
	SideEffects []audit.SideEffect      `json:"-"`
}

func (r *ReservationResult) record(effect audit.SideEffect) {
	r.SideEffects = append(r.SideEffects, effect)
}

// CreateReservation books a room or a room type. The reservation, its
// add-ons, the room status and an invoice for any advance payment are
// written in one transaction.
func (s *ReservationService) CreateReservation(ctx context.Context, actor models.Actor, req *CreateReservationRequest) (result *ReservationResult, err error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.CreateReservation",
		attribute.Int64("customer_id", req.CustomerID))
	defer func(start time.Time) {
		observe("create_reservation", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}
	r, err := s.newReservation(req)
	if err != nil {
		return nil, err
	}
	lines, err := normalizeServiceLines(req.Services)
	if err != nil {
		return nil, err
	}
	if req.AdvancePayment.IsPositive() && s.invoices == nil {
		return nil, fmt.Errorf("advance payment given but no invoice service configured")
	}

	result = &ReservationResult{Reservation: r}
	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		if r.HasRoom() {
			room, err := q.GetRoomForUpdate(ctx, *r.RoomID)
			if err != nil {
				return err
			}
			if r.RoomTypeID == 0 {
				r.RoomTypeID = room.RoomTypeID
			} else if room.RoomTypeID != r.RoomTypeID {
				return fmt.Errorf("%w: room %s is of type %d, reservation requires type %d",
					apperr.ErrRoomTypeMismatch, room.RoomNumber, room.RoomTypeID, r.RoomTypeID)
			}
			if err := s.ensureAvailable(ctx, q, room, r); err != nil {
				return err
			}
			result.Room = room
		}

		services, err := s.priceServices(ctx, q, lines)
		if err != nil {
			return err
		}
		for _, sr := range services {
			r.TotalAmount = r.TotalAmount.Add(sr.Amount)
		}
		if r.AdvancePayment.GreaterThan(r.TotalAmount) {
			return validationError("advance payment %s exceeds total %s",
				r.AdvancePayment.StringFixed(ledger.CurrencyPlaces), r.TotalAmount.StringFixed(ledger.CurrencyPlaces))
		}

		if err := q.InsertReservation(ctx, r); err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
		for i := range services {
			services[i].ReservationID = r.ID
			if err := q.InsertServiceRequest(ctx, &services[i]); err != nil {
				return fmt.Errorf("failed to create service request: %w", err)
			}
		}
		result.Services = services

		if result.Room != nil {
			status := models.RoomStatusFor(r.Status)
			if err := q.UpdateRoomStatus(ctx, result.Room.ID, status); err != nil {
				return fmt.Errorf("failed to update room status: %w", err)
			}
			result.Room.Status = status
		}

		result.record(s.audit.Record(ctx, q, audit.Entry{
			Trail:     models.TrailReservation,
			SubjectID: r.ID,
			Action:    models.ActionCreate,
			Actor:     actor,
			Next:      r,
			Notes:     r.SpecialRequests,
		}))

		if r.AdvancePayment.IsPositive() {
			invoice, err := s.invoices.open(ctx, q, actor, openInvoice{
				ReservationID: r.ID,
				Total:         r.TotalAmount,
				Paid:          r.AdvancePayment,
				PaymentMethod: req.PaymentMethod,
				Notes:         "Advance payment at booking",
				Items:         bookingItems(r, services),
			})
			if err != nil {
				return fmt.Errorf("failed to bill advance payment: %w", err)
			}
			result.Invoice = invoice
			result.SideEffects = append(result.SideEffects, invoice.SideEffects...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.ReservationsCreatedTotal.WithLabelValues(r.BookingSource).Inc()
	s.logger.Info("Reservation created",
		zap.Int64("reservation_id", r.ID),
		zap.Int64("customer_id", r.CustomerID),
		zap.String("status", r.Status.String()),
		zap.String("total_amount", r.TotalAmount.StringFixed(ledger.CurrencyPlaces)))

	s.events.reservation(ctx, reservationEvent(models.EventTypeReservationCreated, r, nil, result.Room, actor))
	if result.Invoice != nil {
		s.invoices.publishCreated(ctx, actor, result.Invoice)
	}
	return result, nil
}

func (s *ReservationService) newReservation(req *CreateReservationRequest) (*models.Reservation, error) {
	if req.CustomerID <= 0 {
		return nil, validationError("customer_id is required")
	}
	hasRoom := req.RoomID != nil && *req.RoomID > 0
	if !hasRoom && req.RoomTypeID <= 0 {
		return nil, validationError("either room_id or room_type_id is required")
	}

	checkIn, err := parseDate("check_in_date", req.CheckInDate)
	if err != nil {
		return nil, err
	}
	checkOut, err := parseDate("check_out_date", req.CheckOutDate)
	if err != nil {
		return nil, err
	}
	if !checkOut.After(checkIn) {
		return nil, validationError("check_out_date must be after check_in_date")
	}
	if req.GuestCount < 1 {
		return nil, validationError("guest_count must be at least 1")
	}

	total, advance := ledger.Round(req.TotalAmount), ledger.Round(req.AdvancePayment)
	if !total.IsPositive() {
		return nil, validationError("total_amount must be greater than zero")
	}
	if advance.IsNegative() {
		return nil, validationError("advance_payment cannot be negative")
	}

	status := models.ReservationPending
	if req.Status != nil {
		status = *req.Status
	}
	switch status {
	case models.ReservationPending, models.ReservationConfirmed:
	case models.ReservationCheckedIn:
		if !hasRoom {
			return nil, validationError("a walk-in check-in needs a room")
		}
	default:
		return nil, validationError("a reservation cannot be created as %s", status)
	}

	r := &models.Reservation{
		CustomerID:      req.CustomerID,
		RoomTypeID:      req.RoomTypeID,
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		CheckInTime:     orDefault(req.CheckInTime, defaultCheckInTime),
		CheckOutTime:    orDefault(req.CheckOutTime, defaultCheckOutTime),
		GuestCount:      req.GuestCount,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		BookingSource:   orDefault(req.BookingSource, defaultBookingSource),
		Status:          status,
		TotalAmount:     total,
		AdvancePayment:  advance,
	}
	if hasRoom {
		roomID := *req.RoomID
		r.RoomID = &roomID
	}
	return r, nil
}

func normalizeServiceLines(lines []ServiceLine) ([]ServiceLine, error) {
	merged := make(map[int64]int, len(lines))
	var order []int64
	for _, l := range lines {
		if l.ServiceID <= 0 {
			return nil, validationError("service_id is required for every service")
		}
		qty := l.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return nil, validationError("quantity of service %d cannot be negative", l.ServiceID)
		}
		if _, seen := merged[l.ServiceID]; !seen {
			order = append(order, l.ServiceID)
		}
		merged[l.ServiceID] += qty
	}

	out := make([]ServiceLine, 0, len(order))
	for _, id := range order {
		out = append(out, ServiceLine{ServiceID: id, Quantity: merged[id]})
	}
	return out, nil
}

// priceServices prices add-ons from the catalogue.
func (s *ReservationService) priceServices(ctx context.Context, q store.Queries, lines []ServiceLine) ([]models.ServiceRequest, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ServiceID
	}
	catalogue, err := q.GetServicesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[int64]decimal.Decimal, len(catalogue))
	for _, svc := range catalogue {
		prices[svc.ID] = svc.Price
	}

	requests := make([]models.ServiceRequest, 0, len(lines))
	for _, l := range lines {
		price, ok := prices[l.ServiceID]
		if !ok {
			return nil, validationError("service %d does not exist", l.ServiceID)
		}
		requests = append(requests, models.ServiceRequest{
			ServiceID: l.ServiceID,
			Quantity:  l.Quantity,
			UnitPrice: price,
			Amount:    ledger.Round(price.Mul(decimal.NewFromInt(int64(l.Quantity)))),
		})
	}
	return requests, nil
}

// bookingItems itemizes an advance-payment invoice as the room charge plus
// one line per add-on.
func bookingItems(r *models.Reservation, services []models.ServiceRequest) []models.InvoiceItem {
	roomCharge := r.TotalAmount
	items := make([]models.InvoiceItem, 0, len(services)+1)
	for _, sr := range services {
		roomCharge = roomCharge.Sub(sr.Amount)
	}
	items = append(items, models.InvoiceItem{
		Description: fmt.Sprintf("Room charge, %d night(s)", nights(r)),
		Quantity:    1,
		UnitPrice:   roomCharge,
		Amount:      roomCharge,
	})
	for _, sr := range services {
		items = append(items, models.InvoiceItem{
			Description: fmt.Sprintf("Service #%d", sr.ServiceID),
			Quantity:    sr.Quantity,
			UnitPrice:   sr.UnitPrice,
			Amount:      sr.Amount,
		})
	}
	return items
}

func nights(r *models.Reservation) int {
	return int(r.CheckOutDate.Sub(r.CheckInDate).Hours() / 24)
}

// ensureAvailable rejects r when another Confirmed or CheckedIn reservation
// holds room on an overlapping night. The room row must already be locked.
func (s *ReservationService) ensureAvailable(ctx context.Context, q store.Queries, room *models.Room, r *models.Reservation) error {
	taken, err := q.HasOverlappingReservation(ctx, room.ID, r.CheckInDate, r.CheckOutDate, r.ID)
	if err != nil {
		return fmt.Errorf("failed to check room availability: %w", err)
	}
	if taken {
		return fmt.Errorf("%w: room %s is booked between %s and %s",
			apperr.ErrRoomUnavailable, room.RoomNumber,
			r.CheckInDate.Format(dateLayout), r.CheckOutDate.Format(dateLayout))
	}
	return nil
}

// UpdateReservation applies the supplied fields. A status change goes
// through the same path as ChangeStatus, inside the same transaction.
func (s *ReservationService) UpdateReservation(ctx context.Context, actor models.Actor, id int64, req *UpdateReservationRequest) (result *ReservationResult, err error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.UpdateReservation", attribute.Int64("reservation_id", id))
	defer func(start time.Time) {
		observe("update_reservation", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}

	var change *statusChange
	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		r, err := q.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		result = &ReservationResult{Reservation: r}
		before := *r

		datesChanged, err := applyUpdate(r, req)
		if err != nil {
			return err
		}
		fieldsChanged := !sameFields(&before, r)

		if fieldsChanged {
			if before.Status.Terminal() {
				return fmt.Errorf("%w: a %s reservation cannot be edited", apperr.ErrConflict, before.Status)
			}
			if !r.TotalAmount.Equal(before.TotalAmount) {
				if _, err := q.GetInvoiceByReservationID(ctx, id); err == nil {
					return fmt.Errorf("%w: total of an invoiced reservation cannot change", apperr.ErrConflict)
				} else if !errors.Is(err, apperr.ErrNotFound) {
					return err
				}
			}
		}

		if req.Status != nil && *req.Status != before.Status {
			if fieldsChanged {
				result.record(s.recordUpdate(ctx, q, actor, &before, r, req.Notes))
			}
			change, err = s.changeStatus(ctx, q, actor, r, *req.Status, req.Notes)
			if err != nil {
				return err
			}
			result.Room = change.room
			result.record(change.effect)
			return nil
		}

		if !fieldsChanged {
			return nil
		}
		if datesChanged && r.HasRoom() {
			room, err := q.GetRoomForUpdate(ctx, *r.RoomID)
			if err != nil {
				return err
			}
			if err := s.ensureAvailable(ctx, q, room, r); err != nil {
				return err
			}
		}
		if err := q.UpdateReservation(ctx, r); err != nil {
			return fmt.Errorf("failed to update reservation: %w", err)
		}
		result.record(s.recordUpdate(ctx, q, actor, &before, r, req.Notes))
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := result.Reservation
	s.logger.Info("Reservation updated", zap.Int64("reservation_id", r.ID))
	if change != nil {
		s.publishStatusChange(ctx, actor, r, change)
	} else {
		s.events.reservation(ctx, reservationEvent(models.EventTypeReservationUpdated, r, nil, nil, actor))
	}
	return result, nil
}

func (s *ReservationService) recordUpdate(ctx context.Context, q store.Queries, actor models.Actor, before, after *models.Reservation, notes string) audit.SideEffect {
	return s.audit.Record(ctx, q, audit.Entry{
		Trail:     models.TrailReservation,
		SubjectID: after.ID,
		Action:    models.ActionUpdate,
		Actor:     actor,
		Previous:  before,
		Next:      after,
		Notes:     notes,
	})
}

// applyUpdate copies the supplied fields onto r and validates the result.
// It reports whether the stay dates moved.
func applyUpdate(r *models.Reservation, req *UpdateReservationRequest) (bool, error) {
	datesChanged := false
	if req.CheckInDate != nil {
		d, err := parseDate("check_in_date", *req.CheckInDate)
		if err != nil {
			return false, err
		}
		datesChanged = datesChanged || !d.Equal(r.CheckInDate)
		r.CheckInDate = d
	}
	if req.CheckOutDate != nil {
		d, err := parseDate("check_out_date", *req.CheckOutDate)
		if err != nil {
			return false, err
		}
		datesChanged = datesChanged || !d.Equal(r.CheckOutDate)
		r.CheckOutDate = d
	}
	if !r.CheckOutDate.After(r.CheckInDate) {
		return false, validationError("check_out_date must be after check_in_date")
	}
	if req.CheckInTime != nil {
		r.CheckInTime = *req.CheckInTime
	}
	if req.CheckOutTime != nil {
		r.CheckOutTime = *req.CheckOutTime
	}
	if req.GuestCount != nil {
		if *req.GuestCount < 1 {
			return false, validationError("guest_count must be at least 1")
		}
		r.GuestCount = *req.GuestCount
	}
	if req.SpecialRequests != nil {
		r.SpecialRequests = strings.TrimSpace(*req.SpecialRequests)
	}
	if req.TotalAmount != nil {
		r.TotalAmount = ledger.Round(*req.TotalAmount)
	}
	// The advance is booked as a payment at creation. Later money goes
	// through the invoice.
	if req.AdvancePayment != nil && !ledger.Round(*req.AdvancePayment).Equal(r.AdvancePayment) {
		return false, validationError("advance_payment cannot be changed; record a payment against the invoice")
	}
	if req.TotalAmount != nil {
		if err := ledger.ValidateOpening(r.TotalAmount, r.AdvancePayment); err != nil {
			return false, err
		}
	}
	return datesChanged, nil
}

func sameFields(a, b *models.Reservation) bool {
	return a.CheckInDate.Equal(b.CheckInDate) &&
		a.CheckOutDate.Equal(b.CheckOutDate) &&
		a.CheckInTime == b.CheckInTime &&
		a.CheckOutTime == b.CheckOutTime &&
		a.GuestCount == b.GuestCount &&
		a.SpecialRequests == b.SpecialRequests &&
		a.TotalAmount.Equal(b.TotalAmount) &&
		a.AdvancePayment.Equal(b.AdvancePayment)
}

// statusChange describes a committed transition.
type statusChange struct {
	from   models.ReservationStatus
	to     models.ReservationStatus
	room   *models.Room
	effect audit.SideEffect
}

// ChangeStatus moves a reservation along the status table and re-derives the
// status of its room.
func (s *ReservationService) ChangeStatus(ctx context.Context, actor models.Actor, id int64, to models.ReservationStatus, notes string) (result *ReservationResult, err error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.ChangeStatus",
		attribute.Int64("reservation_id", id),
		attribute.String("to", to.String()))
	defer func(start time.Time) {
		observe("change_status", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}

	var change *statusChange
	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		r, err := q.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		change, err = s.changeStatus(ctx, q, actor, r, to, notes)
		if err != nil {
			return err
		}
		result = &ReservationResult{Reservation: r, Room: change.room}
		result.record(change.effect)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishStatusChange(ctx, actor, result.Reservation, change)
	return result, nil
}

// changeStatus validates and applies a transition to r on q, writing every
// other pending field of r along with it.
func (s *ReservationService) changeStatus(ctx context.Context, q store.Queries, actor models.Actor, r *models.Reservation, to models.ReservationStatus, notes string) (*statusChange, error) {
	from := r.Status
	if err := models.ValidateTransition(from, to); err != nil {
		return nil, err
	}
	if to == models.ReservationCheckedIn && !r.HasRoom() {
		return nil, fmt.Errorf("%w: assign a room before checking in reservation %d", apperr.ErrConflict, r.ID)
	}

	var room *models.Room
	if r.HasRoom() {
		var err error
		room, err = q.GetRoomForUpdate(ctx, *r.RoomID)
		if err != nil {
			return nil, err
		}
		if to.Active() {
			if err := s.ensureAvailable(ctx, q, room, r); err != nil {
				return nil, err
			}
		}
	}

	r.Status = to
	if err := q.UpdateReservation(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to update reservation status: %w", err)
	}

	previous := map[string]interface{}{"status": from}
	next := map[string]interface{}{"status": to}
	if room != nil {
		roomStatus := models.RoomStatusFor(to)
		if err := q.UpdateRoomStatus(ctx, room.ID, roomStatus); err != nil {
			return nil, fmt.Errorf("failed to update room status: %w", err)
		}
		previous["room_status"] = room.Status
		next["room_status"] = roomStatus
		room.Status = roomStatus
	}

	effect := s.audit.Record(ctx, q, audit.Entry{
		Trail:     models.TrailReservation,
		SubjectID: r.ID,
		Action:    transitionAction(to),
		Actor:     actor,
		Previous:  previous,
		Next:      next,
		Notes:     notes,
	})
	return &statusChange{from: from, to: to, room: room, effect: effect}, nil
}

func transitionAction(to models.ReservationStatus) string {
	switch to {
	case models.ReservationCheckedIn:
		return models.ActionCheckIn
	case models.ReservationCheckedOut:
		return models.ActionCheckOut
	default:
		return models.ActionStatusChange
	}
}

func (s *ReservationService) publishStatusChange(ctx context.Context, actor models.Actor, r *models.Reservation, change *statusChange) {
	util.ReservationTransitionsTotal.WithLabelValues(change.from.String(), change.to.String()).Inc()
	s.logger.Info("Reservation status changed",
		zap.Int64("reservation_id", r.ID),
		zap.String("from", change.from.String()),
		zap.String("to", change.to.String()))
	s.events.reservation(ctx, reservationEvent(models.EventTypeReservationStatusChanged, r, &change.from, change.room, actor))
}

// AssignRoom puts a specific room on a reservation that was booked by room
// type.
func (s *ReservationService) AssignRoom(ctx context.Context, actor models.Actor, reservationID, roomID int64) (result *ReservationResult, err error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.AssignRoom",
		attribute.Int64("reservation_id", reservationID),
		attribute.Int64("room_id", roomID))
	defer func(start time.Time) {
		observe("assign_room", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}
	if roomID <= 0 {
		return nil, validationError("room_id is required")
	}

	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		r, err := q.GetReservationForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if r.HasRoom() {
			return fmt.Errorf("%w: reservation %d already has room %d", apperr.ErrConflict, r.ID, *r.RoomID)
		}
		if r.Status != models.ReservationPending && r.Status != models.ReservationConfirmed {
			return fmt.Errorf("%w: cannot assign a room to a %s reservation", apperr.ErrConflict, r.Status)
		}

		room, err := q.GetRoomForUpdate(ctx, roomID)
		if err != nil {
			return err
		}
		if room.RoomTypeID != r.RoomTypeID {
			return fmt.Errorf("%w: room %s is of type %d, reservation requires type %d",
				apperr.ErrRoomTypeMismatch, room.RoomNumber, room.RoomTypeID, r.RoomTypeID)
		}
		if err := s.ensureAvailable(ctx, q, room, r); err != nil {
			return err
		}

		r.RoomID = &room.ID
		if err := q.UpdateReservation(ctx, r); err != nil {
			return fmt.Errorf("failed to assign room: %w", err)
		}
		previousRoomStatus := room.Status
		room.Status = models.RoomStatusFor(r.Status)
		if err := q.UpdateRoomStatus(ctx, room.ID, room.Status); err != nil {
			return fmt.Errorf("failed to update room status: %w", err)
		}

		result = &ReservationResult{Reservation: r, Room: room}
		result.record(s.audit.Record(ctx, q, audit.Entry{
			Trail:     models.TrailReservation,
			SubjectID: r.ID,
			Action:    models.ActionRoomAssigned,
			Actor:     actor,
			Previous:  map[string]interface{}{"room_id": nil, "room_status": previousRoomStatus},
			Next: map[string]interface{}{
				"room_id":     room.ID,
				"room_number": room.RoomNumber,
				"room_status": room.Status,
			},
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.RoomAssignmentsTotal.Inc()
	s.logger.Info("Room assigned",
		zap.Int64("reservation_id", reservationID),
		zap.Int64("room_id", roomID))
	s.events.reservation(ctx, reservationEvent(models.EventTypeRoomAssigned, result.Reservation, nil, result.Room, actor))
	return result, nil
}

// DeleteReservation removes a Pending or Cancelled reservation and its
// add-ons. The audit entry is written first and outlives the row.
func (s *ReservationService) DeleteReservation(ctx context.Context, actor models.Actor, id int64) (result *ReservationResult, err error) {
	ctx, span := util.StartSpan(ctx, "ReservationService.DeleteReservation", attribute.Int64("reservation_id", id))
	defer func(start time.Time) {
		observe("delete_reservation", start, err)
		util.EndSpan(span, err)
	}(time.Now())

	if err := authorize(actor); err != nil {
		return nil, err
	}

	err = s.store.RunInTx(ctx, func(q store.Queries) error {
		r, err := q.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != models.ReservationPending && r.Status != models.ReservationCancelled {
			return fmt.Errorf("%w: cannot delete a %s reservation", apperr.ErrConflict, r.Status)
		}
		if inv, err := q.GetInvoiceByReservationID(ctx, id); err == nil {
			return fmt.Errorf("%w: reservation is billed on invoice %s", apperr.ErrConflict, inv.InvoiceNumber)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		result = &ReservationResult{Reservation: r}
		result.record(s.audit.Record(ctx, q, audit.Entry{
			Trail:     models.TrailReservation,
			SubjectID: r.ID,
			Action:    models.ActionDelete,
			Actor:     actor,
			Previous:  r,
		}))

		if err := q.DeleteReservation(ctx, id); err != nil {
			return fmt.Errorf("failed to delete reservation: %w", err)
		}

		// A pending hold is the only thing keeping its room Reserved.
		if r.Status == models.ReservationPending && r.HasRoom() {
			room, err := q.GetRoomForUpdate(ctx, *r.RoomID)
			if err != nil {
				return err
			}
			if room.Status == models.RoomReserved {
				room.Status = models.RoomStatusFor(models.ReservationCancelled)
				if err := q.UpdateRoomStatus(ctx, room.ID, room.Status); err != nil {
					return fmt.Errorf("failed to release room: %w", err)
				}
				result.Room = room
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.ReservationsDeletedTotal.Inc()
	s.logger.Info("Reservation deleted", zap.Int64("reservation_id", id))
	s.events.reservation(ctx, reservationEvent(models.EventTypeReservationDeleted, result.Reservation, nil, result.Room, actor))
	return result, nil
}

// GetReservation retrieves a reservation with its add-ons
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, []models.ServiceRequest, error) {
	q := s.store.Queries()
	r, err := q.GetReservation(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	services, err := q.GetServiceRequests(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return r, services, nil
}

// ListReservations returns one page of reservations and the total match count
func (s *ReservationService) ListReservations(ctx context.Context, filters models.ReservationFilters) ([]models.Reservation, int, error) {
	return s.store.Queries().ListReservations(ctx, filters)
}

// ReservationLogs returns the activity trail of a reservation, including
// for deleted reservations.
func (s *ReservationService) ReservationLogs(ctx context.Context, id int64) ([]models.AuditLogEntry, error) {
	return s.store.Queries().ListAuditEntries(ctx, models.TrailReservation, id)
}

func reservationEvent(eventType string, r *models.Reservation, previous *models.ReservationStatus, room *models.Room, actor models.Actor) *models.ReservationEvent {
	event := &models.ReservationEvent{
		BaseEvent:      newBaseEvent(eventType),
		ReservationID:  r.ID,
		RoomID:         r.RoomID,
		PreviousStatus: previous,
		Status:         r.Status,
		ActorID:        actor.UserID,
	}
	if room != nil {
		status := room.Status
		event.RoomID = &room.ID
		event.RoomStatus = &status
	}
	return event
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
