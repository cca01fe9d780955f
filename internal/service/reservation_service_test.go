package service

import (
	"context"
	"errors"
	"testing"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pathTo lists the transitions that lead from Pending to status.
var pathTo = map[models.ReservationStatus][]models.ReservationStatus{
	models.ReservationPending:    nil,
	models.ReservationConfirmed:  {models.ReservationConfirmed},
	models.ReservationCheckedIn:  {models.ReservationConfirmed, models.ReservationCheckedIn},
	models.ReservationCheckedOut: {models.ReservationConfirmed, models.ReservationCheckedIn, models.ReservationCheckedOut},
	models.ReservationCancelled:  {models.ReservationCancelled},
}

var allStatuses = []models.ReservationStatus{
	models.ReservationPending,
	models.ReservationConfirmed,
	models.ReservationCheckedIn,
	models.ReservationCheckedOut,
	models.ReservationCancelled,
}

func TestCreateReservationWithAdvancePayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.reservations.CreateReservation(ctx, frontDesk, &CreateReservationRequest{
		CustomerID:     11,
		RoomID:         roomRef(101),
		CheckInDate:    "2026-04-01",
		CheckOutDate:   "2026-04-04",
		GuestCount:     2,
		Status:         statusRef(models.ReservationConfirmed),
		TotalAmount:    dec("5000"),
		AdvancePayment: dec("2000"),
		PaymentMethod:  "card",
	})
	require.NoError(t, err)

	r := f.reservation(t, res.Reservation.ID)
	assert.Equal(t, models.ReservationConfirmed, r.Status)
	assert.Equal(t, int64(3), r.RoomTypeID, "room type is taken from the room")
	assert.Equal(t, models.RoomReserved, f.room(t, 101).Status)

	require.NotNil(t, res.Invoice)
	inv := f.invoice(t, res.Invoice.Invoice.ID)
	assert.Equal(t, "INV-2026030001", inv.InvoiceNumber)
	assert.Equal(t, models.PaymentPartial, inv.PaymentStatus)
	assert.True(t, res.Invoice.Balance.Equal(dec("3000")))

	paid, err := f.invoices.RecordPayment(ctx, frontDesk, inv.ID, &RecordPaymentRequest{Amount: dec("3000"), Method: "cash"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentStatus)
	assert.True(t, paid.NewBalance.IsZero())

	_, err = f.invoices.RecordPayment(ctx, frontDesk, inv.ID, &RecordPaymentRequest{Amount: dec("0.01"), Method: "cash"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	details, err := f.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, details.Payments, 2)
	assert.True(t, details.Invoice.PaidAmount.Equal(dec("5000")))

	assert.Equal(t, []string{models.ActionCreate}, actions(f.store.AuditEntries(models.TrailReservation)))
	assert.Equal(t, []string{models.ActionCreateInvoice, models.ActionRecordPayment},
		actions(f.store.AuditEntries(models.TrailPayment)))
	assert.Equal(t, []string{models.EventTypeInvoiceCreated, models.EventTypePaymentRecorded},
		f.events.invoiceEventTypes())
}

func TestCreateReservationPricesServices(t *testing.T) {
	f := newFixture(t)

	res, err := f.reservations.CreateReservation(context.Background(), frontDesk, &CreateReservationRequest{
		CustomerID:     11,
		RoomTypeID:     3,
		CheckInDate:    "2026-04-01",
		CheckOutDate:   "2026-04-03",
		GuestCount:     1,
		TotalAmount:    dec("4000"),
		AdvancePayment: dec("1000"),
		Services: []ServiceLine{
			{ServiceID: 1, Quantity: 2},
			{ServiceID: 2},
			{ServiceID: 1, Quantity: 1},
		},
	})
	require.NoError(t, err)

	// 4000 + 3 x 250 + 900.50
	assert.True(t, res.Reservation.TotalAmount.Equal(dec("5650.50")), res.Reservation.TotalAmount.String())
	require.Len(t, res.Services, 2)
	assert.Equal(t, 3, res.Services[0].Quantity)
	assert.Nil(t, res.Reservation.RoomID)
	assert.Equal(t, models.ReservationPending, res.Reservation.Status)

	require.NotNil(t, res.Invoice)
	require.Len(t, res.Invoice.Items, 3)
	assert.True(t, res.Invoice.Items[0].Amount.Equal(dec("4000")))
	assert.True(t, res.Invoice.Invoice.TotalAmount.Equal(dec("5650.50")))
}

func TestCreateReservationValidation(t *testing.T) {
	base := func() *CreateReservationRequest {
		return &CreateReservationRequest{
			CustomerID:   11,
			RoomTypeID:   3,
			CheckInDate:  "2026-04-01",
			CheckOutDate: "2026-04-03",
			GuestCount:   1,
			TotalAmount:  dec("1000"),
		}
	}

	tests := []struct {
		name   string
		mutate func(r *CreateReservationRequest)
		want   error
	}{
		{"missing customer", func(r *CreateReservationRequest) { r.CustomerID = 0 }, apperr.ErrValidation},
		{"no room or type", func(r *CreateReservationRequest) { r.RoomTypeID = 0 }, apperr.ErrValidation},
		{"checkout before checkin", func(r *CreateReservationRequest) { r.CheckOutDate = "2026-03-30" }, apperr.ErrValidation},
		{"same day", func(r *CreateReservationRequest) { r.CheckOutDate = r.CheckInDate }, apperr.ErrValidation},
		{"bad date", func(r *CreateReservationRequest) { r.CheckInDate = "01/04/2026" }, apperr.ErrValidation},
		{"no guests", func(r *CreateReservationRequest) { r.GuestCount = 0 }, apperr.ErrValidation},
		{"zero total", func(r *CreateReservationRequest) { r.TotalAmount = dec("0") }, apperr.ErrValidation},
		{"advance above total", func(r *CreateReservationRequest) { r.AdvancePayment = dec("1000.01") }, apperr.ErrValidation},
		{"terminal status", func(r *CreateReservationRequest) { r.Status = statusRef(models.ReservationCheckedOut) }, apperr.ErrValidation},
		{"walk-in without room", func(r *CreateReservationRequest) { r.Status = statusRef(models.ReservationCheckedIn) }, apperr.ErrValidation},
		{"unknown service", func(r *CreateReservationRequest) { r.Services = []ServiceLine{{ServiceID: 99}} }, apperr.ErrValidation},
		{"unknown room", func(r *CreateReservationRequest) { r.RoomID = roomRef(999) }, apperr.ErrNotFound},
		{"room of other type", func(r *CreateReservationRequest) { r.RoomID = roomRef(201) }, apperr.ErrRoomTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := base()
			tt.mutate(req)

			_, err := f.reservations.CreateReservation(context.Background(), frontDesk, req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.store.AuditEntries(models.TrailReservation))
			assert.Empty(t, f.events.reservations)
		})
	}
}

func TestMutationsRequireFrontDeskRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	housekeeping := models.Actor{UserID: 9, Role: "housekeeping"}

	_, err := f.reservations.CreateReservation(ctx, housekeeping, &CreateReservationRequest{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.reservations.ChangeStatus(ctx, housekeeping, 1, models.ReservationConfirmed, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.invoices.RecordPayment(ctx, housekeeping, 1, &RecordPaymentRequest{Amount: dec("1"), Method: "cash"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.invoices.DeleteInvoice(ctx, models.Actor{Role: models.RoleAdmin}, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestChangeStatusRejectsUnlistedTransitions(t *testing.T) {
	allowed := map[[2]models.ReservationStatus]bool{
		{models.ReservationPending, models.ReservationConfirmed}:    true,
		{models.ReservationPending, models.ReservationCancelled}:    true,
		{models.ReservationConfirmed, models.ReservationCheckedIn}:  true,
		{models.ReservationConfirmed, models.ReservationCancelled}:  true,
		{models.ReservationCheckedIn, models.ReservationCheckedOut}: true,
	}
	ctx := context.Background()

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if allowed[[2]models.ReservationStatus{from, to}] {
				continue
			}

			f := newFixture(t)
			r := f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationPending)
			for _, step := range pathTo[from] {
				_, err := f.reservations.ChangeStatus(ctx, frontDesk, r.ID, step, "")
				require.NoError(t, err)
			}
			before := f.reservation(t, r.ID)
			roomBefore := f.room(t, 101)
			logsBefore := len(f.store.AuditEntries(models.TrailReservation))

			_, err := f.reservations.ChangeStatus(ctx, frontDesk, r.ID, to, "")
			assert.True(t, errors.Is(err, apperr.ErrInvalidTransition), "%s -> %s: %v", from, to, err)
			assert.Equal(t, before, f.reservation(t, r.ID), "%s -> %s", from, to)
			assert.Equal(t, roomBefore.Status, f.room(t, 101).Status, "%s -> %s", from, to)
			assert.Len(t, f.store.AuditEntries(models.TrailReservation), logsBefore)
		}
	}
}

func TestChangeStatusDerivesRoomStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationPending)
	assert.Equal(t, models.RoomReserved, f.room(t, 101).Status)

	steps := []struct {
		to       models.ReservationStatus
		room     models.RoomStatus
		action   string
		previous models.ReservationStatus
	}{
		{models.ReservationConfirmed, models.RoomReserved, models.ActionStatusChange, models.ReservationPending},
		{models.ReservationCheckedIn, models.RoomOccupied, models.ActionCheckIn, models.ReservationConfirmed},
		{models.ReservationCheckedOut, models.RoomNeedsCleaning, models.ActionCheckOut, models.ReservationCheckedIn},
	}
	for _, step := range steps {
		res, err := f.reservations.ChangeStatus(ctx, frontDesk, r.ID, step.to, "desk note")
		require.NoError(t, err)
		assert.Equal(t, step.room, f.room(t, 101).Status, step.to.String())
		assert.Equal(t, step.room, res.Room.Status)
		require.Len(t, res.SideEffects, 1)
		assert.False(t, res.SideEffects[0].Failed())

		event := f.events.reservations[len(f.events.reservations)-1]
		assert.Equal(t, models.EventTypeReservationStatusChanged, event.EventType)
		assert.Equal(t, step.previous, *event.PreviousStatus)
		assert.Equal(t, step.room, *event.RoomStatus)
	}

	cancelled := f.book(t, 102, "2026-04-01", "2026-04-03", models.ReservationPending)
	_, err := f.reservations.ChangeStatus(ctx, frontDesk, cancelled.ID, models.ReservationCancelled, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoomAvailable, f.room(t, 102).Status)

	logs, err := f.reservations.ReservationLogs(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		models.ActionCreate,
		models.ActionStatusChange,
		models.ActionCheckIn,
		models.ActionCheckOut,
	}, actions(logs))
	assert.JSONEq(t, `{"status":"CheckedIn","room_status":"Occupied"}`, string(logs[3].PreviousState))
	assert.JSONEq(t, `{"status":"CheckedOut","room_status":"NeedsCleaning"}`, string(logs[3].NewState))
	assert.Equal(t, "desk note", logs[3].Notes)
}

func TestChangeStatusNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.reservations.ChangeStatus(context.Background(), frontDesk, 404, models.ReservationConfirmed, "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCheckInNeedsRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.reservations.CreateReservation(ctx, frontDesk, &CreateReservationRequest{
		CustomerID:   11,
		RoomTypeID:   3,
		CheckInDate:  "2026-04-01",
		CheckOutDate: "2026-04-03",
		GuestCount:   1,
		Status:       statusRef(models.ReservationConfirmed),
		TotalAmount:  dec("1000"),
	})
	require.NoError(t, err)

	_, err = f.reservations.ChangeStatus(ctx, frontDesk, res.Reservation.ID, models.ReservationCheckedIn, "")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestOverlappingBookingsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, 101, "2026-04-01", "2026-04-05", models.ReservationConfirmed)

	_, err := f.reservations.CreateReservation(ctx, frontDesk, &CreateReservationRequest{
		CustomerID:   12,
		RoomID:       roomRef(101),
		CheckInDate:  "2026-04-03",
		CheckOutDate: "2026-04-07",
		GuestCount:   1,
		Status:       statusRef(models.ReservationConfirmed),
		TotalAmount:  dec("2000"),
	})
	assert.ErrorIs(t, err, apperr.ErrRoomUnavailable)

	// Check-out day is free for the next guest.
	next := f.book(t, 101, "2026-04-05", "2026-04-06", models.ReservationConfirmed)
	assert.Equal(t, models.ReservationConfirmed, next.Status)

	// A stay that contains a booked one overlaps it, even as a pending hold.
	f.book(t, 102, "2026-04-10", "2026-04-12", models.ReservationConfirmed)
	_, err = f.reservations.CreateReservation(ctx, frontDesk, &CreateReservationRequest{
		CustomerID:   13,
		RoomID:       roomRef(102),
		CheckInDate:  "2026-04-08",
		CheckOutDate: "2026-04-14",
		GuestCount:   1,
		TotalAmount:  dec("2000"),
	})
	assert.ErrorIs(t, err, apperr.ErrRoomUnavailable, "containment overlaps as well")
}

func TestMovingPendingHoldOntoBookedStayRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, 101, "2026-06-10", "2026-06-15", models.ReservationConfirmed)
	hold := f.book(t, 101, "2026-06-01", "2026-06-03", models.ReservationPending)

	checkIn, checkOut := "2026-06-11", "2026-06-13"
	_, err := f.reservations.UpdateReservation(ctx, frontDesk, hold.ID, &UpdateReservationRequest{
		CheckInDate:  &checkIn,
		CheckOutDate: &checkOut,
	})
	assert.ErrorIs(t, err, apperr.ErrRoomUnavailable)

	stored := f.reservation(t, hold.ID)
	assert.Equal(t, "2026-06-01", stored.CheckInDate.Format(dateLayout))
	assert.Equal(t, "2026-06-03", stored.CheckOutDate.Format(dateLayout))

	free := "2026-06-10"
	_, err = f.reservations.UpdateReservation(ctx, frontDesk, hold.ID, &UpdateReservationRequest{CheckOutDate: &free})
	require.NoError(t, err, "check-out on the next arrival day is free")
}

func TestConfirmOntoBookedRoomRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.book(t, 101, "2026-04-01", "2026-04-05", models.ReservationPending)
	second := f.book(t, 101, "2026-04-02", "2026-04-04", models.ReservationPending)

	_, err := f.reservations.ChangeStatus(ctx, frontDesk, first.ID, models.ReservationConfirmed, "")
	require.NoError(t, err)

	_, err = f.reservations.ChangeStatus(ctx, frontDesk, second.ID, models.ReservationConfirmed, "")
	assert.ErrorIs(t, err, apperr.ErrRoomUnavailable)
	assert.Equal(t, models.ReservationPending, f.reservation(t, second.ID).Status)
}

func TestAssignRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.reservations.CreateReservation(ctx, frontDesk, &CreateReservationRequest{
		CustomerID:   11,
		RoomTypeID:   3,
		CheckInDate:  "2026-04-01",
		CheckOutDate: "2026-04-03",
		GuestCount:   2,
		TotalAmount:  dec("3000"),
	})
	require.NoError(t, err)
	id := res.Reservation.ID

	_, err = f.reservations.AssignRoom(ctx, frontDesk, id, 201)
	assert.ErrorIs(t, err, apperr.ErrRoomTypeMismatch)
	assert.Nil(t, f.reservation(t, id).RoomID)
	assert.Equal(t, models.RoomAvailable, f.room(t, 201).Status)

	assigned, err := f.reservations.AssignRoom(ctx, frontDesk, id, 101)
	require.NoError(t, err)
	assert.Equal(t, models.RoomReserved, assigned.Room.Status)
	assert.Equal(t, models.RoomReserved, f.room(t, 101).Status)
	require.NotNil(t, f.reservation(t, id).RoomID)
	assert.Equal(t, int64(101), *f.reservation(t, id).RoomID)

	_, err = f.reservations.AssignRoom(ctx, frontDesk, id, 102)
	assert.ErrorIs(t, err, apperr.ErrConflict, "room already assigned")

	logs, err := f.reservations.ReservationLogs(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{models.ActionCreate, models.ActionRoomAssigned}, actions(logs))
}

func TestAssignRoomChecksAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, 101, "2026-04-01", "2026-04-05", models.ReservationCheckedIn)
	res, err := f.reservations.CreateReservation(ctx, frontDesk, &CreateReservationRequest{
		CustomerID:   12,
		RoomTypeID:   3,
		CheckInDate:  "2026-04-04",
		CheckOutDate: "2026-04-06",
		GuestCount:   1,
		Status:       statusRef(models.ReservationConfirmed),
		TotalAmount:  dec("1000"),
	})
	require.NoError(t, err)

	_, err = f.reservations.AssignRoom(ctx, frontDesk, res.Reservation.ID, 101)
	assert.ErrorIs(t, err, apperr.ErrRoomUnavailable)
	assert.Equal(t, models.RoomOccupied, f.room(t, 101).Status)
}

func TestUpdateReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationConfirmed)
	f.book(t, 101, "2026-04-05", "2026-04-07", models.ReservationConfirmed)

	guests := 3
	notes := "late arrival"
	res, err := f.reservations.UpdateReservation(ctx, frontDesk, r.ID, &UpdateReservationRequest{
		GuestCount:      &guests,
		SpecialRequests: &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Reservation.GuestCount)
	assert.Equal(t, "late arrival", f.reservation(t, r.ID).SpecialRequests)

	extend := "2026-04-06"
	_, err = f.reservations.UpdateReservation(ctx, frontDesk, r.ID, &UpdateReservationRequest{CheckOutDate: &extend})
	assert.ErrorIs(t, err, apperr.ErrRoomUnavailable)

	backwards := "2026-03-30"
	_, err = f.reservations.UpdateReservation(ctx, frontDesk, r.ID, &UpdateReservationRequest{CheckOutDate: &backwards})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	shorter := "2026-04-02"
	res, err = f.reservations.UpdateReservation(ctx, frontDesk, r.ID, &UpdateReservationRequest{
		CheckOutDate: &shorter,
		Status:       statusRef(models.ReservationCheckedIn),
		Notes:        "early check-in",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCheckedIn, f.reservation(t, r.ID).Status)
	assert.Equal(t, "2026-04-02", f.reservation(t, r.ID).CheckOutDate.Format(dateLayout))
	assert.Equal(t, models.RoomOccupied, f.room(t, 101).Status)
	assert.Len(t, res.SideEffects, 2)

	_, err = f.reservations.UpdateReservation(ctx, frontDesk, r.ID, &UpdateReservationRequest{
		Status: statusRef(models.ReservationPending),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	logs, err := f.reservations.ReservationLogs(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		models.ActionCreate,
		models.ActionUpdate,
		models.ActionUpdate,
		models.ActionCheckIn,
	}, actions(logs))
}

func TestUpdateReservationTotalLockedByInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationConfirmed)
	_, err := f.invoices.CreateInvoice(ctx, frontDesk, &CreateInvoiceRequest{ReservationID: r.ID, TotalAmount: dec("5000")})
	require.NoError(t, err)

	total := dec("6000")
	_, err = f.reservations.UpdateReservation(ctx, frontDesk, r.ID, &UpdateReservationRequest{TotalAmount: &total})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateReservationAdvanceIsFixed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.reservations.CreateReservation(ctx, frontDesk, &CreateReservationRequest{
		CustomerID:     11,
		RoomID:         roomRef(101),
		CheckInDate:    "2026-04-01",
		CheckOutDate:   "2026-04-03",
		GuestCount:     2,
		TotalAmount:    dec("5000"),
		AdvancePayment: dec("2000"),
	})
	require.NoError(t, err)
	require.NotNil(t, res.Invoice)
	invoiceID := res.Invoice.Invoice.ID

	more := dec("4500")
	_, err = f.reservations.UpdateReservation(ctx, frontDesk, res.Reservation.ID, &UpdateReservationRequest{AdvancePayment: &more})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.True(t, dec("2000").Equal(f.reservation(t, res.Reservation.ID).AdvancePayment))
	assert.True(t, dec("2000").Equal(f.invoice(t, invoiceID).PaidAmount))

	same := dec("2000.00")
	guests := 3
	_, err = f.reservations.UpdateReservation(ctx, frontDesk, res.Reservation.ID, &UpdateReservationRequest{
		AdvancePayment: &same,
		GuestCount:     &guests,
	})
	require.NoError(t, err, "restating the booked advance is not a change")

	unbilled := f.book(t, 102, "2026-04-01", "2026-04-03", models.ReservationPending)
	advance := dec("3000")
	_, err = f.reservations.UpdateReservation(ctx, frontDesk, unbilled.ID, &UpdateReservationRequest{AdvancePayment: &advance})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.True(t, f.reservation(t, unbilled.ID).AdvancePayment.IsZero())

	_, err = f.invoices.GetInvoiceByReservation(ctx, unbilled.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	confirmed := f.book(t, 102, "2026-04-01", "2026-04-03", models.ReservationConfirmed)
	_, err := f.reservations.DeleteReservation(ctx, frontDesk, confirmed.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	pending := f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationPending)
	assert.Equal(t, models.RoomReserved, f.room(t, 101).Status)

	res, err := f.reservations.DeleteReservation(ctx, frontDesk, pending.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Room)
	assert.Equal(t, models.RoomAvailable, f.room(t, 101).Status)

	_, err = f.store.Queries().GetReservation(ctx, pending.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	logs, err := f.reservations.ReservationLogs(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{models.ActionCreate, models.ActionDelete}, actions(logs))
	assert.NotEmpty(t, logs[1].PreviousState)
}

func TestDeleteBilledReservationConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationPending)
	_, err := f.invoices.CreateInvoice(ctx, frontDesk, &CreateInvoiceRequest{ReservationID: r.ID, TotalAmount: dec("5000")})
	require.NoError(t, err)

	_, err = f.reservations.DeleteReservation(ctx, frontDesk, r.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestReservationAuditFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationPending)

	f.store.FailOn("InsertAuditEntry", errors.New("reservation_logs unavailable"))
	res, err := f.reservations.ChangeStatus(ctx, frontDesk, r.ID, models.ReservationConfirmed, "")
	require.NoError(t, err)
	require.Len(t, res.SideEffects, 1)
	assert.True(t, res.SideEffects[0].Failed())
	assert.Equal(t, models.ReservationConfirmed, f.reservation(t, r.ID).Status)
}

func TestListReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, 101, "2026-04-01", "2026-04-03", models.ReservationConfirmed)
	f.book(t, 102, "2026-04-02", "2026-04-04", models.ReservationPending)
	f.book(t, 101, "2026-05-01", "2026-05-03", models.ReservationPending)

	all, total, err := f.reservations.ListReservations(ctx, models.ReservationFilters{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "2026-05-01", all[0].CheckInDate.Format(dateLayout))

	pending, total, err := f.reservations.ListReservations(ctx, models.ReservationFilters{
		Status:   statusRef(models.ReservationPending),
		Page:     1,
		PageSize: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, pending, 1)

	onRoom, _, err := f.reservations.ListReservations(ctx, models.ReservationFilters{RoomID: roomRef(101)})
	require.NoError(t, err)
	assert.Len(t, onRoom, 2)

	r, services, err := f.reservations.GetReservation(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, all[0].ID, r.ID)
	assert.Empty(t, services)
}
