package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const reservationColumns = `id, customer_id, room_id, room_type_id, check_in_date, check_out_date,
	check_in_time, check_out_time, guest_count, special_requests, booking_source, status,
	total_amount, advance_payment, created_at, updated_at`

// GetReservation retrieves a reservation by ID
func (q *queries) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return q.getReservation(ctx, id, "")
}

// GetReservationForUpdate retrieves a reservation and locks its row
func (q *queries) GetReservationForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	return q.getReservation(ctx, id, " FOR UPDATE")
}

func (q *queries) getReservation(ctx context.Context, id int64, lock string) (*models.Reservation, error) {
	var r models.Reservation
	err := sqlx.GetContext(ctx, q.ext, &r,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = $1"+lock, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("reservation", id)
		}
		return nil, err
	}
	return &r, nil
}

// ListReservations returns one page of reservations matching f and the
// total number of matches.
func (q *queries) ListReservations(ctx context.Context, f models.ReservationFilters) ([]models.Reservation, int, error) {
	var conditions []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", int(*f.Status))
	}
	if f.RoomID != nil {
		add("room_id = $%d", *f.RoomID)
	}
	if f.CustomerID != nil {
		add("customer_id = $%d", *f.CustomerID)
	}
	if f.From != nil {
		add("check_out_date > $%d", *f.From)
	}
	if f.To != nil {
		add("check_in_date < $%d", *f.To)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := sqlx.GetContext(ctx, q.ext, &total, "SELECT COUNT(*) FROM reservations"+where, args...); err != nil {
		return nil, 0, err
	}

	page, size := f.Page, f.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 50
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf("SELECT %s FROM reservations%s ORDER BY check_in_date DESC, id DESC LIMIT $%d OFFSET $%d",
		reservationColumns, where, len(args)-1, len(args))

	reservations := []models.Reservation{}
	if err := sqlx.SelectContext(ctx, q.ext, &reservations, query, args...); err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// InsertReservation creates a new reservation
func (q *queries) InsertReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		INSERT INTO reservations (customer_id, room_id, room_type_id, check_in_date, check_out_date,
			check_in_time, check_out_time, guest_count, special_requests, booking_source, status,
			total_amount, advance_payment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`

	err := sqlx.GetContext(ctx, q.ext, r, query,
		r.CustomerID, r.RoomID, r.RoomTypeID, r.CheckInDate, r.CheckOutDate,
		r.CheckInTime, r.CheckOutTime, r.GuestCount, r.SpecialRequests, r.BookingSource, r.Status,
		r.TotalAmount, r.AdvancePayment)
	return translateError(err)
}

// UpdateReservation writes every mutable column of r
func (q *queries) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	query := `
		UPDATE reservations SET room_id = $1, room_type_id = $2, check_in_date = $3, check_out_date = $4,
			check_in_time = $5, check_out_time = $6, guest_count = $7, special_requests = $8,
			status = $9, total_amount = $10, advance_payment = $11, updated_at = NOW()
		WHERE id = $12
		RETURNING updated_at`

	err := sqlx.GetContext(ctx, q.ext, &r.UpdatedAt, query,
		r.RoomID, r.RoomTypeID, r.CheckInDate, r.CheckOutDate,
		r.CheckInTime, r.CheckOutTime, r.GuestCount, r.SpecialRequests,
		r.Status, r.TotalAmount, r.AdvancePayment, r.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("reservation", r.ID)
		}
		return translateError(err)
	}
	return nil
}

// DeleteReservation removes a reservation and its service requests
func (q *queries) DeleteReservation(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM service_requests WHERE reservation_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete service requests: %w", err)
	}
	return q.execAffected(ctx, "reservation", id, "DELETE FROM reservations WHERE id = $1", id)
}

// HasOverlappingReservation reports whether another Confirmed or CheckedIn
// reservation holds roomID on any night of [checkIn, checkOut).
func (q *queries) HasOverlappingReservation(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q.ext, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE room_id = $1 AND id <> $2 AND status IN ($3, $4)
				AND check_in_date < $6 AND $5 < check_out_date
		)`,
		roomID, excludeID, models.ReservationConfirmed, models.ReservationCheckedIn, checkIn, checkOut)
	return exists, err
}

// GetServicesByIDs retrieves catalogue services by IDs
func (q *queries) GetServicesByIDs(ctx context.Context, ids []int64) ([]models.HotelService, error) {
	if len(ids) == 0 {
		return []models.HotelService{}, nil
	}

	query, args, err := sqlx.In("SELECT id, name, price FROM hotel_services WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = q.ext.Rebind(query)

	var services []models.HotelService
	err = sqlx.SelectContext(ctx, q.ext, &services, query, args...)
	return services, err
}

// InsertServiceRequest creates a new add-on service request
func (q *queries) InsertServiceRequest(ctx context.Context, sr *models.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (reservation_id, service_id, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return translateError(sqlx.GetContext(ctx, q.ext, sr, query,
		sr.ReservationID, sr.ServiceID, sr.Quantity, sr.UnitPrice, sr.Amount))
}

// GetServiceRequests retrieves the add-ons of a reservation
func (q *queries) GetServiceRequests(ctx context.Context, reservationID int64) ([]models.ServiceRequest, error) {
	requests := []models.ServiceRequest{}
	err := sqlx.SelectContext(ctx, q.ext, &requests,
		"SELECT * FROM service_requests WHERE reservation_id = $1 ORDER BY id", reservationID)
	return requests, err
}
