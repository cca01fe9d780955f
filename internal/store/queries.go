package store

import (
	"context"
	"fmt"
	"time"

	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// Queries is the set of storage operations the front-desk core runs. A
// Queries obtained inside RunInTx shares that transaction.
type Queries interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id int64) (*models.Reservation, error)
	ListReservations(ctx context.Context, f models.ReservationFilters) ([]models.Reservation, int, error)
	InsertReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	DeleteReservation(ctx context.Context, id int64) error
	HasOverlappingReservation(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error)

	GetServicesByIDs(ctx context.Context, ids []int64) ([]models.HotelService, error)
	InsertServiceRequest(ctx context.Context, sr *models.ServiceRequest) error
	GetServiceRequests(ctx context.Context, reservationID int64) ([]models.ServiceRequest, error)

	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetRoomForUpdate(ctx context.Context, id int64) (*models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	UpdateRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error

	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (*models.Invoice, error)
	GetInvoiceByReservationID(ctx context.Context, reservationID int64) (*models.Invoice, error)
	MaxInvoiceSequence(ctx context.Context, prefix string) (int, error)
	InsertInvoice(ctx context.Context, inv *models.Invoice) error
	UpdateInvoice(ctx context.Context, inv *models.Invoice) error
	DeleteInvoice(ctx context.Context, id int64) error
	InsertInvoiceItem(ctx context.Context, item *models.InvoiceItem) error
	GetInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error)

	InsertPayment(ctx context.Context, p *models.Payment) error
	GetPaymentsByInvoiceID(ctx context.Context, invoiceID int64) ([]models.Payment, error)

	InsertAuditEntry(ctx context.Context, e *models.AuditLogEntry) error
	ListAuditEntries(ctx context.Context, trail models.AuditTrail, subjectID int64) ([]models.AuditLogEntry, error)
}

type queries struct {
	ext  sqlx.ExtContext
	inTx bool
}

// withSavepoint runs fn so that its failure leaves the surrounding
// transaction usable. Outside a transaction fn runs as is.
func (q *queries) withSavepoint(ctx context.Context, name string, fn func() error) error {
	if !q.inTx {
		return fn()
	}

	if _, err := q.ext.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}

	if err := fn(); err != nil {
		if _, rbErr := q.ext.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("%v (rollback to savepoint %s failed: %v)", err, name, rbErr)
		}
		return err
	}

	_, err := q.ext.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

// execAffected runs an UPDATE or DELETE and returns ErrNotFound when no row
// matched.
func (q *queries) execAffected(ctx context.Context, entity string, id int64, query string, args ...interface{}) error {
	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}
