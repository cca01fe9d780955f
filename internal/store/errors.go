package store

import (
	"database/sql"
	"errors"
	"fmt"

	"frontdesk-service/internal/apperr"

	"github.com/lib/pq"
)

// ErrDuplicateInvoiceNumber is returned by InsertInvoice when the generated
// invoice number is already taken. It wraps apperr.ErrConflict.
var ErrDuplicateInvoiceNumber = fmt.Errorf("%w: invoice number already taken", apperr.ErrConflict)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqExclusionViolation  = "23P01"
	pqCheckViolation      = "23514"

	invoiceNumberConstraint = "invoices_invoice_number_key"
	invoiceReservationKey   = "invoices_reservation_id_key"
)

// translateError maps driver errors onto the domain error kinds.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch string(pqErr.Code) {
	case pqUniqueViolation:
		switch pqErr.Constraint {
		case invoiceNumberConstraint:
			return ErrDuplicateInvoiceNumber
		case invoiceReservationKey:
			return fmt.Errorf("%w: reservation already has an invoice", apperr.ErrConflict)
		}
		return fmt.Errorf("%w: %s", apperr.ErrConflict, pqErr.Detail)
	case pqExclusionViolation:
		return fmt.Errorf("%w: room is already booked for an overlapping stay", apperr.ErrRoomUnavailable)
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: referenced record does not exist (%s)", apperr.ErrValidation, pqErr.Constraint)
	case pqCheckViolation:
		return fmt.Errorf("%w: constraint %s violated", apperr.ErrValidation, pqErr.Constraint)
	}
	return err
}

// notFound builds an ErrNotFound for a missing entity.
func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, apperr.ErrNotFound)
}
