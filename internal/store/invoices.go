package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const invoiceColumns = `id, invoice_number, reservation_id, total_amount, paid_amount, payment_status,
	due_date, notes, created_at, updated_at`

// GetInvoice retrieves an invoice by ID
func (q *queries) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	return q.getInvoice(ctx, id, "")
}

// GetInvoiceForUpdate retrieves an invoice and locks its row
func (q *queries) GetInvoiceForUpdate(ctx context.Context, id int64) (*models.Invoice, error) {
	return q.getInvoice(ctx, id, " FOR UPDATE")
}

func (q *queries) getInvoice(ctx context.Context, id int64, lock string) (*models.Invoice, error) {
	var inv models.Invoice
	err := sqlx.GetContext(ctx, q.ext, &inv,
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = $1"+lock, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("invoice", id)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// GetInvoiceByReservationID retrieves the invoice billed for a reservation
func (q *queries) GetInvoiceByReservationID(ctx context.Context, reservationID int64) (*models.Invoice, error) {
	var inv models.Invoice
	err := sqlx.GetContext(ctx, q.ext, &inv,
		"SELECT "+invoiceColumns+" FROM invoices WHERE reservation_id = $1", reservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice for reservation %d: %w", reservationID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// MaxInvoiceSequence returns the highest numeric suffix among invoice
// numbers starting with prefix, or 0 when there are none.
func (q *queries) MaxInvoiceSequence(ctx context.Context, prefix string) (int, error) {
	var seq int
	err := q.withSavepoint(ctx, "invoice_sequence", func() error {
		return sqlx.GetContext(ctx, q.ext, &seq, `
			SELECT COALESCE(MAX(CAST(SUBSTRING(invoice_number FROM $2) AS INTEGER)), 0)
			FROM invoices
			WHERE invoice_number LIKE $1 AND SUBSTRING(invoice_number FROM $2) ~ '^[0-9]+$'`,
			prefix+"%", len(prefix)+1)
	})
	return seq, err
}

// InsertInvoice creates a new invoice. A taken invoice number yields
// ErrDuplicateInvoiceNumber and leaves the transaction usable for a retry.
func (q *queries) InsertInvoice(ctx context.Context, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (invoice_number, reservation_id, total_amount, paid_amount, payment_status, due_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := q.withSavepoint(ctx, "invoice_insert", func() error {
		return sqlx.GetContext(ctx, q.ext, inv, query,
			inv.InvoiceNumber, inv.ReservationID, inv.TotalAmount, inv.PaidAmount,
			inv.PaymentStatus, inv.DueDate, inv.Notes)
	})
	return translateError(err)
}

// UpdateInvoice writes the paid amount, payment status, due date and notes
func (q *queries) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	query := `
		UPDATE invoices SET paid_amount = $1, payment_status = $2, due_date = $3, notes = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := sqlx.GetContext(ctx, q.ext, &inv.UpdatedAt, query,
		inv.PaidAmount, inv.PaymentStatus, inv.DueDate, inv.Notes, inv.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("invoice", inv.ID)
	}
	return translateError(err)
}

// DeleteInvoice removes an invoice with its line items and payments
func (q *queries) DeleteInvoice(ctx context.Context, id int64) error {
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM payments WHERE invoice_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	if _, err := q.ext.ExecContext(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete invoice items: %w", err)
	}
	return q.execAffected(ctx, "invoice", id, "DELETE FROM invoices WHERE id = $1", id)
}

// InsertInvoiceItem creates a new invoice line item
func (q *queries) InsertInvoiceItem(ctx context.Context, item *models.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (invoice_id, description, quantity, unit_price, amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return translateError(sqlx.GetContext(ctx, q.ext, &item.ID, query,
		item.InvoiceID, item.Description, item.Quantity, item.UnitPrice, item.Amount))
}

// GetInvoiceItems retrieves the line items of an invoice
func (q *queries) GetInvoiceItems(ctx context.Context, invoiceID int64) ([]models.InvoiceItem, error) {
	items := []models.InvoiceItem{}
	err := sqlx.SelectContext(ctx, q.ext, &items,
		"SELECT * FROM invoice_items WHERE invoice_id = $1 ORDER BY id", invoiceID)
	return items, err
}
