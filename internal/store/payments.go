package store

import (
	"context"

	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertPayment creates a new payment record. Payments are append-only; the
// store offers no update or single-payment delete.
func (q *queries) InsertPayment(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (invoice_id, amount, method, payment_date, reference_number, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return translateError(sqlx.GetContext(ctx, q.ext, p, query,
		p.InvoiceID, p.Amount, p.Method, p.PaymentDate, p.ReferenceNumber, p.Notes))
}

// GetPaymentsByInvoiceID retrieves payments for an invoice
func (q *queries) GetPaymentsByInvoiceID(ctx context.Context, invoiceID int64) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := sqlx.SelectContext(ctx, q.ext, &payments,
		"SELECT * FROM payments WHERE invoice_id = $1 ORDER BY payment_date, id", invoiceID)
	return payments, err
}
