// Package ledger holds the invoice balance arithmetic. All functions are
// pure; amounts are compared after rounding to cents.
package ledger

import (
	"fmt"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/models"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places money is rounded to.
const CurrencyPlaces = 2

// Round rounds an amount to cents.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyPlaces)
}

// ComputeStatus derives the payment status of an invoice.
func ComputeStatus(total, paid decimal.Decimal) models.PaymentStatus {
	total, paid = Round(total), Round(paid)
	switch {
	case !paid.IsPositive():
		return models.PaymentUnpaid
	case paid.GreaterThanOrEqual(total):
		return models.PaymentPaid
	default:
		return models.PaymentPartial
	}
}

// RemainingBalance is total minus paid. A negative result means the ledger
// is corrupt; it is returned as is.
func RemainingBalance(total, paid decimal.Decimal) decimal.Decimal {
	return Round(total).Sub(Round(paid))
}

// DisplayBalance is RemainingBalance floored at zero.
func DisplayBalance(total, paid decimal.Decimal) decimal.Decimal {
	balance := RemainingBalance(total, paid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// ApplyPayment computes the paid amount and status that result from applying
// amount to inv. The invoice itself is not modified.
func ApplyPayment(inv *models.Invoice, amount decimal.Decimal) (decimal.Decimal, models.PaymentStatus, error) {
	amount = Round(amount)
	if !amount.IsPositive() {
		return decimal.Zero, "", fmt.Errorf("%w: payment amount must be greater than zero", apperr.ErrValidation)
	}

	remaining := RemainingBalance(inv.TotalAmount, inv.PaidAmount)
	if amount.GreaterThan(remaining) {
		return decimal.Zero, "", fmt.Errorf("%w: payment of %s exceeds remaining balance %s",
			apperr.ErrValidation, amount.StringFixed(CurrencyPlaces), DisplayBalance(inv.TotalAmount, inv.PaidAmount).StringFixed(CurrencyPlaces))
	}

	newPaid := Round(inv.PaidAmount).Add(amount)
	return newPaid, ComputeStatus(inv.TotalAmount, newPaid), nil
}

// ValidateOpening checks the amounts an invoice or reservation is opened
// with: a positive total and a paid amount within [0, total].
func ValidateOpening(total, paid decimal.Decimal) error {
	total, paid = Round(total), Round(paid)
	if !total.IsPositive() {
		return fmt.Errorf("%w: total amount must be greater than zero", apperr.ErrValidation)
	}
	if paid.IsNegative() {
		return fmt.Errorf("%w: paid amount cannot be negative", apperr.ErrValidation)
	}
	if paid.GreaterThan(total) {
		return fmt.Errorf("%w: paid amount %s exceeds total %s",
			apperr.ErrValidation, paid.StringFixed(CurrencyPlaces), total.StringFixed(CurrencyPlaces))
	}
	return nil
}
