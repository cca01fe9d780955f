package ledger

import (
	"testing"

	"frontdesk-service/internal/apperr"
	"frontdesk-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeStatus(t *testing.T) {
	tests := []struct {
		total, paid string
		want        models.PaymentStatus
	}{
		{"5000", "0", models.PaymentUnpaid},
		{"5000", "-1", models.PaymentUnpaid},
		{"5000", "0.001", models.PaymentUnpaid},
		{"5000", "0.01", models.PaymentPartial},
		{"5000", "2000", models.PaymentPartial},
		{"5000", "4999.99", models.PaymentPartial},
		{"5000", "4999.999", models.PaymentPaid},
		{"5000", "5000", models.PaymentPaid},
		{"100.10", "100.1", models.PaymentPaid},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ComputeStatus(d(tt.total), d(tt.paid)), "total=%s paid=%s", tt.total, tt.paid)
	}
}

func TestComputeStatusOverRange(t *testing.T) {
	total := d("250.75")
	for cents := int64(0); cents <= 25075; cents += 125 {
		paid := decimal.New(cents, -2)
		got := ComputeStatus(total, paid)
		switch {
		case paid.IsZero():
			assert.Equal(t, models.PaymentUnpaid, got)
		case paid.Equal(total):
			assert.Equal(t, models.PaymentPaid, got)
		default:
			assert.Equal(t, models.PaymentPartial, got, paid.String())
		}
	}
	assert.Equal(t, models.PaymentPaid, ComputeStatus(total, total))
}

func TestApplyPayment(t *testing.T) {
	inv := &models.Invoice{TotalAmount: d("5000"), PaidAmount: d("2000"), PaymentStatus: models.PaymentPartial}

	paid, status, err := ApplyPayment(inv, d("1000"))
	require.NoError(t, err)
	assert.True(t, paid.Equal(d("3000")))
	assert.Equal(t, models.PaymentPartial, status)
	assert.True(t, inv.PaidAmount.Equal(d("2000")), "invoice must not be mutated")

	paid, status, err = ApplyPayment(inv, d("3000"))
	require.NoError(t, err)
	assert.True(t, paid.Equal(d("5000")))
	assert.Equal(t, models.PaymentPaid, status)
}

func TestApplyPaymentRejects(t *testing.T) {
	inv := &models.Invoice{TotalAmount: d("5000"), PaidAmount: d("2000")}

	for _, amount := range []string{"0", "-5", "0.004", "3000.01", "10000"} {
		_, _, err := ApplyPayment(inv, d(amount))
		assert.ErrorIs(t, err, apperr.ErrValidation, amount)
	}
	assert.True(t, inv.PaidAmount.Equal(d("2000")))

	settled := &models.Invoice{TotalAmount: d("5000"), PaidAmount: d("5000")}
	_, _, err := ApplyPayment(settled, d("0.01"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBalances(t *testing.T) {
	assert.True(t, RemainingBalance(d("5000"), d("2000")).Equal(d("3000")))
	assert.True(t, RemainingBalance(d("10"), d("12")).Equal(d("-2")))
	assert.True(t, DisplayBalance(d("10"), d("12")).IsZero())
	assert.True(t, DisplayBalance(d("10.005"), d("0")).Equal(d("10.01")))
}

func TestValidateOpening(t *testing.T) {
	assert.NoError(t, ValidateOpening(d("5000"), d("0")))
	assert.NoError(t, ValidateOpening(d("5000"), d("5000")))
	assert.ErrorIs(t, ValidateOpening(d("0"), d("0")), apperr.ErrValidation)
	assert.ErrorIs(t, ValidateOpening(d("5000"), d("-1")), apperr.ErrValidation)
	assert.ErrorIs(t, ValidateOpening(d("5000"), d("5000.01")), apperr.ErrValidation)
}
