package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/store"
	"frontdesk-service/internal/util"

	"go.uber.org/zap"
)

// InvoiceNumberer allocates invoice numbers of the form
// {prefix}{YYYY}{MM}{NNNN}, e.g. INV-2026030007.
type InvoiceNumberer struct {
	prefix   string
	attempts int
	now      func() time.Time
	random   func() int
	logger   *zap.Logger
}

// NewInvoiceNumberer creates a numberer. attempts bounds how often a taken
// number is retried.
func NewInvoiceNumberer(prefix string, attempts int) *InvoiceNumberer {
	if prefix == "" {
		prefix = "INV-"
	}
	if attempts < 1 {
		attempts = 3
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &InvoiceNumberer{
		prefix:   prefix,
		attempts: attempts,
		now:      time.Now,
		random:   func() int { return 1000 + rng.Intn(9000) },
		logger:   util.GetLogger(),
	}
}

func (n *InvoiceNumberer) periodPrefix() string {
	return n.prefix + n.now().Format("200601")
}

// propose returns the next number for the current month: the highest
// existing suffix plus one, or a random four digit suffix when the lookup
// fails.
func (n *InvoiceNumberer) propose(ctx context.Context, q store.Queries) string {
	prefix := n.periodPrefix()
	seq, err := q.MaxInvoiceSequence(ctx, prefix)
	if err != nil {
		util.InvoiceNumberFallbackTotal.Inc()
		n.logger.Warn("Invoice sequence lookup failed, using random suffix",
			zap.String("prefix", prefix),
			zap.Error(err))
		return fmt.Sprintf("%s%04d", prefix, n.random())
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1)
}

// insert stores inv under a freshly allocated number. A number taken by a
// concurrent insert is retried with a new proposal.
func (n *InvoiceNumberer) insert(ctx context.Context, q store.Queries, inv *models.Invoice) error {
	var err error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		inv.InvoiceNumber = n.propose(ctx, q)
		err = q.InsertInvoice(ctx, inv)
		if !errors.Is(err, store.ErrDuplicateInvoiceNumber) {
			return err
		}
		n.logger.Warn("Invoice number already taken",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.Int("attempt", attempt))
	}
	return fmt.Errorf("no free invoice number after %d attempts: %w", n.attempts, err)
}
