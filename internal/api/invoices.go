package api

import (
	"net/http"

	"frontdesk-service/internal/service"

	"github.com/gin-gonic/gin"
)

// createInvoice handles invoice creation for a reservation
func (h *Handler) createInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.invoices.CreateInvoice(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// getInvoice returns an invoice with its items and payments
func (h *Handler) getInvoice(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	details, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}

// updateInvoice handles due date, notes and payment status edits
func (h *Handler) updateInvoice(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req service.UpdateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.invoices.UpdateInvoice(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// deleteInvoice handles invoice removal
func (h *Handler) deleteInvoice(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.invoices.DeleteInvoice(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// recordPayment handles a payment against an invoice. The Idempotency-Key
// header deduplicates retried submissions.
func (h *Handler) recordPayment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req service.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.IdempotencyKey = c.GetHeader("Idempotency-Key")

	result, err := h.invoices.RecordPayment(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// invoiceLogs returns the payment activity trail of an invoice
func (h *Handler) invoiceLogs(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	entries, err := h.invoices.InvoiceLogs(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}
