package api

import (
	"net/http"
	"strconv"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/service"

	"github.com/gin-gonic/gin"
)

type changeStatusRequest struct {
	Status models.ReservationStatus `json:"status" binding:"required"`
	Notes  string                   `json:"notes"`
}

type assignRoomRequest struct {
	RoomID int64 `json:"room_id" binding:"required"`
}

// createReservation handles reservation creation
func (h *Handler) createReservation(c *gin.Context) {
	var req service.CreateReservationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.reservations.CreateReservation(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// listReservations handles filtered, paged reservation listing
func (h *Handler) listReservations(c *gin.Context) {
	var filters models.ReservationFilters
	var err error

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseReservationStatus(raw)
		if err != nil {
			h.respondError(c, err)
			return
		}
		filters.Status = &status
	}
	if filters.RoomID, err = queryInt64(c, "room_id"); err != nil {
		h.respondError(c, err)
		return
	}
	if filters.CustomerID, err = queryInt64(c, "customer_id"); err != nil {
		h.respondError(c, err)
		return
	}
	if filters.From, err = queryDate(c, "from"); err != nil {
		h.respondError(c, err)
		return
	}
	if filters.To, err = queryDate(c, "to"); err != nil {
		h.respondError(c, err)
		return
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	reservations, total, err := h.reservations.ListReservations(c.Request.Context(), filters)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations": reservations,
		"total":        total,
		"page":         filters.Page,
	})
}

// getReservation handles get reservation by ID
func (h *Handler) getReservation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	reservation, services, err := h.reservations.GetReservation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reservation": reservation,
		"services":    services,
	})
}

// updateReservation handles partial reservation updates
func (h *Handler) updateReservation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req service.UpdateReservationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.reservations.UpdateReservation(c.Request.Context(), actorFrom(c), id, &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// changeReservationStatus handles status transitions such as check-in
func (h *Handler) changeReservationStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.reservations.ChangeStatus(c.Request.Context(), actorFrom(c), id, req.Status, req.Notes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// assignRoom handles assigning a room to a room-type booking
func (h *Handler) assignRoom(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req assignRoomRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.reservations.AssignRoom(c.Request.Context(), actorFrom(c), id, req.RoomID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// deleteReservation handles reservation removal
func (h *Handler) deleteReservation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.reservations.DeleteReservation(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// reservationLogs returns the reservation activity trail
func (h *Handler) reservationLogs(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	entries, err := h.reservations.ReservationLogs(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": entries})
}

// getReservationInvoice returns the invoice billed for a reservation
func (h *Handler) getReservationInvoice(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	details, err := h.invoices.GetInvoiceByReservation(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, details)
}
