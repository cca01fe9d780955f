package worker

import (
	"context"

	"frontdesk-service/internal/broker"
	"frontdesk-service/internal/models"
	"frontdesk-service/internal/service"
	"frontdesk-service/internal/util"

	"go.uber.org/zap"
)

// RoomBoardWorker keeps the room board projection in step with committed
// reservation changes.
type RoomBoardWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	rooms        *service.RoomService
	logger       *zap.Logger
}

// NewRoomBoardWorker creates a new room board worker
func NewRoomBoardWorker(consumer *broker.Consumer, rooms *service.RoomService) *RoomBoardWorker {
	w := &RoomBoardWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		rooms:        rooms,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnReservationEvent(rooms.ApplyReservationEvent)
	w.eventHandler.OnInvoiceEvent(w.observeInvoiceEvent)

	return w
}

// Start starts the worker
func (w *RoomBoardWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting room board worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RoomBoardWorker) Stop() error {
	w.logger.Info("Stopping room board worker")
	return w.consumer.Close()
}

// Invoice events share the topic but do not touch room state.
func (w *RoomBoardWorker) observeInvoiceEvent(_ context.Context, event *models.InvoiceEvent) error {
	w.logger.Debug("Invoice event observed",
		zap.String("event_type", event.EventType),
		zap.Int64("invoice_id", event.InvoiceID),
		zap.String("payment_status", string(event.PaymentStatus)))
	return nil
}
