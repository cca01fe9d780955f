package service

import (
	"context"
	"time"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"go.uber.org/zap"
)

// RoomBoard is a fast read projection of room statuses.
type RoomBoard interface {
	SetRoomStatus(ctx context.Context, roomID int64, status models.RoomStatus, at time.Time) (bool, error)
	GetBoard(ctx context.Context) (map[int64]models.RoomStatus, error)
}

// RoomService serves room listings and the room board
type RoomService struct {
	store  Store
	board  RoomBoard
	logger *zap.Logger
}

// NewRoomService creates a new room service. board may be nil, in which
// case the board is read from the database.
func NewRoomService(store Store, board RoomBoard) *RoomService {
	return &RoomService{
		store:  store,
		board:  board,
		logger: util.GetLogger(),
	}
}

// ListRooms retrieves all rooms
func (s *RoomService) ListRooms(ctx context.Context) ([]models.Room, error) {
	return s.store.Queries().ListRooms(ctx)
}

// Board returns the status of every room, from the projection when it is
// available and from the database otherwise.
func (s *RoomService) Board(ctx context.Context) (map[int64]models.RoomStatus, error) {
	ctx, span := util.StartSpan(ctx, "RoomService.Board")
	defer span.End()

	if s.board != nil {
		board, err := s.board.GetBoard(ctx)
		if err == nil && len(board) > 0 {
			return board, nil
		}
		if err != nil {
			s.logger.Warn("Room board unavailable, reading from database", zap.Error(err))
		}
	}

	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	board := make(map[int64]models.RoomStatus, len(rooms))
	for _, room := range rooms {
		board[room.ID] = room.Status
	}
	return board, nil
}

// SyncRoomBoard copies the current room statuses into the projection.
func (s *RoomService) SyncRoomBoard(ctx context.Context) error {
	if s.board == nil {
		return nil
	}

	rooms, err := s.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if _, err := s.board.SetRoomStatus(ctx, room.ID, room.Status, room.UpdatedAt); err != nil {
			return err
		}
	}

	s.logger.Info("Room board synchronized", zap.Int("rooms", len(rooms)))
	return nil
}

// ApplyReservationEvent projects the room status carried by a reservation
// event onto the board. Events older than the board entry are ignored.
func (s *RoomService) ApplyReservationEvent(ctx context.Context, event *models.ReservationEvent) error {
	if s.board == nil || event.RoomID == nil || event.RoomStatus == nil {
		return nil
	}

	applied, err := s.board.SetRoomStatus(ctx, *event.RoomID, *event.RoomStatus, event.Timestamp)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("Stale room status event skipped",
			zap.String("event_id", event.EventID),
			zap.Int64("room_id", *event.RoomID))
	}
	return nil
}
