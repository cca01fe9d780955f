package store

import (
	"context"
	"database/sql"
	"errors"

	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetRoom retrieves a room by ID
func (q *queries) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	return q.getRoom(ctx, id, "")
}

// GetRoomForUpdate retrieves a room and locks its row. Bookings for the same
// room serialize on this lock.
func (q *queries) GetRoomForUpdate(ctx context.Context, id int64) (*models.Room, error) {
	return q.getRoom(ctx, id, " FOR UPDATE")
}

func (q *queries) getRoom(ctx context.Context, id int64, lock string) (*models.Room, error) {
	var room models.Room
	err := sqlx.GetContext(ctx, q.ext, &room,
		"SELECT id, room_number, floor, room_type_id, status, updated_at FROM rooms WHERE id = $1"+lock, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("room", id)
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms retrieves all rooms
func (q *queries) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms := []models.Room{}
	err := sqlx.SelectContext(ctx, q.ext, &rooms,
		"SELECT id, room_number, floor, room_type_id, status, updated_at FROM rooms ORDER BY floor, room_number")
	return rooms, err
}

// UpdateRoomStatus updates room status
func (q *queries) UpdateRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error {
	return q.execAffected(ctx, "room", id,
		"UPDATE rooms SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
}
