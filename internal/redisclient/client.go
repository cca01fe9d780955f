package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"frontdesk-service/internal/models"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/set_room_status.lua
var setRoomStatusScript string

const (
	roomBoardKey   = "rooms:board"
	roomBoardTSKey = "rooms:board:ts"
)

type Client struct {
	rdb              *redis.Client
	roomStatusScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewClientFromRedis(rdb), nil
}

// NewClientFromRedis wraps an existing connection.
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:              rdb,
		roomStatusScript: redis.NewScript(setRoomStatusScript),
	}
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func idempotencyKey(key string) string {
	return "idempotency:" + key
}

// Claim stores an idempotency key with TTL. It returns false when the key
// was already claimed.
func (c *Client) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, idempotencyKey(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key: %w", err)
	}
	return ok, nil
}

// Release forgets an idempotency key
func (c *Client) Release(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}

// SetRoomStatus atomically records a room status on the board unless a
// newer one is already there. It reports whether the update was applied.
func (c *Client) SetRoomStatus(ctx context.Context, roomID int64, status models.RoomStatus, at time.Time) (bool, error) {
	result, err := c.roomStatusScript.Run(ctx, c.rdb,
		[]string{roomBoardKey, roomBoardTSKey},
		strconv.FormatInt(roomID, 10), string(status), at.UnixMilli()).Result()
	if err != nil {
		return false, fmt.Errorf("set room status script failed: %w", err)
	}

	applied, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type %T", result)
	}

	return applied == 1, nil
}

// GetBoard retrieves the status of every room on the board
func (c *Client) GetBoard(ctx context.Context) (map[int64]models.RoomStatus, error) {
	result, err := c.rdb.HGetAll(ctx, roomBoardKey).Result()
	if err != nil {
		return nil, err
	}

	board := make(map[int64]models.RoomStatus, len(result))
	for field, status := range result {
		roomID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed room id %q on board: %w", field, err)
		}
		board[roomID] = models.RoomStatus(status)
	}

	return board, nil
}
