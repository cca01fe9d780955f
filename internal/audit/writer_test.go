package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"frontdesk-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sinkFunc func(ctx context.Context, entry *models.AuditLogEntry) error

func (f sinkFunc) InsertAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	return f(ctx, entry)
}

func TestRecordWritesEntry(t *testing.T) {
	w := NewWriter(zap.NewNop())
	w.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	var got *models.AuditLogEntry
	sink := sinkFunc(func(_ context.Context, e *models.AuditLogEntry) error {
		e.ID = 41
		got = e
		return nil
	})

	effect := w.Record(context.Background(), sink, Entry{
		Trail:     models.TrailReservation,
		SubjectID: 12,
		Action:    models.ActionStatusChange,
		Actor:     models.Actor{UserID: 3, Role: models.RoleFrontDesk, ClientIP: "10.0.0.8"},
		Previous:  map[string]string{"status": "Pending"},
		Next:      map[string]string{"status": "Confirmed"},
		Notes:     "guest called",
	})

	require.False(t, effect.Failed())
	assert.Equal(t, int64(41), effect.LogID)
	require.NotNil(t, got)
	assert.Equal(t, int64(12), got.SubjectID)
	assert.Equal(t, int64(3), got.ActorID)
	assert.Equal(t, "10.0.0.8", got.ClientIP)
	assert.JSONEq(t, `{"status":"Pending"}`, string(got.PreviousState))
	assert.JSONEq(t, `{"status":"Confirmed"}`, string(got.NewState))
	assert.Equal(t, 2026, got.CreatedAt.Year())
}

func TestRecordFailureIsReportedNotPropagated(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	w := NewWriter(zap.New(core))

	sink := sinkFunc(func(context.Context, *models.AuditLogEntry) error {
		return errors.New("payment_logs: relation does not exist")
	})

	effect := w.Record(context.Background(), sink, Entry{
		Trail:     models.TrailPayment,
		SubjectID: 5,
		Action:    models.ActionRecordPayment,
	})

	assert.True(t, effect.Failed())
	assert.Equal(t, "audit.payment.record_payment", effect.Name)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Audit log write failed", logs.All()[0].Message)
}

func TestRecordUnencodableSnapshot(t *testing.T) {
	w := NewWriter(zap.NewNop())
	called := false
	sink := sinkFunc(func(context.Context, *models.AuditLogEntry) error {
		called = true
		return nil
	})

	effect := w.Record(context.Background(), sink, Entry{
		Trail:    models.TrailReservation,
		Action:   models.ActionUpdate,
		Previous: make(chan int),
	})

	assert.True(t, effect.Failed())
	assert.False(t, called)
}

func TestSnapshotNil(t *testing.T) {
	snap, err := Snapshot(nil)
	require.NoError(t, err)
	assert.Nil(t, snap)
}
