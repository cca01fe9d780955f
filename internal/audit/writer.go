// Package audit writes the reservation and payment activity trails.
//
// Audit writes are best-effort relative to the business transaction they
// describe: a failed write is logged and counted, and handed back to the
// caller as a SideEffect instead of an error so it can never roll back the
// operation it records.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"frontdesk-service/internal/models"
	"frontdesk-service/internal/util"

	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
)

// Sink persists audit entries.
type Sink interface {
	InsertAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error
}

// Entry describes one mutating action.
type Entry struct {
	Trail     models.AuditTrail
	SubjectID int64
	Action    string
	Actor     models.Actor
	Previous  interface{}
	Next      interface{}
	Notes     string
}

// SideEffect is the outcome of a non-critical write. A failed SideEffect has
// already been reported; callers may inspect it but must not propagate it.
type SideEffect struct {
	Name  string
	LogID int64
	Err   error
}

// Failed reports whether the side effect did not happen.
func (s SideEffect) Failed() bool {
	return s.Err != nil
}

// Writer records audit entries.
type Writer struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewWriter creates a new audit writer
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = util.GetLogger()
	}
	return &Writer{logger: logger, now: time.Now}
}

// Record writes e to sink.
func (w *Writer) Record(ctx context.Context, sink Sink, e Entry) SideEffect {
	effect := SideEffect{Name: fmt.Sprintf("audit.%s.%s", e.Trail, e.Action)}

	entry, err := w.build(e)
	if err == nil {
		err = sink.InsertAuditEntry(ctx, entry)
	}
	if err != nil {
		effect.Err = err
		util.AuditWriteFailuresTotal.WithLabelValues(string(e.Trail), e.Action).Inc()
		w.logger.Error("Audit log write failed",
			zap.String("trail", string(e.Trail)),
			zap.String("action", e.Action),
			zap.Int64("subject_id", e.SubjectID),
			zap.Int64("actor_id", e.Actor.UserID),
			zap.Error(err))
		return effect
	}

	effect.LogID = entry.ID
	return effect
}

func (w *Writer) build(e Entry) (*models.AuditLogEntry, error) {
	prev, err := Snapshot(e.Previous)
	if err != nil {
		return nil, fmt.Errorf("previous state: %w", err)
	}
	next, err := Snapshot(e.Next)
	if err != nil {
		return nil, fmt.Errorf("new state: %w", err)
	}
	return &models.AuditLogEntry{
		Trail:         e.Trail,
		SubjectID:     e.SubjectID,
		ActionType:    e.Action,
		ActorID:       e.Actor.UserID,
		PreviousState: prev,
		NewState:      next,
		Notes:         e.Notes,
		ClientIP:      e.Actor.ClientIP,
		CreatedAt:     w.now(),
	}, nil
}

// Snapshot encodes v as JSON. A nil value yields a nil snapshot.
func Snapshot(v interface{}) (types.JSONText, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}
