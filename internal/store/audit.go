package store

import (
	"context"
	"fmt"

	"frontdesk-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
)

// auditTable returns the table and subject column of a trail.
func auditTable(trail models.AuditTrail) (string, string, error) {
	switch trail {
	case models.TrailReservation:
		return "reservation_logs", "reservation_id", nil
	case models.TrailPayment:
		return "payment_logs", "invoice_id", nil
	}
	return "", "", fmt.Errorf("unknown audit trail %q", trail)
}

func jsonOrNull(j types.JSONText) interface{} {
	if len(j) == 0 {
		return nil
	}
	return []byte(j)
}

// InsertAuditEntry appends an entry to its trail. Inside a transaction the
// insert runs under a savepoint, so a failed audit write never aborts the
// business writes around it.
func (q *queries) InsertAuditEntry(ctx context.Context, e *models.AuditLogEntry) error {
	table, column, err := auditTable(e.Trail)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, action_type, actor_id, previous_state, new_state, notes, client_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`, table, column)

	return q.withSavepoint(ctx, "audit_log", func() error {
		return sqlx.GetContext(ctx, q.ext, &e.ID, query,
			e.SubjectID, e.ActionType, e.ActorID, jsonOrNull(e.PreviousState), jsonOrNull(e.NewState),
			e.Notes, e.ClientIP, e.CreatedAt)
	})
}

// ListAuditEntries returns the trail of one subject, oldest first
func (q *queries) ListAuditEntries(ctx context.Context, trail models.AuditTrail, subjectID int64) ([]models.AuditLogEntry, error) {
	table, column, err := auditTable(trail)
	if err != nil {
		return nil, err
	}

	entries := []models.AuditLogEntry{}
	query := fmt.Sprintf(`
		SELECT id, %s AS subject_id, action_type, actor_id, previous_state, new_state, notes, client_ip, created_at
		FROM %s WHERE %s = $1 ORDER BY created_at, id`, column, table, column)
	if err := sqlx.SelectContext(ctx, q.ext, &entries, query, subjectID); err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Trail = trail
	}
	return entries, nil
}
