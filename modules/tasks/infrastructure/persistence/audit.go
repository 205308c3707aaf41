package persistence

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/types"
)

type AuditPGRecorder struct {
	pool pgBeginner
}

func NewAuditPGRecorder(pool pgBeginner) *AuditPGRecorder {
	return &AuditPGRecorder{pool: pool}
}

func (r *AuditPGRecorder) Record(ctx context.Context, e types.AuditEntry) error {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	b, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return inTeam(ctx, r.pool, e.TeamID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
	INSERT INTO audit_log (id, team_id, user_id, action, entity_type, entity_id, details, at)
	VALUES ($1::uuid, $2, $3, $4, $5, $6, $7::jsonb, $8)
	`, e.ID, e.TeamID, e.UserID, e.Action, e.EntityType, e.EntityID, string(b), e.At)
		return err
	})
}

// AuditLogRecorder writes audit entries to a structured logger. Used with the memory backend.
type AuditLogRecorder struct {
	logger *slog.Logger
}

func NewAuditLogRecorder(logger *slog.Logger) *AuditLogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogRecorder{logger: logger}
}

func (r *AuditLogRecorder) Record(ctx context.Context, e types.AuditEntry) error {
	r.logger.InfoContext(ctx, "audit",
		"audit_id", e.ID,
		"team_id", e.TeamID,
		"user_id", e.UserID,
		"action", e.Action,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
		"details", e.Details,
	)
	return nil
}
