package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/project-atlas/readiness/internal/readiness/domain"
)

type auditLogsRepo struct {
	q dbtx
}

func (r *auditLogsRepo) CreateAuditEntry(ctx context.Context, e domain.AuditEntry) error {
	details, err := marshalJSON(e.Details)
	if err != nil {
		return err
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	var actorID sql.NullString
	if e.ActorID != nil {
		actorID = sql.NullString{String: *e.ActorID, Valid: true}
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO audit_logs (id, actor_id, action, target_resource, details, ip_address, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, actorID, e.Action, e.TargetResource, details, e.IPAddress, ts)
	return mapConstraint(err)
}

func (r *auditLogsRepo) ListAuditEntriesByActor(ctx context.Context, actorID string) ([]domain.AuditEntry, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, actor_id, action, target_resource, details, ip_address, ts
		 FROM audit_logs WHERE actor_id = ? ORDER BY ts DESC`, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var (
			e       domain.AuditEntry
			actor   sql.NullString
			details string
		)
		if err := rows.Scan(&e.ID, &actor, &e.Action, &e.TargetResource,
			&details, &e.IPAddress, &e.Timestamp); err != nil {
			return nil, err
		}
		if actor.Valid {
			val := actor.String
			e.ActorID = &val
		}
		e.Details = unmarshalJSON(details)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *auditLogsRepo) CountAuditEntries(ctx context.Context) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`).Scan(&count)
	return count, err
}

func (r *auditLogsRepo) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM audit_logs WHERE ts < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
