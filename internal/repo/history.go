package repo

import (
	"context"
	"database/sql"
	"strings"

	"caseline/internal/domain"
)

// InsertStatusHistoryTx appends the history row inside the transition's
// transaction and returns it with its assigned id.
func (r Repo) InsertStatusHistoryTx(ctx context.Context, tx *sql.Tx, ev domain.StatusHistoryEvent) (domain.StatusHistoryEvent, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO status_history(dossier_id,from_status,to_status,actor_id,reason,ts) VALUES (?,?,?,?,?,?)`,
		ev.DossierID, ev.FromStatus, ev.ToStatus, ev.ActorID, nullableStringPtr(ev.Reason), ev.TS)
	if err != nil {
		return ev, err
	}
	ev.ID, err = res.LastInsertId()
	return ev, err
}

func (r Repo) ListStatusHistory(ctx context.Context, dossierID string) ([]domain.StatusHistoryEvent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,dossier_id,from_status,to_status,actor_id,reason,ts FROM status_history WHERE dossier_id=? ORDER BY id`, dossierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusHistoryEvent
	for rows.Next() {
		var ev domain.StatusHistoryEvent
		var reason sql.NullString
		if err := rows.Scan(&ev.ID, &ev.DossierID, &ev.FromStatus, &ev.ToStatus, &ev.ActorID, &reason, &ev.TS); err != nil {
			return nil, err
		}
		if reason.Valid {
			ev.Reason = &reason.String
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

type AuditFilters struct {
	DossierID string
	Action    string
	Limit     int
	Cursor    int64
}

// ListAudit returns audit entries newest first.
func (r Repo) ListAudit(ctx context.Context, f AuditFilters) ([]domain.AuditEntry, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.DossierID != "" {
		clauses = append(clauses, "dossier_id=?")
		args = append(args, f.DossierID)
	}
	if f.Action != "" {
		clauses = append(clauses, "action=?")
		args = append(args, f.Action)
	}
	if f.Cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.Cursor)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id,ts,action,dossier_id,entity_kind,entity_id,actor_id,payload_json FROM audit_log WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var dossierID, entityID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Action, &dossierID, &e.EntityKind, &entityID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		if dossierID.Valid {
			e.DossierID = dossierID.String
		}
		if entityID.Valid {
			e.EntityID = entityID.String
		}
		if payload.Valid {
			e.Payload = payload.String
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
