package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"caseline/internal/domain"
)

const taskColumns = `id,dossier_id,type,title,description,priority,board_column,position,assignee_id,labels_json,due_date,blocked,blocked_reason,auto_rule_json,completion_note,catalog_version,created_at,completed_at,archived_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var dossierID, description, assigneeID, labels, dueDate, blockedReason, autoRule, note, completedAt, archivedAt sql.NullString
	var blocked int
	var catalogVersion sql.NullInt64
	err := scan(&t.ID, &dossierID, &t.Type, &t.Title, &description, &t.Priority, &t.Column, &t.Position,
		&assigneeID, &labels, &dueDate, &blocked, &blockedReason, &autoRule, &note, &catalogVersion,
		&t.CreatedAt, &completedAt, &archivedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Blocked = blocked != 0
	if dossierID.Valid {
		t.DossierID = &dossierID.String
	}
	if description.Valid {
		t.Description = description.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	if labels.Valid && labels.String != "" {
		_ = json.Unmarshal([]byte(labels.String), &t.Labels)
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if blockedReason.Valid {
		t.BlockedReason = &blockedReason.String
	}
	if autoRule.Valid {
		t.AutoRuleJSON = &autoRule.String
	}
	if note.Valid {
		t.CompletionNote = &note.String
	}
	if catalogVersion.Valid {
		v := int(catalogVersion.Int64)
		t.CatalogVersion = &v
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	if archivedAt.Valid {
		t.ArchivedAt = &archivedAt.String
	}
	return t, nil
}

func labelsJSON(labels []string) any {
	if len(labels) == 0 {
		return nil
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return nil
	}
	return string(b)
}

func (r Repo) InsertTaskTx(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, nullableStringPtr(t.DossierID), t.Type, t.Title, nullable(t.Description), t.Priority, t.Column, t.Position,
		nullableStringPtr(t.AssigneeID), labelsJSON(t.Labels), nullableStringPtr(t.DueDate), boolInt(t.Blocked),
		nullableStringPtr(t.BlockedReason), nullableStringPtr(t.AutoRuleJSON), nullableStringPtr(t.CompletionNote),
		nullableIntPtr(t.CatalogVersion), t.CreatedAt, nullableStringPtr(t.CompletedAt), nullableStringPtr(t.ArchivedAt))
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

type TaskFilters struct {
	DossierID       string
	LooseOnly       bool
	Column          domain.Column
	Type            string
	IncludeArchived bool
	Limit           int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.DossierID != "" {
		clauses = append(clauses, "dossier_id=?")
		args = append(args, f.DossierID)
	} else if f.LooseOnly {
		clauses = append(clauses, "dossier_id IS NULL")
	}
	if f.Column != "" {
		clauses = append(clauses, "board_column=?")
		args = append(args, f.Column)
	}
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if !f.IncludeArchived {
		clauses = append(clauses, "archived_at IS NULL")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY board_column, position, id`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// ExistingTaskTypesTx returns the set of task types already seeded for a
// dossier, archived ones included: an archived task still satisfied its
// template once.
func (r Repo) ExistingTaskTypesTx(ctx context.Context, tx *sql.Tx, dossierID string) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT type FROM tasks WHERE dossier_id=?`, dossierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	types := map[string]bool{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		types[t] = true
	}
	return types, rows.Err()
}

// MaxPositionTx returns the highest position in a column for a dossier, or
// -1 when the column is empty.
func (r Repo) MaxPositionTx(ctx context.Context, tx *sql.Tx, dossierID string, col domain.Column) (int, error) {
	var pos sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE dossier_id=? AND board_column=?`, dossierID, col).Scan(&pos)
	if err != nil {
		return -1, err
	}
	if !pos.Valid {
		return -1, nil
	}
	return int(pos.Int64), nil
}

// MaxBoardPosition is MaxPositionTx for board moves outside a seeding tx;
// loose tasks pass dossierID "".
func (r Repo) MaxBoardPosition(ctx context.Context, dossierID string, col domain.Column) (int, error) {
	query := `SELECT MAX(position) FROM tasks WHERE board_column=? AND dossier_id=?`
	args := []any{col, dossierID}
	if dossierID == "" {
		query = `SELECT MAX(position) FROM tasks WHERE board_column=? AND dossier_id IS NULL`
		args = []any{col}
	}
	var pos sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&pos); err != nil {
		return -1, err
	}
	if !pos.Valid {
		return -1, nil
	}
	return int(pos.Int64), nil
}

// OpenTaskCountTx counts non-done, non-archived tasks for the open-task gate.
func (r Repo) OpenTaskCountTx(ctx context.Context, tx *sql.Tx, dossierID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE dossier_id=? AND board_column != ? AND archived_at IS NULL`,
		dossierID, domain.ColumnDone).Scan(&n)
	return n, err
}

// OpenTasksWithRules returns open tasks carrying an auto-complete rule.
func (r Repo) OpenTasksWithRules(ctx context.Context, dossierID string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks
WHERE dossier_id=? AND board_column != ? AND archived_at IS NULL AND auto_rule_json IS NOT NULL
ORDER BY position, id`, dossierID, domain.ColumnDone)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// CompleteTaskTx moves a task to done with a completion note.
func (r Repo) CompleteTaskTx(ctx context.Context, tx *sql.Tx, id string, note *string, completedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET board_column=?, completion_note=?, completed_at=? WHERE id=? AND board_column != ?`,
		domain.ColumnDone, nullableStringPtr(note), completedAt, id, domain.ColumnDone)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MoveTaskTx persists a column change; position is the caller-computed
// append slot in the target column.
func (r Repo) MoveTaskTx(ctx context.Context, tx *sql.Tx, id string, col domain.Column, position int) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET board_column=?, position=? WHERE id=? AND archived_at IS NULL`, col, position, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetTaskBlocked(ctx context.Context, id string, blocked bool, reason *string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET blocked=?, blocked_reason=? WHERE id=?`,
		boolInt(blocked), nullableStringPtr(reason), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) AssignTask(ctx context.Context, id string, assignee *string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET assignee_id=? WHERE id=?`, nullableStringPtr(assignee), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveDoneTasks stamps archived_at on done tasks whose completion is
// older than the cutoff. Returns the number archived.
func (r Repo) ArchiveDoneTasks(ctx context.Context, cutoff, now string) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE tasks SET archived_at=? WHERE board_column=? AND archived_at IS NULL AND completed_at IS NOT NULL AND completed_at < ?`,
		now, domain.ColumnDone, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
