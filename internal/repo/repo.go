package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"caseline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// IsUniqueViolation reports whether err is a storage-level uniqueness
// failure. The seeder treats a duplicate (dossier, task type) insert as a
// successful no-op.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

const dossierColumns = `id,ref,flow,status,legal_hold,legal_hold_reason,created_at,updated_at`

func scanDossier(scan func(dest ...any) error) (domain.Dossier, error) {
	var d domain.Dossier
	var hold int
	var reason sql.NullString
	err := scan(&d.ID, &d.Ref, &d.Flow, &d.Status, &hold, &reason, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.LegalHold = hold != 0
	if reason.Valid {
		d.LegalHoldReason = &reason.String
	}
	return d, nil
}

func (r Repo) InsertDossierTx(ctx context.Context, tx *sql.Tx, d domain.Dossier) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO dossiers(`+dossierColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		d.ID, d.Ref, d.Flow, d.Status, boolInt(d.LegalHold), nullableStringPtr(d.LegalHoldReason), d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDossier(ctx context.Context, id string) (domain.Dossier, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+dossierColumns+` FROM dossiers WHERE id=?`, id)
	return scanDossier(row.Scan)
}

// GetDossierTx re-reads the dossier inside a transaction so gate checks see
// the serialized state, not a stale pre-tx read.
func (r Repo) GetDossierTx(ctx context.Context, tx *sql.Tx, id string) (domain.Dossier, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+dossierColumns+` FROM dossiers WHERE id=?`, id)
	return scanDossier(row.Scan)
}

type DossierFilters struct {
	Flow   domain.FlowType
	Status domain.Status
	Limit  int
}

func (r Repo) ListDossiers(ctx context.Context, f DossierFilters) ([]domain.Dossier, error) {
	var clauses []string
	var args []any
	if f.Flow != "" {
		clauses = append(clauses, "flow=?")
		args = append(args, f.Flow)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + dossierColumns + ` FROM dossiers ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Dossier
	for rows.Next() {
		d, err := scanDossier(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// ListActiveDossierIDs returns dossiers that are not closed; the sweep
// evaluates these.
func (r Repo) ListActiveDossierIDs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM dossiers WHERE status != ?`, domain.StatusClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r Repo) UpdateDossierStatusTx(ctx context.Context, tx *sql.Tx, id string, status domain.Status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE dossiers SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetDossierFlowTx(ctx context.Context, tx *sql.Tx, id string, flow domain.FlowType, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE dossiers SET flow=?, updated_at=? WHERE id=?`, flow, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetLegalHoldTx(ctx context.Context, tx *sql.Tx, id string, hold bool, reason *string, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE dossiers SET legal_hold=?, legal_hold_reason=?, updated_at=? WHERE id=?`,
		boolInt(hold), nullableStringPtr(reason), updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
