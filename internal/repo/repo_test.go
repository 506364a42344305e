package repo_test

import (
	"context"
	"database/sql"
	"testing"

	"caseline/internal/db"
	"caseline/internal/domain"
	"caseline/internal/migrate"
	"caseline/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func insertDossier(t *testing.T, r repo.Repo, id string) domain.Dossier {
	t.Helper()
	d := domain.Dossier{
		ID:        id,
		Ref:       "REF-" + id,
		Flow:      domain.FlowLocal,
		Status:    domain.StatusCreated,
		CreatedAt: "2026-01-01T00:00:00Z",
		UpdatedAt: "2026-01-01T00:00:00Z",
	}
	withTx(t, r, func(tx *sql.Tx) {
		if err := r.InsertDossierTx(context.Background(), tx, d); err != nil {
			t.Fatalf("insert dossier: %v", err)
		}
	})
	return d
}

func withTx(t *testing.T, r repo.Repo, fn func(tx *sql.Tx)) {
	t.Helper()
	tx, err := r.DB.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	fn(tx)
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestTaskTypeUniquePerDossier(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	d := insertDossier(t, r, "d1")

	task := domain.Task{
		ID:        "t1",
		DossierID: &d.ID,
		Type:      "welcome",
		Title:     "Welcome call",
		Priority:  domain.PriorityMedium,
		Column:    domain.ColumnTodo,
		CreatedAt: "2026-01-01T00:00:00Z",
	}
	withTx(t, r, func(tx *sql.Tx) {
		if err := r.InsertTaskTx(ctx, tx, task); err != nil {
			t.Fatalf("first insert: %v", err)
		}
	})

	dup := task
	dup.ID = "t2"
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	err = r.InsertTaskTx(ctx, tx, dup)
	if err == nil {
		t.Fatalf("duplicate (dossier, type) accepted")
	}
	if !repo.IsUniqueViolation(err) {
		t.Fatalf("not recognized as unique violation: %v", err)
	}
}

func TestLooseTasksShareTypes(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	// The partial unique index only covers attached tasks.
	for _, id := range []string{"l1", "l2"} {
		task := domain.Task{
			ID:        id,
			Type:      "misc",
			Title:     "Loose item",
			Priority:  domain.PriorityLow,
			Column:    domain.ColumnTodo,
			CreatedAt: "2026-01-01T00:00:00Z",
		}
		withTx(t, r, func(tx *sql.Tx) {
			if err := r.InsertTaskTx(ctx, tx, task); err != nil {
				t.Fatalf("insert loose task %s: %v", id, err)
			}
		})
	}
	tasks, err := r.ListTasks(ctx, repo.TaskFilters{LooseOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 loose tasks, got %d", len(tasks))
	}
}

func TestArchiveDoneTasks(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	d := insertDossier(t, r, "d1")

	old := "2025-11-01T00:00:00Z"
	recent := "2026-01-20T00:00:00Z"
	for i, completedAt := range []string{old, recent} {
		task := domain.Task{
			ID:          []string{"t-old", "t-new"}[i],
			DossierID:   &d.ID,
			Type:        []string{"a", "b"}[i],
			Title:       "Done item",
			Priority:    domain.PriorityLow,
			Column:      domain.ColumnDone,
			CreatedAt:   "2025-10-01T00:00:00Z",
			CompletedAt: &completedAt,
		}
		withTx(t, r, func(tx *sql.Tx) {
			if err := r.InsertTaskTx(ctx, tx, task); err != nil {
				t.Fatal(err)
			}
		})
	}

	n, err := r.ArchiveDoneTasks(ctx, "2026-01-01T00:00:00Z", "2026-01-31T00:00:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("archived %d tasks, want 1", n)
	}
	visible, _ := r.ListTasks(ctx, repo.TaskFilters{DossierID: d.ID})
	if len(visible) != 1 || visible[0].ID != "t-new" {
		t.Fatalf("visible tasks after archive: %v", visible)
	}
	all, _ := r.ListTasks(ctx, repo.TaskFilters{DossierID: d.ID, IncludeArchived: true})
	if len(all) != 2 {
		t.Fatalf("archived task dropped from include_archived listing")
	}
}

func TestOpenTaskCountExcludesDoneAndArchived(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	d := insertDossier(t, r, "d1")

	archived := "2026-01-01T00:00:00Z"
	tasks := []domain.Task{
		{ID: "t1", Type: "a", Column: domain.ColumnTodo},
		{ID: "t2", Type: "b", Column: domain.ColumnDoing},
		{ID: "t3", Type: "c", Column: domain.ColumnDone},
		{ID: "t4", Type: "d", Column: domain.ColumnTodo, ArchivedAt: &archived},
	}
	for i := range tasks {
		tasks[i].DossierID = &d.ID
		tasks[i].Title = "Item"
		tasks[i].Priority = domain.PriorityLow
		tasks[i].CreatedAt = "2026-01-01T00:00:00Z"
		withTx(t, r, func(tx *sql.Tx) {
			if err := r.InsertTaskTx(ctx, tx, tasks[i]); err != nil {
				t.Fatal(err)
			}
		})
	}
	withTx(t, r, func(tx *sql.Tx) {
		n, err := r.OpenTaskCountTx(ctx, tx, d.ID)
		if err != nil {
			t.Fatal(err)
		}
		if n != 2 {
			t.Fatalf("open count %d, want 2", n)
		}
	})
}

func TestGetDossierNotFound(t *testing.T) {
	r := newRepo(t)
	if _, err := r.GetDossier(context.Background(), "missing"); err != repo.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditListNewestFirstWithCursor(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.DB.ExecContext(ctx,
			`INSERT INTO audit_log(ts, action, dossier_id, entity_kind, entity_id, actor_id, payload_json) VALUES (?,?,?,?,?,?,?)`,
			"2026-01-01T00:00:00Z", "dossier.created", "d1", "dossier", "d1", "tester", "{}")
		if err != nil {
			t.Fatal(err)
		}
	}
	entries, err := r.ListAudit(ctx, repo.AuditFilters{DossierID: "d1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 || entries[0].ID <= entries[1].ID {
		t.Fatalf("not newest first: %+v", entries)
	}
	page, err := r.ListAudit(ctx, repo.AuditFilters{DossierID: "d1", Cursor: entries[0].ID, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != entries[1].ID {
		t.Fatalf("cursor page wrong: %+v", page)
	}
}
