package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"caseline/internal/config"
	"caseline/internal/db"
	"caseline/internal/domain"
	"caseline/internal/engine"
	"caseline/internal/migrate"
	"caseline/internal/repo"
)

func taskFilter(dossierID string) repo.TaskFilters {
	return repo.TaskFilters{DossierID: dossierID}
}

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func mustCreate(t *testing.T, env testEnv, ref string, flow domain.FlowType) domain.Dossier {
	t.Helper()
	d, err := env.Engine.CreateDossier(env.Ctx, engine.DossierCreateOptions{
		Ref:     ref,
		Flow:    flow,
		ActorID: "tester",
	})
	if err != nil {
		t.Fatalf("create dossier: %v", err)
	}
	return d
}

func completeAllTasks(t *testing.T, env testEnv, dossierID string) {
	t.Helper()
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, taskFilter(dossierID))
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	for _, task := range tasks {
		if !task.Open() {
			continue
		}
		if _, err := env.Engine.CompleteTask(env.Ctx, task.ID, "tester", ""); err != nil {
			t.Fatalf("complete %s: %v", task.Type, err)
		}
	}
}

func TestCreateSeedsRegistrationTasks(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-001", domain.FlowLocal)

	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, taskFilter(d.ID))
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 registration tasks, got %d", len(tasks))
	}
	want := map[string]bool{"welcome": true, "family_contact": true, "gdpr_consent": true}
	for _, task := range tasks {
		if !want[task.Type] {
			t.Errorf("unexpected task type %s", task.Type)
		}
		if task.Column != domain.ColumnTodo {
			t.Errorf("task %s not in todo: %s", task.Type, task.Column)
		}
		if task.CatalogVersion == nil {
			t.Errorf("task %s missing catalog version", task.Type)
		}
		if task.AutoRuleJSON != nil {
			t.Errorf("registration task %s should be manual", task.Type)
		}
	}
}

func TestCreateAndFlowSetAreAudited(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-AUD", domain.FlowUnset)
	if _, err := env.Engine.SetFlow(env.Ctx, d.ID, domain.FlowLocal, "tester"); err != nil {
		t.Fatalf("set flow: %v", err)
	}

	entries, err := env.Engine.Repo.ListAudit(env.Ctx, repo.AuditFilters{DossierID: d.ID})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.Action] = true
	}
	for _, action := range []string{"dossier.created", "dossier.flow_set"} {
		if !seen[action] {
			t.Errorf("audit entry %s missing", action)
		}
	}
}

func TestSeederIdempotent(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-002", domain.FlowLocal)

	created, err := env.Engine.Seed(env.Ctx, d.ID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if created != 0 {
		t.Fatalf("second seed created %d tasks, want 0", created)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, taskFilter(d.ID))
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("task set changed: %d", len(tasks))
	}
}

func TestSeederConcurrentCallsCreateEachTaskOnce(t *testing.T) {
	env := newTestEnv(t)

	// Insert the dossier row without the creation-time seeding so every
	// goroutine races on an empty task set.
	d := domain.Dossier{
		ID:        "race-1",
		Ref:       "CASE-RACE",
		Flow:      domain.FlowLocal,
		Status:    domain.StatusCreated,
		CreatedAt: "2026-01-01T00:00:00Z",
		UpdatedAt: "2026-01-01T00:00:00Z",
	}
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.Repo.InsertDossierTx(env.Ctx, tx, d); err != nil {
		t.Fatalf("insert dossier: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	const callers = 8
	var wg sync.WaitGroup
	created := make([]int, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created[i], errs[i] = env.Engine.Seed(env.Ctx, d.ID)
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("seed %d: %v", i, errs[i])
		}
		total += created[i]
	}
	if total != 3 {
		t.Fatalf("callers reported %d tasks created in total, want 3", total)
	}
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, taskFilter(d.ID))
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("race produced %d tasks, want 3", len(tasks))
	}
	seen := map[string]bool{}
	for _, task := range tasks {
		if seen[task.Type] {
			t.Fatalf("task type %s seeded twice", task.Type)
		}
		seen[task.Type] = true
	}
}

func TestUnsetFlowSeedsNothing(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-003", domain.FlowUnset)

	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, taskFilter(d.ID))
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("unset flow seeded %d tasks", len(tasks))
	}

	if _, err := env.Engine.SetFlow(env.Ctx, d.ID, domain.FlowLocal, "tester"); err != nil {
		t.Fatalf("set flow: %v", err)
	}
	tasks, _ = env.Engine.Repo.ListTasks(env.Ctx, taskFilter(d.ID))
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks after flow set, got %d", len(tasks))
	}

	// A second flow change is rejected.
	if _, err := env.Engine.SetFlow(env.Ctx, d.ID, domain.FlowRepatriation, "tester"); err == nil {
		t.Fatalf("expected error changing an already-set flow")
	}
}

func TestOpenTasksGate(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-004", domain.FlowLocal)

	_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID: d.ID,
		Target:    domain.StatusInProgress,
		ActorID:   "tester",
	})
	var ge engine.GateError
	if !errors.As(err, &ge) || ge.Code != engine.GateOpenTasks {
		t.Fatalf("expected open_tasks gate, got %v", err)
	}
	if ge.OpenTasks != 3 {
		t.Fatalf("expected exact open count 3, got %d", ge.OpenTasks)
	}
	events, _ := env.Engine.Repo.ListStatusHistory(env.Ctx, d.ID)
	if len(events) != 0 {
		t.Fatalf("refused transition wrote %d history events", len(events))
	}
}

func TestOpenTasksPrivilegedOverride(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-005", domain.FlowLocal)

	// Privileged without a reason is still refused.
	_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID:  d.ID,
		Target:     domain.StatusInProgress,
		ActorID:    "boss",
		Privileged: true,
	})
	var ge engine.GateError
	if !errors.As(err, &ge) || ge.Code != engine.GateReasonRequired {
		t.Fatalf("expected reason_required, got %v", err)
	}

	ev, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID:  d.ID,
		Target:     domain.StatusInProgress,
		ActorID:    "boss",
		Privileged: true,
		Reason:     "family emergency, tasks deferred",
	})
	if err != nil {
		t.Fatalf("privileged override: %v", err)
	}
	if ev.Reason == nil || *ev.Reason == "" {
		t.Fatalf("override reason not recorded on history event")
	}
}

func TestLegalHoldGate(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-006", domain.FlowUnset)
	if err := env.Engine.PlaceHold(env.Ctx, d.ID, "coroner inquiry", "legal"); err != nil {
		t.Fatalf("place hold: %v", err)
	}

	for _, privileged := range []bool{false, true} {
		_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
			DossierID:  d.ID,
			Target:     domain.StatusInProgress,
			ActorID:    "tester",
			Privileged: privileged,
			Reason:     "attempt",
		})
		var ge engine.GateError
		if !errors.As(err, &ge) || ge.Code != engine.GateLegalHold {
			t.Fatalf("privileged=%v: expected legal_hold gate, got %v", privileged, err)
		}
		if ge.HoldReason != "coroner inquiry" {
			t.Fatalf("hold reason not surfaced: %q", ge.HoldReason)
		}
	}
	got, _ := env.Engine.Repo.GetDossier(env.Ctx, d.ID)
	if got.Status != domain.StatusCreated {
		t.Fatalf("status changed under hold: %s", got.Status)
	}

	// Clearing the hold unblocks the transition.
	if err := env.Engine.ClearHold(env.Ctx, d.ID, "legal"); err != nil {
		t.Fatalf("clear hold: %v", err)
	}
	if _, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID: d.ID,
		Target:    domain.StatusInProgress,
		ActorID:   "tester",
	}); err != nil {
		t.Fatalf("transition after hold cleared: %v", err)
	}
}

func TestPlaceHoldRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-007", domain.FlowUnset)
	if err := env.Engine.PlaceHold(env.Ctx, d.ID, "", "legal"); err == nil {
		t.Fatalf("expected error placing hold without reason")
	}
}

func TestNoChangeRejected(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-008", domain.FlowUnset)

	_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID: d.ID,
		Target:    domain.StatusCreated,
		ActorID:   "tester",
	})
	var ge engine.GateError
	if !errors.As(err, &ge) || ge.Code != engine.GateNoChange {
		t.Fatalf("expected no_change gate, got %v", err)
	}
	events, _ := env.Engine.Repo.ListStatusHistory(env.Ctx, d.ID)
	if len(events) != 0 {
		t.Fatalf("no-op transition wrote history")
	}
}

func TestInvalidTransitionEdge(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-009", domain.FlowUnset)

	_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID: d.ID,
		Target:    domain.StatusCompleted,
		ActorID:   "tester",
	})
	var ge engine.GateError
	if !errors.As(err, &ge) || ge.Code != engine.GateInvalidTransition {
		t.Fatalf("expected invalid_transition, got %v", err)
	}

	// Privileged may jump the graph, but only with a reason.
	_, err = env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID:  d.ID,
		Target:     domain.StatusCompleted,
		ActorID:    "boss",
		Privileged: true,
	})
	if !errors.As(err, &ge) || ge.Code != engine.GateReasonRequired {
		t.Fatalf("expected reason_required, got %v", err)
	}
	if _, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID:  d.ID,
		Target:     domain.StatusCompleted,
		ActorID:    "boss",
		Privileged: true,
		Reason:     "imported from legacy system",
	}); err != nil {
		t.Fatalf("privileged edge override: %v", err)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-010", domain.FlowUnset)

	steps := []domain.Status{
		domain.StatusInProgress,
		domain.StatusUnderReview,
		domain.StatusCompleted,
		domain.StatusClosed,
	}
	for _, target := range steps {
		if _, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
			DossierID: d.ID,
			Target:    target,
			ActorID:   "tester",
		}); err != nil {
			t.Fatalf("to %s: %v", target, err)
		}
	}
	_, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID: d.ID,
		Target:    domain.StatusInProgress,
		ActorID:   "tester",
	})
	var ge engine.GateError
	if !errors.As(err, &ge) || ge.Code != engine.GateInvalidTransition {
		t.Fatalf("expected closed to be terminal, got %v", err)
	}
}

func TestReviewBouncesBackToInProgress(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-011", domain.FlowUnset)

	for _, target := range []domain.Status{domain.StatusInProgress, domain.StatusUnderReview, domain.StatusInProgress} {
		if _, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
			DossierID: d.ID,
			Target:    target,
			ActorID:   "tester",
		}); err != nil {
			t.Fatalf("to %s: %v", target, err)
		}
	}
	got, _ := env.Engine.Repo.GetDossier(env.Ctx, d.ID)
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status %s after review bounce", got.Status)
	}
}

func TestHistoryPairsEveryTransition(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-012", domain.FlowUnset)

	steps := []domain.Status{
		domain.StatusInProgress,
		domain.StatusUnderReview,
		domain.StatusCompleted,
		domain.StatusClosed,
	}
	for _, target := range steps {
		if _, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
			DossierID: d.ID,
			Target:    target,
			ActorID:   "tester",
		}); err != nil {
			t.Fatalf("to %s: %v", target, err)
		}
	}
	events, err := env.Engine.Repo.ListStatusHistory(env.Ctx, d.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != len(steps) {
		t.Fatalf("expected %d events, got %d", len(steps), len(events))
	}
	prev := domain.StatusCreated
	for i, ev := range events {
		if ev.FromStatus != prev || ev.ToStatus != steps[i] {
			t.Fatalf("event %d: %s -> %s, want %s -> %s", i, ev.FromStatus, ev.ToStatus, prev, steps[i])
		}
		prev = ev.ToStatus
	}
}

func TestLocalDossierLifecycle(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-013", domain.FlowLocal)

	completeAllTasks(t, env, d.ID)
	ev, err := env.Engine.Transition(env.Ctx, engine.TransitionRequest{
		DossierID: d.ID,
		Target:    domain.StatusInProgress,
		ActorID:   "tester",
	})
	if err != nil {
		t.Fatalf("transition with all tasks done: %v", err)
	}
	if ev.FromStatus != domain.StatusCreated || ev.ToStatus != domain.StatusInProgress {
		t.Fatalf("unexpected event %s -> %s", ev.FromStatus, ev.ToStatus)
	}

	// The intake phase seeds 4 more tasks on top of the 3 done ones.
	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, taskFilter(d.ID))
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	open := 0
	for _, task := range tasks {
		if task.Open() {
			open++
		}
	}
	if len(tasks) != 7 || open != 4 {
		t.Fatalf("expected 7 tasks with 4 open after intake, got %d/%d", len(tasks), open)
	}
}

func TestCompleteTaskTwiceFails(t *testing.T) {
	env := newTestEnv(t)
	d := mustCreate(t, env, "CASE-014", domain.FlowLocal)
	tasks, _ := env.Engine.Repo.ListTasks(env.Ctx, taskFilter(d.ID))
	done, err := env.Engine.CompleteTask(env.Ctx, tasks[0].ID, "tester", "called the family")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Column != domain.ColumnDone || done.CompletedAt == nil {
		t.Fatalf("task not marked done")
	}
	if _, err := env.Engine.CompleteTask(env.Ctx, tasks[0].ID, "tester", ""); err == nil {
		t.Fatalf("expected error completing a done task")
	}
}
