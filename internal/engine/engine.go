package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"caseline/internal/audit"
	"caseline/internal/config"
	"caseline/internal/domain"
	"caseline/internal/facts"
	"caseline/internal/repo"
)

// Engine owns dossier lifecycle transitions, task seeding, auto-completion
// and the gates between them.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Audit  audit.Writer
	Facts  facts.Store
	Config *config.Config
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Audit:  audit.Writer{DB: db},
		Facts:  facts.SQLStore{DB: db},
		Config: cfg,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// GateCode tags the reason a transition was refused.
type GateCode string

const (
	GateInvalidTransition GateCode = "invalid_transition"
	GateLegalHold         GateCode = "legal_hold"
	GateOpenTasks         GateCode = "open_tasks"
	GateNoChange          GateCode = "no_change"
	GateReasonRequired    GateCode = "reason_required"
)

// GateError is a refused transition. It is always surfaced to the caller
// verbatim, never downgraded.
type GateError struct {
	Code       GateCode
	From       domain.Status
	To         domain.Status
	OpenTasks  int
	HoldReason string
}

func (e GateError) Error() string {
	switch e.Code {
	case GateInvalidTransition:
		return fmt.Sprintf("transition %s -> %s not allowed", e.From, e.To)
	case GateLegalHold:
		if e.HoldReason != "" {
			return fmt.Sprintf("dossier under legal hold: %s", e.HoldReason)
		}
		return "dossier under legal hold"
	case GateOpenTasks:
		return fmt.Sprintf("%d open task(s) block the transition", e.OpenTasks)
	case GateNoChange:
		return fmt.Sprintf("dossier already has status %s", e.To)
	case GateReasonRequired:
		return "a reason is required for a privileged override"
	default:
		return string(e.Code)
	}
}

// allowedTransitions is the edge set for non-privileged actors. Closed is
// terminal; reopening it is a privileged override.
var allowedTransitions = map[domain.Status][]domain.Status{
	domain.StatusCreated:     {domain.StatusInProgress},
	domain.StatusInProgress:  {domain.StatusUnderReview},
	domain.StatusUnderReview: {domain.StatusInProgress, domain.StatusCompleted},
	domain.StatusCompleted:   {domain.StatusClosed},
	domain.StatusClosed:      {},
}

func edgeAllowed(from, to domain.Status) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// DossierCreateOptions are parameters for opening a dossier.
type DossierCreateOptions struct {
	ID      string
	Ref     string
	Flow    domain.FlowType
	ActorID string
}

// CreateDossier opens a dossier in the created status and seeds the
// registration tasks for its flow.
func (e Engine) CreateDossier(ctx context.Context, opts DossierCreateOptions) (domain.Dossier, error) {
	if opts.Ref == "" {
		return domain.Dossier{}, errors.New("ref is required")
	}
	if opts.Flow == "" {
		opts.Flow = domain.FlowUnset
	}
	if !opts.Flow.Valid() {
		return domain.Dossier{}, fmt.Errorf("invalid flow %q", opts.Flow)
	}
	id := opts.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now().UTC().Format(time.RFC3339)
	d := domain.Dossier{
		ID:        id,
		Ref:       opts.Ref,
		Flow:      opts.Flow,
		Status:    domain.StatusCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Dossier{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertDossierTx(ctx, tx, d); err != nil {
		return domain.Dossier{}, fmt.Errorf("insert dossier: %w", err)
	}
	if err := e.Audit.Append(ctx, tx, "dossier.created", d.ID, "dossier", d.ID, opts.ActorID, audit.Payload{"ref": d.Ref, "flow": d.Flow}); err != nil {
		return domain.Dossier{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Dossier{}, err
	}
	if _, err := e.Seed(ctx, d.ID); err != nil {
		// Seeding is idempotent; the sweep retries it.
		log.Printf("seed after create %s: %v", d.ID, err)
	}
	return d, nil
}

// SetFlow assigns the flow-type of a dossier that was opened unset, then
// seeds the current phase for the chosen catalog.
func (e Engine) SetFlow(ctx context.Context, dossierID string, flow domain.FlowType, actorID string) (domain.Dossier, error) {
	if flow != domain.FlowLocal && flow != domain.FlowRepatriation {
		return domain.Dossier{}, fmt.Errorf("invalid flow %q", flow)
	}
	d, err := e.Repo.GetDossier(ctx, dossierID)
	if err != nil {
		return d, err
	}
	if d.Flow == flow {
		return d, nil
	}
	if d.Flow != domain.FlowUnset {
		return d, fmt.Errorf("flow already set to %s", d.Flow)
	}
	now := e.now().UTC().Format(time.RFC3339)
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetDossierFlowTx(ctx, tx, dossierID, flow, now); err != nil {
		return d, err
	}
	if err := e.Audit.Append(ctx, tx, "dossier.flow_set", dossierID, "dossier", dossierID, actorID, audit.Payload{"flow": flow}); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	d.Flow = flow
	d.UpdatedAt = now
	if _, err := e.Seed(ctx, dossierID); err != nil {
		log.Printf("seed after flow set %s: %v", dossierID, err)
	}
	return d, nil
}

// TransitionRequest is an inbound status-change request.
type TransitionRequest struct {
	DossierID  string
	Target     domain.Status
	ActorID    string
	Privileged bool
	Reason     string
}

// Transition validates a requested status change against the allowed-edge
// graph, the legal-hold gate and the open-task gate, then applies it
// atomically with its history event. Seeding for the new phase runs after
// commit; its failure never rolls the transition back.
func (e Engine) Transition(ctx context.Context, req TransitionRequest) (domain.StatusHistoryEvent, error) {
	if !req.Target.Valid() {
		return domain.StatusHistoryEvent{}, fmt.Errorf("invalid status %q", req.Target)
	}
	if req.ActorID == "" {
		return domain.StatusHistoryEvent{}, errors.New("actor is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.StatusHistoryEvent{}, err
	}
	defer tx.Rollback()

	// Re-read inside the tx: the dossier row is the serialization point,
	// two racing transitions must not both pass the gates on stale state.
	d, err := e.Repo.GetDossierTx(ctx, tx, req.DossierID)
	if err != nil {
		return domain.StatusHistoryEvent{}, err
	}
	if req.Target == d.Status {
		return domain.StatusHistoryEvent{}, GateError{Code: GateNoChange, From: d.Status, To: req.Target}
	}
	if d.LegalHold {
		reason := ""
		if d.LegalHoldReason != nil {
			reason = *d.LegalHoldReason
		}
		return domain.StatusHistoryEvent{}, GateError{Code: GateLegalHold, From: d.Status, To: req.Target, HoldReason: reason}
	}
	edgeOverride := false
	if !edgeAllowed(d.Status, req.Target) {
		if !req.Privileged {
			return domain.StatusHistoryEvent{}, GateError{Code: GateInvalidTransition, From: d.Status, To: req.Target}
		}
		if req.Reason == "" {
			return domain.StatusHistoryEvent{}, GateError{Code: GateReasonRequired, From: d.Status, To: req.Target}
		}
		edgeOverride = true
	}
	open, err := e.Repo.OpenTaskCountTx(ctx, tx, d.ID)
	if err != nil {
		return domain.StatusHistoryEvent{}, err
	}
	taskOverride := false
	if open > 0 {
		if !req.Privileged {
			return domain.StatusHistoryEvent{}, GateError{Code: GateOpenTasks, From: d.Status, To: req.Target, OpenTasks: open}
		}
		if req.Reason == "" {
			return domain.StatusHistoryEvent{}, GateError{Code: GateReasonRequired, From: d.Status, To: req.Target, OpenTasks: open}
		}
		taskOverride = true
	}

	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateDossierStatusTx(ctx, tx, d.ID, req.Target, now); err != nil {
		return domain.StatusHistoryEvent{}, err
	}
	ev := domain.StatusHistoryEvent{
		DossierID:  d.ID,
		FromStatus: d.Status,
		ToStatus:   req.Target,
		ActorID:    req.ActorID,
		TS:         now,
	}
	if req.Reason != "" {
		ev.Reason = &req.Reason
	}
	ev, err = e.Repo.InsertStatusHistoryTx(ctx, tx, ev)
	if err != nil {
		return domain.StatusHistoryEvent{}, err
	}
	payload := audit.Payload{"from": d.Status, "to": req.Target}
	if edgeOverride {
		payload["edge_override"] = true
	}
	if taskOverride {
		payload["open_task_override"] = open
	}
	if req.Reason != "" {
		payload["reason"] = req.Reason
	}
	if err := e.Audit.Append(ctx, tx, "dossier.transition", d.ID, "dossier", d.ID, req.ActorID, payload); err != nil {
		return domain.StatusHistoryEvent{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.StatusHistoryEvent{}, err
	}

	// Post-commit: seed the new phase. Failure is reported, not propagated;
	// the sweep retries out-of-band.
	if _, err := e.Seed(ctx, d.ID); err != nil {
		log.Printf("seed after transition %s -> %s: %v", d.ID, req.Target, err)
	}
	return ev, nil
}

// PlaceHold sets the legal-hold flag. Holds are not transitions; they are
// separately audited operations.
func (e Engine) PlaceHold(ctx context.Context, dossierID, reason, actorID string) error {
	if reason == "" {
		return errors.New("hold reason is required")
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.SetLegalHoldTx(ctx, tx, dossierID, true, &reason, now); err != nil {
		return err
	}
	if err := e.Audit.Append(ctx, tx, "dossier.hold_placed", dossierID, "dossier", dossierID, actorID, audit.Payload{"reason": reason}); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearHold lifts the legal hold.
func (e Engine) ClearHold(ctx context.Context, dossierID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.SetLegalHoldTx(ctx, tx, dossierID, false, nil, now); err != nil {
		return err
	}
	if err := e.Audit.Append(ctx, tx, "dossier.hold_cleared", dossierID, "dossier", dossierID, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// CompleteTask is the manual completion path used by the board, CLI and API.
func (e Engine) CompleteTask(ctx context.Context, taskID, actorID string, note string) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return t, err
	}
	if !t.Open() {
		return t, fmt.Errorf("task %s is not open", taskID)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	if err := e.Repo.CompleteTaskTx(ctx, tx, taskID, notePtr, now); err != nil {
		return t, err
	}
	dossierID := ""
	if t.DossierID != nil {
		dossierID = *t.DossierID
	}
	if err := e.Audit.Append(ctx, tx, "task.completed", dossierID, "task", t.ID, actorID, audit.Payload{"type": t.Type}); err != nil {
		return t, err
	}
	if err := tx.Commit(); err != nil {
		return t, err
	}
	t.Column = domain.ColumnDone
	t.CompletedAt = &now
	t.CompletionNote = notePtr
	return t, nil
}
