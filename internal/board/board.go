// Package board holds the in-memory kanban view of a task set and the
// optimistic move protocol against the backing store.
package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"caseline/internal/audit"
	"caseline/internal/domain"
	"caseline/internal/repo"
)

// ErrTaskNotFound is returned when a move names a task absent from the
// board snapshot.
var ErrTaskNotFound = errors.New("task not on board")

// BlockedError rejects a move of a blocked task before anything is
// persisted or applied locally.
type BlockedError struct {
	TaskID string
	Reason string
}

func (e BlockedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("task %s is blocked", e.TaskID)
	}
	return fmt.Sprintf("task %s is blocked: %s", e.TaskID, e.Reason)
}

// MoveError wraps a store failure after the local state was rolled back.
type MoveError struct {
	TaskID string
	Err    error
}

func (e MoveError) Error() string { return fmt.Sprintf("move task %s: %v", e.TaskID, e.Err) }
func (e MoveError) Unwrap() error { return e.Err }

// Store persists board mutations. NextPosition returns the append slot at
// the end of the target column; Move writes the column change and its
// activity record atomically.
type Store interface {
	NextPosition(ctx context.Context, dossierID *string, col domain.Column) (int, error)
	Move(ctx context.Context, task domain.Task, from, to domain.Column, position int, actorID string) error
}

// Board is a mutable snapshot of tasks. Moves apply locally first and roll
// back to the pre-move state when the store rejects the write, so the view
// never drifts from what was persisted.
type Board struct {
	store Store

	mu    sync.Mutex
	tasks []domain.Task
}

func New(store Store, tasks []domain.Task) *Board {
	b := &Board{store: store}
	b.tasks = append(b.tasks, tasks...)
	return b
}

// Tasks returns a copy of the current snapshot in column order.
func (b *Board) Tasks() []domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Move places the task at the end of the target column. Moving a task to
// the column it is already in is a no-op. Blocked tasks are rejected before
// any state changes.
func (b *Board) Move(ctx context.Context, taskID string, target domain.Column, actorID string) error {
	if !target.Valid() {
		return fmt.Errorf("unknown column %q", target)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrTaskNotFound
	}
	task := b.tasks[idx]
	if task.Blocked {
		reason := ""
		if task.BlockedReason != nil {
			reason = *task.BlockedReason
		}
		return BlockedError{TaskID: taskID, Reason: reason}
	}
	if task.Column == target {
		return nil
	}

	position, err := b.store.NextPosition(ctx, task.DossierID, target)
	if err != nil {
		return MoveError{TaskID: taskID, Err: err}
	}

	prev := task
	b.tasks[idx].Column = target
	b.tasks[idx].Position = position
	if err := b.store.Move(ctx, task, prev.Column, target, position, actorID); err != nil {
		b.tasks[idx] = prev
		return MoveError{TaskID: taskID, Err: err}
	}
	return nil
}

// SQLStore is the production Store: position lookup against the live table
// and a single transaction for the move plus its audit record.
type SQLStore struct {
	DB    *sql.DB
	Repo  repo.Repo
	Audit audit.Writer
}

func (s SQLStore) NextPosition(ctx context.Context, dossierID *string, col domain.Column) (int, error) {
	id := ""
	if dossierID != nil {
		id = *dossierID
	}
	max, err := s.Repo.MaxBoardPosition(ctx, id, col)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (s SQLStore) Move(ctx context.Context, task domain.Task, from, to domain.Column, position int, actorID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := s.Repo.MoveTaskTx(ctx, tx, task.ID, to, position); err != nil {
		return err
	}
	dossierID := ""
	if task.DossierID != nil {
		dossierID = *task.DossierID
	}
	if err := s.Audit.Append(ctx, tx, "task.moved", dossierID, "task", task.ID, actorID, audit.Payload{
		"type": task.Type,
		"from": from,
		"to":   to,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// FilterOptions narrow a task list for display. Zero values match
// everything.
type FilterOptions struct {
	Search     string
	Priority   domain.Priority
	AssigneeID string
}

// Filter returns the tasks matching every set option. It is a pure
// projection: the input is never mutated and hidden tasks keep their
// positions for when the filter is lifted.
func Filter(tasks []domain.Task, opts FilterOptions) []domain.Task {
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	var out []domain.Task
	for _, t := range tasks {
		if opts.Priority != "" && t.Priority != opts.Priority {
			continue
		}
		if opts.AssigneeID != "" && (t.AssigneeID == nil || *t.AssigneeID != opts.AssigneeID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}
