package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"caseline/internal/audit"
	"caseline/internal/facts"
)

// Evaluate checks every open task of the dossier that carries an
// auto-complete rule against the trigger-fact store and flips the satisfied
// ones to done, recording which predicate fired. A fact-source error for
// one task never aborts the rest of the batch; errors are collected and
// returned alongside the completed task types.
func (e Engine) Evaluate(ctx context.Context, dossierID string) ([]string, []error) {
	tasks, err := e.Repo.OpenTasksWithRules(ctx, dossierID)
	if err != nil {
		return nil, []error{fmt.Errorf("load open tasks: %w", err)}
	}
	var done []string
	var errs []error
	for _, t := range tasks {
		rule := *t.AutoRuleJSON
		pred, err := facts.Parse(rule)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.Type, err))
			continue
		}
		ok, err := facts.Eval(ctx, e.Facts, dossierID, pred)
		if err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.Type, err))
			continue
		}
		if !ok {
			continue
		}
		if err := e.autoComplete(ctx, dossierID, t.ID, t.Type, rule); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", t.Type, err))
			continue
		}
		done = append(done, t.Type)
	}
	return done, errs
}

// autoComplete flips one task to done in its own transaction, stamping the
// satisfied rule on the task and in the audit log.
func (e Engine) autoComplete(ctx context.Context, dossierID, taskID, taskType, rule string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	note := "auto-completed: " + rule
	if err := e.Repo.CompleteTaskTx(ctx, tx, taskID, &note, now); err != nil {
		return err
	}
	if err := e.Audit.Append(ctx, tx, "task.auto_completed", dossierID, "task", taskID, "system", audit.Payload{
		"type": taskType,
		"rule": json.RawMessage(rule),
	}); err != nil {
		return err
	}
	return tx.Commit()
}
