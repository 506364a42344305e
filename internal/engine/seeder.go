package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"caseline/internal/audit"
	"caseline/internal/catalog"
	"caseline/internal/domain"
	"caseline/internal/repo"
)

// Seed instantiates the missing template tasks for the dossier's flow and
// current phase. It is idempotent: the set difference against existing task
// types plus the (dossier, type) uniqueness constraint make duplicate or
// concurrent invocations a no-op. Returns the number of tasks created.
func (e Engine) Seed(ctx context.Context, dossierID string) (int, error) {
	d, err := e.Repo.GetDossier(ctx, dossierID)
	if err != nil {
		return 0, err
	}
	phase := catalog.PhaseFor(d.Status)
	templates := catalog.TemplatesFor(d.Flow, phase)
	if len(templates) == 0 {
		// Unset flow or a phase with no templates: nothing to seed.
		return 0, nil
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	existing, err := e.Repo.ExistingTaskTypesTx(ctx, tx, dossierID)
	if err != nil {
		return 0, err
	}
	var missing []catalog.Template
	for _, tmpl := range templates {
		if !existing[tmpl.Type] {
			missing = append(missing, tmpl)
		}
	}
	if len(missing) == 0 {
		return 0, nil
	}

	maxPos, err := e.Repo.MaxPositionTx(ctx, tx, dossierID, domain.ColumnTodo)
	if err != nil {
		return 0, err
	}
	pos := maxPos + 1
	now := e.now().UTC().Format(time.RFC3339)
	version := catalog.Version
	created := 0
	var types []string
	for _, tmpl := range missing {
		priority := tmpl.Priority
		if priority == "" {
			priority = domain.PriorityMedium
		}
		t := domain.Task{
			ID:             uuid.New().String(),
			DossierID:      &d.ID,
			Type:           tmpl.Type,
			Title:          tmpl.Title,
			Description:    tmpl.Description,
			Priority:       priority,
			Column:         domain.ColumnTodo,
			Position:       pos,
			CatalogVersion: &version,
			CreatedAt:      now,
		}
		if tmpl.Predicate != nil {
			rule, err := tmpl.Predicate.Encode()
			if err != nil {
				return created, fmt.Errorf("template %s: %w", tmpl.Type, err)
			}
			t.AutoRuleJSON = &rule
		}
		if err := e.Repo.InsertTaskTx(ctx, tx, t); err != nil {
			if repo.IsUniqueViolation(err) {
				// Another caller seeded this type concurrently.
				continue
			}
			return created, fmt.Errorf("insert task %s: %w", tmpl.Type, err)
		}
		pos++
		created++
		types = append(types, tmpl.Type)
	}
	if created > 0 {
		if err := e.Audit.Append(ctx, tx, "tasks.seeded", d.ID, "dossier", d.ID, "system", audit.Payload{
			"phase":           phase,
			"types":           types,
			"catalog_version": version,
		}); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}
