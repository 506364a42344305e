package server

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"caseline/internal/engine"
)

// Sweeper is the out-of-band pass over active dossiers: it retries seeding
// that failed post-commit, runs the auto-completion evaluator and archives
// stale done tasks. Every step is idempotent, so overlapping or repeated
// runs are harmless.
type Sweeper struct {
	engine engine.Engine
	cron   *cron.Cron
}

// StartSweeper schedules the sweep per config. Returns nil when the sweep
// is disabled.
func StartSweeper(e engine.Engine) (*Sweeper, error) {
	if e.Config == nil || e.Config.Sweep.Disabled {
		return nil, nil
	}
	s := &Sweeper{
		engine: e,
		cron:   cron.New(),
	}
	if _, err := s.cron.AddFunc(e.Config.Sweep.Schedule, s.Run); err != nil {
		return nil, err
	}
	s.cron.Start()
	return s, nil
}

func (s *Sweeper) Stop() {
	if s != nil && s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Run executes one sweep synchronously.
func (s *Sweeper) Run() {
	ctx := context.Background()
	ids, err := s.engine.Repo.ListActiveDossierIDs(ctx)
	if err != nil {
		log.Printf("sweep: list dossiers: %v", err)
		return
	}
	for _, id := range ids {
		if _, err := s.engine.Seed(ctx, id); err != nil {
			log.Printf("sweep: seed %s: %v", id, err)
		}
		if _, errs := s.engine.Evaluate(ctx, id); len(errs) > 0 {
			for _, evalErr := range errs {
				log.Printf("sweep: evaluate %s: %v", id, evalErr)
			}
		}
	}
	s.archive(ctx)
}

func (s *Sweeper) archive(ctx context.Context) {
	days := s.engine.Config.Retention.ArchiveAfterDays
	if days <= 0 {
		return
	}
	now := s.engine.Now().UTC()
	cutoff := now.AddDate(0, 0, -days).Format(time.RFC3339)
	n, err := s.engine.Repo.ArchiveDoneTasks(ctx, cutoff, now.Format(time.RFC3339))
	if err != nil {
		log.Printf("sweep: archive tasks: %v", err)
		return
	}
	if n > 0 {
		log.Printf("sweep: archived %d done task(s)", n)
	}
}
