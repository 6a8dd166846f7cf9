package watcher

import (
	"context"
	"log"
	"time"

	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/syncer"
)

// Push runs one push for organization ("" pushes every organization)
func (w *Watcher) Push(ctx context.Context, organization string) (map[models.EntityType]syncer.PushReport, error) {
	w.pushMu.Lock()
	defer w.pushMu.Unlock()

	reports, err := w.syncer.Push(ctx, organization)

	w.stateMu.Lock()
	w.lastPush = time.Now()
	w.stateMu.Unlock()
	return reports, err
}

// Pull runs one pull of every entity type for organization
func (w *Watcher) Pull(ctx context.Context, organization string) (map[models.EntityType]syncer.PullReport, error) {
	w.pullMu.Lock()
	defer w.pullMu.Unlock()

	reports, err := w.syncer.PullAllInParallel(ctx, organization)

	w.stateMu.Lock()
	w.lastPull = time.Now()
	w.stateMu.Unlock()
	return reports, err
}

func (w *Watcher) runPush(ctx context.Context) {
	reports, err := w.Push(ctx, "")
	if err != nil {
		log.Printf("Error pushing pending operations: %v", err)
	}

	total := 0
	for _, r := range reports {
		total += r.Total
	}
	if total > 0 {
		log.Printf("Pushed %d pending operation(s) across %d entity type(s)", total, len(reports))
	}
}

func (w *Watcher) runPull(ctx context.Context) {
	reports, err := w.Pull(ctx, w.organization)
	if err != nil {
		// each failing entity type already recorded its failure in sync metadata
		log.Printf("Error pulling %s: %v", w.organization, err)
		return
	}
	log.Printf("Pulled %d entity type(s) for %s", len(reports), w.organization)
}
