package watcher

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/vipul43/tillsync/internal/config"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/syncer"
)

// Syncer is the orchestrator surface driven by the watcher
type Syncer interface {
	Push(ctx context.Context, organization string) (map[models.EntityType]syncer.PushReport, error)
	PullAllInParallel(ctx context.Context, organization string) (map[models.EntityType]syncer.PullReport, error)
	CachedDataState(ctx context.Context) (map[models.EntityType]bool, error)
}

// Watcher pushes pending operations and pulls server state on two tickers.
// Push and pull runs are serialized so a manual trigger never overlaps a
// scheduled run of the same kind.
type Watcher struct {
	syncer       Syncer
	organization string
	pushEvery    time.Duration
	pullEvery    time.Duration

	pushMu sync.Mutex
	pullMu sync.Mutex

	stateMu  sync.RWMutex
	lastPush time.Time
	lastPull time.Time
}

func New(cfg *config.Config, s Syncer) *Watcher {
	return &Watcher{
		syncer:       s,
		organization: cfg.Organization,
		pushEvery:    interval(cfg.PollInterval, 30),
		pullEvery:    interval(cfg.PullInterval, 300),
	}
}

func interval(seconds, def int) time.Duration {
	if seconds <= 0 {
		seconds = def
	}
	return time.Duration(seconds) * time.Second
}

// Start runs until ctx is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	log.Printf("Starting watcher (push every %s, pull every %s, organization %q)...", w.pushEvery, w.pullEvery, w.organization)

	// Replay whatever was left from previous runs before refreshing the cache
	w.runPush(ctx)
	if w.organization != "" {
		w.logCacheState(ctx)
		w.runPull(ctx)
	} else {
		log.Println("Warning: no organization configured, scheduled pulls are disabled")
	}

	pushTicker := time.NewTicker(w.pushEvery)
	defer pushTicker.Stop()
	pullTicker := time.NewTicker(w.pullEvery)
	defer pullTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watcher shutting down...")
			return ctx.Err()
		case <-pushTicker.C:
			w.runPush(ctx)
		case <-pullTicker.C:
			if w.organization != "" {
				w.runPull(ctx)
			}
		}
	}
}

// LastRuns returns when the last scheduled or manual push and pull finished
func (w *Watcher) LastRuns() (push, pull time.Time) {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return w.lastPush, w.lastPull
}

func (w *Watcher) logCacheState(ctx context.Context) {
	state, err := w.syncer.CachedDataState(ctx)
	if err != nil {
		log.Printf("Warning: failed to read cache state: %v", err)
		return
	}
	for entity, cached := range state {
		if !cached {
			log.Printf("No cached %s yet, first pull will be a full sync", entity)
		}
	}
}
