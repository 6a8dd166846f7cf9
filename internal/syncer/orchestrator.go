package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vipul43/tillsync/internal/metrics"
	"github.com/vipul43/tillsync/internal/models"
)

// PendingSource lists the operations waiting in the log, oldest first
type PendingSource interface {
	ListPending(ctx context.Context) ([]models.PendingOperation, error)
}

// Orchestrator fans push and pull out across the registered entity services
type Orchestrator struct {
	ops         PendingSource
	parallelism int
	logger      *log.Logger
	metrics     *metrics.Metrics

	mu       sync.RWMutex
	services map[models.EntityType]Service
}

func NewOrchestrator(ops PendingSource, parallelism int, logger *log.Logger, m *metrics.Metrics, services ...Service) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[sync] ", log.LstdFlags|log.Lmsgprefix)
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	o := &Orchestrator{
		ops:         ops,
		parallelism: parallelism,
		logger:      logger,
		metrics:     m,
		services:    make(map[models.EntityType]Service),
	}
	for _, s := range services {
		o.Register(s)
	}
	return o
}

// Register adds s, replacing any service already registered for its entity type
func (o *Orchestrator) Register(s Service) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.services[s.Entity()] = s
}

// Entities returns the registered entity types in name order
func (o *Orchestrator) Entities() []models.EntityType {
	o.mu.RLock()
	defer o.mu.RUnlock()

	entities := make([]models.EntityType, 0, len(o.services))
	for e := range o.services {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
	return entities
}

func (o *Orchestrator) service(entity models.EntityType) (Service, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s, ok := o.services[entity]
	return s, ok
}

// Push hands every service its own pending operations. An empty organization
// pushes operations of all organizations.
func (o *Orchestrator) Push(ctx context.Context, organization string) (map[models.EntityType]PushReport, error) {
	ops, err := o.ops.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending operations: %w", err)
	}

	byEntity := make(map[models.EntityType][]models.PendingOperation)
	for _, op := range ops {
		if organization != "" && op.OrgSlug != organization {
			continue
		}
		byEntity[op.EntityType] = append(byEntity[op.EntityType], op)
	}

	reports := make(map[models.EntityType]PushReport, len(byEntity))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(o.parallelism)

	for entity, entityOps := range byEntity {
		entity, entityOps := entity, entityOps
		svc, ok := o.service(entity)
		if !ok {
			o.logger.Printf("No sync service registered for %s, leaving %d operation(s) in the log", entity, len(entityOps))
			continue
		}

		g.Go(func() error {
			report, err := svc.Push(ctx, entityOps)

			mu.Lock()
			defer mu.Unlock()
			reports[entity] = report
			if err != nil {
				errs = append(errs, fmt.Errorf("push %s: %w", entity, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	o.updatePendingGauge(context.WithoutCancel(ctx))
	return reports, errors.Join(errs...)
}

// PullAllInParallel pulls every registered entity type. A failing entity type
// does not stop the others; all failures are joined into the returned error.
func (o *Orchestrator) PullAllInParallel(ctx context.Context, organization string) (map[models.EntityType]PullReport, error) {
	entities := o.Entities()
	reports := make(map[models.EntityType]PullReport, len(entities))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(o.parallelism)

	for _, entity := range entities {
		entity := entity
		svc, _ := o.service(entity)
		g.Go(func() error {
			report, err := svc.PullAll(ctx, organization)

			mu.Lock()
			defer mu.Unlock()
			reports[entity] = report
			if err != nil {
				errs = append(errs, fmt.Errorf("pull %s: %w", entity, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports, errors.Join(errs...)
}

// HasCachedData reports whether the cache holds rows of entityType
func (o *Orchestrator) HasCachedData(ctx context.Context, entityType models.EntityType) (bool, error) {
	svc, ok := o.service(entityType)
	if !ok {
		return false, fmt.Errorf("no sync service registered for %s", entityType)
	}
	return svc.HasCachedData(ctx)
}

// CachedDataState is HasCachedData for every registered entity type
func (o *Orchestrator) CachedDataState(ctx context.Context) (map[models.EntityType]bool, error) {
	state := make(map[models.EntityType]bool)
	for _, entity := range o.Entities() {
		has, err := o.HasCachedData(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to check cached %s: %w", entity, err)
		}
		state[entity] = has
	}
	return state, nil
}

// SyncResult is the outcome of one push followed by one pull
type SyncResult struct {
	Push map[models.EntityType]PushReport `json:"push"`
	Pull map[models.EntityType]PullReport `json:"pull"`
}

// Sync pushes local changes and then pulls server state. The pull runs even
// when some pushes failed.
func (o *Orchestrator) Sync(ctx context.Context, organization string) (SyncResult, error) {
	var result SyncResult

	pushReports, pushErr := o.Push(ctx, organization)
	result.Push = pushReports
	if err := ctx.Err(); err != nil {
		return result, err
	}

	pullReports, pullErr := o.PullAllInParallel(ctx, organization)
	result.Pull = pullReports

	return result, errors.Join(pushErr, pullErr)
}

func (o *Orchestrator) updatePendingGauge(ctx context.Context) {
	if o.metrics == nil {
		return
	}
	ops, err := o.ops.ListPending(ctx)
	if err != nil {
		o.logger.Printf("Failed to count pending operations: %v", err)
		return
	}

	counts := make(map[models.EntityType]int)
	for _, e := range o.Entities() {
		counts[e] = 0
	}
	for _, op := range ops {
		counts[op.EntityType]++
	}
	for e, n := range counts {
		o.metrics.SetPending(string(e), n)
	}
}
