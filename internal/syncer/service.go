// Package syncer replays pending operations against the server and reconciles
// the local cache with server state, one EntityService per entity type.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vipul43/tillsync/internal/metrics"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
)

var ErrPullFailed = errors.New("pull failed")

// Service is what the orchestrator drives for each entity type
type Service interface {
	Entity() models.EntityType
	Push(ctx context.Context, ops []models.PendingOperation) (PushReport, error)
	PullAll(ctx context.Context, organization string) (PullReport, error)
	HasCachedData(ctx context.Context) (bool, error)
}

// OperationLog is the part of the pending operation log used by the services
type OperationLog interface {
	DeleteByKeys(ctx context.Context, keys models.OperationKeys) error
	DeleteByID(ctx context.Context, id int64) error
	IncrementFailureCount(ctx context.Context, keys models.OperationKeys, lastError string) error
	IncrementFailureCountByID(ctx context.Context, id int64, lastError string) error
	GetFailureCount(ctx context.Context, keys models.OperationKeys) (int, error)
	GetFailureCountByID(ctx context.Context, id int64) (int, error)
	CountForEntity(ctx context.Context, entityID string) (int64, error)
	CountParkedForEntity(ctx context.Context, entityID string, threshold int) (int64, error)
	PendingEntityIDs(ctx context.Context, entityType models.EntityType) ([]string, error)
	MarkFailed(ctx context.Context, op models.PendingOperation, failedAttempts int, reason string) error
}

type MetadataStore interface {
	LastSyncTimestamp(ctx context.Context, entityType models.EntityType) (*int64, error)
	RecordSuccess(ctx context.Context, entityType models.EntityType, syncedAt int64, mode models.SyncMode) error
	RecordFailure(ctx context.Context, entityType models.EntityType, syncErr string) error
}

// Remote is the server surface of one entity type
type Remote[W remote.Payload] interface {
	List(ctx context.Context, org string) ([]W, error)
	ListIDs(ctx context.Context, org string) ([]string, error)
	ListChangesSince(ctx context.Context, org string, sinceMillis int64) ([]W, error)
	Create(ctx context.Context, org string, w W) (W, error)
	Update(ctx context.Context, org, id string, w W) (W, error)
	Delete(ctx context.Context, org, id string) (W, error)
}

// Action is an entity specific remote call such as deliver or edit-quantity
type Action[W remote.Payload] func(ctx context.Context, org, id string, w W) (W, error)

// Cache is the local copy of one entity type, addressed with wire values
type Cache[W remote.Payload] interface {
	Save(ctx context.Context, w W, status models.SyncStatus) error
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status models.SyncStatus) error
	IDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type Config[W remote.Payload] struct {
	EntityType models.EntityType
	Remote     Remote[W]
	Cache      Cache[W]
	Actions    map[models.OperationType]Action[W]
	Log        OperationLog
	Metadata   MetadataStore
	Policy     Policy
	Logger     *log.Logger
	Metrics    *metrics.Metrics
}

// EntityService runs the push and pull protocol for one entity type
type EntityService[W remote.Payload] struct {
	entity  models.EntityType
	remote  Remote[W]
	cache   Cache[W]
	actions map[models.OperationType]Action[W]
	ops     OperationLog
	meta    MetadataStore
	policy  Policy
	logger  *log.Logger
	metrics *metrics.Metrics
	locks   *keyLocker
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewEntityService[W remote.Payload](cfg Config[W]) *EntityService[W] {
	logger := cfg.Logger
	if logger == nil {
		prefix := "[sync:" + strings.ToLower(string(cfg.EntityType)) + "] "
		logger = log.New(log.Writer(), prefix, log.LstdFlags|log.Lmsgprefix)
	}
	policy := cfg.Policy
	if policy == (Policy{}) {
		policy = DefaultPolicy()
	}

	return &EntityService[W]{
		entity:  cfg.EntityType,
		remote:  cfg.Remote,
		cache:   cfg.Cache,
		actions: cfg.Actions,
		ops:     cfg.Log,
		meta:    cfg.Metadata,
		policy:  policy,
		logger:  logger,
		metrics: cfg.Metrics,
		locks:   newKeyLocker(),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

func (s *EntityService[W]) Entity() models.EntityType {
	return s.entity
}

// HasCachedData reports whether at least one row of this type is cached
func (s *EntityService[W]) HasCachedData(ctx context.Context) (bool, error) {
	n, err := s.cache.Count(ctx)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func wrapPullError(entity models.EntityType, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPullFailed, entity, err)
}
