// Package service is the write path used by the application: every mutation
// updates the local cache and records the matching pending operation in one
// database transaction, so the engine can replay it later.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
	"github.com/vipul43/tillsync/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")

// Org identifies the organization a mutation belongs to
type Org struct {
	Slug string
	ID   string
}

func (o Org) validate() error {
	if o.Slug == "" || o.ID == "" {
		return fmt.Errorf("%w: organization slug and id are required", ErrInvalidInput)
	}
	return nil
}

// rowStore is the cache table surface a recorder writes to
type rowStore[T any] interface {
	Upsert(ctx context.Context, rows ...T) error
	DeleteByID(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*T, error)
	List(ctx context.Context) ([]T, error)
}

// entitySpec describes how one entity type is stamped and serialized
type entitySpec[T any, W remote.Payload] struct {
	entity models.EntityType
	id     func(*T) *string
	// stamp sets organization, timestamps and the PENDING status
	stamp    func(row *T, org Org, at string, creating bool)
	toRemote func(T) W
}

// recorder writes a cache row and its pending operation atomically
type recorder[T any, W remote.Payload] struct {
	db    *gorm.DB
	store func(tx *gorm.DB) rowStore[T]
	ops   *repository.PendingOperationRepository
	spec  entitySpec[T, W]
	now   func() time.Time
}

func newRecorder[T any, W remote.Payload](db *gorm.DB, store func(tx *gorm.DB) rowStore[T], spec entitySpec[T, W]) *recorder[T, W] {
	return &recorder[T, W]{
		db:    db,
		store: store,
		ops:   repository.NewPendingOperationRepository(db),
		spec:  spec,
		now:   time.Now,
	}
}

func (r *recorder[T, W]) timestamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

func (r *recorder[T, W]) get(ctx context.Context, id string) (*T, error) {
	return r.store(r.db).GetByID(ctx, id)
}

func (r *recorder[T, W]) list(ctx context.Context) ([]T, error) {
	return r.store(r.db).List(ctx)
}

func (r *recorder[T, W]) create(ctx context.Context, org Org, row T) (T, error) {
	if err := org.validate(); err != nil {
		return row, err
	}
	if id := r.spec.id(&row); *id == "" {
		*id = uuid.NewString()
	}
	r.spec.stamp(&row, org, r.timestamp(), true)

	err := r.save(ctx, org, row, models.OperationCreate, models.ScopeState, r.spec.toRemote(row))
	return row, err
}

func (r *recorder[T, W]) update(ctx context.Context, org Org, row T) (T, error) {
	if err := org.validate(); err != nil {
		return row, err
	}
	if *r.spec.id(&row) == "" {
		return row, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	r.spec.stamp(&row, org, r.timestamp(), false)

	err := r.save(ctx, org, row, models.OperationUpdate, models.ScopeState, r.spec.toRemote(row))
	return row, err
}

// delete removes the row locally right away; the DELETE operation carries the
// last known snapshot
func (r *recorder[T, W]) delete(ctx context.Context, org Org, id string) error {
	if err := org.validate(); err != nil {
		return err
	}
	existing, err := r.get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load %s %s: %w", r.spec.entity, id, err)
	}
	payload := r.spec.toRemote(*existing)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.store(tx).DeleteByID(ctx, id); err != nil {
			return err
		}
		return r.enqueue(ctx, tx, org, id, models.OperationDelete, models.ScopeState, payload)
	})
}

// save upserts row and enqueues the operation with payload
func (r *recorder[T, W]) save(ctx context.Context, org Org, row T, opType models.OperationType, scope models.OperationScope, payload W) error {
	id := *r.spec.id(&row)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.store(tx).Upsert(ctx, row); err != nil {
			return err
		}
		return r.enqueue(ctx, tx, org, id, opType, scope, payload)
	})
}

func (r *recorder[T, W]) enqueue(ctx context.Context, tx *gorm.DB, org Org, id string, opType models.OperationType, scope models.OperationScope, payload W) error {
	raw, err := remote.EncodePayload(payload)
	if err != nil {
		return err
	}
	op := &models.PendingOperation{
		EntityType:     r.spec.entity,
		EntityID:       id,
		OrgSlug:        org.Slug,
		OrgID:          org.ID,
		OperationType:  opType,
		OperationScope: scope,
		Payload:        datatypes.JSON(raw),
	}
	if err := r.ops.WithTx(tx).Enqueue(ctx, op); err != nil {
		return err
	}
	log.Printf("Recorded %s %s %s (%s)", opType, r.spec.entity, id, scope)
	return nil
}
