package syncer

import (
	"context"

	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
)

// Store is the repository surface of one cache table
type Store[T any] interface {
	Upsert(ctx context.Context, rows ...T) error
	DeleteByID(ctx context.Context, id string) error
	UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error
	IDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

// StoreCache adapts a Store of local rows to a Cache of wire values
type StoreCache[W remote.Payload, T any] struct {
	store   Store[T]
	toLocal func(W, models.SyncStatus) T
}

func NewStoreCache[W remote.Payload, T any](store Store[T], toLocal func(W, models.SyncStatus) T) *StoreCache[W, T] {
	return &StoreCache[W, T]{store: store, toLocal: toLocal}
}

func (c *StoreCache[W, T]) Save(ctx context.Context, w W, status models.SyncStatus) error {
	return c.store.Upsert(ctx, c.toLocal(w, status))
}

func (c *StoreCache[W, T]) Delete(ctx context.Context, id string) error {
	return c.store.DeleteByID(ctx, id)
}

func (c *StoreCache[W, T]) SetStatus(ctx context.Context, id string, status models.SyncStatus) error {
	return c.store.UpdateSyncStatus(ctx, id, status)
}

func (c *StoreCache[W, T]) IDs(ctx context.Context) ([]string, error) {
	return c.store.IDs(ctx)
}

func (c *StoreCache[W, T]) Count(ctx context.Context) (int64, error) {
	return c.store.Count(ctx)
}
