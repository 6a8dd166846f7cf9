package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vipul43/tillsync/internal/models"
)

// CachedRecord lists the local cache tables
type CachedRecord interface {
	models.Stock | models.Customer | models.Transaction | models.BulkCreditPayment | models.Billing
}

// CacheRepository is the local copy of one entity type
type CacheRepository[T CachedRecord] struct {
	db    *gorm.DB
	feed  *changeFeed
	now   func() time.Time
	label string
}

func NewCacheRepository[T CachedRecord](db *gorm.DB, label string) *CacheRepository[T] {
	return &CacheRepository[T]{db: db, feed: newChangeFeed(), now: time.Now, label: label}
}

// WithTx returns a repository bound to the given transaction. Subscribers of the
// original repository are still notified.
func (r *CacheRepository[T]) WithTx(tx *gorm.DB) *CacheRepository[T] {
	return &CacheRepository[T]{db: tx, feed: r.feed, now: r.now, label: r.label}
}

// Upsert inserts the rows or overwrites every column of existing ones
func (r *CacheRepository[T]) Upsert(ctx context.Context, rows ...T) error {
	if len(rows) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rows)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert %s: %w", r.label, result.Error)
	}
	r.feed.publish()
	return nil
}

// GetByID returns one row or ErrNotFound
func (r *CacheRepository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var row T
	result := r.db.WithContext(ctx).Where("id = ?", id).Take(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s %s: %w", r.label, id, result.Error)
	}
	return &row, nil
}

// List returns every cached row
func (r *CacheRepository[T]) List(ctx context.Context) ([]T, error) {
	var rows []T
	result := r.db.WithContext(ctx).Order("created DESC").Order("id ASC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.label, result.Error)
	}
	return rows, nil
}

// DeleteByID removes one row; deleting a missing row is not an error
func (r *CacheRepository[T]) DeleteByID(ctx context.Context, id string) error {
	var row T
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to delete %s %s: %w", r.label, id, result.Error)
	}
	r.feed.publish()
	return nil
}

// DeleteAll empties the table
func (r *CacheRepository[T]) DeleteAll(ctx context.Context) error {
	var row T
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&row)
	if result.Error != nil {
		return fmt.Errorf("failed to delete all %s: %w", r.label, result.Error)
	}
	r.feed.publish()
	return nil
}

// Count returns the number of cached rows
func (r *CacheRepository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	var row T
	result := r.db.WithContext(ctx).Model(&row).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.label, result.Error)
	}
	return count, nil
}

// IDs returns every cached id in ascending order
func (r *CacheRepository[T]) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	var row T
	result := r.db.WithContext(ctx).Model(&row).Order("id ASC").Pluck("id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list %s ids: %w", r.label, result.Error)
	}
	return ids, nil
}

// UpdateSyncStatus sets the sync status of one row; a missing row is ignored
func (r *CacheRepository[T]) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	var row T
	result := r.db.WithContext(ctx).Model(&row).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sync_status": status,
			"updated_at":  r.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update %s %s sync status: %w", r.label, id, result.Error)
	}
	r.feed.publish()
	return nil
}

// Subscribe emits the full table now and again after every write, until ctx is done.
// Slow readers only ever see the latest snapshot.
func (r *CacheRepository[T]) Subscribe(ctx context.Context) <-chan []T {
	out := make(chan []T, 1)
	changed, cancel := r.feed.subscribe()

	go func() {
		defer close(out)
		defer cancel()

		for {
			rows, err := r.List(ctx)
			if err == nil {
				select {
				case <-out:
				default:
				}
				out <- rows
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}()

	return out
}

// changeFeed fans out a "something changed" signal to subscribers
type changeFeed struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func newChangeFeed() *changeFeed {
	return &changeFeed{subs: make(map[int]chan struct{})}
}

func (f *changeFeed) subscribe() (<-chan struct{}, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan struct{}, 1)
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *changeFeed) publish() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
