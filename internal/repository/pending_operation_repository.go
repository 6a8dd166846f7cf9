package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vipul43/tillsync/internal/models"
)

var ErrInvalidOperation = errors.New("invalid pending operation")

type PendingOperationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPendingOperationRepository(db *gorm.DB) *PendingOperationRepository {
	return &PendingOperationRepository{db: db, now: time.Now}
}

// WithTx returns a repository bound to the given transaction
func (r *PendingOperationRepository) WithTx(tx *gorm.DB) *PendingOperationRepository {
	return &PendingOperationRepository{db: tx, now: r.now}
}

// Enqueue durably records an operation. A STATE operation replaces any existing
// row with the same (entityType, entityId, operationType, orgId) so that at most
// one such row exists; EVENT operations are always appended.
func (r *PendingOperationRepository) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	if op.EntityType == "" || op.EntityID == "" || op.OperationType == "" {
		return fmt.Errorf("%w: entity type, entity id and operation type are required", ErrInvalidOperation)
	}
	if op.OperationScope != models.ScopeState && op.OperationScope != models.ScopeEvent {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidOperation, op.OperationScope)
	}
	if op.OperationKey == "" {
		op.OperationKey = uuid.NewString()
	}
	if op.CreatedAt == 0 {
		op.CreatedAt = r.now().UnixMilli()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if op.OperationScope == models.ScopeState {
			if err := whereKeys(tx, op.Keys()).Delete(&models.PendingOperation{}).Error; err != nil {
				return err
			}
		}
		return tx.Create(op).Error
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue pending operation: %w", err)
	}
	return nil
}

// ListPending returns every pending operation, oldest first
func (r *PendingOperationRepository) ListPending(ctx context.Context) ([]models.PendingOperation, error) {
	var ops []models.PendingOperation
	result := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&ops)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query pending operations: %w", result.Error)
	}
	return ops, nil
}

// ListPendingByEntityType returns the pending operations of one entity type, oldest first
func (r *PendingOperationRepository) ListPendingByEntityType(ctx context.Context, entityType models.EntityType) ([]models.PendingOperation, error) {
	var ops []models.PendingOperation
	result := r.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Order("created_at ASC").
		Order("id ASC").
		Find(&ops)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query pending operations: %w", result.Error)
	}
	return ops, nil
}

// DeleteByKeys removes every row matching the composite key
func (r *PendingOperationRepository) DeleteByKeys(ctx context.Context, keys models.OperationKeys) error {
	result := whereKeys(r.db.WithContext(ctx), keys).Delete(&models.PendingOperation{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete pending operations: %w", result.Error)
	}
	return nil
}

// DeleteByID removes exactly one row
func (r *PendingOperationRepository) DeleteByID(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&models.PendingOperation{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete pending operation %d: %w", id, result.Error)
	}
	return nil
}

// IncrementFailureCount bumps failed_attempts on every row matching the key
func (r *PendingOperationRepository) IncrementFailureCount(ctx context.Context, keys models.OperationKeys, lastError string) error {
	result := whereKeys(r.db.WithContext(ctx).Model(&models.PendingOperation{}), keys).
		Updates(map[string]interface{}{
			"failed_attempts": gorm.Expr("failed_attempts + 1"),
			"last_error":      lastError,
			"updated_at":      r.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment failure count: %w", result.Error)
	}
	return nil
}

// IncrementFailureCountByID bumps failed_attempts on a single row
func (r *PendingOperationRepository) IncrementFailureCountByID(ctx context.Context, id int64, lastError string) error {
	result := r.db.WithContext(ctx).Model(&models.PendingOperation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_attempts": gorm.Expr("failed_attempts + 1"),
			"last_error":      lastError,
			"updated_at":      r.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment failure count: %w", result.Error)
	}
	return nil
}

// GetFailureCount returns the highest failed_attempts among rows matching the key,
// or 0 when none match
func (r *PendingOperationRepository) GetFailureCount(ctx context.Context, keys models.OperationKeys) (int, error) {
	var count sql.NullInt64
	row := whereKeys(r.db.WithContext(ctx).Model(&models.PendingOperation{}), keys).
		Select("MAX(failed_attempts)").
		Row()
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query failure count: %w", err)
	}
	return int(count.Int64), nil
}

// GetFailureCountByID returns failed_attempts of one row, or 0 if it is gone
func (r *PendingOperationRepository) GetFailureCountByID(ctx context.Context, id int64) (int, error) {
	var op models.PendingOperation
	result := r.db.WithContext(ctx).Select("failed_attempts").Where("id = ?", id).Take(&op)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to query failure count: %w", result.Error)
	}
	return op.FailedAttempts, nil
}

// CountForEntity counts the pending rows of an entity id across all operation types
func (r *PendingOperationRepository) CountForEntity(ctx context.Context, entityID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.PendingOperation{}).
		Where("entity_id = ?", entityID).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count pending operations: %w", result.Error)
	}
	return count, nil
}

// CountParkedForEntity counts the rows of an entity id whose failures exceed threshold
func (r *PendingOperationRepository) CountParkedForEntity(ctx context.Context, entityID string, threshold int) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.PendingOperation{}).
		Where("entity_id = ? AND failed_attempts > ?", entityID, threshold).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count parked operations: %w", result.Error)
	}
	return count, nil
}

// PendingEntityIDs returns the distinct entity ids of one type that still have pending rows
func (r *PendingOperationRepository) PendingEntityIDs(ctx context.Context, entityType models.EntityType) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&models.PendingOperation{}).
		Where("entity_type = ?", entityType).
		Distinct().
		Pluck("entity_id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query pending entity ids: %w", result.Error)
	}
	return ids, nil
}

// MarkFailed parks an operation above the retry threshold without deleting it.
// STATE rows are parked by key, EVENT rows by id.
func (r *PendingOperationRepository) MarkFailed(ctx context.Context, op models.PendingOperation, failedAttempts int, reason string) error {
	query := r.db.WithContext(ctx).Model(&models.PendingOperation{})
	if op.OperationScope == models.ScopeState {
		query = whereKeys(query, op.Keys())
	} else {
		query = query.Where("id = ?", op.ID)
	}
	result := query.Updates(map[string]interface{}{
		"failed_attempts": failedAttempts,
		"last_error":      reason,
		"updated_at":      r.now(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to mark pending operation as failed: %w", result.Error)
	}
	return nil
}

// Requeue resets the failure counter of parked rows so the next push retries them.
// An empty entityType requeues all types. Returns the number of rows reset.
func (r *PendingOperationRepository) Requeue(ctx context.Context, entityType models.EntityType, threshold int) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PendingOperation{}).
		Where("failed_attempts > ?", threshold)
	if entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}
	result := query.Updates(map[string]interface{}{
		"failed_attempts": 0,
		"last_error":      nil,
		"updated_at":      r.now(),
	})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to requeue pending operations: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// OperationStats summarizes the log for one entity type
type OperationStats struct {
	EntityType models.EntityType `json:"entity_type"`
	Pending    int64             `json:"pending"`
	Failed     int64             `json:"failed"`
	Oldest     *int64            `json:"oldest_created_at,omitempty"`
}

// Stats groups the log by entity type; rows above threshold count as failed
func (r *PendingOperationRepository) Stats(ctx context.Context, threshold int) ([]OperationStats, error) {
	var stats []OperationStats
	result := r.db.WithContext(ctx).Model(&models.PendingOperation{}).
		Select(
			"entity_type, COUNT(*) AS pending, "+
				"SUM(CASE WHEN failed_attempts > ? THEN 1 ELSE 0 END) AS failed, "+
				"MIN(created_at) AS oldest",
			threshold,
		).
		Group("entity_type").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "entity_type"}}).
		Scan(&stats)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query operation stats: %w", result.Error)
	}
	return stats, nil
}

func whereKeys(db *gorm.DB, keys models.OperationKeys) *gorm.DB {
	return db.Where(
		"entity_type = ? AND entity_id = ? AND operation_type = ? AND org_id = ?",
		keys.EntityType, keys.EntityID, keys.OperationType, keys.OrgID,
	)
}
