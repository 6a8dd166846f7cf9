package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vipul43/tillsync/internal/models"
)

var ErrNotFound = errors.New("record not found")

type SyncMetadataRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSyncMetadataRepository(db *gorm.DB) *SyncMetadataRepository {
	return &SyncMetadataRepository{db: db, now: time.Now}
}

// Get returns the metadata row of an entity type, or ErrNotFound
func (r *SyncMetadataRepository) Get(ctx context.Context, entityType models.EntityType) (*models.SyncMetadata, error) {
	var meta models.SyncMetadata
	result := r.db.WithContext(ctx).Where("entity_type = ?", entityType).Take(&meta)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sync metadata: %w", result.Error)
	}
	return &meta, nil
}

// List returns every metadata row ordered by entity type
func (r *SyncMetadataRepository) List(ctx context.Context) ([]models.SyncMetadata, error) {
	var rows []models.SyncMetadata
	result := r.db.WithContext(ctx).Order("entity_type ASC").Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sync metadata: %w", result.Error)
	}
	return rows, nil
}

// LastSyncTimestamp returns the watermark of the last successful pull, nil if none
func (r *SyncMetadataRepository) LastSyncTimestamp(ctx context.Context, entityType models.EntityType) (*int64, error) {
	meta, err := r.Get(ctx, entityType)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return meta.LastSyncTimestamp, nil
}

// RecordSuccess advances the watermark and clears the error state
func (r *SyncMetadataRepository) RecordSuccess(ctx context.Context, entityType models.EntityType, syncedAt int64, mode models.SyncMode) error {
	meta := models.SyncMetadata{
		EntityType:        entityType,
		LastSyncTimestamp: &syncedAt,
		LastSyncSuccess:   true,
		LastSyncMode:      &mode,
		SyncVersion:       models.CurrentSyncVersion,
		LastError:         nil,
		RetryCount:        0,
		UpdatedAt:         r.now(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_sync_timestamp", "last_sync_success", "last_sync_mode",
			"sync_version", "last_error", "retry_count", "updated_at",
		}),
	}).Create(&meta)
	if result.Error != nil {
		return fmt.Errorf("failed to record sync success: %w", result.Error)
	}
	return nil
}

// RecordFailure keeps the previous watermark, stores the error and bumps retry_count
func (r *SyncMetadataRepository) RecordFailure(ctx context.Context, entityType models.EntityType, syncErr string) error {
	meta := models.SyncMetadata{
		EntityType:      entityType,
		LastSyncSuccess: false,
		SyncVersion:     models.CurrentSyncVersion,
		LastError:       &syncErr,
		RetryCount:      1,
		UpdatedAt:       r.now(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "entity_type"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_sync_success": false,
			"last_error":        syncErr,
			"retry_count":       gorm.Expr("sync_metadata.retry_count + 1"),
			"updated_at":        meta.UpdatedAt,
		}),
	}).Create(&meta)
	if result.Error != nil {
		return fmt.Errorf("failed to record sync failure: %w", result.Error)
	}
	return nil
}

// Reset forgets the watermark so the next pull is a full sync
func (r *SyncMetadataRepository) Reset(ctx context.Context, entityType models.EntityType) error {
	result := r.db.WithContext(ctx).Where("entity_type = ?", entityType).Delete(&models.SyncMetadata{})
	if result.Error != nil {
		return fmt.Errorf("failed to reset sync metadata: %w", result.Error)
	}
	return nil
}
