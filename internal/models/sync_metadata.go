package models

import "time"

const CurrentSyncVersion = 1

type SyncMode string

const (
	SyncModeFull        SyncMode = "full"
	SyncModeIncremental SyncMode = "incremental"
)

// SyncMetadata tracks the pull watermark for one entity type
type SyncMetadata struct {
	EntityType        EntityType `gorm:"column:entity_type;primaryKey"`
	LastSyncTimestamp *int64     `gorm:"column:last_sync_timestamp"` // epoch milliseconds, nil until the first successful pull
	LastSyncSuccess   bool       `gorm:"column:last_sync_success"`
	LastSyncMode      *SyncMode  `gorm:"column:last_sync_mode"`
	SyncVersion       int        `gorm:"column:sync_version"`
	LastError         *string    `gorm:"column:last_error"`
	RetryCount        int        `gorm:"column:retry_count"`
	UpdatedAt         time.Time  `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (SyncMetadata) TableName() string {
	return "sync_metadata"
}
