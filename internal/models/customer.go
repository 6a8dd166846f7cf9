package models

import "time"

type Customer struct {
	ID          string     `gorm:"column:id;primaryKey"`
	Created     string     `gorm:"column:created"`
	Modified    string     `gorm:"column:modified"`
	OrgSlug     string     `gorm:"column:org_slug"`
	OrgID       string     `gorm:"column:org_id"`
	Name        string     `gorm:"column:name"`
	PhoneNumber *string    `gorm:"column:phone_number"`
	SyncStatus  SyncStatus `gorm:"column:sync_status"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Customer) TableName() string {
	return "customers"
}
