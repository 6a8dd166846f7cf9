package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock is the cached copy of a stock batch line
type Stock struct {
	ID             string          `gorm:"column:id;primaryKey"`
	Created        string          `gorm:"column:created"`
	Modified       string          `gorm:"column:modified"`
	OrgSlug        string          `gorm:"column:org_slug"`
	OrgID          string          `gorm:"column:org_id"`
	OrgUserID      string          `gorm:"column:org_user_id"`
	OrgUserName    string          `gorm:"column:org_user_name"`
	BatchID        string          `gorm:"column:batch_id"`
	BatchNumber    string          `gorm:"column:batch_number"`
	ItemID         string          `gorm:"column:item_id"`
	ItemName       string          `gorm:"column:item_name"`
	CategoryID     string          `gorm:"column:category_id"`
	CategoryName   string          `gorm:"column:category_name"`
	ReceivedDate   string          `gorm:"column:received_date"`
	ExpirationDate string          `gorm:"column:expiration_date"`
	PurchasePrice  decimal.Decimal `gorm:"column:purchase_price"`
	BillingPrice   decimal.Decimal `gorm:"column:billing_price"`
	Quantity       int             `gorm:"column:quantity"`
	IsActive       bool            `gorm:"column:is_active"`
	SyncStatus     SyncStatus      `gorm:"column:sync_status"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Stock) TableName() string {
	return "stocks"
}
