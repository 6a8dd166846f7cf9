package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionWithdrawal TransactionType = "withdrawal"
	TransactionDeposit    TransactionType = "deposit"
)

// Transaction is a cash movement recorded against the organization till
type Transaction struct {
	ID                string          `gorm:"column:id;primaryKey"`
	Created           string          `gorm:"column:created"`
	Modified          string          `gorm:"column:modified"`
	OrgSlug           string          `gorm:"column:org_slug"`
	OrgID             string          `gorm:"column:org_id"`
	OrgUserID         string          `gorm:"column:org_user_id"`
	OrgUserName       string          `gorm:"column:org_user_name"`
	Participant       string          `gorm:"column:participant"`
	Reason            string          `gorm:"column:reason"`
	Amount            decimal.Decimal `gorm:"column:amount"`
	TransactionType   TransactionType `gorm:"column:transaction_type"`
	TransactionBroker string          `gorm:"column:transaction_broker"`
	SyncStatus        SyncStatus      `gorm:"column:sync_status"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}
