package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BulkCreditPayment settles outstanding credit of a customer across bills
type BulkCreditPayment struct {
	ID                string          `gorm:"column:id;primaryKey"`
	Created           string          `gorm:"column:created"`
	Modified          string          `gorm:"column:modified"`
	OrgSlug           string          `gorm:"column:org_slug"`
	OrgID             string          `gorm:"column:org_id"`
	OrgUserID         string          `gorm:"column:org_user_id"`
	OrgUserName       string          `gorm:"column:org_user_name"`
	CustomerID        string          `gorm:"column:customer_id"`
	CustomerName      string          `gorm:"column:customer_name"`
	BillNumber        string          `gorm:"column:bill_number"`
	TransactionBroker string          `gorm:"column:transaction_broker"`
	Amount            decimal.Decimal `gorm:"column:amount"`
	SyncStatus        SyncStatus      `gorm:"column:sync_status"`
	UpdatedAt         time.Time       `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (BulkCreditPayment) TableName() string {
	return "bulk_credit_payments"
}
