package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Billing is a sale with its line items and payments. The three tables are
// always written together.
type Billing struct {
	ID                  string           `gorm:"column:id;primaryKey"`
	Created             string           `gorm:"column:created"`
	Modified            string           `gorm:"column:modified"`
	OrgSlug             string           `gorm:"column:org_slug"`
	OrgID               string           `gorm:"column:org_id"`
	OrgUserID           string           `gorm:"column:org_user_id"`
	OrgUserName         string           `gorm:"column:org_user_name"`
	BillNumber          string           `gorm:"column:bill_number"`
	PlacedAt            string           `gorm:"column:placed_at"`
	CustomerID          string           `gorm:"column:customer_id"`
	CustomerName        string           `gorm:"column:customer_name"`
	CustomerPhoneNumber *string          `gorm:"column:customer_phone_number"`
	IsDelivered         bool             `gorm:"column:is_delivered"`
	SyncStatus          SyncStatus       `gorm:"column:sync_status"`
	UpdatedAt           time.Time        `gorm:"column:updated_at"`
	Items               []BillingItem    `gorm:"foreignKey:BillingID"`
	Payments            []BillingPayment `gorm:"foreignKey:BillingID"`
}

// TableName specifies the table name for GORM
func (Billing) TableName() string {
	return "billings"
}

type BillingItem struct {
	ID          string          `gorm:"column:id;primaryKey"`
	BillingID   string          `gorm:"column:billing_id"`
	Created     string          `gorm:"column:created"`
	Modified    string          `gorm:"column:modified"`
	OrgSlug     string          `gorm:"column:org_slug"`
	OrgID       string          `gorm:"column:org_id"`
	OrgUserID   string          `gorm:"column:org_user_id"`
	StockID     string          `gorm:"column:stock_id"`
	StockName   string          `gorm:"column:stock_name"`
	Quantity    int             `gorm:"column:quantity"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price"`
	IsDelivered bool            `gorm:"column:is_delivered"`
	SyncStatus  SyncStatus      `gorm:"column:sync_status"`
}

// TableName specifies the table name for GORM
func (BillingItem) TableName() string {
	return "billing_items"
}

type BillingPayment struct {
	ID                string          `gorm:"column:id;primaryKey"`
	BillingID         string          `gorm:"column:billing_id"`
	Created           string          `gorm:"column:created"`
	Modified          string          `gorm:"column:modified"`
	OrgSlug           string          `gorm:"column:org_slug"`
	OrgID             string          `gorm:"column:org_id"`
	OrgUserID         string          `gorm:"column:org_user_id"`
	TransactionBroker string          `gorm:"column:transaction_broker"`
	Amount            decimal.Decimal `gorm:"column:amount"`
	SyncStatus        SyncStatus      `gorm:"column:sync_status"`
}

// TableName specifies the table name for GORM
func (BillingPayment) TableName() string {
	return "billing_payments"
}

// Total sums the line items of the bill
func (b Billing) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Paid sums the payments recorded on the bill
func (b Billing) Paid() decimal.Decimal {
	paid := decimal.Zero
	for _, p := range b.Payments {
		paid = paid.Add(p.Amount)
	}
	return paid
}
