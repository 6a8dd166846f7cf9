package remote

import "github.com/vipul43/tillsync/internal/models"

// Stock is the server representation of a stock line
type Stock struct {
	ID             string `json:"id"`
	Created        string `json:"created"`
	Modified       string `json:"modified"`
	OrgID          string `json:"organization_id"`
	OrgSlug        string `json:"organization_slug"`
	OrgUserID      string `json:"organization_user_id"`
	OrgUserName    string `json:"organization_user_name"`
	BatchID        string `json:"batch_id"`
	BatchNumber    string `json:"batch_number"`
	ItemID         string `json:"item_id"`
	ItemName       string `json:"item_name"`
	CategoryID     string `json:"category_id"`
	CategoryName   string `json:"category_name"`
	ReceivedDate   string `json:"received_date"`
	ExpirationDate string `json:"expiration_date"`
	PurchasePrice  Money  `json:"purchase_price"`
	BillingPrice   Money  `json:"facturation_price"`
	Quantity       int    `json:"quantity"`
	IsActive       bool   `json:"is_active"`
}

type Customer struct {
	ID          string  `json:"id"`
	Created     string  `json:"created"`
	Modified    string  `json:"modified"`
	OrgSlug     string  `json:"organization_slug"`
	OrgID       string  `json:"organization_id"`
	Name        string  `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

type Transaction struct {
	ID                string                 `json:"id"`
	Created           string                 `json:"created"`
	Modified          string                 `json:"modified"`
	OrgSlug           string                 `json:"organization_slug"`
	OrgID             string                 `json:"organization_id"`
	OrgUserID         string                 `json:"organization_user_id"`
	OrgUserName       string                 `json:"organization_user_name"`
	Participant       string                 `json:"participant"`
	Reason            string                 `json:"reason"`
	Amount            Money                  `json:"amount"`
	TransactionType   models.TransactionType `json:"transaction_type"`
	TransactionBroker string                 `json:"transaction_broker"`
}

type BulkCreditPayment struct {
	ID                string `json:"id"`
	Created           string `json:"created"`
	Modified          string `json:"modified"`
	CustomerID        string `json:"customer_id"`
	OrgSlug           string `json:"organization_slug"`
	OrgID             string `json:"organization_id"`
	OrgUserID         string `json:"organization_user_id"`
	OrgUserName       string `json:"organization_user_name"`
	BillNumber        string `json:"bill_number"`
	CustomerName      string `json:"customer_name"`
	TransactionBroker string `json:"transaction_broker"`
	Amount            Money  `json:"amount"`
}

type Billing struct {
	ID                  string           `json:"id"`
	Created             string           `json:"created"`
	Modified            string           `json:"modified"`
	OrgSlug             string           `json:"organization_slug"`
	OrgID               string           `json:"organization_id"`
	OrgUserID           string           `json:"organization_user_id"`
	OrgUserName         string           `json:"organization_user_name"`
	BillNumber          string           `json:"bill_number"`
	PlacedAt            string           `json:"placed_at"`
	CustomerID          string           `json:"customer_id"`
	CustomerName        string           `json:"customer_name"`
	CustomerPhoneNumber *string          `json:"customer_phone_number"`
	IsDelivered         bool             `json:"is_delivered"`
	Items               []BillingItem    `json:"facturation_stocks"`
	Payments            []BillingPayment `json:"facturation_payments"`
}

type BillingItem struct {
	ID          string `json:"id"`
	Created     string `json:"created"`
	Modified    string `json:"modified"`
	OrgSlug     string `json:"organization_slug"`
	OrgID       string `json:"organization_id"`
	OrgUserID   string `json:"organization_user_id"`
	StockName   string `json:"stock_name"`
	StockID     string `json:"stock_id"`
	IsDelivered bool   `json:"is_delivered"`
	BillingID   string `json:"facturation_id"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
}

type BillingPayment struct {
	ID                string `json:"id"`
	Created           string `json:"created"`
	Modified          string `json:"modified"`
	OrgSlug           string `json:"organization_slug"`
	OrgID             string `json:"organization_id"`
	OrgUserID         string `json:"organization_user_id"`
	BillingID         string `json:"facturation_id"`
	TransactionBroker string `json:"transaction_broker"`
	Amount            Money  `json:"amount"`
}
