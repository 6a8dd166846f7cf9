package models

// EntityType names a kind of business record that can carry pending operations.
type EntityType string

const (
	EntityBilling           EntityType = "Billing"
	EntityStock             EntityType = "Stock"
	EntityCustomer          EntityType = "Customer"
	EntityTransaction       EntityType = "Transaction"
	EntityBulkCreditPayment EntityType = "BulkCreditPayment"
	EntityAttendance        EntityType = "Attendance"
	EntitySession           EntityType = "Session"
)

// SyncedEntityTypes lists the entity types that have a sync service in this module.
var SyncedEntityTypes = []EntityType{
	EntityBilling,
	EntityStock,
	EntityCustomer,
	EntityTransaction,
	EntityBulkCreditPayment,
}

// SyncStatus is the per-record replication state shown to the user
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "PENDING"
	SyncStatusSyncing SyncStatus = "SYNCING"
	SyncStatusSynced  SyncStatus = "SYNCED"
	SyncStatusFailed  SyncStatus = "FAILED"
)
