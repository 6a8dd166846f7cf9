package models

import (
	"time"

	"gorm.io/datatypes"
)

type OperationType string

const (
	OperationCreate              OperationType = "CREATE"
	OperationUpdate              OperationType = "UPDATE"
	OperationDelete              OperationType = "DELETE"
	OperationDeliverOrder        OperationType = "DELIVER_ORDER"
	OperationUpdateStockQuantity OperationType = "UPDATE_STOCK_QUANTITY"
	OperationApproveSession      OperationType = "APPROVE_SESSION"
	OperationStartSession        OperationType = "START_SESSION"
	OperationEndSession          OperationType = "END_SESSION"
)

// OperationScope decides how a pending operation is collapsed and removed.
// STATE rows describe the latest desired state of an entity; EVENT rows are
// independent occurrences (deltas) that must each be delivered.
type OperationScope string

const (
	ScopeState OperationScope = "STATE"
	ScopeEvent OperationScope = "EVENT"
)

// PendingOperation is a durable intent to replay a local mutation against the server
type PendingOperation struct {
	ID             int64          `gorm:"column:id;primaryKey;autoIncrement"`
	OperationKey   string         `gorm:"column:operation_key;uniqueIndex"`
	EntityType     EntityType     `gorm:"column:entity_type"`
	EntityID       string         `gorm:"column:entity_id"`
	OrgSlug        string         `gorm:"column:org_slug"`
	OrgID          string         `gorm:"column:org_id"`
	OperationType  OperationType  `gorm:"column:operation_type"`
	OperationScope OperationScope `gorm:"column:operation_scope"`
	Payload        datatypes.JSON `gorm:"column:payload"`
	CreatedAt      int64          `gorm:"column:created_at;autoCreateTime:milli"`
	FailedAttempts int            `gorm:"column:failed_attempts"`
	LastError      *string        `gorm:"column:last_error"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
func (PendingOperation) TableName() string {
	return "pending_operations"
}

// Keys returns the composite key used to collapse and remove STATE rows
func (op PendingOperation) Keys() OperationKeys {
	return OperationKeys{
		EntityType:    op.EntityType,
		EntityID:      op.EntityID,
		OperationType: op.OperationType,
		OrgID:         op.OrgID,
	}
}

// OperationKeys is the (entityType, entityId, operationType, orgId) tuple
type OperationKeys struct {
	EntityType    EntityType
	EntityID      string
	OperationType OperationType
	OrgID         string
}
