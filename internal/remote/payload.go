package remote

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vipul43/tillsync/internal/models"
)

var ErrUnknownEntityType = errors.New("unknown entity type")

// Payload is the wire snapshot stored with a pending operation. The set of
// implementations is closed: only the types in this file satisfy it.
type Payload interface {
	EntityType() models.EntityType
	EntityID() string
	payload()
}

func (Billing) EntityType() models.EntityType           { return models.EntityBilling }
func (Stock) EntityType() models.EntityType             { return models.EntityStock }
func (Customer) EntityType() models.EntityType          { return models.EntityCustomer }
func (Transaction) EntityType() models.EntityType       { return models.EntityTransaction }
func (BulkCreditPayment) EntityType() models.EntityType { return models.EntityBulkCreditPayment }

func (b Billing) EntityID() string           { return b.ID }
func (s Stock) EntityID() string             { return s.ID }
func (c Customer) EntityID() string          { return c.ID }
func (t Transaction) EntityID() string       { return t.ID }
func (p BulkCreditPayment) EntityID() string { return p.ID }

func (Billing) payload()           {}
func (Stock) payload()             {}
func (Customer) payload()          {}
func (Transaction) payload()       {}
func (BulkCreditPayment) payload() {}

// DecodePayload decodes a stored snapshot into the wire type of entityType
func DecodePayload(entityType models.EntityType, raw []byte) (Payload, error) {
	switch entityType {
	case models.EntityBilling:
		return decodeAs[Billing](raw)
	case models.EntityStock:
		return decodeAs[Stock](raw)
	case models.EntityCustomer:
		return decodeAs[Customer](raw)
	case models.EntityTransaction:
		return decodeAs[Transaction](raw)
	case models.EntityBulkCreditPayment:
		return decodeAs[BulkCreditPayment](raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, entityType)
	}
}

// EncodePayload serializes a snapshot for storage
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", p.EntityType(), err)
	}
	return data, nil
}

func decodeAs[T Payload](raw []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", v.EntityType(), err)
	}
	return v, nil
}
