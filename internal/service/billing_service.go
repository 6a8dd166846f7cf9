package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vipul43/tillsync/internal/mapper"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
	"github.com/vipul43/tillsync/internal/repository"
)

// BillingService records sales together with their items and payments
type BillingService struct {
	rec *recorder[models.Billing, remote.Billing]
}

func NewBillingService(db *gorm.DB, billings *repository.BillingRepository) *BillingService {
	store := func(tx *gorm.DB) rowStore[models.Billing] { return billings.WithTx(tx) }
	return &BillingService{rec: newRecorder(db, store, entitySpec[models.Billing, remote.Billing]{
		entity:   models.EntityBilling,
		id:       func(b *models.Billing) *string { return &b.ID },
		stamp:    stampBilling,
		toRemote: mapper.BillingToRemote,
	})}
}

func stampBilling(b *models.Billing, org Org, at string, creating bool) {
	b.OrgSlug, b.OrgID = org.Slug, org.ID
	if creating {
		b.Created = at
		if b.PlacedAt == "" {
			b.PlacedAt = at
		}
	}
	b.Modified = at
	b.SyncStatus = models.SyncStatusPending

	for i := range b.Items {
		item := &b.Items[i]
		if item.ID == "" {
			item.ID = newID()
		}
		if item.Created == "" {
			item.Created = at
		}
		item.BillingID = b.ID
		item.OrgSlug, item.OrgID = org.Slug, org.ID
		item.Modified = at
		item.SyncStatus = models.SyncStatusPending
	}
	for i := range b.Payments {
		p := &b.Payments[i]
		if p.ID == "" {
			p.ID = newID()
		}
		if p.Created == "" {
			p.Created = at
		}
		p.BillingID = b.ID
		p.OrgSlug, p.OrgID = org.Slug, org.ID
		p.Modified = at
		p.SyncStatus = models.SyncStatusPending
	}
}

func (s *BillingService) Get(ctx context.Context, id string) (*models.Billing, error) {
	return s.rec.get(ctx, id)
}

func (s *BillingService) List(ctx context.Context) ([]models.Billing, error) {
	return s.rec.list(ctx)
}

func (s *BillingService) Create(ctx context.Context, org Org, billing models.Billing) (models.Billing, error) {
	if len(billing.Items) == 0 {
		return billing, fmt.Errorf("%w: a sale needs at least one item", ErrInvalidInput)
	}
	return s.rec.create(ctx, org, billing)
}

func (s *BillingService) Update(ctx context.Context, org Org, billing models.Billing) (models.Billing, error) {
	return s.rec.update(ctx, org, billing)
}

func (s *BillingService) Delete(ctx context.Context, org Org, id string) error {
	return s.rec.delete(ctx, org, id)
}

// Deliver marks the sale and all its items delivered
func (s *BillingService) Deliver(ctx context.Context, org Org, id string) (models.Billing, error) {
	if err := org.validate(); err != nil {
		return models.Billing{}, err
	}
	current, err := s.rec.get(ctx, id)
	if err != nil {
		return models.Billing{}, fmt.Errorf("failed to load billing %s: %w", id, err)
	}

	billing := *current
	billing.IsDelivered = true
	for i := range billing.Items {
		billing.Items[i].IsDelivered = true
	}
	stampBilling(&billing, org, s.rec.timestamp(), false)

	err = s.rec.save(ctx, org, billing, models.OperationDeliverOrder, models.ScopeState, mapper.BillingToRemote(billing))
	return billing, err
}
