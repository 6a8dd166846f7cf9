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

type StockService struct {
	rec *recorder[models.Stock, remote.Stock]
}

func NewStockService(db *gorm.DB, stocks *repository.CacheRepository[models.Stock]) *StockService {
	store := func(tx *gorm.DB) rowStore[models.Stock] { return stocks.WithTx(tx) }
	return &StockService{rec: newRecorder(db, store, entitySpec[models.Stock, remote.Stock]{
		entity: models.EntityStock,
		id:     func(s *models.Stock) *string { return &s.ID },
		stamp: func(s *models.Stock, org Org, at string, creating bool) {
			s.OrgSlug, s.OrgID = org.Slug, org.ID
			if creating {
				s.Created = at
			}
			s.Modified = at
			s.SyncStatus = models.SyncStatusPending
		},
		toRemote: mapper.StockToRemote,
	})}
}

func (s *StockService) Get(ctx context.Context, id string) (*models.Stock, error) {
	return s.rec.get(ctx, id)
}

func (s *StockService) List(ctx context.Context) ([]models.Stock, error) {
	return s.rec.list(ctx)
}

func (s *StockService) Create(ctx context.Context, org Org, stock models.Stock) (models.Stock, error) {
	return s.rec.create(ctx, org, stock)
}

func (s *StockService) Update(ctx context.Context, org Org, stock models.Stock) (models.Stock, error) {
	return s.rec.update(ctx, org, stock)
}

func (s *StockService) Delete(ctx context.Context, org Org, id string) error {
	return s.rec.delete(ctx, org, id)
}

// UpdateQuantity applies delta to the cached quantity and records it as an
// EVENT: each call is replayed on its own and the server adds the delta.
func (s *StockService) UpdateQuantity(ctx context.Context, org Org, id string, delta int) (models.Stock, error) {
	if err := org.validate(); err != nil {
		return models.Stock{}, err
	}
	current, err := s.rec.get(ctx, id)
	if err != nil {
		return models.Stock{}, fmt.Errorf("failed to load stock %s: %w", id, err)
	}
	if delta == 0 {
		return *current, nil
	}

	stock := *current
	stock.Quantity += delta
	s.rec.spec.stamp(&stock, org, s.rec.timestamp(), false)

	payload := mapper.StockToRemote(stock)
	payload.Quantity = delta

	err = s.rec.save(ctx, org, stock, models.OperationUpdateStockQuantity, models.ScopeEvent, payload)
	return stock, err
}
