package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vipul43/tillsync/internal/models"
)

// BillingRepository stores billings together with their items and payments
type BillingRepository struct {
	*CacheRepository[models.Billing]
}

func NewBillingRepository(db *gorm.DB) *BillingRepository {
	return &BillingRepository{CacheRepository: NewCacheRepository[models.Billing](db, "billing")}
}

// WithTx returns a repository bound to the given transaction
func (r *BillingRepository) WithTx(tx *gorm.DB) *BillingRepository {
	return &BillingRepository{CacheRepository: r.CacheRepository.WithTx(tx)}
}

// Upsert writes each billing and replaces its children in one transaction
func (r *BillingRepository) Upsert(ctx context.Context, billings ...models.Billing) error {
	if len(billings) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range billings {
			b := b
			items := b.Items
			payments := b.Payments

			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&b).Error; err != nil {
				return fmt.Errorf("billing %s: %w", b.ID, err)
			}

			if err := tx.Where("billing_id = ?", b.ID).Delete(&models.BillingItem{}).Error; err != nil {
				return fmt.Errorf("billing %s items: %w", b.ID, err)
			}
			if err := tx.Where("billing_id = ?", b.ID).Delete(&models.BillingPayment{}).Error; err != nil {
				return fmt.Errorf("billing %s payments: %w", b.ID, err)
			}

			for i := range items {
				items[i].BillingID = b.ID
			}
			for i := range payments {
				payments[i].BillingID = b.ID
			}

			if len(items) > 0 {
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&items).Error; err != nil {
					return fmt.Errorf("billing %s items: %w", b.ID, err)
				}
			}
			if len(payments) > 0 {
				if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&payments).Error; err != nil {
					return fmt.Errorf("billing %s payments: %w", b.ID, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert billing: %w", err)
	}
	r.feed.publish()
	return nil
}

// GetByID returns a billing with its items and payments
func (r *BillingRepository) GetByID(ctx context.Context, id string) (*models.Billing, error) {
	var billing models.Billing
	result := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ?", id).
		Take(&billing)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get billing %s: %w", id, result.Error)
	}
	return &billing, nil
}

// List returns every billing with its children
func (r *BillingRepository) List(ctx context.Context) ([]models.Billing, error) {
	var billings []models.Billing
	result := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Order("placed_at DESC").
		Order("id ASC").
		Find(&billings)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list billings: %w", result.Error)
	}
	return billings, nil
}

// DeleteByID removes a billing and its children
func (r *BillingRepository) DeleteByID(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("billing_id = ?", id).Delete(&models.BillingItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("billing_id = ?", id).Delete(&models.BillingPayment{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Billing{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete billing %s: %w", id, err)
	}
	r.feed.publish()
	return nil
}

// DeleteAll empties the billing tables
func (r *BillingRepository) DeleteAll(ctx context.Context) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.BillingItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.BillingPayment{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.Billing{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete all billings: %w", err)
	}
	r.feed.publish()
	return nil
}

// UpdateSyncStatus sets the status of a billing and its children
func (r *BillingRepository) UpdateSyncStatus(ctx context.Context, id string, status models.SyncStatus) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Billing{}).Where("id = ?", id).
			Updates(map[string]interface{}{"sync_status": status, "updated_at": r.now()}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.BillingItem{}).Where("billing_id = ?", id).
			Update("sync_status", status).Error; err != nil {
			return err
		}
		return tx.Model(&models.BillingPayment{}).Where("billing_id = ?", id).
			Update("sync_status", status).Error
	})
	if err != nil {
		return fmt.Errorf("failed to update billing %s sync status: %w", id, err)
	}
	r.feed.publish()
	return nil
}

// Subscribe emits every billing with children after each write, until ctx is done
func (r *BillingRepository) Subscribe(ctx context.Context) <-chan []models.Billing {
	out := make(chan []models.Billing, 1)
	changed, cancel := r.feed.subscribe()

	go func() {
		defer close(out)
		defer cancel()

		for {
			if rows, err := r.List(ctx); err == nil {
				select {
				case <-out:
				default:
				}
				out <- rows
			}

			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}()

	return out
}
