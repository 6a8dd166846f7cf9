package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vipul43/tillsync/internal/mapper"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
	"github.com/vipul43/tillsync/internal/repository"
)

func newID() string {
	return uuid.NewString()
}

// RecordService is the plain create/update/delete write path shared by
// customers, transactions and bulk credit payments
type RecordService[T repository.CachedRecord, W remote.Payload] struct {
	rec *recorder[T, W]
}

func newRecordService[T repository.CachedRecord, W remote.Payload](db *gorm.DB, repo *repository.CacheRepository[T], spec entitySpec[T, W]) *RecordService[T, W] {
	store := func(tx *gorm.DB) rowStore[T] { return repo.WithTx(tx) }
	return &RecordService[T, W]{rec: newRecorder(db, store, spec)}
}

func (s *RecordService[T, W]) Get(ctx context.Context, id string) (*T, error) {
	return s.rec.get(ctx, id)
}

func (s *RecordService[T, W]) List(ctx context.Context) ([]T, error) {
	return s.rec.list(ctx)
}

func (s *RecordService[T, W]) Create(ctx context.Context, org Org, row T) (T, error) {
	return s.rec.create(ctx, org, row)
}

func (s *RecordService[T, W]) Update(ctx context.Context, org Org, row T) (T, error) {
	return s.rec.update(ctx, org, row)
}

func (s *RecordService[T, W]) Delete(ctx context.Context, org Org, id string) error {
	return s.rec.delete(ctx, org, id)
}

type (
	CustomerService          = RecordService[models.Customer, remote.Customer]
	TransactionService       = RecordService[models.Transaction, remote.Transaction]
	BulkCreditPaymentService = RecordService[models.BulkCreditPayment, remote.BulkCreditPayment]
)

func NewCustomerService(db *gorm.DB, repo *repository.CacheRepository[models.Customer]) *CustomerService {
	return newRecordService(db, repo, entitySpec[models.Customer, remote.Customer]{
		entity: models.EntityCustomer,
		id:     func(c *models.Customer) *string { return &c.ID },
		stamp: func(c *models.Customer, org Org, at string, creating bool) {
			c.OrgSlug, c.OrgID = org.Slug, org.ID
			if creating {
				c.Created = at
			}
			c.Modified = at
			c.SyncStatus = models.SyncStatusPending
		},
		toRemote: mapper.CustomerToRemote,
	})
}

func NewTransactionService(db *gorm.DB, repo *repository.CacheRepository[models.Transaction]) *TransactionService {
	return newRecordService(db, repo, entitySpec[models.Transaction, remote.Transaction]{
		entity: models.EntityTransaction,
		id:     func(t *models.Transaction) *string { return &t.ID },
		stamp: func(t *models.Transaction, org Org, at string, creating bool) {
			t.OrgSlug, t.OrgID = org.Slug, org.ID
			if creating {
				t.Created = at
			}
			t.Modified = at
			t.SyncStatus = models.SyncStatusPending
		},
		toRemote: mapper.TransactionToRemote,
	})
}

func NewBulkCreditPaymentService(db *gorm.DB, repo *repository.CacheRepository[models.BulkCreditPayment]) *BulkCreditPaymentService {
	return newRecordService(db, repo, entitySpec[models.BulkCreditPayment, remote.BulkCreditPayment]{
		entity: models.EntityBulkCreditPayment,
		id:     func(p *models.BulkCreditPayment) *string { return &p.ID },
		stamp: func(p *models.BulkCreditPayment, org Org, at string, creating bool) {
			p.OrgSlug, p.OrgID = org.Slug, org.ID
			if creating {
				p.Created = at
			}
			p.Modified = at
			p.SyncStatus = models.SyncStatusPending
		},
		toRemote: mapper.BulkCreditPaymentToRemote,
	})
}
