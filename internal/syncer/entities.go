package syncer

import (
	"log"

	"github.com/vipul43/tillsync/internal/mapper"
	"github.com/vipul43/tillsync/internal/metrics"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
)

// Deps are the collaborators shared by every entity service
type Deps struct {
	Client   *remote.Client
	Log      OperationLog
	Metadata MetadataStore
	Policy   Policy
	Metrics  *metrics.Metrics
	// Logger overrides the per-entity default logger when set
	Logger *log.Logger
}

func NewBillingService(d Deps, store Store[models.Billing]) *EntityService[remote.Billing] {
	res := remote.NewBillingResource(d.Client)
	return NewEntityService(Config[remote.Billing]{
		EntityType: models.EntityBilling,
		Remote:     res,
		Cache:      NewStoreCache[remote.Billing, models.Billing](store, mapper.BillingToLocal),
		Actions: map[models.OperationType]Action[remote.Billing]{
			models.OperationDeliverOrder: res.Action("deliver"),
		},
		Log:      d.Log,
		Metadata: d.Metadata,
		Policy:   d.Policy,
		Logger:   d.Logger,
		Metrics:  d.Metrics,
	})
}

func NewStockService(d Deps, store Store[models.Stock]) *EntityService[remote.Stock] {
	res := remote.NewStockResource(d.Client)
	return NewEntityService(Config[remote.Stock]{
		EntityType: models.EntityStock,
		Remote:     res,
		Cache:      NewStoreCache[remote.Stock, models.Stock](store, mapper.StockToLocal),
		Actions: map[models.OperationType]Action[remote.Stock]{
			models.OperationUpdateStockQuantity: res.Action("edit-quantity"),
		},
		Log:      d.Log,
		Metadata: d.Metadata,
		Policy:   d.Policy,
		Logger:   d.Logger,
		Metrics:  d.Metrics,
	})
}

func NewCustomerService(d Deps, store Store[models.Customer]) *EntityService[remote.Customer] {
	return NewEntityService(Config[remote.Customer]{
		EntityType: models.EntityCustomer,
		Remote:     remote.NewCustomerResource(d.Client),
		Cache:      NewStoreCache[remote.Customer, models.Customer](store, mapper.CustomerToLocal),
		Log:        d.Log,
		Metadata:   d.Metadata,
		Policy:     d.Policy,
		Logger:     d.Logger,
		Metrics:    d.Metrics,
	})
}

func NewTransactionService(d Deps, store Store[models.Transaction]) *EntityService[remote.Transaction] {
	return NewEntityService(Config[remote.Transaction]{
		EntityType: models.EntityTransaction,
		Remote:     remote.NewTransactionResource(d.Client),
		Cache:      NewStoreCache[remote.Transaction, models.Transaction](store, mapper.TransactionToLocal),
		Log:        d.Log,
		Metadata:   d.Metadata,
		Policy:     d.Policy,
		Logger:     d.Logger,
		Metrics:    d.Metrics,
	})
}

func NewBulkCreditPaymentService(d Deps, store Store[models.BulkCreditPayment]) *EntityService[remote.BulkCreditPayment] {
	return NewEntityService(Config[remote.BulkCreditPayment]{
		EntityType: models.EntityBulkCreditPayment,
		Remote:     remote.NewBulkCreditPaymentResource(d.Client),
		Cache:      NewStoreCache[remote.BulkCreditPayment, models.BulkCreditPayment](store, mapper.BulkCreditPaymentToLocal),
		Log:        d.Log,
		Metadata:   d.Metadata,
		Policy:     d.Policy,
		Logger:     d.Logger,
		Metrics:    d.Metrics,
	})
}
