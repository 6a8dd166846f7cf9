package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vipul43/tillsync/internal/mapper"
	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
	"github.com/vipul43/tillsync/internal/repository"
	"github.com/vipul43/tillsync/internal/service"
)

// Records holds the write path services behind the /v1 record routes
type Records struct {
	Stocks             *service.StockService
	Billings           *service.BillingService
	Customers          *service.CustomerService
	Transactions       *service.TransactionService
	BulkCreditPayments *service.BulkCreditPaymentService
}

// recordWriter is the CRUD surface shared by every write path service
type recordWriter[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, org service.Org, row T) (T, error)
	Update(ctx context.Context, org service.Org, row T) (T, error)
	Delete(ctx context.Context, org service.Org, id string) error
}

// recordCodec converts between the wire payload the routes speak and the cache row
type recordCodec[T any, W remote.Payload] struct {
	toLocal  func(W, models.SyncStatus) T
	toRemote func(T) W
}

func (s *Server) mountRecords(v1 *gin.RouterGroup) {
	r := s.opts.Records
	if r == nil {
		return
	}

	stocks := v1.Group("/stocks")
	mountCRUD[models.Stock, remote.Stock](s, stocks, r.Stocks, recordCodec[models.Stock, remote.Stock]{
		toLocal:  mapper.StockToLocal,
		toRemote: mapper.StockToRemote,
	})
	stocks.POST("/:id/quantity", s.handleStockQuantity)

	billings := v1.Group("/billings")
	mountCRUD[models.Billing, remote.Billing](s, billings, r.Billings, recordCodec[models.Billing, remote.Billing]{
		toLocal:  mapper.BillingToLocal,
		toRemote: mapper.BillingToRemote,
	})
	billings.POST("/:id/deliver", s.handleDeliver)

	mountCRUD[models.Customer, remote.Customer](s, v1.Group("/customers"), r.Customers, recordCodec[models.Customer, remote.Customer]{
		toLocal:  mapper.CustomerToLocal,
		toRemote: mapper.CustomerToRemote,
	})
	mountCRUD[models.Transaction, remote.Transaction](s, v1.Group("/transactions"), r.Transactions, recordCodec[models.Transaction, remote.Transaction]{
		toLocal:  mapper.TransactionToLocal,
		toRemote: mapper.TransactionToRemote,
	})
	mountCRUD[models.BulkCreditPayment, remote.BulkCreditPayment](s, v1.Group("/bulk-credit-payments"), r.BulkCreditPayments, recordCodec[models.BulkCreditPayment, remote.BulkCreditPayment]{
		toLocal:  mapper.BulkCreditPaymentToLocal,
		toRemote: mapper.BulkCreditPaymentToRemote,
	})
}

// mountCRUD registers list, get, create, update and delete for one entity type.
// Bodies and responses use the server wire format.
func mountCRUD[T any, W remote.Payload](s *Server, g *gin.RouterGroup, svc recordWriter[T], codec recordCodec[T, W]) {
	g.GET("", func(c *gin.Context) {
		rows, err := svc.List(c.Request.Context())
		if err != nil {
			abortRecordError(c, err)
			return
		}
		out := make([]W, 0, len(rows))
		for _, row := range rows {
			out = append(out, codec.toRemote(row))
		}
		c.JSON(http.StatusOK, out)
	})

	g.GET("/:id", func(c *gin.Context) {
		row, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			abortRecordError(c, err)
			return
		}
		c.JSON(http.StatusOK, codec.toRemote(*row))
	})

	g.POST("", func(c *gin.Context) {
		var body W
		if err := c.ShouldBindJSON(&body); err != nil {
			abortError(c, http.StatusBadRequest, err)
			return
		}
		row, err := svc.Create(c.Request.Context(), s.recordOrg(c), codec.toLocal(body, models.SyncStatusPending))
		if err != nil {
			abortRecordError(c, err)
			return
		}
		c.JSON(http.StatusCreated, codec.toRemote(row))
	})

	// PUT decodes the body over the current row, so omitted fields keep their value
	g.PUT("/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		id := c.Param("id")
		current, err := svc.Get(ctx, id)
		if err != nil {
			abortRecordError(c, err)
			return
		}

		body := codec.toRemote(*current)
		if err := c.ShouldBindJSON(&body); err != nil {
			abortError(c, http.StatusBadRequest, err)
			return
		}
		if body.EntityID() != id {
			abortError(c, http.StatusBadRequest, errors.New("body id does not match the path"))
			return
		}

		row, err := svc.Update(ctx, s.recordOrg(c), codec.toLocal(body, models.SyncStatusPending))
		if err != nil {
			abortRecordError(c, err)
			return
		}
		c.JSON(http.StatusOK, codec.toRemote(row))
	})

	g.DELETE("/:id", func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), s.recordOrg(c), c.Param("id")); err != nil {
			abortRecordError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

type quantityRequest struct {
	Delta *int `json:"delta" binding:"required"`
}

func (s *Server) handleStockQuantity(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, err)
		return
	}
	stock, err := s.opts.Records.Stocks.UpdateQuantity(c.Request.Context(), s.recordOrg(c), c.Param("id"), *req.Delta)
	if err != nil {
		abortRecordError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.StockToRemote(stock))
}

func (s *Server) handleDeliver(c *gin.Context) {
	billing, err := s.opts.Records.Billings.Deliver(c.Request.Context(), s.recordOrg(c), c.Param("id"))
	if err != nil {
		abortRecordError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapper.BillingToRemote(billing))
}

// recordOrg stamps mutations with the configured organization unless the
// request names both a slug and an id
func (s *Server) recordOrg(c *gin.Context) service.Org {
	slug, id := c.Query("org"), c.Query("org_id")
	if slug == "" && id == "" {
		return service.Org{Slug: s.opts.Organization, ID: s.opts.OrganizationID}
	}
	return service.Org{Slug: slug, ID: id}
}

func abortRecordError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, err)
	case errors.Is(err, repository.ErrNotFound):
		abortError(c, http.StatusNotFound, err)
	default:
		abortError(c, http.StatusInternalServerError, err)
	}
}
