package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
	"github.com/vipul43/tillsync/internal/repository"
	"github.com/vipul43/tillsync/internal/service"
	"github.com/vipul43/tillsync/internal/testutil"
)

type recordFixture struct {
	db      *gorm.DB
	handler http.Handler
}

func newRecordFixture(t *testing.T, orgID string) *recordFixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := newFixture()

	h := NewServer(Options{
		Runner:         f.runner,
		Cache:          mockCache{},
		Metadata:       f.meta,
		Operations:     f.ops,
		Gatherer:       f.reg,
		Organization:   "acme",
		OrganizationID: orgID,
		Records: &Records{
			Stocks:             service.NewStockService(db, repository.NewCacheRepository[models.Stock](db, "stock")),
			Billings:           service.NewBillingService(db, repository.NewBillingRepository(db)),
			Customers:          service.NewCustomerService(db, repository.NewCacheRepository[models.Customer](db, "customer")),
			Transactions:       service.NewTransactionService(db, repository.NewCacheRepository[models.Transaction](db, "transaction")),
			BulkCreditPayments: service.NewBulkCreditPaymentService(db, repository.NewCacheRepository[models.BulkCreditPayment](db, "bulk credit payment")),
		},
		MaxFailedAttempts: 5,
	}).Handler()

	return &recordFixture{db: db, handler: h}
}

func (f *recordFixture) send(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *recordFixture) pending(t *testing.T) []models.PendingOperation {
	t.Helper()
	ops, err := repository.NewPendingOperationRepository(f.db).ListPending(context.Background())
	require.NoError(t, err)
	return ops
}

func decodeStock(t *testing.T, rec *httptest.ResponseRecorder) remote.Stock {
	t.Helper()
	var s remote.Stock
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func TestRecords_CreateStockUsesConfiguredOrganization(t *testing.T) {
	f := newRecordFixture(t, "org1")

	rec := f.send(t, http.MethodPost, "/v1/stocks", `{"item_name":"Gauze","quantity":10,"facturation_price":250.5}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	stock := decodeStock(t, rec)
	require.NotEmpty(t, stock.ID)
	assert.Equal(t, "acme", stock.OrgSlug)
	assert.Equal(t, "org1", stock.OrgID)
	assert.Equal(t, "250.5", stock.BillingPrice.String())
	assert.Contains(t, rec.Body.String(), `"facturation_price":250.5`)

	ops := f.pending(t)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OperationCreate, ops[0].OperationType)
	assert.Equal(t, stock.ID, ops[0].EntityID)
	assert.Equal(t, "org1", ops[0].OrgID)
}

func TestRecords_RequestOrganizationOverridesDefault(t *testing.T) {
	f := newRecordFixture(t, "org1")

	rec := f.send(t, http.MethodPost, "/v1/customers?org=other&org_id=org2", `{"name":"Ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var customer remote.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &customer))
	assert.Equal(t, "other", customer.OrgSlug)
	assert.Equal(t, "org2", customer.OrgID)
}

func TestRecords_MissingOrganizationIDIsBadRequest(t *testing.T) {
	f := newRecordFixture(t, "")

	rec := f.send(t, http.MethodPost, "/v1/customers", `{"name":"Ada"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid input")
	assert.Empty(t, f.pending(t))
}

func TestRecords_UpdateKeepsOmittedFields(t *testing.T) {
	f := newRecordFixture(t, "org1")
	created := decodeStock(t, f.send(t, http.MethodPost, "/v1/stocks", `{"item_name":"Gauze","quantity":10}`))

	rec := f.send(t, http.MethodPut, "/v1/stocks/"+created.ID, `{"item_name":"Gauze 10cm"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	updated := decodeStock(t, rec)
	assert.Equal(t, "Gauze 10cm", updated.ItemName)
	assert.Equal(t, 10, updated.Quantity)
	assert.Equal(t, created.Created, updated.Created)

	rec = f.send(t, http.MethodGet, "/v1/stocks/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gauze 10cm", decodeStock(t, rec).ItemName)
}

func TestRecords_UpdateRejectsMismatchedID(t *testing.T) {
	f := newRecordFixture(t, "org1")
	created := decodeStock(t, f.send(t, http.MethodPost, "/v1/stocks", `{"item_name":"Gauze"}`))

	rec := f.send(t, http.MethodPut, "/v1/stocks/"+created.ID, `{"id":"other"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecords_UnknownIDIsNotFound(t *testing.T) {
	f := newRecordFixture(t, "org1")

	assert.Equal(t, http.StatusNotFound, f.send(t, http.MethodGet, "/v1/transactions/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, f.send(t, http.MethodPut, "/v1/transactions/missing", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, f.send(t, http.MethodDelete, "/v1/bulk-credit-payments/missing", "").Code)
	assert.Equal(t, http.StatusNotFound, f.send(t, http.MethodPost, "/v1/stocks/missing/quantity", `{"delta":1}`).Code)
	assert.Empty(t, f.pending(t))
}

func TestRecords_DeleteRecordsOperation(t *testing.T) {
	f := newRecordFixture(t, "org1")
	created := decodeStock(t, f.send(t, http.MethodPost, "/v1/stocks", `{"item_name":"Gauze"}`))

	rec := f.send(t, http.MethodDelete, "/v1/stocks/"+created.ID, "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, f.send(t, http.MethodGet, "/v1/stocks/"+created.ID, "").Code)

	rec = f.send(t, http.MethodGet, "/v1/stocks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	ops := f.pending(t)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OperationDelete, ops[1].OperationType)
}

func TestRecords_StockQuantityDelta(t *testing.T) {
	f := newRecordFixture(t, "org1")
	created := decodeStock(t, f.send(t, http.MethodPost, "/v1/stocks", `{"item_name":"Gauze","quantity":10}`))

	rec := f.send(t, http.MethodPost, "/v1/stocks/"+created.ID+"/quantity", `{"delta":-3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, decodeStock(t, rec).Quantity)

	ops := f.pending(t)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OperationUpdateStockQuantity, ops[1].OperationType)
	assert.Equal(t, models.ScopeEvent, ops[1].OperationScope)

	rec = f.send(t, http.MethodPost, "/v1/stocks/"+created.ID+"/quantity", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecords_BillingCreateAndDeliver(t *testing.T) {
	f := newRecordFixture(t, "org1")

	rec := f.send(t, http.MethodPost, "/v1/billings", `{"bill_number":"B-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.send(t, http.MethodPost, "/v1/billings", `{"bill_number":"B-1","facturation_stocks":[{"stock_name":"Gauze","quantity":2,"unit_price":3.5}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var billing remote.Billing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &billing))
	require.Len(t, billing.Items, 1)
	assert.Equal(t, billing.ID, billing.Items[0].BillingID)

	rec = f.send(t, http.MethodPost, "/v1/billings/"+billing.ID+"/deliver", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var delivered remote.Billing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &delivered))
	assert.True(t, delivered.IsDelivered)
	assert.True(t, delivered.Items[0].IsDelivered)

	ops := f.pending(t)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OperationDeliverOrder, ops[1].OperationType)
}
