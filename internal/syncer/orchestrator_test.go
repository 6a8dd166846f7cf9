package syncer

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vipul43/tillsync/internal/metrics"
	"github.com/vipul43/tillsync/internal/models"
)

type fakeService struct {
	entity models.EntityType
	pushFn func(ops []models.PendingOperation) (PushReport, error)
	pullFn func() (PullReport, error)
	cached bool

	mu     sync.Mutex
	pushed []models.PendingOperation
	pulled int
}

func (s *fakeService) Entity() models.EntityType { return s.entity }

func (s *fakeService) Push(ctx context.Context, ops []models.PendingOperation) (PushReport, error) {
	s.mu.Lock()
	s.pushed = append(s.pushed, ops...)
	s.mu.Unlock()
	if s.pushFn != nil {
		return s.pushFn(ops)
	}
	return PushReport{Total: len(ops), Synced: len(ops)}, nil
}

func (s *fakeService) PullAll(ctx context.Context, organization string) (PullReport, error) {
	s.mu.Lock()
	s.pulled++
	s.mu.Unlock()
	if s.pullFn != nil {
		return s.pullFn()
	}
	return PullReport{Mode: models.SyncModeFull}, nil
}

func (s *fakeService) HasCachedData(ctx context.Context) (bool, error) {
	return s.cached, nil
}

func op(entity models.EntityType, id, org string) models.PendingOperation {
	return models.PendingOperation{
		EntityType:     entity,
		EntityID:       id,
		OrgSlug:        org,
		OrgID:          org,
		OperationType:  models.OperationUpdate,
		OperationScope: models.ScopeState,
	}
}

func newTestOrchestrator(ops *fakeLog, m *metrics.Metrics, services ...Service) *Orchestrator {
	return NewOrchestrator(ops, 2, log.New(io.Discard, "", 0), m, services...)
}

func TestOrchestratorPush_RoutesOperationsByEntityType(t *testing.T) {
	ops := &fakeLog{}
	ops.add(op(models.EntityStock, "S1", "acme"))
	ops.add(op(models.EntityCustomer, "C1", "acme"))
	ops.add(op(models.EntityStock, "S2", "acme"))
	ops.add(op(models.EntityStock, "S3", "other"))
	ops.add(op(models.EntityAttendance, "A1", "acme"))

	stock := &fakeService{entity: models.EntityStock}
	customer := &fakeService{entity: models.EntityCustomer}
	o := newTestOrchestrator(ops, nil, stock, customer)

	reports, err := o.Push(context.Background(), "acme")
	require.NoError(t, err)

	require.Len(t, stock.pushed, 2)
	assert.Equal(t, "S1", stock.pushed[0].EntityID)
	assert.Equal(t, "S2", stock.pushed[1].EntityID)
	require.Len(t, customer.pushed, 1)
	assert.Equal(t, 2, reports[models.EntityStock].Synced)
	assert.NotContains(t, reports, models.EntityAttendance)
}

func TestOrchestratorPush_EmptyOrganizationPushesAll(t *testing.T) {
	ops := &fakeLog{}
	ops.add(op(models.EntityStock, "S1", "acme"))
	ops.add(op(models.EntityStock, "S2", "other"))
	stock := &fakeService{entity: models.EntityStock}

	_, err := newTestOrchestrator(ops, nil, stock).Push(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, stock.pushed, 2)
}

func TestOrchestratorPush_SetsPendingGauge(t *testing.T) {
	ops := &fakeLog{}
	ops.add(op(models.EntityStock, "S1", "acme"))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	stock := &fakeService{entity: models.EntityStock}

	_, err := newTestOrchestrator(ops, m, stock).Push(context.Background(), "acme")
	require.NoError(t, err)

	// the fake service leaves the log untouched
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.PendingOperations.WithLabelValues("Stock")))
}

func TestOrchestratorPull_IsolatesFailures(t *testing.T) {
	stock := &fakeService{entity: models.EntityStock, pullFn: func() (PullReport, error) {
		return PullReport{}, wrapPullError(models.EntityStock, errors.New("server down"))
	}}
	customer := &fakeService{entity: models.EntityCustomer}
	billing := &fakeService{entity: models.EntityBilling}
	o := newTestOrchestrator(&fakeLog{}, nil, stock, customer, billing)

	reports, err := o.PullAllInParallel(context.Background(), "acme")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPullFailed)
	assert.Contains(t, err.Error(), "Stock")
	assert.Len(t, reports, 3)
	assert.Equal(t, 1, customer.pulled)
	assert.Equal(t, 1, billing.pulled)
}

func TestOrchestrator_CachedDataState(t *testing.T) {
	o := newTestOrchestrator(&fakeLog{}, nil,
		&fakeService{entity: models.EntityStock, cached: true},
		&fakeService{entity: models.EntityCustomer},
	)

	state, err := o.CachedDataState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.EntityType]bool{
		models.EntityStock:    true,
		models.EntityCustomer: false,
	}, state)

	_, err = o.HasCachedData(context.Background(), models.EntityBilling)
	assert.Error(t, err)
}

func TestOrchestratorSync_PullsAfterFailedPush(t *testing.T) {
	ops := &fakeLog{}
	ops.add(op(models.EntityStock, "S1", "acme"))
	stock := &fakeService{entity: models.EntityStock, pushFn: func(ops []models.PendingOperation) (PushReport, error) {
		return PushReport{}, errors.New("storage offline")
	}}
	o := newTestOrchestrator(ops, nil, stock)

	result, err := o.Sync(context.Background(), "acme")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage offline")
	assert.Equal(t, 1, stock.pulled)
	assert.Contains(t, result.Pull, models.EntityStock)
}

func TestOrchestrator_RegisterReplaces(t *testing.T) {
	o := newTestOrchestrator(&fakeLog{}, nil, &fakeService{entity: models.EntityStock})
	replacement := &fakeService{entity: models.EntityStock, cached: true}
	o.Register(replacement)

	assert.Equal(t, []models.EntityType{models.EntityStock}, o.Entities())
	has, err := o.HasCachedData(context.Background(), models.EntityStock)
	require.NoError(t, err)
	assert.True(t, has)
}
