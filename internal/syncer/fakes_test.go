package syncer

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/vipul43/tillsync/internal/models"
	"github.com/vipul43/tillsync/internal/remote"
)

// fakeLog is an in-memory pending operation log
type fakeLog struct {
	mu         sync.Mutex
	ops        []models.PendingOperation
	nextID     int64
	deletedIDs []int64
	deleteErr  error
}

func (l *fakeLog) add(op models.PendingOperation) models.PendingOperation {
	l.mu.Lock()
	defer l.mu.Unlock()

	if op.OperationScope == models.ScopeState {
		kept := l.ops[:0]
		for _, o := range l.ops {
			if o.Keys() != op.Keys() {
				kept = append(kept, o)
			}
		}
		l.ops = kept
	}
	l.nextID++
	op.ID = l.nextID
	op.OperationKey = fmt.Sprintf("key-%d", op.ID)
	op.CreatedAt = l.nextID
	l.ops = append(l.ops, op)
	return op
}

func (l *fakeLog) snapshot() []models.PendingOperation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.PendingOperation(nil), l.ops...)
}

func (l *fakeLog) ListPending(ctx context.Context) ([]models.PendingOperation, error) {
	return l.snapshot(), nil
}

func (l *fakeLog) remove(match func(models.PendingOperation) bool) {
	kept := l.ops[:0]
	for _, o := range l.ops {
		if match(o) {
			l.deletedIDs = append(l.deletedIDs, o.ID)
			continue
		}
		kept = append(kept, o)
	}
	l.ops = kept
}

func (l *fakeLog) update(match func(models.PendingOperation) bool, fn func(*models.PendingOperation)) {
	for i := range l.ops {
		if match(l.ops[i]) {
			fn(&l.ops[i])
		}
	}
}

func (l *fakeLog) DeleteByKeys(ctx context.Context, keys models.OperationKeys) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deleteErr != nil {
		return l.deleteErr
	}
	l.remove(func(o models.PendingOperation) bool { return o.Keys() == keys })
	return nil
}

func (l *fakeLog) DeleteByID(ctx context.Context, id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remove(func(o models.PendingOperation) bool { return o.ID == id })
	return nil
}

func (l *fakeLog) IncrementFailureCount(ctx context.Context, keys models.OperationKeys, lastError string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.update(func(o models.PendingOperation) bool { return o.Keys() == keys }, func(o *models.PendingOperation) {
		o.FailedAttempts++
		o.LastError = &lastError
	})
	return nil
}

func (l *fakeLog) IncrementFailureCountByID(ctx context.Context, id int64, lastError string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.update(func(o models.PendingOperation) bool { return o.ID == id }, func(o *models.PendingOperation) {
		o.FailedAttempts++
		o.LastError = &lastError
	})
	return nil
}

func (l *fakeLog) GetFailureCount(ctx context.Context, keys models.OperationKeys) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	highest := 0
	for _, o := range l.ops {
		if o.Keys() == keys && o.FailedAttempts > highest {
			highest = o.FailedAttempts
		}
	}
	return highest, nil
}

func (l *fakeLog) GetFailureCountByID(ctx context.Context, id int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, o := range l.ops {
		if o.ID == id {
			return o.FailedAttempts, nil
		}
	}
	return 0, nil
}

func (l *fakeLog) CountForEntity(ctx context.Context, entityID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, o := range l.ops {
		if o.EntityID == entityID {
			n++
		}
	}
	return n, nil
}

func (l *fakeLog) CountParkedForEntity(ctx context.Context, entityID string, threshold int) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, o := range l.ops {
		if o.EntityID == entityID && o.FailedAttempts > threshold {
			n++
		}
	}
	return n, nil
}

func (l *fakeLog) PendingEntityIDs(ctx context.Context, entityType models.EntityType) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := map[string]bool{}
	var ids []string
	for _, o := range l.ops {
		if o.EntityType == entityType && !seen[o.EntityID] {
			seen[o.EntityID] = true
			ids = append(ids, o.EntityID)
		}
	}
	return ids, nil
}

func (l *fakeLog) MarkFailed(ctx context.Context, op models.PendingOperation, failedAttempts int, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	match := func(o models.PendingOperation) bool { return o.ID == op.ID }
	if op.OperationScope == models.ScopeState {
		match = func(o models.PendingOperation) bool { return o.Keys() == op.Keys() }
	}
	l.update(match, func(o *models.PendingOperation) {
		o.FailedAttempts = failedAttempts
		o.LastError = &reason
	})
	return nil
}

// fakeMeta is an in-memory sync metadata store
type fakeMeta struct {
	mu        sync.Mutex
	last      *int64
	successes []models.SyncMode
	failures  []string
}

func (m *fakeMeta) LastSyncTimestamp(ctx context.Context, entityType models.EntityType) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}

func (m *fakeMeta) RecordSuccess(ctx context.Context, entityType models.EntityType, syncedAt int64, mode models.SyncMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &syncedAt
	m.successes = append(m.successes, mode)
	return nil
}

func (m *fakeMeta) RecordFailure(ctx context.Context, entityType models.EntityType, syncErr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, syncErr)
	return nil
}

// fakeStockRemote answers with the configured functions and records every call
type fakeStockRemote struct {
	mu    sync.Mutex
	calls []string
	since []int64

	listFn     func() ([]remote.Stock, error)
	idsFn      func() ([]string, error)
	changesFn  func() ([]remote.Stock, error)
	createFn   func(ctx context.Context, w remote.Stock) (remote.Stock, error)
	updateFn   func(ctx context.Context, id string, w remote.Stock) (remote.Stock, error)
	deleteFn   func(ctx context.Context, id string) (remote.Stock, error)
	quantityFn func(ctx context.Context, id string, w remote.Stock) (remote.Stock, error)
}

func (r *fakeStockRemote) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *fakeStockRemote) count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (r *fakeStockRemote) List(ctx context.Context, org string) ([]remote.Stock, error) {
	r.record("list")
	if r.listFn == nil {
		return nil, nil
	}
	return r.listFn()
}

func (r *fakeStockRemote) ListIDs(ctx context.Context, org string) ([]string, error) {
	r.record("ids")
	if r.idsFn == nil {
		return nil, nil
	}
	return r.idsFn()
}

func (r *fakeStockRemote) ListChangesSince(ctx context.Context, org string, sinceMillis int64) ([]remote.Stock, error) {
	r.record("changes")
	r.mu.Lock()
	r.since = append(r.since, sinceMillis)
	r.mu.Unlock()
	if r.changesFn == nil {
		return nil, nil
	}
	return r.changesFn()
}

func (r *fakeStockRemote) Create(ctx context.Context, org string, w remote.Stock) (remote.Stock, error) {
	r.record("create")
	if r.createFn == nil {
		return w, nil
	}
	return r.createFn(ctx, w)
}

func (r *fakeStockRemote) Update(ctx context.Context, org, id string, w remote.Stock) (remote.Stock, error) {
	r.record("update")
	if r.updateFn == nil {
		return w, nil
	}
	return r.updateFn(ctx, id, w)
}

func (r *fakeStockRemote) Delete(ctx context.Context, org, id string) (remote.Stock, error) {
	r.record("delete")
	if r.deleteFn == nil {
		return remote.Stock{}, nil
	}
	return r.deleteFn(ctx, id)
}

func (r *fakeStockRemote) UpdateQuantity(ctx context.Context, org, id string, w remote.Stock) (remote.Stock, error) {
	r.record("edit-quantity")
	if r.quantityFn == nil {
		return w, nil
	}
	return r.quantityFn(ctx, id, w)
}

type cachedStock struct {
	stock  remote.Stock
	status models.SyncStatus
}

// memCache is an in-memory Cache of stocks
type memCache struct {
	mu   sync.Mutex
	rows map[string]cachedStock
}

func newMemCache(rows ...remote.Stock) *memCache {
	c := &memCache{rows: make(map[string]cachedStock)}
	for _, r := range rows {
		c.rows[r.ID] = cachedStock{stock: r, status: models.SyncStatusPending}
	}
	return c
}

func (c *memCache) get(id string) (cachedStock, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row, ok := c.rows[id]
	return row, ok
}

func (c *memCache) Save(ctx context.Context, w remote.Stock, status models.SyncStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[w.ID] = cachedStock{stock: w, status: status}
	return nil
}

func (c *memCache) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, id)
	return nil
}

func (c *memCache) SetStatus(ctx context.Context, id string, status models.SyncStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if row, ok := c.rows[id]; ok {
		row.status = status
		c.rows[id] = row
	}
	return nil
}

func (c *memCache) IDs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.rows))
	for id := range c.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *memCache) Count(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.rows)), nil
}

var testNow = time.UnixMilli(1_760_000_000_000)

type stockFixture struct {
	svc    *EntityService[remote.Stock]
	remote *fakeStockRemote
	log    *fakeLog
	meta   *fakeMeta
	cache  *memCache
	sleeps []time.Duration
}

func newStockFixture(t *testing.T, cache *memCache) *stockFixture {
	t.Helper()
	f := &stockFixture{
		remote: &fakeStockRemote{},
		log:    &fakeLog{},
		meta:   &fakeMeta{},
		cache:  cache,
	}
	f.svc = NewEntityService(Config[remote.Stock]{
		EntityType: models.EntityStock,
		Remote:     f.remote,
		Cache:      cache,
		Actions: map[models.OperationType]Action[remote.Stock]{
			models.OperationUpdateStockQuantity: f.remote.UpdateQuantity,
		},
		Log:      f.log,
		Metadata: f.meta,
		Logger:   log.New(io.Discard, "", 0),
	})
	f.svc.now = func() time.Time { return testNow }
	f.svc.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return ctx.Err()
	}
	return f
}

// enqueue stores an operation carrying s as payload
func (f *stockFixture) enqueue(t *testing.T, s remote.Stock, opType models.OperationType, scope models.OperationScope) models.PendingOperation {
	t.Helper()
	raw, err := remote.EncodePayload(s)
	require.NoError(t, err)
	return f.log.add(models.PendingOperation{
		EntityType:     models.EntityStock,
		EntityID:       s.ID,
		OrgSlug:        "acme",
		OrgID:          "org1",
		OperationType:  opType,
		OperationScope: scope,
		Payload:        datatypes.JSON(raw),
	})
}

func (f *stockFixture) push(t *testing.T) PushReport {
	t.Helper()
	report, err := f.svc.Push(context.Background(), f.log.snapshot())
	require.NoError(t, err)
	return report
}
