package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxemarket_api/config"
	"luxemarket_api/config/values"
	"luxemarket_api/internal/core/models"
	"luxemarket_api/internal/core/services"
	"luxemarket_api/internal/core/storage"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/pkg/business/service"
	"luxemarket_api/pkg/logger"
)

// fakeSupplier serves a fixed inventory through its own cursor, so pages
// never overlap regardless of the page sizes the worker asks for.
type fakeSupplier struct {
	mu        sync.Mutex
	cursor    int
	items     []suppliers.ProductSummary
	detailErr func(id string) error
	badPrice  map[string]bool

	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeSupplier(n int) *fakeSupplier {
	f := &fakeSupplier{badPrice: map[string]bool{}}
	for i := 0; i < n; i++ {
		f.items = append(f.items, suppliers.ProductSummary{
			ID:    fmt.Sprintf("item-%03d", i),
			Title: fmt.Sprintf("Leather Wallet %d", i),
		})
	}
	return f
}

func (f *fakeSupplier) Provider() string { return "cj" }

func (f *fakeSupplier) MaxPageSize() int { return 200 }

func (f *fakeSupplier) Search(_ context.Context, _ string, _, size int) (*suppliers.SearchPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := f.cursor
	end := start + size
	if end > len(f.items) {
		end = len(f.items)
	}
	f.cursor = end
	return &suppliers.SearchPage{Items: f.items[start:end], Total: len(f.items)}, nil
}

func (f *fakeSupplier) Detail(_ context.Context, id string) (*suppliers.ProductDetail, error) {
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	defer f.inFlight.Add(-1)

	if f.detailErr != nil {
		if err := f.detailErr(id); err != nil {
			return nil, err
		}
	}

	price := 15.0
	if f.badPrice[id] {
		price = 0
	}
	return &suppliers.ProductDetail{
		ID:             id,
		Title:          "Leather Wallet",
		SellPrice:      price,
		Currency:       "USD",
		Inventory:      8,
		InventoryKnown: true,
	}, nil
}

// fakeCatalog keys products by source identity, mirroring the unique index
// the real repository relies on.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*models.Product
	inserts  int
	updates  int
	failAll  bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[string]*models.Product)}
}

func (f *fakeCatalog) UpsertBySource(_ context.Context, p *models.Product) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return "", false, errors.New("connection refused")
	}

	key := string(p.Source.Type) + ":" + p.Source.ExternalID
	_, exists := f.products[key]
	f.products[key] = p
	if exists {
		f.updates++
		return key, false, nil
	}
	f.inserts++
	return key, true, nil
}

func (f *fakeCatalog) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.products)
}

func testImportConfig() config.ImportConfig {
	return config.ImportConfig{
		WorkerCount:           4,
		PageSize:              10,
		PageDelayMs:           1,
		MaxRetries:            3,
		RetryBaseDelayMs:      1,
		RetryMaxDelayMs:       5,
		RequestTimeoutSec:     5,
		ProgressFlushItems:    5,
		ProgressFlushMs:       2000,
		StoreFailureLimit:     5,
		SupplierRatePerSecond: 1000,
	}
}

func testMapper() *services.ProductMapper {
	return services.NewProductMapper(service.NewTextService(), services.NewPricingEngine(values.PricingValues{}))
}

func runImport(t *testing.T, client suppliers.Client, catalog ProductStore, jobs storage.JobStore, count int) *models.ImportJob {
	t.Helper()
	ctx := context.Background()

	req := ImportRequest{Query: "wallet", Count: count, Provider: client.Provider(), CountryCode: "US"}
	job := &models.ImportJob{
		JobID:       "job-test",
		Status:      models.JobPending,
		Query:       req.Query,
		Provider:    req.Provider,
		TargetCount: count,
	}
	require.NoError(t, jobs.Create(ctx, job))

	w := newWorker(job.JobID, req, client, testMapper(), catalog, jobs, testImportConfig(), logger.NewLogger(io.Discard, "[test]"))
	w.run(ctx)

	final, err := jobs.Get(ctx, job.JobID)
	require.NoError(t, err)
	return final
}

func TestWorker_ImportsRequestedCount(t *testing.T) {
	supplier := newFakeSupplier(30)
	catalog := newFakeCatalog()

	job := runImport(t, supplier, catalog, storage.NewMemoryJobStore(), 30)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 30, job.ProcessedCount)
	assert.Equal(t, 0, job.FailedCount)
	assert.Equal(t, 100, job.Percent)
	assert.Equal(t, 30, catalog.size())
}

func TestWorker_StopsAtRequestedCount(t *testing.T) {
	supplier := newFakeSupplier(100)
	catalog := newFakeCatalog()

	job := runImport(t, supplier, catalog, storage.NewMemoryJobStore(), 25)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 25, job.ProcessedCount)
	assert.Equal(t, 25, catalog.size())
}

func TestWorker_BoundsSupplierConcurrency(t *testing.T) {
	supplier := newFakeSupplier(40)
	catalog := newFakeCatalog()

	job := runImport(t, supplier, catalog, storage.NewMemoryJobStore(), 40)

	require.Equal(t, models.JobCompleted, job.Status)
	// worker_count is 4; detail calls must never exceed the gate capacity
	assert.LessOrEqual(t, supplier.peak.Load(), int32(4))
}

func TestWorker_SupplierShortfallStillCompletes(t *testing.T) {
	supplier := newFakeSupplier(7)
	catalog := newFakeCatalog()

	job := runImport(t, supplier, catalog, storage.NewMemoryJobStore(), 50)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 7, job.ProcessedCount)
	// completed is completed: percent reads 100 even on shortfall
	assert.Equal(t, 100, job.Percent)
}

func TestWorker_ReimportUpdatesInsteadOfDuplicating(t *testing.T) {
	catalog := newFakeCatalog()
	jobs := storage.NewMemoryJobStore()

	first := newFakeSupplier(20)
	job := runImport(t, first, catalog, jobs, 20)
	require.Equal(t, models.JobCompleted, job.Status)
	require.Equal(t, 20, catalog.inserts)

	// same supplier inventory, new job: rows collapse instead of duplicating
	second := newFakeSupplier(20)
	req := ImportRequest{Query: "wallet", Count: 20, Provider: "cj", CountryCode: "US"}
	ctx := context.Background()
	require.NoError(t, jobs.Create(ctx, &models.ImportJob{JobID: "job-2", Status: models.JobPending, TargetCount: 20}))
	w := newWorker("job-2", req, second, testMapper(), catalog, jobs, testImportConfig(), logger.NewLogger(io.Discard, "[test]"))
	w.run(ctx)

	assert.Equal(t, 20, catalog.size())
	assert.Equal(t, 20, catalog.inserts)
	assert.Equal(t, 20, catalog.updates)
}

func TestWorker_ItemFailuresAreContained(t *testing.T) {
	supplier := newFakeSupplier(10)
	supplier.detailErr = func(id string) error {
		if id == "item-002" {
			return &suppliers.TransientError{Provider: "cj", Err: errors.New("timeout")}
		}
		return nil
	}
	supplier.badPrice["item-005"] = true
	catalog := newFakeCatalog()

	job := runImport(t, supplier, catalog, storage.NewMemoryJobStore(), 10)

	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 8, job.ProcessedCount)
	assert.Equal(t, 2, job.FailedCount)
	assert.Equal(t, 8, catalog.size())
}

func TestWorker_AuthFailureAbortsJob(t *testing.T) {
	supplier := newFakeSupplier(10)
	supplier.detailErr = func(id string) error {
		return &suppliers.AuthError{Provider: "cj", Err: errors.New("token revoked")}
	}
	catalog := newFakeCatalog()

	job := runImport(t, supplier, catalog, storage.NewMemoryJobStore(), 10)

	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Error, "authentication failed")
	assert.Equal(t, 0, job.ProcessedCount)
}

func TestWorker_ConsecutiveStoreFailuresAbortJob(t *testing.T) {
	supplier := newFakeSupplier(30)
	catalog := newFakeCatalog()
	catalog.failAll = true

	job := runImport(t, supplier, catalog, storage.NewMemoryJobStore(), 30)

	assert.Equal(t, models.JobFailed, job.Status)
	assert.Contains(t, job.Error, "consecutive store failures")
	assert.Equal(t, 0, job.ProcessedCount)
}

func TestWorker_CancelRequestObservedBeforeWork(t *testing.T) {
	supplier := newFakeSupplier(50)
	catalog := newFakeCatalog()
	jobs := storage.NewMemoryJobStore()
	ctx := context.Background()

	req := ImportRequest{Query: "wallet", Count: 50, Provider: "cj", CountryCode: "US"}
	require.NoError(t, jobs.Create(ctx, &models.ImportJob{JobID: "job-1", Status: models.JobPending, TargetCount: 50}))
	require.NoError(t, jobs.RequestCancel(ctx, "job-1"))

	w := newWorker("job-1", req, supplier, testMapper(), catalog, jobs, testImportConfig(), logger.NewLogger(io.Discard, "[test]"))
	w.run(ctx)

	job, err := jobs.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, job.Status)
	assert.Equal(t, 0, job.ProcessedCount)
	assert.Equal(t, 0, catalog.size())
}

type countingCache struct {
	invalidations atomic.Int32
}

func (c *countingCache) InvalidatePrefix(context.Context, string) error {
	c.invalidations.Add(1)
	return nil
}

func TestWorker_ImportInvalidatesCatalogCache(t *testing.T) {
	supplier := newFakeSupplier(12)
	catalog := newFakeCatalog()
	cc := &countingCache{}
	cachedCatalog := storage.NewCachedProducts(catalog, cc, logger.NewLogger(io.Discard, "[test]"))

	job := runImport(t, supplier, cachedCatalog, storage.NewMemoryJobStore(), 12)

	require.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, 12, catalog.size())
	// list and count caches must not outlive the upserts that changed them
	assert.Equal(t, int32(12), cc.invalidations.Load())
}

func TestWorker_ContextCancellationLandsAsCancelled(t *testing.T) {
	supplier := newFakeSupplier(2000)
	catalog := newFakeCatalog()
	jobs := storage.NewMemoryJobStore()

	req := ImportRequest{Query: "wallet", Count: 2000, Provider: "cj", CountryCode: "US"}
	require.NoError(t, jobs.Create(context.Background(), &models.ImportJob{JobID: "job-1", Status: models.JobPending, TargetCount: 2000}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := newWorker("job-1", req, supplier, testMapper(), catalog, jobs, testImportConfig(), logger.NewLogger(io.Discard, "[test]"))
	go func() {
		defer close(done)
		w.run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, job.Status)
}
