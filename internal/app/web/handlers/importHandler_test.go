package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luxemarket_api/config"
	"luxemarket_api/config/values"
	"luxemarket_api/internal/core/models"
	"luxemarket_api/internal/core/services"
	"luxemarket_api/internal/core/storage"
	"luxemarket_api/internal/importer"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/pkg/business/service"
	"luxemarket_api/pkg/logger"
)

// emptySupplier answers every search with an empty page, so scheduled jobs
// complete almost immediately.
type emptySupplier struct{}

func (emptySupplier) Provider() string { return "cj" }
func (emptySupplier) MaxPageSize() int { return 200 }
func (emptySupplier) Search(context.Context, string, int, int) (*suppliers.SearchPage, error) {
	return &suppliers.SearchPage{}, nil
}
func (emptySupplier) Detail(context.Context, string) (*suppliers.ProductDetail, error) {
	return nil, suppliers.ErrNotFound
}

type noopCatalog struct{}

func (noopCatalog) UpsertBySource(context.Context, *models.Product) (string, bool, error) {
	return "", false, nil
}

func newTestImportHandler(jobs storage.JobStore) *ImportHandler {
	log := logger.NewLogger(io.Discard, "[test]")
	mapper := services.NewProductMapper(service.NewTextService(), services.NewPricingEngine(values.PricingValues{}))
	cfg := config.ImportConfig{
		WorkerCount:           2,
		PageSize:              10,
		PageDelayMs:           1,
		MaxRetries:            1,
		RetryBaseDelayMs:      1,
		RetryMaxDelayMs:       1,
		RequestTimeoutSec:     5,
		ProgressFlushItems:    5,
		ProgressFlushMs:       2000,
		StoreFailureLimit:     5,
		SupplierRatePerSecond: 1000,
	}
	scheduler := importer.NewScheduler(
		context.Background(),
		[]suppliers.Client{emptySupplier{}},
		noopCatalog{},
		jobs,
		mapper,
		cfg,
		log,
	)
	return NewImportHandler(scheduler, jobs, log)
}

func TestStartImportHandler_AcceptsValidRequest(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	h := newTestImportHandler(jobs)

	body := `{"query":"leather bag","count":25,"provider":"cj","country_code":"US"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import-fast", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.StartImportHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["task_id"])
	assert.Equal(t, "pending", resp["status"])

	// the job is observable right away
	job, err := jobs.Get(context.Background(), resp["task_id"])
	require.NoError(t, err)
	assert.Equal(t, 25, job.TargetCount)
}

func TestStartImportHandler_RejectsInvalidPayloads(t *testing.T) {
	h := newTestImportHandler(storage.NewMemoryJobStore())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"zero count", `{"query":"bags","count":0,"provider":"cj"}`},
		{"count above cap", `{"query":"bags","count":1001,"provider":"cj"}`},
		{"empty query", `{"query":"","count":10,"provider":"cj"}`},
		{"unknown provider", `{"query":"bags","count":10,"provider":"etsy"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/import-fast", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.StartImportHandler(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestStartImportHandler_MethodNotAllowed(t *testing.T) {
	h := newTestImportHandler(storage.NewMemoryJobStore())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/import-fast", nil)
	rec := httptest.NewRecorder()
	h.StartImportHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestJobsHandler_ListsJobs(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	require.NoError(t, jobs.Create(context.Background(), &models.ImportJob{
		JobID: "job-1", Status: models.JobPending, Query: "bags", TargetCount: 10,
	}))
	h := newTestImportHandler(jobs)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/import-jobs", nil)
	rec := httptest.NewRecorder()
	h.JobsHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Jobs []models.ImportJob `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Jobs, 1)
	assert.Equal(t, "job-1", resp.Jobs[0].JobID)
}

func TestJobHandler_GetJob(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	require.NoError(t, jobs.Create(context.Background(), &models.ImportJob{
		JobID: "job-1", Status: models.JobProcessing, Query: "bags", TargetCount: 40, ProcessedCount: 12, Percent: 30,
	}))
	h := newTestImportHandler(jobs)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/import-jobs/job-1", nil)
	rec := httptest.NewRecorder()
	h.JobHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var job models.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "job-1", job.JobID)
	assert.Equal(t, 12, job.ProcessedCount)
	assert.Equal(t, 40, job.TargetCount)
}

func TestJobHandler_UnknownJob(t *testing.T) {
	h := newTestImportHandler(storage.NewMemoryJobStore())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/import-jobs/ghost", nil)
	rec := httptest.NewRecorder()
	h.JobHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJobHandler_CancelPendingJob(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	require.NoError(t, jobs.Create(context.Background(), &models.ImportJob{
		JobID: "job-1", Status: models.JobPending, TargetCount: 10,
	}))
	h := newTestImportHandler(jobs)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/import-jobs/job-1", nil)
	rec := httptest.NewRecorder()
	h.JobHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cancelling", resp["status"])

	cancelled, err := jobs.CancelRequested(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, cancelled)
}

func TestJobHandler_CancelFinishedJobIsConflict(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	require.NoError(t, jobs.Create(context.Background(), &models.ImportJob{
		JobID: "job-1", Status: models.JobPending, TargetCount: 10,
	}))
	require.NoError(t, jobs.Transition(context.Background(), "job-1", models.JobCompleted, ""))
	h := newTestImportHandler(jobs)

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/import-jobs/job-1", nil)
	rec := httptest.NewRecorder()
	h.JobHandler(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJobHandler_ScheduledJobFinishesAsCompleted(t *testing.T) {
	jobs := storage.NewMemoryJobStore()
	h := newTestImportHandler(jobs)

	body := `{"query":"nothing on stock","count":5,"provider":"cj"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import-fast", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.StartImportHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Eventually(t, func() bool {
		job, err := jobs.Get(context.Background(), resp["task_id"])
		return err == nil && job.Status == models.JobCompleted
	}, 5*time.Second, 10*time.Millisecond)
}
