package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"luxemarket_api/config"
	"luxemarket_api/internal/core/models"
	"luxemarket_api/internal/core/services"
	"luxemarket_api/internal/core/storage"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/pkg/logger"
)

const MaxImportCount = 1000

// ValidationError rejects a bad import request at the door, before any job
// is created. The HTTP layer maps it to 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ProductStore is the single capability the importer needs from the catalog.
type ProductStore interface {
	UpsertBySource(ctx context.Context, p *models.Product) (string, bool, error)
}

type ImportRequest struct {
	Query       string `json:"query"`
	Count       int    `json:"count"`
	Provider    string `json:"provider"`
	CountryCode string `json:"country_code"`
}

// Scheduler accepts import requests, records the job and detaches a worker.
// StartImport never blocks the caller on ingestion; the worker owns all
// subsequent job state. Workers run on baseCtx, not on the request context,
// so they outlive the request that spawned them.
type Scheduler struct {
	baseCtx  context.Context
	clients  map[string]suppliers.Client
	products ProductStore
	jobs     storage.JobStore
	mapper   *services.ProductMapper
	cfg      config.ImportConfig
	log      logger.Logger
	wg       sync.WaitGroup
}

func NewScheduler(
	baseCtx context.Context,
	clients []suppliers.Client,
	products ProductStore,
	jobs storage.JobStore,
	mapper *services.ProductMapper,
	cfg config.ImportConfig,
	log logger.Logger,
) *Scheduler {
	byProvider := make(map[string]suppliers.Client, len(clients))
	for _, c := range clients {
		byProvider[c.Provider()] = c
	}
	return &Scheduler{
		baseCtx:  baseCtx,
		clients:  byProvider,
		products: products,
		jobs:     jobs,
		mapper:   mapper,
		cfg:      cfg,
		log:      log.WithPrefix("[ImportScheduler]"),
	}
}

// StartImport validates the request, persists the pending job and spawns a
// detached worker. Returns the job id immediately.
func (s *Scheduler) StartImport(ctx context.Context, req ImportRequest) (string, error) {
	if req.Count < 1 || req.Count > MaxImportCount {
		return "", &ValidationError{Message: fmt.Sprintf("count must be between 1 and %d", MaxImportCount)}
	}
	if strings.TrimSpace(req.Query) == "" {
		return "", &ValidationError{Message: "query must not be empty"}
	}
	client, ok := s.clients[req.Provider]
	if !ok {
		return "", &ValidationError{Message: fmt.Sprintf("unsupported provider %q", req.Provider)}
	}

	jobID := uuid.NewString()
	job := &models.ImportJob{
		JobID:       jobID,
		Status:      models.JobPending,
		Query:       req.Query,
		Provider:    req.Provider,
		CountryCode: req.CountryCode,
		TargetCount: req.Count,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", fmt.Errorf("creating import job: %w", err)
	}

	w := newWorker(jobID, req, client, s.mapper, s.products, s.jobs, s.cfg, s.log)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		w.run(s.baseCtx)
	}()

	s.log.Log("Scheduled import job %s: provider=%s query=%q count=%d", jobID, req.Provider, req.Query, req.Count)
	return jobID, nil
}

// Wait blocks until every spawned worker has finished. Used on shutdown.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
