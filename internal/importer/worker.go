package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"luxemarket_api/config"
	"luxemarket_api/internal/core/models"
	"luxemarket_api/internal/core/services"
	"luxemarket_api/internal/core/storage"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/metrics"
	"luxemarket_api/pkg/logger"
)

var errCancelled = errors.New("import cancelled")

// worker runs one import job: paginate the supplier search, fan item tasks
// out up to the rate gate capacity, map and upsert each item, keep the job
// record current, land on a terminal status. Per-item errors are contained
// as failed counts; only auth failure and a run of consecutive store
// failures abort the job.
type worker struct {
	jobID    string
	req      ImportRequest
	client   suppliers.Client
	mapper   *services.ProductMapper
	products ProductStore
	jobs     storage.JobStore
	gate     *RateGate
	cfg      config.ImportConfig
	log      logger.Logger

	processed     atomic.Int32
	failed        atomic.Int32
	storeFailures atomic.Int32

	flushMu    sync.Mutex
	sinceFlush int
	lastFlush  time.Time
}

func newWorker(
	jobID string,
	req ImportRequest,
	client suppliers.Client,
	mapper *services.ProductMapper,
	products ProductStore,
	jobs storage.JobStore,
	cfg config.ImportConfig,
	log logger.Logger,
) *worker {
	return &worker{
		jobID:    jobID,
		req:      req,
		client:   client,
		mapper:   mapper,
		products: products,
		jobs:     jobs,
		gate:     NewRateGate(cfg.WorkerCount, cfg.PageDelay()),
		cfg:      cfg,
		log:      log.WithPrefix(fmt.Sprintf("[job %s]", jobID)),
	}
}

func (w *worker) run(ctx context.Context) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			w.log.Log("Import job panicked: %v", r)
			w.finish(models.JobFailed, fmt.Sprintf("panic: %v", r), start)
		}
	}()

	if err := w.jobs.Transition(ctx, w.jobID, models.JobProcessing, ""); err != nil {
		w.log.Log("Could not start job: %v", err)
		return
	}

	err := w.paginate(ctx)
	switch {
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled):
		w.finish(models.JobCancelled, "", start)
	case err != nil:
		w.finish(models.JobFailed, err.Error(), start)
	default:
		w.finish(models.JobCompleted, "", start)
	}
}

// finish runs on a detached context: the terminal transition must land even
// when the job context is already cancelled.
func (w *worker) finish(status models.JobStatus, jobErr string, start time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	w.flushProgress(ctx)
	if err := w.jobs.Transition(ctx, w.jobID, status, jobErr); err != nil {
		w.log.Log("Failed to finalize job as %s: %v", status, err)
	}

	metrics.RecordJobDuration(w.client.Provider(), string(status), time.Since(start))
	w.log.Log("Import finished: status=%s processed=%d failed=%d target=%d",
		status, w.processed.Load(), w.failed.Load(), w.req.Count)
}

func (w *worker) paginate(ctx context.Context) error {
	pageSize := w.cfg.PageSize
	if max := w.client.MaxPageSize(); pageSize > max {
		pageSize = max
	}

	page := 1
	for int(w.processed.Load()) < w.req.Count {
		remaining := w.req.Count - int(w.processed.Load())
		thisPage := pageSize
		if remaining < thisPage {
			thisPage = remaining
		}

		result, err := w.search(ctx, page, thisPage)
		if err != nil {
			if errors.Is(err, errCancelled) || errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("searching page %d: %w", page, err)
		}
		if len(result.Items) == 0 {
			w.log.Log("Supplier returned no results on page %d, stopping", page)
			break
		}

		before := w.processed.Load() + w.failed.Load()
		if err := w.processPage(ctx, result.Items); err != nil {
			return err
		}
		w.flushProgress(ctx)

		// a page that moved nothing means the supplier is replaying;
		// stop instead of looping forever
		if w.processed.Load()+w.failed.Load() == before {
			break
		}
		if int(w.processed.Load()) >= w.req.Count {
			break
		}

		if err := w.gate.PageDelay(ctx); err != nil {
			return err
		}
		page++
	}
	return nil
}

// search goes through the rate gate like every other supplier call.
func (w *worker) search(ctx context.Context, page, size int) (*suppliers.SearchPage, error) {
	if err := w.acquire(ctx); err != nil {
		return nil, err
	}
	defer w.gate.Release()
	return w.client.Search(ctx, w.req.Query, page, size)
}

// acquire is the cancellation checkpoint: the cancel flag is polled before
// every permit so a cancel lands within one rate-gate cycle.
func (w *worker) acquire(ctx context.Context) error {
	cancelled, err := w.jobs.CancelRequested(ctx, w.jobID)
	if err == nil && cancelled {
		return errCancelled
	}
	return w.gate.Acquire(ctx)
}

func (w *worker) processPage(ctx context.Context, items []suppliers.ProductSummary) error {
	var wg sync.WaitGroup
	fatalCh := make(chan error, len(items))

	for _, item := range items {
		if err := w.acquire(ctx); err != nil {
			// drain in-flight tasks before reporting; they run to completion
			wg.Wait()
			return err
		}

		wg.Add(1)
		go func(item suppliers.ProductSummary) {
			defer wg.Done()
			defer w.gate.Release()
			if err := w.processItem(ctx, item); err != nil {
				fatalCh <- err
			}
		}(item)
	}

	wg.Wait()
	select {
	case err := <-fatalCh:
		return err
	default:
		return nil
	}
}

// processItem returns a non-nil error only for job-fatal conditions; every
// other failure is absorbed into the failed count.
func (w *worker) processItem(ctx context.Context, summary suppliers.ProductSummary) error {
	detail, err := w.client.Detail(ctx, summary.ID)
	if err != nil {
		if suppliers.IsAuthError(err) {
			return err
		}
		w.countFailure()
		w.log.Log("Item %s: detail fetch failed: %v", summary.ID, err)
		return nil
	}

	mapped, err := w.mapper.Map(detail, models.SourceType(w.client.Provider()), w.req.CountryCode)
	if err != nil {
		w.countFailure()
		w.log.Log("Item %s: %v", summary.ID, err)
		return nil
	}

	if _, _, err := w.products.UpsertBySource(ctx, mapped); err != nil {
		w.countFailure()
		w.log.Log("Item %s: upsert failed: %v", summary.ID, err)
		if n := w.storeFailures.Add(1); int(n) >= w.cfg.StoreFailureLimit {
			return fmt.Errorf("aborting after %d consecutive store failures: %w", n, err)
		}
		return nil
	}
	w.storeFailures.Store(0)

	w.processed.Add(1)
	metrics.RecordImported(w.client.Provider(), 1)
	w.maybeFlush(ctx)
	return nil
}

func (w *worker) countFailure() {
	w.failed.Add(1)
	metrics.RecordImportFailed(w.client.Provider(), 1)
}

// maybeFlush pushes progress every N items or every flush interval,
// whichever comes first.
func (w *worker) maybeFlush(ctx context.Context) {
	w.flushMu.Lock()
	w.sinceFlush++
	due := w.sinceFlush >= w.cfg.ProgressFlushItems ||
		time.Since(w.lastFlush) >= w.cfg.ProgressFlushInterval()
	if due {
		w.sinceFlush = 0
		w.lastFlush = time.Now()
	}
	w.flushMu.Unlock()

	if due {
		w.pushProgress(ctx)
	}
}

func (w *worker) flushProgress(ctx context.Context) {
	w.flushMu.Lock()
	w.sinceFlush = 0
	w.lastFlush = time.Now()
	w.flushMu.Unlock()
	w.pushProgress(ctx)
}

func (w *worker) pushProgress(ctx context.Context) {
	processed := int(w.processed.Load())
	failed := int(w.failed.Load())
	if err := w.jobs.UpdateProgress(ctx, w.jobID, processed, failed); err != nil {
		w.log.Log("Failed to update progress: %v", err)
	}
}
