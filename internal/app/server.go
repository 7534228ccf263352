package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"luxemarket_api/config"
	"luxemarket_api/internal/app/web"
	"luxemarket_api/internal/app/web/handlers"
	"luxemarket_api/internal/core/services"
	"luxemarket_api/internal/core/storage"
	"luxemarket_api/internal/importer"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/internal/suppliers/aliexpress"
	"luxemarket_api/internal/suppliers/cj"
	"luxemarket_api/migrations/infrastructure"
	"luxemarket_api/migrations/storefront"
	"luxemarket_api/pkg/business/service"
	"luxemarket_api/pkg/cache"
	"luxemarket_api/pkg/dbconnect"
	"luxemarket_api/pkg/dbconnect/migration"
	"luxemarket_api/pkg/logger"
	"luxemarket_api/pkg/middleware"
)

const productCacheTTL = 5 * time.Minute

type StorefrontServer struct {
	dbconnect.Database
	cfg    *config.AppConfig
	log    logger.Logger
	writer io.Writer
}

func NewServer(connector dbconnect.Database, cfg *config.AppConfig, writer io.Writer) *StorefrontServer {
	_log := logger.NewLogger(writer, "[StorefrontServer]")
	return &StorefrontServer{Database: connector, cfg: cfg, log: _log, writer: writer}
}

// Run wires the whole storefront together and serves until ctx is
// cancelled. Process shutdown is an implicit cancel for running imports;
// jobs left in processing are swept to failed on the next start.
func (s *StorefrontServer) Run(ctx context.Context) error {
	db, err := s.Connect()
	if err != nil {
		return err
	}
	defer db.Close()

	migrationApply := []migration.MigrationInterface{
		&infrastructure.MigrationsSchema{},
		&storefront.CreateStorefrontSchema{},
		&storefront.CreateProductsTable{},
		&storefront.ProductIndexes{},
		&storefront.CreateImportJobsTable{},
	}
	for _, _migration := range migrationApply {
		if err := _migration.UpMigration(db); err != nil {
			return err
		}
	}
	s.log.Log("Storefront migrations applied successfully")

	baseLog := logger.NewLogger(s.writer, "")

	jobStore := storage.NewPostgresJobStore(db, baseLog)
	if _, err := jobStore.SweepInterrupted(ctx); err != nil {
		s.log.Log("Job sweep failed: %v", err)
	}
	productRepo := storage.NewProductRepository(db, baseLog)

	redisCache, err := cache.NewRedisCache(s.cfg.Redis, productCacheTTL)
	if err != nil {
		// the catalog works uncached; a nil cache is always-miss
		s.log.Log("Redis unavailable, serving without product cache: %v", err)
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	pricing := services.NewPricingEngine(s.cfg.Pricing)
	mapper := services.NewProductMapper(service.NewTextService(), pricing)

	var clients []suppliers.Client
	if s.cfg.Suppliers.CJ.Configured() {
		clients = append(clients, cj.NewClient(s.cfg.Suppliers.CJ, s.cfg.Import, baseLog))
	}
	if s.cfg.Suppliers.AliExpress.Configured() {
		clients = append(clients, aliexpress.NewClient(s.cfg.Suppliers.AliExpress, s.cfg.Import, baseLog))
	}
	if len(clients) == 0 {
		s.log.Log("No supplier credentials configured; imports will be rejected")
	}

	catalog := storage.NewCachedProducts(productRepo, redisCache, baseLog)
	scheduler := importer.NewScheduler(ctx, clients, catalog, jobStore, mapper, s.cfg.Import, baseLog)

	importHandler := handlers.NewImportHandler(scheduler, jobStore, baseLog)
	productHandler := handlers.NewProductHandler(s.Database, productRepo, redisCache, baseLog)

	mux := http.NewServeMux()
	web.SetupRoutes(mux, s.cfg.Auth.JwtSecret, importHandler, productHandler)

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: middleware.PrometheusMiddleware(mux),
	}

	go func() {
		<-ctx.Done()
		s.log.Log("Shutting down, draining import workers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Log("HTTP shutdown: %v", err)
		}
		scheduler.Wait()
	}()

	s.log.Log("Storefront API listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
