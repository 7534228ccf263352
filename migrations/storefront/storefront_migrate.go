package storefront

import (
	"database/sql"
	"fmt"
	"log"

	"luxemarket_api/migrations/infrastructure"
)

type CreateStorefrontSchema struct{}

func (m *CreateStorefrontSchema) UpMigration(db *sql.DB) error {
	query := `
	CREATE SCHEMA IF NOT EXISTS storefront;`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create schema storefront: %w", err)
	}
	return nil
}

type CreateProductsTable struct{}

func (m *CreateProductsTable) UpMigration(db *sql.DB) error {
	if ok, err := infrastructure.CheckAndSkipMigration(db, "storefront.products"); err != nil {
		return err
	} else if ok {
		return nil
	}
	query := `
	CREATE TABLE IF NOT EXISTS storefront.products (
		id UUID PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		description TEXT,
		images TEXT[],
		brand VARCHAR(255),
		attributes JSONB,
		tags TEXT[],
		price_amount NUMERIC(12, 2) NOT NULL,
		price_currency VARCHAR(8) NOT NULL,
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		status VARCHAR(16) NOT NULL DEFAULT 'draft',
		source_type VARCHAR(16) NOT NULL DEFAULT 'manual',
		source_external_id VARCHAR(128),
		source_external_url TEXT,
		last_sync TIMESTAMPTZ,
		last_sync_status VARCHAR(64),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`
	if err := infrastructure.ExecuteAndMarkMigration(db, query, "storefront.products"); err != nil {
		return err
	}
	log.Println("Migration 'storefront.products' completed successfully.")
	return nil
}

type ProductIndexes struct{}

func (m *ProductIndexes) UpMigration(db *sql.DB) error {
	if ok, err := infrastructure.CheckAndSkipMigration(db, "storefront.products_indexes"); err != nil {
		return err
	} else if ok {
		return nil
	}
	// The partial unique index is what makes upsert-by-external-id collapse
	// duplicates; manual products are exempt from it.
	query := `
	CREATE UNIQUE INDEX IF NOT EXISTS products_source_uidx
		ON storefront.products (source_type, source_external_id)
		WHERE source_type <> 'manual';
	CREATE INDEX IF NOT EXISTS products_title_idx
		ON storefront.products (title);
	CREATE INDEX IF NOT EXISTS products_updated_at_idx
		ON storefront.products (updated_at DESC);`
	if err := infrastructure.ExecuteAndMarkMigration(db, query, "storefront.products_indexes"); err != nil {
		return err
	}
	log.Println("Migration 'storefront.products_indexes' completed successfully.")
	return nil
}

type CreateImportJobsTable struct{}

func (m *CreateImportJobsTable) UpMigration(db *sql.DB) error {
	if ok, err := infrastructure.CheckAndSkipMigration(db, "storefront.import_jobs"); err != nil {
		return err
	} else if ok {
		return nil
	}
	query := `
	CREATE TABLE IF NOT EXISTS storefront.import_jobs (
		job_id UUID PRIMARY KEY,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		query VARCHAR(255) NOT NULL,
		provider VARCHAR(16) NOT NULL,
		country_code VARCHAR(8),
		target_count INT NOT NULL CHECK (target_count > 0),
		processed_count INT NOT NULL DEFAULT 0 CHECK (processed_count >= 0),
		failed_count INT NOT NULL DEFAULT 0,
		percent INT NOT NULL DEFAULT 0,
		cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS import_jobs_started_idx
		ON storefront.import_jobs (COALESCE(started_at, created_at) DESC);`
	if err := infrastructure.ExecuteAndMarkMigration(db, query, "storefront.import_jobs"); err != nil {
		return err
	}
	log.Println("Migration 'storefront.import_jobs' completed successfully.")
	return nil
}
