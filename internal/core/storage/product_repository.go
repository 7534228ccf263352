package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"luxemarket_api/internal/core/models"
	"luxemarket_api/pkg/logger"
)

// ProductRepository persists catalog products. The unique partial index on
// (source_type, source_external_id) is what makes UpsertBySource safe under
// concurrent importers: racing upserts on the same external id contend on
// the index instead of creating duplicates.
type ProductRepository struct {
	db  *sql.DB
	log logger.Logger
}

func NewProductRepository(db *sql.DB, log logger.Logger) *ProductRepository {
	return &ProductRepository{db: db, log: log.WithPrefix("[ProductRepository]")}
}

// UpsertBySource inserts the product or, when a row with the same
// (source.type, source.external_id) already exists, overwrites its fields and
// bumps updated_at. Returns the local id and whether a new row was created.
func (r *ProductRepository) UpsertBySource(ctx context.Context, p *models.Product) (string, bool, error) {
	attrs, err := json.Marshal(p.Attributes)
	if err != nil {
		return "", false, fmt.Errorf("marshaling attributes: %w", err)
	}

	query := `
	INSERT INTO storefront.products (
		id, title, description, images, brand, attributes, tags,
		price_amount, price_currency, stock, status,
		source_type, source_external_id, source_external_url,
		last_sync, last_sync_status, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now(), now())
	ON CONFLICT (source_type, source_external_id) WHERE source_type <> 'manual'
	DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		images = EXCLUDED.images,
		brand = EXCLUDED.brand,
		attributes = EXCLUDED.attributes,
		tags = EXCLUDED.tags,
		price_amount = EXCLUDED.price_amount,
		price_currency = EXCLUDED.price_currency,
		stock = EXCLUDED.stock,
		status = EXCLUDED.status,
		source_external_url = EXCLUDED.source_external_url,
		last_sync = EXCLUDED.last_sync,
		last_sync_status = EXCLUDED.last_sync_status,
		updated_at = now()
	RETURNING id, (xmax = 0) AS inserted;`

	var (
		id       string
		inserted bool
	)
	err = r.db.QueryRowContext(ctx, query,
		uuid.NewString(), p.Title, p.Description, pq.Array(p.Images), p.Brand, attrs, pq.Array(p.Tags),
		p.Price.Amount, p.Price.Currency, p.Stock, string(p.Status),
		string(p.Source.Type), p.Source.ExternalID, nullString(p.Source.ExternalURL),
		p.Source.LastSync, p.Source.LastSyncStatus,
	).Scan(&id, &inserted)
	if err != nil {
		return "", false, fmt.Errorf("upserting product %s/%s: %w", p.Source.Type, p.Source.ExternalID, err)
	}
	return id, inserted, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM storefront.products`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return count, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM storefront.products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting product %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns a page of products sorted by updated_at descending. A
// non-empty search narrows on a title substring through the title index.
func (r *ProductRepository) List(ctx context.Context, search string, page, limit int) ([]*models.Product, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
	SELECT id, title, description, images, brand, attributes, tags,
		price_amount, price_currency, stock, status,
		source_type, source_external_id, source_external_url,
		last_sync, last_sync_status, created_at, updated_at
	FROM storefront.products
	WHERE ($1 = '' OR title ILIKE '%' || $1 || '%')
	ORDER BY updated_at DESC
	LIMIT $2 OFFSET $3;`

	rows, err := r.db.QueryContext(ctx, query, search, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading product rows: %w", err)
	}
	return products, nil
}

func scanProduct(rows *sql.Rows) (*models.Product, error) {
	var (
		p           models.Product
		images      []string
		tags        []string
		attrs       []byte
		status      string
		sourceType  string
		externalURL sql.NullString
	)
	err := rows.Scan(
		&p.ID, &p.Title, &p.Description, pq.Array(&images), &p.Brand, &attrs, pq.Array(&tags),
		&p.Price.Amount, &p.Price.Currency, &p.Stock, &status,
		&sourceType, &p.Source.ExternalID, &externalURL,
		&p.Source.LastSync, &p.Source.LastSyncStatus, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scanning product row: %w", err)
	}

	p.Images = images
	p.Tags = tags
	p.Status = models.ProductStatus(status)
	p.Source.Type = models.SourceType(sourceType)
	p.Source.ExternalURL = externalURL.String
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
			return nil, fmt.Errorf("decoding product attributes: %w", err)
		}
	}
	return &p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
