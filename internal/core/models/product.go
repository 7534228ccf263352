package models

import "time"

type SourceType string

const (
	SourceManual     SourceType = "manual"
	SourceAliExpress SourceType = "aliexpress"
	SourceCJ         SourceType = "cj"
)

func (s SourceType) Valid() bool {
	switch s {
	case SourceManual, SourceAliExpress, SourceCJ:
		return true
	}
	return false
}

type ProductStatus string

const (
	StatusActive ProductStatus = "active"
	StatusDraft  ProductStatus = "draft"
)

type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Source records where a catalog product came from. For supplier-sourced
// products the (Type, ExternalID) pair is unique across the catalog; that
// uniqueness is what makes re-imports collapse instead of duplicating.
type Source struct {
	Type           SourceType `json:"type"`
	ExternalID     string     `json:"external_id"`
	ExternalURL    string     `json:"external_url,omitempty"`
	LastSync       time.Time  `json:"last_sync"`
	LastSyncStatus string     `json:"last_sync_status"`
}

// Product is a catalog item aggregated from manual entry or supplier imports.
type Product struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Images      []string          `json:"images"`
	Brand       string            `json:"brand"`
	Attributes  map[string]string `json:"attributes"`
	Tags        []string          `json:"tags"`
	Price       Price             `json:"price"`
	Stock       int               `json:"stock"`
	Status      ProductStatus     `json:"status"`
	Source      Source            `json:"source"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
