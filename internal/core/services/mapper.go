package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"luxemarket_api/internal/core/models"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/pkg/business/service"
)

const (
	maxTitleLength = 60
	maxDescLength  = 2000
)

const (
	syncStatusOK              = "ok"
	syncStatusDefaultShipping = "ok_default_shipping"
)

// MapError marks a supplier record that cannot become a catalog product.
// It is counted against the job, never retried.
type MapError struct {
	Field  string
	Reason string
}

func (e *MapError) Error() string {
	return fmt.Sprintf("cannot map supplier product: field %q %s", e.Field, e.Reason)
}

// ProductMapper transforms supplier product records into catalog products.
// It performs no I/O; the only non-input dependency is the clock used to
// stamp last_sync, which tests override.
type ProductMapper struct {
	text    service.ITextService
	pricing *PricingEngine
	now     func() time.Time
}

func NewProductMapper(text service.ITextService, pricing *PricingEngine) *ProductMapper {
	return &ProductMapper{
		text:    text,
		pricing: pricing,
		now:     time.Now,
	}
}

func (m *ProductMapper) Map(detail *suppliers.ProductDetail, provider models.SourceType, countryCode string) (*models.Product, error) {
	if detail == nil || detail.ID == "" {
		return nil, &MapError{Field: "id", Reason: "is missing"}
	}
	if strings.TrimSpace(detail.Title) == "" {
		return nil, &MapError{Field: "title", Reason: "is missing"}
	}
	if detail.SellPrice <= 0 {
		return nil, &MapError{Field: "sell_price", Reason: "is not positive"}
	}

	shipping, known := m.pricing.ShippingFor(countryCode)
	syncStatus := syncStatusOK
	if !known {
		syncStatus = syncStatusDefaultShipping
	}

	product := &models.Product{
		Title:       m.text.ClearAndReduce(detail.Title, maxTitleLength),
		Description: m.text.ClearAndReduce(detail.Description, maxDescLength),
		Images:      append([]string(nil), detail.Images...),
		Brand:       normalizeBrand(detail.Brand),
		Attributes:  normalizeAttributes(detail.Attributes),
		Tags:        normalizeTags(detail.Tags),
		Price:       m.pricing.FinalPrice(detail.SellPrice, shipping),
		Status:      models.StatusActive,
		Source: models.Source{
			Type:           provider,
			ExternalID:     detail.ID,
			ExternalURL:    detail.URL,
			LastSync:       m.now().UTC(),
			LastSyncStatus: syncStatus,
		},
	}

	if detail.InventoryKnown {
		product.Stock = detail.Inventory
		if product.Stock < 0 {
			product.Stock = 0
		}
	} else {
		// unknown inventory: keep the product out of the storefront
		product.Stock = 0
		product.Status = models.StatusDraft
	}

	return product, nil
}

func normalizeBrand(brand string) string {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(brand))
}

func normalizeAttributes(attrs map[string]string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	normalized := make(map[string]string, len(attrs))
	for k, v := range attrs {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			continue
		}
		normalized[key] = strings.TrimSpace(v)
	}
	return normalized
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	var normalized []string
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		normalized = append(normalized, t)
	}
	sort.Strings(normalized)
	return normalized
}
