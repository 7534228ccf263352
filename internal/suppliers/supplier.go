package suppliers

import "context"

// ProductSummary is one row of a supplier search page.
type ProductSummary struct {
	ID    string
	Title string
}

type SearchPage struct {
	Items []ProductSummary
	Total int
}

type Variant struct {
	SKU        string
	Price      float64
	Stock      int
	Attributes map[string]string
}

// ProductDetail is the full external record for a single supplier product,
// normalized to the fields the import pipeline consumes. InventoryKnown is
// false when the supplier did not report stock at all; the mapper turns such
// products into drafts.
type ProductDetail struct {
	ID             string
	Title          string
	Description    string
	Brand          string
	URL            string
	Images         []string
	SellPrice      float64
	Currency       string
	Inventory      int
	InventoryKnown bool
	Attributes     map[string]string
	Tags           []string
	Variants       []Variant
}

// Client is the capability the import pipeline needs from a supplier.
// CJ and AliExpress have divergent auth schemes and response envelopes, so
// each gets its own concrete client; they share only this interface.
type Client interface {
	Provider() string
	MaxPageSize() int
	Search(ctx context.Context, query string, page, size int) (*SearchPage, error)
	Detail(ctx context.Context, externalID string) (*ProductDetail, error)
}
