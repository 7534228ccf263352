package cj

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"luxemarket_api/config"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/pkg/logger"
)

const Provider = "cj"

const (
	defaultBaseURL     = "https://developers.cjdropshipping.com/api2.0/v1"
	defaultMaxPageSize = 200
)

// Client talks to the CJ Dropshipping API. CJ authenticates with an
// email/api-key exchange that yields a bearer token sent back in the
// CJ-Access-Token header.
type Client struct {
	cfg config.CJConfig
	api *suppliers.APIClient
	log logger.Logger
}

func NewClient(cfg config.CJConfig, imp config.ImportConfig, log logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaultMaxPageSize
	}

	c := &Client{
		cfg: cfg,
		log: log.WithPrefix("[CJClient]"),
	}
	c.api = &suppliers.APIClient{
		Provider:   Provider,
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{},
		Limiter:    rate.NewLimiter(rate.Limit(imp.SupplierRatePerSecond), imp.SupplierRatePerSecond),
		Backoff: suppliers.Backoff{
			MaxAttempts: imp.MaxRetries,
			BaseDelay:   imp.RetryBaseDelay(),
			MaxDelay:    imp.RetryMaxDelay(),
		},
		Timeout: imp.RequestTimeout(),
		SetAuth: func(req *http.Request, token string) {
			req.Header.Set("CJ-Access-Token", token)
		},
		Log: c.log,
	}
	c.api.Tokens = suppliers.NewTokenManager(c.login)
	return c
}

func (c *Client) Provider() string { return Provider }

func (c *Client) MaxPageSize() int { return c.cfg.MaxPageSize }

type authData struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (c *Client) login(ctx context.Context) (*suppliers.Token, error) {
	body := map[string]string{
		"email":    c.cfg.Email,
		"password": c.cfg.ApiKey,
	}

	var data authData
	if err := c.api.Do(ctx, http.MethodPost, "/authentication/getAccessToken", nil, body, &data, false); err != nil {
		return nil, err
	}
	if data.AccessToken == "" {
		return nil, errors.New("login response carried no access token")
	}

	c.log.Log("Obtained access token, expires in %ds", data.ExpiresIn)
	return &suppliers.Token{
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(data.ExpiresIn) * time.Second),
	}, nil
}

type productListData struct {
	List  []productListItem `json:"list"`
	Total int               `json:"total"`
}

type productListItem struct {
	Pid           string `json:"pid"`
	ProductNameEn string `json:"productNameEn"`
}

func (c *Client) Search(ctx context.Context, query string, page, size int) (*suppliers.SearchPage, error) {
	if size <= 0 || size > c.cfg.MaxPageSize {
		size = c.cfg.MaxPageSize
	}

	q := url.Values{}
	q.Set("productNameEn", query)
	q.Set("pageNum", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(size))

	var data productListData
	if err := c.api.Do(ctx, http.MethodGet, "/product/list", q, nil, &data, true); err != nil {
		return nil, err
	}

	result := &suppliers.SearchPage{Total: data.Total}
	for _, item := range data.List {
		result.Items = append(result.Items, suppliers.ProductSummary{
			ID:    item.Pid,
			Title: item.ProductNameEn,
		})
	}
	return result, nil
}

type productDetailData struct {
	Pid             string            `json:"pid"`
	ProductNameEn   string            `json:"productNameEn"`
	Description     string            `json:"description"`
	BrandName       string            `json:"brandName"`
	ProductUrl      string            `json:"productUrl"`
	ProductImageSet []string          `json:"productImageSet"`
	SellPrice       float64           `json:"sellPrice"`
	Currency        string            `json:"currency"`
	Inventory       *int              `json:"inventory"`
	Tags            []string          `json:"tags"`
	Attributes      map[string]string `json:"attributes"`
	Variants        []variantData     `json:"variants"`
}

type variantData struct {
	VariantSku       string  `json:"variantSku"`
	VariantSellPrice float64 `json:"variantSellPrice"`
	VariantStock     *int    `json:"variantStock"`
	VariantKey       string  `json:"variantKey"`
}

func (c *Client) Detail(ctx context.Context, externalID string) (*suppliers.ProductDetail, error) {
	q := url.Values{}
	q.Set("pid", externalID)

	var data productDetailData
	if err := c.api.Do(ctx, http.MethodGet, "/product/query", q, nil, &data, true); err != nil {
		return nil, err
	}
	if data.Pid == "" {
		return nil, suppliers.ErrNotFound
	}

	detail := &suppliers.ProductDetail{
		ID:          data.Pid,
		Title:       data.ProductNameEn,
		Description: data.Description,
		Brand:       data.BrandName,
		URL:         data.ProductUrl,
		Images:      data.ProductImageSet,
		SellPrice:   data.SellPrice,
		Currency:    data.Currency,
		Attributes:  data.Attributes,
		Tags:        data.Tags,
	}

	if data.Inventory != nil {
		detail.Inventory = *data.Inventory
		detail.InventoryKnown = true
	}

	for _, v := range data.Variants {
		variant := suppliers.Variant{
			SKU:        v.VariantSku,
			Price:      v.VariantSellPrice,
			Attributes: parseVariantKey(v.VariantKey),
		}
		if v.VariantStock != nil {
			variant.Stock = *v.VariantStock
			// stock derived from variants when the top-level field is absent
			if data.Inventory == nil {
				detail.Inventory += *v.VariantStock
				detail.InventoryKnown = true
			}
		}
		detail.Variants = append(detail.Variants, variant)
	}

	return detail, nil
}

// parseVariantKey splits CJ's "Color:Gold;Size:8" variant key format.
func parseVariantKey(key string) map[string]string {
	if key == "" {
		return nil
	}
	attrs := make(map[string]string)
	for _, pair := range strings.Split(key, ";") {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) == 2 {
			attrs[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return attrs
}
