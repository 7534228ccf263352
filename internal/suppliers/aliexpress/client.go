package aliexpress

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"luxemarket_api/config"
	"luxemarket_api/internal/suppliers"
	"luxemarket_api/pkg/logger"
)

const Provider = "aliexpress"

const (
	defaultBaseURL     = "https://api-sg.aliexpress.com/affiliate"
	defaultMaxPageSize = 50
)

// Client talks to the AliExpress affiliate API. Unlike CJ it authenticates
// with an app key/secret exchange and sends the token as a standard bearer
// header; product ids are numeric on the wire and stringified here.
type Client struct {
	cfg config.AliExpressConfig
	api *suppliers.APIClient
	log logger.Logger
}

func NewClient(cfg config.AliExpressConfig, imp config.ImportConfig, log logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = defaultMaxPageSize
	}

	c := &Client{
		cfg: cfg,
		log: log.WithPrefix("[AliExpressClient]"),
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
			req.Header.Set("Authorization", "Bearer "+token)
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
		"app_key":    c.cfg.AppKey,
		"app_secret": c.cfg.AppSecret,
	}

	var data authData
	if err := c.api.Do(ctx, http.MethodPost, "/auth/token/create", nil, body, &data, false); err != nil {
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

type searchData struct {
	Products   []searchItem `json:"products"`
	TotalCount int          `json:"total_count"`
}

type searchItem struct {
	ProductID    int64  `json:"product_id"`
	ProductTitle string `json:"product_title"`
}

func (c *Client) Search(ctx context.Context, query string, page, size int) (*suppliers.SearchPage, error) {
	if size <= 0 || size > c.cfg.MaxPageSize {
		size = c.cfg.MaxPageSize
	}

	q := url.Values{}
	q.Set("keywords", query)
	q.Set("page_no", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(size))

	var data searchData
	if err := c.api.Do(ctx, http.MethodGet, "/product/search", q, nil, &data, true); err != nil {
		return nil, err
	}

	result := &suppliers.SearchPage{Total: data.TotalCount}
	for _, item := range data.Products {
		result.Items = append(result.Items, suppliers.ProductSummary{
			ID:    strconv.FormatInt(item.ProductID, 10),
			Title: item.ProductTitle,
		})
	}
	return result, nil
}

type detailData struct {
	ProductID        int64             `json:"product_id"`
	ProductTitle     string            `json:"product_title"`
	Description      string            `json:"description"`
	ShopName         string            `json:"shop_name"`
	ProductDetailURL string            `json:"product_detail_url"`
	MainImageURL     string            `json:"product_main_image_url"`
	SmallImageURLs   []string          `json:"product_small_image_urls"`
	TargetSalePrice  float64           `json:"target_sale_price"`
	Currency         string            `json:"target_sale_price_currency"`
	Stock            *int              `json:"stock"`
	Attributes       map[string]string `json:"attributes"`
	Tags             []string          `json:"tags"`
	SKUs             []skuData         `json:"skus"`
}

type skuData struct {
	SkuID      string            `json:"sku_id"`
	SkuPrice   float64           `json:"sku_price"`
	SkuStock   *int              `json:"sku_stock"`
	Properties map[string]string `json:"properties"`
}

func (c *Client) Detail(ctx context.Context, externalID string) (*suppliers.ProductDetail, error) {
	q := url.Values{}
	q.Set("product_id", externalID)

	var data detailData
	if err := c.api.Do(ctx, http.MethodGet, "/product/detail", q, nil, &data, true); err != nil {
		return nil, err
	}
	if data.ProductID == 0 {
		return nil, suppliers.ErrNotFound
	}

	images := data.SmallImageURLs
	if data.MainImageURL != "" {
		images = append([]string{data.MainImageURL}, images...)
	}

	detail := &suppliers.ProductDetail{
		ID:          strconv.FormatInt(data.ProductID, 10),
		Title:       data.ProductTitle,
		Description: data.Description,
		Brand:       data.ShopName,
		URL:         data.ProductDetailURL,
		Images:      images,
		SellPrice:   data.TargetSalePrice,
		Currency:    data.Currency,
		Attributes:  data.Attributes,
		Tags:        data.Tags,
	}

	if data.Stock != nil {
		detail.Inventory = *data.Stock
		detail.InventoryKnown = true
	}

	for _, sku := range data.SKUs {
		variant := suppliers.Variant{
			SKU:        sku.SkuID,
			Price:      sku.SkuPrice,
			Attributes: sku.Properties,
		}
		if sku.SkuStock != nil {
			variant.Stock = *sku.SkuStock
			if data.Stock == nil {
				detail.Inventory += *sku.SkuStock
				detail.InventoryKnown = true
			}
		}
		detail.Variants = append(detail.Variants, variant)
	}

	return detail, nil
}
