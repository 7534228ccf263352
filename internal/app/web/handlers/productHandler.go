package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"luxemarket_api/internal/core/models"
	"luxemarket_api/internal/core/storage"
	"luxemarket_api/pkg/cache"
	"luxemarket_api/pkg/dbconnect"
	"luxemarket_api/pkg/logger"
)

// ProductHandler is the thin admin CRUD surface over the catalog the
// importer feeds. Listings and counts go through the Redis cache; both
// deletes here and import upserts invalidate the prefix eagerly, with the
// short TTL as a backstop.
type ProductHandler struct {
	dbconnect.Database
	repo  *storage.ProductRepository
	cache *cache.RedisCache
	log   logger.Logger
}

func NewProductHandler(connector dbconnect.Database, repo *storage.ProductRepository, c *cache.RedisCache, log logger.Logger) *ProductHandler {
	return &ProductHandler{
		Database: connector,
		repo:     repo,
		cache:    c,
		log:      log.WithPrefix("[ProductHandler]"),
	}
}

func (h *ProductHandler) Ping() error {
	return h.Database.Ping()
}

type productListResponse struct {
	Products []*models.Product `json:"products"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// ListProductsHandler handles GET /api/admin/products?search=&page=&limit=.
func (h *ProductHandler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	search := r.URL.Query().Get("search")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)

	key := fmt.Sprintf("%slist:%s:%d:%d", storage.ProductCachePrefix, search, page, limit)
	var cached productListResponse
	if err := h.cache.GetJSON(r.Context(), key, &cached); err == nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	products, err := h.repo.List(r.Context(), search, page, limit)
	if err != nil {
		h.log.Log("Failed to list products: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []*models.Product{}
	}

	response := productListResponse{Products: products, Page: page, Limit: limit}
	if err := h.cache.SetJSON(r.Context(), key, response); err != nil {
		h.log.Log("Failed to cache product list: %v", err)
	}
	respondJSON(w, http.StatusOK, response)
}

// CountProductsHandler handles GET /api/admin/products/count.
func (h *ProductHandler) CountProductsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := storage.ProductCachePrefix + "count"
	var cached map[string]int
	if err := h.cache.GetJSON(r.Context(), key, &cached); err == nil {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	count, err := h.repo.Count(r.Context())
	if err != nil {
		h.log.Log("Failed to count products: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to count products")
		return
	}

	response := map[string]int{"count": count}
	if err := h.cache.SetJSON(r.Context(), key, response); err != nil {
		h.log.Log("Failed to cache product count: %v", err)
	}
	respondJSON(w, http.StatusOK, response)
}

// ProductHandlerByID handles DELETE /api/admin/products/{id}.
func (h *ProductHandler) ProductHandlerByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/products/")
	if id == "" || strings.Contains(id, "/") {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	if r.Method != http.MethodDelete {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	err := h.repo.Delete(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.log.Log("Failed to delete product %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	if err := h.cache.InvalidatePrefix(r.Context(), storage.ProductCachePrefix); err != nil {
		h.log.Log("Failed to invalidate product cache: %v", err)
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
