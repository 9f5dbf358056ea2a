// Package importer fetches product catalogs from external sources.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"inventory-service/internal/models"

	"github.com/shopspring/decimal"
)

type dummyJSONProduct struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Thumbnail   string          `json:"thumbnail"`
	Description string          `json:"description"`
}

type dummyJSONResponse struct {
	Products []dummyJSONProduct `json:"products"`
	Total    int                `json:"total"`
	Skip     int                `json:"skip"`
	Limit    int                `json:"limit"`
}

// DummyJSONClient reads the product list of a DummyJSON compatible API
type DummyJSONClient struct {
	url        string
	httpClient *http.Client
}

// NewDummyJSONClient creates a client for url, e.g.
// https://dummyjson.com/products?limit=0
func NewDummyJSONClient(url string, timeout time.Duration) *DummyJSONClient {
	return &DummyJSONClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchProducts downloads and maps the product list
func (c *DummyJSONClient) FetchProducts(ctx context.Context) ([]models.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status from product source: %d", resp.StatusCode)
	}

	var body dummyJSONResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	products := make([]models.Product, 0, len(body.Products))
	for _, p := range body.Products {
		if p.SKU == "" {
			continue
		}
		products = append(products, models.Product{
			SKU:         p.SKU,
			Title:       p.Title,
			Image:       p.Thumbnail,
			Price:       p.Price,
			Description: p.Description,
		})
	}
	return products, nil
}
