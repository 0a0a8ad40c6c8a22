package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	DefaultBaseURL              = "https://fakestoreapi.com"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
	maxResponseBytes      int64 = 4 << 20
)

// ErrCatalogUnavailable marks failures reaching or decoding the remote catalog.
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// Client talks to a fakestore-compatible catalog API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	metrics    *metrics.CatalogMetrics
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the catalog base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every catalog request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMetrics records request durations.
func WithMetrics(m *metrics.CatalogMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger logs failed catalog calls.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds a catalog client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.timeout}
	}
	return client
}

// ListProducts returns every product in the catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if _, err := c.getJSON(ctx, "products", "products", &products); err != nil {
		return nil, err
	}
	return c.keepValid(ctx, products), nil
}

// GetProduct returns a single product. The catalog answers unknown ids with an
// empty body, which maps to a not-found error.
func (c *Client) GetProduct(ctx context.Context, id int) (*Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}

	var product *Product
	found, err := c.getJSON(ctx, "product", "products/"+strconv.Itoa(id), &product)
	if err != nil {
		return nil, err
	}
	if !found || product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %d not found", id))
	}
	if !product.valid() {
		return nil, unavailable(fmt.Errorf("product %d failed validation", id), "decode product response")
	}
	return product, nil
}

// ListProductsByCategory returns the products in a category slug.
func (c *Client) ListProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}

	var products []Product
	if _, err := c.getJSON(ctx, "category_products", "products/category/"+url.PathEscape(trimmed), &products); err != nil {
		return nil, err
	}
	return c.keepValid(ctx, products), nil
}

// ListCategories returns the category slugs.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if _, err := c.getJSON(ctx, "categories", "products/categories", &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// getJSON fetches path and decodes it into dest. found is false when the
// catalog answered with an empty or null body.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, dest any) (found bool, err error) {
	if c == nil {
		return false, pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}

	started := time.Now()
	defer func() {
		c.metrics.ObserveRequest(endpoint, err, time.Since(started))
		if err != nil && pkgerrors.CodeOf(err) == pkgerrors.CodeDependency && c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{"endpoint": endpoint})
			c.logg.Warn(logCtx, fmt.Sprintf("catalog request failed: %v", err))
		}
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), nil)
	if err != nil {
		return false, unavailable(err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, unavailable(err, "execute catalog request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return false, unavailable(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "catalog request failed")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, unavailable(err, "read catalog response")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return false, unavailable(err, "decode catalog response")
	}
	return true, nil
}

func (c *Client) keepValid(ctx context.Context, products []Product) []Product {
	valid := make([]Product, 0, len(products))
	for _, p := range products {
		if !p.valid() {
			if c.logg != nil {
				c.logg.Warn(c.logg.WithField(ctx, "product_id", p.ID), "dropping invalid catalog product")
			}
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func unavailable(err error, message string) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err), message).
		WithDetails(map[string]any{"retryable": true})
}
