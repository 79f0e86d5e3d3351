// Package client talks to a galerija server: it hydrates collections from
// product listings and submits their deltas. It never retries a submit.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/galerija/internal/collection"
	"github.com/erazemk/galerija/internal/model"
	"github.com/erazemk/galerija/internal/transfer"
)

const defaultHTTPTimeout = 60 * time.Second

// Config holds the client settings.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// Client is a galerija API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New constructs a client for the server at cfg.BaseURL.
func New(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is a non-200 answer from the server. It unwraps to the
// transfer error kind the server reported, when there is one.
type StatusError struct {
	Code    int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (e *StatusError) Unwrap() error {
	return e.kind
}

// Fetch returns the server's listing of product.
func (c *Client) Fetch(ctx context.Context, product string) (*transfer.Listing, error) {
	var listing transfer.Listing
	if err := c.do(ctx, http.MethodGet, c.imagesURL(product), nil, &listing); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", product, err)
	}
	return &listing, nil
}

// Hydrate fetches product and hydrates coll with its images in order.
func (c *Client) Hydrate(ctx context.Context, product string, coll collection.Collection) (collection.Collection, *transfer.Listing, error) {
	listing, err := c.Fetch(ctx, product)
	if err != nil {
		return coll, nil, err
	}

	items := make([]collection.PersistedItem, 0, len(listing.Images))
	for _, img := range listing.Images {
		items = append(items, collection.PersistedItem{
			ID:          img.ID,
			URL:         c.baseURL + img.URL,
			ContentType: img.FileType,
		})
	}

	hydrated, err := coll.Hydrate(items)
	if err != nil {
		return coll, nil, fmt.Errorf("hydrating %s: %w", product, err)
	}
	return hydrated, listing, nil
}

// Submit sends the delta of coll for product. The collection is never
// changed; on failure the caller can submit it again as is.
func (c *Client) Submit(ctx context.Context, product string, meta transfer.Metadata, coll collection.Collection) (*transfer.UploadResponse, error) {
	delta, err := coll.BuildDelta(ctx)
	if err != nil {
		return nil, fmt.Errorf("building delta: %w", err)
	}

	body, err := json.Marshal(transfer.FromDelta(meta, delta))
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	var resp transfer.UploadResponse
	if err := c.do(ctx, http.MethodPost, c.imagesURL(product), body, &resp); err != nil {
		return nil, fmt.Errorf("submitting %s: %w", product, err)
	}
	return &resp, nil
}

// Products lists every product on the server.
func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/products", nil, &products); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

func (c *Client) imagesURL(product string) string {
	return c.baseURL + "/api/products/" + url.PathEscape(product) + "/images"
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}

	se := &StatusError{Code: code, Message: msg}
	for _, kind := range transfer.Kinds {
		if strings.Contains(msg, kind.Error()) {
			se.kind = kind
			break
		}
	}
	if se.kind == nil && code == http.StatusBadRequest {
		se.kind = transfer.ErrMalformedPayload
	}
	return se
}

// IsRejected reports whether err is the server refusing a payload, as
// opposed to a transport or storage failure.
func IsRejected(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusBadRequest
}
