// Package api wraps the stocklens remote store HTTP API in a typed client.
// It carries no business logic; triage and reconciliation live in the
// workflow package.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stocklens/internal/models"
)

const defaultTimeout = 30 * time.Second

// TransportError covers network failures and non-2xx responses. The status
// code is zero when the request never reached the server.
type TransportError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: server returned %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client talks to the remote store.
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

// NewClient constructs a client for the store at baseURL, e.g.
// "http://localhost:8888/api".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract uploads image bytes and returns the candidate products the
// extraction service detected, in response order.
func (c *Client) Extract(ctx context.Context, image []byte, sessionID string, maxItems int) ([]models.ExtractionResult, error) {
	if maxItems <= 0 {
		maxItems = models.DefaultMaxItems
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "capture.jpg")
	if err != nil {
		return nil, &TransportError{Op: "extract", Err: err}
	}
	if _, err := part.Write(image); err != nil {
		return nil, &TransportError{Op: "extract", Err: err}
	}
	if sessionID != "" {
		if err := mw.WriteField("session_id", sessionID); err != nil {
			return nil, &TransportError{Op: "extract", Err: err}
		}
	}
	if err := mw.WriteField("max_items", strconv.Itoa(maxItems)); err != nil {
		return nil, &TransportError{Op: "extract", Err: err}
	}
	if err := mw.Close(); err != nil {
		return nil, &TransportError{Op: "extract", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/product/extract/", &body)
	if err != nil {
		return nil, &TransportError{Op: "extract", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var results []models.ExtractionResult
	if err := c.do(req, "extract", &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SessionProducts returns every persisted product for the session.
func (c *Client) SessionProducts(ctx context.Context, sessionID string) ([]models.ProductRecord, error) {
	u := c.baseURL + "/session/products/?" + url.Values{"session_id": {sessionID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Op: "session products", Err: err}
	}
	var products []models.ProductRecord
	if err := c.do(req, "session products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// UpsertProduct writes the full payload for the product with result.ID and
// returns the canonical record the server now holds. The server assigns an
// id when the payload carries none.
func (c *Client) UpsertProduct(ctx context.Context, result models.ExtractionResult) (models.ProductRecord, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return models.ProductRecord{}, &TransportError{Op: "upsert product", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/product/"+url.PathEscape(result.ID)+"/", bytes.NewReader(payload))
	if err != nil {
		return models.ProductRecord{}, &TransportError{Op: "upsert product", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var record models.ProductRecord
	if err := c.do(req, "upsert product", &record); err != nil {
		return models.ProductRecord{}, err
	}
	return record, nil
}

// DeleteProduct removes the product with the given id.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/product/"+url.PathEscape(id)+"/", nil)
	if err != nil {
		return &TransportError{Op: "delete product", Err: err}
	}
	return c.do(req, "delete product", nil)
}

// ExportCSV streams the session's products as CSV into w.
func (c *Client) ExportCSV(ctx context.Context, sessionID string, w io.Writer) error {
	u := c.baseURL + "/export/csv/?" + url.Values{"session_id": {sessionID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &TransportError{Op: "export csv", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "export csv", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Op: "export csv", StatusCode: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return &TransportError{Op: "export csv", Err: err}
	}
	return nil
}

// ListSessions returns the server's session directory, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/", nil)
	if err != nil {
		return nil, &TransportError{Op: "list sessions", Err: err}
	}
	var sessions []models.SessionSummary
	if err := c.do(req, "list sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// HealthCheck probes the store and reports liveness. A failed probe is an
// answer, not an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health/", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: readErrorBody(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
