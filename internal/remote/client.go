// Package remote talks to the external record store and tracks whether a
// usable client handle is currently available.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/publiclogic/archieve/internal/models"
)

// RecordClient is the minimal surface the capture and sync paths need.
type RecordClient interface {
	Create(ctx context.Context, item models.CaptureItem) (models.RecordHandle, error)
	List(ctx context.Context) ([]models.Record, error)
}

var _ RecordClient = (*HTTPClient)(nil)

const (
	defaultUserAgent = "archieve/0.1"
	defaultTimeout   = 10 * time.Second
)

// StatusError is returned when the record store answers with status >= 400.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api %s returned status %d", e.Path, e.Code)
}

// HTTPClient is a RecordClient backed by the record store's REST API.
type HTTPClient struct {
	baseURL   *url.URL
	token     string
	http      *http.Client
	userAgent string
}

// NewHTTPClient builds a client for baseURL authenticated with token.
func NewHTTPClient(baseURL, token string, timeout time.Duration) (*HTTPClient, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:   base,
		token:     strings.TrimSpace(token),
		http:      &http.Client{Timeout: timeout},
		userAgent: defaultUserAgent,
	}, nil
}

// Create writes item as a new record. The item ID is sent as the idempotency
// key so a retried create does not produce a duplicate record.
func (c *HTTPClient) Create(ctx context.Context, item models.CaptureItem) (models.RecordHandle, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return models.RecordHandle{}, fmt.Errorf("encode item: %w", err)
	}
	var handle models.RecordHandle
	header := http.Header{}
	header.Set("Idempotency-Key", item.ID)
	if err := c.do(ctx, http.MethodPost, "records", header, bytes.NewReader(body), &handle); err != nil {
		return models.RecordHandle{}, err
	}
	if handle.ItemID == "" {
		handle.ItemID = item.ID
	}
	return handle, nil
}

type listResponse struct {
	Items []models.Record `json:"items"`
}

// List returns every record visible to the caller, in server order.
func (c *HTTPClient) List(ctx context.Context) ([]models.Record, error) {
	var payload listResponse
	if err := c.do(ctx, http.MethodGet, "records", nil, nil, &payload); err != nil {
		return nil, err
	}
	if payload.Items == nil {
		payload.Items = []models.Record{}
	}
	return payload.Items, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, header http.Header, body io.Reader, dest any) error {
	rel := &url.URL{Path: path}
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return &StatusError{Path: reqURL.Path, Code: resp.StatusCode}
	}
	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseBaseURL normalizes baseURL so relative paths resolve beneath it.
func parseBaseURL(baseURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("remote base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
