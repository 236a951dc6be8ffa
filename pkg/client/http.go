package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-formgrid/pkg/widgeterr"
)

// ErrNotSupported is returned by adapters lacking an operation.
var ErrNotSupported = errors.New("client: operation not supported")

// HTTP implements Client and Uploader over net/http with JSON bodies.
// Relative URLs are resolved against BaseURL.
type HTTP struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	headers http.Header
}

var (
	_ Client   = (*HTTP)(nil)
	_ Uploader = (*HTTP)(nil)
)

// HTTPOption customises an HTTP client.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTP) {
		if client != nil {
			h.http = client
		}
	}
}

// WithTimeout bounds every request.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(h *HTTP) {
		h.timeout = timeout
	}
}

// WithHeader adds a header to every request, e.g. an Authorization token.
func WithHeader(key, value string) HTTPOption {
	return func(h *HTTP) {
		h.headers.Add(key, value)
	}
}

// NewHTTP constructs an HTTP client rooted at baseURL.
func NewHTTP(baseURL string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		baseURL: strings.TrimSpace(baseURL),
		http:    http.DefaultClient,
		headers: make(http.Header),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// BaseURL returns the configured base URL.
func (h *HTTP) BaseURL() string { return h.baseURL }

// Resolve joins a relative url onto the base URL. Absolute URLs are returned
// untouched.
func (h *HTTP) Resolve(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") || h.baseURL == "" {
		return url
	}
	return strings.TrimRight(h.baseURL, "/") + "/" + strings.TrimLeft(url, "/")
}

// Get issues a GET request and decodes the JSON response.
func (h *HTTP) Get(ctx context.Context, url string) (any, error) {
	return h.do(ctx, http.MethodGet, url, nil, "")
}

// Post issues a POST request with a JSON body and decodes the JSON response.
func (h *HTTP) Post(ctx context.Context, url string, body any) (any, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("client: encode body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}
	return h.do(ctx, http.MethodPost, url, payload, "application/json")
}

// Upload posts content as a multipart form with a single file part.
func (h *HTTP) Upload(ctx context.Context, url, field, filename string, content io.Reader) (any, error) {
	if field == "" {
		field = "file"
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("client: create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("client: copy upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("client: close multipart: %w", err)
	}
	return h.do(ctx, http.MethodPost, url, &buf, writer.FormDataContentType())
}

func (h *HTTP) do(ctx context.Context, method, url string, body io.Reader, contentType string) (any, error) {
	target := h.Resolve(url)
	if target == "" {
		return nil, errors.New("client: url is required")
	}

	reqCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return nil, &widgeterr.NetworkError{Op: method, URL: target, Err: err}
	}
	for key, values := range h.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, &widgeterr.NetworkError{Op: method, URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &widgeterr.NetworkError{Op: method, URL: target, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &widgeterr.NetworkError{Op: method, URL: target, Status: resp.StatusCode, Err: statusDetail(data)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &widgeterr.NetworkError{Op: method, URL: target, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

func statusDetail(body []byte) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Message != "" {
			return errors.New(payload.Message)
		}
		if payload.Error != "" {
			return errors.New(payload.Error)
		}
	}
	return nil
}
