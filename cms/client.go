// Package cms is a typed client for the Elastic Path style commerce backend:
// products, catalog prices, carts, customers, and product image files.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

// maxErrorBody bounds how much of an error response is kept for logs.
const maxErrorBody = 512

// Client performs authenticated operations against the commerce backend.
type Client struct {
	baseURL  string
	http     *http.Client
	tokens   *TokenSource
	imageDir string
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// ImageCacheDir is where downloaded product images are kept, keyed by file id.
	ImageCacheDir string
	// HTTPClient may be nil; http.DefaultClient is used then.
	HTTPClient *http.Client
	// TokenStore holds the shared bearer token slot.
	TokenStore TokenStore
}

// New builds a Client with its credential cache.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	store := opts.TokenStore
	if store == nil {
		store = NewMemoryTokenStore()
	}
	return &Client{
		baseURL:  opts.BaseURL,
		http:     httpClient,
		tokens:   NewTokenSource(store, opts.BaseURL, opts.ClientID, opts.ClientSecret, httpClient),
		imageDir: opts.ImageCacheDir,
	}
}

// do performs an authenticated request and decodes the JSON response into out.
// Non-success responses become BackendError; 404 becomes NotFoundError with the
// given entity kind and id.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, kind, id string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.CMS.Error("request failed",
			slog.String("event", "cms.request"),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("err", err.Error()),
		)
		return &BackendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &NotFoundError{Kind: kind, ID: id}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.CMS.Error("backend error",
			slog.String("event", "cms.request"),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_code", resp.StatusCode),
		)
		return &BackendError{Status: resp.StatusCode, Body: logger.Sanitize(string(snippet))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &BackendError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
