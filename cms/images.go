package cms

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/MelnikovEI/fish-shop/core/logger"
	"log/slog"
)

type imageRelationshipResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type fileResponse struct {
	Data struct {
		Link struct {
			Href string `json:"href"`
		} `json:"link"`
	} `json:"data"`
}

// GetProductImage resolves the product's main image to a local file path.
// Downloaded bytes are cached under the backend file id; files are immutable
// once created, so cached entries never expire. Concurrent first downloads of
// the same file may both write, which is harmless: same bytes, last writer wins.
func (c *Client) GetProductImage(ctx context.Context, productID string) (string, error) {
	var rel imageRelationshipResponse
	if err := c.do(ctx, http.MethodGet, "/pcm/products/"+productID+"/relationships/main_image", nil, nil, &rel, "image", productID); err != nil {
		return "", err
	}
	fileID := rel.Data.ID
	if fileID == "" {
		return "", &NotFoundError{Kind: "image", ID: productID}
	}

	path := filepath.Join(c.imageDir, fileID)
	if _, err := os.Stat(path); err == nil {
		logger.CMS.Debug("image cache hit",
			slog.String("event", "cms.image"),
			slog.String("cache", "hit"),
			slog.String("file_id", fileID),
		)
		return path, nil
	}

	var file fileResponse
	if err := c.do(ctx, http.MethodGet, "/v2/files/"+fileID, nil, nil, &file, "file", fileID); err != nil {
		return "", err
	}
	href := file.Data.Link.Href
	if href == "" {
		return "", &NotFoundError{Kind: "file", ID: fileID}
	}

	content, err := c.download(ctx, href)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.imageDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}

	logger.CMS.Debug("image downloaded",
		slog.String("event", "cms.image"),
		slog.String("cache", "miss"),
		slog.String("file_id", fileID),
		slog.Int("bytes", len(content)),
	)
	return path, nil
}

func (c *Client) download(ctx context.Context, href string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{Status: resp.StatusCode, Body: "image download failed"}
	}
	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Err: err}
	}
	return content, nil
}
