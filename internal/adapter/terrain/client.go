// Package terrain fetches elevation tiles from an HTTP tile service. The
// service exposes a tile index keyed by bounding box and resolution, and
// serves each tile as a GeoTIFF.
package terrain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/terrain-analysis-service/internal/domain"
)

// Client downloads elevation tiles covering a bounding box.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a tile service client. endpoint is the service base URL
// without a trailing slash.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchTiles queries the tile index for the bounding box and downloads each
// listed tile into destDir. It returns the paths of the downloaded files in
// index order. An empty slice with a nil error means the service has no
// coverage for the region.
func (c *Client) FetchTiles(ctx context.Context, bbox domain.BBox, resolutionM int, destDir string) ([]string, error) {
	tiles, err := c.queryIndex(ctx, bbox, resolutionM)
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		c.logger.Info("tile index returned no coverage", "bbox", bbox.String())
		return nil, nil
	}

	if err := os.MkdirAll(destDir, 0750); err != nil {
		return nil, fmt.Errorf("create tile directory: %w", err)
	}

	paths := make([]string, 0, len(tiles))
	for _, t := range tiles {
		path := filepath.Join(destDir, t.ID+".tif")
		if err := c.download(ctx, t.URL, path); err != nil {
			return nil, fmt.Errorf("download tile %s: %w", t.ID, err)
		}
		paths = append(paths, path)
	}
	c.logger.Info("elevation tiles downloaded", "count", len(paths), "dir", destDir)
	return paths, nil
}

func (c *Client) queryIndex(ctx context.Context, bbox domain.BBox, resolutionM int) ([]tile, error) {
	params := url.Values{
		"bbox":       {bbox.String()},
		"resolution": {strconv.Itoa(resolutionM)},
	}
	u := c.endpoint + "/index?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create index request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tile index request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tile service error: status %d: %s", resp.StatusCode, body)
	}

	var idx indexResponse
	if err := json.NewDecoder(resp.Body).Decode(&idx); err != nil {
		return nil, fmt.Errorf("decode index response: %w", err)
	}
	return idx.Tiles, nil
}

func (c *Client) download(ctx context.Context, tileURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Tile index response types.

type indexResponse struct {
	Tiles []tile `json:"tiles"`
}

type tile struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
