package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/astrodl/ffibulk/internal/domain"
)

// Client fetches sector manifests from the archive's download-script
// directory.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// ScriptURL is the well-known location of a sector's FFI download script.
func (c *Client) ScriptURL(sector int) string {
	return fmt.Sprintf("%s/tesscurl_sector_%d_ffic.sh", c.baseURL, sector)
}

// FetchItems retrieves the manifest for sel.Sector and parses it into
// work items. Any transport error or non-2xx status is fatal for the
// whole run: no partial results are returned.
func (c *Client) FetchItems(ctx context.Context, outDir string, sel domain.Selector) ([]domain.WorkItem, error) {
	url := c.ScriptURL(sel.Sector)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrManifestFetch, url, resp.Status)
	}

	return Parse(resp.Body, outDir, sel)
}
