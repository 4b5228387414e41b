package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

const defaultTimeout = 5 * time.Minute

// RESTClient implements Client against the migration gateway's HTTP API.
//
// The gateway fronts the actual source/target platforms; this client does no
// retrying of its own and surfaces gateway errors verbatim.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// RESTOption configures a RESTClient.
type RESTOption func(*RESTClient)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) RESTOption {
	return func(c *RESTClient) {
		c.token = token
	}
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(timeout time.Duration) RESTOption {
	return func(c *RESTClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewRESTClient creates a client for the gateway at baseURL, which should
// include the scheme (e.g. "https://gateway.example.com").
func NewRESTClient(baseURL string, opts ...RESTOption) *RESTClient {
	c := &RESTClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DescribeOrg implements Client.
func (c *RESTClient) DescribeOrg(ctx context.Context, alias string) (OrgInfo, error) {
	var info OrgInfo
	err := c.getJSON(ctx, fmt.Sprintf("/api/orgs/%s", url.PathEscape(alias)), &info)
	if err != nil {
		return OrgInfo{}, fmt.Errorf("describing org %s: %w", alias, err)
	}
	return info, nil
}

// CountRecords implements Client.
func (c *RESTClient) CountRecords(ctx context.Context, alias, entity string) (int, error) {
	var payload struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/api/orgs/%s/entities/%s/count", url.PathEscape(alias), url.PathEscape(entity))
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return 0, fmt.Errorf("counting %s records in %s: %w", entity, alias, err)
	}
	return payload.Count, nil
}

// ExtractRecords implements Client. The gateway streams the export; the rows
// are written verbatim to destPath and the row count comes from the
// gateway's trailer header so this client never parses the payload.
func (c *RESTClient) ExtractRecords(ctx context.Context, alias, entity, destPath string) (int, error) {
	path := fmt.Sprintf("/api/orgs/%s/entities/%s/export", url.PathEscape(alias), url.PathEscape(entity))
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, fmt.Errorf("exporting %s records from %s: %w", entity, alias, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	file, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("creating export file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		return 0, fmt.Errorf("writing export file: %w", err)
	}

	var count int
	if _, err := fmt.Sscanf(resp.Header.Get("X-Record-Count"), "%d", &count); err != nil {
		return 0, fmt.Errorf("export response for %s missing record count: %w", entity, err)
	}
	return count, nil
}

// RetrieveMetadata implements Client.
func (c *RESTClient) RetrieveMetadata(ctx context.Context, alias, manifest, destDir string) error {
	body := map[string]string{"manifest": manifest, "destination": destDir}
	path := fmt.Sprintf("/api/orgs/%s/metadata/retrieve", url.PathEscape(alias))
	if err := c.postJSON(ctx, path, body, nil); err != nil {
		return fmt.Errorf("retrieving metadata from %s: %w", alias, err)
	}
	return nil
}

// DeployMetadata implements Client.
func (c *RESTClient) DeployMetadata(ctx context.Context, alias, sourceDir string) (DeployResult, error) {
	var deployResult DeployResult
	body := map[string]string{"source": sourceDir}
	path := fmt.Sprintf("/api/orgs/%s/metadata/deploy", url.PathEscape(alias))
	if err := c.postJSON(ctx, path, body, &deployResult); err != nil {
		return DeployResult{}, fmt.Errorf("deploying metadata to %s: %w", alias, err)
	}
	return deployResult, nil
}

// BulkLoad implements Client.
func (c *RESTClient) BulkLoad(ctx context.Context, alias, entity, dataFile string) (LoadResult, error) {
	var loadResult LoadResult
	body := map[string]string{"entity": entity, "dataFile": dataFile}
	path := fmt.Sprintf("/api/orgs/%s/entities/%s/load", url.PathEscape(alias), url.PathEscape(entity))
	if err := c.postJSON(ctx, path, body, &loadResult); err != nil {
		return LoadResult{}, fmt.Errorf("loading %s records into %s: %w", entity, alias, err)
	}
	return loadResult, nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *RESTClient) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *RESTClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s %s: gateway returned %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(payload))
	}
	return resp, nil
}
