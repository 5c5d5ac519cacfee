// Package metadata consumes the dataset metadata service. The service
// catalogs every cloud-storage dataset: its name, its CSV columns, and
// the bucket groups that describe where the objects live and how their
// keys are laid out.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/quantarc/ticklake/ticklake"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultTimeout bounds each metadata request.
const DefaultTimeout = 5 * time.Second

const (
	datasetsEndpoint     = "public/cloud_storage/"
	bucketGroupsEndpoint = "public/bucket_group/"
	loginEndpoint        = "login/access_token/"
)

// -----------------------------------------------------------------------------
// Wire types
// -----------------------------------------------------------------------------

// datasetEntry is one cloud-storage dataset in the catalog listing.
type datasetEntry struct {
	ID           int         `json:"id"`
	TextID       string      `json:"text_id"`
	CSVColumns   []csvColumn `json:"csv_columns"`
	BucketGroups []int       `json:"bucket_groups"`
}

type csvColumn struct {
	Name string `json:"name"`
}

// valid reports whether the entry describes a usable dataset. Entries
// without columns or bucket groups are catalog stubs and are dropped.
func (e *datasetEntry) valid() bool {
	return len(e.CSVColumns) > 0 && len(e.BucketGroups) > 0
}

// bucketGroupEntry is one bucket group: a bucket naming scheme plus the
// object key layout inside those buckets.
type bucketGroupEntry struct {
	ID         int    `json:"id"`
	TextID     string `json:"text_id"`
	BucketName string `json:"bucket_name"`
	PathFormat string `json:"path_format"`
	IsPrimary  bool   `json:"is_primary"`
	StartYear  int    `json:"start_year"`
	EndYear    int    `json:"end_year"`
}

// -----------------------------------------------------------------------------
// Consumer
// -----------------------------------------------------------------------------

// Consumer fetches dataset metadata over HTTP and resolves it into
// ticklake.DatasetMetadata. Catalog responses are cached; pass a Cache
// to control the policy.
type Consumer struct {
	baseURL string
	token   string
	client  *http.Client
	cache   Cache
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ConsumerOption {
	return func(m *Consumer) { m.client = c }
}

// WithCache sets the response cache. The default caches forever; pass
// NewMemoryCache with a TTL to pick up catalog changes, or nil to
// disable caching.
func WithCache(c Cache) ConsumerOption {
	return func(m *Consumer) { m.cache = c }
}

// NewConsumer creates a consumer for the metadata service at baseURL,
// authenticating every request with the given bearer token (see Login).
func NewConsumer(baseURL, token string, opts ...ConsumerOption) (*Consumer, error) {
	if baseURL == "" {
		return nil, errors.New("metadata: base URL is required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	m := &Consumer{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: DefaultTimeout},
		cache:   NewMemoryCache(0),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = nopCache{}
	}
	return m, nil
}

// get fetches an endpoint and decodes the JSON response into out.
func (m *Consumer) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("metadata: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("metadata: get %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("metadata: get %s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("metadata: read %s response: %w", endpoint, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("metadata: decode %s response: %w", endpoint, err)
	}
	return nil
}

// datasets returns the catalog of usable datasets keyed by text id.
func (m *Consumer) datasets(ctx context.Context) (map[string]datasetEntry, error) {
	if v, ok := m.cache.Get(datasetsEndpoint); ok {
		return v.(map[string]datasetEntry), nil
	}

	var entries []datasetEntry
	if err := m.get(ctx, datasetsEndpoint, &entries); err != nil {
		return nil, err
	}
	byID := make(map[string]datasetEntry, len(entries))
	for _, e := range entries {
		if e.valid() {
			byID[e.TextID] = e
		}
	}
	m.cache.Set(datasetsEndpoint, byID)
	return byID, nil
}

// bucketGroups returns all bucket groups keyed by numeric id.
func (m *Consumer) bucketGroups(ctx context.Context) (map[int]bucketGroupEntry, error) {
	if v, ok := m.cache.Get(bucketGroupsEndpoint); ok {
		return v.(map[int]bucketGroupEntry), nil
	}

	var entries []bucketGroupEntry
	if err := m.get(ctx, bucketGroupsEndpoint, &entries); err != nil {
		return nil, err
	}
	byID := make(map[int]bucketGroupEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	m.cache.Set(bucketGroupsEndpoint, byID)
	return byID, nil
}

// ListDatasets returns the text ids of every usable dataset.
func (m *Consumer) ListDatasets(ctx context.Context) ([]string, error) {
	byID, err := m.datasets(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(byID))
	for name := range byID {
		names = append(names, name)
	}
	return names, nil
}

// DatasetMetadata resolves a dataset's storage layout from its primary
// bucket group. Returns ticklake.ErrUnknownDataset for names absent from
// the catalog.
func (m *Consumer) DatasetMetadata(ctx context.Context, id string) (ticklake.DatasetMetadata, error) {
	byID, err := m.datasets(ctx)
	if err != nil {
		return ticklake.DatasetMetadata{}, err
	}
	entry, ok := byID[id]
	if !ok {
		return ticklake.DatasetMetadata{}, fmt.Errorf("dataset %q: %w", id, ticklake.ErrUnknownDataset)
	}

	groups, err := m.bucketGroups(ctx)
	if err != nil {
		return ticklake.DatasetMetadata{}, err
	}
	var primary *bucketGroupEntry
	for _, gid := range entry.BucketGroups {
		g, ok := groups[gid]
		if ok && g.IsPrimary {
			primary = &g
		}
	}
	if primary == nil {
		return ticklake.DatasetMetadata{}, fmt.Errorf("metadata: no primary bucket group for dataset %q", id)
	}

	columns := make([]string, len(entry.CSVColumns))
	for i, c := range entry.CSVColumns {
		columns[i] = c.Name
	}
	return ticklake.DatasetMetadata{
		ID:           id,
		BucketFormat: primary.BucketName,
		PathFormat:   primary.PathFormat,
		CSVColumns:   columns,
	}, nil
}

var _ ticklake.MetadataProvider = (*Consumer)(nil)

// -----------------------------------------------------------------------------
// Login
// -----------------------------------------------------------------------------

type loginRequest struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

type loginResponse struct {
	Token      string `json:"token"`
	ExpiryDate string `json:"expiry_date"`
}

// Login exchanges credentials for a bearer token at the service's
// login/access_token/ endpoint.
func Login(ctx context.Context, baseURL, user, password string) (string, error) {
	if user == "" || password == "" {
		return "", errors.New("metadata: user and password are required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	payload, err := json.Marshal(loginRequest{Name: user, Secret: password})
	if err != nil {
		return "", fmt.Errorf("metadata: encode login request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+loginEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("metadata: build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: DefaultTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("metadata: login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata: login failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("metadata: read login response: %w", err)
	}
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return "", fmt.Errorf("metadata: decode login response: %w", err)
	}
	return lr.Token, nil
}
