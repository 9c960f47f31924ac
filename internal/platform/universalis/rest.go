package universalis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// RESTClient is the client for the Universalis REST API, used to bootstrap
// reference data: data centers, worlds, and their regions.
type RESTClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRESTClient creates a new REST client.
//
// baseURL is the API root, e.g. "https://universalis.app/api/v2".
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// DataCenters returns all data centers with their member world IDs.
func (r *RESTClient) DataCenters(ctx context.Context) ([]APIDataCenter, error) {
	body, err := r.doGet(ctx, "/data-centers")
	if err != nil {
		return nil, fmt.Errorf("universalis/rest: get data centers: %w", err)
	}

	var dcs []APIDataCenter
	if err := json.Unmarshal(body, &dcs); err != nil {
		return nil, fmt.Errorf("universalis/rest: decode data centers: %w", err)
	}
	return dcs, nil
}

// Worlds returns all worlds.
func (r *RESTClient) Worlds(ctx context.Context) ([]APIWorld, error) {
	body, err := r.doGet(ctx, "/worlds")
	if err != nil {
		return nil, fmt.Errorf("universalis/rest: get worlds: %w", err)
	}

	var worlds []APIWorld
	if err := json.Unmarshal(body, &worlds); err != nil {
		return nil, fmt.Errorf("universalis/rest: decode worlds: %w", err)
	}
	return worlds, nil
}

// WorldsWithDataCenters fetches worlds and data centers and joins them into
// fully resolved domain worlds. Worlds not assigned to any data center are
// returned with a nil DataCenter.
func (r *RESTClient) WorldsWithDataCenters(ctx context.Context) ([]domain.World, error) {
	dcs, err := r.DataCenters(ctx)
	if err != nil {
		return nil, err
	}
	worlds, err := r.Worlds(ctx)
	if err != nil {
		return nil, err
	}

	// Data center IDs are not part of the wire format; assign them by list
	// position so assignments stay stable across refreshes of the same data.
	byWorld := make(map[int32]*domain.DataCenter, len(worlds))
	for i, dc := range dcs {
		resolved := &domain.DataCenter{
			ID:     int32(i + 1),
			Name:   dc.Name,
			Region: domain.Region(dc.Region),
		}
		for _, worldID := range dc.Worlds {
			byWorld[worldID] = resolved
		}
	}

	out := make([]domain.World, 0, len(worlds))
	for _, w := range worlds {
		out = append(out, domain.World{
			ID:         w.ID,
			Name:       w.Name,
			DataCenter: byWorld[w.ID],
		})
	}
	return out, nil
}

// doGet performs a GET request against the API and returns the response body.
func (r *RESTClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
