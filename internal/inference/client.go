// Package inference provides a typed HTTP client for the daylight
// prediction API. The trained model runs out of process; this client only
// ships room geometry over and decodes the returned heatmap.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/upskiller-xyz/daylight-tui/internal/geometry"
	"github.com/upskiller-xyz/daylight-tui/internal/settings"
)

// DefaultLocalURL is where a locally started inference server listens.
const DefaultLocalURL = "http://localhost:8228"

// Client wraps the daylight prediction HTTP API.
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a client pointing at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // model inference on large rooms is slow
		},
	}
}

// BaseURLFor resolves the server address for an execution mode.
func BaseURLFor(mode settings.ExecutionMode, webURL, localURL string) string {
	if mode == settings.ModeLocalServer {
		if localURL != "" {
			return localURL
		}
		return DefaultLocalURL
	}
	return webURL
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// PredictRequest maps to POST /api/predict.
type PredictRequest struct {
	Boundary          geometry.Polygon `json:"boundary_mm"`
	WindowAreaM2      float64          `json:"window_area_m2"`
	TransmissionPct   int              `json:"transmission_percent"`
	WallMode          string           `json:"facade_wall_mode"`
	GroundElevationMM float64          `json:"ground_elevation_mm"`
	GridSpacingMM     float64          `json:"grid_spacing_mm"`
}

// Metrics are the room-level scalars derived from the heatmap.
type Metrics struct {
	MedianDF  float64 `json:"median_df"`
	MeanDF    float64 `json:"mean_df"`
	MinDF     float64 `json:"min_df"`
	Compliant bool    `json:"compliant"`
	Threshold float64 `json:"threshold"`
}

// PredictResponse is the decoded heatmap plus metrics. Values are daylight
// factors in percent, row-major, one per grid cell; cells outside the room
// carry a negative sentinel.
type PredictResponse struct {
	Cols       int       `json:"cols"`
	Rows       int       `json:"rows"`
	CellSizeMM float64   `json:"cell_size_mm"`
	Values     []float64 `json:"values"`
	Metrics    Metrics   `json:"metrics"`
}

// HealthResponse maps to GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

// Health checks server reachability and returns its version.
func (c *Client) Health(ctx context.Context) (string, error) {
	var h HealthResponse
	if err := c.getJSON(ctx, "/api/health", &h); err != nil {
		return "", err
	}
	return h.Version, nil
}

// Predict sends room geometry and returns the daylight-factor heatmap.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("inference %d: %s", resp.StatusCode, string(b))
	}
	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(out.Values) != out.Cols*out.Rows {
		return nil, fmt.Errorf("inference returned %d values for %dx%d grid", len(out.Values), out.Cols, out.Rows)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("inference %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
