// Package analysis orchestrates a room analysis: settings, geometry, the
// inference call, heatmap export, and the optional write-back of metrics.
package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/upskiller-xyz/daylight-tui/internal/geometry"
	"github.com/upskiller-xyz/daylight-tui/internal/heatmap"
	"github.com/upskiller-xyz/daylight-tui/internal/inference"
	"github.com/upskiller-xyz/daylight-tui/internal/report"
	"github.com/upskiller-xyz/daylight-tui/internal/settings"
	"github.com/upskiller-xyz/daylight-tui/internal/store"
)

// Model is the slice of the store the runner needs.
type Model interface {
	Room(ctx context.Context, id uuid.UUID) (store.Room, error)
	Level(ctx context.Context, id uuid.UUID) (store.Level, error)
	WriteResult(ctx context.Context, roomID uuid.UUID, m inference.Metrics, heatmapPath string, s settings.Settings) error
}

// Predictor is the inference server surface used by the runner.
type Predictor interface {
	Predict(ctx context.Context, req inference.PredictRequest) (*inference.PredictResponse, error)
}

var ErrNoGroundLevel = errors.New("no ground level selected; open settings first")

// Runner executes room analyses with a fixed settings record.
type Runner struct {
	Model     Model
	Predictor Predictor
	Settings  settings.Settings
	// GridSpacingMM is the sensor grid spacing; 0 falls back to 500 mm.
	GridSpacingMM float64
	// OutDir receives exported heatmaps; empty disables the PNG export.
	OutDir string
}

// Outcome bundles everything a caller needs to present a finished run.
type Outcome struct {
	Room        store.Room
	Level       store.Level
	Response    *inference.PredictResponse
	HeatmapPath string
	Markdown    string
}

// Analyze runs the full workflow for one room.
func (r *Runner) Analyze(ctx context.Context, roomID uuid.UUID) (*Outcome, error) {
	if err := r.Settings.Validate(); err != nil {
		return nil, err
	}
	groundID, err := uuid.Parse(r.Settings.GroundLevelID)
	if err != nil || groundID == uuid.Nil {
		return nil, ErrNoGroundLevel
	}
	ground, err := r.Model.Level(ctx, groundID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve ground level")
	}
	room, err := r.Model.Room(ctx, roomID)
	if err != nil {
		return nil, errors.Wrap(err, "load room")
	}
	roomLevel, err := r.Model.Level(ctx, room.LevelID)
	if err != nil {
		return nil, errors.Wrap(err, "resolve room level")
	}

	spacing := r.GridSpacingMM
	if spacing <= 0 {
		spacing = 500
	}
	grid, err := geometry.SensorGrid(room.Boundary, spacing)
	if err != nil {
		return nil, errors.Wrapf(err, "room %s", roomID)
	}
	if grid.InsideCount() == 0 {
		return nil, errors.Errorf("room %s: no grid cell inside the boundary at %.0f mm spacing", roomID, spacing)
	}

	resp, err := r.Predictor.Predict(ctx, inference.PredictRequest{
		Boundary:          room.Boundary,
		WindowAreaM2:      room.WindowAreaM2,
		TransmissionPct:   r.Settings.TransmissionPercent,
		WallMode:          string(r.Settings.WallMode),
		GroundElevationMM: ground.ElevationMM,
		GridSpacingMM:     spacing,
	})
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}

	heatmapPath := ""
	if r.OutDir != "" {
		if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create output directory")
		}
		heatmapPath = filepath.Join(r.OutDir, fmt.Sprintf("df_%s.png", roomID))
		if err := heatmap.WritePNG(heatmapPath, resp, heatmap.Options{Smooth: true}); err != nil {
			return nil, errors.Wrap(err, "export heatmap")
		}
	}

	if r.Settings.WriteResults {
		if err := r.Model.WriteResult(ctx, roomID, resp.Metrics, heatmapPath, r.Settings); err != nil {
			return nil, errors.Wrap(err, "write results")
		}
	}

	return &Outcome{
		Room:        room,
		Level:       roomLevel,
		Response:    resp,
		HeatmapPath: heatmapPath,
		Markdown:    report.Analysis(room, roomLevel, r.Settings, resp, heatmapPath),
	}, nil
}

// StoreModel adapts the gorm repositories to the Model interface.
type StoreModel struct {
	Rooms   *store.RoomRepo
	Levels  *store.LevelRepo
	Results *store.ResultRepo
}

func NewStoreModel(db *store.DB) *StoreModel {
	return &StoreModel{
		Rooms:   store.NewRoomRepo(db),
		Levels:  store.NewLevelRepo(db),
		Results: store.NewResultRepo(db),
	}
}

func (m *StoreModel) Room(ctx context.Context, id uuid.UUID) (store.Room, error) {
	return m.Rooms.Get(ctx, id)
}

func (m *StoreModel) Level(ctx context.Context, id uuid.UUID) (store.Level, error) {
	return m.Levels.Get(ctx, id)
}

func (m *StoreModel) WriteResult(ctx context.Context, roomID uuid.UUID, met inference.Metrics, heatmapPath string, s settings.Settings) error {
	return m.Results.Upsert(ctx, nil, roomID, met, heatmapPath, s)
}
