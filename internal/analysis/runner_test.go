package analysis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/upskiller-xyz/daylight-tui/internal/geometry"
	"github.com/upskiller-xyz/daylight-tui/internal/inference"
	"github.com/upskiller-xyz/daylight-tui/internal/settings"
	"github.com/upskiller-xyz/daylight-tui/internal/store"
)

type fakeModel struct {
	rooms   map[uuid.UUID]store.Room
	levels  map[uuid.UUID]store.Level
	written []uuid.UUID
}

func (f *fakeModel) Room(_ context.Context, id uuid.UUID) (store.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return store.Room{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeModel) Level(_ context.Context, id uuid.UUID) (store.Level, error) {
	l, ok := f.levels[id]
	if !ok {
		return store.Level{}, store.ErrNotFound
	}
	return l, nil
}

func (f *fakeModel) WriteResult(_ context.Context, roomID uuid.UUID, _ inference.Metrics, _ string, _ settings.Settings) error {
	f.written = append(f.written, roomID)
	return nil
}

type fakePredictor struct {
	got  inference.PredictRequest
	resp *inference.PredictResponse
}

func (f *fakePredictor) Predict(_ context.Context, req inference.PredictRequest) (*inference.PredictResponse, error) {
	f.got = req
	return f.resp, nil
}

func fixture() (*fakeModel, *fakePredictor, uuid.UUID, uuid.UUID) {
	groundID := uuid.New()
	roomLevelID := uuid.New()
	roomID := uuid.New()
	model := &fakeModel{
		rooms: map[uuid.UUID]store.Room{
			roomID: {
				ID:           roomID,
				LevelID:      roomLevelID,
				Name:         "Office",
				Boundary:     geometry.Polygon{{X: 0, Y: 0}, {X: 4000, Y: 0}, {X: 4000, Y: 3000}, {X: 0, Y: 3000}},
				WindowAreaM2: 3.2,
			},
		},
		levels: map[uuid.UUID]store.Level{
			groundID:    {ID: groundID, Name: "Ground", ElevationMM: 0},
			roomLevelID: {ID: roomLevelID, Name: "Level 2", ElevationMM: 3200},
		},
	}
	predictor := &fakePredictor{
		resp: &inference.PredictResponse{
			Cols: 2, Rows: 2, CellSizeMM: 500,
			Values:  []float64{1, 2, 3, 4},
			Metrics: inference.Metrics{MedianDF: 2.5, MeanDF: 2.5, MinDF: 1, Compliant: true, Threshold: 2.1},
		},
	}
	return model, predictor, roomID, groundID
}

func TestAnalyzeFullRun(t *testing.T) {
	model, predictor, roomID, groundID := fixture()
	s := settings.Defaults()
	s.GroundLevelID = groundID.String()
	s.TransmissionPercent = 55

	r := &Runner{Model: model, Predictor: predictor, Settings: s, OutDir: t.TempDir()}
	out, err := r.Analyze(context.Background(), roomID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if predictor.got.TransmissionPct != 55 {
		t.Errorf("transmission not forwarded: %d", predictor.got.TransmissionPct)
	}
	if predictor.got.GridSpacingMM != 500 {
		t.Errorf("default spacing: got %.0f", predictor.got.GridSpacingMM)
	}
	if out.Level.Name != "Level 2" {
		t.Errorf("outcome should carry the room's level, got %q", out.Level.Name)
	}
	if out.HeatmapPath == "" {
		t.Fatal("heatmap path missing")
	}
	if _, err := os.Stat(out.HeatmapPath); err != nil {
		t.Errorf("heatmap not written: %v", err)
	}
	if len(model.written) != 1 || model.written[0] != roomID {
		t.Errorf("results not written back: %v", model.written)
	}
	if out.Markdown == "" {
		t.Error("markdown report missing")
	}
}

func TestAnalyzeSkipsWriteBackWhenDisabled(t *testing.T) {
	model, predictor, roomID, groundID := fixture()
	s := settings.Defaults()
	s.GroundLevelID = groundID.String()
	s.WriteResults = false

	r := &Runner{Model: model, Predictor: predictor, Settings: s}
	if _, err := r.Analyze(context.Background(), roomID); err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(model.written) != 0 {
		t.Error("write_results=false must not touch the model")
	}
}

func TestAnalyzeRequiresGroundLevel(t *testing.T) {
	model, predictor, roomID, _ := fixture()
	r := &Runner{Model: model, Predictor: predictor, Settings: settings.Defaults()}
	if _, err := r.Analyze(context.Background(), roomID); err != ErrNoGroundLevel {
		t.Fatalf("expected ErrNoGroundLevel, got %v", err)
	}
}

func TestAnalyzeRejectsRoomWithoutSensorCells(t *testing.T) {
	model, predictor, roomID, groundID := fixture()
	tinyID := uuid.New()
	tiny := model.rooms[roomID]
	tiny.ID = tinyID
	// Smaller than one grid cell; the only cell centre lands outside.
	tiny.Boundary = geometry.Polygon{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}}
	model.rooms[tinyID] = tiny

	s := settings.Defaults()
	s.GroundLevelID = groundID.String()
	r := &Runner{Model: model, Predictor: predictor, Settings: s}
	if _, err := r.Analyze(context.Background(), tinyID); err == nil {
		t.Fatal("expected error for a room with no sensor cells")
	}
	if predictor.got.GridSpacingMM != 0 {
		t.Error("inference must not run for an empty grid")
	}
}

func TestAnalyzeRejectsInvalidSettings(t *testing.T) {
	model, predictor, roomID, groundID := fixture()
	s := settings.Defaults()
	s.GroundLevelID = groundID.String()
	s.TransmissionPercent = 150
	r := &Runner{Model: model, Predictor: predictor, Settings: s}
	if _, err := r.Analyze(context.Background(), roomID); err != settings.ErrTransmissionRange {
		t.Fatalf("expected ErrTransmissionRange, got %v", err)
	}
}
