package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.WallMode != WallSingle {
		t.Errorf("wall mode: got %q want %q", s.WallMode, WallSingle)
	}
	if s.TransmissionPercent != 70 {
		t.Errorf("transmission: got %d want 70", s.TransmissionPercent)
	}
	if s.ExecutionMode != ModeWebServer {
		t.Errorf("execution mode: got %q want %q", s.ExecutionMode, ModeWebServer)
	}
	if !s.WriteResults {
		t.Error("write_results should default to true")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	want := Settings{
		WallMode:            WallMultiple,
		TransmissionPercent: 55,
		GroundLevelID:       "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		ExecutionMode:       ModeLocalServer,
		WriteResults:        false,
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Errorf("round trip mismatch: got %+v want %+v", got, want)
	}
}

func TestSaveRejectsOutOfRangeTransmission(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	s := Defaults()
	s.TransmissionPercent = 150
	if err := Save(path, s); err != ErrTransmissionRange {
		t.Fatalf("expected ErrTransmissionRange, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("invalid settings must not be persisted")
	}

	s.TransmissionPercent = -1
	if err := Save(path, s); err != ErrTransmissionRange {
		t.Fatalf("expected ErrTransmissionRange for negative value, got %v", err)
	}
}

func TestResaveOverwritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	first := Defaults()
	first.GroundLevelID = "level-a"
	if err := Save(path, first); err != nil {
		t.Fatalf("first save: %v", err)
	}
	second := Settings{
		WallMode:            WallMultiple,
		TransmissionPercent: 40,
		GroundLevelID:       "level-b",
		ExecutionMode:       ModeLocalServer,
		WriteResults:        false,
	}
	if err := Save(path, second); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != second {
		t.Errorf("stale fields survived overwrite: got %+v", got)
	}
}

func TestLoadLegacyMultilayerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), Filename)
	legacy := `{
    "level_elevation": 3200,
    "multilayer_wall": true,
    "transmission_value": 70,
    "transmission_percent": 62,
    "execution_mode": "web"
}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.WallMode != WallMultiple {
		t.Errorf("legacy multilayer_wall not mapped: got %q", got.WallMode)
	}
	if got.TransmissionPercent != 62 {
		t.Errorf("current key must win over legacy: got %d want 62", got.TransmissionPercent)
	}
	if got.ExecutionMode != ModeWebServer {
		t.Errorf("legacy mode name not mapped: got %q", got.ExecutionMode)
	}

	onlyLegacy := `{"multilayer_wall": false, "transmission_value": 45, "level_elevation": 0, "execution_mode": "local"}`
	if err := os.WriteFile(path, []byte(onlyLegacy), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = Load(path)
	if err != nil {
		t.Fatalf("load legacy-only: %v", err)
	}
	if got.WallMode != WallSingle || got.TransmissionPercent != 45 || got.ExecutionMode != ModeLocalServer {
		t.Errorf("legacy-only mapping: got %+v", got)
	}
}

func TestValidateEnums(t *testing.T) {
	s := Defaults()
	s.WallMode = "triple"
	if err := s.Validate(); err != ErrWallMode {
		t.Errorf("expected ErrWallMode, got %v", err)
	}
	s = Defaults()
	s.ExecutionMode = "cloud"
	if err := s.Validate(); err != ErrExecutionMode {
		t.Errorf("expected ErrExecutionMode, got %v", err)
	}
}
