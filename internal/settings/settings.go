// Package settings persists the daylight analysis configuration record.
// The record is a single flat JSON document, overwritten wholesale on save.
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const Filename = "settings_daylight.json"

// String backed enums for JSON interoperability.
type WallMode string
type ExecutionMode string

const (
	WallSingle   WallMode = "single"
	WallMultiple WallMode = "multiple"
)

var AllWallModes = []WallMode{WallSingle, WallMultiple}

const (
	ModeWebServer   ExecutionMode = "web_server"
	ModeLocalServer ExecutionMode = "local_server"
)

var AllExecutionModes = []ExecutionMode{ModeWebServer, ModeLocalServer}

func contains[T ~string](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (w WallMode) Validate() bool      { return contains(AllWallModes, w) }
func (m ExecutionMode) Validate() bool { return contains(AllExecutionModes, m) }

// Settings is the persisted configuration record.
type Settings struct {
	WallMode            WallMode      `json:"facade_wall_mode"`
	TransmissionPercent int           `json:"transmission_percent"`
	GroundLevelID       string        `json:"ground_level_id"`
	ExecutionMode       ExecutionMode `json:"execution_mode"`
	WriteResults        bool          `json:"write_results"`
}

// legacyRecord covers files written by the old Revit plugin, which stored a
// multilayer bool and a raw elevation instead of a wall mode and level ref.
type legacyRecord struct {
	MultilayerWall    *bool `json:"multilayer_wall"`
	TransmissionValue *int  `json:"transmission_value"`
}

var (
	ErrTransmissionRange = errors.New("transmission_percent must be between 0 and 100")
	ErrWallMode          = errors.New("unknown facade_wall_mode")
	ErrExecutionMode     = errors.New("unknown execution_mode")
)

// Defaults returns the record used when no settings file exists yet.
func Defaults() Settings {
	return Settings{
		WallMode:            WallSingle,
		TransmissionPercent: 70,
		GroundLevelID:       "",
		ExecutionMode:       ModeWebServer,
		WriteResults:        true,
	}
}

// Validate checks the record invariants. Invalid records are never persisted.
func (s Settings) Validate() error {
	if s.TransmissionPercent < 0 || s.TransmissionPercent > 100 {
		return ErrTransmissionRange
	}
	if !s.WallMode.Validate() {
		return ErrWallMode
	}
	if !s.ExecutionMode.Validate() {
		return ErrExecutionMode
	}
	return nil
}

// DefaultPath resolves the settings file location: $DAYLIGHT_HOME when set,
// otherwise ~/.daylight-tui.
func DefaultPath() string {
	if dir := os.Getenv("DAYLIGHT_HOME"); dir != "" {
		return filepath.Join(dir, Filename)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Filename
	}
	return filepath.Join(home, ".daylight-tui", Filename)
}

// Load reads the record from path. A missing file yields Defaults and no
// error; any other failure is returned wrapped.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	if err != nil {
		return Defaults(), errors.Wrap(err, "read settings")
	}
	s := Defaults()
	if err := json.Unmarshal(raw, &s); err != nil {
		return Defaults(), errors.Wrap(err, "parse settings")
	}
	// Old plugin files carry multilayer_wall / transmission_value instead
	// of the current keys.
	var legacy legacyRecord
	if err := json.Unmarshal(raw, &legacy); err == nil {
		if legacy.MultilayerWall != nil && !hasKey(raw, "facade_wall_mode") {
			if *legacy.MultilayerWall {
				s.WallMode = WallMultiple
			} else {
				s.WallMode = WallSingle
			}
		}
		if legacy.TransmissionValue != nil && !hasKey(raw, "transmission_percent") {
			s.TransmissionPercent = *legacy.TransmissionValue
		}
	}
	// The plugin wrote the short mode names.
	switch string(s.ExecutionMode) {
	case "web":
		s.ExecutionMode = ModeWebServer
	case "local":
		s.ExecutionMode = ModeLocalServer
	}
	if err := s.Validate(); err != nil {
		return Defaults(), errors.Wrap(err, "stored settings invalid")
	}
	return s, nil
}

// Save validates and overwrites the whole record at path, creating the
// parent directory when needed.
func Save(path string, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create settings directory")
		}
	}
	raw, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return errors.Wrap(err, "encode settings")
	}
	raw = append(raw, '\n')
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return errors.Wrap(err, "write settings")
	}
	return nil
}

func hasKey(raw []byte, key string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}
