package store

import (
	"context"
	"database/sql"
	"encoding/json"
	errs "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/upskiller-xyz/daylight-tui/internal/geometry"
	"github.com/upskiller-xyz/daylight-tui/internal/inference"
	"github.com/upskiller-xyz/daylight-tui/internal/settings"
	"github.com/upskiller-xyz/daylight-tui/internal/util"
)

var (
	ErrNoChange = errs.New("no change")
	ErrNotFound = errs.New("not found")
)

// DB wraps gorm.DB for repositories and exposes Close.
type DB struct {
	gorm *gorm.DB
	sql  *sql.DB
}

func (d *DB) Close() error   { return d.sql.Close() }
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Open connects to the model database per config.
func Open(ctx context.Context, cfg util.Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("missing DSN")
	}
	// Postgres-only
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sdb, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sdb.SetConnMaxLifetime(30 * time.Minute)
	sdb.SetMaxOpenConns(10)
	sdb.SetMaxIdleConns(5)
	if err := sdb.PingContext(ctx); err != nil {
		return nil, err
	}
	return &DB{gorm: gdb, sql: sdb}, nil
}

// WithTx executes fn within a database transaction.
func (d *DB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.gorm.WithContext(ctx).Transaction(fn)
}

// Level is a building storey; the settings dialog lists these for the
// ground-level picker.
type Level struct {
	ID          uuid.UUID
	Name        string
	ElevationMM float64
}

// Room carries the plan boundary used to build the sensor grid.
type Room struct {
	ID           uuid.UUID
	LevelID      uuid.UUID
	Name         string
	Number       string
	Boundary     geometry.Polygon
	WindowAreaM2 float64
}

// RoomResult is the wholesale record written back after a run.
type RoomResult struct {
	RoomID      uuid.UUID
	MedianDF    float64
	MeanDF      float64
	MinDF       float64
	Compliant   bool
	HeatmapPath string
	Settings    settings.Settings
	ComputedAt  time.Time
}

// AnalysisParam is a shared result parameter the prepare action guarantees.
type AnalysisParam struct {
	Key         string
	DisplayName string
	Unit        string
}

// DefaultAnalysisParams are the parameters `prepare` creates when missing.
var DefaultAnalysisParams = []AnalysisParam{
	{Key: "df_median", DisplayName: "Daylight Factor (median)", Unit: "%"},
	{Key: "df_mean", DisplayName: "Daylight Factor (mean)", Unit: "%"},
	{Key: "df_min", DisplayName: "Daylight Factor (min)", Unit: "%"},
	{Key: "df_compliant", DisplayName: "Daylight Compliant (EN 17037)", Unit: ""},
}

// LevelRepo lists and resolves building levels.
type LevelRepo struct{ db *DB }

func NewLevelRepo(db *DB) *LevelRepo { return &LevelRepo{db: db} }

func (r *LevelRepo) List(ctx context.Context) ([]Level, error) {
	rows, err := r.db.gorm.WithContext(ctx).Raw(`SELECT id, name, elevation_mm FROM levels ORDER BY elevation_mm`).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "list levels")
	}
	defer rows.Close()
	var out []Level
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.ID, &l.Name, &l.ElevationMM); err != nil {
			return nil, errors.Wrap(err, "scan level")
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *LevelRepo) Get(ctx context.Context, id uuid.UUID) (Level, error) {
	row := r.db.gorm.WithContext(ctx).Raw(`SELECT id, name, elevation_mm FROM levels WHERE id = ?`, id).Row()
	var l Level
	if err := row.Scan(&l.ID, &l.Name, &l.ElevationMM); err != nil {
		if err == sql.ErrNoRows {
			return Level{}, ErrNotFound
		}
		return Level{}, errors.Wrap(err, "get level")
	}
	return l, nil
}

// RoomRepo reads rooms and their boundaries.
type RoomRepo struct{ db *DB }

func NewRoomRepo(db *DB) *RoomRepo { return &RoomRepo{db: db} }

func (r *RoomRepo) List(ctx context.Context, levelID uuid.UUID) ([]Room, error) {
	q := `SELECT id, level_id, name, number, boundary, window_area_m2 FROM rooms`
	args := []any{}
	if levelID != uuid.Nil {
		q += ` WHERE level_id = ?`
		args = append(args, levelID)
	}
	q += ` ORDER BY number, name`
	rows, err := r.db.gorm.WithContext(ctx).Raw(q, args...).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	defer rows.Close()
	var out []Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *RoomRepo) Get(ctx context.Context, id uuid.UUID) (Room, error) {
	rows, err := r.db.gorm.WithContext(ctx).Raw(`SELECT id, level_id, name, number, boundary, window_area_m2 FROM rooms WHERE id = ?`, id).Rows()
	if err != nil {
		return Room{}, errors.Wrap(err, "get room")
	}
	defer rows.Close()
	if !rows.Next() {
		return Room{}, ErrNotFound
	}
	return scanRoom(rows)
}

func scanRoom(rows *sql.Rows) (Room, error) {
	var rm Room
	var boundaryB []byte
	if err := rows.Scan(&rm.ID, &rm.LevelID, &rm.Name, &rm.Number, &boundaryB, &rm.WindowAreaM2); err != nil {
		return Room{}, errors.Wrap(err, "scan room")
	}
	if err := json.Unmarshal(boundaryB, &rm.Boundary); err != nil {
		return Room{}, errors.Wrap(err, "decode room boundary")
	}
	return rm, nil
}

// ResultRepo writes computed metrics back onto rooms.
type ResultRepo struct{ db *DB }

func NewResultRepo(db *DB) *ResultRepo { return &ResultRepo{db: db} }

// Upsert overwrites the result record for a room wholesale.
func (r *ResultRepo) Upsert(ctx context.Context, tx *gorm.DB, roomID uuid.UUID, m inference.Metrics, heatmapPath string, s settings.Settings) error {
	if tx == nil {
		tx = r.db.gorm.WithContext(ctx)
	}
	settingsB, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode result settings")
	}
	return tx.Exec(`INSERT INTO room_results(room_id, median_df, mean_df, min_df, compliant, heatmap_path, settings, computed_at)
		VALUES (?,?,?,?,?,?,?,now())
		ON CONFLICT (room_id) DO UPDATE SET
			median_df=EXCLUDED.median_df, mean_df=EXCLUDED.mean_df, min_df=EXCLUDED.min_df,
			compliant=EXCLUDED.compliant, heatmap_path=EXCLUDED.heatmap_path,
			settings=EXCLUDED.settings, computed_at=EXCLUDED.computed_at`,
		roomID, m.MedianDF, m.MeanDF, m.MinDF, m.Compliant, heatmapPath, settingsB).Error
}

func (r *ResultRepo) Get(ctx context.Context, roomID uuid.UUID) (RoomResult, error) {
	row := r.db.gorm.WithContext(ctx).Raw(`SELECT room_id, median_df, mean_df, min_df, compliant, heatmap_path, settings, computed_at FROM room_results WHERE room_id = ?`, roomID).Row()
	var res RoomResult
	var settingsB []byte
	if err := row.Scan(&res.RoomID, &res.MedianDF, &res.MeanDF, &res.MinDF, &res.Compliant, &res.HeatmapPath, &settingsB, &res.ComputedAt); err != nil {
		if err == sql.ErrNoRows {
			return RoomResult{}, ErrNotFound
		}
		return RoomResult{}, errors.Wrap(err, "get room result")
	}
	if err := json.Unmarshal(settingsB, &res.Settings); err != nil {
		return RoomResult{}, errors.Wrap(err, "decode result settings")
	}
	return res, nil
}

// ParamRepo manages the shared analysis parameters.
type ParamRepo struct{ db *DB }

func NewParamRepo(db *DB) *ParamRepo { return &ParamRepo{db: db} }

// EnsureDefaults inserts any missing default parameters and returns the
// keys it created. Re-running is a no-op.
func (r *ParamRepo) EnsureDefaults(ctx context.Context) ([]string, error) {
	var created []string
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, p := range DefaultAnalysisParams {
			res := tx.Exec(`INSERT INTO analysis_params(key, display_name, unit) VALUES (?,?,?) ON CONFLICT (key) DO NOTHING`,
				p.Key, p.DisplayName, p.Unit)
			if res.Error != nil {
				return errors.Wrapf(res.Error, "ensure param %s", p.Key)
			}
			if res.RowsAffected > 0 {
				created = append(created, p.Key)
			}
		}
		return nil
	})
	return created, err
}

func (r *ParamRepo) List(ctx context.Context) ([]AnalysisParam, error) {
	rows, err := r.db.gorm.WithContext(ctx).Raw(`SELECT key, display_name, unit FROM analysis_params ORDER BY key`).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "list params")
	}
	defer rows.Close()
	var out []AnalysisParam
	for rows.Next() {
		var p AnalysisParam
		if err := rows.Scan(&p.Key, &p.DisplayName, &p.Unit); err != nil {
			return nil, errors.Wrap(err, "scan param")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
