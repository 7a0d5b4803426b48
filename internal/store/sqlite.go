package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/agent-sim/internal/model"
	"github.com/rcliao/agent-sim/internal/sim"
)

// ErrNotFound is returned when a run or snapshot does not exist.
var ErrNotFound = errors.New("not found")

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	entropy  *ulid.MonotonicEntropy
	now      func() time.Time
	gridSize int
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithGridSize sets the grid used to place agents from legacy snapshots that
// carry no coordinates.
func WithGridSize(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.gridSize = n
		}
	}
}

// WithClock sets the clock used for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:      time.Now,
		gridSize: sim.DefaultConfig().GridSize,
	}
	for _, o := range opts {
		o(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String()
}

func (s *SQLiteStore) stamp() (time.Time, string) {
	t := s.now().UTC()
	return t, t.Format(timeFormat)
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL DEFAULT 'sim',
		scenario    TEXT,
		provider    TEXT NOT NULL DEFAULT 'rules',
		seed        INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);

	CREATE TABLE IF NOT EXISTS snapshots (
		run_id      TEXT NOT NULL REFERENCES runs(id),
		tick        INTEGER NOT NULL,
		version     INTEGER NOT NULL,
		data        TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS interactions (
		id           TEXT PRIMARY KEY,
		run_id       TEXT NOT NULL REFERENCES runs(id),
		tick         INTEGER NOT NULL,
		participants TEXT NOT NULL,
		summary      TEXT NOT NULL,
		degraded     INTEGER NOT NULL DEFAULT 0,
		data         TEXT NOT NULL,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interactions_run ON interactions(run_id, tick);

	CREATE TABLE IF NOT EXISTS turns (
		id          TEXT PRIMARY KEY,
		run_id      TEXT NOT NULL REFERENCES runs(id),
		turn_index  INTEGER NOT NULL,
		speaker     TEXT NOT NULL,
		degraded    INTEGER NOT NULL DEFAULT 0,
		data        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_run ON turns(run_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Databases created before snapshot versioning lack the column; their
	// payloads are legacy and MigrateSnapshot upgrades them on read.
	s.db.Exec(`ALTER TABLE snapshots ADD COLUMN version INTEGER NOT NULL DEFAULT 0`)
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, p RunParams) (*Run, error) {
	now, ts := s.stamp()
	kind := p.Kind
	if kind == "" {
		kind = KindSim
	}
	provider := p.Provider
	if provider == "" {
		provider = "rules"
	}
	r := &Run{
		ID:        s.newID(now),
		Kind:      kind,
		Scenario:  p.Scenario,
		Provider:  provider,
		Seed:      p.Seed,
		CreatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, kind, scenario, provider, seed, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, nullable(r.Scenario), r.Provider, r.Seed, ts)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, w *sim.WorldState) error {
	data, err := EncodeSnapshot(w)
	if err != nil {
		return err
	}
	_, ts := s.stamp()
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (run_id, tick, version, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, w.Tick, SnapshotVersion, string(data), ts)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveInteraction(ctx context.Context, runID string, rec model.InteractionRecord) error {
	now, ts := s.stamp()
	if rec.ID == "" {
		rec.ID = s.newID(now)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode interaction: %w", err)
	}
	participants, _ := json.Marshal(rec.Participants)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interactions (id, run_id, tick, participants, summary, degraded, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, runID, rec.Tick, string(participants), rec.Summary, rec.Degraded, string(data), ts)
	if err != nil {
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveTurn(ctx context.Context, runID string, rec model.TurnRecord) error {
	now, ts := s.stamp()
	if rec.ID == "" {
		rec.ID = s.newID(now)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (id, run_id, turn_index, speaker, degraded, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, runID, rec.TurnIndex, rec.Speaker, rec.Degraded, string(data), ts)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, p ListParams) ([]Run, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	where := []string{"1 = 1"}
	var args []interface{}
	if p.Kind != "" {
		where = append(where, "r.kind = ?")
		args = append(args, p.Kind)
	}

	query := fmt.Sprintf(`
		SELECT r.id, r.kind, r.scenario, r.provider, r.seed, r.created_at,
		       COALESCE(MAX(sn.tick), 0), COUNT(sn.tick)
		FROM runs r
		LEFT JOIN snapshots sn ON sn.run_id = r.id
		WHERE %s
		GROUP BY r.id
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ?`, strings.Join(where, " AND "))
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a single run.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.kind, r.scenario, r.provider, r.seed, r.created_at,
		       COALESCE(MAX(sn.tick), 0), COUNT(sn.tick)
		FROM runs r
		LEFT JOIN snapshots sn ON sn.run_id = r.id
		WHERE r.id = ?
		GROUP BY r.id`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context, runID string, tick int) (*sim.WorldState, error) {
	var data string
	var err error
	if tick < 0 {
		err = s.db.QueryRowContext(ctx,
			`SELECT data FROM snapshots WHERE run_id = ? ORDER BY tick DESC LIMIT 1`, runID).Scan(&data)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT data FROM snapshots WHERE run_id = ? AND tick = ?`, runID, tick).Scan(&data)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %s@%d: %w", runID, tick, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return DecodeSnapshot([]byte(data), s.gridSize)
}

func (s *SQLiteStore) ListInteractions(ctx context.Context, runID string) ([]model.InteractionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM interactions WHERE run_id = ? ORDER BY tick, rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InteractionRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec model.InteractionRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode interaction: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListTurns(ctx context.Context, runID string) ([]model.TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM turns WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TurnRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec model.TurnRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var scenario sql.NullString
	var createdAt string
	err := row.Scan(&r.ID, &r.Kind, &scenario, &r.Provider, &r.Seed, &createdAt, &r.LastTick, &r.Snapshots)
	if err != nil {
		return r, err
	}
	r.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	if scenario.Valid {
		r.Scenario = scenario.String
	}
	return r, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
