// Package store persists fetched pitch data and resolved identities:
// a file cache of CSV blobs with JSON sidecar metadata keyed by
// (pitcher, date), and an embedded sqlite database for pitcher and game
// rows. Single-writer, last-write-wins.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

var (
	// ErrCacheMiss reports an absent or expired pitch-data cache entry.
	ErrCacheMiss = errors.New("store: cache miss")

	// ErrNotFound reports a missing identity row.
	ErrNotFound = errors.New("store: not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS pitchers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	team       TEXT,
	throws     TEXT,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	pitcher_id TEXT NOT NULL,
	opponent   TEXT,
	stadium    TEXT,
	home_away  TEXT,
	FOREIGN KEY (pitcher_id) REFERENCES pitchers (id)
);
`

// meta is the sidecar written next to each cached blob. CachedAt is
// RFC 3339 and drives expiry.
type meta struct {
	PitcherID string    `json:"pitcher_id"`
	GameDate  string    `json:"game_date"`
	CachedAt  time.Time `json:"cached_at"`
	Rows      int       `json:"rows"`
	Columns   []string  `json:"columns"`
}

// Store is the durable layer. The zero value is not usable; call Open.
type Store struct {
	cacheDir string
	db       *sqlx.DB
	logger   *slog.Logger

	now func() time.Time // injectable for expiry tests
}

// Open creates the cache directory if needed, opens (or creates) the sqlite
// database, and ensures the schema exists.
func Open(cacheDir, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info("store opened", "cache_dir", cacheDir, "db_path", dbPath)
	return &Store{cacheDir: cacheDir, db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// ---- pitch-data file cache ----

// SavePitchData writes the table blob and its metadata sidecar. Saving an
// empty table is a logged no-op: an empty blob would later read back as a
// cache hit with nothing in it.
func (s *Store) SavePitchData(pitcherID, gameDate string, t *table.Table) error {
	if t.Empty() {
		s.logger.Warn("refusing to cache empty pitch data", "pitcher_id", pitcherID, "game_date", gameDate)
		return nil
	}

	blobPath := s.blobPath(pitcherID, gameDate)
	f, err := os.Create(blobPath)
	if err != nil {
		return fmt.Errorf("create cache blob: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write cache blob: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close cache blob: %w", err)
	}

	m := meta{
		PitcherID: pitcherID,
		GameDate:  gameDate,
		CachedAt:  s.now(),
		Rows:      t.Len(),
		Columns:   t.Columns(),
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath(pitcherID, gameDate), raw, 0o644); err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}

	s.logger.Info("pitch data cached", "pitcher_id", pitcherID, "game_date", gameDate, "rows", t.Len())
	return nil
}

// PitchData loads a cached table. ErrCacheMiss covers every miss: no blob,
// no sidecar, or an entry older than maxAgeDays (strictly older; an entry
// exactly maxAgeDays old is still served).
func (s *Store) PitchData(pitcherID, gameDate string, maxAgeDays int) (*table.Table, error) {
	raw, err := os.ReadFile(s.metaPath(pitcherID, gameDate))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache metadata: %w", err)
	}
	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode cache metadata: %w", err)
	}

	age := s.now().Sub(m.CachedAt)
	if age > time.Duration(maxAgeDays)*24*time.Hour {
		s.logger.Info("cache entry expired",
			"pitcher_id", pitcherID, "game_date", gameDate, "age_hours", int(age.Hours()), "max_age_days", maxAgeDays)
		return nil, ErrCacheMiss
	}

	f, err := os.Open(s.blobPath(pitcherID, gameDate))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("open cache blob: %w", err)
	}
	defer f.Close()

	t, err := table.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("decode cache blob: %w", err)
	}
	s.logger.Info("pitch data cache hit", "pitcher_id", pitcherID, "game_date", gameDate, "rows", t.Len())
	return t, nil
}

func (s *Store) blobPath(pitcherID, gameDate string) string {
	return filepath.Join(s.cacheDir, fmt.Sprintf("pitch_data_%s_%s.csv", sanitizeKey(pitcherID), sanitizeKey(gameDate)))
}

func (s *Store) metaPath(pitcherID, gameDate string) string {
	return filepath.Join(s.cacheDir, fmt.Sprintf("pitch_data_%s_%s.meta.json", sanitizeKey(pitcherID), sanitizeKey(gameDate)))
}

// sanitizeKey keeps cache keys inside the cache directory: anything that
// is not alphanumeric, dash, or underscore becomes an underscore.
func sanitizeKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, k)
}

// ---- identity store ----

// SavePitcher upserts a pitcher row, stamping updated_at.
func (s *Store) SavePitcher(p mlb.Pitcher) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO pitchers (id, name, team, throws, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Team, p.Throws, s.now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save pitcher %s: %w", p.ID, err)
	}
	return nil
}

// Pitcher looks up one pitcher by id.
func (s *Store) Pitcher(id string) (mlb.Pitcher, error) {
	var p mlb.Pitcher
	err := s.db.Get(&p, `SELECT id, name, team, throws FROM pitchers WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return mlb.Pitcher{}, fmt.Errorf("pitcher %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return mlb.Pitcher{}, fmt.Errorf("get pitcher %s: %w", id, err)
	}
	return p, nil
}

// SaveGame upserts a game row. The row id is pitcherID_date, making
// (pitcher, date) the identity: one start per day.
func (s *Store) SaveGame(g mlb.Game) error {
	id := fmt.Sprintf("%s_%s", g.PitcherID, g.Date)
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO games (id, date, pitcher_id, opponent, stadium, home_away) VALUES (?, ?, ?, ?, ?, ?)`,
		id, g.Date, g.PitcherID, g.Opponent, g.Stadium, g.HomeAway,
	)
	if err != nil {
		return fmt.Errorf("save game %s: %w", id, err)
	}
	return nil
}

// GamesByPitcher lists a pitcher's stored games, newest first.
func (s *Store) GamesByPitcher(pitcherID string) ([]mlb.Game, error) {
	var games []mlb.Game
	err := s.db.Select(&games,
		`SELECT date, pitcher_id, opponent, stadium, home_away FROM games WHERE pitcher_id = ? ORDER BY date DESC`,
		pitcherID,
	)
	if err != nil {
		return nil, fmt.Errorf("list games for pitcher %s: %w", pitcherID, err)
	}
	return games, nil
}
