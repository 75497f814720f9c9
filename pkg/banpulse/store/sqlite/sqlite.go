package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/samroof/banpulse/pkg/banpulse/filter"
	"github.com/samroof/banpulse/pkg/banpulse/internalerr"
	"github.com/samroof/banpulse/pkg/banpulse/record"
	"github.com/samroof/banpulse/pkg/banpulse/store"
)

// checkpoint snapshots live in the records table under a reserved stage name
const checkpointStage = "checkpoint"

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and initializes the
// schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS records (
	stage TEXT NOT NULL,
	position INTEGER NOT NULL,
	id TEXT NOT NULL,
	subreddit TEXT,
	search_term TEXT,
	title TEXT,
	selftext TEXT,
	score INTEGER DEFAULT 0,
	num_comments INTEGER DEFAULT 0,
	author TEXT,
	url TEXT,
	created_utc TEXT,
	top_comments TEXT,
	profanity INTEGER DEFAULT 0,
	PRIMARY KEY(stage, id)
);

CREATE INDEX IF NOT EXISTS idx_records_stage_pos ON records(stage, position);

CREATE TABLE IF NOT EXISTS pair_progress (
	subreddit TEXT NOT NULL,
	search_term TEXT NOT NULL,
	count INTEGER NOT NULL,
	done INTEGER NOT NULL,
	PRIMARY KEY(subreddit, search_term)
);

CREATE TABLE IF NOT EXISTS filter_stats (
	position INTEGER PRIMARY KEY,
	step TEXT UNIQUE NOT NULL,
	removed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveCheckpoint replaces the collector checkpoint with a full snapshot.
func (s *sqliteStore) SaveCheckpoint(ctx context.Context, cp store.Checkpoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceStageRows(ctx, tx, checkpointStage, cp.Records); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM pair_progress"); err != nil {
		return err
	}
	for _, p := range cp.Pairs {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO pair_progress (subreddit, search_term, count, done) VALUES (?, ?, ?, ?)",
			p.Subreddit, p.SearchTerm, p.Count, boolToInt(p.Done))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadCheckpoint returns the last saved snapshot, or ErrNoCheckpoint when no
// collection run has checkpointed yet.
func (s *sqliteStore) LoadCheckpoint(ctx context.Context) (store.Checkpoint, error) {
	recs, err := s.loadStageRows(ctx, checkpointStage)
	if err != nil {
		return store.Checkpoint{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT subreddit, search_term, count, done FROM pair_progress ORDER BY subreddit, search_term")
	if err != nil {
		return store.Checkpoint{}, err
	}
	defer rows.Close()

	var pairs []store.PairProgress
	for rows.Next() {
		var p store.PairProgress
		var done int
		if err := rows.Scan(&p.Subreddit, &p.SearchTerm, &p.Count, &done); err != nil {
			return store.Checkpoint{}, err
		}
		p.Done = done != 0
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return store.Checkpoint{}, err
	}

	if len(recs) == 0 && len(pairs) == 0 {
		return store.Checkpoint{}, internalerr.ErrNoCheckpoint
	}
	return store.Checkpoint{Records: recs, Pairs: pairs}, nil
}

// SaveStage replaces the snapshot stored under the given stage name.
func (s *sqliteStore) SaveStage(ctx context.Context, stage string, recs []record.Record) error {
	if stage == checkpointStage {
		return fmt.Errorf("%w: stage name %q is reserved", internalerr.ErrInvalidInput, stage)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceStageRows(ctx, tx, stage, recs); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadStage returns the snapshot stored under the given stage name.
func (s *sqliteStore) LoadStage(ctx context.Context, stage string) ([]record.Record, error) {
	recs, err := s.loadStageRows(ctx, stage)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("stage %q: %w", stage, internalerr.ErrNotFound)
	}
	return recs, nil
}

// SaveFilterStats replaces the persisted removal counts.
func (s *sqliteStore) SaveFilterStats(ctx context.Context, stats filter.Stats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM filter_stats"); err != nil {
		return err
	}
	for i, sc := range stats.Steps {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO filter_stats (position, step, removed) VALUES (?, ?, ?)",
			i, sc.Name, sc.Removed)
		if err != nil {
			return err
		}
	}

	for key, val := range map[string]int{
		"initial":           stats.Initial,
		"profanity_flagged": stats.ProfanityFlagged,
	} {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, val)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadFilterStats returns the persisted removal counts in step order.
func (s *sqliteStore) LoadFilterStats(ctx context.Context) (filter.Stats, error) {
	var stats filter.Stats

	rows, err := s.db.QueryContext(ctx,
		"SELECT step, removed FROM filter_stats ORDER BY position")
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc filter.StepCount
		if err := rows.Scan(&sc.Name, &sc.Removed); err != nil {
			return stats, err
		}
		stats.Steps = append(stats.Steps, sc)
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	if len(stats.Steps) == 0 {
		return stats, fmt.Errorf("filter stats: %w", internalerr.ErrNotFound)
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = 'initial'").Scan(&stats.Initial); err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT value FROM meta WHERE key = 'profanity_flagged'").Scan(&stats.ProfanityFlagged); err != nil {
		return stats, err
	}

	return stats, nil
}

func replaceStageRows(ctx context.Context, tx *sql.Tx, stage string, recs []record.Record) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE stage = ?", stage); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO records (stage, position, id, subreddit, search_term, title, selftext,
	score, num_comments, author, url, created_utc, top_comments, profanity)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range recs {
		_, err := stmt.ExecContext(ctx, stage, i, r.ID, r.Subreddit, r.SearchTerm,
			r.Title, r.Selftext, r.Score, r.NumComments, r.Author, r.URL,
			formatTime(r.CreatedUTC), r.TopComments, boolToInt(r.ProfanityFlag))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) loadStageRows(ctx context.Context, stage string) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, subreddit, search_term, title, selftext, score, num_comments,
	author, url, created_utc, top_comments, profanity
FROM records WHERE stage = ? ORDER BY position`, stage)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []record.Record
	for rows.Next() {
		var r record.Record
		var created string
		var profanity int
		err := rows.Scan(&r.ID, &r.Subreddit, &r.SearchTerm, &r.Title, &r.Selftext,
			&r.Score, &r.NumComments, &r.Author, &r.URL, &created, &r.TopComments, &profanity)
		if err != nil {
			return nil, err
		}
		r.CreatedUTC = parseTime(created)
		r.ProfanityFlag = profanity != 0
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// formatTime stores timestamps as RFC3339 UTC; the zero time (unparseable at
// collection) round-trips as the empty string.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
