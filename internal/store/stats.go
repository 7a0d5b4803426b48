package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath       string      `json:"db_path"`
	DBSizeBytes  int64       `json:"db_size_bytes"`
	Runs         int         `json:"runs"`
	Snapshots    int         `json:"snapshots"`
	Interactions int         `json:"interactions"`
	Degraded     int         `json:"degraded_interactions"`
	Turns        int         `json:"turns"`
	Kinds        []KindStats `json:"kinds"`
}

// KindStats holds per-kind run counts.
type KindStats struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// Stats returns database statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	// DB file size
	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&st.Runs)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&st.Snapshots)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions`).Scan(&st.Interactions)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM interactions WHERE degraded = 1`).Scan(&st.Degraded)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&st.Turns)

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, COUNT(*) as cnt
		FROM runs GROUP BY kind ORDER BY cnt DESC, kind`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var k KindStats
		rows.Scan(&k.Kind, &k.Count)
		st.Kinds = append(st.Kinds, k)
	}

	return st, nil
}
