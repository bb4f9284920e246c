package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Alert episodes - one row per raised alert, closed when it clears.
		// Timestamps are unix milliseconds.
		`CREATE TABLE IF NOT EXISTS alert_episodes (
			id TEXT PRIMARY KEY,
			alert TEXT NOT NULL CHECK(alert IN ('WRIST_ABOVE_ELBOW', 'WRIST_TOO_HIGH')),
			since INTEGER NOT NULL,
			raised_at INTEGER NOT NULL,
			cleared_at INTEGER,
			duration_ms INTEGER
		)`,

		`CREATE INDEX IF NOT EXISTS idx_alert_episodes_raised_at ON alert_episodes(raised_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_episodes_open ON alert_episodes(cleared_at) WHERE cleared_at IS NULL`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
