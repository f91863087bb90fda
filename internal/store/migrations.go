package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings - runtime state that survives restarts
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Action events - one row per executed command
		`CREATE TABLE IF NOT EXISTS action_events (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL DEFAULT '',
			op TEXT NOT NULL,
			value REAL,
			backend TEXT NOT NULL DEFAULT '',
			ok INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_action_events_created_at ON action_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_action_events_op ON action_events(op)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
