package database

import (
	"fmt"
	"strings"
)

func (d *Database) RunMigrations() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL DEFAULT 0,
			type TEXT,
			price INTEGER NOT NULL,
			description TEXT,
			address TEXT NOT NULL,
			city TEXT,
			state TEXT,
			zip TEXT,
			bedrooms INTEGER NOT NULL DEFAULT 0,
			bathrooms INTEGER NOT NULL DEFAULT 0,
			square_footage INTEGER NOT NULL DEFAULT 0,
			lot_size INTEGER,
			house_age INTEGER,
			hazard_zones TEXT,
			open_house TEXT,
			view TEXT,
			financial TEXT,
			amenities TEXT,
			image TEXT,
			latitude REAL,
			longitude REAL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create properties table: %w", err)
	}

	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS call_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			phone TEXT NOT NULL,
			session_id TEXT,
			accepted BOOLEAN NOT NULL DEFAULT 0,
			call_id TEXT,
			message TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create call_logs table: %w", err)
	}

	// Catalogs created before listings carried coordinates lack these columns
	for _, column := range []string{"latitude", "longitude"} {
		_, err = d.db.Exec(fmt.Sprintf("ALTER TABLE properties ADD COLUMN %s REAL;", column))
		if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
			return fmt.Errorf("failed to add %s column: %w", column, err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_properties_position ON properties(position);`,
		`CREATE INDEX IF NOT EXISTS idx_properties_coordinates ON properties(latitude, longitude);`,
		`CREATE INDEX IF NOT EXISTS idx_call_logs_session ON call_logs(session_id);`,
	}
	for _, stmt := range indexes {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}
