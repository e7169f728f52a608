package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jgoulah/pvrelay/pkg/models"
	_ "modernc.org/sqlite"
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and initializes the schema
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS submitted_readings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL UNIQUE,
		date TEXT NOT NULL,
		day_energy REAL NOT NULL,
		voltage REAL NOT NULL,
		batch_id TEXT NOT NULL,
		mode TEXT NOT NULL,
		submitted_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_submitted_date ON submitted_readings(date);
	CREATE INDEX IF NOT EXISTS idx_submitted_batch ON submitted_readings(batch_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// RecordBatch stores readings accepted in one run. A reading that was already
// recorded (a repost) is replaced by the newer submission.
func (db *DB) RecordBatch(batchID, mode string, readings []models.Reading, submittedAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
	INSERT OR REPLACE INTO submitted_readings (ts, date, day_energy, voltage, batch_id, mode, submitted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	submitted := submittedAt.UTC().Format(time.RFC3339)
	for _, r := range readings {
		date := r.Time().Format("2006-01-02")
		if _, err := stmt.Exec(r.Timestamp, date, r.DayEnergy, r.Voltage, batchID, mode, submitted); err != nil {
			return fmt.Errorf("inserting reading %d: %w", r.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing readings: %w", err)
	}
	return nil
}

// ListSubmitted retrieves readings submitted at or after since, newest first.
// limit <= 0 means no limit.
func (db *DB) ListSubmitted(since time.Time, limit int) ([]models.SubmittedReading, error) {
	query := `
	SELECT id, ts, day_energy, voltage, batch_id, mode, submitted_at
	FROM submitted_readings
	WHERE ts >= ?
	ORDER BY ts DESC
	`
	args := []interface{}{since.Unix()}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying submitted readings: %w", err)
	}
	defer rows.Close()

	var results []models.SubmittedReading
	for rows.Next() {
		var data models.SubmittedReading
		var submittedStr string

		if err := rows.Scan(&data.ID, &data.Reading.Timestamp, &data.Reading.DayEnergy, &data.Reading.Voltage,
			&data.BatchID, &data.Mode, &submittedStr); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		data.SubmittedAt, err = time.Parse(time.RFC3339, submittedStr)
		if err != nil {
			return nil, fmt.Errorf("parsing submitted_at: %w", err)
		}

		results = append(results, data)
	}

	return results, rows.Err()
}

// LastSubmitted returns the newest submitted reading, or nil if there is none
func (db *DB) LastSubmitted() (*models.SubmittedReading, error) {
	readings, err := db.ListSubmitted(time.Unix(0, 0), 1)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}
