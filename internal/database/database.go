package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-guildwatch/internal/baseline"
	"go-guildwatch/internal/config"
	"go-guildwatch/internal/models"
)

type Database struct {
	db *sql.DB
}

var globalDB *Database

// Initialize opens the SQLite database in WAL mode and creates the schema.
func Initialize(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	globalDB = &Database{db: db}

	if err := globalDB.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// GetDB returns the global database instance, nil when uninitialized or
// unreachable. Callers treat nil as "run without persistence".
func GetDB() *Database {
	if globalDB != nil && globalDB.db != nil {
		if err := globalDB.db.Ping(); err != nil {
			return nil
		}
	}
	return globalDB
}

func IsConnected() bool {
	if globalDB == nil || globalDB.db == nil {
		return false
	}
	return globalDB.db.Ping() == nil
}

func Close() error {
	if globalDB != nil && globalDB.db != nil {
		return globalDB.db.Close()
	}
	return nil
}

func (d *Database) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		guild_id TEXT NOT NULL,
		subject_id TEXT DEFAULT '',
		severity TEXT NOT NULL,
		score REAL DEFAULT 0,
		title TEXT NOT NULL,
		description TEXT DEFAULT '',
		details TEXT DEFAULT '{}',
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_guild ON alerts(guild_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);

	CREATE TABLE IF NOT EXISTS baseline_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		guild_id TEXT NOT NULL,
		metric TEXT NOT NULL,
		hour INTEGER NOT NULL,
		day_of_week INTEGER NOT NULL,
		value REAL NOT NULL,
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_baseline_guild_metric ON baseline_samples(guild_id, metric);
	CREATE INDEX IF NOT EXISTS idx_baseline_timestamp ON baseline_samples(timestamp);

	CREATE TABLE IF NOT EXISTS threshold_overrides (
		guild_id TEXT PRIMARY KEY,
		thresholds TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`

	_, err := d.db.Exec(schema)
	return err
}

// SaveAlert implements alerts.HistoryStore.
func (d *Database) SaveAlert(a models.Alert) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		details = []byte("{}")
	}

	_, err = d.db.Exec(
		`INSERT OR REPLACE INTO alerts (id, type, guild_id, subject_id, severity, score, title, description, details, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), fmt.Sprintf("%d", a.GuildID), fmt.Sprintf("%d", a.SubjectID),
		a.Severity.String(), a.Score, a.Title, a.Description, string(details), a.Timestamp,
	)
	return err
}

// GetRecentAlerts returns persisted alert rows newest-first.
func (d *Database) GetRecentAlerts(guildID uint64, limit int) ([]*AlertRow, error) {
	rows, err := d.db.Query(
		`SELECT id, type, guild_id, subject_id, severity, score, title, description, details, timestamp
		 FROM alerts WHERE guild_id = ? ORDER BY timestamp DESC LIMIT ?`,
		fmt.Sprintf("%d", guildID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AlertRow
	for rows.Next() {
		var r AlertRow
		if err := rows.Scan(&r.ID, &r.Type, &r.GuildID, &r.SubjectID, &r.Severity,
			&r.Score, &r.Title, &r.Description, &r.Details, &r.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// SaveBaselineSample implements baseline.SampleStore. Old rows beyond the
// retention horizon are pruned opportunistically on write.
func (d *Database) SaveBaselineSample(s baseline.Sample) error {
	_, err := d.db.Exec(
		`INSERT INTO baseline_samples (guild_id, metric, hour, day_of_week, value, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		fmt.Sprintf("%d", s.GuildID), s.Metric, s.Hour, s.DayOfWeek, s.Value, s.Timestamp,
	)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(
		`DELETE FROM baseline_samples WHERE timestamp < ?`,
		s.Timestamp-7*24*60*60*1000,
	)
	return err
}

// LoadBaselineSamples implements baseline.SampleStore.
func (d *Database) LoadBaselineSamples(sinceMs int64) ([]baseline.Sample, error) {
	rows, err := d.db.Query(
		`SELECT guild_id, metric, hour, day_of_week, value, timestamp
		 FROM baseline_samples WHERE timestamp >= ? ORDER BY timestamp ASC`,
		sinceMs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []baseline.Sample
	for rows.Next() {
		var s baseline.Sample
		var guildID string
		if err := rows.Scan(&guildID, &s.Metric, &s.Hour, &s.DayOfWeek, &s.Value, &s.Timestamp); err != nil {
			return nil, err
		}
		fmt.Sscanf(guildID, "%d", &s.GuildID)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveThresholdOverride persists a guild's threshold tuning.
func (d *Database) SaveThresholdOverride(guildID uint64, t config.Thresholds) error {
	blob, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(
		`INSERT OR REPLACE INTO threshold_overrides (guild_id, thresholds, updated_at)
		 VALUES (?, ?, ?)`,
		fmt.Sprintf("%d", guildID), string(blob), time.Now().UnixMilli(),
	)
	return err
}

// LoadThresholdOverrides returns all persisted per-guild threshold tunings.
func (d *Database) LoadThresholdOverrides() (map[uint64]config.Thresholds, error) {
	rows, err := d.db.Query(`SELECT guild_id, thresholds FROM threshold_overrides`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64]config.Thresholds)
	for rows.Next() {
		var guildID, blob string
		if err := rows.Scan(&guildID, &blob); err != nil {
			return nil, err
		}
		var t config.Thresholds
		if err := json.Unmarshal([]byte(blob), &t); err != nil {
			continue
		}
		var id uint64
		fmt.Sscanf(guildID, "%d", &id)
		out[id] = t
	}
	return out, rows.Err()
}
