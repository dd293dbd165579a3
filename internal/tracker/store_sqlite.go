// Package tracker persists which bills and donations have already been
// analyzed for each (person, session) pair, so reruns only pay for new
// activity.
package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/jordanharb/moneytrail/internal/model"
	"github.com/jordanharb/moneytrail/internal/service"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
const ExpectedSchemaVersion = 1

// Ensure SQLiteStore implements the TrackerStore interface.
var _ service.TrackerStore = (*SQLiteStore)(nil)

// SQLiteStore provides SQLite-based persistence for analysis records.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite-backed tracker store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("dbPath is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migration represents a database schema migration.
type migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS analysis_records (
					person_id INTEGER NOT NULL,
					session_id INTEGER NOT NULL,
					state TEXT NOT NULL,
					bill_ids TEXT NOT NULL,
					donation_ids TEXT NOT NULL,
					run_count INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					last_run_at DATETIME NOT NULL,
					PRIMARY KEY (person_id, session_id)
				)`,
				`CREATE INDEX idx_analysis_records_session ON analysis_records(session_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := m.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", m.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", m.Version,
			"description", m.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// GetRecord retrieves the analysis record for one (person, session) pair.
// A missing record is normal for a first run and returns (nil, nil).
func (s *SQLiteStore) GetRecord(ctx context.Context, personID, sessionID int64) (*model.AnalysisRecord, error) {
	query := `
		SELECT state, bill_ids, donation_ids, run_count, created_at, last_run_at
		FROM analysis_records
		WHERE person_id = ? AND session_id = ?
	`

	var (
		state                        string
		billIDsJSON, donationIDsJSON string
		runCount                     int
		createdAtStr, lastRunAtStr   string
	)

	row := s.db.QueryRowContext(ctx, query, personID, sessionID)
	err := row.Scan(&state, &billIDsJSON, &donationIDsJSON, &runCount, &createdAtStr, &lastRunAtStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis record: %w", err)
	}

	record := &model.AnalysisRecord{
		PersonID:  personID,
		SessionID: sessionID,
		State:     model.PhaseState(state),
		RunCount:  runCount,
	}

	if err := json.Unmarshal([]byte(billIDsJSON), &record.BillIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bill IDs: %w", err)
	}
	if err := json.Unmarshal([]byte(donationIDsJSON), &record.DonationIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal donation IDs: %w", err)
	}

	record.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	record.LastRunAt, err = time.Parse(time.RFC3339, lastRunAtStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse last_run_at: %w", err)
	}

	slog.Debug("Retrieved analysis record",
		"person_id", personID,
		"session_id", sessionID,
		"state", record.State,
		"bills", len(record.BillIDs))

	return record, nil
}

// SaveRecord inserts or replaces the analysis record for the record's
// (person, session) pair.
func (s *SQLiteStore) SaveRecord(ctx context.Context, record *model.AnalysisRecord) error {
	if record.PersonID == 0 || record.SessionID == 0 {
		return fmt.Errorf("person ID and session ID are required")
	}

	billIDsJSON, err := json.Marshal(record.BillIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal bill IDs: %w", err)
	}
	donationIDsJSON, err := json.Marshal(record.DonationIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal donation IDs: %w", err)
	}

	query := `
		INSERT INTO analysis_records (
			person_id, session_id, state, bill_ids, donation_ids,
			run_count, created_at, last_run_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (person_id, session_id) DO UPDATE SET
			state = excluded.state,
			bill_ids = excluded.bill_ids,
			donation_ids = excluded.donation_ids,
			run_count = excluded.run_count,
			last_run_at = excluded.last_run_at
	`

	_, err = s.db.ExecContext(ctx, query,
		record.PersonID,
		record.SessionID,
		string(record.State),
		string(billIDsJSON),
		string(donationIDsJSON),
		record.RunCount,
		record.CreatedAt.Format(time.RFC3339),
		record.LastRunAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis record: %w", err)
	}

	slog.Debug("Saved analysis record",
		"person_id", record.PersonID,
		"session_id", record.SessionID,
		"state", record.State,
		"run_count", record.RunCount)

	return nil
}
