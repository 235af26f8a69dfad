// Package repository provides the report store backends: SQLite for
// single-node deployments and PostgreSQL for shared ones. Reports are
// stored as JSON documents with the query columns lifted out.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/clinical-reasoning-server/internal/domain"
)

// SQLiteStore implements domain.ReportStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite report store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS clinical_reports (
		case_id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL,
		risk_level TEXT NOT NULL DEFAULT '',
		analysis_complete INTEGER NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_reports_patient_id ON clinical_reports(patient_id);
	CREATE INDEX IF NOT EXISTS idx_reports_created_at ON clinical_reports(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// SaveReport stores a report, replacing any existing report for the
// same case ID.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *domain.ClinicalReport) error {
	if err := report.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clinical_reports (case_id, patient_id, risk_level, analysis_complete, confidence, report_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(case_id) DO UPDATE SET
			patient_id = excluded.patient_id,
			risk_level = excluded.risk_level,
			analysis_complete = excluded.analysis_complete,
			confidence = excluded.confidence,
			report_json = excluded.report_json`,
		report.CaseID, report.PatientID, string(report.Risk.Level),
		report.AnalysisComplete, report.Confidence, string(payload), report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by case ID.
func (s *SQLiteStore) GetReport(ctx context.Context, caseID string) (*domain.ClinicalReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT report_json FROM clinical_reports WHERE case_id = ?", caseID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return decodeReport(payload)
}

// ListReports returns the most recent reports for a patient, newest
// first.
func (s *SQLiteStore) ListReports(ctx context.Context, patientID string, limit int) ([]*domain.ClinicalReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT report_json FROM clinical_reports WHERE patient_id = ? ORDER BY created_at DESC LIMIT ?",
		patientID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.ClinicalReport
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport(payload)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeReport(payload string) (*domain.ClinicalReport, error) {
	report := &domain.ClinicalReport{}
	if err := json.Unmarshal([]byte(payload), report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return report, nil
}
