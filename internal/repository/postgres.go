package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/clinical-reasoning-server/internal/domain"
)

// PostgresStore implements domain.ReportStore using PostgreSQL.
// Schema management is handled by migrations, not by the store.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL report store.
func NewPostgresStore(connStr string, cfg *domain.DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection, used in tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// SaveReport stores a report, replacing any existing report for the
// same case ID.
func (s *PostgresStore) SaveReport(ctx context.Context, report *domain.ClinicalReport) error {
	if err := report.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO clinical_reports (case_id, patient_id, risk_level, analysis_complete, confidence, report_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (case_id) DO UPDATE SET
			patient_id = EXCLUDED.patient_id,
			risk_level = EXCLUDED.risk_level,
			analysis_complete = EXCLUDED.analysis_complete,
			confidence = EXCLUDED.confidence,
			report_json = EXCLUDED.report_json`,
		report.CaseID, report.PatientID, string(report.Risk.Level),
		report.AnalysisComplete, report.Confidence, string(payload), report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport retrieves a report by case ID.
func (s *PostgresStore) GetReport(ctx context.Context, caseID string) (*domain.ClinicalReport, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT report_json FROM clinical_reports WHERE case_id = $1", caseID,
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
func (s *PostgresStore) ListReports(ctx context.Context, patientID string, limit int) ([]*domain.ClinicalReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT report_json FROM clinical_reports WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2",
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
