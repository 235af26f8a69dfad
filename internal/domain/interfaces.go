package domain

import (
	"context"
)

// ReportStore persists completed clinical reports.
type ReportStore interface {
	// SaveReport stores a report keyed by its case ID.
	SaveReport(ctx context.Context, report *ClinicalReport) error

	// GetReport retrieves a report by case ID. Returns ErrNotFound
	// when no report exists for the ID.
	GetReport(ctx context.Context, caseID string) (*ClinicalReport, error)

	// ListReports returns the most recent reports for a patient,
	// newest first.
	ListReports(ctx context.Context, patientID string, limit int) ([]*ClinicalReport, error)

	// Close releases the underlying connection.
	Close() error
}

// Notifier publishes pipeline lifecycle events. Publishing is
// fire-and-forget; a failed publish never fails a pipeline run.
type Notifier interface {
	PublishStageEvent(ctx context.Context, caseID string, status StageStatus)
	PublishReportReady(ctx context.Context, report *ClinicalReport)
}

// ReasoningHook supplements rule-based stage output with an optional
// external reasoning service. Implementations must respect the context
// deadline; callers treat any error as advice-unavailable and proceed
// with rule-based output alone.
type ReasoningHook interface {
	// Advise returns free-text commentary for the given stage and
	// prompt, or an error when the hook is unavailable.
	Advise(ctx context.Context, stage StageName, prompt string) (string, error)
}
