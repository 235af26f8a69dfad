package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/clinical-reasoning-server/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleReport(caseID, patientID string) *domain.ClinicalReport {
	return &domain.ClinicalReport{
		CaseID:    caseID,
		PatientID: patientID,
		Risk: domain.RiskAssessment{
			Score: 5, Level: domain.RiskModerate,
			RecommendedAction: domain.RiskModerate.RecommendedAction(),
		},
		Differential: domain.DifferentialDiagnosis{
			Candidates: []domain.DiagnosisCandidate{{Diagnosis: "Pneumonia", ICDCode: "J18.9", Probability: 1}},
			Confidence: 0.8,
			Urgency:    domain.UrgencyModerate,
		},
		Stages: []domain.StageStatus{
			{Stage: domain.StageAggregate, Mode: domain.ModeFull},
		},
		AnalysisComplete: true,
		Confidence:       0.7,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteSaveAndGetReport(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("case-1", "patient-1")
	if err := store.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	got, err := store.GetReport(ctx, "case-1")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got.PatientID != "patient-1" || got.Risk.Level != domain.RiskModerate {
		t.Errorf("round-tripped report mismatch: %+v", got)
	}
	if top := got.Differential.Top(); top == nil || top.Diagnosis != "Pneumonia" {
		t.Errorf("differential lost in round trip: %+v", got.Differential)
	}
}

func TestSQLiteSaveReplacesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := sampleReport("case-2", "patient-1")
	if err := store.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}

	report.Risk.Level = domain.RiskHigh
	if err := store.SaveReport(ctx, report); err != nil {
		t.Fatalf("second SaveReport() error = %v", err)
	}

	got, err := store.GetReport(ctx, "case-2")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got.Risk.Level != domain.RiskHigh {
		t.Errorf("Risk.Level = %v, want HIGH after replace", got.Risk.Level)
	}
}

func TestSQLiteGetReportNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetReport(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetReport(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteSaveRejectsInvalidReport(t *testing.T) {
	store := newTestStore(t)

	err := store.SaveReport(context.Background(), &domain.ClinicalReport{PatientID: "p"})
	if err == nil {
		t.Error("report without a case ID must be rejected")
	}
}

func TestSQLiteListReports(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, caseID := range []string{"case-a", "case-b", "case-c"} {
		r := sampleReport(caseID, "patient-7")
		r.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := store.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport(%s) error = %v", caseID, err)
		}
	}
	other := sampleReport("case-x", "patient-8")
	if err := store.SaveReport(ctx, other); err != nil {
		t.Fatalf("SaveReport(case-x) error = %v", err)
	}

	reports, err := store.ListReports(ctx, "patient-7", 2)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("ListReports() returned %d, want 2", len(reports))
	}
	for _, r := range reports {
		if r.PatientID != "patient-7" {
			t.Errorf("report for wrong patient: %s", r.PatientID)
		}
	}
}
