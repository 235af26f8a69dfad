package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/clinical-reasoning-server/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreWithDB(db), mock
}

func TestPostgresSaveReport(t *testing.T) {
	store, mock := newMockStore(t)
	report := sampleReport("case-pg-1", "patient-1")

	mock.ExpectExec("INSERT INTO clinical_reports").
		WithArgs(report.CaseID, report.PatientID, string(report.Risk.Level),
			report.AnalysisComplete, report.Confidence, sqlmock.AnyArg(), report.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SaveReport(context.Background(), report); err != nil {
		t.Fatalf("SaveReport() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresGetReport(t *testing.T) {
	store, mock := newMockStore(t)
	report := sampleReport("case-pg-2", "patient-2")
	payload, _ := json.Marshal(report)

	mock.ExpectQuery("SELECT report_json FROM clinical_reports WHERE case_id").
		WithArgs("case-pg-2").
		WillReturnRows(sqlmock.NewRows([]string{"report_json"}).AddRow(string(payload)))

	got, err := store.GetReport(context.Background(), "case-pg-2")
	if err != nil {
		t.Fatalf("GetReport() error = %v", err)
	}
	if got.CaseID != "case-pg-2" || got.Risk.Level != domain.RiskModerate {
		t.Errorf("report mismatch: %+v", got)
	}
}

func TestPostgresGetReportNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT report_json FROM clinical_reports WHERE case_id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"report_json"}))

	_, err := store.GetReport(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestPostgresListReports(t *testing.T) {
	store, mock := newMockStore(t)

	r1, _ := json.Marshal(sampleReport("case-l1", "patient-3"))
	r2, _ := json.Marshal(sampleReport("case-l2", "patient-3"))

	mock.ExpectQuery("SELECT report_json FROM clinical_reports WHERE patient_id").
		WithArgs("patient-3", 20).
		WillReturnRows(sqlmock.NewRows([]string{"report_json"}).
			AddRow(string(r2)).AddRow(string(r1)))

	reports, err := store.ListReports(context.Background(), "patient-3", 0)
	if err != nil {
		t.Fatalf("ListReports() error = %v", err)
	}
	if len(reports) != 2 || reports[0].CaseID != "case-l2" {
		t.Errorf("reports = %+v", reports)
	}
}
