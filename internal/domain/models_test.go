package domain

import (
	"errors"
	"testing"
)

func TestPatientProfileValidate(t *testing.T) {
	valid := PatientProfile{
		ID:       "patient-001",
		Name:     "Jane Doe",
		Age:      47,
		Gender:   "Female",
		Symptoms: []string{"headache"},
	}

	tests := []struct {
		name    string
		mutate  func(p *PatientProfile)
		wantErr bool
		field   string
	}{
		{"valid", func(p *PatientProfile) {}, false, ""},
		{"missing id", func(p *PatientProfile) { p.ID = "" }, true, "id"},
		{"missing name", func(p *PatientProfile) { p.Name = "" }, true, "name"},
		{"negative age", func(p *PatientProfile) { p.Age = -1 }, true, "age"},
		{"zero age ok", func(p *PatientProfile) { p.Age = 0 }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("Validate() = %v, want ValidationError", err)
				}
				if verr.Field != tt.field {
					t.Errorf("Field = %q, want %q", verr.Field, tt.field)
				}
			} else if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestObservationSetHelpers(t *testing.T) {
	obs := ClinicalObservationSet{
		Symptoms:       []string{"Chest Pain", "shortness of breath"},
		MedicalHistory: []string{"Type 2 Diabetes"},
		LabValues:      map[string]float64{"glucose": 140},
		VitalSigns:     map[string]float64{"heart_rate": 92},
	}

	if !obs.HasSymptom("chest pain") {
		t.Error("expected case-insensitive symptom match")
	}
	if !obs.HasSymptom("breath") {
		t.Error("expected substring symptom match")
	}
	if obs.HasSymptom("fever") {
		t.Error("unexpected symptom match")
	}
	if !obs.HasHistory("diabetes") {
		t.Error("expected history substring match")
	}

	if v, ok := obs.LabValue("glucose"); !ok || v != 140 {
		t.Errorf("LabValue(glucose) = %v, %v", v, ok)
	}
	if _, ok := obs.LabValue("sodium"); ok {
		t.Error("unexpected lab value")
	}
	if v, ok := obs.Vital("heart_rate"); !ok || v != 92 {
		t.Errorf("Vital(heart_rate) = %v, %v", v, ok)
	}
}

func TestDifferentialDiagnosisTop(t *testing.T) {
	dd := DifferentialDiagnosis{
		Candidates: []DiagnosisCandidate{
			{Diagnosis: "Pneumonia", Probability: 0.6},
			{Diagnosis: "GERD", Probability: 0.4},
		},
	}
	top := dd.Top()
	if top == nil || top.Diagnosis != "Pneumonia" {
		t.Errorf("Top() = %v, want Pneumonia", top)
	}

	empty := DifferentialDiagnosis{}
	if empty.Top() != nil {
		t.Error("Top() on empty differential should be nil")
	}
}

func TestPrescriptionItemValid(t *testing.T) {
	item := PrescriptionItem{MedicationName: "Lisinopril", Dosage: "10mg once daily"}
	if !item.Valid() {
		t.Error("item without errors should be valid")
	}
	item.Errors = append(item.Errors, "Allergy conflict: lisinopril")
	if item.Valid() {
		t.Error("item with errors should be invalid")
	}
}

func TestPrescriptionDocumentValidationErrors(t *testing.T) {
	doc := PrescriptionDocument{
		Items: []PrescriptionItem{
			{MedicationName: "Metformin"},
			{MedicationName: "Warfarin", Errors: []string{"Interaction: warfarin + aspirin"}},
		},
	}
	errs := doc.ValidationErrors()
	if len(errs) != 1 {
		t.Fatalf("ValidationErrors() returned %d entries, want 1", len(errs))
	}
}

func TestClinicalReportDegraded(t *testing.T) {
	report := ClinicalReport{
		Stages: []StageStatus{
			{Stage: StageAggregate, Mode: ModeFull},
			{Stage: StageDiagnose, Mode: ModeDegraded, Error: "rule table unavailable"},
		},
	}
	if !report.Degraded() {
		t.Error("report with a degraded stage should report Degraded() = true")
	}
	st, ok := report.StageStatusFor(StageDiagnose)
	if !ok || st.Mode != ModeDegraded {
		t.Errorf("StageStatusFor(DIAGNOSE) = %v, %v", st, ok)
	}
	if _, ok := report.StageStatusFor(StageSafety); ok {
		t.Error("missing stage should not resolve")
	}
}

func TestPipelineErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPipelineError(StageLab, ErrCodeExternalDependency, cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match wrapped cause")
	}
	if err.Error() == "" {
		t.Error("expected non-empty error string")
	}
}
