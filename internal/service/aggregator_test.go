package service

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestAggregateMergesProfileAndWearables(t *testing.T) {
	agg := NewEvidenceAggregator(testLogger())

	profile := &domain.PatientProfile{
		ID:       "p1",
		Name:     "Test Patient",
		Age:      58,
		Gender:   "Male",
		Symptoms: []string{"chest pain"},
		Vitals:   domain.VitalSigns{SystolicBP: 150},
	}
	exam := &domain.ExamFindings{
		Wearable: map[string]float64{
			"heartRate": 110,
			"systolic":  120, // overridden by profile vitals
			"spo2":      93,
		},
		Findings: map[string]string{"general": "diaphoretic"},
	}

	obs := agg.Aggregate(profile, agg.AnalyzeExam(profile, exam), nil, nil)

	if obs.PatientID != "p1" || obs.PatientName != "Test Patient" {
		t.Errorf("patient identity = %q/%q, want p1/Test Patient", obs.PatientID, obs.PatientName)
	}
	if v, _ := obs.Vital("heart_rate"); v != 110 {
		t.Errorf("heart_rate = %v, want 110", v)
	}
	if v, _ := obs.Vital("systolic_bp"); v != 150 {
		t.Errorf("profile vitals should override wearable: systolic_bp = %v, want 150", v)
	}
	if obs.VitalStatus["heart_rate"] != "TACHYCARDIA" {
		t.Errorf("heart_rate status = %q, want TACHYCARDIA", obs.VitalStatus["heart_rate"])
	}
	if obs.VitalStatus["systolic_bp"] != "HYPERTENSION" {
		t.Errorf("systolic_bp status = %q, want HYPERTENSION", obs.VitalStatus["systolic_bp"])
	}
	if obs.VitalStatus["oxygen_saturation"] != "HYPOXIA" {
		t.Errorf("oxygen_saturation status = %q, want HYPOXIA", obs.VitalStatus["oxygen_saturation"])
	}
	if obs.ExamFindings["general"] != "diaphoretic" {
		t.Error("exam findings should carry through")
	}
	if obs.SymptomAnalysis == "" {
		t.Error("symptom analysis should be populated")
	}
}

func TestAggregateParsesRawLabText(t *testing.T) {
	agg := NewEvidenceAggregator(testLogger())

	profile := &domain.PatientProfile{ID: "p2", Name: "Test", Age: 50}
	labs := &domain.LabFindings{
		RawText: "Glucose: 420\nHgb 11.2\nSodium: 138\nnot a lab line\n",
	}

	obs := agg.Aggregate(profile, nil, nil, agg.AnalyzeLabs(labs))

	if v, ok := obs.LabValue("glucose"); !ok || v != 420 {
		t.Errorf("glucose = %v, %v, want 420", v, ok)
	}
	if v, ok := obs.LabValue("hemoglobin"); !ok || v != 11.2 {
		t.Errorf("hemoglobin = %v, %v, want 11.2 (Hgb alias)", v, ok)
	}

	var glucoseInterp *domain.LabInterpretation
	for i := range obs.LabResults {
		if obs.LabResults[i].Name == "glucose" {
			glucoseInterp = &obs.LabResults[i]
		}
	}
	if glucoseInterp == nil {
		t.Fatal("glucose should be interpreted")
	}
	if glucoseInterp.Status != "HIGH" || !glucoseInterp.Critical {
		t.Errorf("glucose 420 should be HIGH and critical: %+v", glucoseInterp)
	}
	if len(obs.CriticalLabs) == 0 {
		t.Error("critical labs should be flagged")
	}
}

func TestAggregateStructuredLabsWinOverRawText(t *testing.T) {
	agg := NewEvidenceAggregator(testLogger())

	profile := &domain.PatientProfile{ID: "p3", Name: "Test"}
	labs := &domain.LabFindings{
		Values:  map[string]float64{"glucose": 95},
		RawText: "Glucose: 500",
	}

	obs := agg.Aggregate(profile, nil, nil, agg.AnalyzeLabs(labs))
	if v, _ := obs.LabValue("glucose"); v != 95 {
		t.Errorf("structured values should take precedence: glucose = %v, want 95", v)
	}
	if len(obs.CriticalLabs) != 0 {
		t.Error("normal structured glucose should not be critical")
	}
}

func TestAnalyzeLabsOrdersResultsByName(t *testing.T) {
	agg := NewEvidenceAggregator(testLogger())
	labs := &domain.LabFindings{
		Values: map[string]float64{
			"sodium":     138,
			"glucose":    95,
			"potassium":  4.2,
			"hemoglobin": 13,
		},
	}

	// Map iteration order must not leak into the report; identical
	// inputs interpret in the same order every run.
	first := agg.AnalyzeLabs(labs)
	for i := 0; i < 5; i++ {
		again := agg.AnalyzeLabs(labs)
		for j := range first.Results {
			if again.Results[j].Name != first.Results[j].Name {
				t.Fatalf("run %d: result[%d] = %q, want %q", i, j, again.Results[j].Name, first.Results[j].Name)
			}
		}
	}
	want := []string{"glucose", "hemoglobin", "potassium", "sodium"}
	for i, name := range want {
		if first.Results[i].Name != name {
			t.Errorf("result[%d] = %q, want %q", i, first.Results[i].Name, name)
		}
	}
}

func TestClassifyVitals(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value float64
		want  string
	}{
		{"normal hr", "heart_rate", 72, "NORMAL"},
		{"bradycardia", "heart_rate", 45, "BRADYCARDIA"},
		{"fever", "temperature", 101.2, "FEVER"},
		{"severe hypoxia", "oxygen_saturation", 85, "SEVERE_HYPOXIA"},
		{"tachypnea", "respiratory_rate", 26, "TACHYPNEA"},
		{"hypotension", "systolic_bp", 82, "HYPOTENSION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := classifyVitals(map[string]float64{tt.key: tt.value})
			if status[tt.key] != tt.want {
				t.Errorf("classifyVitals(%s=%v) = %q, want %q", tt.key, tt.value, status[tt.key], tt.want)
			}
		})
	}
}
