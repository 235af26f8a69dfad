package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// VitalSigns is a snapshot of the patient's vital signs at intake.
// Zero values mean "not measured"; the aggregator only carries
// measured vitals into the observation set.
type VitalSigns struct {
	HeartRate        float64 `json:"heart_rate,omitempty"`
	SystolicBP       float64 `json:"systolic_bp,omitempty"`
	DiastolicBP      float64 `json:"diastolic_bp,omitempty"`
	Temperature      float64 `json:"temperature,omitempty"`
	OxygenSaturation float64 `json:"oxygen_saturation,omitempty"`
	RespiratoryRate  float64 `json:"respiratory_rate,omitempty"`
}

// PatientProfile is the caller-owned patient record for one pipeline
// run. The pipeline treats it as read-only.
type PatientProfile struct {
	ID                 string     `json:"id" validate:"required"`
	Name               string     `json:"name" validate:"required"`
	Age                int        `json:"age"`
	Gender             Gender     `json:"gender,omitempty"`
	Symptoms           []string   `json:"symptoms,omitempty"`
	MedicalHistory     []string   `json:"medical_history,omitempty"`
	Allergies          []string   `json:"allergies,omitempty"`
	CurrentMedications []string   `json:"current_medications,omitempty"`
	Vitals             VitalSigns `json:"vitals,omitempty"`
}

// Validate ensures the profile carries the required identifying fields
// before any clinical reasoning runs on it.
func (p *PatientProfile) Validate() error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Message: "patient ID is required"}
	}
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "patient name is required"}
	}
	if p.Age < 0 {
		return &ValidationError{Field: "age", Message: "age cannot be negative", Value: p.Age}
	}
	return nil
}

// ExamFindings is the output contract of the physical-exam module:
// narrative findings plus a flat wearable vitals map
// (heartRate, systolic, diastolic, temperature, spO2).
type ExamFindings struct {
	Findings   map[string]string  `json:"findings,omitempty"`
	Wearable   map[string]float64 `json:"wearable,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
}

// ImagingFindings is the output contract of the image/DICOM processor:
// a structured findings map plus a confidence score. The pipeline never
// decodes images itself.
type ImagingFindings struct {
	Modality   string            `json:"modality,omitempty"`
	Findings   map[string]string `json:"findings,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
}

// LabFindings is the output contract of the lab module. Structured
// values take precedence; RawText is OCR output parsed only when
// Values is empty.
type LabFindings struct {
	Values     map[string]float64 `json:"values,omitempty"`
	RawText    string             `json:"raw_text,omitempty"`
	Confidence float64            `json:"confidence,omitempty"`
}

// LabInterpretation is one interpreted lab value.
type LabInterpretation struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Status   string  `json:"status"` // NORMAL, LOW, HIGH
	Comment  string  `json:"comment,omitempty"`
	Critical bool    `json:"critical,omitempty"`
}

// ClinicalObservationSet is the aggregated, immutable view of all
// evidence for one pipeline run. It is built exactly once by the
// evidence aggregator; later stages consume but never write it.
type ClinicalObservationSet struct {
	PatientID       string              `json:"patient_id"`
	PatientName     string              `json:"patient_name,omitempty"`
	Age             int                 `json:"age"`
	Gender          Gender              `json:"gender,omitempty"`
	Symptoms        []string            `json:"symptoms"`
	MedicalHistory  []string            `json:"medical_history"`
	Allergies       []string            `json:"allergies"`
	Medications     []string            `json:"medications"`
	VitalSigns      map[string]float64  `json:"vital_signs"`
	VitalStatus     map[string]string   `json:"vital_status,omitempty"`
	SymptomAnalysis string              `json:"symptom_analysis,omitempty"`
	ExamFindings    map[string]string   `json:"exam_findings,omitempty"`
	ImagingFindings map[string]string   `json:"imaging_findings,omitempty"`
	LabValues       map[string]float64  `json:"lab_values,omitempty"`
	LabResults      []LabInterpretation `json:"lab_results,omitempty"`
	CriticalLabs    []string            `json:"critical_labs,omitempty"`
}

// HasSymptom reports whether the observation set contains a symptom
// equal to or containing the given keyword, case-insensitively.
func (o *ClinicalObservationSet) HasSymptom(keyword string) bool {
	return containsFold(o.Symptoms, keyword)
}

// HasHistory reports whether the medical history mentions the keyword.
func (o *ClinicalObservationSet) HasHistory(keyword string) bool {
	return containsFold(o.MedicalHistory, keyword)
}

// LabValue returns a lab value and whether it was observed.
func (o *ClinicalObservationSet) LabValue(name string) (float64, bool) {
	v, ok := o.LabValues[name]
	return v, ok
}

// Vital returns a vital-sign reading and whether it was measured.
func (o *ClinicalObservationSet) Vital(name string) (float64, bool) {
	v, ok := o.VitalSigns[name]
	return v, ok
}

// DiagnosisCandidate is one ranked entry of the differential
// diagnosis. Probability is post-normalization; candidates are never
// mutated after ranking.
type DiagnosisCandidate struct {
	Diagnosis          string   `json:"diagnosis"`
	ICDCode            string   `json:"icd_code"`
	Probability        float64  `json:"probability"`
	SupportingEvidence []string `json:"supporting_evidence,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
}

// DifferentialDiagnosis is the diagnosis stage output: the ranked
// candidate list plus run-level annotations.
type DifferentialDiagnosis struct {
	Candidates           []DiagnosisCandidate `json:"candidates"`
	InsufficientEvidence bool                 `json:"insufficient_evidence"`
	Confidence           float64              `json:"confidence"`
	Urgency              UrgencyLevel         `json:"urgency"`
	Reasoning            string               `json:"reasoning,omitempty"`
}

// Top returns the leading candidate, or nil for an empty differential.
func (d *DifferentialDiagnosis) Top() *DiagnosisCandidate {
	if len(d.Candidates) == 0 {
		return nil
	}
	return &d.Candidates[0]
}

// RiskAssessment is the risk stratifier output. Derived per run, never
// persisted independently of the report.
type RiskAssessment struct {
	Score             int       `json:"score"`
	Level             RiskLevel `json:"level"`
	Factors           []string  `json:"factors,omitempty"`
	RecommendedAction string    `json:"recommended_action"`
}

// TreatmentRecommendation is a single planned therapy. Mutable only
// during the personalization step of the treatment planner, frozen
// afterwards.
type TreatmentRecommendation struct {
	Category   string `json:"category"`
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
	Duration   string `json:"duration,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// FollowUpPlan is the planned follow-up attached to a treatment plan.
type FollowUpPlan struct {
	Timeline string   `json:"timeline"`
	Urgency  string   `json:"urgency"`
	Tasks    []string `json:"tasks,omitempty"`
	Labs     []string `json:"labs,omitempty"`
}

// TreatmentPlan is the treatment planning stage output.
type TreatmentPlan struct {
	PrimaryDiagnosis string                    `json:"primary_diagnosis,omitempty"`
	Recommendations  []TreatmentRecommendation `json:"recommendations"`
	Lifestyle        []string                  `json:"lifestyle,omitempty"`
	FollowUp         FollowUpPlan              `json:"follow_up"`
}

// SafetyAlert is a flagged concern attached to a treatment or
// prescription item. Alerts annotate; removal policy belongs to the
// caller.
type SafetyAlert struct {
	Kind     AlertKind     `json:"kind"`
	Message  string        `json:"message"`
	Severity AlertSeverity `json:"severity"`
}

// PrescriptionItem is one drafted prescription line, enriched from the
// medication registry before formatting.
type PrescriptionItem struct {
	MedicationName string   `json:"medication_name"`
	GenericName    string   `json:"generic_name,omitempty"`
	Strength       string   `json:"strength,omitempty"`
	Form           string   `json:"form,omitempty"`
	RxNormCode     string   `json:"rxnorm_code,omitempty"`
	DEASchedule    string   `json:"dea_schedule,omitempty"`
	Controlled     bool     `json:"controlled"`
	Dosage         string   `json:"dosage"`
	Instructions   string   `json:"instructions,omitempty"`
	Duration       string   `json:"duration,omitempty"`
	Quantity       int      `json:"quantity"`
	Refills        int      `json:"refills"`
	AllowGeneric   bool     `json:"allow_generic"`
	Errors         []string `json:"errors,omitempty"`
}

// Valid reports whether the item passed all drafting validations.
func (p *PrescriptionItem) Valid() bool {
	return len(p.Errors) == 0
}

// PrescriptionDocument is the prescription drafter output: the drafted
// items with per-item validation errors plus the formatted document.
// Valid is true only when no item carries errors.
type PrescriptionDocument struct {
	PrescriptionID string             `json:"prescription_id"`
	Items          []PrescriptionItem `json:"items"`
	Formatted      string             `json:"formatted"`
	EstimatedCost  float64            `json:"estimated_cost"`
	Valid          bool               `json:"valid"`
	IssuedAt       time.Time          `json:"issued_at"`
}

// ValidationErrors flattens all per-item errors, prefixed with the
// medication name.
func (d *PrescriptionDocument) ValidationErrors() []string {
	var errs []string
	for _, item := range d.Items {
		for _, e := range item.Errors {
			errs = append(errs, fmt.Sprintf("%s: %s", item.MedicationName, e))
		}
	}
	return errs
}

// containsFold reports whether any entry equals or contains the
// keyword, case-insensitively.
func containsFold(entries []string, keyword string) bool {
	k := normalize(keyword)
	for _, e := range entries {
		if strings.Contains(normalize(e), k) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// StageStatus records the outcome of one pipeline stage for the final
// report.
type StageStatus struct {
	Stage      StageName `json:"stage"`
	Mode       StageMode `json:"mode"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// ClinicalReport is the aggregate root assembled by the orchestrator.
// Immutable after assembly and owned by the caller.
type ClinicalReport struct {
	CaseID           string                    `json:"case_id"`
	PatientID        string                    `json:"patient_id"`
	Observations     *ClinicalObservationSet   `json:"observations"`
	Differential     DifferentialDiagnosis     `json:"differential"`
	Risk             RiskAssessment            `json:"risk"`
	Treatment        TreatmentPlan             `json:"treatment"`
	SafetyAlerts     []SafetyAlert             `json:"safety_alerts,omitempty"`
	Prescription     *PrescriptionDocument     `json:"prescription,omitempty"`
	Stages           []StageStatus             `json:"stages"`
	AnalysisComplete bool                      `json:"analysis_complete"`
	Confidence       float64                   `json:"confidence"`
	DataCompleteness float64                   `json:"data_completeness"`
	CreatedAt        time.Time                 `json:"created_at"`
}

// Degraded reports whether any stage fell back to degraded mode.
func (r *ClinicalReport) Degraded() bool {
	for _, s := range r.Stages {
		if s.Mode == ModeDegraded {
			return true
		}
	}
	return false
}

// StageStatusFor returns the recorded status for a stage.
func (r *ClinicalReport) StageStatusFor(name StageName) (StageStatus, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageStatus{}, false
}

// Validate checks the report invariants that persistence relies on.
func (r *ClinicalReport) Validate() error {
	if r.CaseID == "" {
		return fmt.Errorf("report validation: %w", errors.New("case ID is required"))
	}
	if r.PatientID == "" {
		return fmt.Errorf("report validation: %w", errors.New("patient ID is required"))
	}
	if r.Risk.Level != "" && !r.Risk.Level.IsValid() {
		return fmt.Errorf("report validation: %w", ErrInvalidRiskLevel)
	}
	for _, s := range r.Stages {
		if !s.Mode.IsValid() {
			return fmt.Errorf("report validation: %w", ErrInvalidStageMode)
		}
	}
	return nil
}
