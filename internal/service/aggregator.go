// Package service implements the clinical reasoning pipeline: evidence
// aggregation, diagnosis ranking, risk stratification, treatment
// planning, safety checking, and prescription drafting, coordinated by
// the pipeline orchestrator.
package service

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

// referenceRange bounds one lab analyte. Critical bounds of zero mean
// no critical threshold on that side.
type referenceRange struct {
	Low      float64
	High     float64
	CritLow  float64
	CritHigh float64
	Unit     string
}

// labReferenceRanges covers the analytes the bundled rules consume.
var labReferenceRanges = map[string]referenceRange{
	"glucose":     {Low: 70, High: 100, CritLow: 50, CritHigh: 400, Unit: "mg/dL"},
	"hemoglobin":  {Low: 12, High: 16, CritLow: 7, Unit: "g/dL"},
	"wbc":         {Low: 4.5, High: 11, CritHigh: 30, Unit: "K/uL"},
	"sodium":      {Low: 135, High: 145, CritLow: 120, CritHigh: 160, Unit: "mEq/L"},
	"potassium":   {Low: 3.5, High: 5.0, CritLow: 2.5, CritHigh: 6.5, Unit: "mEq/L"},
	"creatinine":  {Low: 0.6, High: 1.2, CritHigh: 4.0, Unit: "mg/dL"},
	"cholesterol": {Low: 0, High: 200, Unit: "mg/dL"},
}

// labLinePattern matches "name: value" or "name value unit" lines in
// OCR'd lab report text.
var labLinePattern = regexp.MustCompile(`(?i)^\s*([a-z][a-z ]*[a-z])\s*[:=]?\s*(\d+(?:\.\d+)?)`)

// EvidenceAggregator runs the per-modality sub-analyses and merges
// their outputs into the observation set consumed by every downstream
// stage. The Analyze methods are independent of one another and safe
// to run concurrently.
type EvidenceAggregator struct {
	logger *logrus.Logger
}

// NewEvidenceAggregator creates an evidence aggregator.
func NewEvidenceAggregator(logger *logrus.Logger) *EvidenceAggregator {
	return &EvidenceAggregator{logger: logger}
}

// ExamAnalysis is the exam/vitals sub-analysis output: canonical merged
// vital signs, their classification, and structured exam findings.
type ExamAnalysis struct {
	Vitals   map[string]float64
	Status   map[string]string
	Findings map[string]string
}

// LabAnalysis is the lab sub-analysis output: canonical values, their
// interpretation against reference ranges, and the critical subset.
type LabAnalysis struct {
	Values   map[string]float64
	Results  []domain.LabInterpretation
	Critical []string
}

// AnalyzeExam merges wearable readings with profile vitals and
// classifies every measured sign. Profile vitals win over wearable
// readings for the same sign. A nil exam analyzes the profile alone.
func (a *EvidenceAggregator) AnalyzeExam(profile *domain.PatientProfile, exam *domain.ExamFindings) *ExamAnalysis {
	res := &ExamAnalysis{Vitals: make(map[string]float64)}

	if exam != nil {
		for name, reading := range exam.Wearable {
			if key, ok := wearableKey(name); ok && reading > 0 {
				res.Vitals[key] = reading
			}
		}
		if len(exam.Findings) > 0 {
			res.Findings = exam.Findings
		}
	}

	mergeVital(res.Vitals, "heart_rate", profile.Vitals.HeartRate)
	mergeVital(res.Vitals, "systolic_bp", profile.Vitals.SystolicBP)
	mergeVital(res.Vitals, "diastolic_bp", profile.Vitals.DiastolicBP)
	mergeVital(res.Vitals, "temperature", profile.Vitals.Temperature)
	mergeVital(res.Vitals, "oxygen_saturation", profile.Vitals.OxygenSaturation)
	mergeVital(res.Vitals, "respiratory_rate", profile.Vitals.RespiratoryRate)

	res.Status = classifyVitals(res.Vitals)
	return res
}

// AnalyzeImaging passes through the image processor's findings map.
// The pipeline never decodes images itself.
func (a *EvidenceAggregator) AnalyzeImaging(imaging *domain.ImagingFindings) map[string]string {
	if imaging == nil || len(imaging.Findings) == 0 {
		return nil
	}
	return imaging.Findings
}

// AnalyzeLabs interprets structured lab values against reference
// ranges, falling back to parsing OCR'd report text when no structured
// values are present.
func (a *EvidenceAggregator) AnalyzeLabs(labs *domain.LabFindings) *LabAnalysis {
	if labs == nil {
		return nil
	}
	values := labs.Values
	if len(values) == 0 && labs.RawText != "" {
		values = parseLabText(labs.RawText)
	}
	if len(values) == 0 {
		return nil
	}

	res := &LabAnalysis{Values: values, Results: interpretLabs(values)}
	for _, r := range res.Results {
		if r.Critical {
			res.Critical = append(res.Critical, r.Name)
		}
	}
	return res
}

// Aggregate merges the patient profile with the pre-analyzed modality
// outputs into a single observation set. A nil exam analysis falls back
// to analyzing the profile's own vitals.
func (a *EvidenceAggregator) Aggregate(
	profile *domain.PatientProfile,
	exam *ExamAnalysis,
	imaging map[string]string,
	labs *LabAnalysis,
) *domain.ClinicalObservationSet {
	obs := &domain.ClinicalObservationSet{
		PatientID:      profile.ID,
		PatientName:    profile.Name,
		Age:            profile.Age,
		Gender:         profile.Gender,
		Symptoms:       append([]string(nil), profile.Symptoms...),
		MedicalHistory: append([]string(nil), profile.MedicalHistory...),
		Allergies:      append([]string(nil), profile.Allergies...),
		Medications:    append([]string(nil), profile.CurrentMedications...),
	}

	if exam == nil {
		exam = a.AnalyzeExam(profile, nil)
	}
	obs.VitalSigns = exam.Vitals
	obs.VitalStatus = exam.Status
	obs.ExamFindings = exam.Findings

	if len(imaging) > 0 {
		obs.ImagingFindings = imaging
	}

	if labs != nil {
		obs.LabValues = labs.Values
		obs.LabResults = labs.Results
		obs.CriticalLabs = labs.Critical
	}

	obs.SymptomAnalysis = summarizeSymptoms(obs)

	a.logger.WithFields(logrus.Fields{
		"patient_id":    profile.ID,
		"symptoms":      len(obs.Symptoms),
		"vitals":        len(obs.VitalSigns),
		"lab_values":    len(obs.LabValues),
		"critical_labs": len(obs.CriticalLabs),
	}).Info("Evidence aggregation complete")

	return obs
}

func mergeVital(vitals map[string]float64, key string, value float64) {
	if value > 0 {
		vitals[key] = value
	}
}

// wearableKey maps wearable device field names to canonical vital keys.
func wearableKey(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "heartrate", "heart_rate", "hr":
		return "heart_rate", true
	case "systolic", "systolic_bp":
		return "systolic_bp", true
	case "diastolic", "diastolic_bp":
		return "diastolic_bp", true
	case "temperature", "temp":
		return "temperature", true
	case "spo2", "oxygen_saturation":
		return "oxygen_saturation", true
	case "respiratoryrate", "respiratory_rate", "rr":
		return "respiratory_rate", true
	default:
		return "", false
	}
}

// classifyVitals labels each measured vital as NORMAL or its
// abnormality.
func classifyVitals(vitals map[string]float64) map[string]string {
	if len(vitals) == 0 {
		return nil
	}
	status := make(map[string]string, len(vitals))
	for name, v := range vitals {
		switch name {
		case "heart_rate":
			switch {
			case v < 60:
				status[name] = "BRADYCARDIA"
			case v > 100:
				status[name] = "TACHYCARDIA"
			default:
				status[name] = "NORMAL"
			}
		case "systolic_bp":
			switch {
			case v < 90:
				status[name] = "HYPOTENSION"
			case v >= 140:
				status[name] = "HYPERTENSION"
			default:
				status[name] = "NORMAL"
			}
		case "diastolic_bp":
			switch {
			case v < 60:
				status[name] = "HYPOTENSION"
			case v >= 90:
				status[name] = "HYPERTENSION"
			default:
				status[name] = "NORMAL"
			}
		case "temperature":
			switch {
			case v > 100.4:
				status[name] = "FEVER"
			case v < 95:
				status[name] = "HYPOTHERMIA"
			default:
				status[name] = "NORMAL"
			}
		case "oxygen_saturation":
			switch {
			case v < 90:
				status[name] = "SEVERE_HYPOXIA"
			case v < 95:
				status[name] = "HYPOXIA"
			default:
				status[name] = "NORMAL"
			}
		case "respiratory_rate":
			switch {
			case v < 12:
				status[name] = "BRADYPNEA"
			case v > 20:
				status[name] = "TACHYPNEA"
			default:
				status[name] = "NORMAL"
			}
		default:
			status[name] = "NORMAL"
		}
	}
	return status
}

// parseLabText extracts "name: value" pairs from OCR'd report text.
// Names are normalized to the canonical analyte keys where recognized.
func parseLabText(raw string) map[string]float64 {
	values := make(map[string]float64)
	for _, line := range strings.Split(raw, "\n") {
		m := labLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := canonicalAnalyte(m[1])
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		values[name] = v
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func canonicalAnalyte(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "blood glucose", "fasting glucose", "glu":
		return "glucose"
	case "hgb", "hb":
		return "hemoglobin"
	case "white blood cell", "white blood cells", "white cell count":
		return "wbc"
	case "na":
		return "sodium"
	case "k":
		return "potassium"
	case "total cholesterol":
		return "cholesterol"
	default:
		return strings.ReplaceAll(n, " ", "_")
	}
}

// interpretLabs compares each value against its reference range.
// Analytes without a known range are reported as NORMAL with no
// comment. Results are ordered by analyte name so identical inputs
// interpret identically.
func interpretLabs(values map[string]float64) []domain.LabInterpretation {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]domain.LabInterpretation, 0, len(values))
	for _, name := range names {
		v := values[name]
		r, known := labReferenceRanges[name]
		interp := domain.LabInterpretation{Name: name, Value: v, Status: "NORMAL"}
		if known {
			switch {
			case v < r.Low:
				interp.Status = "LOW"
				interp.Comment = fmt.Sprintf("below reference range %.1f-%.1f %s", r.Low, r.High, r.Unit)
			case v > r.High:
				interp.Status = "HIGH"
				interp.Comment = fmt.Sprintf("above reference range %.1f-%.1f %s", r.Low, r.High, r.Unit)
			}
			if (r.CritLow > 0 && v < r.CritLow) || (r.CritHigh > 0 && v > r.CritHigh) {
				interp.Critical = true
			}
		}
		results = append(results, interp)
	}
	return results
}

// summarizeSymptoms produces the short narrative attached to the
// observation set.
func summarizeSymptoms(obs *domain.ClinicalObservationSet) string {
	if len(obs.Symptoms) == 0 {
		return "No symptoms reported."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Patient reports %d symptom(s): %s.", len(obs.Symptoms), strings.Join(obs.Symptoms, ", "))
	abnormal := 0
	for _, s := range obs.VitalStatus {
		if s != "NORMAL" {
			abnormal++
		}
	}
	if abnormal > 0 {
		fmt.Fprintf(&b, " %d abnormal vital sign(s) recorded.", abnormal)
	}
	if len(obs.CriticalLabs) > 0 {
		fmt.Fprintf(&b, " Critical lab values: %s.", strings.Join(obs.CriticalLabs, ", "))
	}
	return b.String()
}
