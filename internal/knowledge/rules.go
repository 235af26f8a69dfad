// Package knowledge holds the clinical knowledge tables the reasoning
// pipeline evaluates: diagnosis rules, treatment guidelines, the
// medication registry, and drug interaction pairs. The bundled entries
// are illustrative sample data for a small set of common presentations,
// not a clinically complete knowledge base.
package knowledge

import (
	"github.com/clinical-reasoning-server/internal/domain"
)

// ScoreContribution is one weighted evidence match produced by a
// diagnosis rule.
type ScoreContribution struct {
	Evidence string
	Weight   float64
}

// DiagnosisRule scores one candidate diagnosis against an observation
// set. Evaluate returns the matched contributions; the raw score is
// their sum.
type DiagnosisRule struct {
	ID           string
	Diagnosis    string
	ICDCode      string
	AgeSensitive bool
	Gender       domain.Gender // empty when not gender-associated
	Evaluate     func(obs *domain.ClinicalObservationSet) []ScoreContribution
}

// RuleTable is an ordered set of diagnosis rules. Order is the
// tie-break for equal scores, so registration order is part of the
// table's contract.
type RuleTable struct {
	rules []DiagnosisRule
}

// NewRuleTable returns an empty table.
func NewRuleTable() *RuleTable {
	return &RuleTable{}
}

// Add registers a rule. Later rules with the same ID are appended, not
// deduplicated; callers own ID uniqueness.
func (t *RuleTable) Add(rule DiagnosisRule) {
	t.rules = append(t.rules, rule)
}

// Rules returns the rules in registration order.
func (t *RuleTable) Rules() []DiagnosisRule {
	return t.rules
}

// Len returns the number of registered rules.
func (t *RuleTable) Len() int {
	return len(t.rules)
}

// match is a helper for building contribution lists inside evaluators.
func match(contribs []ScoreContribution, ok bool, evidence string, weight float64) []ScoreContribution {
	if !ok {
		return contribs
	}
	return append(contribs, ScoreContribution{Evidence: evidence, Weight: weight})
}

// DefaultRuleTable builds the bundled diagnosis rule set.
func DefaultRuleTable() *RuleTable {
	t := NewRuleTable()

	t.Add(DiagnosisRule{
		ID:           "DX-MI",
		Diagnosis:    "Myocardial Infarction",
		ICDCode:      "I21.9",
		AgeSensitive: true,
		Gender:       domain.GenderMale,
		Evaluate: func(obs *domain.ClinicalObservationSet) []ScoreContribution {
			var c []ScoreContribution
			c = match(c, obs.HasSymptom("chest pain"), "chest pain", 0.4)
			c = match(c, obs.HasSymptom("shortness of breath"), "shortness of breath", 0.2)
			c = match(c, obs.HasSymptom("nausea"), "nausea", 0.1)
			c = match(c, obs.Age > 50, "age over 50", 0.2)
			c = match(c, domain.GenderMale.Matches(obs.Gender), "male gender", 0.1)
			return c
		},
	})

	t.Add(DiagnosisRule{
		ID:        "DX-PNA",
		Diagnosis: "Pneumonia",
		ICDCode:   "J18.9",
		Evaluate: func(obs *domain.ClinicalObservationSet) []ScoreContribution {
			var c []ScoreContribution
			c = match(c, obs.HasSymptom("cough"), "cough", 0.3)
			c = match(c, obs.HasSymptom("fever"), "fever", 0.3)
			c = match(c, obs.HasSymptom("shortness of breath"), "shortness of breath", 0.2)
			if temp, ok := obs.Vital("temperature"); ok && temp > 100.4 {
				c = append(c, ScoreContribution{Evidence: "temperature above 100.4F", Weight: 0.2})
			}
			return c
		},
	})

	t.Add(DiagnosisRule{
		ID:           "DX-T2DM",
		Diagnosis:    "Type 2 Diabetes",
		ICDCode:      "E11.9",
		AgeSensitive: true,
		Evaluate: func(obs *domain.ClinicalObservationSet) []ScoreContribution {
			var c []ScoreContribution
			c = match(c, obs.HasSymptom("frequent urination"), "frequent urination", 0.2)
			c = match(c, obs.HasSymptom("excessive thirst"), "excessive thirst", 0.2)
			c = match(c, obs.HasSymptom("fatigue"), "fatigue", 0.1)
			c = match(c, obs.Age > 45, "age over 45", 0.2)
			if glucose, ok := obs.LabValue("glucose"); ok && glucose > 126 {
				c = append(c, ScoreContribution{Evidence: "fasting glucose above 126", Weight: 0.4})
			}
			return c
		},
	})

	t.Add(DiagnosisRule{
		ID:        "DX-GERD",
		Diagnosis: "Gastroesophageal Reflux Disease",
		ICDCode:   "K21.9",
		Evaluate: func(obs *domain.ClinicalObservationSet) []ScoreContribution {
			var c []ScoreContribution
			c = match(c, obs.HasSymptom("heartburn"), "heartburn", 0.4)
			c = match(c, obs.HasSymptom("chest pain"), "chest pain", 0.2)
			c = match(c, obs.HasSymptom("regurgitation"), "regurgitation", 0.3)
			c = match(c, obs.HasSymptom("difficulty swallowing"), "difficulty swallowing", 0.1)
			return c
		},
	})

	t.Add(DiagnosisRule{
		ID:        "DX-MIG",
		Diagnosis: "Migraine",
		ICDCode:   "G43.9",
		Gender:    domain.GenderFemale,
		Evaluate: func(obs *domain.ClinicalObservationSet) []ScoreContribution {
			var c []ScoreContribution
			c = match(c, obs.HasSymptom("headache"), "headache", 0.4)
			c = match(c, obs.HasSymptom("nausea"), "nausea", 0.2)
			c = match(c, obs.HasSymptom("light sensitivity"), "light sensitivity", 0.2)
			c = match(c, domain.GenderFemale.Matches(obs.Gender), "female gender", 0.1)
			c = match(c, obs.Age >= 15 && obs.Age <= 55, "age 15-55", 0.1)
			return c
		},
	})

	t.Add(DiagnosisRule{
		ID:           "DX-HTN",
		Diagnosis:    "Hypertension",
		ICDCode:      "I10",
		AgeSensitive: true,
		Evaluate: func(obs *domain.ClinicalObservationSet) []ScoreContribution {
			var c []ScoreContribution
			if sys, ok := obs.Vital("systolic_bp"); ok && sys >= 140 {
				c = append(c, ScoreContribution{Evidence: "systolic BP at or above 140", Weight: 0.4})
			}
			if dia, ok := obs.Vital("diastolic_bp"); ok && dia >= 90 {
				c = append(c, ScoreContribution{Evidence: "diastolic BP at or above 90", Weight: 0.2})
			}
			c = match(c, obs.HasSymptom("headache"), "headache", 0.1)
			c = match(c, obs.HasHistory("hypertension"), "history of hypertension", 0.2)
			c = match(c, obs.Age > 50, "age over 50", 0.1)
			return c
		},
	})

	t.Add(DiagnosisRule{
		ID:        "DX-ANEMIA",
		Diagnosis: "Iron Deficiency Anemia",
		ICDCode:   "D50.9",
		Gender:    domain.GenderFemale,
		Evaluate: func(obs *domain.ClinicalObservationSet) []ScoreContribution {
			var c []ScoreContribution
			c = match(c, obs.HasSymptom("fatigue"), "fatigue", 0.3)
			c = match(c, obs.HasSymptom("pallor"), "pallor", 0.2)
			c = match(c, obs.HasSymptom("dizziness"), "dizziness", 0.1)
			if hgb, ok := obs.LabValue("hemoglobin"); ok && hgb < 12 {
				c = append(c, ScoreContribution{Evidence: "hemoglobin below 12", Weight: 0.4})
			}
			return c
		},
	})

	return t
}

// urgentDiagnoses are conditions whose presence in a differential
// forces URGENT case handling.
var urgentDiagnoses = map[string]bool{
	"Myocardial Infarction": true,
	"Stroke":                true,
	"Sepsis":                true,
	"Pulmonary Embolism":    true,
}

// moderateUrgencyDiagnoses get a MODERATE urgency annotation.
var moderateUrgencyDiagnoses = map[string]bool{
	"Pneumonia":       true,
	"Type 2 Diabetes": true,
	"Hypertension":    true,
}

// UrgencyFor maps a diagnosis name to its case urgency.
func UrgencyFor(diagnosis string) domain.UrgencyLevel {
	if urgentDiagnoses[diagnosis] {
		return domain.UrgencyUrgent
	}
	if moderateUrgencyDiagnoses[diagnosis] {
		return domain.UrgencyModerate
	}
	return domain.UrgencyRoutine
}
