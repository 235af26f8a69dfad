package knowledge

import (
	"strings"
)

// TreatmentGuideline is the first-line plan for one diagnosis.
type TreatmentGuideline struct {
	Diagnosis  string
	Medication string
	Dosage     string
	Duration   string
	Notes      string
	Lifestyle  []string
}

// GuidelineTable resolves a diagnosis to its treatment guideline.
// Lookup tries an exact case-insensitive match first, then a substring
// match in either direction, then falls back to the general guideline.
type GuidelineTable struct {
	entries []TreatmentGuideline
	general TreatmentGuideline
}

// NewGuidelineTable builds a table from entries plus the general
// fallback returned when no entry matches.
func NewGuidelineTable(entries []TreatmentGuideline, general TreatmentGuideline) *GuidelineTable {
	return &GuidelineTable{entries: entries, general: general}
}

// Lookup returns the guideline for the diagnosis and whether a
// specific (non-general) match was found.
func (g *GuidelineTable) Lookup(diagnosis string) (TreatmentGuideline, bool) {
	d := strings.ToLower(strings.TrimSpace(diagnosis))
	if d == "" {
		return g.general, false
	}
	for _, e := range g.entries {
		if strings.ToLower(e.Diagnosis) == d {
			return e, true
		}
	}
	for _, e := range g.entries {
		ed := strings.ToLower(e.Diagnosis)
		if strings.Contains(d, ed) || strings.Contains(ed, d) {
			return e, true
		}
	}
	return g.general, false
}

// General returns the fallback guideline.
func (g *GuidelineTable) General() TreatmentGuideline {
	return g.general
}

// DefaultGuidelineTable builds the bundled treatment guideline set.
func DefaultGuidelineTable() *GuidelineTable {
	entries := []TreatmentGuideline{
		{
			Diagnosis:  "Hypertension",
			Medication: "Lisinopril",
			Dosage:     "10mg once daily",
			Duration:   "Ongoing",
			Notes:      "ACE inhibitor, first-line for uncomplicated hypertension. Monitor kidney function and potassium.",
			Lifestyle:  []string{"Reduce sodium intake", "Regular aerobic exercise", "Limit alcohol consumption"},
		},
		{
			Diagnosis:  "Type 2 Diabetes",
			Medication: "Metformin",
			Dosage:     "500mg twice daily",
			Duration:   "Ongoing",
			Notes:      "First-line for type 2 diabetes. Take with meals to reduce GI upset.",
			Lifestyle:  []string{"Carbohydrate-controlled diet", "Weight management", "Daily glucose monitoring"},
		},
		{
			Diagnosis:  "Pneumonia",
			Medication: "Amoxicillin",
			Dosage:     "500mg three times daily",
			Duration:   "7 days",
			Notes:      "Empiric therapy for community-acquired pneumonia in otherwise healthy adults.",
			Lifestyle:  []string{"Rest and hydration", "Avoid smoking and secondhand smoke"},
		},
		{
			Diagnosis:  "Gastroesophageal Reflux Disease",
			Medication: "Omeprazole",
			Dosage:     "20mg once daily",
			Duration:   "8 weeks",
			Notes:      "Take 30 minutes before the first meal of the day.",
			Lifestyle:  []string{"Avoid late-night meals", "Elevate head of bed", "Limit caffeine and acidic foods"},
		},
		{
			Diagnosis:  "Migraine",
			Medication: "Ibuprofen",
			Dosage:     "400mg as needed",
			Duration:   "As needed",
			Notes:      "Take at headache onset. Consider preventive therapy if more than four episodes per month.",
			Lifestyle:  []string{"Maintain regular sleep schedule", "Identify and avoid dietary triggers", "Stay hydrated"},
		},
		{
			Diagnosis:  "Iron Deficiency Anemia",
			Medication: "Ferrous Sulfate",
			Dosage:     "325mg once daily",
			Duration:   "3 months",
			Notes:      "Take on an empty stomach with vitamin C to improve absorption. Recheck hemoglobin in 4 weeks.",
			Lifestyle:  []string{"Iron-rich diet", "Avoid tea and coffee with meals"},
		},
	}

	general := TreatmentGuideline{
		Diagnosis:  "General",
		Medication: "",
		Dosage:     "",
		Duration:   "",
		Notes:      "Supportive care and symptom management. Physician review required before any medication is started.",
		Lifestyle:  []string{"Rest and adequate hydration", "Monitor symptoms and seek care if worsening"},
	}

	return NewGuidelineTable(entries, general)
}
