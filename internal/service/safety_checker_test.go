package service

import (
	"testing"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

func newTestChecker() *SafetyChecker {
	return NewSafetyChecker(knowledge.DefaultInteractionTable(), knowledge.DefaultMedicationRegistry(), testLogger())
}

func planWith(meds ...string) *domain.TreatmentPlan {
	plan := &domain.TreatmentPlan{}
	for _, m := range meds {
		plan.Recommendations = append(plan.Recommendations, domain.TreatmentRecommendation{
			Category:   "Medication",
			Medication: m,
		})
	}
	return plan
}

func alertKinds(alerts []domain.SafetyAlert) map[domain.AlertKind]int {
	kinds := make(map[domain.AlertKind]int)
	for _, a := range alerts {
		kinds[a.Kind]++
	}
	return kinds
}

func TestCheckAllergyConflict(t *testing.T) {
	checker := newTestChecker()
	obs := &domain.ClinicalObservationSet{
		Age:       45,
		Allergies: []string{"Lisinopril"},
	}

	alerts := checker.Check(obs, planWith("Lisinopril"))
	kinds := alertKinds(alerts)
	if kinds[domain.AlertAllergy] != 1 {
		t.Fatalf("alerts = %+v, want one allergy alert", alerts)
	}
	if alerts[0].Severity != domain.SeverityCritical {
		t.Errorf("allergy severity = %v, want CRITICAL", alerts[0].Severity)
	}
}

func TestCheckAllergyClassMatch(t *testing.T) {
	checker := newTestChecker()
	obs := &domain.ClinicalObservationSet{
		Age:       30,
		Allergies: []string{"Penicillin"},
	}

	alerts := checker.Check(obs, planWith("Amoxicillin"))
	if alertKinds(alerts)[domain.AlertAllergy] != 1 {
		t.Errorf("penicillin allergy should flag amoxicillin: %+v", alerts)
	}
}

func TestCheckDrugInteraction(t *testing.T) {
	checker := newTestChecker()
	obs := &domain.ClinicalObservationSet{
		Age:         55,
		Medications: []string{"Warfarin"},
	}

	alerts := checker.Check(obs, planWith("Ibuprofen"))
	kinds := alertKinds(alerts)
	if kinds[domain.AlertInteraction] != 1 {
		t.Fatalf("alerts = %+v, want one interaction alert", alerts)
	}
}

func TestCheckGeriatricPrecaution(t *testing.T) {
	checker := newTestChecker()
	obs := &domain.ClinicalObservationSet{Age: 78}

	alerts := checker.Check(obs, planWith("Diphenhydramine"))
	if alertKinds(alerts)[domain.AlertGeriatric] != 1 {
		t.Errorf("diphenhydramine at 78 should raise a geriatric alert: %+v", alerts)
	}

	// Same medication for a younger adult raises nothing.
	young := &domain.ClinicalObservationSet{Age: 40}
	if alerts := checker.Check(young, planWith("Diphenhydramine")); len(alerts) != 0 {
		t.Errorf("no alerts expected at 40: %+v", alerts)
	}
}

func TestCheckPediatricPrecaution(t *testing.T) {
	checker := newTestChecker()
	obs := &domain.ClinicalObservationSet{Age: 9}

	alerts := checker.Check(obs, planWith("Atorvastatin"))
	if alertKinds(alerts)[domain.AlertPediatric] != 1 {
		t.Errorf("atorvastatin at 9 should raise a pediatric alert: %+v", alerts)
	}

	// Pediatric-safe medication passes.
	if alerts := checker.Check(obs, planWith("Amoxicillin")); len(alerts) != 0 {
		t.Errorf("amoxicillin is pediatric-safe: %+v", alerts)
	}
}

func TestCheckNoMedicationsNoAlerts(t *testing.T) {
	checker := newTestChecker()
	obs := &domain.ClinicalObservationSet{Age: 70, Allergies: []string{"sulfa"}}

	plan := &domain.TreatmentPlan{
		Recommendations: []domain.TreatmentRecommendation{{Category: "Supportive"}},
	}
	if alerts := checker.Check(obs, plan); len(alerts) != 0 {
		t.Errorf("supportive-only plan should raise no alerts: %+v", alerts)
	}
}
