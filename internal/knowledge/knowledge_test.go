package knowledge

import (
	"testing"

	"github.com/clinical-reasoning-server/internal/domain"
)

func TestDefaultRuleTableScoring(t *testing.T) {
	table := DefaultRuleTable()
	if table.Len() == 0 {
		t.Fatal("default rule table is empty")
	}

	obs := &domain.ClinicalObservationSet{
		Age:      62,
		Gender:   "Male",
		Symptoms: []string{"chest pain", "shortness of breath", "nausea"},
	}

	var mi *DiagnosisRule
	for i := range table.Rules() {
		if table.Rules()[i].ID == "DX-MI" {
			mi = &table.Rules()[i]
			break
		}
	}
	if mi == nil {
		t.Fatal("DX-MI rule not registered")
	}

	contribs := mi.Evaluate(obs)
	var total float64
	for _, c := range contribs {
		total += c.Weight
	}
	// chest pain 0.4 + SOB 0.2 + nausea 0.1 + age>50 0.2 + male 0.1
	if total < 0.99 || total > 1.01 {
		t.Errorf("MI raw score = %v, want 1.0", total)
	}
	if len(contribs) != 5 {
		t.Errorf("MI contributions = %d, want 5", len(contribs))
	}
}

func TestRuleLabThresholds(t *testing.T) {
	table := DefaultRuleTable()
	obs := &domain.ClinicalObservationSet{
		Age:       50,
		LabValues: map[string]float64{"glucose": 140},
		Symptoms:  []string{"fatigue"},
	}

	for _, rule := range table.Rules() {
		if rule.ID != "DX-T2DM" {
			continue
		}
		contribs := rule.Evaluate(obs)
		found := false
		for _, c := range contribs {
			if c.Weight == 0.4 {
				found = true
			}
		}
		if !found {
			t.Error("glucose above 126 should contribute 0.4")
		}
		return
	}
	t.Fatal("DX-T2DM rule not registered")
}

func TestUrgencyFor(t *testing.T) {
	tests := []struct {
		diagnosis string
		want      domain.UrgencyLevel
	}{
		{"Myocardial Infarction", domain.UrgencyUrgent},
		{"Pneumonia", domain.UrgencyModerate},
		{"Migraine", domain.UrgencyRoutine},
		{"", domain.UrgencyRoutine},
	}
	for _, tt := range tests {
		if got := UrgencyFor(tt.diagnosis); got != tt.want {
			t.Errorf("UrgencyFor(%q) = %v, want %v", tt.diagnosis, got, tt.want)
		}
	}
}

func TestGuidelineLookup(t *testing.T) {
	table := DefaultGuidelineTable()

	tests := []struct {
		name      string
		diagnosis string
		wantMed   string
		wantMatch bool
	}{
		{"exact", "Hypertension", "Lisinopril", true},
		{"case insensitive", "hypertension", "Lisinopril", true},
		{"substring", "Essential Hypertension", "Lisinopril", true},
		{"diabetes", "Type 2 Diabetes", "Metformin", true},
		{"unknown falls back to general", "Restless Leg Syndrome", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, matched := table.Lookup(tt.diagnosis)
			if matched != tt.wantMatch {
				t.Errorf("matched = %v, want %v", matched, tt.wantMatch)
			}
			if g.Medication != tt.wantMed {
				t.Errorf("Medication = %q, want %q", g.Medication, tt.wantMed)
			}
		})
	}
}

func TestMedicationRegistryLookup(t *testing.T) {
	reg := DefaultMedicationRegistry()

	m, ok := reg.Lookup("Lisinopril")
	if !ok || m.GenericName != "lisinopril" {
		t.Fatalf("Lookup(Lisinopril) = %v, %v", m, ok)
	}
	if m.Controlled() {
		t.Error("lisinopril should not be controlled")
	}

	// brand name resolves to the same record
	brand, ok := reg.Lookup("zestril")
	if !ok || brand.GenericName != "lisinopril" {
		t.Errorf("brand lookup failed: %v, %v", brand, ok)
	}

	hc, ok := reg.Lookup("hydrocodone")
	if !ok || !hc.Controlled() || hc.DEASchedule != "CII" {
		t.Errorf("hydrocodone = %+v, want controlled CII", hc)
	}

	if _, ok := reg.Lookup("unobtainium"); ok {
		t.Error("unknown medication should not resolve")
	}

	dph, ok := reg.Lookup("Benadryl")
	if !ok || !dph.HighRiskElderly {
		t.Error("diphenhydramine should be flagged high-risk for elderly")
	}

	glargine, ok := reg.Lookup("Lantus")
	if !ok || !glargine.BrandOnly {
		t.Error("insulin glargine should be flagged brand-only")
	}
}

func TestInteractionTableUnorderedLookup(t *testing.T) {
	table := DefaultInteractionTable()

	fwd, okFwd := table.Lookup("warfarin", "aspirin")
	rev, okRev := table.Lookup("Aspirin", "  WARFARIN ")
	if !okFwd || !okRev {
		t.Fatal("interaction lookup should match in either order")
	}
	if fwd.Message != rev.Message {
		t.Error("order should not affect the resolved interaction")
	}
	if fwd.Severity != domain.SeverityCritical {
		t.Errorf("warfarin+aspirin severity = %v, want CRITICAL", fwd.Severity)
	}

	if _, ok := table.Lookup("acetaminophen", "omeprazole"); ok {
		t.Error("unexpected interaction for benign pair")
	}
}
