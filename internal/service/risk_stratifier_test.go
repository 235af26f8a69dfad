package service

import (
	"testing"

	"github.com/clinical-reasoning-server/internal/domain"
)

func TestStratifyScoring(t *testing.T) {
	stratifier := NewRiskStratifier(testLogger())

	tests := []struct {
		name      string
		obs       domain.ClinicalObservationSet
		wantScore int
		wantLevel domain.RiskLevel
	}{
		{
			name:      "healthy young adult",
			obs:       domain.ClinicalObservationSet{Age: 28, Symptoms: []string{"headache"}},
			wantScore: 0,
			wantLevel: domain.RiskLow,
		},
		{
			name: "elderly with chest pain",
			obs: domain.ClinicalObservationSet{
				Age:      72,
				Symptoms: []string{"chest pain"},
			},
			// age>65 (2) + chest pain (3)
			wantScore: 5,
			wantLevel: domain.RiskModerate,
		},
		{
			name: "very elderly with chest pain and dyspnea",
			obs: domain.ClinicalObservationSet{
				Age:      84,
				Symptoms: []string{"chest pain", "shortness of breath"},
			},
			// age>65 (2) + age>80 (1) + chest pain (3) + dyspnea (2)
			wantScore: 8,
			wantLevel: domain.RiskHigh,
		},
		{
			name: "chronic conditions count once per type",
			obs: domain.ClinicalObservationSet{
				Age:            50,
				MedicalHistory: []string{"Type 2 Diabetes", "diabetes mellitus", "Hypertension"},
			},
			// diabetes (1, despite two entries) + hypertension (1)
			wantScore: 2,
			wantLevel: domain.RiskLow,
		},
		{
			name: "severe headache and critical labs",
			obs: domain.ClinicalObservationSet{
				Age:          40,
				Symptoms:     []string{"severe headache"},
				CriticalLabs: []string{"glucose"},
			},
			// severe headache (2) + critical labs (1)
			wantScore: 3,
			wantLevel: domain.RiskModerate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stratifier.Stratify(&tt.obs)
			if got.Score != tt.wantScore {
				t.Errorf("Score = %d, want %d (factors: %v)", got.Score, tt.wantScore, got.Factors)
			}
			if got.Level != tt.wantLevel {
				t.Errorf("Level = %v, want %v", got.Level, tt.wantLevel)
			}
			if got.RecommendedAction != tt.wantLevel.RecommendedAction() {
				t.Errorf("RecommendedAction = %q, want the %v action", got.RecommendedAction, tt.wantLevel)
			}
		})
	}
}

func TestStratifyAbnormalVitalsContribute(t *testing.T) {
	stratifier := NewRiskStratifier(testLogger())
	obs := domain.ClinicalObservationSet{
		Age:         55,
		VitalStatus: map[string]string{"oxygen_saturation": "SEVERE_HYPOXIA"},
	}

	got := stratifier.Stratify(&obs)
	if got.Score != 1 {
		t.Errorf("Score = %d, want 1 for severe hypoxia", got.Score)
	}
}

func TestStratifyFactorOrderDeterministic(t *testing.T) {
	stratifier := NewRiskStratifier(testLogger())
	obs := domain.ClinicalObservationSet{
		Age: 55,
		VitalStatus: map[string]string{
			"systolic_bp":       "HYPOTENSION",
			"oxygen_saturation": "SEVERE_HYPOXIA",
			"diastolic_bp":      "HYPOTENSION",
		},
	}

	first := stratifier.Stratify(&obs)
	for i := 0; i < 5; i++ {
		again := stratifier.Stratify(&obs)
		for j, f := range first.Factors {
			if again.Factors[j] != f {
				t.Fatalf("run %d: factor[%d] = %q, want %q", i, j, again.Factors[j], f)
			}
		}
	}
	want := []string{
		"hypotension (diastolic_bp)",
		"severe_hypoxia (oxygen_saturation)",
		"hypotension (systolic_bp)",
	}
	for i, f := range want {
		if first.Factors[i] != f {
			t.Errorf("factor[%d] = %q, want %q", i, first.Factors[i], f)
		}
	}
}
