package domain

import (
	"testing"
)

func TestRiskLevelIsValid(t *testing.T) {
	tests := []struct {
		name  string
		level RiskLevel
		want  bool
	}{
		{"low", RiskLow, true},
		{"moderate", RiskModerate, true},
		{"high", RiskHigh, true},
		{"empty", RiskLevel(""), false},
		{"unknown", RiskLevel("CRITICAL"), false},
		{"lowercase", RiskLevel("high"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRiskLevelRecommendedAction(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  string
	}{
		{RiskHigh, "Immediate physician evaluation required. Consider emergency department if unstable."},
		{RiskModerate, "Urgent physician evaluation within 24 hours. Monitor closely."},
		{RiskLow, "Routine follow-up as scheduled. Continue monitoring symptoms."},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.RecommendedAction(); got != tt.want {
				t.Errorf("RecommendedAction() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUrgencyLevelIsValid(t *testing.T) {
	tests := []struct {
		name    string
		urgency UrgencyLevel
		want    bool
	}{
		{"routine", UrgencyRoutine, true},
		{"moderate", UrgencyModerate, true},
		{"urgent", UrgencyUrgent, true},
		{"empty", UrgencyLevel(""), false},
		{"unknown", UrgencyLevel("STAT"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.urgency.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStageModeIsValid(t *testing.T) {
	tests := []struct {
		name string
		mode StageMode
		want bool
	}{
		{"full", ModeFull, true},
		{"degraded", ModeDegraded, true},
		{"skipped", ModeSkipped, true},
		{"empty", StageMode(""), false},
		{"unknown", StageMode("partial"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenderMatches(t *testing.T) {
	tests := []struct {
		name    string
		gender  Gender
		patient Gender
		want    bool
	}{
		{"exact", GenderFemale, "Female", true},
		{"case insensitive", GenderMale, "male", true},
		{"mismatch", GenderFemale, "Male", false},
		{"empty patient", GenderFemale, "", false},
		{"whitespace", GenderMale, "  MALE  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.gender.Matches(tt.patient); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.patient, got, tt.want)
			}
		})
	}
}

func TestAlertKindAndSeverity(t *testing.T) {
	for _, k := range []AlertKind{AlertAllergy, AlertInteraction, AlertGeriatric, AlertPediatric} {
		if !k.IsValid() {
			t.Errorf("AlertKind %q should be valid", k)
		}
	}
	if AlertKind("RECALL").IsValid() {
		t.Error("unknown alert kind should be invalid")
	}
	for _, s := range []AlertSeverity{SeverityCritical, SeverityWarning, SeverityInfo} {
		if !s.IsValid() {
			t.Errorf("AlertSeverity %q should be valid", s)
		}
	}
}
