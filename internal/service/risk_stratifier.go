package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

// Risk score thresholds.
const (
	highRiskThreshold     = 6
	moderateRiskThreshold = 3
)

// chronicConditions maps history keywords to their risk contribution.
// Each condition type contributes at most once regardless of how many
// history entries mention it.
var chronicConditions = []string{
	"diabetes",
	"hypertension",
	"heart disease",
	"copd",
	"asthma",
	"kidney disease",
	"cancer",
}

// redFlagSymptoms maps symptom keywords to their score weight.
type redFlag struct {
	Keyword string
	Weight  int
	Label   string
}

var redFlagSymptoms = []redFlag{
	{Keyword: "chest pain", Weight: 3, Label: "chest pain"},
	{Keyword: "shortness of breath", Weight: 2, Label: "dyspnea"},
	{Keyword: "severe headache", Weight: 2, Label: "severe headache"},
}

// RiskStratifier computes an additive risk score from age, red-flag
// symptoms, and chronic conditions.
type RiskStratifier struct {
	logger *logrus.Logger
}

// NewRiskStratifier creates a risk stratifier.
func NewRiskStratifier(logger *logrus.Logger) *RiskStratifier {
	return &RiskStratifier{logger: logger}
}

// Stratify scores the observation set. Age over 65 adds 2, over 80
// adds 1 more; each red-flag symptom and chronic condition adds its
// weight once.
func (s *RiskStratifier) Stratify(obs *domain.ClinicalObservationSet) domain.RiskAssessment {
	score := 0
	var factors []string

	if obs.Age > 65 {
		score += 2
		factors = append(factors, fmt.Sprintf("age %d (over 65)", obs.Age))
	}
	if obs.Age > 80 {
		score++
		factors = append(factors, "advanced age (over 80)")
	}

	for _, rf := range redFlagSymptoms {
		if obs.HasSymptom(rf.Keyword) {
			score += rf.Weight
			factors = append(factors, rf.Label)
		}
	}

	for _, cond := range chronicConditions {
		if obs.HasHistory(cond) {
			score++
			factors = append(factors, "history of "+cond)
		}
	}

	// Vital names are sorted so identical runs list factors in the
	// same order.
	vitalNames := make([]string, 0, len(obs.VitalStatus))
	for name := range obs.VitalStatus {
		vitalNames = append(vitalNames, name)
	}
	sort.Strings(vitalNames)
	for _, name := range vitalNames {
		if status := obs.VitalStatus[name]; status == "SEVERE_HYPOXIA" || status == "HYPOTENSION" {
			score++
			factors = append(factors, strings.ToLower(status)+" ("+name+")")
		}
	}

	if len(obs.CriticalLabs) > 0 {
		score++
		factors = append(factors, "critical lab values: "+strings.Join(obs.CriticalLabs, ", "))
	}

	level := domain.RiskLow
	switch {
	case score >= highRiskThreshold:
		level = domain.RiskHigh
	case score >= moderateRiskThreshold:
		level = domain.RiskModerate
	}

	s.logger.WithFields(logrus.Fields{
		"score":   score,
		"level":   level,
		"factors": len(factors),
	}).Info("Risk stratification complete")

	return domain.RiskAssessment{
		Score:             score,
		Level:             level,
		Factors:           factors,
		RecommendedAction: level.RecommendedAction(),
	}
}
