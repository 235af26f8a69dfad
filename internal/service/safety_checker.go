package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// SafetyChecker cross-checks planned medications against allergies,
// current medications, and age-based precautions. Alerts annotate the
// plan; nothing is removed here.
type SafetyChecker struct {
	interactions *knowledge.InteractionTable
	registry     *knowledge.MedicationRegistry
	logger       *logrus.Logger
}

// NewSafetyChecker creates a safety checker.
func NewSafetyChecker(interactions *knowledge.InteractionTable, registry *knowledge.MedicationRegistry, logger *logrus.Logger) *SafetyChecker {
	return &SafetyChecker{interactions: interactions, registry: registry, logger: logger}
}

// Check evaluates every planned medication and returns the full alert
// list. An empty list means no concern was flagged.
func (c *SafetyChecker) Check(obs *domain.ClinicalObservationSet, plan *domain.TreatmentPlan) []domain.SafetyAlert {
	var alerts []domain.SafetyAlert

	for _, rec := range plan.Recommendations {
		if rec.Medication == "" {
			continue
		}
		alerts = append(alerts, c.checkMedication(obs, rec.Medication)...)
	}

	c.logger.WithFields(logrus.Fields{
		"alerts": len(alerts),
	}).Info("Safety check complete")

	return alerts
}

func (c *SafetyChecker) checkMedication(obs *domain.ClinicalObservationSet, medication string) []domain.SafetyAlert {
	var alerts []domain.SafetyAlert
	med := strings.ToLower(strings.TrimSpace(medication))

	// Allergy match is substring in either direction so "penicillin"
	// catches "amoxicillin" class annotations recorded as
	// "penicillin (amoxicillin)".
	for _, allergy := range obs.Allergies {
		a := strings.ToLower(strings.TrimSpace(allergy))
		if a == "" {
			continue
		}
		if strings.Contains(med, a) || strings.Contains(a, med) || c.sharedAllergyClass(a, med) {
			alerts = append(alerts, domain.SafetyAlert{
				Kind:     domain.AlertAllergy,
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("Patient allergy to %s conflicts with planned %s", allergy, medication),
			})
		}
	}

	for _, current := range obs.Medications {
		if inter, ok := c.interactions.Lookup(medication, current); ok {
			alerts = append(alerts, domain.SafetyAlert{
				Kind:     domain.AlertInteraction,
				Severity: inter.Severity,
				Message:  fmt.Sprintf("%s + %s: %s", medication, current, inter.Message),
			})
		}
	}

	info, known := c.registry.Lookup(medication)
	if known {
		if obs.Age > 65 && info.HighRiskElderly {
			alerts = append(alerts, domain.SafetyAlert{
				Kind:     domain.AlertGeriatric,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("%s is high-risk in patients over 65 (Beers criteria)", medication),
			})
		}
		if obs.Age < 18 && !info.PediatricSafe {
			alerts = append(alerts, domain.SafetyAlert{
				Kind:     domain.AlertPediatric,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("%s is not on the pediatric-safe list for patients under 18", medication),
			})
		}
	}

	for _, a := range alerts {
		c.logger.WithFields(logrus.Fields{
			"kind":       a.Kind,
			"severity":   a.Severity,
			"medication": medication,
		}).Warn("Safety alert raised")
	}

	return alerts
}

// allergyClasses maps a recorded allergy class to member medications.
var allergyClasses = map[string][]string{
	"penicillin": {"amoxicillin", "ampicillin"},
	"sulfa":      {"sulfamethoxazole", "sulfasalazine"},
	"nsaid":      {"ibuprofen", "naproxen", "aspirin"},
}

func (c *SafetyChecker) sharedAllergyClass(allergy, medication string) bool {
	for class, members := range allergyClasses {
		if !strings.Contains(allergy, class) {
			continue
		}
		for _, m := range members {
			if strings.Contains(medication, m) {
				return true
			}
		}
	}
	return false
}
