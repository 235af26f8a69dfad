package service

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// Cost heuristic constants, per item.
const (
	baseItemCost        = 25.0
	controlledSurcharge = 15.0
	brandOnlyMultiplier = 2.5
)

// dosagePattern accepts a numeric amount followed by a recognized unit.
var dosagePattern = regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*(mg|mcg|units|mL|tablets?|capsules?)\b`)

// PrescriptionDrafter converts medication recommendations into a
// validated prescription document. Validations are independent: every
// failure is recorded on its item and drafting always completes.
type PrescriptionDrafter struct {
	registry     *knowledge.MedicationRegistry
	interactions *knowledge.InteractionTable
	logger       *logrus.Logger
}

// NewPrescriptionDrafter creates a prescription drafter.
func NewPrescriptionDrafter(registry *knowledge.MedicationRegistry, interactions *knowledge.InteractionTable, logger *logrus.Logger) *PrescriptionDrafter {
	return &PrescriptionDrafter{registry: registry, interactions: interactions, logger: logger}
}

// Draft builds the prescription document for the plan's medication
// recommendations. The document is marked invalid when any item fails
// a validation, but all items are still drafted and formatted.
func (d *PrescriptionDrafter) Draft(obs *domain.ClinicalObservationSet, plan *domain.TreatmentPlan) *domain.PrescriptionDocument {
	doc := &domain.PrescriptionDocument{
		PrescriptionID: newPrescriptionID(),
		IssuedAt:       time.Now().UTC(),
	}

	for _, rec := range plan.Recommendations {
		if rec.Medication == "" {
			continue
		}
		doc.Items = append(doc.Items, d.draftItem(obs, rec))
	}

	doc.Valid = true
	for _, item := range doc.Items {
		if !item.Valid() {
			doc.Valid = false
			break
		}
	}
	doc.EstimatedCost = estimateCost(doc.Items)
	doc.Formatted = formatDocument(doc, obs)

	d.logger.WithFields(logrus.Fields{
		"prescription_id": doc.PrescriptionID,
		"items":           len(doc.Items),
		"valid":           doc.Valid,
		"estimated_cost":  doc.EstimatedCost,
	}).Info("Prescription draft complete")

	return doc
}

func (d *PrescriptionDrafter) draftItem(obs *domain.ClinicalObservationSet, rec domain.TreatmentRecommendation) domain.PrescriptionItem {
	item := domain.PrescriptionItem{
		MedicationName: rec.Medication,
		Dosage:         rec.Dosage,
		Duration:       rec.Duration,
		Instructions:   rec.Notes,
		Quantity:       30,
		Refills:        2,
		AllowGeneric:   true,
	}

	if info, ok := d.registry.Lookup(rec.Medication); ok {
		item.GenericName = info.GenericName
		item.Form = info.Form
		item.RxNormCode = info.RxNormCode
		item.DEASchedule = info.DEASchedule
		item.Controlled = info.Controlled()
		if len(info.Strengths) > 0 {
			item.Strength = matchStrength(rec.Dosage, info.Strengths)
		}
		if info.BrandOnly {
			item.AllowGeneric = false
		}
	} else {
		item.Errors = append(item.Errors, "medication not found in registry")
	}

	// Controlled substances get no automatic refills.
	if item.Controlled {
		item.Refills = 0
	}

	d.validateItem(obs, &item)
	return item
}

// validateItem runs every item-level check. Checks are independent and
// each failure appends its own error without short-circuiting.
func (d *PrescriptionDrafter) validateItem(obs *domain.ClinicalObservationSet, item *domain.PrescriptionItem) {
	if item.Dosage == "" || !dosagePattern.MatchString(item.Dosage) {
		item.Errors = append(item.Errors, fmt.Sprintf("invalid dosage format: %q", item.Dosage))
	}

	if item.Quantity < 1 {
		item.Errors = append(item.Errors, fmt.Sprintf("quantity must be at least 1, got %d", item.Quantity))
	}

	if info, ok := d.registry.Lookup(item.MedicationName); ok {
		if obs.Age < 18 && !info.PediatricSafe {
			item.Errors = append(item.Errors, "not established as safe for patients under 18")
		}
		if obs.Age > 65 && info.HighRiskElderly {
			item.Errors = append(item.Errors, "high risk in patients over 65 (Beers criteria)")
		}
	}

	// Allergies are matched against both the prescribed name and the
	// enriched generic name, so a brand prescription cannot slip past
	// a generic-name allergy.
	for _, allergy := range obs.Allergies {
		a := strings.ToLower(strings.TrimSpace(allergy))
		if a == "" {
			continue
		}
		for _, name := range []string{item.MedicationName, item.GenericName} {
			med := strings.ToLower(strings.TrimSpace(name))
			if med != "" && (strings.Contains(med, a) || strings.Contains(a, med)) {
				item.Errors = append(item.Errors, fmt.Sprintf("allergy conflict: %s", allergy))
				break
			}
		}
	}

	for _, current := range obs.Medications {
		inter, ok := d.interactions.Lookup(item.MedicationName, current)
		if !ok && item.GenericName != "" {
			inter, ok = d.interactions.Lookup(item.GenericName, current)
		}
		if ok {
			item.Errors = append(item.Errors, fmt.Sprintf("interaction with %s: %s", current, inter.Message))
		}
	}
}

// matchStrength picks the registry strength embedded in the dosage
// string, falling back to the lowest available strength.
func matchStrength(dosage string, strengths []string) string {
	d := strings.ToLower(dosage)
	for _, s := range strengths {
		if strings.Contains(d, strings.ToLower(s)) {
			return s
		}
	}
	return strengths[0]
}

// estimateCost sums the per-item heuristic: base cost, controlled
// surcharge, and a brand-only multiplier, rounded to cents.
func estimateCost(items []domain.PrescriptionItem) float64 {
	var total float64
	for _, item := range items {
		cost := baseItemCost
		if item.Controlled {
			cost += controlledSurcharge
		}
		if !item.AllowGeneric {
			cost *= brandOnlyMultiplier
		}
		total += cost
	}
	return math.Round(total*100) / 100
}

// formatDocument renders the fixed-layout prescription text: header,
// patient block, drafted items, and the signature block.
func formatDocument(doc *domain.PrescriptionDocument, obs *domain.ClinicalObservationSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PRESCRIPTION %s\n", doc.PrescriptionID)
	fmt.Fprintf(&b, "Issued: %s\n", doc.IssuedAt.Format("2006-01-02"))
	b.WriteString(strings.Repeat("-", 40) + "\n")

	fmt.Fprintf(&b, "Patient: %s (%s)\n", obs.PatientName, obs.PatientID)
	fmt.Fprintf(&b, "Age: %d", obs.Age)
	if obs.Gender != "" {
		fmt.Fprintf(&b, "  Gender: %s", obs.Gender)
	}
	b.WriteString("\n")
	if len(obs.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(obs.Allergies, ", "))
	} else {
		b.WriteString("Allergies: no known drug allergies\n")
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")
	for i, item := range doc.Items {
		name := item.MedicationName
		if item.GenericName != "" && !strings.EqualFold(item.GenericName, name) {
			name = fmt.Sprintf("%s (%s)", name, item.GenericName)
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, name, item.Strength)
		fmt.Fprintf(&b, "   Sig: %s\n", item.Dosage)
		if item.Duration != "" {
			fmt.Fprintf(&b, "   Duration: %s\n", item.Duration)
		}
		fmt.Fprintf(&b, "   Qty: %d  Refills: %d\n", item.Quantity, item.Refills)
		if item.Controlled {
			fmt.Fprintf(&b, "   DEA Schedule: %s - no refills\n", item.DEASchedule)
		}
		for _, e := range item.Errors {
			fmt.Fprintf(&b, "   !! %s\n", e)
		}
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Estimated cost: $%.2f\n", doc.EstimatedCost)
	if !doc.Valid {
		b.WriteString("STATUS: REQUIRES PHYSICIAN REVIEW\n")
	}
	b.WriteString("\n")
	b.WriteString("Prescriber signature: ______________________\n")
	b.WriteString("Date: ____________  DEA #: ________________\n")
	return b.String()
}

// newPrescriptionID builds an "RX-" prefixed short identifier.
func newPrescriptionID() string {
	return "RX-" + strings.ToUpper(uuid.New().String()[:8])
}
