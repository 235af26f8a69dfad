package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

// elderlyDoseFactor is the fractional mg-dose reduction applied for
// patients over 65.
const elderlyDoseFactor = 0.75

var mgDosePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)mg`)

// baselineLifestyle applies to every plan regardless of diagnosis.
var baselineLifestyle = []string{
	"Maintain regular sleep schedule (7-9 hours)",
	"Stay adequately hydrated",
	"Avoid tobacco and limit alcohol",
	"Keep up with routine preventive care",
}

// TreatmentPlanner builds a treatment plan for the leading diagnosis
// from the guideline table, then personalizes it to the patient.
type TreatmentPlanner struct {
	guidelines *knowledge.GuidelineTable
	logger     *logrus.Logger
}

// NewTreatmentPlanner creates a treatment planner.
func NewTreatmentPlanner(guidelines *knowledge.GuidelineTable, logger *logrus.Logger) *TreatmentPlanner {
	return &TreatmentPlanner{guidelines: guidelines, logger: logger}
}

// Plan resolves the guideline for the differential's leading diagnosis
// and personalizes dosing and follow-up. An empty differential yields
// the general supportive-care plan.
func (p *TreatmentPlanner) Plan(obs *domain.ClinicalObservationSet, dd *domain.DifferentialDiagnosis) domain.TreatmentPlan {
	primary := ""
	if top := dd.Top(); top != nil {
		primary = top.Diagnosis
	}

	guideline, matched := p.guidelines.Lookup(primary)

	plan := domain.TreatmentPlan{
		PrimaryDiagnosis: primary,
		Lifestyle:        append(append([]string(nil), guideline.Lifestyle...), baselineLifestyle...),
	}

	if guideline.Medication != "" {
		rec := domain.TreatmentRecommendation{
			Category:   "Medication",
			Medication: guideline.Medication,
			Dosage:     guideline.Dosage,
			Duration:   guideline.Duration,
			Notes:      guideline.Notes,
		}
		switch {
		case obs.Age < 18:
			// Pediatric dosing is weight-based and left to the
			// prescriber; the dosage text is not altered here.
			rec.Notes = appendNote(rec.Notes, "Pediatric patient: verify weight-based dosing before prescribing.")
		case obs.Age > 65:
			if reduced, ok := reduceMgDose(rec.Dosage, elderlyDoseFactor); ok {
				rec.Dosage = reduced
				rec.Notes = appendNote(rec.Notes, "Dose reduced 25% for age over 65.")
			}
		}
		plan.Recommendations = append(plan.Recommendations, rec)
	} else {
		plan.Recommendations = append(plan.Recommendations, domain.TreatmentRecommendation{
			Category: "Supportive",
			Notes:    guideline.Notes,
		})
	}

	plan.FollowUp = p.followUpFor(primary, guideline)

	p.logger.WithFields(logrus.Fields{
		"diagnosis":       primary,
		"guideline_match": matched,
		"recommendations": len(plan.Recommendations),
	}).Info("Treatment planning complete")

	return plan
}

// followUpFor derives the follow-up plan from the diagnosis and its
// planned medication.
func (p *TreatmentPlanner) followUpFor(diagnosis string, guideline knowledge.TreatmentGuideline) domain.FollowUpPlan {
	fu := domain.FollowUpPlan{
		Timeline: "2-4 weeks",
		Urgency:  "Routine",
		Tasks:    []string{"Reassess symptoms", "Review medication tolerance"},
	}

	d := strings.ToLower(diagnosis)
	if strings.Contains(d, "diabetes") || strings.Contains(d, "hypertension") {
		fu.Timeline = "1-2 weeks"
		fu.Urgency = "Important"
	}

	med := strings.ToLower(guideline.Medication)
	if strings.Contains(med, "statin") || strings.HasSuffix(med, "vastatin") {
		fu.Labs = append(fu.Labs, "Liver function tests in 6-8 weeks")
	}
	if strings.Contains(strings.ToLower(guideline.Notes), "ace inhibitor") {
		fu.Labs = append(fu.Labs, "Kidney function and potassium within 2 weeks")
	}

	return fu
}

// reduceMgDose rewrites the first mg amount in a dosage string by the
// given factor, e.g. "500mg twice daily" at 0.75 becomes "375mg twice
// daily". Non-mg dosages are left untouched.
func reduceMgDose(dosage string, factor float64) (string, bool) {
	m := mgDosePattern.FindStringSubmatchIndex(dosage)
	if m == nil {
		return dosage, false
	}
	amount, err := strconv.ParseFloat(dosage[m[2]:m[3]], 64)
	if err != nil {
		return dosage, false
	}
	reduced := strconv.FormatFloat(amount*factor, 'f', -1, 64)
	return dosage[:m[2]] + reduced + dosage[m[3]:], true
}

func appendNote(notes, extra string) string {
	if notes == "" {
		return extra
	}
	return notes + " " + extra
}
