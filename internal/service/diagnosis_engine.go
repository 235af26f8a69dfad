package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
	"github.com/clinical-reasoning-server/internal/knowledge"
)

const (
	// scoreThreshold is the raw rule score a candidate must exceed to
	// enter the differential.
	scoreThreshold = 0.1

	// elderlyAgeBoost scales age-sensitive diagnoses for patients over 65.
	elderlyAgeBoost = 1.2

	// genderMatchBoost scales gender-associated diagnoses when the
	// patient's gender matches.
	genderMatchBoost = 1.1

	// maxCandidates caps the differential length.
	maxCandidates = 5

	// confidenceCap bounds engine confidence.
	confidenceCap = 0.95
)

// DiagnosisEngine ranks candidate diagnoses by evaluating the rule
// table against an observation set.
type DiagnosisEngine struct {
	rules  *knowledge.RuleTable
	logger *logrus.Logger
}

// NewDiagnosisEngine creates a diagnosis engine over the given rule
// table.
func NewDiagnosisEngine(rules *knowledge.RuleTable, logger *logrus.Logger) *DiagnosisEngine {
	return &DiagnosisEngine{rules: rules, logger: logger}
}

// scoredCandidate pairs a rule with its raw evidence score before
// normalization.
type scoredCandidate struct {
	rule     knowledge.DiagnosisRule
	score    float64
	evidence []string
}

// Diagnose evaluates every rule, applies demographic adjustments,
// normalizes the surviving scores into probabilities, and returns the
// ranked differential. An empty differential is flagged, never an
// error.
func (e *DiagnosisEngine) Diagnose(obs *domain.ClinicalObservationSet) domain.DifferentialDiagnosis {
	var scored []scoredCandidate

	for _, rule := range e.rules.Rules() {
		contribs := rule.Evaluate(obs)
		if len(contribs) == 0 {
			continue
		}

		var score float64
		evidence := make([]string, 0, len(contribs))
		for _, c := range contribs {
			score += c.Weight
			evidence = append(evidence, c.Evidence)
		}
		// Raw rule scores are evidence fractions; an injected table
		// whose weights sum past 1 is clamped rather than trusted.
		if score > 1 {
			score = 1
		} else if score < 0 {
			score = 0
		}

		e.logger.WithFields(logrus.Fields{
			"rule":      rule.ID,
			"diagnosis": rule.Diagnosis,
			"score":     score,
			"evidence":  len(evidence),
		}).Debug("Diagnosis rule evaluated")

		// The threshold is strict: a score of exactly 0.1 (a single
		// weak finding such as an age-band match) is not enough.
		if score <= scoreThreshold {
			continue
		}

		// Demographic adjustments apply only to candidates that
		// already cleared the threshold on clinical evidence.
		if rule.AgeSensitive && obs.Age > 65 {
			score *= elderlyAgeBoost
		}
		if rule.Gender != "" && rule.Gender.Matches(obs.Gender) {
			score *= genderMatchBoost
		}

		scored = append(scored, scoredCandidate{rule: rule, score: score, evidence: evidence})
	}

	if len(scored) == 0 {
		e.logger.Warn("No diagnosis candidate cleared the evidence threshold")
		return domain.DifferentialDiagnosis{
			InsufficientEvidence: true,
			Urgency:              domain.UrgencyRoutine,
			Reasoning:            "Insufficient evidence: no candidate diagnosis cleared the scoring threshold.",
		}
	}

	// Stable sort keeps rule registration order as the tie-break.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	// Probabilities are normalized over every surviving candidate;
	// the length cap only trims the reported tail.
	var total float64
	for _, s := range scored {
		total += s.score
	}
	if len(scored) > maxCandidates {
		scored = scored[:maxCandidates]
	}

	candidates := make([]domain.DiagnosisCandidate, 0, len(scored))
	for _, s := range scored {
		candidates = append(candidates, domain.DiagnosisCandidate{
			Diagnosis:          s.rule.Diagnosis,
			ICDCode:            s.rule.ICDCode,
			Probability:        s.score / total,
			SupportingEvidence: s.evidence,
			Reasoning:          fmt.Sprintf("Matched %d finding(s): %s", len(s.evidence), strings.Join(s.evidence, "; ")),
		})
	}

	dd := domain.DifferentialDiagnosis{
		Candidates: candidates,
		Confidence: engineConfidence(candidates),
		Urgency:    differentialUrgency(candidates),
		Reasoning: fmt.Sprintf("Ranked %d candidate(s); leading diagnosis %s (%.0f%%).",
			len(candidates), candidates[0].Diagnosis, candidates[0].Probability*100),
	}

	e.logger.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"top":        candidates[0].Diagnosis,
		"confidence": dd.Confidence,
		"urgency":    dd.Urgency,
	}).Info("Differential diagnosis complete")

	return dd
}

// engineConfidence blends the leading probability with a breadth bonus
// for fuller differentials, capped at confidenceCap.
func engineConfidence(candidates []domain.DiagnosisCandidate) float64 {
	breadth := float64(len(candidates)) / float64(maxCandidates)
	if breadth > 1 {
		breadth = 1
	}
	c := candidates[0].Probability + breadth*0.1
	if c > confidenceCap {
		c = confidenceCap
	}
	return c
}

// differentialUrgency is the highest urgency across all candidates, so
// an urgent condition anywhere in the differential escalates the case.
func differentialUrgency(candidates []domain.DiagnosisCandidate) domain.UrgencyLevel {
	urgency := domain.UrgencyRoutine
	for _, c := range candidates {
		switch knowledge.UrgencyFor(c.Diagnosis) {
		case domain.UrgencyUrgent:
			return domain.UrgencyUrgent
		case domain.UrgencyModerate:
			urgency = domain.UrgencyModerate
		}
	}
	return urgency
}
