// Package domain contains core business entities and types for the
// clinical reasoning pipeline: differential diagnosis, risk
// stratification, treatment planning, safety checking, and
// prescription drafting.
//
// All rule weights and thresholds carried by the default knowledge
// tables are illustrative sample data, not a validated medical
// knowledge base.
package domain

import (
	"errors"
	"strings"
)

// RiskLevel represents the patient risk stratification result.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// UrgencyLevel annotates how quickly the leading diagnoses should be
// acted on. It is produced by the diagnosis stage and is distinct from
// the RiskLevel computed by the risk stratifier.
type UrgencyLevel string

const (
	UrgencyRoutine  UrgencyLevel = "ROUTINE"
	UrgencyModerate UrgencyLevel = "MODERATE"
	UrgencyUrgent   UrgencyLevel = "URGENT"
)

// AlertKind categorizes safety alerts raised against treatment
// recommendations and prescription items.
type AlertKind string

const (
	AlertAllergy     AlertKind = "ALLERGY"
	AlertInteraction AlertKind = "INTERACTION"
	AlertGeriatric   AlertKind = "GERIATRIC"
	AlertPediatric   AlertKind = "PEDIATRIC"
)

// AlertSeverity grades a safety alert.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "CRITICAL"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityInfo     AlertSeverity = "INFO"
)

// StageName identifies a pipeline stage in status reporting and
// lifecycle events.
type StageName string

const (
	StageAggregate    StageName = "AGGREGATE"
	StageExam         StageName = "EXAM_ANALYSIS"
	StageImaging      StageName = "IMAGING_ANALYSIS"
	StageLab          StageName = "LAB_ANALYSIS"
	StageDiagnose     StageName = "DIAGNOSE"
	StageStratifyRisk StageName = "STRATIFY_RISK"
	StagePlan         StageName = "PLAN_TREATMENT"
	StageSafety       StageName = "CHECK_SAFETY"
	StageDraft        StageName = "DRAFT_PRESCRIPTION"
	StageAssemble     StageName = "ASSEMBLE"
)

// StageMode reports whether a stage produced its primary result or a
// deterministic fallback after its primary computation failed.
type StageMode string

const (
	ModeFull     StageMode = "full"
	ModeDegraded StageMode = "degraded"
	ModeSkipped  StageMode = "skipped"
)

// Gender as carried on the patient profile. Free text is accepted at
// the boundary; rule adjustments match case-insensitively.
type Gender string

const (
	GenderFemale Gender = "Female"
	GenderMale   Gender = "Male"
)

// Validation errors for clinical data integrity.
var (
	ErrNotFound             = errors.New("not found")
	ErrInsufficientEvidence = errors.New("insufficient evidence for diagnosis")
	ErrInvalidRiskLevel     = errors.New("invalid risk level")
	ErrInvalidAlertKind     = errors.New("invalid safety alert kind")
	ErrInvalidStageMode     = errors.New("invalid stage mode")
)

// IsValid reports whether the risk level is one of the defined bands.
func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskModerate, RiskHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the risk level.
func (r RiskLevel) String() string {
	return string(r)
}

// RecommendedAction maps a risk level to its fixed recommended-action
// string. Unknown levels fall back to the standard care protocol.
func (r RiskLevel) RecommendedAction() string {
	switch r {
	case RiskHigh:
		return "Immediate physician evaluation required. Consider emergency department if unstable."
	case RiskModerate:
		return "Urgent physician evaluation within 24 hours. Monitor closely."
	case RiskLow:
		return "Routine follow-up as scheduled. Continue monitoring symptoms."
	default:
		return "Standard care protocol."
	}
}

// IsValid reports whether the urgency level is defined.
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyRoutine, UrgencyModerate, UrgencyUrgent:
		return true
	default:
		return false
	}
}

func (u UrgencyLevel) String() string {
	return string(u)
}

// IsValid reports whether the alert kind is defined.
func (k AlertKind) IsValid() bool {
	switch k {
	case AlertAllergy, AlertInteraction, AlertGeriatric, AlertPediatric:
		return true
	default:
		return false
	}
}

func (k AlertKind) String() string {
	return string(k)
}

// IsValid reports whether the severity is defined.
func (s AlertSeverity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

func (s AlertSeverity) String() string {
	return string(s)
}

// IsValid reports whether the stage mode is defined.
func (m StageMode) IsValid() bool {
	switch m {
	case ModeFull, ModeDegraded, ModeSkipped:
		return true
	default:
		return false
	}
}

func (m StageMode) String() string {
	return string(m)
}

func (n StageName) String() string {
	return string(n)
}

// Matches reports whether the profile gender matches the given
// rule-table gender, case-insensitively.
func (g Gender) Matches(other Gender) bool {
	return g != "" && strings.EqualFold(strings.TrimSpace(string(g)), strings.TrimSpace(string(other)))
}
