package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

// AnalysisRequest is the full input for one pipeline run. Only the
// profile is required; absent modality inputs skip their analysis
// stage.
type AnalysisRequest struct {
	Profile *domain.PatientProfile  `json:"profile"`
	Exam    *domain.ExamFindings    `json:"exam,omitempty"`
	Imaging *domain.ImagingFindings `json:"imaging,omitempty"`
	Labs    *domain.LabFindings     `json:"labs,omitempty"`
}

// Pipeline orchestrates the reasoning stages into a clinical report.
// Input validation failures abort the run; any later stage failure
// degrades to a deterministic fallback so a report is always produced.
type Pipeline struct {
	aggregator *EvidenceAggregator
	engine     *DiagnosisEngine
	stratifier *RiskStratifier
	planner    *TreatmentPlanner
	safety     *SafetyChecker
	drafter    *PrescriptionDrafter
	hook       domain.ReasoningHook
	notifier   domain.Notifier
	logger     *logrus.Logger
}

// NewPipeline wires the pipeline from its stage services. A nil hook
// or notifier disables that integration.
func NewPipeline(
	aggregator *EvidenceAggregator,
	engine *DiagnosisEngine,
	stratifier *RiskStratifier,
	planner *TreatmentPlanner,
	safety *SafetyChecker,
	drafter *PrescriptionDrafter,
	hook domain.ReasoningHook,
	notifier domain.Notifier,
	logger *logrus.Logger,
) *Pipeline {
	if hook == nil {
		hook = NoopReasoningHook{}
	}
	return &Pipeline{
		aggregator: aggregator,
		engine:     engine,
		stratifier: stratifier,
		planner:    planner,
		safety:     safety,
		drafter:    drafter,
		hook:       hook,
		notifier:   notifier,
		logger:     logger,
	}
}

// Analyze runs the full pipeline for one request.
func (p *Pipeline) Analyze(ctx context.Context, req *AnalysisRequest) (*domain.ClinicalReport, error) {
	if req == nil || req.Profile == nil {
		return nil, &domain.ValidationError{Field: "profile", Message: "patient profile is required"}
	}
	if err := req.Profile.Validate(); err != nil {
		return nil, err
	}

	caseID := uuid.New().String()
	report := &domain.ClinicalReport{
		CaseID:    caseID,
		PatientID: req.Profile.ID,
		CreatedAt: time.Now().UTC(),
	}

	log := p.logger.WithFields(logrus.Fields{
		"case_id":    caseID,
		"patient_id": req.Profile.ID,
	})
	log.Info("Pipeline run started")

	// Modality sub-analyses are independent and run concurrently; the
	// join happens before aggregation merges their outputs.
	exam, imaging, labs := p.analyzeModalities(ctx, report, req)

	p.runStage(ctx, report, domain.StageAggregate, func() domain.StageMode {
		report.Observations = p.aggregator.Aggregate(req.Profile, exam, imaging, labs)
		return domain.ModeFull
	}, func() {
		// Minimal observation set from the profile alone.
		report.Observations = &domain.ClinicalObservationSet{
			PatientID:      req.Profile.ID,
			PatientName:    req.Profile.Name,
			Age:            req.Profile.Age,
			Gender:         req.Profile.Gender,
			Symptoms:       req.Profile.Symptoms,
			MedicalHistory: req.Profile.MedicalHistory,
			Allergies:      req.Profile.Allergies,
			Medications:    req.Profile.CurrentMedications,
			VitalSigns:     map[string]float64{},
		}
	})

	p.runStage(ctx, report, domain.StageDiagnose, func() domain.StageMode {
		report.Differential = p.engine.Diagnose(report.Observations)
		p.superviseDifferential(ctx, report)
		if report.Differential.InsufficientEvidence {
			return domain.ModeDegraded
		}
		return domain.ModeFull
	}, func() {
		report.Differential = domain.DifferentialDiagnosis{
			InsufficientEvidence: true,
			Urgency:              domain.UrgencyRoutine,
			Reasoning:            "Diagnosis engine unavailable; physician assessment required.",
		}
	})

	p.runStage(ctx, report, domain.StageStratifyRisk, func() domain.StageMode {
		report.Risk = p.stratifier.Stratify(report.Observations)
		return domain.ModeFull
	}, func() {
		// Conservative fallback: escalate rather than understate.
		report.Risk = domain.RiskAssessment{
			Level:             domain.RiskHigh,
			Factors:           []string{"risk stratifier unavailable"},
			RecommendedAction: domain.RiskHigh.RecommendedAction(),
		}
	})

	p.runStage(ctx, report, domain.StagePlan, func() domain.StageMode {
		report.Treatment = p.planner.Plan(report.Observations, &report.Differential)
		return domain.ModeFull
	}, func() {
		report.Treatment = domain.TreatmentPlan{
			Recommendations: []domain.TreatmentRecommendation{{
				Category: "Supportive",
				Notes:    "Treatment planner unavailable. Supportive care only pending physician review.",
			}},
			FollowUp: domain.FollowUpPlan{Timeline: "1-2 weeks", Urgency: "Important"},
		}
	})

	p.runStage(ctx, report, domain.StageSafety, func() domain.StageMode {
		report.SafetyAlerts = p.safety.Check(report.Observations, &report.Treatment)
		return domain.ModeFull
	}, func() {
		report.SafetyAlerts = []domain.SafetyAlert{{
			Kind:     domain.AlertInteraction,
			Severity: domain.SeverityCritical,
			Message:  "Safety cross-check unavailable. Manual medication review required before dispensing.",
		}}
	})

	p.runStage(ctx, report, domain.StageDraft, func() domain.StageMode {
		report.Prescription = p.drafter.Draft(report.Observations, &report.Treatment)
		return domain.ModeFull
	}, func() {
		report.Prescription = nil
	})

	p.runStage(ctx, report, domain.StageAssemble, func() domain.StageMode {
		p.assemble(report)
		return domain.ModeFull
	}, func() {
		report.AnalysisComplete = false
	})

	if p.notifier != nil {
		p.notifier.PublishReportReady(ctx, report)
	}

	log.WithFields(logrus.Fields{
		"complete":   report.AnalysisComplete,
		"confidence": report.Confidence,
		"risk":       report.Risk.Level,
	}).Info("Pipeline run finished")

	return report, nil
}

// analyzeModalities runs the exam, imaging, and lab sub-analyses
// concurrently. Each stage is skipped when its input is absent and
// degrades independently, returning nil for that modality.
func (p *Pipeline) analyzeModalities(ctx context.Context, report *domain.ClinicalReport, req *AnalysisRequest) (*ExamAnalysis, map[string]string, *LabAnalysis) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		exam    *ExamAnalysis
		imaging map[string]string
		labs    *LabAnalysis
	)

	record := func(status domain.StageStatus) {
		mu.Lock()
		defer mu.Unlock()
		report.Stages = append(report.Stages, status)
		if p.notifier != nil {
			p.notifier.PublishStageEvent(ctx, report.CaseID, status)
		}
	}

	run := func(stage domain.StageName, present bool, fn func() error) {
		defer wg.Done()
		if !present {
			record(domain.StageStatus{Stage: stage, Mode: domain.ModeSkipped})
			return
		}
		start := time.Now()
		err := safeCall(fn)
		status := domain.StageStatus{
			Stage:      stage,
			Mode:       domain.ModeFull,
			DurationMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			status.Mode = domain.ModeDegraded
			status.Error = err.Error()
			p.logger.WithFields(logrus.Fields{
				"case_id": report.CaseID,
				"stage":   stage,
				"error":   err.Error(),
			}).Warn("Modality analysis degraded")
		}
		record(status)
	}

	wg.Add(3)
	go run(domain.StageExam, req.Exam != nil, func() error {
		exam = p.aggregator.AnalyzeExam(req.Profile, req.Exam)
		return nil
	})
	go run(domain.StageImaging, req.Imaging != nil, func() error {
		if req.Imaging.Modality == "" && len(req.Imaging.Findings) == 0 {
			return fmt.Errorf("imaging input carries no findings")
		}
		imaging = p.aggregator.AnalyzeImaging(req.Imaging)
		return nil
	})
	go run(domain.StageLab, req.Labs != nil, func() error {
		if len(req.Labs.Values) == 0 && req.Labs.RawText == "" {
			return fmt.Errorf("lab input carries no values or report text")
		}
		labs = p.aggregator.AnalyzeLabs(req.Labs)
		return nil
	})
	wg.Wait()

	return exam, imaging, labs
}

// runStage executes a stage with panic recovery. On failure the
// fallback is applied and the stage is recorded as degraded with the
// failure message. A stage may also report itself degraded without an
// error, e.g. a differential with no candidate above threshold.
func (p *Pipeline) runStage(ctx context.Context, report *domain.ClinicalReport, stage domain.StageName, fn func() domain.StageMode, fallback func()) {
	start := time.Now()
	mode := domain.ModeFull
	err := safeCall(func() error {
		mode = fn()
		return nil
	})

	status := domain.StageStatus{
		Stage:      stage,
		Mode:       mode,
		DurationMS: time.Since(start).Milliseconds(),
	}
	if err != nil {
		fallback()
		status.Mode = domain.ModeDegraded
		status.Error = err.Error()
		p.logger.WithFields(logrus.Fields{
			"case_id": report.CaseID,
			"stage":   stage,
			"error":   err.Error(),
		}).Warn("Stage degraded to fallback")
	}

	report.Stages = append(report.Stages, status)
	if p.notifier != nil {
		p.notifier.PublishStageEvent(ctx, report.CaseID, status)
	}
}

// superviseDifferential asks the reasoning hook for commentary on the
// ranked differential. Hook failures are silently absorbed.
func (p *Pipeline) superviseDifferential(ctx context.Context, report *domain.ClinicalReport) {
	top := report.Differential.Top()
	if top == nil {
		return
	}
	prompt := fmt.Sprintf("Leading diagnosis %s (%s) at %.0f%% probability. Evidence: %v",
		top.Diagnosis, top.ICDCode, top.Probability*100, top.SupportingEvidence)
	advice, err := p.hook.Advise(ctx, domain.StageDiagnose, prompt)
	if err == nil && advice != "" {
		report.Differential.Reasoning += " Supplemental review: " + advice
	}
}

// assemble computes the run-level summary fields.
func (p *Pipeline) assemble(report *domain.ClinicalReport) {
	// Only failure-driven fallbacks clear AnalysisComplete. A stage
	// that is degraded without an error reached a reasoned result on
	// limited evidence, which the confidence score already reflects.
	report.AnalysisComplete = true
	for _, s := range report.Stages {
		if s.Mode == domain.ModeDegraded && s.Error != "" {
			report.AnalysisComplete = false
			break
		}
	}

	report.DataCompleteness = dataCompleteness(report.Observations)

	// Overall confidence blends engine confidence with evidence
	// completeness, capped like the engine's own score.
	c := (report.Differential.Confidence + report.DataCompleteness) / 2
	if c > confidenceCap {
		c = confidenceCap
	}
	report.Confidence = c
}

// dataCompleteness is the fraction of evidence channels present.
func dataCompleteness(obs *domain.ClinicalObservationSet) float64 {
	if obs == nil {
		return 0
	}
	channels := 0
	if len(obs.Symptoms) > 0 {
		channels++
	}
	if len(obs.MedicalHistory) > 0 {
		channels++
	}
	if len(obs.VitalSigns) > 0 {
		channels++
	}
	if len(obs.ExamFindings) > 0 {
		channels++
	}
	if len(obs.ImagingFindings) > 0 {
		channels++
	}
	if len(obs.LabValues) > 0 {
		channels++
	}
	return float64(channels) / 6
}

// safeCall runs fn, converting panics into errors so a stage bug can
// never take down a run.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panicked: %v", r)
		}
	}()
	return fn()
}
