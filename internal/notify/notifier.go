// Package notify publishes pipeline lifecycle events. Publishing is
// best-effort: a failed publish is logged and dropped, never surfaced
// to the pipeline.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/clinical-reasoning-server/internal/domain"
)

// LogNotifier writes lifecycle events to the structured log. It is the
// default when Redis publishing is disabled.
type LogNotifier struct {
	logger *logrus.Logger
}

// NewLogNotifier creates a log-only notifier.
func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// PublishStageEvent logs a stage completion.
func (n *LogNotifier) PublishStageEvent(_ context.Context, caseID string, status domain.StageStatus) {
	n.logger.WithFields(logrus.Fields{
		"case_id":     caseID,
		"stage":       status.Stage,
		"mode":        status.Mode,
		"duration_ms": status.DurationMS,
	}).Debug("Pipeline stage event")
}

// PublishReportReady logs report completion.
func (n *LogNotifier) PublishReportReady(_ context.Context, report *domain.ClinicalReport) {
	n.logger.WithFields(logrus.Fields{
		"case_id":    report.CaseID,
		"patient_id": report.PatientID,
		"complete":   report.AnalysisComplete,
	}).Info("Clinical report ready")
}

// stageEvent is the wire format for stage events.
type stageEvent struct {
	Type       string `json:"type"`
	CaseID     string `json:"case_id"`
	Stage      string `json:"stage,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// RedisNotifier publishes lifecycle events to a Redis channel for
// downstream consumers.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *logrus.Logger
}

// NewRedisNotifier creates a Redis-backed notifier. The connection is
// verified on creation.
func NewRedisNotifier(redisURL, channel string, logger *logrus.Logger) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	logger.WithField("channel", channel).Info("Redis notifier connected")
	return &RedisNotifier{client: client, channel: channel, logger: logger}, nil
}

// PublishStageEvent publishes a stage completion event.
func (n *RedisNotifier) PublishStageEvent(ctx context.Context, caseID string, status domain.StageStatus) {
	n.publish(ctx, stageEvent{
		Type:       "stage",
		CaseID:     caseID,
		Stage:      string(status.Stage),
		Mode:       string(status.Mode),
		Error:      status.Error,
		DurationMS: status.DurationMS,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// PublishReportReady publishes report completion.
func (n *RedisNotifier) PublishReportReady(ctx context.Context, report *domain.ClinicalReport) {
	n.publish(ctx, stageEvent{
		Type:      "report_ready",
		CaseID:    report.CaseID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (n *RedisNotifier) publish(ctx context.Context, event stageEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.WithError(err).Warn("Failed to encode pipeline event")
		return
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.WithError(err).Warn("Failed to publish pipeline event")
	}
}

// Close releases the Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
