package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/clinical-reasoning-server/internal/domain"
)

// NoopReasoningHook is the default hook: no external advice.
type NoopReasoningHook struct{}

// Advise always reports the hook as unavailable.
func (NoopReasoningHook) Advise(ctx context.Context, stage domain.StageName, prompt string) (string, error) {
	return "", &domain.ExternalDependencyFailure{Dependency: "reasoning-hook", Cause: fmt.Errorf("hook not configured")}
}

// RemoteReasoningHook calls an external reasoning service over HTTP.
// Calls are rate limited and wrapped in a circuit breaker; any failure
// surfaces as ExternalDependencyFailure so stages fall back to their
// rule-based output.
type RemoteReasoningHook struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewRemoteReasoningHook creates a hook client for the configured
// external reasoning service.
func NewRemoteReasoningHook(cfg *domain.ReasoningHookConfig, logger *logrus.Logger) *RemoteReasoningHook {
	settings := gobreaker.Settings{
		Name:        "reasoning-hook",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}

	return &RemoteReasoningHook{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

type adviseRequest struct {
	Stage  string `json:"stage"`
	Prompt string `json:"prompt"`
}

type adviseResponse struct {
	Advice string `json:"advice"`
}

// Advise posts the stage prompt to the reasoning service and returns
// its commentary.
func (h *RemoteReasoningHook) Advise(ctx context.Context, stage domain.StageName, prompt string) (string, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return "", &domain.ExternalDependencyFailure{Dependency: "reasoning-hook", Cause: err}
	}

	result, err := h.breaker.Execute(func() (interface{}, error) {
		return h.post(ctx, stage, prompt)
	})
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"stage": stage,
			"error": err.Error(),
		}).Warn("Reasoning hook unavailable")
		return "", &domain.ExternalDependencyFailure{Dependency: "reasoning-hook", Cause: err}
	}
	return result.(string), nil
}

func (h *RemoteReasoningHook) post(ctx context.Context, stage domain.StageName, prompt string) (string, error) {
	body, err := json.Marshal(adviseRequest{Stage: string(stage), Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/v1/advise", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("reasoning service returned status %d", resp.StatusCode)
	}

	var parsed adviseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Advice, nil
}
