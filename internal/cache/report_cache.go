// Package cache provides an in-memory LRU cache for completed reports,
// keyed by case ID, to keep repeat lookups off the report store.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/clinical-reasoning-server/internal/domain"
)

// ReportCache caches completed clinical reports.
type ReportCache struct {
	cache *lru.Cache[string, *domain.ClinicalReport]
}

// NewReportCache creates a cache holding up to size reports.
func NewReportCache(size int) (*ReportCache, error) {
	c, err := lru.New[string, *domain.ClinicalReport](size)
	if err != nil {
		return nil, err
	}
	return &ReportCache{cache: c}, nil
}

// Get returns the cached report for a case ID.
func (c *ReportCache) Get(caseID string) (*domain.ClinicalReport, bool) {
	return c.cache.Get(caseID)
}

// Put caches a report under its case ID.
func (c *ReportCache) Put(report *domain.ClinicalReport) {
	if report == nil || report.CaseID == "" {
		return
	}
	c.cache.Add(report.CaseID, report)
}

// Len returns the number of cached reports.
func (c *ReportCache) Len() int {
	return c.cache.Len()
}
