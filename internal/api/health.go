package api

import (
	"net/http"
	"sort"
	"time"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/ingest"
	"github.com/lox/coastscore/internal/metrics"
)

const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

type HealthStatus struct {
	Status    string       `json:"status"`
	CheckedAt time.Time    `json:"checked_at"`
	Breaker   string       `json:"upstream_breaker,omitempty"`
	Areas     []AreaHealth `json:"areas"`
	Errors    []string     `json:"errors,omitempty"`
}

type AreaHealth struct {
	AreaID       string     `json:"area_id"`
	Status       string     `json:"status"`
	Freshness    string     `json:"freshness,omitempty"`
	AgeMinutes   int        `json:"age_minutes"` // -1 when nothing is stored
	UpdatedAtUTC *time.Time `json:"updated_at_utc,omitempty"`
	FetchedAt    *time.Time `json:"fetched_at,omitempty"`
	IngestStatus string     `json:"ingest_status,omitempty"`
	LastRunOK    *bool      `json:"last_run_ok,omitempty"`
	LastRunError string     `json:"last_run_error,omitempty"`
}

var healthRank = map[string]int{HealthHealthy: 0, HealthDegraded: 1, HealthUnhealthy: 2}

func worse(a, b string) string {
	if healthRank[b] > healthRank[a] {
		return b
	}
	return a
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	health := HealthStatus{Status: HealthHealthy, CheckedAt: now.UTC()}
	if s.breaker != nil {
		health.Breaker = s.breaker()
		if health.Breaker == "open" {
			health.Status = HealthDegraded
		}
	}

	for areaID := range s.areas {
		ah, err := s.areaHealth(areaID, now)
		if err != nil {
			health.Errors = append(health.Errors, areaID+": "+err.Error())
			health.Status = HealthUnhealthy
			continue
		}
		health.Status = worse(health.Status, ah.Status)
		health.Areas = append(health.Areas, ah)
	}
	sort.Slice(health.Areas, func(i, j int) bool { return health.Areas[i].AreaID < health.Areas[j].AreaID })

	status := http.StatusOK
	if health.Status == HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// areaHealth grades one area: forecast age drives the base status, and a
// failed last ingest run or a degraded snapshot caps it at degraded.
func (s *Server) areaHealth(areaID string, now time.Time) (AreaHealth, error) {
	ah := AreaHealth{AreaID: areaID, Status: HealthUnhealthy, AgeMinutes: -1}

	snap, err := s.store.LatestSnapshot(areaID)
	if err != nil {
		return ah, err
	}
	if snap != nil {
		age := forecastAge(snap, now)
		metrics.SnapshotAgeSeconds.WithLabelValues(areaID).Set(age.Seconds())

		ah.AgeMinutes = int(age.Minutes())
		ah.Freshness = forecast.Freshness(ah.AgeMinutes)
		ah.UpdatedAtUTC = &snap.Forecast.UpdatedAtUTC
		ah.FetchedAt = &snap.FetchedAt
		ah.IngestStatus = snap.IngestStatus

		switch ah.Freshness {
		case forecast.FreshnessFresh:
			ah.Status = HealthHealthy
		case forecast.FreshnessStale:
			ah.Status = HealthDegraded
		}
		if snap.IngestStatus == ingest.StatusDegraded {
			ah.Status = worse(ah.Status, HealthDegraded)
		}
	}

	run, err := s.store.LatestIngestRun(areaID)
	if err != nil {
		return ah, err
	}
	if run != nil {
		ok := run.Success
		ah.LastRunOK = &ok
		if !ok {
			ah.LastRunError = run.ErrorMessage.String
			ah.Status = worse(ah.Status, HealthDegraded)
		}
	}
	return ah, nil
}

