package api

import (
	"log"
	"net/http"
	"sort"
	"time"
)

const (
	statusIngestDays   = 7
	statusRecentErrors = 10
)

// StatusResponse reports storage and ingest state. A failing query is
// listed in Errors and the rest of the report is still filled in.
type StatusResponse struct {
	CheckedAt     time.Time         `json:"checked_at"`
	Database      string            `json:"database"`
	SchemaVersion int               `json:"schema_version"`
	Areas         []AreaStatus      `json:"areas"`
	StoredAreas   []string          `json:"stored_areas"`
	IngestDays    []IngestDay       `json:"ingest_days"`
	RecentErrors  []IngestError     `json:"recent_errors"`
	RawPayloads   RawPayloadSummary `json:"raw_payloads"`
	Errors        []string          `json:"errors,omitempty"`
}

// AreaStatus is one configured area. FetchAgeMinutes is -1 when nothing
// has been stored for it.
type AreaStatus struct {
	AreaID          string `json:"area_id"`
	FetchAgeMinutes int    `json:"fetch_age_minutes"`
}

type IngestDay struct {
	Date          string `json:"date"`
	Source        string `json:"source"`
	Endpoint      string `json:"endpoint"`
	Runs          int    `json:"runs"`
	Succeeded     int    `json:"succeeded"`
	Failed        int    `json:"failed"`
	HoursStored   int64  `json:"hours_stored"`
	HoursRejected int64  `json:"hours_rejected"`
}

type IngestError struct {
	StartedAt time.Time `json:"started_at"`
	Source    string    `json:"source"`
	AreaID    string    `json:"area_id,omitempty"`
	Message   string    `json:"message"`
}

type RawPayloadSummary struct {
	Count         int              `json:"count"`
	SizeBytes     int64            `json:"size_bytes"`
	CountBySource map[string]int   `json:"count_by_source"`
	SizeBySource  map[string]int64 `json:"size_by_source"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	resp := StatusResponse{CheckedAt: now.UTC(), Database: "ok"}
	fail := func(what string, err error) {
		log.Printf("api: status: %s: %v", what, err)
		resp.Errors = append(resp.Errors, what+": "+err.Error())
	}

	if err := s.store.DB().PingContext(r.Context()); err != nil {
		resp.Database = "unreachable"
		fail("ping database", err)
	}

	if version, err := s.store.MigrationVersion(); err != nil {
		fail("schema version", err)
	} else {
		resp.SchemaVersion = version
	}

	for areaID := range s.areas {
		as := AreaStatus{AreaID: areaID, FetchAgeMinutes: -1}
		if age, ok, err := s.store.SnapshotAge(areaID, now); err != nil {
			fail("snapshot age "+areaID, err)
		} else if ok {
			as.FetchAgeMinutes = int(age.Minutes())
		}
		resp.Areas = append(resp.Areas, as)
	}
	sort.Slice(resp.Areas, func(i, j int) bool { return resp.Areas[i].AreaID < resp.Areas[j].AreaID })

	if areas, err := s.store.ListAreas(); err != nil {
		fail("list areas", err)
	} else {
		resp.StoredAreas = areas
	}

	if days, err := s.store.GetIngestHealth(statusIngestDays); err != nil {
		fail("ingest health", err)
	} else {
		for _, d := range days {
			resp.IngestDays = append(resp.IngestDays, IngestDay{
				Date:          d.Date,
				Source:        d.Source,
				Endpoint:      d.Endpoint,
				Runs:          d.TotalRuns,
				Succeeded:     d.SuccessRuns,
				Failed:        d.FailedRuns,
				HoursStored:   d.TotalRecords,
				HoursRejected: d.TotalParseErrors,
			})
		}
	}

	if runs, err := s.store.GetRecentIngestErrors(statusRecentErrors); err != nil {
		fail("recent ingest errors", err)
	} else {
		for _, run := range runs {
			resp.RecentErrors = append(resp.RecentErrors, IngestError{
				StartedAt: run.StartedAt,
				Source:    run.Source,
				AreaID:    run.AreaID.String,
				Message:   run.ErrorMessage.String,
			})
		}
	}

	if stats, err := s.store.GetRawPayloadStats(); err != nil {
		fail("raw payload stats", err)
	} else {
		resp.RawPayloads = RawPayloadSummary{
			Count:         stats.TotalCount,
			SizeBytes:     stats.TotalSizeBytes,
			CountBySource: stats.CountBySource,
			SizeBySource:  stats.SizeBySource,
		}
	}

	status := http.StatusOK
	if resp.Database != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
