package store

import (
	"database/sql"
	"time"
)

// IngestRun is one upstream fetch, kept for auditing and health.
type IngestRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Source            string // "http", "ftp"
	Endpoint          string // "/v1/public/scores", "/drop/scores.json"
	AreaID            sql.NullString
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	RecordsParsed     sql.NullInt64 // hours in the document
	RecordsStored     sql.NullInt64
	ParseErrors       sql.NullInt64 // hours rejected by validation
	Success           bool
	ErrorMessage      sql.NullString
}

// StartIngestRun records the start of a fetch and returns the run.
func (s *Store) StartIngestRun(source, endpoint string, areaID *string) (*IngestRun, error) {
	run := &IngestRun{
		StartedAt: time.Now().UTC(),
		Source:    source,
		Endpoint:  endpoint,
	}
	if areaID != nil {
		run.AreaID = sql.NullString{String: *areaID, Valid: true}
	}

	result, err := s.db.Exec(`
		INSERT INTO ingest_runs (started_at, source, endpoint, area_id, success)
		VALUES (?, ?, ?, ?, FALSE)
	`, run.StartedAt, run.Source, run.Endpoint, run.AreaID)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteIngestRun writes the outcome of a run.
func (s *Store) CompleteIngestRun(run *IngestRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE ingest_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			records_parsed = ?,
			records_stored = ?,
			parse_errors = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.RecordsParsed,
		run.RecordsStored, run.ParseErrors, run.Success, run.ErrorMessage, run.ID)
	return err
}

const ingestRunColumns = `id, started_at, finished_at, source, endpoint, area_id,
	http_status, response_size_bytes, records_parsed, records_stored,
	parse_errors, success, error_message`

func scanIngestRun(sc interface{ Scan(...any) error }) (*IngestRun, error) {
	var r IngestRun
	if err := sc.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Endpoint,
		&r.AreaID, &r.HTTPStatus, &r.ResponseSizeBytes, &r.RecordsParsed,
		&r.RecordsStored, &r.ParseErrors, &r.Success, &r.ErrorMessage); err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestIngestRun returns the most recent finished run for an area, or nil.
func (s *Store) LatestIngestRun(areaID string) (*IngestRun, error) {
	row := s.db.QueryRow(`
		SELECT `+ingestRunColumns+`
		FROM ingest_runs
		WHERE area_id = ? AND finished_at IS NOT NULL
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`, areaID)
	run, err := scanIngestRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// IngestHealthSummary is one day of runs for a source and endpoint.
type IngestHealthSummary struct {
	Date             string
	Source           string
	Endpoint         string
	TotalRuns        int
	SuccessRuns      int
	FailedRuns       int
	TotalRecords     int64
	TotalParseErrors int64
}

// GetIngestHealth returns ingest health summaries for the last N days.
func (s *Store) GetIngestHealth(days int) ([]IngestHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			source,
			endpoint,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			COALESCE(SUM(records_stored), 0) as total_records,
			COALESCE(SUM(parse_errors), 0) as total_parse_errors
		FROM ingest_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, source, endpoint
		ORDER BY date DESC, source, endpoint
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestHealthSummary
	for rows.Next() {
		var h IngestHealthSummary
		if err := rows.Scan(&h.Date, &h.Source, &h.Endpoint, &h.TotalRuns,
			&h.SuccessRuns, &h.FailedRuns, &h.TotalRecords, &h.TotalParseErrors); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// GetRecentIngestErrors returns recent failed ingest runs.
func (s *Store) GetRecentIngestErrors(limit int) ([]IngestRun, error) {
	rows, err := s.db.Query(`
		SELECT `+ingestRunColumns+`
		FROM ingest_runs
		WHERE success = FALSE
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []IngestRun
	for rows.Next() {
		r, err := scanIngestRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}
