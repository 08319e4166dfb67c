package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lox/coastscore/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the handle for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveSnapshot stores a scored forecast and upserts its daily sun rows in
// one transaction. It returns the new snapshot ID.
func (s *Store) SaveSnapshot(snap models.Snapshot) (int64, error) {
	hours, err := json.Marshal(snap.Forecast.Hours)
	if err != nil {
		return 0, fmt.Errorf("marshal hours: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	f := snap.Forecast
	result, err := tx.Exec(`
		INSERT INTO snapshots (area_id, fetched_at, source, ingest_status, updated_at_utc,
			provider, horizon_days, scoring_version, hour_count, hours_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.AreaID, snap.FetchedAt.UTC(), snap.Source, snap.IngestStatus, f.UpdatedAtUTC.UTC(),
		f.Provider, f.HorizonDays, f.ScoringVersion, len(f.Hours), string(hours))
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, d := range f.Daily {
		if _, err := tx.Exec(`
			INSERT INTO daily_sun (area_id, date, sunrise_utc, sunset_utc, snapshot_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(area_id, date) DO UPDATE SET
				sunrise_utc = excluded.sunrise_utc,
				sunset_utc = excluded.sunset_utc,
				snapshot_id = excluded.snapshot_id
		`, snap.AreaID, d.Date, d.SunriseUTC.UTC(), d.SunsetUTC.UTC(), id); err != nil {
			return 0, fmt.Errorf("upsert daily sun %s: %w", d.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return id, nil
}

// LatestSnapshot returns the most recently fetched snapshot for an area, with
// the daily sun rows covering its hours. It returns nil when none exists.
func (s *Store) LatestSnapshot(areaID string) (*models.Snapshot, error) {
	row := s.db.QueryRow(`
		SELECT id, area_id, fetched_at, source, ingest_status, updated_at_utc,
			provider, horizon_days, scoring_version, hours_json
		FROM snapshots
		WHERE area_id = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, areaID)

	var (
		snap      models.Snapshot
		hoursJSON string
	)
	f := &snap.Forecast
	err := row.Scan(&snap.ID, &snap.AreaID, &snap.FetchedAt, &snap.Source, &snap.IngestStatus,
		&f.UpdatedAtUTC, &f.Provider, &f.HorizonDays, &f.ScoringVersion, &hoursJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(hoursJSON), &f.Hours); err != nil {
		return nil, fmt.Errorf("unmarshal hours for snapshot %d: %w", snap.ID, err)
	}
	f.AreaID = snap.AreaID

	if n := len(f.Hours); n > 0 {
		// One day either side so local-day views near midnight keep their sun rows.
		from := f.Hours[0].HourUTC.UTC().AddDate(0, 0, -1).Format("2006-01-02")
		to := f.Hours[n-1].HourUTC.UTC().AddDate(0, 0, 1).Format("2006-01-02")
		f.Daily, err = s.GetDailySun(areaID, from, to)
		if err != nil {
			return nil, err
		}
	}
	return &snap, nil
}

// GetDailySun returns sun rows for dates in [from, to], both YYYY-MM-DD.
func (s *Store) GetDailySun(areaID, from, to string) ([]models.DailySunTime, error) {
	rows, err := s.db.Query(`
		SELECT date, sunrise_utc, sunset_utc
		FROM daily_sun
		WHERE area_id = ? AND date >= ? AND date <= ?
		ORDER BY date
	`, areaID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var daily []models.DailySunTime
	for rows.Next() {
		var d models.DailySunTime
		if err := rows.Scan(&d.Date, &d.SunriseUTC, &d.SunsetUTC); err != nil {
			return nil, err
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

// SnapshotAge returns how long ago the latest snapshot for an area was
// fetched. ok is false when the area has no snapshot.
func (s *Store) SnapshotAge(areaID string, now time.Time) (age time.Duration, ok bool, err error) {
	var fetched time.Time
	err = s.db.QueryRow(`
		SELECT fetched_at FROM snapshots
		WHERE area_id = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, areaID).Scan(&fetched)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return now.Sub(fetched), true, nil
}

// PruneSnapshots keeps the newest keep snapshots per area and deletes the rest.
func (s *Store) PruneSnapshots(areaID string, keep int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM snapshots
		WHERE area_id = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE area_id = ?
			ORDER BY fetched_at DESC, id DESC
			LIMIT ?
		)
	`, areaID, areaID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return result.RowsAffected()
}

// ListAreas returns every area that has at least one snapshot.
func (s *Store) ListAreas() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT area_id FROM snapshots ORDER BY area_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var areas []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}
