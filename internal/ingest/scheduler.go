package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/metrics"
	"github.com/lox/coastscore/internal/models"
	"github.com/lox/coastscore/internal/store"
)

const (
	StatusSuccess  = "success"
	StatusDegraded = "degraded"
)

type Scheduler struct {
	store         *store.Store
	sources       []Source
	areaIDs       []string
	interval      time.Duration
	fetchTimeout  time.Duration
	keepSnapshots int
	retentionDays int
	onSnapshot    func(areaID string)
	settings      map[string]forecast.Settings
}

// NewScheduler polls each area from sources in order, falling back to the
// next source when one fails.
func NewScheduler(store *store.Store, sources []Source, areaIDs []string) *Scheduler {
	return &Scheduler{
		store:         store,
		sources:       sources,
		areaIDs:       areaIDs,
		interval:      30 * time.Minute,
		fetchTimeout:  3 * time.Minute,
		keepSnapshots: 48,
		retentionDays: 30,
	}
}

func (s *Scheduler) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// SetRetention sets how many snapshots per area and how many days of raw
// payloads are kept.
func (s *Scheduler) SetRetention(keepSnapshots, retentionDays int) {
	if keepSnapshots > 0 {
		s.keepSnapshots = keepSnapshots
	}
	if retentionDays > 0 {
		s.retentionDays = retentionDays
	}
}

// SetOnSnapshot registers a callback run after a snapshot is stored, used to
// refresh cached share images.
func (s *Scheduler) SetOnSnapshot(fn func(areaID string)) {
	s.onSnapshot = fn
}

// SetAreaSettings supplies coordinates used to backfill missing daily sun
// rows. Areas without settings are stored as received.
func (s *Scheduler) SetAreaSettings(areas []forecast.Settings) {
	s.settings = make(map[string]forecast.Settings, len(areas))
	for _, a := range areas {
		s.settings[a.AreaID] = a
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	if err := s.IngestOnce(ctx); err != nil {
		log.Printf("scheduler: initial ingest: %v", err)
	}
	s.cleanup()

	ticker := time.NewTicker(s.interval)
	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-ticker.C:
			if err := s.IngestOnce(ctx); err != nil {
				log.Printf("scheduler: ingest: %v", err)
			}
		case <-cleanupTicker.C:
			s.cleanup()
		}
	}
}

// IngestOnce ingests every configured area once.
func (s *Scheduler) IngestOnce(ctx context.Context) error {
	var errs []error
	for _, areaID := range s.areaIDs {
		if err := s.IngestArea(ctx, areaID); err != nil {
			errs = append(errs, fmt.Errorf("area %s: %w", areaID, err))
		}
	}
	return errors.Join(errs...)
}

// IngestArea tries each source in turn until one yields a stored snapshot.
func (s *Scheduler) IngestArea(ctx context.Context, areaID string) error {
	if len(s.sources) == 0 {
		return errors.New("no sources configured")
	}
	var errs []error
	for _, src := range s.sources {
		err := s.ingestFrom(ctx, src, areaID)
		if err == nil {
			return nil
		}
		log.Printf("scheduler: %s %s: %v", src.Name(), areaID, err)
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) ingestFrom(ctx context.Context, src Source, areaID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	log.Printf("scheduler: ingesting %s from %s", areaID, src.Name())
	run, err := s.store.StartIngestRun(src.Name(), src.Endpoint(), &areaID)
	if err != nil {
		log.Printf("scheduler: start ingest run: %v", err)
	}

	fetchedAt := time.Now().UTC()
	fc, raw, result, err := src.Fetch(ctx, areaID)
	if run != nil && result != nil {
		run.HTTPStatus = sql.NullInt64{Int64: int64(result.HTTPStatus), Valid: result.HTTPStatus > 0}
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(result.ResponseSize), Valid: result.ResponseSize > 0}
		run.RecordsParsed = sql.NullInt64{Int64: int64(result.RecordCount), Valid: true}
	}

	if len(raw) > 0 {
		var runID *int64
		if run != nil {
			runID = &run.ID
		}
		s.storeRaw(runID, src, areaID, raw)
	}

	if err != nil {
		return s.fail(run, err)
	}

	report, err := ValidateForecast(fc, areaID)
	if run != nil && report.HoursKept < report.HoursIn {
		run.ParseErrors = sql.NullInt64{Int64: int64(report.HoursIn - report.HoursKept), Valid: true}
	}
	if dropped := report.HoursIn - report.HoursKept; dropped > 0 {
		metrics.HoursRejected.WithLabelValues(areaID).Add(float64(dropped))
		log.Printf("scheduler: %s: dropped %d of %d hours (%s)", areaID, dropped, report.HoursIn, strings.Join(report.Flags, ","))
	}
	if err != nil {
		return s.fail(run, fmt.Errorf("validate: %w", err))
	}

	if settings, ok := s.settings[areaID]; ok {
		if n := BackfillDaily(fc, settings); n > 0 {
			log.Printf("scheduler: %s: computed %d missing sun rows", areaID, n)
		}
	}

	status := StatusSuccess
	if report.Degraded() {
		status = StatusDegraded
	}
	snap := models.Snapshot{
		AreaID:       areaID,
		FetchedAt:    fetchedAt,
		Source:       src.Name(),
		IngestStatus: status,
		Forecast:     *fc,
	}
	if _, err := s.store.SaveSnapshot(snap); err != nil {
		return s.fail(run, fmt.Errorf("save snapshot: %w", err))
	}
	metrics.SnapshotsIngested.WithLabelValues(areaID, status).Inc()
	log.Printf("scheduler: stored %s snapshot with %d hours (%s)", areaID, len(fc.Hours), status)

	if run != nil {
		run.Success = true
		run.RecordsStored = sql.NullInt64{Int64: int64(len(fc.Hours)), Valid: true}
		if len(report.Problems) > 0 {
			run.ErrorMessage = sql.NullString{String: strings.Join(report.Problems, "; "), Valid: true}
		}
		if err := s.store.CompleteIngestRun(run); err != nil {
			log.Printf("scheduler: complete ingest run: %v", err)
		}
	}

	if n, err := s.store.PruneSnapshots(areaID, s.keepSnapshots); err != nil {
		log.Printf("scheduler: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: pruned %d old %s snapshots", n, areaID)
	}

	if s.onSnapshot != nil {
		s.onSnapshot(areaID)
	}
	return nil
}

// storeRaw keeps the upstream body for replay. A body identical to one
// already stored is kept once; the log notes when it was first seen.
func (s *Scheduler) storeRaw(runID *int64, src Source, areaID string, raw []byte) {
	id, err := s.store.StoreRawPayload(runID, src.Name(), src.Endpoint(), &areaID, raw)
	if err != nil {
		log.Printf("scheduler: store raw payload %s: %v", areaID, err)
		return
	}
	if id != 0 {
		return
	}
	prev, err := s.store.GetRawPayloadByHash(store.PayloadHash(raw))
	if err != nil {
		log.Printf("scheduler: lookup raw payload %s: %v", areaID, err)
		return
	}
	if prev != nil {
		log.Printf("scheduler: %s payload from %s unchanged since %s", areaID, src.Name(), prev.FetchedAt.Format(time.RFC3339))
	}
}

func (s *Scheduler) fail(run *store.IngestRun, err error) error {
	if run != nil {
		run.Success = false
		run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		if cerr := s.store.CompleteIngestRun(run); cerr != nil {
			log.Printf("scheduler: complete ingest run: %v", cerr)
		}
	}
	return err
}

func (s *Scheduler) cleanup() {
	n, err := s.store.CleanupOldRawPayloads(s.retentionDays, time.Now())
	if err != nil {
		log.Printf("scheduler: cleanup raw payloads: %v", err)
		return
	}
	if n > 0 {
		log.Printf("scheduler: removed %d raw payloads older than %d days", n, s.retentionDays)
	}
}
