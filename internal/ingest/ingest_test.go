package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/models"
	"github.com/lox/coastscore/internal/store"
)

const testArea = "tel_aviv_coast"

var testStart = time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)

func modeScore(score int, label models.Label) *models.ModeScore {
	return &models.ModeScore{
		Score: score,
		Label: label,
		Reasons: []models.Reason{
			{Factor: "waves", Text: "Calm sea", Emoji: "check"},
		},
	}
}

func validHour(t time.Time) models.HourRecord {
	wave := 0.4
	return models.HourRecord{
		HourUTC:     t,
		WaveHeightM: &wave,
		Scores: models.ModeScores{
			SwimSolo: modeScore(80, models.LabelGood),
			SwimDog:  modeScore(75, models.LabelGood),
			RunSolo:  modeScore(60, models.LabelMeh),
			RunDog:   modeScore(55, models.LabelMeh),
		},
	}
}

func validForecast(n int) *models.ScoredForecast {
	f := &models.ScoredForecast{
		AreaID:         testArea,
		UpdatedAtUTC:   testStart,
		Provider:       "open-meteo",
		HorizonDays:    1,
		ScoringVersion: "v3",
		Daily: []models.DailySunTime{{
			Date:       "2025-06-21",
			SunriseUTC: testStart.Add(2*time.Hour + 30*time.Minute),
			SunsetUTC:  testStart.Add(16*time.Hour + 50*time.Minute),
		}},
	}
	for i := 0; i < n; i++ {
		f.Hours = append(f.Hours, validHour(testStart.Add(time.Duration(i)*time.Hour)))
	}
	return f
}

func forecastJSON(t *testing.T, f *models.ScoredForecast) []byte {
	t.Helper()
	b, err := json.Marshal(f)
	require.NoError(t, err)
	return b
}

func TestTruncateBody(t *testing.T) {
	t.Run("short body unchanged", func(t *testing.T) {
		input := "error: not found"
		if got := truncateBody([]byte(input)); got != input {
			t.Errorf("truncateBody() = %q, want %q", got, input)
		}
	})

	t.Run("exactly 512 chars unchanged", func(t *testing.T) {
		input := strings.Repeat("a", 512)
		if got := truncateBody([]byte(input)); got != input {
			t.Errorf("truncateBody() len = %d, want 512", len(got))
		}
	})

	t.Run("over 512 chars truncated", func(t *testing.T) {
		got := truncateBody([]byte(strings.Repeat("x", 600)))
		if !strings.HasPrefix(got, strings.Repeat("x", 512)) || !strings.HasSuffix(got, "...(truncated)") {
			t.Errorf("truncateBody() = %q", got)
		}
	})
}

func TestValidateForecast(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(f *models.ScoredForecast)
		wantErr   bool
		wantKept  int
		wantFlags []string
	}{
		{
			name:     "valid",
			mutate:   func(f *models.ScoredForecast) {},
			wantKept: 3,
		},
		{
			name:      "missing mode dropped",
			mutate:    func(f *models.ScoredForecast) { f.Hours[1].Scores.RunDog = nil },
			wantKept:  2,
			wantFlags: []string{FlagInvalidHour},
		},
		{
			name:      "score out of range dropped",
			mutate:    func(f *models.ScoredForecast) { f.Hours[0].Scores.SwimSolo.Score = 101 },
			wantKept:  2,
			wantFlags: []string{FlagInvalidHour},
		},
		{
			name:      "unknown label dropped",
			mutate:    func(f *models.ScoredForecast) { f.Hours[2].Scores.SwimDog.Label = "Great" },
			wantKept:  2,
			wantFlags: []string{FlagInvalidHour},
		},
		{
			name: "negative precipitation dropped",
			mutate: func(f *models.ScoredForecast) {
				v := -1.0
				f.Hours[2].PrecipMM = &v
			},
			wantKept:  2,
			wantFlags: []string{FlagInvalidHour},
		},
		{
			name:      "duplicate hour dropped",
			mutate:    func(f *models.ScoredForecast) { f.Hours[2].HourUTC = f.Hours[0].HourUTC },
			wantKept:  2,
			wantFlags: []string{FlagDuplicateHour},
		},
		{
			name:      "bad daily row dropped",
			mutate:    func(f *models.ScoredForecast) { f.Daily[0].Date = "21/06/2025" },
			wantKept:  3,
			wantFlags: []string{FlagInvalidDaily},
		},
		{
			name:    "wrong area rejected",
			mutate:  func(f *models.ScoredForecast) { f.AreaID = "haifa_coast" },
			wantErr: true,
		},
		{
			name:    "missing updated_at rejected",
			mutate:  func(f *models.ScoredForecast) { f.UpdatedAtUTC = time.Time{} },
			wantErr: true,
		},
		{
			name:    "no hours rejected",
			mutate:  func(f *models.ScoredForecast) { f.Hours = nil },
			wantErr: true,
		},
		{
			name: "all hours invalid rejected",
			mutate: func(f *models.ScoredForecast) {
				for i := range f.Hours {
					f.Hours[i].Scores.SwimSolo = nil
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForecast(3)
			tt.mutate(f)

			report, err := ValidateForecast(f, testArea)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKept, report.HoursKept)
			assert.Len(t, f.Hours, tt.wantKept)
			assert.Equal(t, tt.wantFlags, report.Flags)
			assert.Equal(t, len(tt.wantFlags) > 0, report.Degraded())
		})
	}
}

func TestValidateForecast_SortsHours(t *testing.T) {
	f := validForecast(3)
	f.Hours[0], f.Hours[2] = f.Hours[2], f.Hours[0]

	_, err := ValidateForecast(f, testArea)
	require.NoError(t, err)
	for i := 1; i < len(f.Hours); i++ {
		assert.True(t, f.Hours[i-1].HourUTC.Before(f.Hours[i].HourUTC), "hours not ascending at %d", i)
	}
}

func TestUpstream_Fetch(t *testing.T) {
	body := forecastJSON(t, validForecast(24))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, scoresPath, r.URL.Path)
		assert.Equal(t, testArea, r.URL.Query().Get("area_id"))
		assert.Equal(t, "7", r.URL.Query().Get("days"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer srv.Close()

	u := NewUpstream(srv.URL, 7)
	f, raw, result, err := u.Fetch(context.Background(), testArea)
	require.NoError(t, err)
	assert.Len(t, f.Hours, 24)
	assert.Equal(t, body, raw)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, 24, result.RecordCount)
	assert.Equal(t, len(body), result.ResponseSize)
}

func TestUpstream_RetriesServerErrors(t *testing.T) {
	body := forecastJSON(t, validForecast(2))
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()

	u := NewUpstream(srv.URL, 7, WithMaxElapsed(10*time.Second))
	f, _, _, err := u.Fetch(context.Background(), testArea)
	require.NoError(t, err)
	assert.Len(t, f.Hours, 2)
	assert.EqualValues(t, 2, calls.Load())
}

func TestUpstream_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown area", http.StatusNotFound)
	}))
	defer srv.Close()

	u := NewUpstream(srv.URL, 7, WithMaxElapsed(10*time.Second))
	_, _, result, err := u.Fetch(context.Background(), "nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, http.StatusNotFound, result.HTTPStatus)
	assert.EqualValues(t, 1, calls.Load())
}

func TestUpstream_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	u := NewUpstream(srv.URL, 7, WithMaxElapsed(time.Millisecond))
	for i := 0; i < 6; i++ {
		_, _, _, err := u.Fetch(context.Background(), testArea)
		require.Error(t, err)
	}
	assert.Equal(t, "open", u.BreakerState())

	before := calls.Load()
	_, _, _, err := u.Fetch(context.Background(), testArea)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, before, calls.Load())
}

func TestUpstream_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hours": [`))
	}))
	defer srv.Close()

	_, raw, _, err := NewUpstream(srv.URL, 7).Fetch(context.Background(), testArea)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal forecast")
	assert.NotEmpty(t, raw)
}

func TestFTPDrop(t *testing.T) {
	d := NewFTPDrop("127.0.0.1:1", "", "", "/pub/scores")
	assert.Equal(t, "/pub/scores/tel_aviv_coast.json", d.FilePath(testArea))
	assert.Equal(t, "anonymous", d.user)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, result, err := d.Fetch(ctx, testArea)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp dial")
	assert.Equal(t, err, result.Error)
}

// fakeSource serves a fixed document or error.
type fakeSource struct {
	name  string
	body  []byte
	err   error
	calls int
}

func (f *fakeSource) Name() string     { return f.name }
func (f *fakeSource) Endpoint() string { return "/fake" }

func (f *fakeSource) Fetch(ctx context.Context, areaID string) (*models.ScoredForecast, []byte, *FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, &FetchResult{Error: f.err}, f.err
	}
	fc, err := decodeForecast(f.body)
	if err != nil {
		return nil, f.body, &FetchResult{}, err
	}
	return fc, f.body, &FetchResult{HTTPStatus: 200, ResponseSize: len(f.body), RecordCount: len(fc.Hours)}, nil
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	require.NoError(t, st.Migrate())
	return st
}

func TestScheduler_IngestArea(t *testing.T) {
	st := setupStore(t)
	src := &fakeSource{name: "http", body: forecastJSON(t, validForecast(5))}

	var notified []string
	s := NewScheduler(st, []Source{src}, []string{testArea})
	s.SetOnSnapshot(func(areaID string) { notified = append(notified, areaID) })

	require.NoError(t, s.IngestOnce(context.Background()))

	snap, err := st.LatestSnapshot(testArea)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, StatusSuccess, snap.IngestStatus)
	assert.Equal(t, "http", snap.Source)
	assert.Len(t, snap.Forecast.Hours, 5)
	assert.Len(t, snap.Forecast.Daily, 1)
	assert.Equal(t, []string{testArea}, notified)

	run, err := st.LatestIngestRun(testArea)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.True(t, run.Success)
	assert.EqualValues(t, 5, run.RecordsStored.Int64)

	stats, err := st.GetRawPayloadStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)
}

func TestScheduler_UnchangedPayloadStoredOnce(t *testing.T) {
	st := setupStore(t)
	body := forecastJSON(t, validForecast(5))
	s := NewScheduler(st, []Source{&fakeSource{name: "http", body: body}}, []string{testArea})

	require.NoError(t, s.IngestOnce(context.Background()))
	require.NoError(t, s.IngestOnce(context.Background()))

	stats, err := st.GetRawPayloadStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalCount)

	prev, err := st.GetRawPayloadByHash(store.PayloadHash(body))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "http", prev.Source)

	health, err := st.GetIngestHealth(1)
	require.NoError(t, err)
	require.Len(t, health, 1)
	assert.Equal(t, 2, health[0].SuccessRuns)
}

func TestScheduler_FallsBackToNextSource(t *testing.T) {
	st := setupStore(t)
	primary := &fakeSource{name: "http", err: errors.New("connection refused")}
	f := validForecast(3)
	f.Hours[1].Scores.SwimDog.Score = -5
	fallback := &fakeSource{name: "ftp", body: forecastJSON(t, f)}

	s := NewScheduler(st, []Source{primary, fallback}, []string{testArea})
	require.NoError(t, s.IngestArea(context.Background(), testArea))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)

	snap, err := st.LatestSnapshot(testArea)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Equal(t, "ftp", snap.Source)
	assert.Equal(t, StatusDegraded, snap.IngestStatus)
	assert.Len(t, snap.Forecast.Hours, 2)

	errs, err := st.GetRecentIngestErrors(10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "http", errs[0].Source)
}

func TestScheduler_AllSourcesFail(t *testing.T) {
	st := setupStore(t)
	bad := forecastJSON(t, validForecast(0))
	s := NewScheduler(st, []Source{&fakeSource{name: "http", body: bad}}, []string{testArea})

	err := s.IngestOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid hours")

	snap, err := st.LatestSnapshot(testArea)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestBackfillDaily(t *testing.T) {
	f := validForecast(30)
	added := BackfillDaily(f, forecast.DefaultSettings())
	assert.Equal(t, 1, added)
	require.Len(t, f.Daily, 2)
	assert.Equal(t, "2025-06-21", f.Daily[0].Date)
	assert.Equal(t, testStart.Add(2*time.Hour+30*time.Minute), f.Daily[0].SunriseUTC, "stored row kept")

	next := f.Daily[1]
	assert.Equal(t, "2025-06-22", next.Date)
	assert.Equal(t, 22, next.SunriseUTC.Day())
	assert.True(t, next.SunriseUTC.Before(next.SunsetUTC))
	assert.Equal(t, 2, next.SunriseUTC.Hour())

	assert.Zero(t, BackfillDaily(f, forecast.DefaultSettings()))
}

func TestScheduler_BackfillsDaily(t *testing.T) {
	st := setupStore(t)
	src := &fakeSource{name: "http", body: forecastJSON(t, validForecast(30))}

	s := NewScheduler(st, []Source{src}, []string{testArea})
	s.SetAreaSettings([]forecast.Settings{forecast.DefaultSettings()})
	require.NoError(t, s.IngestOnce(context.Background()))

	snap, err := st.LatestSnapshot(testArea)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Len(t, snap.Forecast.Daily, 2)
	assert.Equal(t, StatusSuccess, snap.IngestStatus)
}
