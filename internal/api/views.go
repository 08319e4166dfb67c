package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/models"
	"github.com/lox/coastscore/internal/narrative"
)

// viewContext is the parsed query plus the stored snapshot it refers to.
type viewContext struct {
	settings forecast.Settings
	snap     *models.Snapshot
	mode     models.Mode
	metric   forecast.MetricKey
	now      time.Time
}

func (v *viewContext) hours() []models.HourRecord { return v.snap.Forecast.Hours }

func (v *viewContext) ageMinutes() int {
	return int(forecastAge(v.snap, v.now).Minutes())
}

// forecastAge is measured from the upstream update time, not from when we
// fetched it. A mirror can serve an old forecast long after it went stale.
func forecastAge(snap *models.Snapshot, now time.Time) time.Duration {
	return now.Sub(snap.Forecast.UpdatedAtUTC)
}

// meta is echoed at the top of every view response.
type meta struct {
	AreaID       string      `json:"area_id"`
	Mode         models.Mode `json:"mode"`
	UpdatedAtUTC time.Time   `json:"updated_at_utc"`
	FetchedAt    time.Time   `json:"fetched_at"`
	Freshness    string      `json:"freshness"`
	AgeLabel     string      `json:"age_label"`
}

func (v *viewContext) meta() meta {
	age := v.ageMinutes()
	return meta{
		AreaID:       v.settings.AreaID,
		Mode:         v.mode,
		UpdatedAtUTC: v.snap.Forecast.UpdatedAtUTC,
		FetchedAt:    v.snap.FetchedAt,
		Freshness:    forecast.Freshness(age),
		AgeLabel:     forecast.FreshnessLabel(age),
	}
}

func (s *Server) areaSettings(r *http.Request) (forecast.Settings, error) {
	areaID := r.URL.Query().Get("area")
	if areaID == "" {
		areaID = s.defaultArea
	}
	settings, ok := s.areas[areaID]
	if !ok {
		return forecast.Settings{}, &apiError{status: http.StatusNotFound, code: CodeUnknownArea, message: fmt.Sprintf("unknown area %q", areaID)}
	}
	return settings, nil
}

// loadView parses area, mode and metric and loads the latest snapshot.
// A missing mode defaults to swim_solo and a missing metric to score.
func (s *Server) loadView(r *http.Request) (*viewContext, error) {
	settings, err := s.areaSettings(r)
	if err != nil {
		return nil, err
	}

	q := r.URL.Query()
	mode := models.ModeSwimSolo
	if m := q.Get("mode"); m != "" {
		if mode, err = forecast.ParseMode(m); err != nil {
			return nil, badRequest(CodeInvalidMode, err.Error())
		}
	}
	metric, err := forecast.ParseMetric(q.Get("metric"))
	if err != nil {
		return nil, badRequest(CodeInvalidMetric, err.Error())
	}

	snap, err := s.store.LatestSnapshot(settings.AreaID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil || len(snap.Forecast.Hours) == 0 {
		return nil, ErrNoSnapshot
	}

	return &viewContext{
		settings: settings,
		snap:     snap,
		mode:     mode,
		metric:   metric,
		now:      s.now(),
	}, nil
}

type DayView struct {
	forecast.DayGroup
	Label         string `json:"label"`
	BestHourLabel string `json:"best_hour_label"`
}

type DaysResponse struct {
	meta
	Metric forecast.MetricDef `json:"metric"`
	Days   []DayView          `json:"days"`
}

func (s *Server) handleDays(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	loc := v.settings.Location
	groups := forecast.GroupByDay(v.hours(), v.mode, v.metric, v.settings)
	days := make([]DayView, 0, len(groups))
	for _, g := range groups {
		days = append(days, DayView{
			DayGroup:      g,
			Label:         forecast.DayLabel(g.Hours[0].HourUTC, v.now, loc),
			BestHourLabel: forecast.ClockLabel(g.BestHour, loc),
		})
	}

	writeJSON(w, http.StatusOK, DaysResponse{meta: v.meta(), Metric: forecast.Def(v.metric), Days: days})
}

type WindowResponse struct {
	meta
	Window *WindowView `json:"window"`
}

type WindowView struct {
	*forecast.WindowResult
	StartLabel string `json:"start_label"`
	EndLabel   string `json:"end_label"`
	DayLabel   string `json:"day_label"`
}

func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := WindowResponse{meta: v.meta()}
	if win := forecast.FindBestWindow(v.hours(), v.mode, v.now); win != nil {
		loc := v.settings.Location
		resp.Window = &WindowView{
			WindowResult: win,
			StartLabel:   forecast.ClockLabel(win.Start, loc),
			EndLabel:     forecast.ClockLabel(win.End.Add(time.Hour), loc),
			DayLabel:     forecast.DayLabel(win.Start, v.now, loc),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type HourView struct {
	HourUTC    time.Time                `json:"hour_utc"`
	Label      string                   `json:"label"`
	Day        string                   `json:"day"`
	Score      int                      `json:"score"`
	Tier       models.Label             `json:"tier"`
	TierHex    string                   `json:"tier_hex"`
	HardGated  bool                     `json:"hard_gated"`
	Reasons    []models.Reason          `json:"reasons"`
	Severities forecast.HourSeverities  `json:"severities"`
	Conditions []forecast.ConditionItem `json:"conditions"`
	SunEvent   *forecast.SunEvent       `json:"sun_event"`
}

type HoursResponse struct {
	meta
	CurrentIndex *int       `json:"current_index"`
	Hours        []HourView `json:"hours"`
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	hours := v.hours()
	loc := v.settings.Location
	events := forecast.SunEvents(hours, v.snap.Forecast.Daily, v.settings)

	resp := HoursResponse{meta: v.meta(), Hours: make([]HourView, len(hours))}
	if i, ok := forecast.CurrentHour(hours, v.now); ok {
		resp.CurrentIndex = &i
	}
	for i, h := range hours {
		hv := HourView{
			HourUTC:    h.HourUTC,
			Label:      forecast.ClockLabel(h.HourUTC, loc),
			Day:        forecast.DayKey(h.HourUTC, loc),
			Severities: forecast.Classify(h),
			Conditions: forecast.Conditions(h),
			SunEvent:   events[i],
		}
		if ms := h.Scores.Get(v.mode); ms != nil {
			hv.Score = ms.Score
			hv.HardGated = ms.HardGated
			hv.Reasons = ms.Reasons
		}
		hv.Tier = forecast.LabelForScore(hv.Score)
		hv.TierHex = forecast.TierHex(hv.Tier)
		resp.Hours[i] = hv
	}
	writeJSON(w, http.StatusOK, resp)
}

// seriesFor builds the graph for the request, optionally limited to one
// local day via ?day=YYYY-MM-DD. width and height override the defaults.
func (s *Server) seriesFor(r *http.Request) (*viewContext, forecast.Series, error) {
	v, err := s.loadView(r)
	if err != nil {
		return nil, forecast.Series{}, err
	}

	q := r.URL.Query()
	hours := v.hours()
	if day := q.Get("day"); day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return nil, forecast.Series{}, badRequest(CodeInvalidDay, "day must be YYYY-MM-DD")
		}
		var filtered []models.HourRecord
		for _, h := range hours {
			if forecast.DayKey(h.HourUTC, v.settings.Location) == day {
				filtered = append(filtered, h)
			}
		}
		if len(filtered) == 0 {
			return nil, forecast.Series{}, &apiError{status: http.StatusNotFound, code: CodeNotFound, message: "no hours on " + day}
		}
		hours = filtered
	}

	width, err := sizeParam(q.Get("width"), forecast.DefaultGraphWidth)
	if err != nil {
		return nil, forecast.Series{}, err
	}
	height, err := sizeParam(q.Get("height"), forecast.DefaultGraphHeight)
	if err != nil {
		return nil, forecast.Series{}, err
	}

	series := forecast.BuildSeries(hours, v.metric, v.mode, forecast.GraphOptions{
		Width:    width,
		Height:   height,
		Margins:  forecast.DefaultMargins,
		Daily:    v.snap.Forecast.Daily,
		Settings: v.settings,
	})
	return v, series, nil
}

func sizeParam(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 50 || f > 4000 {
		return 0, badRequest("invalid_size", "width and height must be between 50 and 4000")
	}
	return f, nil
}

type GraphResponse struct {
	meta
	Series forecast.Series `json:"series"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	v, series, err := s.seriesFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{meta: v.meta(), Series: series})
}

func (s *Server) handleGraphSVG(w http.ResponseWriter, r *http.Request) {
	_, series, err := s.seriesFor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if _, err := w.Write([]byte(RenderSVG(series))); err != nil {
		writeError(w, r, err)
	}
}

type VibeResponse struct {
	meta
	HourUTC time.Time `json:"hour_utc"`
	narrative.Line
}

// currentInput gathers what the narrator needs for the hour containing now.
func (v *viewContext) currentInput() (narrative.Input, error) {
	hours := v.hours()
	i, ok := forecast.CurrentHour(hours, v.now)
	if !ok {
		return narrative.Input{}, &apiError{status: http.StatusServiceUnavailable, code: CodeForecastExpired, message: "every stored hour is in the past"}
	}
	return narrative.Input{
		AreaID:     v.settings.AreaID,
		Mode:       v.mode,
		Hour:       hours[i],
		Conditions: forecast.Conditions(hours[i]),
		Window:     forecast.FindBestWindow(hours, v.mode, v.now),
		Location:   v.settings.Location,
	}, nil
}

func (s *Server) handleVibe(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadView(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := v.currentInput()
	if err != nil {
		writeError(w, r, err)
		return
	}

	line := s.narrator.Vibe(r.Context(), in)
	writeJSON(w, http.StatusOK, VibeResponse{meta: v.meta(), HourUTC: in.Hour.HourUTC, Line: line})
}

// areaTitle turns "tel_aviv_coast" into "Tel Aviv Coast".
func areaTitle(areaID string) string {
	words := strings.Fields(strings.ReplaceAll(areaID, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
