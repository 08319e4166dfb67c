package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/lox/coastscore/internal/api"
	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/models"
)

// printView writes one derived view of snap to w. JSON views are indented;
// svg writes the graph document.
func printView(w io.Writer, view string, snap *models.Snapshot, settings forecast.Settings, mode models.Mode, metric forecast.MetricKey, day string, now time.Time) error {
	hours := snap.Forecast.Hours
	if day != "" {
		var filtered []models.HourRecord
		for _, h := range hours {
			if forecast.DayKey(h.HourUTC, settings.Location) == day {
				filtered = append(filtered, h)
			}
		}
		hours = filtered
	}

	var out any
	switch view {
	case "days":
		out = forecast.GroupByDay(hours, mode, metric, settings)
	case "window":
		out = map[string]*forecast.WindowResult{"window": forecast.FindBestWindow(hours, mode, now)}
	case "hours":
		type row struct {
			HourUTC    time.Time                `json:"hour_utc"`
			Score      int                      `json:"score"`
			Severities forecast.HourSeverities  `json:"severities"`
			Conditions []forecast.ConditionItem `json:"conditions"`
			SunEvent   *forecast.SunEvent       `json:"sun_event"`
		}
		events := forecast.SunEvents(hours, snap.Forecast.Daily, settings)
		rows := make([]row, len(hours))
		for i, h := range hours {
			rows[i] = row{h.HourUTC, h.Score(mode), forecast.Classify(h), forecast.Conditions(h), events[i]}
		}
		out = rows
	case "graph", "svg":
		series := forecast.BuildSeries(hours, metric, mode, forecast.GraphOptions{
			Margins:  forecast.DefaultMargins,
			Daily:    snap.Forecast.Daily,
			Settings: settings,
		})
		if view == "svg" {
			_, err := io.WriteString(w, api.RenderSVG(series))
			return err
		}
		out = series
	default:
		return fmt.Errorf("unknown view %q", view)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
