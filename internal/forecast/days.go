package forecast

import (
	"time"

	"github.com/lox/coastscore/internal/models"
)

// DayGroup aggregates the hours of one local calendar day.
type DayGroup struct {
	Day       string              `json:"day"` // YYYY-MM-DD in the display zone
	Hours     []models.HourRecord `json:"-"`
	Count     int                 `json:"count"`
	Min       float64             `json:"min"`
	Max       float64             `json:"max"`
	BestScore int                 `json:"best_score"`
	BestLabel models.Label        `json:"best_label"`
	BestHour  time.Time           `json:"best_hour"`
}

// DayKey is the calendar day of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// GroupByDay partitions hours by display-zone calendar day, in order of
// first appearance. Input is assumed sorted and is not re-sorted.
//
// Min and Max cover the selected metric's present values only and are both
// zero for a day with none. The best hour is always chosen by the mode's
// score so day summaries do not change when the displayed metric does.
func GroupByDay(hours []models.HourRecord, mode models.Mode, metric MetricKey, settings Settings) []DayGroup {
	loc := settings.location()

	var groups []DayGroup
	index := make(map[string]int)
	for _, h := range hours {
		key := DayKey(h.HourUTC, loc)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Day: key})
		}
		groups[i].Hours = append(groups[i].Hours, h)
	}

	for i := range groups {
		summarize(&groups[i], mode, metric)
	}
	return groups
}

func summarize(g *DayGroup, mode models.Mode, metric MetricKey) {
	g.Count = len(g.Hours)

	first := true
	for _, h := range g.Hours {
		v, ok := Value(h, metric, mode)
		if !ok {
			continue
		}
		if first {
			g.Min, g.Max = v, v
			first = false
			continue
		}
		if v < g.Min {
			g.Min = v
		}
		if v > g.Max {
			g.Max = v
		}
	}

	for i, h := range g.Hours {
		s := h.Score(mode)
		if i == 0 || s > g.BestScore {
			g.BestScore = s
			g.BestHour = h.HourUTC
		}
	}
	g.BestLabel = LabelForScore(g.BestScore)
}

// DayLabel names a day relative to now: "Today", "Tomorrow" or "Mon, Jan 2".
func DayLabel(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	day := DayKey(t, loc)
	localNow := now.In(loc)
	if day == localNow.Format("2006-01-02") {
		return "Today"
	}
	tomorrow := time.Date(localNow.Year(), localNow.Month(), localNow.Day()+1, 12, 0, 0, 0, loc)
	if day == tomorrow.Format("2006-01-02") {
		return "Tomorrow"
	}
	return t.In(loc).Format("Mon, Jan 2")
}
