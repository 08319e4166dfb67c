package forecast

import (
	"fmt"
	"strings"

	"github.com/lox/coastscore/internal/models"
)

// MetricKey selects which series a view displays.
type MetricKey string

const (
	MetricScore MetricKey = "score"
	MetricTemp  MetricKey = "temp"
	MetricUV    MetricKey = "uv"
	MetricWind  MetricKey = "wind"
	MetricWaves MetricKey = "waves"
	MetricRain  MetricKey = "rain"
	MetricAQI   MetricKey = "aqi"
)

// MetricDef describes how a metric is labelled and drawn.
type MetricDef struct {
	Key   MetricKey `json:"key"`
	Label string    `json:"label"`
	Unit  string    `json:"unit"`
	Color string    `json:"color"`
}

var metricDefs = []MetricDef{
	{Key: MetricScore, Label: "Score", Unit: "", Color: "#60A5FA"},
	{Key: MetricTemp, Label: "Temperature", Unit: "°", Color: "#FB923C"},
	{Key: MetricUV, Label: "UV Index", Unit: "", Color: "#FBBF24"},
	{Key: MetricWind, Label: "Wind", Unit: "m/s", Color: "#34D399"},
	{Key: MetricWaves, Label: "Waves", Unit: "m", Color: "#60A5FA"},
	{Key: MetricRain, Label: "Rain", Unit: "%", Color: "#A78BFA"},
	{Key: MetricAQI, Label: "Air Quality", Unit: "", Color: "#F87171"},
}

// Metrics returns the metric definitions in display order.
func Metrics() []MetricDef {
	out := make([]MetricDef, len(metricDefs))
	copy(out, metricDefs)
	return out
}

// Def returns the definition for key. Unknown keys get an empty unit.
func Def(key MetricKey) MetricDef {
	for _, d := range metricDefs {
		if d.Key == key {
			return d
		}
	}
	return MetricDef{Key: key, Label: string(key)}
}

// ParseMetric parses a metric key, defaulting to score for "".
func ParseMetric(s string) (MetricKey, error) {
	if s == "" {
		return MetricScore, nil
	}
	key := MetricKey(strings.ToLower(s))
	if _, ok := accessors[key]; !ok {
		return "", fmt.Errorf("unknown metric %q", s)
	}
	return key, nil
}

// ParseMode parses an activity mode, defaulting to swim_solo for "".
func ParseMode(s string) (models.Mode, error) {
	if s == "" {
		return models.ModeSwimSolo, nil
	}
	for _, m := range models.Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

type accessor func(h models.HourRecord, mode models.Mode) (float64, bool)

func floatField(get func(h models.HourRecord) *float64) accessor {
	return func(h models.HourRecord, _ models.Mode) (float64, bool) {
		if v := get(h); v != nil {
			return *v, true
		}
		return 0, false
	}
}

func intField(get func(h models.HourRecord) *int) accessor {
	return func(h models.HourRecord, _ models.Mode) (float64, bool) {
		if v := get(h); v != nil {
			return float64(*v), true
		}
		return 0, false
	}
}

var accessors = map[MetricKey]accessor{
	MetricScore: func(h models.HourRecord, mode models.Mode) (float64, bool) {
		ms := h.Scores.Get(mode)
		if ms == nil {
			return 0, false
		}
		return float64(ms.Score), true
	},
	MetricTemp:  floatField(func(h models.HourRecord) *float64 { return h.FeelsLikeC }),
	MetricUV:    floatField(func(h models.HourRecord) *float64 { return h.UVIndex }),
	MetricWind:  floatField(func(h models.HourRecord) *float64 { return h.WindMS }),
	MetricWaves: floatField(func(h models.HourRecord) *float64 { return h.WaveHeightM }),
	MetricRain:  intField(func(h models.HourRecord) *int { return h.PrecipProbPct }),
	MetricAQI:   intField(func(h models.HourRecord) *int { return h.EUAQI }),
}

// Value reads metric from h. The mode only matters for MetricScore.
// ok is false when the hour has no value; callers must skip it rather
// than treat it as zero.
func Value(h models.HourRecord, metric MetricKey, mode models.Mode) (v float64, ok bool) {
	get, found := accessors[metric]
	if !found {
		return 0, false
	}
	return get(h, mode)
}

// Format renders a metric value for display.
func Format(v float64, ok bool, metric MetricKey) string {
	if !ok {
		return "--"
	}
	unit := Def(metric).Unit
	if metric == MetricWaves {
		return fmt.Sprintf("%.1f%s", v, unit)
	}
	return fmt.Sprintf("%d%s", int(roundHalfUp(v)), unit)
}
