package forecast

import (
	"fmt"
	"strconv"

	"github.com/lox/coastscore/internal/models"
)

// Severity is a per-factor rating independent of the upstream score.
type Severity string

const (
	SeverityGood    Severity = "good"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
	SeverityNeutral Severity = "neutral" // no measurement
)

// threshold escalates at or above WarningAt and DangerAt.
type threshold struct {
	WarningAt float64
	DangerAt  float64
}

func (t threshold) classify(v *float64) Severity {
	if v == nil {
		return SeverityNeutral
	}
	switch {
	case *v >= t.DangerAt:
		return SeverityDanger
	case *v >= t.WarningAt:
		return SeverityWarning
	default:
		return SeverityGood
	}
}

// Balanced-preset thresholds, matching the upstream penalty table.
var (
	waveThreshold = threshold{WarningAt: 0.6, DangerAt: 1.0}
	gustThreshold = threshold{WarningAt: 10, DangerAt: 14}
	uvThreshold   = threshold{WarningAt: 6, DangerAt: 8}
	aqiThreshold  = threshold{WarningAt: 50, DangerAt: 100}
)

const (
	feelsHotDanger  = 35.0
	feelsHotWarning = 32.0
	feelsColdDanger = 10.0
	feelsColdWarn   = 14.0

	rainMMDanger    = 3.0
	rainProbDanger  = 80
	rainProbWarning = 40
)

// FeelsSeverity is dual-sided: heat and cold both escalate.
func FeelsSeverity(feelsLikeC *float64) Severity {
	if feelsLikeC == nil {
		return SeverityNeutral
	}
	v := *feelsLikeC
	switch {
	case v >= feelsHotDanger || v <= feelsColdDanger:
		return SeverityDanger
	case v >= feelsHotWarning || v <= feelsColdWarn:
		return SeverityWarning
	default:
		return SeverityGood
	}
}

func WavesSeverity(waveHeightM *float64) Severity { return waveThreshold.classify(waveHeightM) }

func WindSeverity(gustMS *float64) Severity { return gustThreshold.classify(gustMS) }

func UVSeverity(uvIndex *float64) Severity { return uvThreshold.classify(uvIndex) }

func AQISeverity(euAQI *int) Severity {
	if euAQI == nil {
		return SeverityNeutral
	}
	v := float64(*euAQI)
	return aqiThreshold.classify(&v)
}

// RainSeverity combines amount and probability. Either one present is
// enough to classify.
func RainSeverity(precipProbPct *int, precipMM *float64) Severity {
	if precipProbPct == nil && precipMM == nil {
		return SeverityNeutral
	}
	if (precipMM != nil && *precipMM >= rainMMDanger) || (precipProbPct != nil && *precipProbPct >= rainProbDanger) {
		return SeverityDanger
	}
	if precipProbPct != nil && *precipProbPct >= rainProbWarning {
		return SeverityWarning
	}
	return SeverityGood
}

// SeverityColor returns the CSS class for a severity. Only warning and
// danger are called out; good and neutral share the muted style.
func SeverityColor(s Severity) string {
	switch s {
	case SeverityWarning:
		return "text-amber-400"
	case SeverityDanger:
		return "text-red-400"
	default:
		return "text-slate-400"
	}
}

// SeverityHex is SeverityColor for SVG and inline styles.
func SeverityHex(s Severity) string {
	switch s {
	case SeverityWarning:
		return "#FBBF24"
	case SeverityDanger:
		return "#F87171"
	default:
		return "#94A3AF"
	}
}

// ConditionItem is one tile of the per-hour conditions grid.
type ConditionItem struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Value    string   `json:"value"`
	Detail   string   `json:"detail,omitempty"`
	Severity Severity `json:"severity"`
	Class    string   `json:"class"`
	Color    string   `json:"color"`
}

// HourSeverities is the per-factor severity tag set for one hour.
type HourSeverities struct {
	Feels Severity `json:"feels"`
	Waves Severity `json:"waves"`
	Wind  Severity `json:"wind"`
	UV    Severity `json:"uv"`
	AQI   Severity `json:"aqi"`
	Rain  Severity `json:"rain"`
}

// Classify returns every factor severity for an hour.
func Classify(h models.HourRecord) HourSeverities {
	return HourSeverities{
		Feels: FeelsSeverity(h.FeelsLikeC),
		Waves: WavesSeverity(h.WaveHeightM),
		Wind:  WindSeverity(h.GustMS),
		UV:    UVSeverity(h.UVIndex),
		AQI:   AQISeverity(h.EUAQI),
		Rain:  RainSeverity(h.PrecipProbPct, h.PrecipMM),
	}
}

// Conditions builds the six condition tiles for an hour.
func Conditions(h models.HourRecord) []ConditionItem {
	sev := Classify(h)
	items := []ConditionItem{
		{Key: "feels", Label: "Feels", Value: "--", Severity: sev.Feels},
		{Key: "waves", Label: "Waves", Value: "--", Severity: sev.Waves},
		{Key: "wind", Label: "Wind", Value: "--", Severity: sev.Wind},
		{Key: "uv", Label: "UV", Value: "--", Severity: sev.UV},
		{Key: "aqi", Label: "AQI", Value: "--", Severity: sev.AQI},
		{Key: "rain", Label: "Rain", Value: "--", Severity: sev.Rain},
	}

	if v := h.FeelsLikeC; v != nil {
		items[0].Value = fmt.Sprintf("%d°", int(roundHalfUp(*v)))
	}
	if v := h.AirTempC; v != nil {
		items[0].Detail = fmt.Sprintf("%d° actual", int(roundHalfUp(*v)))
	}

	if v := h.WaveHeightM; v != nil {
		items[1].Value = num(*v) + "m"
	}
	if v := h.WavePeriodS; v != nil {
		items[1].Detail = num(*v) + "s period"
	}

	gust, wind := h.GustMS, h.WindMS
	switch {
	case gust != nil:
		items[2].Value = num(*gust) + "m/s"
	case wind != nil:
		items[2].Value = num(*wind) + "m/s"
	}
	if gust != nil && wind != nil {
		items[2].Detail = num(*wind) + "m/s avg"
	}

	if v := h.UVIndex; v != nil {
		items[3].Value = num(*v)
		switch {
		case *v >= 8:
			items[3].Detail = "Very High"
		case *v >= 6:
			items[3].Detail = "High"
		case *v >= 3:
			items[3].Detail = "Moderate"
		default:
			items[3].Detail = "Low"
		}
	}

	if v := h.EUAQI; v != nil {
		items[4].Value = strconv.Itoa(*v)
		switch {
		case *v <= 50:
			items[4].Detail = "Good"
		case *v <= 100:
			items[4].Detail = "Moderate"
		default:
			items[4].Detail = "Poor"
		}
	}

	if v := h.PrecipProbPct; v != nil {
		items[5].Value = fmt.Sprintf("%d%%", *v)
	}
	if v := h.PrecipMM; v != nil && *v > 0 {
		items[5].Detail = num(*v) + "mm"
	}

	for i := range items {
		items[i].Class = SeverityColor(items[i].Severity)
		items[i].Color = SeverityHex(items[i].Severity)
	}
	return items
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
