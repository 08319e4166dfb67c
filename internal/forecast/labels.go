package forecast

import (
	"fmt"
	"math"

	"github.com/lox/coastscore/internal/models"
)

// Score breakpoints shared by every derived view. The upstream scorer uses
// the same table; keep them in step.
const (
	PerfectAt = 85
	GoodAt    = 70
	MehAt     = 45
	BadAt     = 20
)

// ComfortThreshold is the minimum score for an hour to join a best window.
// A window is "Good or better" by definition, so it tracks GoodAt.
const ComfortThreshold = GoodAt

// LabelForScore maps a 0-100 score onto its label.
func LabelForScore(score int) models.Label {
	switch {
	case score >= PerfectAt:
		return models.LabelPerfect
	case score >= GoodAt:
		return models.LabelGood
	case score >= MehAt:
		return models.LabelMeh
	case score >= BadAt:
		return models.LabelBad
	default:
		return models.LabelNope
	}
}

// roundHalfUp rounds like JavaScript's Math.round: halves go towards +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Freshness buckets for the age of the stored forecast.
const (
	FreshnessFresh     = "fresh"
	FreshnessStale     = "stale"
	FreshnessVeryStale = "very-stale"

	FreshMinutes     = 90
	UnhealthyMinutes = 180
)

// Freshness classifies a forecast age in minutes.
func Freshness(ageMinutes int) string {
	switch {
	case ageMinutes < FreshMinutes:
		return FreshnessFresh
	case ageMinutes < UnhealthyMinutes:
		return FreshnessStale
	default:
		return FreshnessVeryStale
	}
}

// FreshnessLabel renders an age as "42m ago" or "3h ago".
func FreshnessLabel(ageMinutes int) string {
	if ageMinutes < 60 {
		return fmt.Sprintf("%dm ago", ageMinutes)
	}
	return fmt.Sprintf("%dh ago", int(roundHalfUp(float64(ageMinutes)/60)))
}
