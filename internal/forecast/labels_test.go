package forecast

import (
	"testing"

	"github.com/lox/coastscore/internal/models"
)

func TestLabelForScore(t *testing.T) {
	tests := []struct {
		score int
		want  models.Label
	}{
		{100, models.LabelPerfect},
		{85, models.LabelPerfect},
		{84, models.LabelGood},
		{70, models.LabelGood},
		{69, models.LabelMeh},
		{45, models.LabelMeh},
		{44, models.LabelBad},
		{20, models.LabelBad},
		{19, models.LabelNope},
		{0, models.LabelNope},
	}

	for _, tt := range tests {
		if got := LabelForScore(tt.score); got != tt.want {
			t.Errorf("LabelForScore(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestComfortThresholdIsGood(t *testing.T) {
	if LabelForScore(ComfortThreshold) != models.LabelGood {
		t.Errorf("ComfortThreshold %d should be the first Good score", ComfortThreshold)
	}
	if LabelForScore(ComfortThreshold-1) == models.LabelGood {
		t.Errorf("score below ComfortThreshold should not be Good")
	}
}

func TestFreshness(t *testing.T) {
	tests := []struct {
		age       int
		want      string
		wantLabel string
	}{
		{0, FreshnessFresh, "0m ago"},
		{59, FreshnessFresh, "59m ago"},
		{89, FreshnessFresh, "1h ago"},
		{90, FreshnessStale, "2h ago"},
		{179, FreshnessStale, "3h ago"},
		{180, FreshnessVeryStale, "3h ago"},
	}

	for _, tt := range tests {
		if got := Freshness(tt.age); got != tt.want {
			t.Errorf("Freshness(%d) = %s, want %s", tt.age, got, tt.want)
		}
		if got := FreshnessLabel(tt.age); got != tt.wantLabel {
			t.Errorf("FreshnessLabel(%d) = %s, want %s", tt.age, got, tt.wantLabel)
		}
	}
}

func TestTierHex(t *testing.T) {
	if got := TierHex(models.LabelPerfect); got != "#2DA44E" {
		t.Errorf("TierHex(Perfect) = %s", got)
	}
	if got := TierHex("Unknown"); got != DefaultPalette.Accent {
		t.Errorf("TierHex(Unknown) = %s, want default", got)
	}
	if GetPalette(models.LabelNope).Accent != TierHex(models.LabelNope) {
		t.Error("palette accent should match tier color")
	}
}
