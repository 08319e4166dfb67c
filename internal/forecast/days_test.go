package forecast

import (
	"testing"
	"time"

	"github.com/lox/coastscore/internal/models"
)

func TestGroupByDay_Partitions(t *testing.T) {
	// 60 hours from 21:00 UTC crosses several local (UTC+3) midnights.
	start := time.Date(2025, 6, 20, 21, 0, 0, 0, time.UTC)
	scores := make([]int, 60)
	for i := range scores {
		scores[i] = (i * 7) % 101
	}
	hours := makeHours(start, scores...)

	groups := GroupByDay(hours, models.ModeSwimSolo, MetricScore, testSettings())

	total := 0
	seen := make(map[string]bool)
	for _, g := range groups {
		if len(g.Hours) == 0 {
			t.Errorf("group %s is empty", g.Day)
		}
		if seen[g.Day] {
			t.Errorf("duplicate group %s", g.Day)
		}
		seen[g.Day] = true
		if g.Count != len(g.Hours) {
			t.Errorf("group %s Count = %d, len = %d", g.Day, g.Count, len(g.Hours))
		}
		for _, h := range g.Hours {
			if DayKey(h.HourUTC, idt) != g.Day {
				t.Errorf("hour %v in wrong group %s", h.HourUTC, g.Day)
			}
			if !h.HourUTC.Equal(hours[total].HourUTC) {
				t.Errorf("hour %d out of order", total)
			}
			total++
		}
	}
	if total != len(hours) {
		t.Errorf("grouped %d hours, want %d", total, len(hours))
	}
}

func TestGroupByDay_LocalDayBoundary(t *testing.T) {
	// 20:00 and 21:00 UTC are 23:00 and 00:00 local.
	hours := makeHours(time.Date(2025, 6, 20, 20, 0, 0, 0, time.UTC), 50, 60)

	groups := GroupByDay(hours, models.ModeSwimSolo, MetricScore, testSettings())
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	if groups[0].Day != "2025-06-20" || groups[1].Day != "2025-06-21" {
		t.Errorf("days = %s, %s", groups[0].Day, groups[1].Day)
	}
}

func TestGroupByDay_AllMissingMetric(t *testing.T) {
	hours := makeHours(time.Date(2025, 6, 21, 0, 0, 0, 0, idt), make([]int, 24)...)

	groups := GroupByDay(hours, models.ModeSwimSolo, MetricWaves, testSettings())
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if groups[0].Min != 0 || groups[0].Max != 0 {
		t.Errorf("min/max = %v/%v, want 0/0", groups[0].Min, groups[0].Max)
	}
}

func TestGroupByDay_MinMaxSkipsMissing(t *testing.T) {
	hours := makeHours(time.Date(2025, 6, 21, 6, 0, 0, 0, idt), 10, 20, 30, 40)
	hours[0].WaveHeightM = f64(0.8)
	hours[2].WaveHeightM = f64(0.3)

	g := GroupByDay(hours, models.ModeSwimSolo, MetricWaves, testSettings())[0]
	if g.Min != 0.3 || g.Max != 0.8 {
		t.Errorf("min/max = %v/%v, want 0.3/0.8", g.Min, g.Max)
	}
}

func TestGroupByDay_SingleHour(t *testing.T) {
	hours := makeHours(testStart, 85)

	groups := GroupByDay(hours, models.ModeRunSolo, MetricScore, testSettings())
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	if groups[0].BestScore != 85 {
		t.Errorf("BestScore = %d, want 85", groups[0].BestScore)
	}
	if groups[0].BestLabel != models.LabelPerfect {
		t.Errorf("BestLabel = %s, want Perfect", groups[0].BestLabel)
	}
}

func TestGroupByDay_BestUsesScoreNotMetric(t *testing.T) {
	hours := makeHours(time.Date(2025, 6, 21, 8, 0, 0, 0, idt), 40, 90, 90, 60)
	hours[0].UVIndex = f64(11)
	hours[1].UVIndex = f64(2)

	for _, metric := range []MetricKey{MetricScore, MetricUV} {
		g := GroupByDay(hours, models.ModeSwimSolo, metric, testSettings())[0]
		if g.BestScore != 90 {
			t.Errorf("%s: BestScore = %d, want 90", metric, g.BestScore)
		}
		if !g.BestHour.Equal(hours[1].HourUTC) {
			t.Errorf("%s: BestHour = %v, want first 90", metric, g.BestHour)
		}
		if g.BestLabel != models.LabelPerfect {
			t.Errorf("%s: BestLabel = %s", metric, g.BestLabel)
		}
	}
}

func TestGroupByDay_Empty(t *testing.T) {
	if groups := GroupByDay(nil, models.ModeSwimSolo, MetricScore, testSettings()); len(groups) != 0 {
		t.Errorf("len(groups) = %d, want 0", len(groups))
	}
}

func TestDayLabel(t *testing.T) {
	now := time.Date(2025, 6, 21, 10, 0, 0, 0, idt)
	tests := []struct {
		t    time.Time
		want string
	}{
		{time.Date(2025, 6, 21, 23, 0, 0, 0, idt), "Today"},
		{time.Date(2025, 6, 22, 0, 0, 0, 0, idt), "Tomorrow"},
		{time.Date(2025, 6, 23, 9, 0, 0, 0, idt), "Mon, Jun 23"},
	}
	for _, tt := range tests {
		if got := DayLabel(tt.t, now, idt); got != tt.want {
			t.Errorf("DayLabel(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}
