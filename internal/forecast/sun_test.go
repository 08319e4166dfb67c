package forecast

import (
	"testing"
	"time"

	"github.com/lox/coastscore/internal/models"
)

func TestSunTimesFor_UsesDailyRow(t *testing.T) {
	rise := time.Date(2025, 6, 21, 3, 14, 0, 0, time.UTC)
	set := time.Date(2025, 6, 21, 16, 50, 0, 0, time.UTC)
	daily := []models.DailySunTime{
		{Date: "2025-06-20", SunriseUTC: rise.Add(-24 * time.Hour), SunsetUTC: set.Add(-24 * time.Hour)},
		{Date: "2025-06-21", SunriseUTC: rise, SunsetUTC: set},
	}

	st := SunTimesFor(testStart.Add(10*time.Hour), daily, testSettings())
	if st.Computed {
		t.Error("expected stored row, got computed")
	}
	if !st.Sunrise.Equal(rise) || !st.Sunset.Equal(set) {
		t.Errorf("got %v / %v, want %v / %v", st.Sunrise, st.Sunset, rise, set)
	}
	if st.SunriseLabel != "06:14" {
		t.Errorf("SunriseLabel = %q, want 06:14", st.SunriseLabel)
	}
	if st.SunsetLabel != "19:50" {
		t.Errorf("SunsetLabel = %q, want 19:50", st.SunsetLabel)
	}
}

func TestSunTimesFor_ComputesWhenMissing(t *testing.T) {
	st := SunTimesFor(testStart, nil, testSettings())
	if !st.Computed {
		t.Error("expected computed sun times")
	}
	if h := st.Sunrise.UTC().Hour(); h < 2 || h > 3 {
		t.Errorf("midsummer sunrise at %v UTC, expected around 02:30", st.Sunrise)
	}
	if h := st.Sunset.UTC().Hour(); h < 16 || h > 17 {
		t.Errorf("midsummer sunset at %v UTC, expected around 16:50", st.Sunset)
	}
	if !st.Sunrise.Before(st.Sunset) {
		t.Error("sunrise should precede sunset")
	}
}

func TestEventFor(t *testing.T) {
	st := SunTimes{
		Sunrise:      time.Date(2025, 6, 21, 3, 14, 0, 0, time.UTC),
		Sunset:       time.Date(2025, 6, 21, 16, 50, 0, 0, time.UTC),
		SunriseLabel: "06:14",
		SunsetLabel:  "19:50",
	}

	tests := []struct {
		name string
		hour time.Time
		want *SunEvent
	}{
		{"sunrise bucket", time.Date(2025, 6, 21, 3, 0, 0, 0, time.UTC), &SunEvent{Type: Sunrise, Label: "06:14"}},
		{"sunset bucket", time.Date(2025, 6, 21, 16, 0, 0, 0, time.UTC), &SunEvent{Type: Sunset, Label: "19:50"}},
		{"bucket before sunrise", time.Date(2025, 6, 21, 2, 0, 0, 0, time.UTC), nil},
		{"bucket after sunrise", time.Date(2025, 6, 21, 4, 0, 0, 0, time.UTC), nil},
		{"event on bucket start", time.Date(2025, 6, 21, 3, 14, 0, 0, time.UTC), &SunEvent{Type: Sunrise, Label: "06:14"}},
		{"event on bucket end", time.Date(2025, 6, 21, 2, 14, 0, 0, time.UTC), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EventFor(tt.hour, st)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("EventFor = %+v, want %+v", got, tt.want)
			}
			if got != nil && (got.Type != tt.want.Type || got.Label != tt.want.Label) {
				t.Errorf("EventFor = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestEventFor_SunriseWinsSharedBucket(t *testing.T) {
	st := SunTimes{
		Sunrise: testStart.Add(10 * time.Minute),
		Sunset:  testStart.Add(40 * time.Minute),
	}
	ev := EventFor(testStart, st)
	if ev == nil || ev.Type != Sunrise {
		t.Errorf("EventFor = %+v, want sunrise", ev)
	}
}

func TestSunEvents_OneTagPerEvent(t *testing.T) {
	daily := []models.DailySunTime{{
		Date:       "2025-06-21",
		SunriseUTC: time.Date(2025, 6, 21, 3, 14, 0, 0, time.UTC),
		SunsetUTC:  time.Date(2025, 6, 21, 16, 50, 0, 0, time.UTC),
	}}
	hours := makeHours(testStart, make([]int, 24)...)

	events := SunEvents(hours, daily, testSettings())
	tagged := 0
	for i, ev := range events {
		if ev == nil {
			continue
		}
		tagged++
		switch ev.Type {
		case Sunrise:
			if i != 3 || ev.Label != "06:14" {
				t.Errorf("sunrise at index %d label %q", i, ev.Label)
			}
		case Sunset:
			if i != 16 || ev.Label != "19:50" {
				t.Errorf("sunset at index %d label %q", i, ev.Label)
			}
		}
	}
	if tagged != 2 {
		t.Errorf("tagged = %d, want 2", tagged)
	}
}

func TestFallbackSunset(t *testing.T) {
	got := FallbackSunset(testStart, DefaultLatitude, DefaultLongitude)
	if got.Hour() != 16 || got.Minute() < 35 || got.Minute() > 55 {
		t.Errorf("FallbackSunset = %v, want around 16:44 UTC", got)
	}

	winter := FallbackSunset(time.Date(2025, 12, 21, 0, 0, 0, 0, time.UTC), DefaultLatitude, DefaultLongitude)
	if !winter.Before(time.Date(2025, 12, 21, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("winter sunset %v should be before 15:00 UTC", winter)
	}
}
