package forecast

import (
	"math"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/lox/coastscore/internal/models"
)

// SunTimes is the sunrise/sunset pair for one date.
type SunTimes struct {
	Sunrise      time.Time `json:"sunrise"`
	Sunset       time.Time `json:"sunset"`
	SunriseLabel string    `json:"sunrise_label"`
	SunsetLabel  string    `json:"sunset_label"`
	Computed     bool      `json:"computed"` // true when no daily row was available
}

type SunEventType string

const (
	Sunrise SunEventType = "sunrise"
	Sunset  SunEventType = "sunset"
)

// SunEvent tags an hour bucket that contains sunrise or sunset.
type SunEvent struct {
	Type  SunEventType `json:"type"`
	Label string       `json:"label"`
	At    time.Time    `json:"at"`
}

// DateKey is the UTC calendar date used to key daily sun rows.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ClockLabel formats t as 24h HH:MM in loc.
func ClockLabel(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("15:04")
}

// SunTimesFor returns sun times for the UTC date of date. A matching daily
// row wins; otherwise the times are computed for the settings coordinate.
func SunTimesFor(date time.Time, daily []models.DailySunTime, settings Settings) SunTimes {
	key := DateKey(date)
	loc := settings.location()
	for _, d := range daily {
		if d.Date == key {
			return SunTimes{
				Sunrise:      d.SunriseUTC,
				Sunset:       d.SunsetUTC,
				SunriseLabel: ClockLabel(d.SunriseUTC, loc),
				SunsetLabel:  ClockLabel(d.SunsetUTC, loc),
			}
		}
	}

	u := date.UTC()
	rise, set := sunrise.SunriseSunset(settings.Latitude, settings.Longitude, u.Year(), u.Month(), u.Day())
	return SunTimes{
		Sunrise:      rise,
		Sunset:       set,
		SunriseLabel: ClockLabel(rise, loc),
		SunsetLabel:  ClockLabel(set, loc),
		Computed:     true,
	}
}

// EventFor reports the sun event inside [hourStart, hourStart+1h), if any.
// Sunrise is checked first, so a bucket holding both reports sunrise only.
func EventFor(hourStart time.Time, st SunTimes) *SunEvent {
	hourEnd := hourStart.Add(time.Hour)
	within := func(t time.Time) bool {
		return !t.IsZero() && !t.Before(hourStart) && t.Before(hourEnd)
	}
	if within(st.Sunrise) {
		return &SunEvent{Type: Sunrise, Label: st.SunriseLabel, At: st.Sunrise}
	}
	if within(st.Sunset) {
		return &SunEvent{Type: Sunset, Label: st.SunsetLabel, At: st.Sunset}
	}
	return nil
}

// SunEvents tags each hour with its sun event (nil for most hours). Sun
// times are resolved once per UTC date.
func SunEvents(hours []models.HourRecord, daily []models.DailySunTime, settings Settings) []*SunEvent {
	events := make([]*SunEvent, len(hours))
	cache := make(map[string]SunTimes)
	for i, h := range hours {
		key := DateKey(h.HourUTC)
		st, ok := cache[key]
		if !ok {
			st = SunTimesFor(h.HourUTC, daily, settings)
			cache[key] = st
		}
		events[i] = EventFor(h.HourUTC, st)
	}
	return events
}

// FallbackSunset approximates sunset (UTC) from solar declination and the
// hour angle. Good to about five minutes at mid latitudes.
func FallbackSunset(date time.Time, lat, lon float64) time.Time {
	u := date.UTC()
	dayOfYear := float64(u.YearDay())
	declination := deg2rad(-23.45 * math.Cos(deg2rad((360.0/365.0)*(dayOfYear+10))))
	cosH := -math.Tan(deg2rad(lat)) * math.Tan(declination)
	cosH = math.Max(-1, math.Min(1, cosH))
	hourAngle := math.Acos(cosH) * 180 / math.Pi

	sunsetUTCHours := 12.0 + hourAngle/15.0 - lon/15.0
	h := int(sunsetUTCHours)
	m := int(math.Round((sunsetUTCHours - float64(h)) * 60))
	if m == 60 {
		h, m = h+1, 0
	}
	return time.Date(u.Year(), u.Month(), u.Day(), h, m, 0, 0, time.UTC)
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
