package ingest

import (
	"sort"

	"github.com/lox/coastscore/internal/forecast"
	"github.com/lox/coastscore/internal/models"
)

// BackfillDaily adds computed sun rows for every UTC date covered by
// f.Hours that has no daily row, and returns how many were added. Dates with
// no sunrise at the coordinate are skipped.
func BackfillDaily(f *models.ScoredForecast, settings forecast.Settings) int {
	have := make(map[string]bool, len(f.Daily))
	for _, d := range f.Daily {
		have[d.Date] = true
	}

	added := 0
	for _, h := range f.Hours {
		key := forecast.DateKey(h.HourUTC)
		if have[key] {
			continue
		}
		have[key] = true

		st := forecast.SunTimesFor(h.HourUTC, nil, settings)
		if st.Sunrise.IsZero() {
			continue
		}
		sunset := st.Sunset
		if sunset.IsZero() {
			sunset = forecast.FallbackSunset(h.HourUTC, settings.Latitude, settings.Longitude)
		}
		f.Daily = append(f.Daily, models.DailySunTime{Date: key, SunriseUTC: st.Sunrise, SunsetUTC: sunset})
		added++
	}

	if added > 0 {
		sort.Slice(f.Daily, func(i, j int) bool { return f.Daily[i].Date < f.Daily[j].Date })
	}
	return added
}
