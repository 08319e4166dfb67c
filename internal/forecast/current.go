package forecast

import (
	"time"

	"github.com/lox/coastscore/internal/models"
)

// CurrentHour returns the index of the hour containing now, or the first
// later hour when now falls before or between records. ok is false when every
// hour has ended.
func CurrentHour(hours []models.HourRecord, now time.Time) (int, bool) {
	for i, h := range hours {
		if !now.Before(h.HourUTC) && now.Before(h.HourUTC.Add(time.Hour)) {
			return i, true
		}
		if h.HourUTC.After(now) {
			return i, true
		}
	}
	return 0, false
}
