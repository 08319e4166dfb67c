package forecast

import (
	"time"

	"github.com/lox/coastscore/internal/models"
)

var testStart = time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)

// idt is a fixed Israel summer zone so tests don't depend on tzdata.
var idt = time.FixedZone("IDT", 3*60*60)

func testSettings() Settings {
	return Settings{AreaID: DefaultAreaID, Location: idt, Latitude: DefaultLatitude, Longitude: DefaultLongitude}
}

func f64(v float64) *float64 { return &v }

func intp(v int) *int { return &v }

func scored(score int) *models.ModeScore {
	return &models.ModeScore{Score: score, Label: LabelForScore(score)}
}

// makeHour builds an hour where every mode has the same score.
func makeHour(t time.Time, score int) models.HourRecord {
	return models.HourRecord{
		HourUTC: t,
		Scores: models.ModeScores{
			SwimSolo: scored(score),
			SwimDog:  scored(score),
			RunSolo:  scored(score),
			RunDog:   scored(score),
		},
	}
}

// makeHours builds consecutive hours from start with the given scores.
func makeHours(start time.Time, scores ...int) []models.HourRecord {
	hours := make([]models.HourRecord, len(scores))
	for i, s := range scores {
		hours[i] = makeHour(start.Add(time.Duration(i)*time.Hour), s)
	}
	return hours
}
