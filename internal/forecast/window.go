package forecast

import (
	"time"

	"github.com/lox/coastscore/internal/models"
)

// WindowResult is the best upcoming run of comfortable hours.
type WindowResult struct {
	StartIndex int          `json:"start_index"` // index into the input slice
	EndIndex   int          `json:"end_index"`   // inclusive
	Start      time.Time    `json:"start"`
	End        time.Time    `json:"end"`
	Average    float64      `json:"average"`
	Rounded    int          `json:"rounded"`
	Label      models.Label `json:"label"`
	Length     int          `json:"length"`
}

// FindBestWindow scans hours after now for maximal runs scoring at least
// ComfortThreshold and returns the run with the highest mean score. Ties go
// to the earliest run. It returns nil when no future hour qualifies.
func FindBestWindow(hours []models.HourRecord, mode models.Mode, now time.Time) *WindowResult {
	var (
		best    *WindowResult
		runFrom = -1
		runSum  int
	)

	closeRun := func(end int) {
		n := end - runFrom + 1
		avg := float64(runSum) / float64(n)
		if best == nil || avg > best.Average {
			best = &WindowResult{StartIndex: runFrom, EndIndex: end, Average: avg, Length: n}
		}
		runFrom, runSum = -1, 0
	}

	last := -1
	for i, h := range hours {
		if !h.HourUTC.After(now) {
			continue
		}
		s := h.Score(mode)
		if s >= ComfortThreshold {
			if runFrom == -1 {
				runFrom = i
			}
			runSum += s
		} else if runFrom != -1 {
			closeRun(last)
		}
		last = i
	}
	if runFrom != -1 {
		closeRun(last)
	}

	if best == nil {
		return nil
	}
	best.Start = hours[best.StartIndex].HourUTC
	best.End = hours[best.EndIndex].HourUTC
	best.Rounded = int(roundHalfUp(best.Average))
	best.Label = LabelForScore(best.Rounded)
	return best
}
