package ingest

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/lox/coastscore/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	FlagInvalidHour   = "invalid_hour"
	FlagDuplicateHour = "duplicate_hour"
	FlagInvalidDaily  = "invalid_daily"
	FlagAreaMismatch  = "area_mismatch"
)

// Report summarises what validation dropped from a document.
type Report struct {
	HoursIn      int
	HoursKept    int
	DailyDropped int
	Flags        []string
	Problems     []string // first few field errors, for the run audit row
}

// Degraded reports whether anything was dropped.
func (r Report) Degraded() bool {
	return r.HoursKept < r.HoursIn || r.DailyDropped > 0
}

const maxProblems = 5

func (r *Report) flag(flag string, err error) {
	found := false
	for _, f := range r.Flags {
		if f == flag {
			found = true
			break
		}
	}
	if !found {
		r.Flags = append(r.Flags, flag)
	}
	if err != nil && len(r.Problems) < maxProblems {
		r.Problems = append(r.Problems, err.Error())
	}
}

// ValidateForecast checks a scored forecast for areaID. Hours that fail
// validation (missing modes, scores outside 0..100, unknown labels) are
// dropped, as are duplicate hours; the rest are sorted ascending. It errors
// when the document header is invalid or no hours survive.
func ValidateForecast(f *models.ScoredForecast, areaID string) (Report, error) {
	report := Report{HoursIn: len(f.Hours)}

	if err := validate.StructExcept(f, "Hours", "Daily"); err != nil {
		return report, fmt.Errorf("invalid forecast header: %w", err)
	}
	if f.AreaID != areaID {
		report.flag(FlagAreaMismatch, nil)
		return report, fmt.Errorf("forecast is for area %q, want %q", f.AreaID, areaID)
	}

	seen := make(map[int64]bool, len(f.Hours))
	kept := f.Hours[:0:0]
	for i := range f.Hours {
		h := f.Hours[i]
		if err := validate.Struct(h); err != nil {
			report.flag(FlagInvalidHour, fmt.Errorf("hour %d: %w", i, firstFieldError(err)))
			continue
		}
		key := h.HourUTC.Unix()
		if seen[key] {
			report.flag(FlagDuplicateHour, nil)
			continue
		}
		seen[key] = true
		h.HourUTC = h.HourUTC.UTC()
		kept = append(kept, h)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].HourUTC.Before(kept[j].HourUTC) })
	f.Hours = kept
	report.HoursKept = len(kept)

	daily := f.Daily[:0:0]
	for i, d := range f.Daily {
		if err := validate.Struct(d); err != nil {
			report.DailyDropped++
			report.flag(FlagInvalidDaily, fmt.Errorf("daily %d: %w", i, firstFieldError(err)))
			continue
		}
		daily = append(daily, d)
	}
	f.Daily = daily

	if len(kept) == 0 {
		return report, errors.New("no valid hours in forecast")
	}
	return report, nil
}

func firstFieldError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s failed %s", fe.Namespace(), fe.Tag())
	}
	return err
}
