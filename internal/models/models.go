package models

import (
	"time"
)

// Mode is one of the four activity modes the upstream scorer rates.
type Mode string

const (
	ModeSwimSolo Mode = "swim_solo"
	ModeSwimDog  Mode = "swim_dog"
	ModeRunSolo  Mode = "run_solo"
	ModeRunDog   Mode = "run_dog"
)

// Modes lists every activity mode in display order.
var Modes = []Mode{ModeSwimSolo, ModeSwimDog, ModeRunSolo, ModeRunDog}

// ModeLabels are the short display names used by the UI.
var ModeLabels = map[Mode]string{
	ModeSwimSolo: "Swim",
	ModeSwimDog:  "Swim + Dog",
	ModeRunSolo:  "Run",
	ModeRunDog:   "Run + Dog",
}

// Label is the upstream verdict for a score.
type Label string

const (
	LabelPerfect Label = "Perfect"
	LabelGood    Label = "Good"
	LabelMeh     Label = "Meh"
	LabelBad     Label = "Bad"
	LabelNope    Label = "Nope"
)

type Reason struct {
	Factor  string `json:"factor" validate:"required"`
	Text    string `json:"text"`
	Emoji   string `json:"emoji" validate:"oneof=check warning danger info"`
	Penalty int    `json:"penalty"`
}

type ModeScore struct {
	Score     int      `json:"score" validate:"min=0,max=100"`
	Label     Label    `json:"label" validate:"oneof=Perfect Good Meh Bad Nope"`
	Reasons   []Reason `json:"reasons" validate:"dive"`
	HardGated bool     `json:"hard_gated"`
}

// ModeScores holds one ModeScore per activity mode. Every field is required:
// a missing mode is a malformed document, not a zero score.
type ModeScores struct {
	SwimSolo *ModeScore `json:"swim_solo" validate:"required"`
	SwimDog  *ModeScore `json:"swim_dog" validate:"required"`
	RunSolo  *ModeScore `json:"run_solo" validate:"required"`
	RunDog   *ModeScore `json:"run_dog" validate:"required"`
}

// Get returns the score for mode, or nil for an unknown mode.
func (s ModeScores) Get(mode Mode) *ModeScore {
	switch mode {
	case ModeSwimSolo:
		return s.SwimSolo
	case ModeSwimDog:
		return s.SwimDog
	case ModeRunSolo:
		return s.RunSolo
	case ModeRunDog:
		return s.RunDog
	}
	return nil
}

// HourRecord is one UTC hour of scored forecast data. Measurements are nil
// when the upstream provider had no value for the hour.
type HourRecord struct {
	HourUTC       time.Time  `json:"hour_utc" validate:"required"`
	WaveHeightM   *float64   `json:"wave_height_m"`
	WavePeriodS   *float64   `json:"wave_period_s"`
	AirTempC      *float64   `json:"air_temp_c"`
	FeelsLikeC    *float64   `json:"feelslike_c"`
	WindMS        *float64   `json:"wind_ms"`
	GustMS        *float64   `json:"gust_ms"`
	PrecipProbPct *int       `json:"precip_prob_pct" validate:"omitnil,min=0,max=100"`
	PrecipMM      *float64   `json:"precip_mm" validate:"omitnil,min=0"`
	UVIndex       *float64   `json:"uv_index" validate:"omitnil,min=0"`
	EUAQI         *int       `json:"eu_aqi" validate:"omitnil,min=0"`
	PM10          *float64   `json:"pm10"`
	PM25          *float64   `json:"pm2_5"`
	Scores        ModeScores `json:"scores"`
}

// Score returns the numeric score for mode, or 0 if the mode is unknown.
func (h HourRecord) Score(mode Mode) int {
	if ms := h.Scores.Get(mode); ms != nil {
		return ms.Score
	}
	return 0
}

// DailySunTime is a precomputed sunrise/sunset pair for one UTC calendar date.
type DailySunTime struct {
	Date       string    `json:"date" validate:"required,datetime=2006-01-02"`
	SunriseUTC time.Time `json:"sunrise_utc" validate:"required"`
	SunsetUTC  time.Time `json:"sunset_utc" validate:"required"`
}

// ScoredForecast is the document published by the upstream scoring service.
type ScoredForecast struct {
	AreaID         string         `json:"area_id" validate:"required"`
	UpdatedAtUTC   time.Time      `json:"updated_at_utc" validate:"required"`
	Provider       string         `json:"provider"`
	HorizonDays    int            `json:"horizon_days" validate:"min=0,max=16"`
	ScoringVersion string         `json:"scoring_version"`
	Hours          []HourRecord   `json:"hours" validate:"dive"`
	Daily          []DailySunTime `json:"daily" validate:"dive"`
}

// Snapshot is a stored ScoredForecast together with ingest bookkeeping.
type Snapshot struct {
	ID           int64
	AreaID       string
	FetchedAt    time.Time
	Source       string // "http" or "ftp"
	IngestStatus string // "success", "degraded", "failed"
	Forecast     ScoredForecast
}
