package forecast

import (
	"fmt"
	"strings"
	"time"

	"github.com/lox/coastscore/internal/models"
)

// Margins are the padding around the plot area, in drawing units.
type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// DefaultMargins match the day-detail chart.
var DefaultMargins = Margins{Top: 20, Right: 2, Bottom: 30, Left: 2}

const (
	DefaultGraphWidth  = 400.0
	DefaultGraphHeight = 180.0
)

// GraphPoint is one hour mapped onto the drawing surface.
type GraphPoint struct {
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
	Value   *float64  `json:"value"`
	HourUTC time.Time `json:"hour_utc"`
	Color   string    `json:"color"`
}

// GridLine is a horizontal guide at a fixed fraction of the value range.
type GridLine struct {
	Fraction float64 `json:"fraction"`
	Y        float64 `json:"y"`
	Value    float64 `json:"value"`
	Label    string  `json:"label"`
}

// SunMarker is a vertical guide at a sunrise or sunset.
type SunMarker struct {
	X     float64      `json:"x"`
	Type  SunEventType `json:"type"`
	Label string       `json:"label"`
	At    time.Time    `json:"at"`
}

// Tick is an x-axis label.
type Tick struct {
	X     float64 `json:"x"`
	Label string  `json:"label"`
}

// Series is everything needed to draw one metric chart.
type Series struct {
	Metric     MetricDef    `json:"metric"`
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Margins    Margins      `json:"margins"`
	Min        float64      `json:"min"`
	Max        float64      `json:"max"`
	Points     []GraphPoint `json:"points"`
	PathD      string       `json:"path_d"`
	AreaD      string       `json:"area_d"`
	PathPoints int          `json:"path_points"`
	GridLines  []GridLine   `json:"grid_lines"`
	SunMarkers []SunMarker  `json:"sun_markers"`
	Ticks      []Tick       `json:"ticks"`
}

// GraphOptions sizes the drawing surface and supplies sun data.
type GraphOptions struct {
	Width    float64
	Height   float64
	Margins  Margins
	Daily    []models.DailySunTime
	Settings Settings
}

var gridFractions = []float64{0, 0.25, 0.5, 0.75, 1}

// BuildSeries maps a metric time series onto a width x height surface.
//
// Hours with no value sit on the bottom edge and are left out of the
// stroked path, so missing data shows as a gap rather than being
// interpolated. Sun markers are placed by time between the first and last
// hour, not by index.
func BuildSeries(hours []models.HourRecord, metric MetricKey, mode models.Mode, opts GraphOptions) Series {
	if opts.Width <= 0 {
		opts.Width = DefaultGraphWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultGraphHeight
	}
	m := opts.Margins
	innerW := opts.Width - m.Left - m.Right
	innerH := opts.Height - m.Top - m.Bottom
	bottom := m.Top + innerH
	def := Def(metric)
	loc := opts.Settings.location()

	s := Series{
		Metric:  def,
		Width:   opts.Width,
		Height:  opts.Height,
		Margins: m,
		Points:  make([]GraphPoint, len(hours)),
	}

	values := make([]*float64, len(hours))
	first := true
	for i, h := range hours {
		v, ok := Value(h, metric, mode)
		if !ok {
			continue
		}
		values[i] = &v
		if first {
			s.Min, s.Max = v, v
			first = false
			continue
		}
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	valueRange := s.Max - s.Min
	if valueRange == 0 {
		valueRange = 1
	}

	var path strings.Builder
	var firstX, lastX float64
	for i, h := range hours {
		x := m.Left
		if len(hours) > 1 {
			x = m.Left + float64(i)/float64(len(hours)-1)*innerW
		}
		p := GraphPoint{X: x, Y: bottom, Value: values[i], HourUTC: h.HourUTC, Color: def.Color}
		if v := values[i]; v != nil {
			p.Y = m.Top + innerH - ((*v-s.Min)/valueRange)*innerH
			if metric == MetricScore {
				p.Color = TierHex(LabelForScore(int(*v)))
			}
			cmd := "L"
			if s.PathPoints == 0 {
				cmd = "M"
				firstX = p.X
			} else {
				path.WriteByte(' ')
			}
			fmt.Fprintf(&path, "%s %.1f %.1f", cmd, p.X, p.Y)
			lastX = p.X
			s.PathPoints++
		}
		s.Points[i] = p
		if i%3 == 0 {
			s.Ticks = append(s.Ticks, Tick{X: x, Label: ClockLabel(h.HourUTC, loc)})
		}
	}
	s.PathD = path.String()
	if s.PathPoints > 0 {
		s.AreaD = fmt.Sprintf("%s L %.1f %s L %.1f %s Z", s.PathD, lastX, trimFloat(bottom), firstX, trimFloat(bottom))
	}

	for _, f := range gridFractions {
		v := s.Min + valueRange*f
		s.GridLines = append(s.GridLines, GridLine{
			Fraction: f,
			Y:        m.Top + innerH*(1-f),
			Value:    v,
			Label:    gridLabel(v, metric) + def.Unit,
		})
	}

	s.SunMarkers = sunMarkers(hours, opts, innerW)
	return s
}

func sunMarkers(hours []models.HourRecord, opts GraphOptions, innerW float64) []SunMarker {
	if len(hours) == 0 {
		return nil
	}
	start := hours[0].HourUTC
	end := hours[len(hours)-1].HourUTC
	span := end.Sub(start)

	var markers []SunMarker
	for _, ev := range SunEvents(hours, opts.Daily, opts.Settings) {
		// An event inside the final hour lies past the last plotted point.
		if ev == nil || ev.At.Before(start) || ev.At.After(end) {
			continue
		}
		x := opts.Margins.Left
		if span > 0 {
			x += float64(ev.At.Sub(start)) / float64(span) * innerW
		}
		markers = append(markers, SunMarker{X: x, Type: ev.Type, Label: ev.Label, At: ev.At})
	}
	return markers
}

func gridLabel(v float64, metric MetricKey) string {
	if metric == MetricWaves {
		return fmt.Sprintf("%.1f", v)
	}
	return fmt.Sprintf("%.0f", v)
}

func trimFloat(v float64) string {
	return fmt.Sprint(v)
}
