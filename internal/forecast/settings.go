package forecast

import (
	"log"
	"time"
)

const (
	DefaultAreaID    = "tel_aviv_coast"
	DefaultTimezone  = "Asia/Jerusalem"
	DefaultLatitude  = 32.0853
	DefaultLongitude = 34.7818
)

// Settings pins the derived views to one area: the zone used for calendar
// days and clock labels, and the coordinate used for sun times.
type Settings struct {
	AreaID    string
	Location  *time.Location
	Latitude  float64
	Longitude float64
}

// DefaultSettings returns the Tel Aviv coast settings.
func DefaultSettings() Settings {
	return Settings{
		AreaID:    DefaultAreaID,
		Location:  LoadLocation(DefaultTimezone),
		Latitude:  DefaultLatitude,
		Longitude: DefaultLongitude,
	}
}

// LoadLocation loads a zone by name. Without a zone database it falls back
// to a fixed UTC+2 zone rather than UTC so day boundaries stay close.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Warning: could not load %s timezone, using UTC+2: %v", name, err)
		return time.FixedZone(name, 2*60*60)
	}
	return loc
}

func (s Settings) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
