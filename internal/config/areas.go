// Package config loads per-area display settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/lox/coastscore/internal/forecast"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Area is one entry of areas.yaml.
type Area struct {
	ID        string  `yaml:"id" validate:"required,max=64,excludesall=0x7C"`
	Timezone  string  `yaml:"timezone" validate:"required"`
	Latitude  float64 `yaml:"latitude" validate:"latitude"`
	Longitude float64 `yaml:"longitude" validate:"longitude"`
}

// AreasFile is the top level of areas.yaml.
type AreasFile struct {
	Areas []Area `yaml:"areas" validate:"required,min=1,unique=ID,dive"`
}

// LoadAreas reads an areas file. An empty path returns the default area.
func LoadAreas(path string) ([]forecast.Settings, error) {
	if path == "" {
		return []forecast.Settings{forecast.DefaultSettings()}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read areas file: %w", err)
	}
	areas, err := ParseAreas(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return areas, nil
}

// ParseAreas decodes and validates an areas document. Unknown keys and
// unknown time zones are errors.
func ParseAreas(data []byte) ([]forecast.Settings, error) {
	var file AreasFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode areas: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("validate areas: %w", describe(err))
	}

	settings := make([]forecast.Settings, 0, len(file.Areas))
	for _, a := range file.Areas {
		loc, err := time.LoadLocation(a.Timezone)
		if err != nil {
			return nil, fmt.Errorf("area %s: %w", a.ID, err)
		}
		settings = append(settings, forecast.Settings{
			AreaID:    a.ID,
			Location:  loc,
			Latitude:  a.Latitude,
			Longitude: a.Longitude,
		})
	}
	return settings, nil
}

// AreaIDs returns the ids of settings in order.
func AreaIDs(settings []forecast.Settings) []string {
	ids := make([]string, len(settings))
	for i, s := range settings {
		ids[i] = s.AreaID
	}
	return ids
}

// describe flattens validator errors into "Field: tag" pairs.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed %s", fe.Namespace(), fe.Tag()))
	}
	return errors.Join(errs...)
}
