package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HolidayCalendar is a named list of non-working dates, e.g.
//
//	name: fr-public
//	dates:
//	  - "2024-07-14"
//	  - "2024-08-15"
type HolidayCalendar struct {
	Name  string   `yaml:"name"`
	Dates []string `yaml:"dates"`
}

// LoadHolidayFile reads a holiday calendar YAML file.
func LoadHolidayFile(path string) (*HolidayCalendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading holiday calendar %s: %w", path, err)
	}

	var cal HolidayCalendar
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parsing holiday calendar %s: %w", path, err)
	}
	if cal.Name == "" {
		return nil, fmt.Errorf("holiday calendar in %s has no name", path)
	}
	for _, d := range cal.Dates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("holiday calendar %s: invalid date %q", cal.Name, d)
		}
	}
	return &cal, nil
}
