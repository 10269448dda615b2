// Package dashboard resolves user selections and composes one render pass of the sales dashboard.
package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/the-sales-must-flow/internal/common"
)

// Defaults match the public sample dataset.
const (
	DefaultYear    = 2023
	DefaultDataURL = "https://raw.githubusercontent.com/Sven-Bo/datasets/master/store_sales_2022-2023.csv"
)

// DefaultCities are the cities shown when none are configured.
var DefaultCities = []string{"Tokyo", "Yokohama", "Osaka"}

// ErrUnknownCity is returned when a selection names a city outside the configured set.
var ErrUnknownCity = errors.New("unknown city")

// Config holds the caller-controlled constants of the dashboard.
type Config struct {
	DataURL string
	Cities  []string
	Year    int
}

// DefaultConfig returns the configuration for the sample dataset.
func DefaultConfig() Config {
	return Config{
		Year:    DefaultYear,
		Cities:  slices.Clone(DefaultCities),
		DataURL: DefaultDataURL,
	}
}

// Validate checks the configuration. Any non-empty city set is accepted.
func (c Config) Validate() error {
	var errs []error
	if c.Year <= 0 {
		errs = append(errs, fmt.Errorf("year must be positive, got %d", c.Year))
	}
	if len(c.Cities) == 0 {
		errs = append(errs, errors.New("at least one city is required"))
	}
	for i, city := range c.Cities {
		if strings.TrimSpace(city) == "" {
			errs = append(errs, fmt.Errorf("city %d is blank", i+1))
		}
		if slices.Index(c.Cities, city) != i {
			errs = append(errs, fmt.Errorf("city %q is listed twice", city))
		}
	}
	if strings.TrimSpace(c.DataURL) == "" {
		errs = append(errs, errors.New("data URL is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Selection is what the user picked on the dashboard.
type Selection struct {
	City             string
	ShowPreviousYear bool
}

// VisualizationYear is the year breakdowns are drawn for.
func VisualizationYear(configuredYear int, showPreviousYear bool) int {
	if showPreviousYear {
		return configuredYear - 1
	}
	return configuredYear
}

// Resolve fills in the default city and checks the city is configured.
func (c Config) Resolve(sel Selection) (Selection, error) {
	if len(c.Cities) == 0 {
		return sel, fmt.Errorf("%w: no cities configured", common.ErrInvalidConfig)
	}
	if sel.City == "" {
		sel.City = c.Cities[0]
		return sel, nil
	}
	if !slices.Contains(c.Cities, sel.City) {
		return sel, fmt.Errorf("%w %q (configured: %s)", ErrUnknownCity, sel.City, strings.Join(c.Cities, ", "))
	}
	return sel, nil
}
