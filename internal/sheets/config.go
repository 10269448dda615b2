// Package sheets exports dashboard snapshots to Google Sheets.
package sheets

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultSpreadsheetName is used when a new spreadsheet is created.
const DefaultSpreadsheetName = "Sales Dashboard"

// Config holds the configuration for the Google Sheets writer.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		EnableFormatting: true,
		SpreadsheetName:  DefaultSpreadsheetName,
		TimeZone:         "UTC",
		BatchSize:        500,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// FillFromEnv sets any credential or spreadsheet field still empty from GOOGLE_SHEETS_* variables.
func (c *Config) FillFromEnv() {
	fill := func(field *string, key string) {
		if *field == "" {
			*field = os.Getenv(key)
		}
	}
	fill(&c.ClientID, "GOOGLE_SHEETS_CLIENT_ID")
	fill(&c.ClientSecret, "GOOGLE_SHEETS_CLIENT_SECRET")
	fill(&c.RefreshToken, "GOOGLE_SHEETS_REFRESH_TOKEN")
	fill(&c.ServiceAccountPath, "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH")
	fill(&c.SpreadsheetID, "GOOGLE_SHEETS_SPREADSHEET_ID")

	if v := os.Getenv("GOOGLE_SHEETS_SPREADSHEET_NAME"); v != "" && c.SpreadsheetName == DefaultSpreadsheetName {
		c.SpreadsheetName = v
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return errors.New("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return errors.New("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if c.RetryAttempts < 0 {
		return errors.New("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return errors.New("retry delay cannot be negative")
	}

	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
		}
	}

	return nil
}
