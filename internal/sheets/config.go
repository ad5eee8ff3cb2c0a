// Package sheets reads input streams from and writes output tables to Google
// Sheets.
package sheets

import (
	"fmt"
	"os"
	"time"

	"github.com/Veraticus/packflow/internal/model"
)

// Config holds the configuration for the Google Sheets reader and writer.
type Config struct {
	Tabs               map[model.StreamKind]string
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	InputSpreadsheetID string
	SpreadsheetID      string
	SpreadsheetName    string
	TimeZone           string
	BatchSize          int
	RetryAttempts      int
	RetryDelay         time.Duration
	EnableFormatting   bool
}

// DefaultTabs maps each stream to the tab name used by the plant workbooks.
func DefaultTabs() map[model.StreamKind]string {
	return map[model.StreamKind]string{
		model.StreamReception:        "RECEPCION",
		model.StreamCooling:          "ENFRIAMIENTO",
		model.StreamDumping:          "VOLCADO",
		model.StreamDiscard:          "DESCARTE",
		model.StreamFinishedProduct:  "PRODUCTO TERMINADO",
		model.StreamProductionReport: "REPORTE PRODUCCION",
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tabs:             DefaultTabs(),
		EnableFormatting: true,
		TimeZone:         "America/Lima",
		SpreadsheetName:  "Packflow Reports",
		BatchSize:        1000,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}
}

// LoadFromEnv overlays credentials and spreadsheet IDs from the environment.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("GOOGLE_SHEETS_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"); v != "" {
		c.RefreshToken = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); v != "" {
		c.ServiceAccountPath = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_INPUT_SPREADSHEET_ID"); v != "" {
		c.InputSpreadsheetID = v
	}
	if v := os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"); v != "" {
		c.SpreadsheetID = v
	}

	if c.ServiceAccountPath == "" && (c.ClientID == "" || c.ClientSecret == "" || c.RefreshToken == "") {
		return fmt.Errorf("missing Google Sheets authentication: provide either service account path or OAuth2 credentials")
	}
	return nil
}

// Tab returns the tab holding stream kind, falling back to the default name.
func (c *Config) Tab(kind model.StreamKind) string {
	if name, ok := c.Tabs[kind]; ok && name != "" {
		return name
	}
	return DefaultTabs()[kind]
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("no authentication method configured")
	}

	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("multiple authentication methods configured; use either OAuth2 or service account")
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}

	for kind := range c.Tabs {
		if !kind.IsValid() {
			return fmt.Errorf("tab configured for unknown stream %q", kind)
		}
	}

	return nil
}
