package sheets

import (
	"testing"
	"time"

	"github.com/Veraticus/packflow/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		errMsg  string
		config  Config
		wantErr bool
	}{
		{
			name: "partial oauth credentials",
			config: Config{
				ClientID:      "test-client",
				RefreshToken:  "test-token",
				BatchSize:     100,
				RetryAttempts: 3,
				RetryDelay:    time.Second,
			},
			wantErr: true,
			errMsg:  "no authentication method configured",
		},
		{
			name: "both auth methods",
			config: Config{
				ClientID:           "id",
				ClientSecret:       "secret",
				RefreshToken:       "token",
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
			wantErr: true,
			errMsg:  "multiple authentication methods",
		},
		{
			name: "zero retry delay is valid",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
			},
		},
		{
			name: "negative retry delay",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				RetryAttempts:      3,
				RetryDelay:         -1 * time.Second,
			},
			wantErr: true,
			errMsg:  "retry delay cannot be negative",
		},
		{
			name: "zero batch size",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
			},
			wantErr: true,
			errMsg:  "batch size must be positive",
		},
		{
			name: "unknown stream tab",
			config: Config{
				ServiceAccountPath: "/path/to/key.json",
				BatchSize:          100,
				Tabs:               map[model.StreamKind]string{"packing": "X"},
			},
			wantErr: true,
			errMsg:  "unknown stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.EnableFormatting)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Len(t, cfg.Tabs, len(model.AllStreamKinds()))
}

func TestConfig_Tab(t *testing.T) {
	cfg := Config{Tabs: map[model.StreamKind]string{model.StreamDumping: "Volcado 2025"}}
	assert.Equal(t, "Volcado 2025", cfg.Tab(model.StreamDumping))
	assert.Equal(t, "RECEPCION", cfg.Tab(model.StreamReception))
}

func TestConfig_LoadFromEnv(t *testing.T) {
	t.Run("service account", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "/keys/sa.json")
		t.Setenv("GOOGLE_SHEETS_INPUT_SPREADSHEET_ID", "input-123")
		t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "output-456")

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFromEnv())
		assert.Equal(t, "/keys/sa.json", cfg.ServiceAccountPath)
		assert.Equal(t, "input-123", cfg.InputSpreadsheetID)
		assert.Equal(t, "output-456", cfg.SpreadsheetID)
	})

	t.Run("missing credentials", func(t *testing.T) {
		t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
		t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "id")
		t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "")
		t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "")

		cfg := DefaultConfig()
		err := cfg.LoadFromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing Google Sheets authentication")
	})
}

func TestRetryOptions(t *testing.T) {
	cfg := Config{RetryAttempts: 5, RetryDelay: 2 * time.Second}
	opts := cfg.retryOptions()
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.Equal(t, 2*time.Second, opts.InitialDelay)

	opts = (&Config{}).retryOptions()
	assert.Equal(t, 3, opts.MaxAttempts)
}
