package config

import (
	"fmt"

	"github.com/Veraticus/packflow/internal/blob"
	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/loader"
	"github.com/spf13/viper"
)

// Source kinds accepted by source.kind.
const (
	SourceCSV    = "csv"
	SourceSheets = "sheets"
)

// SourceConfig selects where input streams are read from.
type SourceConfig struct {
	Kind      string
	Dir       string
	Delimiter rune
}

// LoadSourceConfig reads the source.* keys. CSV from the current directory
// is the default.
func LoadSourceConfig() (SourceConfig, error) {
	cfg := SourceConfig{
		Kind:      viper.GetString("source.kind"),
		Dir:       ExpandPath(viper.GetString("source.dir")),
		Delimiter: ',',
	}
	if cfg.Kind == "" {
		cfg.Kind = SourceCSV
	}
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if d := viper.GetString("source.delimiter"); d != "" {
		r := []rune(d)
		if len(r) != 1 {
			return cfg, fmt.Errorf("%w: source.delimiter must be a single character", common.ErrInvalidConfig)
		}
		cfg.Delimiter = r[0]
	}

	switch cfg.Kind {
	case SourceCSV, SourceSheets:
	default:
		return cfg, fmt.Errorf("%w: unknown source.kind %q", common.ErrInvalidConfig, cfg.Kind)
	}
	return cfg, nil
}

// OutputConfig lists the enabled sinks.
type OutputConfig struct {
	XLSXDir     string
	MetricsFile string
	HistoryPath string
	FSBlobRoot  string
	S3Enabled   bool
	Sheets      bool
	Postgres    bool
	SkipHistory bool
}

// LoadOutputConfig reads the output.* and history.* keys.
func LoadOutputConfig() OutputConfig {
	cfg := OutputConfig{
		XLSXDir:     ExpandPath(viper.GetString("output.xlsx_dir")),
		MetricsFile: ExpandPath(viper.GetString("output.metrics_file")),
		HistoryPath: ExpandPath(viper.GetString("history.path")),
		S3Enabled:   viper.GetBool("output.s3.enabled"),
		Sheets:      viper.GetBool("output.sheets"),
		Postgres:    viper.GetBool("output.postgres"),
		FSBlobRoot:  ExpandPath(viper.GetString("output.blob_dir")),
		SkipHistory: viper.GetBool("history.disabled"),
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = DefaultHistoryPath()
	}
	return cfg
}

// LoadS3Config reads the output.s3.* keys.
func LoadS3Config() (blob.S3Config, error) {
	cfg := blob.S3Config{
		Region:    viper.GetString("output.s3.region"),
		Bucket:    viper.GetString("output.s3.bucket"),
		Prefix:    viper.GetString("output.s3.prefix"),
		Endpoint:  viper.GetString("output.s3.endpoint"),
		PathStyle: viper.GetBool("output.s3.path_style"),
	}
	if cfg.Bucket == "" {
		return cfg, fmt.Errorf("%w: output.s3.bucket", common.ErrMissingConfig)
	}
	return cfg, nil
}

// LoadPostgresConfig reads the postgres.* keys.
func LoadPostgresConfig() (loader.Config, error) {
	cfg := loader.Config{
		DSN:    viper.GetString("postgres.dsn"),
		Schema: viper.GetString("postgres.schema"),
	}
	if cfg.DSN == "" {
		return cfg, fmt.Errorf("%w: postgres.dsn", common.ErrMissingConfig)
	}
	return cfg, nil
}
