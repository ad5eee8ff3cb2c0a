package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/packflow/internal/common"
	"github.com/Veraticus/packflow/internal/engine"
	"github.com/Veraticus/packflow/internal/model"
	"github.com/Veraticus/packflow/internal/taxonomy"
	"github.com/Veraticus/packflow/internal/yield"
	"github.com/spf13/viper"
)

// LoadPipelineConfig builds the engine configuration from the pipeline.*
// keys. The taxonomy file is required.
func LoadPipelineConfig(logger *slog.Logger) (engine.Config, error) {
	cfg := engine.Config{
		Logger:             logger,
		ShrinkageThreshold: yield.DefaultShrinkageThreshold,
		CompanyAliases:     viper.GetStringMapString("pipeline.company_aliases"),
	}

	if viper.IsSet("pipeline.shrinkage_threshold") {
		cfg.ShrinkageThreshold = viper.GetFloat64("pipeline.shrinkage_threshold")
	}

	if v := viper.GetString("pipeline.reporting_start"); v != "" {
		start, err := time.Parse(model.DateLayout, v)
		if err != nil {
			return cfg, fmt.Errorf("%w: pipeline.reporting_start %q is not YYYY-MM-DD", common.ErrInvalidConfig, v)
		}
		cfg.ReportingStart = start
	}

	path := ExpandPath(viper.GetString("pipeline.taxonomy_file"))
	if path == "" {
		return cfg, fmt.Errorf("%w: pipeline.taxonomy_file", common.ErrMissingConfig)
	}
	tax, err := taxonomy.LoadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg.Taxonomy = tax

	return cfg, nil
}

// LoadPipelines returns the pipelines named by pipeline.pipelines, or every
// pipeline when the key is empty.
func LoadPipelines() ([]engine.Pipeline, error) {
	names := viper.GetStringSlice("pipeline.pipelines")
	if len(names) == 0 {
		return engine.AllPipelines(), nil
	}
	out := make([]engine.Pipeline, 0, len(names))
	for _, name := range names {
		p, err := engine.ParsePipeline(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
