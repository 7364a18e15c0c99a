package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/loanerfleet/loanerfleet/core/metrics"
	"github.com/loanerfleet/loanerfleet/core/plan"
)

type Config struct {
	Plan    plan.Config    `json:"plan"`
	Metrics metrics.Config `json:"metrics"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("LF_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "lf_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	// Unmarshal over the materialized defaults: only keys present in the
	// file or environment overwrite them, so an explicit zero rate sticks.
	cfg := Config{Plan: plan.DefaultConfig()}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	// Office and week start arrive per run from the CLI; full validation
	// happens in plan.NewPlanner once they are merged in.
	return &cfg, nil
}
