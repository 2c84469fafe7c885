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

	"github.com/resqlink/resqlink/core/coordinator"
	"github.com/resqlink/resqlink/core/metrics"
	"github.com/resqlink/resqlink/infra/push"
	"github.com/resqlink/resqlink/infra/sms"
	"github.com/resqlink/resqlink/infra/store"
)

// Config is the root configuration of the coordinator service.
type Config struct {
	Store       store.Config       `json:"store"`
	SMS         sms.Config         `json:"sms"`
	Push        push.Config        `json:"push"`
	Coordinator coordinator.Config `json:"coordinator"`
	Metrics     metrics.Config     `json:"metrics"`
}

// Load reads the configuration file (YAML or JSON by extension), applies
// environment overrides with the RESQ_ prefix ("__" maps to "."), then
// defaults and validation.
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
	if err := k.Load(env.Provider("RESQ_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "resq_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Store.SetDefaults()
	cfg.SMS.SetDefaults()
	cfg.Push.SetDefaults()
	cfg.Coordinator.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.Store.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.SMS.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Coordinator.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
