package audit

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/capsim/capsim/internal/config"
	"github.com/capsim/capsim/internal/core"
)

// FileConfig holds the type-specific options of the file auditor.
type FileConfig struct {
	Path string `mapstructure:"path"`
}

// Build constructs the auditor described by the config. A disabled audit
// section yields a noop auditor so callers never branch.
func Build(cfg config.AuditConfig) (core.Auditor, error) {
	if !cfg.Enabled {
		return NewNoopAuditor(), nil
	}

	switch cfg.Type {
	case "memory":
		return NewInMemoryAuditor(), nil

	case "file":
		var fc FileConfig
		if err := mapstructure.Decode(cfg.Config, &fc); err != nil {
			return nil, fmt.Errorf("decoding file auditor config: %w", err)
		}
		if fc.Path == "" {
			return nil, fmt.Errorf("file auditor requires a path")
		}
		return NewFileAuditor(fc.Path)

	default:
		return nil, fmt.Errorf("unknown auditor type '%s'", cfg.Type)
	}
}
