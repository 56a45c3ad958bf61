package variant

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gloamlab/gloam/internal/common/config"
)

// Bundle is the document shape of one variants file: a top-level
// variants list in the same form as the inline engine configuration.
type Bundle struct {
	Variants []config.VariantConfig `yaml:"variants"`
}

// Loader reads variant bundles from a directory.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new variant bundle loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger: logger.Named("variant.loader"),
	}
}

// LoadDir merges every *.yaml and *.yml bundle under dir over the base
// list. Entries sharing an id replace the earlier definition, with
// later files winning, so a bundle can override an inline variant
// wholesale. A missing directory is not an error and yields base
// unchanged. Malformed bundles fail the load; rule configuration is
// load-bearing and must not be silently dropped.
func (l *Loader) LoadDir(dir string, base []config.VariantConfig) ([]config.VariantConfig, error) {
	merged := make([]config.VariantConfig, 0, len(base))
	index := make(map[string]int, len(base))
	add := func(v config.VariantConfig) {
		if i, ok := index[v.ID]; ok {
			merged[i] = v
			return
		}
		index[v.ID] = len(merged)
		merged = append(merged, v)
	}
	for _, v := range base {
		add(v)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Info("variants directory absent, using inline variants only",
				zap.String("dir", dir))
			return merged, nil
		}
		return nil, fmt.Errorf("failed to read variants directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read variant bundle %s: %w", path, err)
		}

		var bundle Bundle
		if err := yaml.Unmarshal(data, &bundle); err != nil {
			return nil, fmt.Errorf("failed to parse variant bundle %s: %w", path, err)
		}

		for _, v := range bundle.Variants {
			add(v)
		}
		l.logger.Debug("loaded variant bundle",
			zap.String("file", entry.Name()),
			zap.Int("variants", len(bundle.Variants)))
	}

	return merged, nil
}
