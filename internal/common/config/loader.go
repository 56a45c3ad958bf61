package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gloamlab/gloam/internal/common/cnst"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// VariantsFile is the shape of a standalone variant definition file
type VariantsFile struct {
	Variants []VariantConfig `yaml:"variants"`
}

// Loader is responsible for loading variant definitions
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new variant definition loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// LoadFromFile loads variant definitions from a YAML file
func (l *Loader) LoadFromFile(path string) ([]VariantConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = resolveEnv(data)
	var f VariantsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	if err := ValidateVariants(f.Variants); err != nil {
		return nil, err
	}

	return f.Variants, nil
}

// LoadFromDir loads variant definitions from a directory and merges them
// on top of the base list. Files are visited in lexical order; a later
// variant with an existing id replaces the earlier one in place, so the
// merged order stays identical on every node reading the same tree.
func (l *Loader) LoadFromDir(dir string, base []VariantConfig) ([]VariantConfig, error) {
	merged := make([]VariantConfig, len(base))
	copy(merged, base)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip directories and non-YAML files
		if info.IsDir() || !strings.HasSuffix(strings.ToLower(path), ".yaml") {
			return nil
		}

		variants, err := l.LoadFromFile(path)
		if err != nil {
			l.logger.Error("failed to load variant definition file",
				zap.String("path", path),
				zap.Error(err))
			return nil // Continue with other files
		}

		merged = l.mergeVariants(merged, variants)
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Validate the merged variant list
	if err := ValidateVariants(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// mergeVariants merges override variants into base, replacing by id
func (l *Loader) mergeVariants(base, override []VariantConfig) []VariantConfig {
	idx := make(map[string]int, len(base))
	for i, v := range base {
		idx[v.ID] = i
	}

	out := make([]VariantConfig, len(base))
	copy(out, base)
	for _, v := range override {
		if i, ok := idx[v.ID]; ok {
			out[i] = v
			continue
		}
		idx[v.ID] = len(out)
		out = append(out, v)
	}
	return out
}

// ValidateVariants performs variant list validation
func ValidateVariants(variants []VariantConfig) error {
	ids := make(map[string]bool)
	for _, v := range variants {
		if v.ID == "" {
			return fmt.Errorf("variant id must not be empty")
		}
		if ids[v.ID] {
			return fmt.Errorf("%w: %q", cnst.ErrDuplicateVariantID, v.ID)
		}
		ids[v.ID] = true

		if v.Weight <= 0 {
			return fmt.Errorf("%w: %q", cnst.ErrInvalidVariantWeight, v.ID)
		}
		if v.MinParticipants < 0 {
			return fmt.Errorf("variant %q: min_participants must not be negative", v.ID)
		}
		if v.MaxParticipants > 0 && v.MaxParticipants < v.MinParticipants {
			return fmt.Errorf("variant %q: max_participants below min_participants", v.ID)
		}
	}
	return nil
}
