package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gloamlab/gloam/internal/common/cnst"
)

func TestLoader_LoadFromFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "variants.yaml")
	yaml := `
variants:
  - id: baseline
    weight: 3
  - id: strict
    weight: 1
    min_participants: 2
    params:
      enforce_turn_order: true
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))

	l := NewLoader(zap.NewNop())
	variants, err := l.LoadFromFile(file)
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "baseline", variants[0].ID)
	assert.Equal(t, "strict", variants[1].ID)
	assert.Equal(t, 2, variants[1].MinParticipants)
	assert.Equal(t, true, variants[1].Params["enforce_turn_order"])
}

func TestLoader_LoadFromFile_DuplicateID(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "variants.yaml")
	yaml := `
variants:
  - id: baseline
    weight: 3
  - id: baseline
    weight: 1
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))

	l := NewLoader(zap.NewNop())
	_, err := l.LoadFromFile(file)
	assert.ErrorIs(t, err, cnst.ErrDuplicateVariantID)
}

func TestLoader_LoadFromDir_MergeAndOrder(t *testing.T) {
	tmp := t.TempDir()

	// Files are visited lexically; 20-override replaces baseline's weight
	// and 10-extra appends a new variant first.
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "10-extra.yaml"), []byte(`
variants:
  - id: relaxed
    weight: 2
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "20-override.yaml"), []byte(`
variants:
  - id: baseline
    weight: 5
`), 0o644))
	// Non-YAML files are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "notes.txt"), []byte("ignore me"), 0o644))

	base := []VariantConfig{
		{ID: "baseline", Weight: 3},
		{ID: "strict", Weight: 1},
	}

	l := NewLoader(zap.NewNop())
	merged, err := l.LoadFromDir(tmp, base)
	require.NoError(t, err)
	require.Len(t, merged, 3)

	// Base order is preserved, overridden in place, new variants appended.
	assert.Equal(t, "baseline", merged[0].ID)
	assert.Equal(t, 5, merged[0].Weight)
	assert.Equal(t, "strict", merged[1].ID)
	assert.Equal(t, "relaxed", merged[2].ID)
}

func TestLoader_LoadFromDir_SkipsBrokenFiles(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "bad.yaml"), []byte("variants: {not a list"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "good.yaml"), []byte(`
variants:
  - id: ok
    weight: 1
`), 0o644))

	l := NewLoader(zap.NewNop())
	merged, err := l.LoadFromDir(tmp, nil)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "ok", merged[0].ID)
}

func TestValidateVariants(t *testing.T) {
	tests := []struct {
		name     string
		variants []VariantConfig
		wantErr  error
	}{
		{
			name:     "empty list is valid",
			variants: nil,
		},
		{
			name: "valid list",
			variants: []VariantConfig{
				{ID: "a", Weight: 1},
				{ID: "b", Weight: 9, MinParticipants: 2, MaxParticipants: 4},
			},
		},
		{
			name: "duplicate id",
			variants: []VariantConfig{
				{ID: "a", Weight: 1},
				{ID: "a", Weight: 2},
			},
			wantErr: cnst.ErrDuplicateVariantID,
		},
		{
			name:     "zero weight",
			variants: []VariantConfig{{ID: "a", Weight: 0}},
			wantErr:  cnst.ErrInvalidVariantWeight,
		},
		{
			name:     "negative weight",
			variants: []VariantConfig{{ID: "a", Weight: -2}},
			wantErr:  cnst.ErrInvalidVariantWeight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVariants(tt.variants)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateVariants_ParticipantBounds(t *testing.T) {
	err := ValidateVariants([]VariantConfig{
		{ID: "a", Weight: 1, MinParticipants: 4, MaxParticipants: 2},
	})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "max_participants below min_participants")
	}

	err = ValidateVariants([]VariantConfig{
		{ID: "a", Weight: 1, MinParticipants: -1},
	})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "must not be negative")
	}
}
