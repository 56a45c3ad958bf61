package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeBundle(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func TestLoad_MissingDirUsesDefaults(t *testing.T) {
	c, err := Load(zap.NewNop(), filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)

	assert.Equal(t, DefaultWords, c.Words())
	assert.True(t, c.ValidWord("danger"))
	assert.False(t, c.ValidWord("shortcut"))
}

func TestLoad_BundlesExtendAndOverride(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "base.toml", `
words = ["shortcut", "danger", " water "]

[[areas]]
id = "crypt"
name = "The Crypt"

[[areas]]
id = "mire"
name = "Old Mire"
`)
	writeBundle(t, dir, "patch.toml", `
[[areas]]
id = "crypt"
name = "Sunken Crypt"
`)
	writeBundle(t, dir, "notes.txt", "not a bundle")

	c, err := Load(zap.NewNop(), dir)
	require.NoError(t, err)

	assert.True(t, c.ValidWord("shortcut"))
	assert.True(t, c.ValidWord("water"))
	assert.True(t, c.ValidWord("danger"))
	// Duplicates collapse into a single entry.
	expected := append(append([]string{}, DefaultWords...), "shortcut", "water")
	assert.ElementsMatch(t, expected, c.Words())

	name, ok := c.AreaName("crypt")
	require.True(t, ok)
	assert.Equal(t, "Sunken Crypt", name)

	name, ok = c.AreaName("mire")
	require.True(t, ok)
	assert.Equal(t, "Old Mire", name)

	_, ok = c.AreaName("meadow")
	assert.False(t, ok)
}

func TestLoad_MalformedBundleSkipped(t *testing.T) {
	dir := t.TempDir()
	writeBundle(t, dir, "bad.toml", `words = [unterminated`)
	writeBundle(t, dir, "good.toml", `words = ["lantern"]`)

	c, err := Load(zap.NewNop(), dir)
	require.NoError(t, err)
	assert.True(t, c.ValidWord("lantern"))
}
