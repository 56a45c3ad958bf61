package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ifuryst/lol"
	"go.uber.org/zap"
)

// DefaultWords is the compiled-in note vocabulary, used when no content
// bundle supplies one.
var DefaultWords = []string{
	"danger", "safe", "hidden", "treasure", "monster", "trap", "forward", "back", "help",
}

// Area is a named region of the world declared by a content bundle
type Area struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// Bundle is the on-disk shape of a world content file
type Bundle struct {
	Words []string `toml:"words"`
	Areas []Area   `toml:"areas"`
}

// Content is the merged world vocabulary. Bundle words extend the
// built-in list; an area declared in a later file replaces an earlier
// declaration with the same id. Immutable after Load.
type Content struct {
	words   []string
	wordSet map[string]struct{}
	areas   map[string]string
}

// Load reads every .toml bundle in dir and merges it over the built-in
// defaults. A missing directory is not an error; the defaults serve.
func Load(logger *zap.Logger, dir string) (*Content, error) {
	logger = logger.Named("world.content")

	c := &Content{areas: make(map[string]string)}
	words := append([]string(nil), DefaultWords...)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no content directory, using built-in words",
				zap.String("dir", dir))
			c.setWords(words)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read content directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		var bundle Bundle
		if _, err := toml.DecodeFile(path, &bundle); err != nil {
			logger.Error("failed to load content bundle",
				zap.String("path", path),
				zap.Error(err))
			continue
		}

		words = append(words, bundle.Words...)
		for _, area := range bundle.Areas {
			c.areas[area.ID] = area.Name
		}
		logger.Debug("loaded content bundle",
			zap.String("path", path),
			zap.Int("words", len(bundle.Words)),
			zap.Int("areas", len(bundle.Areas)))
	}

	c.setWords(words)
	logger.Info("world content ready",
		zap.Int("words", len(c.words)),
		zap.Int("areas", len(c.areas)))
	return c, nil
}

func (c *Content) setWords(words []string) {
	trimmed := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w != "" {
			trimmed = append(trimmed, w)
		}
	}
	c.words = lol.UniqSlice(trimmed)
	c.wordSet = make(map[string]struct{}, len(c.words))
	for _, w := range c.words {
		c.wordSet[w] = struct{}{}
	}
}

// ValidWord reports whether word is part of the note vocabulary
func (c *Content) ValidWord(word string) bool {
	_, ok := c.wordSet[word]
	return ok
}

// Words returns the vocabulary in load order
func (c *Content) Words() []string {
	return append([]string(nil), c.words...)
}

// AreaName returns the display name declared for an area id
func (c *Content) AreaName(id string) (string, bool) {
	name, ok := c.areas[id]
	return name, ok
}
