package imagegen

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/coastscore/internal/models"
)

// BackdropKey names the cached backdrop for a label and mode.
func BackdropKey(label models.Label, mode models.Mode) string {
	return strings.ToLower(string(label)) + "_" + string(mode)
}

// Cache stores generated backdrops on disk.
type Cache struct {
	dir    string
	maxAge time.Duration
}

// NewCache creates a backdrop cache in dir. Backdrops are regenerated after
// a week for variety.
func NewCache(dir string) *Cache {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Printf("imagegen: could not create cache directory: %v", err)
	}
	return &Cache{
		dir:    dir,
		maxAge: 7 * 24 * time.Hour,
	}
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("backdrop_%s.png", key))
}

// Get returns a cached backdrop unless it is missing or stale.
func (c *Cache) Get(key string) ([]byte, bool) {
	path := c.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.maxAge {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *Cache) Set(key string, data []byte) error {
	return os.WriteFile(c.path(key), data, 0644)
}

// List returns the keys of all cached backdrops.
func (c *Cache) List() []string {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "backdrop_") || filepath.Ext(name) != ".png" {
			continue
		}
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, "backdrop_"), ".png"))
	}
	return keys
}
