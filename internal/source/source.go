// Package source reads analyzed files through a bounded, concurrency-safe
// cache so the index pass and the analysis pass share one read per file.
package source

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of files kept in memory.
const DefaultSize = 1024

// Cache loads file contents relative to a root directory.
type Cache struct {
	root  string
	files *lru.Cache[string, []byte]
}

// New creates a cache for files under root holding at most size entries.
func New(root string, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	files, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("creating source cache: %w", err)
	}
	return &Cache{root: root, files: files}, nil
}

// Read returns the content of rel, reading it from disk on a miss.
// The returned slice must not be modified.
func (c *Cache) Read(rel string) ([]byte, error) {
	if data, ok := c.files.Get(rel); ok {
		return data, nil
	}
	data, err := os.ReadFile(filepath.Join(c.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	c.files.Add(rel, data)
	return data, nil
}

// Cached reports whether rel is currently held in memory.
func (c *Cache) Cached(rel string) bool {
	return c.files.Contains(rel)
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	return c.files.Len()
}
