package translate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/Mike-voyager/FX-anotator-ai-translator/internal/types"
)

// CacheEntry is one cached translation.
type CacheEntry struct {
	Hash        string    `json:"hash"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	CreatedAt   time.Time `json:"created_at"`
}

// cacheFile is the on-disk cache format.
type cacheFile struct {
	Version string       `json:"version"`
	Entries []CacheEntry `json:"entries"`
}

// Cache stores translations keyed by a hash of model, target language
// and source text, mirrored to a JSON file.
type Cache struct {
	cachePath string
	entries   map[string]CacheEntry
	mu        sync.RWMutex
}

// NewCache creates a cache backed by cachePath; an empty path keeps the
// cache memory-only.
func NewCache(cachePath string) *Cache {
	return &Cache{
		cachePath: cachePath,
		entries:   make(map[string]CacheEntry),
	}
}

// Key hashes the translation identity: same text translated with a
// different model or target must miss.
func Key(model, targetLang, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + targetLang + "\x00" + text))
	return hex.EncodeToString(h[:])
}

// Get returns the cached translation for key.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	return entry.Translation, true
}

// Set stores a translation under key.
func (c *Cache) Set(key, original, translation string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		Hash:        key,
		Original:    original,
		Translation: translation,
		CreatedAt:   time.Now(),
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load reads the cache file; a missing file starts empty.
func (c *Cache) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachePath == "" {
		return nil
	}
	data, err := os.ReadFile(c.cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return types.NewAppError(types.ErrInternal, "failed to read translation cache", err)
	}

	var file cacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to parse translation cache", err)
	}
	c.entries = make(map[string]CacheEntry, len(file.Entries))
	for _, entry := range file.Entries {
		c.entries[entry.Hash] = entry
	}
	return nil
}

// Save writes the cache file.
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cachePath == "" {
		return nil
	}
	entries := make([]CacheEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	data, err := json.MarshalIndent(cacheFile{Version: "1.0", Entries: entries}, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrInternal, "failed to marshal translation cache", err)
	}
	if err := os.WriteFile(c.cachePath, data, 0644); err != nil {
		return types.NewAppError(types.ErrInternal, "failed to write translation cache", err)
	}
	return nil
}
