package speech

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Cache is a file-backed store of designed voice IDs keyed by the voice
// description and language they were designed from. Voice design is slow
// and paid, so a narrator designed once is reused across runs.
type Cache struct {
	mu   sync.Mutex
	path string
	// key "language:description" -> entry
	entries map[string]cacheEntry
}

type cacheEntry struct {
	VoiceID     string `json:"voice_id"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

// OpenCache loads (or initializes) the voice cache at path, creating
// parent directories as needed.
func OpenCache(path string) (*Cache, error) {
	c := &Cache{path: path, entries: make(map[string]cacheEntry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read voice cache: %w", err)
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		return nil, fmt.Errorf("failed to parse voice cache %s: %w", path, err)
	}
	return c, nil
}

// Get returns the cached voice ID for (description, language), or "" on a
// miss.
func (c *Cache) Get(description, language string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[cacheKey(description, language)].VoiceID
}

// Put records a designed voice and persists the cache to disk.
func (c *Cache) Put(description, language, voiceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(description, language)] = cacheEntry{
		VoiceID:     voiceID,
		Description: description,
		Language:    language,
	}
	return c.save()
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode voice cache: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create voice cache dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write voice cache: %w", err)
	}
	return nil
}

func cacheKey(description, language string) string {
	return language + ":" + description
}
