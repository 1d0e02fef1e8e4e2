package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type Entry struct {
	Value     json.RawMessage
	ModelID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type Config struct {
	TTL        time.Duration
	MaxEntries int
	Now        func() time.Time
}

// ResponseCache memoises model responses in process for a fixed TTL.
type ResponseCache struct {
	mu         sync.RWMutex
	entries    map[string]Entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewResponseCache(config Config) *ResponseCache {
	if config.TTL <= 0 {
		config.TTL = 15 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 2000
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &ResponseCache{
		entries:    make(map[string]Entry),
		ttl:        config.TTL,
		maxEntries: config.MaxEntries,
		now:        config.Now,
	}
}

func (c *ResponseCache) Get(signature string) (Entry, bool) {
	c.mu.RLock()
	entry, exists := c.entries[signature]
	c.mu.RUnlock()

	if !exists {
		return Entry{}, false
	}
	if !c.now().UTC().Before(entry.ExpiresAt) {
		c.mu.Lock()
		delete(c.entries, signature)
		c.mu.Unlock()
		return Entry{}, false
	}
	return cloneEntry(entry), true
}

func (c *ResponseCache) Set(signature string, entry Entry) {
	now := c.now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(c.ttl)
	entry.Value = append([]byte(nil), entry.Value...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[signature]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[signature] = entry
}

// GetJSON decodes a cached value into target.
func (c *ResponseCache) GetJSON(signature string, target any) bool {
	entry, ok := c.Get(signature)
	if !ok {
		return false
	}
	return json.Unmarshal(entry.Value, target) == nil
}

func (c *ResponseCache) SetJSON(signature, modelID string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.Set(signature, Entry{Value: encoded, ModelID: modelID})
}

func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// BuildSignature hashes the normalized parts. Text bodies are case-folded, so
// inputs differing only in case share an entry.
func BuildSignature(parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		normalized = append(normalized, strings.TrimSpace(strings.ToLower(part)))
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "||")))
	return hex.EncodeToString(sum[:])
}

// evictLocked drops expired entries first and, when none expired, the oldest one.
func (c *ResponseCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		removed   bool
	)
	for key, entry := range c.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(c.entries, key)
			removed = true
			continue
		}
		if oldestKey == "" || entry.CreatedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.CreatedAt
		}
	}
	if !removed && oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func cloneEntry(entry Entry) Entry {
	clone := entry
	clone.Value = append([]byte(nil), entry.Value...)
	return clone
}
