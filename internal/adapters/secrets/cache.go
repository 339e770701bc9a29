package secrets

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kevin07696/poynt-sync-service/internal/adapters/ports"
)

// secretCache is a TTL cache shared by the remote backends
type secretCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
	enabled bool
}

type cacheEntry struct {
	expiresAt time.Time
	secret    *ports.Secret
}

func newSecretCache(enabled bool, ttl time.Duration) *secretCache {
	return &secretCache{
		entries: make(map[string]cacheEntry),
		enabled: enabled,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *secretCache) get(key string) *ports.Secret {
	if !c.enabled {
		return nil
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil
	}
	return entry.secret
}

func (c *secretCache) set(key string, secret *ports.Secret) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{secret: secret, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// splitField splits "path#field" into the secret path and an optional JSON field.
func splitField(path string) (string, string) {
	if i := strings.LastIndexByte(path, '#'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

// selectField narrows a JSON secret document to one string field
func selectField(secret *ports.Secret, field string) (*ports.Secret, error) {
	if field == "" {
		return secret, nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(secret.Value), &doc); err != nil {
		return nil, fmt.Errorf("secret is not a JSON document: %w", err)
	}
	value, ok := doc[field].(string)
	if !ok {
		return nil, fmt.Errorf("secret field %q not found", field)
	}
	out := *secret
	out.Value = value
	return &out, nil
}
