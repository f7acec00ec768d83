package validator

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache lazily constructs and caches one Validator per extension point,
// keyed by resources_location/schema_path (spec §4.5, §9: "Validators are
// cached per extension point... owned by the point"). Construction is
// de-duplicated across concurrent callers via singleflight so that
// parallel find_extension/validate() calls from worker threads (allowed
// by the concurrency model, spec §5) never race to compile the same
// schema twice.
type Cache struct {
	mu    sync.RWMutex
	group singleflight.Group
	byKey map[string]*Validator
}

// NewCache creates an empty validator cache.
func NewCache() *Cache {
	return &Cache{byKey: make(map[string]*Validator)}
}

// Get returns the cached Validator for the given resources location and
// schema paths, constructing it on first use.
func (c *Cache) Get(resourcesLocation, schemaPath, jsonSchemaPath string) (*Validator, error) {
	key := cacheKey(resourcesLocation, schemaPath, jsonSchemaPath)

	c.mu.RLock()
	if v, ok := c.byKey[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		if v, ok := c.byKey[key]; ok {
			c.mu.RUnlock()
			return v, nil
		}
		c.mu.RUnlock()

		resolvedSchema := joinIfRelative(resourcesLocation, schemaPath)
		resolvedJSON := joinIfRelative(resourcesLocation, jsonSchemaPath)

		v, err := New(resolvedSchema, resolvedJSON)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.byKey[key] = v
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Validator), nil
}

func joinIfRelative(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func cacheKey(resourcesLocation, schemaPath, jsonSchemaPath string) string {
	return resourcesLocation + "\x00" + schemaPath + "\x00" + jsonSchemaPath
}
