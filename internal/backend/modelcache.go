package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// modelCache holds downloaded model payloads keyed by building and
// detail level. Fetches go through the network once; the LOD manager
// re-requests levels freely and hits the cache.
type modelCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func newModelCache() *modelCache {
	return &modelCache{entries: make(map[string][]byte)}
}

func modelKey(buildingID string, level int) string {
	return buildingID + "/" + strconv.Itoa(level)
}

func (mc *modelCache) get(key string) ([]byte, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	data, ok := mc.entries[key]
	return data, ok
}

func (mc *modelCache) put(key string, data []byte) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries[key] = data
}

func (mc *modelCache) drop(buildingID string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for key := range mc.entries {
		if len(key) > len(buildingID) && key[:len(buildingID)] == buildingID && key[len(buildingID)] == '/' {
			delete(mc.entries, key)
		}
	}
}

// FetchModel downloads one building's model at the given detail level
// into the cache. Implements the LOD manager's fetcher interface.
func (c *Client) FetchModel(ctx context.Context, buildingID string, level int) error {
	key := modelKey(buildingID, level)
	if _, ok := c.models.get(key); ok {
		return nil
	}

	path := fmt.Sprintf("/api/v1/buildings/%s/model?lod=%d", buildingID, level)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building model request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching model %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Body: "model fetch failed"}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxModelBytes+1))
	if err != nil {
		return fmt.Errorf("reading model %s: %w", key, err)
	}
	if len(data) > maxModelBytes {
		return fmt.Errorf("model %s exceeds %d byte limit", key, maxModelBytes)
	}

	c.models.put(key, data)
	c.log.Debug("model cached", map[string]interface{}{
		"building_id": buildingID,
		"lod":         level,
		"bytes":       len(data),
	})
	return nil
}

// Model returns a cached model payload, if FetchModel has completed for
// the key.
func (c *Client) Model(buildingID string, level int) ([]byte, bool) {
	return c.models.get(modelKey(buildingID, level))
}

// EvictModels drops all cached levels for a building, forcing fresh
// downloads after the building's assets change.
func (c *Client) EvictModels(buildingID string) {
	c.models.drop(buildingID)
}
