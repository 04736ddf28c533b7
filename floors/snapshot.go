package floors

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache holds the last-fetched live map payload per floor, for
// previews only. Reads never block the workflows and an empty cache is
// never an error. Writes go to memory first and through to Redis on a
// best-effort basis so previews survive a controller restart.
type SnapshotCache struct {
	mu      sync.Mutex
	byFloor map[string][]byte
	client  *redis.Client // nil disables the write-through
	robotID string
}

func NewSnapshotCache(client *redis.Client, robotID string) *SnapshotCache {
	return &SnapshotCache{
		byFloor: make(map[string][]byte),
		client:  client,
		robotID: robotID,
	}
}

func (c *SnapshotCache) key(floorID string) string {
	return fmt.Sprintf("floorpilot:%s:snapshot:%s", c.robotID, floorID)
}

// Put stores a floor's map payload. Redis failures are ignored; the
// in-memory copy is authoritative for the process lifetime.
func (c *SnapshotCache) Put(floorID string, payload []byte) {
	cp := make([]byte, len(payload))
	copy(cp, payload)
	c.mu.Lock()
	c.byFloor[floorID] = cp
	c.mu.Unlock()

	if c.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.client.Set(ctx, c.key(floorID), cp, 0)
	}
}

// Get returns a floor's cached payload, falling back to Redis when the
// process has not fetched one yet.
func (c *SnapshotCache) Get(floorID string) ([]byte, bool) {
	c.mu.Lock()
	payload, ok := c.byFloor[floorID]
	c.mu.Unlock()
	if ok {
		return payload, true
	}
	if c.client == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	data, err := c.client.Get(ctx, c.key(floorID)).Bytes()
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	c.byFloor[floorID] = data
	c.mu.Unlock()
	return data, true
}

// Take returns and removes a floor's cached payload.
func (c *SnapshotCache) Take(floorID string) ([]byte, bool) {
	payload, ok := c.Get(floorID)
	if !ok {
		return nil, false
	}
	c.mu.Lock()
	delete(c.byFloor, floorID)
	c.mu.Unlock()
	if c.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		c.client.Del(ctx, c.key(floorID))
	}
	return payload, true
}
