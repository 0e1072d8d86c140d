package cache

import (
	"strconv"
	"sync"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// UnitCache is the client-side unit store. It is the only owner of ingested unit
// records; the sync loop hands snapshots and deltas to Update and lets go of them.
type UnitCache struct {
	m     sync.RWMutex
	units map[uint32]core.Unit

	// serverTime is the Time of the last applied payload.
	serverTime int64
	updates    SafeCounter
}

func NewUnitCache() *UnitCache {
	return &UnitCache{
		units: make(map[uint32]core.Unit),
	}
}

// Update applies a payload. A full refresh replaces the whole set; a delta
// overwrites only the units it carries.
func (c *UnitCache) Update(data *core.UnitsData) {
	if data == nil {
		return
	}

	c.m.Lock()
	defer c.m.Unlock()

	if data.FullRefresh {
		c.units = make(map[uint32]core.Unit, len(data.Units))
	}
	for key, u := range data.Units {
		if u.ID == 0 {
			if id, err := strconv.ParseUint(key, 10, 32); err == nil {
				u.ID = uint32(id)
			}
		}
		c.units[u.ID] = u
	}
	c.serverTime = data.Time
	c.updates.Inc()
}

func (c *UnitCache) GetUnit(id uint32) (core.Unit, bool) {
	c.m.RLock()
	defer c.m.RUnlock()
	u, ok := c.units[id]
	return u, ok
}

// Units returns a copy of every cached unit.
func (c *UnitCache) Units() []core.Unit {
	c.m.RLock()
	defer c.m.RUnlock()
	out := make([]core.Unit, 0, len(c.units))
	for _, u := range c.units {
		out = append(out, u)
	}
	return out
}

func (c *UnitCache) Len() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return len(c.units)
}

// ServerTime returns the server clock of the last applied payload.
func (c *UnitCache) ServerTime() int64 {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.serverTime
}

// Updates returns how many payloads have been applied since the cache was created.
func (c *UnitCache) Updates() int {
	return c.updates.Value()
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
