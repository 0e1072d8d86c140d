package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

func TestUnitCache_NewUnitCache(t *testing.T) {
	cache := NewUnitCache()

	require.NotNil(t, cache)
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, int64(0), cache.ServerTime())
}

func TestUnitCache_FullRefreshReplaces(t *testing.T) {
	cache := NewUnitCache()

	cache.Update(&core.UnitsData{
		Units: map[string]core.Unit{
			"1": {ID: 1, Name: "SA-10"},
			"2": {ID: 2, Name: "SA-11"},
		},
		Time:        1000,
		FullRefresh: true,
	})
	require.Equal(t, 2, cache.Len())

	cache.Update(&core.UnitsData{
		Units:       map[string]core.Unit{"3": {ID: 3, Name: "F-16C"}},
		Time:        2000,
		FullRefresh: true,
	})

	assert.Equal(t, 1, cache.Len())
	_, ok := cache.GetUnit(1)
	assert.False(t, ok, "full refresh must drop units it does not carry")
	assert.Equal(t, int64(2000), cache.ServerTime())
}

func TestUnitCache_DeltaMerges(t *testing.T) {
	cache := NewUnitCache()

	cache.Update(&core.UnitsData{
		Units:       map[string]core.Unit{"1": {ID: 1, Name: "SA-10", Alive: true}},
		FullRefresh: true,
	})
	cache.Update(&core.UnitsData{
		Units: map[string]core.Unit{
			"1": {ID: 1, Name: "SA-10", Alive: false},
			"2": {ID: 2, Name: "ZU-23"},
		},
	})

	assert.Equal(t, 2, cache.Len())
	u, ok := cache.GetUnit(1)
	require.True(t, ok)
	assert.False(t, u.Alive)
	assert.Equal(t, 2, cache.Updates())
}

func TestUnitCache_IDFromKey(t *testing.T) {
	cache := NewUnitCache()

	cache.Update(&core.UnitsData{Units: map[string]core.Unit{"42": {Name: "Tunguska"}}})

	u, ok := cache.GetUnit(42)
	require.True(t, ok)
	assert.Equal(t, uint32(42), u.ID)
}

func TestUnitCache_NilIsNoop(t *testing.T) {
	cache := NewUnitCache()
	cache.Update(nil)
	assert.Equal(t, 0, cache.Updates())
}

func TestUnitCache_ConcurrentAccess(t *testing.T) {
	cache := NewUnitCache()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id uint32) {
			defer wg.Done()
			cache.Update(&core.UnitsData{Units: map[string]core.Unit{"x": {ID: id}}})
		}(uint32(i + 1))
		go func() {
			defer wg.Done()
			_ = cache.Units()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, cache.Len())
}

func TestSafeCounter(t *testing.T) {
	var c SafeCounter
	c.Inc()
	c.Inc()
	assert.Equal(t, 2, c.Value())
	c.Set(7)
	assert.Equal(t, 7, c.Value())
}
