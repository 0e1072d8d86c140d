package mission

import (
	"sync"

	"github.com/M-Chimiste/DCSOlympus/pkg/core"
)

// Context holds the mission-level data: airbases and bullseyes.
type Context struct {
	mu        sync.RWMutex
	airbases  map[string]core.Airbase
	bullseyes map[string]core.Bullseye
}

// NewContext creates an empty Context
func NewContext() *Context {
	return &Context{
		airbases:  make(map[string]core.Airbase),
		bullseyes: make(map[string]core.Bullseye),
	}
}

// UpdateAirbases replaces the airbase set with a full snapshot.
func (mc *Context) UpdateAirbases(data *core.AirbasesData) {
	if data == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.airbases = make(map[string]core.Airbase, len(data.Airbases))
	for k, v := range data.Airbases {
		mc.airbases[k] = v
	}
}

// UpdateBullseyes replaces the bullseye set with a full snapshot.
func (mc *Context) UpdateBullseyes(data *core.BullseyesData) {
	if data == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.bullseyes = make(map[string]core.Bullseye, len(data.Bullseyes))
	for k, v := range data.Bullseyes {
		mc.bullseyes[k] = v
	}
}

// Airbases returns a copy of the current airbases.
func (mc *Context) Airbases() map[string]core.Airbase {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make(map[string]core.Airbase, len(mc.airbases))
	for k, v := range mc.airbases {
		out[k] = v
	}
	return out
}

// Bullseye returns the bullseye of a coalition, if known.
func (mc *Context) Bullseye(c core.Coalition) (core.Bullseye, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	for _, b := range mc.bullseyes {
		if b.Coalition == c {
			return b, true
		}
	}
	return core.Bullseye{}, false
}

// Bullseyes returns a copy of the current bullseyes.
func (mc *Context) Bullseyes() map[string]core.Bullseye {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	out := make(map[string]core.Bullseye, len(mc.bullseyes))
	for k, v := range mc.bullseyes {
		out[k] = v
	}
	return out
}
