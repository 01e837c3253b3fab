/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package event

import (
	"errors"
	"sync"
	"time"

	"jinr.ru/greenlab/go-alpide/pkg/alpide"
	"jinr.ru/greenlab/go-alpide/pkg/store"
)

// Counter accounts decoded events: good and corrupt events, per-event
// decode failures and flagged hits. It is safe for concurrent use.
type Counter struct {
	mu    sync.Mutex
	stats store.RunStats
}

func NewCounter() *Counter {
	return &Counter{stats: store.RunStats{FlaggedHits: map[string]uint64{}}}
}

// Count accounts one event and the error its decoding returned
func (c *Counter) Count(ev *Event, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stats.Events++
	var decodeErr ErrDecode
	switch {
	case errors.As(err, &decodeErr) && decodeErr.Stage == StageFrame:
		c.stats.FrameErrors++
	case err != nil:
		c.stats.ChipErrors++
	case ev.Success:
		c.stats.GoodEvents++
	default:
		c.stats.CorruptEvents++
	}
	if ev != nil {
		c.countHits(ev.Hits)
	}
	c.stats.Updated = time.Now()
}

func (c *Counter) countHits(hits []alpide.PixelHit) {
	for _, h := range hits {
		c.stats.Hits++
		if h.Flag == alpide.FlagOK {
			continue
		}
		c.stats.FlaggedHits[h.Flag.String()]++
		if h.Flag == alpide.FlagStuck {
			c.stats.StuckHits++
		}
	}
}

// HandleEvent accounts an event delivered by another pipeline,
// so that a Counter can be used as a Sink as well
func (c *Counter) HandleEvent(hits []alpide.PixelHit, ok bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Events++
	if ok {
		c.stats.GoodEvents++
	} else {
		c.stats.CorruptEvents++
	}
	c.countHits(hits)
	c.stats.Updated = time.Now()
	return nil
}

// Stats returns a copy of the accumulated statistics
func (c *Counter) Stats() *store.RunStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.FlaggedHits = make(map[string]uint64, len(c.stats.FlaggedHits))
	for k, v := range c.stats.FlaggedHits {
		stats.FlaggedHits[k] = v
	}
	return &stats
}

// Persist adds the accumulated statistics to the stored ones of a board
// and starts counting from zero
func (c *Counter) Persist(state *store.State, boardName string) error {
	stats := c.Stats()
	if err := state.AddStats(stats, boardName); err != nil {
		return err
	}
	c.mu.Lock()
	c.stats = store.RunStats{FlaggedHits: map[string]uint64{}}
	c.mu.Unlock()
	return nil
}
