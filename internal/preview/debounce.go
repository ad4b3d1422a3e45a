package preview

import "github.com/tOgg1/imagepreview/internal/clock"

// onListChanged coalesces list-changed announcements into one trailing
// refresh per burst.
func (c *Coordinator) onListChanged(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := c.channels[channelID]
	if ch == nil || c.closed {
		// Nothing cached; the store loads fresh data when first used.
		return
	}
	if ch.phase.Busy() {
		ch.logger.Debug().Stringer("phase", ch.phase).Msg("list change dropped: channel busy")
		return
	}
	if !ch.lastRefresh.IsZero() && c.clock.Now().Sub(ch.lastRefresh) < c.cfg.RecencyWindow {
		ch.logger.Debug().Msg("list change dropped: refreshed recently")
		return
	}

	if ch.debounce != nil {
		// A timer that already fired may be blocked on c.mu; the generation
		// bump makes its flush a no-op.
		ch.debounce.Stop()
	}
	ch.debounceGen++
	ch.setPhase(PhaseDebouncing)
	ch.debounce = c.armFlush(ch, ch.debounceGen)
}

func (c *Coordinator) armFlush(ch *channel, gen uint64) clock.Timer {
	return c.clock.AfterFunc(c.cfg.DebounceWindow, func() { c.flush(ch, gen) })
}

// flush runs when a debounce window closes without further list changes.
// Callbacks from superseded or already consumed timers carry an old gen and
// do nothing.
func (c *Coordinator) flush(ch *channel, gen uint64) {
	c.mu.Lock()
	if c.channels[ch.id] != ch || gen != ch.debounceGen {
		c.mu.Unlock()
		return
	}
	ch.debounce = nil
	if ch.phase == PhaseResolving {
		// A click is being resolved on another goroutine; try again once it is done.
		ch.debounce = c.armFlush(ch, gen)
		c.mu.Unlock()
		return
	}
	ch.debounceGen++
	ch.setPhase(PhaseRefreshing)
	ch.index = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		ch.lastRefresh = c.clock.Now()
		if ch.phase == PhaseRefreshing {
			ch.setPhase(PhaseIdle)
		}
		c.mu.Unlock()
	}()

	c.refresh(ch)
}
