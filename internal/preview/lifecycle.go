package preview

import "sort"

// release drops one subscription and, when it was the channel's last,
// schedules destruction after the grace period.
func (c *Coordinator) release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref, ok := c.subs[id]
	if !ok {
		// Already dropped by ClearChannelCache, the sweep or Close.
		return
	}
	delete(c.subs, id)
	c.totalSubscribers--

	ch := ref.ch
	if c.channels[ref.channelID] != ch {
		return
	}
	ch.subscribers--
	if ch.subscribers > 0 {
		return
	}
	ch.subscribers = 0
	c.scheduleExpiryLocked(ch)
}

func (c *Coordinator) scheduleExpiryLocked(ch *channel) {
	if ch.grace != nil {
		ch.grace.Stop()
	}
	ch.grace = c.clock.AfterFunc(c.cfg.GracePeriod, func() { c.expire(ch) })
}

// expire runs when a grace period elapses.
func (c *Coordinator) expire(ch *channel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channels[ch.id] != ch {
		return
	}
	ch.grace = nil
	if ch.subscribers > 0 {
		return
	}
	if ch.phase.Busy() {
		c.scheduleExpiryLocked(ch)
		return
	}
	c.destroyLocked(ch)
	ch.logger.Debug().Msg("channel released after grace period")
}

// runSweep destroys channels nobody subscribes to. Channels waiting out a
// grace period or in the middle of a refresh are left for later.
func (c *Coordinator) runSweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	var removed []string
	for id, ch := range c.channels {
		if ch.subscribers > 0 || ch.grace != nil || ch.phase.Busy() {
			continue
		}
		c.destroyLocked(ch)
		removed = append(removed, id)
	}

	if len(removed) > 0 {
		sort.Strings(removed)
		c.logger.Info().
			Int("channels", len(removed)).
			Strs("channel_ids", removed).
			Msg("cleaned up unused channels")
	}

	c.sweep = c.clock.AfterFunc(c.cfg.SweepInterval, c.runSweep)
}

// destroyLocked removes the channel and everything hanging off it.
func (c *Coordinator) destroyLocked(ch *channel) {
	if c.channels[ch.id] == ch {
		delete(c.channels, ch.id)
	}
	if ch.debounce != nil {
		ch.debounce.Stop()
		ch.debounce = nil
	}
	if ch.grace != nil {
		ch.grace.Stop()
		ch.grace = nil
	}
	ch.index = nil
	ch.subscribers = 0

	for id, ref := range c.subs {
		if ref.ch == ch {
			delete(c.subs, id)
			c.totalSubscribers--
		}
	}
	ch.store.clearSubscribers()
}
