package preview

// onClicked moves the channel's active index to the clicked image.
func (c *Coordinator) onClicked(channelID, imageURL string) {
	if channelID == "" || imageURL == "" {
		return
	}
	ch, err := c.ensureChannel(channelID)
	if err != nil {
		return
	}
	c.activate(ch, imageURL)
}

// activate resolves imageURL against the channel's current list and applies
// the index if it differs. Resolution is best effort: it is skipped while
// the channel is busy and is a no-op when nothing matches.
func (c *Coordinator) activate(ch *channel, imageURL string) {
	c.mu.Lock()
	if c.channels[ch.id] != ch {
		c.mu.Unlock()
		return
	}
	if ch.phase.Busy() {
		c.mu.Unlock()
		ch.logger.Debug().Stringer("phase", ch.phase).Msg("click dropped: channel busy")
		return
	}
	ch.resumePhase = ch.phase
	ch.setPhase(PhaseResolving)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		if ch.phase == PhaseResolving {
			ch.setPhase(ch.resumePhase)
		}
		c.mu.Unlock()
	}()

	current := ch.store.getState()
	index, found := c.resolveIndex(ch, current.Images, imageURL)
	if !found || index == current.ActiveIndex {
		return
	}
	c.applyActive(ch, index, c.keys.Normalize(imageURL))
}

// applyActive moves the active index to index, provided the image there
// still has key. A refresh may have reordered the list since resolution.
func (c *Coordinator) applyActive(ch *channel, index int, key string) bool {
	return ch.store.update(func(state State) (State, bool) {
		if index >= len(state.Images) || state.ActiveIndex == index {
			return state, false
		}
		if c.keys.Normalize(state.Images[index].Src) != key {
			ch.logger.Debug().Int("index", index).Msg("click dropped: list changed during resolution")
			return state, false
		}
		return State{Images: state.Images, ActiveIndex: index}, true
	})
}

// resolveIndex finds imageURL's position using the channel's key index,
// building it on first use and falling back to a linear scan on a miss.
func (c *Coordinator) resolveIndex(ch *channel, images []PreviewImage, imageURL string) (int, bool) {
	key := c.keys.Normalize(imageURL)

	c.mu.Lock()
	defer c.mu.Unlock()

	if ch.index == nil {
		ch.index = make(map[string]int, len(images))
		for i, img := range images {
			k := c.keys.Normalize(img.Src)
			if _, exists := ch.index[k]; !exists {
				ch.index[k] = i
			}
		}
	}

	if i, ok := ch.index[key]; ok && i < len(images) && c.keys.Normalize(images[i].Src) == key {
		return i, true
	}

	for i, img := range images {
		k := c.keys.Normalize(img.Src)
		if _, exists := ch.index[k]; !exists {
			ch.index[k] = i
		}
		if k == key {
			ch.index[k] = i
			return i, true
		}
	}
	return 0, false
}
