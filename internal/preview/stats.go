package preview

import "sort"

// Stats is a diagnostic view of the coordinator's bookkeeping.
type Stats struct {
	TotalSubscribers int            `json:"total_subscribers"`
	ChannelCounts    map[string]int `json:"channel_counts"`
	Channels         []string       `json:"channels"`
	SubscriptionRefs int            `json:"subscription_refs"`
}

// Stats returns subscriber counts and live channel ids. Channels without
// subscribers are listed in Channels but not in ChannelCounts.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		TotalSubscribers: c.totalSubscribers,
		ChannelCounts:    make(map[string]int),
		Channels:         make([]string, 0, len(c.channels)),
		SubscriptionRefs: len(c.subs),
	}
	for id, ch := range c.channels {
		stats.Channels = append(stats.Channels, id)
		if ch.subscribers > 0 {
			stats.ChannelCounts[id] = ch.subscribers
		}
	}
	sort.Strings(stats.Channels)
	return stats
}
