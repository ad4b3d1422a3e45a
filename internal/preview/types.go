// Package preview keeps a reactive "image list + active index" view per
// chat channel for the image preview overlay.
//
// A Coordinator owns one store per channel. Stores are created lazily the
// first time a channel is read or subscribed to, refreshed from an
// imagesource.Source when the chat layer announces list changes, and
// destroyed after their last subscriber leaves.
package preview

import (
	"errors"
	"time"
)

// PreviewImage is one entry of a channel's preview list. Two images are
// considered the same asset when their Src values normalize to the same key.
type PreviewImage struct {
	Src         string `json:"src"`
	Alt         string `json:"alt,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// State is a channel's preview snapshot. When Images is non-empty,
// 0 <= ActiveIndex < len(Images); when empty, ActiveIndex is 0.
type State struct {
	Images      []PreviewImage `json:"images"`
	ActiveIndex int            `json:"active_index"`
}

// Clone returns a copy whose Images slice is not shared.
func (s State) Clone() State {
	images := make([]PreviewImage, len(s.Images))
	copy(images, s.Images)
	return State{Images: images, ActiveIndex: s.ActiveIndex}
}

// Subscriber receives channel snapshots. It must not retain or mutate the
// Images slice beyond the call.
type Subscriber func(State)

// Config controls coordinator timing.
type Config struct {
	// DebounceWindow is the quiet period after the last list-changed event
	// before a refresh runs.
	DebounceWindow time.Duration

	// RecencyWindow drops list-changed events arriving this soon after the
	// previous debounced refresh completed.
	RecencyWindow time.Duration

	// RedundancyWindow drops store updates that arrive this soon after the
	// previous one and change neither the active index nor the image count.
	RedundancyWindow time.Duration

	// GracePeriod delays destroying a channel after its last unsubscribe.
	GracePeriod time.Duration

	// SweepInterval is how often unused channels are garbage collected.
	SweepInterval time.Duration

	// FetchTimeout bounds each image source call.
	FetchTimeout time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:   200 * time.Millisecond,
		RecencyWindow:    300 * time.Millisecond,
		RedundancyWindow: 100 * time.Millisecond,
		GracePeriod:      5 * time.Second,
		SweepInterval:    60 * time.Second,
		FetchTimeout:     2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = d.DebounceWindow
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = d.RecencyWindow
	}
	if c.RedundancyWindow <= 0 {
		c.RedundancyWindow = d.RedundancyWindow
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = d.GracePeriod
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
	return c
}

// Coordinator errors.
var (
	ErrNilSource = errors.New("image source is required")
	ErrClosed    = errors.New("preview coordinator closed")
)
