package imagesource

import (
	"context"
	"sync"
)

// MemorySource is an in-process Source, used by tests and demos.
type MemorySource struct {
	URLBuilder

	mu       sync.Mutex
	channels map[string][]Image
	err      error
	calls    map[string]int
	notifier Notifier
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource(baseURL string) *MemorySource {
	return &MemorySource{
		URLBuilder: URLBuilder{BaseURL: baseURL},
		channels:   make(map[string][]Image),
		calls:      make(map[string]int),
	}
}

// SetNotifier installs a hook invoked after Set and Append.
func (m *MemorySource) SetNotifier(n Notifier) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = n
}

// ImagesByChannel returns a copy of the channel's images.
func (m *MemorySource) ImagesByChannel(_ context.Context, channelID string) ([]Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[channelID]++
	if m.err != nil {
		return nil, m.err
	}
	images := m.channels[channelID]
	out := make([]Image, len(images))
	copy(out, images)
	return out, nil
}

// Set replaces the channel's images.
func (m *MemorySource) Set(ctx context.Context, channelID string, images ...Image) {
	m.mu.Lock()
	m.channels[channelID] = append([]Image(nil), images...)
	n := m.notifier
	m.mu.Unlock()
	if n != nil {
		n.ImagesChanged(ctx, channelID)
	}
}

// SetURLs replaces the channel's images with the given URLs, sequenced in order.
func (m *MemorySource) SetURLs(ctx context.Context, channelID string, urls ...string) {
	images := make([]Image, len(urls))
	for i, u := range urls {
		images[i] = Image{URL: u, Sequence: int64(i + 1)}
	}
	m.Set(ctx, channelID, images...)
}

// Append adds an image to the end of the channel's list.
func (m *MemorySource) Append(ctx context.Context, channelID string, image Image) {
	m.mu.Lock()
	m.channels[channelID] = append(m.channels[channelID], image)
	n := m.notifier
	m.mu.Unlock()
	if n != nil {
		n.ImagesChanged(ctx, channelID)
	}
}

// Fail makes subsequent ImagesByChannel calls return err; nil clears it.
func (m *MemorySource) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times ImagesByChannel was called for channelID.
func (m *MemorySource) Calls(channelID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[channelID]
}
