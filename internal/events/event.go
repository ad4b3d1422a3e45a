// Package events provides the typed event bus that carries image-list and
// image-click notifications from the chat layer to the preview service.
package events

import (
	"encoding/json"
	"fmt"
)

// Kind identifies an event variant.
type Kind string

const (
	// KindListChanged announces that a channel's image list may have changed.
	KindListChanged Kind = "images.list_changed"
	// KindClicked announces that an image thumbnail was clicked.
	KindClicked Kind = "images.preview_clicked"
)

// Event is implemented by every event variant.
type Event interface {
	Kind() Kind
	Channel() string
}

// ListChanged is published when images were added to or removed from a channel.
type ListChanged struct {
	ChannelID string
}

func (ListChanged) Kind() Kind { return KindListChanged }
func (e ListChanged) Channel() string { return e.ChannelID }

// Clicked is published when the user opens the preview from a thumbnail.
type Clicked struct {
	ChannelID string
	ImageURL  string
}

func (Clicked) Kind() Kind { return KindClicked }
func (e Clicked) Channel() string { return e.ChannelID }

// envelope is the wire form used when events leave the process.
type envelope struct {
	Kind      Kind   `json:"kind"`
	ChannelID string `json:"channel_id"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Marshal encodes an event as a JSON envelope.
func Marshal(event Event) ([]byte, error) {
	env := envelope{Kind: event.Kind(), ChannelID: event.Channel()}
	switch e := event.(type) {
	case ListChanged:
	case Clicked:
		env.ImageURL = e.ImageURL
	default:
		return nil, fmt.Errorf("unsupported event kind %q", event.Kind())
	}
	return json.Marshal(env)
}

// Unmarshal decodes a JSON envelope into its event variant.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if env.ChannelID == "" {
		return nil, ErrMissingChannel
	}
	switch env.Kind {
	case KindListChanged:
		return ListChanged{ChannelID: env.ChannelID}, nil
	case KindClicked:
		return Clicked{ChannelID: env.ChannelID, ImageURL: env.ImageURL}, nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}
}
