// Package imagesource provides the authoritative per-channel image lists
// that the preview service reads from.
package imagesource

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Image is one image message in a channel.
type Image struct {
	URL      string
	Sequence int64
	Width    int
	Height   int
}

// Size requests a resized rendition from DownloadURL. Zero fields are omitted.
type Size struct {
	Width  int
	Height int
}

// Source returns the ordered images of a channel and resolves stored
// image paths into downloadable URLs.
type Source interface {
	// ImagesByChannel returns the channel's images in display order.
	// A channel with no images returns an empty slice and no error.
	ImagesByChannel(ctx context.Context, channelID string) ([]Image, error)

	// DownloadURL is deterministic for a given input.
	DownloadURL(imageURL string, size Size) string
}

// Notifier is told when a channel's image list was mutated.
type Notifier interface {
	ImagesChanged(ctx context.Context, channelID string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, channelID string)

// ImagesChanged calls f.
func (f NotifierFunc) ImagesChanged(ctx context.Context, channelID string) {
	f(ctx, channelID)
}

// URLBuilder turns stored image paths into download URLs under a base URL.
type URLBuilder struct {
	// BaseURL is prefixed to relative image paths, e.g. "https://cdn.example.com/".
	BaseURL string
}

// DownloadURL joins relative paths onto BaseURL and appends width/height
// query parameters when set. Absolute http(s) URLs keep their host.
func (b URLBuilder) DownloadURL(imageURL string, size Size) string {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return ""
	}

	full := imageURL
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		base := strings.TrimSuffix(strings.TrimSpace(b.BaseURL), "/")
		if base != "" {
			full = base + "/" + strings.TrimPrefix(imageURL, "/")
		}
	}

	if size.Width <= 0 && size.Height <= 0 {
		return full
	}

	params := url.Values{}
	if size.Width > 0 {
		params.Set("width", strconv.Itoa(size.Width))
	}
	if size.Height > 0 {
		params.Set("height", strconv.Itoa(size.Height))
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + params.Encode()
}
