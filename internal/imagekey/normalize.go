// Package imagekey derives stable comparison keys from image URLs.
//
// A clicked thumbnail URL usually carries resize or signing query
// parameters and may be served through a different CDN prefix than the
// canonical URL stored with the message. Normalizing both to the same key
// lets the preview layer match them.
package imagekey

import (
	"regexp"
	"strings"
	"sync"
)

// contentHash matches a 32 character hex run, e.g. an md5 content digest
// embedded in an uploaded file name.
var contentHash = regexp.MustCompile(`[A-Fa-f0-9]{32}`)

// Normalizer memoizes URL → key results. The memo is unbounded.
type Normalizer struct {
	mu   sync.RWMutex
	memo map[string]string
}

// NewNormalizer returns an empty Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{memo: make(map[string]string)}
}

var defaultNormalizer = NewNormalizer()

// Default returns the process-wide Normalizer used by Normalize.
func Default() *Normalizer {
	return defaultNormalizer
}

// Normalize returns the key for rawURL using the process-wide Normalizer.
func Normalize(rawURL string) string {
	return defaultNormalizer.Normalize(rawURL)
}

// Normalize returns the key for rawURL: the final path segment with any
// query suffix removed, reduced to its content hash when it contains one.
func (n *Normalizer) Normalize(rawURL string) string {
	n.mu.RLock()
	key, ok := n.memo[rawURL]
	n.mu.RUnlock()
	if ok {
		return key
	}

	key = derive(rawURL)

	n.mu.Lock()
	n.memo[rawURL] = key
	n.mu.Unlock()
	return key
}

// Len reports how many distinct URLs have been memoized.
func (n *Normalizer) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.memo)
}

func derive(rawURL string) string {
	segment := rawURL
	if i := strings.LastIndexByte(segment, '/'); i >= 0 {
		segment = segment[i+1:]
	}
	if i := strings.IndexByte(segment, '?'); i >= 0 {
		segment = segment[:i]
	}
	if hash := contentHash.FindString(segment); hash != "" {
		return hash
	}
	return segment
}
