// Package extractor turns page URLs into raw media descriptors by calling an
// external extraction engine. It does not interpret the result; the relay
// package decides which of the returned locations to use.
package extractor

import (
	"encoding/json"
	"fmt"
)

// Options configures one extraction.
type Options struct {
	// Format is a yt-dlp format selector, e.g. "best[ext=mp4]/best".
	Format string
	// UserAgent is sent to the platform during extraction.
	UserAgent string
	// NoPlaylist resolves only the single item a URL points at.
	NoPlaylist bool
}

// Info is the subset of the engine's JSON descriptor the relay reads.
// Every field may be absent; real descriptors are inconsistent across sites.
type Info struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title,omitempty"`
	Extractor   string            `json:"extractor,omitempty"`
	WebpageURL  string            `json:"webpage_url,omitempty"`
	URL         string            `json:"url,omitempty"`
	Ext         string            `json:"ext,omitempty"`
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`

	// Entries is set for multi-item results (carousels, feeds).
	Entries []*Info `json:"entries,omitempty"`
	// RequestedFormats is set when the engine picked separate streams that
	// the caller is expected to merge.
	RequestedFormats []Format `json:"requested_formats,omitempty"`
}

// Format is one stream of a descriptor.
type Format struct {
	FormatID    string            `json:"format_id,omitempty"`
	URL         string            `json:"url,omitempty"`
	Ext         string            `json:"ext,omitempty"`
	VCodec      string            `json:"vcodec,omitempty"`
	ACodec      string            `json:"acodec,omitempty"`
	Protocol    string            `json:"protocol,omitempty"`
	HTTPHeaders map[string]string `json:"http_headers,omitempty"`
}

// ParseInfo decodes a single-JSON descriptor as printed by `yt-dlp -J`.
func ParseInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return &info, nil
}
