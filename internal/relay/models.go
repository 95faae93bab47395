package relay

import (
	"sync/atomic"
	"time"
)

// MediaRequest is the JSON body of POST /resolve.
type MediaRequest struct {
	URL string `json:"url"`
}

// PlatformTag names the platform a URL belongs to.
type PlatformTag string

const (
	YouTube   PlatformTag = "youtube"
	Instagram PlatformTag = "instagram"
	Facebook  PlatformTag = "facebook"
	Twitter   PlatformTag = "twitter"
	TikTok    PlatformTag = "tiktok"
	Pinterest PlatformTag = "pinterest"
	LinkedIn  PlatformTag = "linkedin"
	Snapchat  PlatformTag = "snapchat"
	Reddit    PlatformTag = "reddit"
	Twitch    PlatformTag = "twitch"
	Generic   PlatformTag = "generic"
)

// Candidate is one fetchable media location, usually short-lived and signed.
type Candidate struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// MediaDescriptor is the normalized result of resolving a page URL.
// Candidates are ordered by preference and may be empty.
type MediaDescriptor struct {
	SourceURL     string      `json:"source_url"`
	Title         string      `json:"title"`
	Candidates    []Candidate `json:"candidates"`
	MergeRequired bool        `json:"merge_required"`
}

// Strategy is how bytes reach the client.
type Strategy string

const (
	// ProxyFetch streams a candidate location through this service.
	ProxyFetch Strategy = "proxy_fetch"
	// ProcessPipe streams the stdout of the external media toolchain.
	ProcessPipe Strategy = "process_pipe"
)

// Invocation describes a subprocess to launch.
type Invocation struct {
	Executable string
	Args       []string
}

// RelayPlan is the per-request decision of what to stream and how.
// Candidate is set for ProxyFetch, Invocation for ProcessPipe.
type RelayPlan struct {
	Platform   PlatformTag
	Strategy   Strategy
	Candidate  Candidate
	Invocation Invocation
	Filename   string
}

// SessionID identifies one in-flight relay.
type SessionID string

// StreamSession is one in-flight relay. Only the bytes counter changes after
// creation, and only the relay that owns the session writes it.
type StreamSession struct {
	ID        SessionID
	SourceURL string
	Platform  PlatformTag
	Strategy  Strategy
	StartedAt time.Time

	bytes atomic.Int64
}

// Bytes returns the number of bytes forwarded so far.
func (s *StreamSession) Bytes() int64 {
	return s.bytes.Load()
}

// SessionInfo is the JSON view of a StreamSession.
type SessionInfo struct {
	ID        SessionID   `json:"id"`
	SourceURL string      `json:"source_url"`
	Platform  PlatformTag `json:"platform"`
	Strategy  Strategy    `json:"strategy"`
	StartedAt time.Time   `json:"started_at"`
	Bytes     int64       `json:"bytes"`
}
