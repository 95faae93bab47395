package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-relay/internal/extractor"
)

// DefaultResolveTimeout bounds one call to the extraction engine.
const DefaultResolveTimeout = 45 * time.Second

// Extractor is an external extraction engine.
type Extractor interface {
	Extract(ctx context.Context, url string, opts extractor.Options) (*extractor.Info, error)
}

// ResolverConfig configures a Resolver. Engines overrides the default engine
// for individual platforms.
type ResolverConfig struct {
	Format    string
	UserAgent string
	Timeout   time.Duration
	Engines   map[PlatformTag]Extractor
}

// Resolver turns page URLs into MediaDescriptors.
type Resolver struct {
	engine  Extractor
	engines map[PlatformTag]Extractor
	opts    extractor.Options
	timeout time.Duration
}

// NewResolver returns a Resolver that uses engine for every platform without
// an override in cfg.Engines.
func NewResolver(engine Extractor, cfg ResolverConfig) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultResolveTimeout
	}
	engines := make(map[PlatformTag]Extractor, len(cfg.Engines))
	for tag, e := range cfg.Engines {
		engines[tag] = e
	}
	return &Resolver{
		engine:  engine,
		engines: engines,
		opts: extractor.Options{
			Format:     cfg.Format,
			UserAgent:  cfg.UserAgent,
			NoPlaylist: true,
		},
		timeout: cfg.Timeout,
	}
}

// Format returns the format selector passed to the engine.
func (r *Resolver) Format() string {
	return r.opts.Format
}

// Resolve calls the engine for rawURL. Any engine failure becomes a
// *ResolutionError carrying the engine's message. An empty candidate list
// is not an error here.
func (r *Resolver) Resolve(ctx context.Context, rawURL string, tag PlatformTag) (MediaDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	engine := r.engine
	if e, ok := r.engines[tag]; ok {
		engine = e
	}

	info, err := engine.Extract(ctx, rawURL, r.opts)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("resolution timed out after %s", r.timeout)
		}
		return MediaDescriptor{}, &ResolutionError{Message: msg, Err: err}
	}
	if info == nil {
		info = &extractor.Info{}
	}
	return Describe(rawURL, info), nil
}

// Describe normalizes a raw descriptor. Candidates are, in order: the
// top-level url; the url of the first entry of a multi-entry result; the url
// of the first requested format. Missing ones are skipped, so Candidates[0]
// is always the highest-precedence location found.
func Describe(sourceURL string, info *extractor.Info) MediaDescriptor {
	d := MediaDescriptor{
		SourceURL:     sourceURL,
		Title:         info.Title,
		MergeRequired: len(info.RequestedFormats) > 1,
	}

	add := func(url string, headers ...map[string]string) {
		if url == "" {
			return
		}
		c := Candidate{URL: url}
		for _, h := range headers {
			if len(h) > 0 {
				c.Headers = copyHeaders(h)
				break
			}
		}
		d.Candidates = append(d.Candidates, c)
	}

	add(info.URL, info.HTTPHeaders)
	if entry := firstEntry(info.Entries); entry != nil {
		add(entry.URL, entry.HTTPHeaders, info.HTTPHeaders)
		if d.Title == "" {
			d.Title = entry.Title
		}
	}
	if len(info.RequestedFormats) > 0 {
		f := info.RequestedFormats[0]
		add(f.URL, f.HTTPHeaders, info.HTTPHeaders)
	}
	return d
}

// firstEntry skips entries the engine reported as null.
func firstEntry(entries []*extractor.Info) *extractor.Info {
	for _, e := range entries {
		if e != nil {
			return e
		}
	}
	return nil
}

func copyHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
