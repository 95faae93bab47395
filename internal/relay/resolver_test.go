package relay

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"media-relay/internal/extractor"

	"github.com/google/go-cmp/cmp"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		info *extractor.Info
		want MediaDescriptor
	}{
		{
			name: "top-level url",
			info: &extractor.Info{
				Title:       "Clip",
				URL:         "https://cdn.example.com/clip.mp4",
				HTTPHeaders: map[string]string{"Referer": "https://example.com/"},
			},
			want: MediaDescriptor{
				SourceURL: "https://example.com/p/1",
				Title:     "Clip",
				Candidates: []Candidate{
					{URL: "https://cdn.example.com/clip.mp4", Headers: map[string]string{"Referer": "https://example.com/"}},
				},
			},
		},
		{
			name: "first entry of a carousel",
			info: &extractor.Info{
				HTTPHeaders: map[string]string{"User-Agent": "UA"},
				Entries: []*extractor.Info{
					nil,
					{Title: "Slide 1", URL: "https://cdn.example.com/1.mp4"},
					{Title: "Slide 2", URL: "https://cdn.example.com/2.mp4"},
				},
			},
			want: MediaDescriptor{
				SourceURL: "https://example.com/p/1",
				Title:     "Slide 1",
				Candidates: []Candidate{
					{URL: "https://cdn.example.com/1.mp4", Headers: map[string]string{"User-Agent": "UA"}},
				},
			},
		},
		{
			name: "requested formats need merging",
			info: &extractor.Info{
				Title: "Test Video",
				RequestedFormats: []extractor.Format{
					{URL: "https://rr1.googlevideo.com/video", HTTPHeaders: map[string]string{"Accept": "*/*"}},
					{URL: "https://rr1.googlevideo.com/audio"},
				},
			},
			want: MediaDescriptor{
				SourceURL: "https://example.com/p/1",
				Title:     "Test Video",
				Candidates: []Candidate{
					{URL: "https://rr1.googlevideo.com/video", Headers: map[string]string{"Accept": "*/*"}},
				},
				MergeRequired: true,
			},
		},
		{
			name: "precedence order",
			info: &extractor.Info{
				URL:              "https://a.example.com/top",
				Entries:          []*extractor.Info{{URL: "https://a.example.com/entry"}},
				RequestedFormats: []extractor.Format{{URL: "https://a.example.com/format"}},
			},
			want: MediaDescriptor{
				SourceURL: "https://example.com/p/1",
				Candidates: []Candidate{
					{URL: "https://a.example.com/top"},
					{URL: "https://a.example.com/entry"},
					{URL: "https://a.example.com/format"},
				},
			},
		},
		{
			name: "nothing playable",
			info: &extractor.Info{Title: "Gallery"},
			want: MediaDescriptor{SourceURL: "https://example.com/p/1", Title: "Gallery"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Describe("https://example.com/p/1", tt.info)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Describe mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolver_passes_options(t *testing.T) {
	stub := &stubExtractor{info: &extractor.Info{Title: "x"}}
	r := NewResolver(stub, ResolverConfig{Format: "best", UserAgent: "UA/1"})

	if _, err := r.Resolve(context.Background(), "https://vimeo.com/1", Generic); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := extractor.Options{Format: "best", UserAgent: "UA/1", NoPlaylist: true}
	if diff := cmp.Diff(want, stub.gotOpts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if stub.gotURL != "https://vimeo.com/1" {
		t.Errorf("url = %q", stub.gotURL)
	}
}

func TestResolver_engine_failure(t *testing.T) {
	engineErr := errors.New("ERROR: [instagram] abc: Requested content is not available")
	r := NewResolver(&stubExtractor{err: engineErr}, ResolverConfig{})

	_, err := r.Resolve(context.Background(), "https://instagram.com/p/abc", Instagram)
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ResolutionError, got %T %v", err, err)
	}
	if re.Error() != engineErr.Error() {
		t.Errorf("message = %q, want engine text verbatim", re.Error())
	}
	if !errors.Is(err, engineErr) {
		t.Error("ResolutionError should unwrap to the engine error")
	}
}

func TestResolver_timeout(t *testing.T) {
	r := NewResolver(&stubExtractor{block: true}, ResolverConfig{Timeout: 20 * time.Millisecond})

	_, err := r.Resolve(context.Background(), "https://example.com/v", Generic)
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if !strings.Contains(re.Message, "timed out") {
		t.Errorf("message = %q", re.Message)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected DeadlineExceeded in chain")
	}
}

func TestResolver_platform_engine_override(t *testing.T) {
	fallback := &stubExtractor{info: &extractor.Info{Title: "fallback"}}
	native := &stubExtractor{info: &extractor.Info{Title: "native"}}
	r := NewResolver(fallback, ResolverConfig{Engines: map[PlatformTag]Extractor{YouTube: native}})

	d, err := r.Resolve(context.Background(), "https://youtu.be/abc", YouTube)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if d.Title != "native" {
		t.Errorf("youtube title = %q, want native", d.Title)
	}

	d, _ = r.Resolve(context.Background(), "https://tiktok.com/@a/video/1", TikTok)
	if d.Title != "fallback" {
		t.Errorf("tiktok title = %q, want fallback", d.Title)
	}
	if native.Calls() != 1 || fallback.Calls() != 1 {
		t.Errorf("calls native=%d fallback=%d, want 1 each", native.Calls(), fallback.Calls())
	}
}

func TestResolver_nil_info(t *testing.T) {
	r := NewResolver(&stubExtractor{}, ResolverConfig{})
	d, err := r.Resolve(context.Background(), "https://example.com/v", Generic)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(d.Candidates) != 0 || d.SourceURL != "https://example.com/v" {
		t.Errorf("unexpected descriptor %+v", d)
	}
}
