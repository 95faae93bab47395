package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"
)

// YouTube extracts descriptors in-process with the kkdai/youtube client.
// It only understands YouTube URLs and ignores Options.Format.
type YouTube struct {
	client youtube.Client
}

// NewYouTube returns a native YouTube engine using httpClient for API calls.
func NewYouTube(httpClient *http.Client) *YouTube {
	return &YouTube{client: youtube.Client{HTTPClient: httpClient}}
}

// Extract implements relay.Extractor. The single returned location is the
// first progressive (audio+video) stream, preferring MP4.
func (y *YouTube) Extract(ctx context.Context, url string, _ Options) (*Info, error) {
	video, err := y.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, err
	}

	info := &Info{
		ID:         video.ID,
		Title:      video.Title,
		Extractor:  "youtube",
		WebpageURL: url,
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return info, nil
	}

	chosen := &formats[0]
	for i := range formats {
		if strings.HasPrefix(formats[i].MimeType, "video/mp4") {
			chosen = &formats[i]
			break
		}
	}

	streamURL, err := y.client.GetStreamURLContext(ctx, video, chosen)
	if err != nil {
		return nil, fmt.Errorf("stream url: %w", err)
	}
	info.URL = streamURL
	info.Ext = "mp4"
	return info, nil
}
