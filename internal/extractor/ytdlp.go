package extractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"media-relay/internal/platform/proc"
)

// waitDelay bounds how long Extract waits for output pipes after the
// process group was killed.
const waitDelay = 2 * time.Second

// YTDLP extracts descriptors by running `yt-dlp -J` as a subprocess.
type YTDLP struct {
	path string
}

// NewYTDLP returns an engine that runs the yt-dlp executable at path.
func NewYTDLP(path string) *YTDLP {
	if path == "" {
		path = "yt-dlp"
	}
	return &YTDLP{path: path}
}

// Extract implements relay.Extractor. Failures carry yt-dlp's own
// diagnostic text, unparsed.
func (y *YTDLP) Extract(ctx context.Context, url string, opts Options) (*Info, error) {
	// #nosec G204 -- argv is built from fixed flags; url follows "--".
	cmd := exec.CommandContext(ctx, y.path, Args(url, opts)...)
	proc.SetGroup(cmd)
	cmd.Cancel = func() error { return proc.Kill(cmd) }
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.New(Diagnostic(stderr.String(), err))
	}

	info, err := ParseInfo(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("yt-dlp returned an unreadable descriptor: %w", err)
	}
	return info, nil
}

// Args builds the yt-dlp argv for a metadata-only extraction.
func Args(url string, opts Options) []string {
	args := []string{"--dump-single-json", "--no-warnings", "--quiet"}
	if opts.Format != "" {
		args = append(args, "--format", opts.Format)
	}
	if opts.NoPlaylist {
		args = append(args, "--no-playlist")
	}
	if opts.UserAgent != "" {
		args = append(args, "--add-headers", "User-Agent:"+opts.UserAgent)
	}
	return append(args, "--", url)
}

// Diagnostic picks the message to surface for a failed run: the last
// "ERROR:" line yt-dlp printed, else its last stderr line, else runErr.
func Diagnostic(stderr string, runErr error) string {
	var last, lastError string
	sc := bufio.NewScanner(strings.NewReader(stderr))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		last = line
		if strings.HasPrefix(line, "ERROR:") {
			lastError = line
		}
	}
	switch {
	case lastError != "":
		return lastError
	case last != "":
		return last
	case runErr != nil:
		return "yt-dlp failed: " + runErr.Error()
	default:
		return "yt-dlp failed"
	}
}
