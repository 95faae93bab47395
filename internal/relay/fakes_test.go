package relay

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"media-relay/internal/extractor"
)

type stubExtractor struct {
	mu    sync.Mutex
	info  *extractor.Info
	err   error
	block bool

	calls   int
	gotURL  string
	gotOpts extractor.Options
}

func (s *stubExtractor) Extract(ctx context.Context, url string, opts extractor.Options) (*extractor.Info, error) {
	s.mu.Lock()
	s.calls++
	s.gotURL = url
	s.gotOpts = opts
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.info, s.err
}

func (s *stubExtractor) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeLauncher hands out a process whose stdout is a fixed byte stream.
type fakeLauncher struct {
	mu       sync.Mutex
	output   []byte
	readErr  error
	startErr error

	launched []Invocation
	procs    []*fakeProcess
}

func (l *fakeLauncher) Launch(ctx context.Context, inv Invocation) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.launched = append(l.launched, inv)
	if l.startErr != nil {
		return nil, l.startErr
	}
	var r io.Reader = bytes.NewReader(l.output)
	if l.readErr != nil {
		r = io.MultiReader(r, errReader{l.readErr})
	}
	p := &fakeProcess{stdout: r}
	l.procs = append(l.procs, p)
	return p, nil
}

func (l *fakeLauncher) terminated() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, p := range l.procs {
		if p.terminateCalls > 0 {
			n++
		}
	}
	return n
}

type fakeProcess struct {
	stdout         io.Reader
	terminateCalls int
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdout }

func (p *fakeProcess) Terminate() error {
	p.terminateCalls++
	return nil
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

// failingWriter is a ResponseWriter whose client went away after limit bytes.
type failingWriter struct {
	header  http.Header
	status  int
	written int
	limit   int
}

var errClientGone = errors.New("client disconnected")

func (w *failingWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *failingWriter) WriteHeader(code int) { w.status = code }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		n := w.limit - w.written
		w.written = w.limit
		return n, errClientGone
	}
	w.written += len(p)
	return len(p), nil
}
