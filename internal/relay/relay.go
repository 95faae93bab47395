package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"media-relay/internal/platform/metrics"
)

// DefaultChunkSize is the relay buffer size. Memory per relay is bounded by
// it regardless of the media size.
const DefaultChunkSize = 64 << 10

// EngineConfig configures an Engine.
type EngineConfig struct {
	// Client performs ProxyFetch GETs. It must not carry a total timeout.
	Client *http.Client
	// Headers are sent on every upstream GET; candidate headers win.
	Headers map[string]string
	// Launcher starts ProcessPipe children.
	Launcher  Launcher
	ChunkSize int
	Logger    *slog.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Engine relays media bytes from a source to an HTTP response.
type Engine struct {
	client    *http.Client
	headers   map[string]string
	launcher  Launcher
	chunkSize int
	log       *slog.Logger
	metrics   *metrics.Metrics
}

// NewEngine returns an Engine with defaults filled in.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	if cfg.Launcher == nil {
		cfg.Launcher = ExecLauncher{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		client:    cfg.Client,
		headers:   copyHeaders(cfg.Headers),
		launcher:  cfg.Launcher,
		chunkSize: cfg.ChunkSize,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Relay executes plan, writing the media to w. It returns the number of
// bytes written.
//
// Errors returned before any header is written are *UpstreamFetchError (or
// ErrNoPlayableMedia for an incomplete plan); the caller still owns the
// response. Once headers are committed every failure is a
// *RelayInterruptedError and the response must be left as is. sess may be
// nil; otherwise its byte counter is advanced as chunks go out.
func (e *Engine) Relay(ctx context.Context, w http.ResponseWriter, plan RelayPlan, sess *StreamSession) (int64, error) {
	var (
		n   int64
		err error
	)
	switch plan.Strategy {
	case ProcessPipe:
		n, err = e.relayPipe(ctx, w, plan, sess)
	case ProxyFetch:
		n, err = e.relayProxy(ctx, w, plan, sess)
	default:
		return 0, fmt.Errorf("unknown relay strategy %q", plan.Strategy)
	}

	if e.metrics != nil {
		e.metrics.AddRelayedBytes(string(plan.Strategy), n)
	}
	var interrupted *RelayInterruptedError
	if errors.As(err, &interrupted) {
		if e.metrics != nil {
			e.metrics.IncRelayInterruptions()
		}
		e.log.Info("relay interrupted",
			slog.String("strategy", string(plan.Strategy)),
			slog.Int64("bytes", n),
			slog.String("error", interrupted.Err.Error()))
	}
	return n, err
}

func (e *Engine) relayProxy(ctx context.Context, w http.ResponseWriter, plan RelayPlan, sess *StreamSession) (int64, error) {
	if plan.Candidate.URL == "" {
		return 0, ErrNoPlayableMedia
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, plan.Candidate.URL, nil)
	if err != nil {
		return 0, &UpstreamFetchError{Err: err}
	}
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}
	for k, v := range plan.Candidate.Headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, &UpstreamFetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &UpstreamFetchError{StatusCode: resp.StatusCode}
	}

	e.log.Debug("upstream connected",
		slog.Int("status", resp.StatusCode),
		slog.Int64("content_length", resp.ContentLength))

	e.commit(w, plan, resp.ContentLength)
	n, err := e.pump(w, resp.Body, make([]byte, e.chunkSize), sess)
	if err != nil {
		return n, &RelayInterruptedError{Written: n, Err: err}
	}
	return n, nil
}

func (e *Engine) relayPipe(ctx context.Context, w http.ResponseWriter, plan RelayPlan, sess *StreamSession) (int64, error) {
	if plan.Invocation.Executable == "" {
		return 0, ErrNoPlayableMedia
	}

	p, err := e.launcher.Launch(ctx, plan.Invocation)
	if err != nil {
		return 0, &UpstreamFetchError{Err: err}
	}
	defer func() {
		if err := p.Terminate(); err != nil {
			e.log.Debug("toolchain exited", slog.String("error", err.Error()))
		}
	}()

	// Headers wait for the first chunk so a child that dies without output
	// can still be reported as an error.
	buf := make([]byte, e.chunkSize)
	first, rerr := io.ReadAtLeast(p.Stdout(), buf, 1)
	if first == 0 {
		if rerr == nil || errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			rerr = errors.New("media toolchain produced no output")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			rerr = ctxErr
		}
		return 0, &UpstreamFetchError{Err: rerr}
	}

	e.commit(w, plan, -1)
	n, err := e.write(w, buf[:first], sess)
	if err == nil {
		var rest int64
		rest, err = e.pump(w, p.Stdout(), buf, sess)
		n += rest
	}
	if err != nil {
		return n, &RelayInterruptedError{Written: n, Err: err}
	}
	return n, nil
}

// pump copies src to w one chunk at a time, flushing after every chunk.
func (e *Engine) pump(w http.ResponseWriter, src io.Reader, buf []byte, sess *StreamSession) (int64, error) {
	var total int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := e.write(w, buf[:nr], sess)
			total += nw
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

func (e *Engine) write(w http.ResponseWriter, chunk []byte, sess *StreamSession) (int64, error) {
	nw, err := w.Write(chunk)
	if sess != nil {
		sess.bytes.Add(int64(nw))
	}
	if err != nil {
		return int64(nw), err
	}
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return int64(nw), err
	}
	return int64(nw), nil
}

// commit writes the media headers. contentLength < 0 means unknown.
func (e *Engine) commit(w http.ResponseWriter, plan RelayPlan, contentLength int64) {
	if e.metrics != nil {
		e.metrics.IncRelays(string(plan.Strategy))
	}
	h := w.Header()
	h.Set("Content-Disposition", ContentDisposition(plan.Filename))
	h.Set("Content-Type", "video/mp4")
	h.Set("X-Content-Type-Options", "nosniff")
	if contentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(contentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
}
