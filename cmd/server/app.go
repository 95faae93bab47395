package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"media-relay/internal/extractor"
	"media-relay/internal/platform/config"
	"media-relay/internal/platform/httpx"
	"media-relay/internal/platform/logger"
	"media-relay/internal/platform/metrics"
	"media-relay/internal/platform/ratelimit"
	"media-relay/internal/relay"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
)

type app struct {
	settings config.Settings
	log      *slog.Logger
	met      *metrics.Metrics
	sessions *relay.SessionRegistry
	selector *relay.Selector
	svc      *relay.Service
	handler  *relay.Handler
}

func newApp(settings config.Settings, log *slog.Logger) (*app, error) {
	pipe, err := parsePlatforms(settings.PipePlatforms)
	if err != nil {
		return nil, err
	}

	client := httpx.NewStreamingClient(settings.ConnectTimeout.Duration)
	met := metrics.New()
	sessions := relay.NewSessionRegistry()

	engines := map[relay.PlatformTag]relay.Extractor{}
	if settings.YouTubeEngine == "native" {
		engines[relay.YouTube] = extractor.NewYouTube(client)
	}
	resolver := relay.NewResolver(extractor.NewYTDLP(settings.YTDLPPath), relay.ResolverConfig{
		Format:    settings.Format,
		UserAgent: settings.UserAgent,
		Timeout:   settings.ResolveTimeout.Duration,
		Engines:   engines,
	})

	selector := relay.NewSelector(relay.ToolchainConfig{
		Executable: settings.YTDLPPath,
		Format:     settings.Format,
		UserAgent:  settings.UserAgent,
	}, pipe, settings.MaxFilenameLength)

	engine := relay.NewEngine(relay.EngineConfig{
		Client:   client,
		Headers:  settings.DefaultHeaders(),
		Launcher: relay.ExecLauncher{Grace: settings.TerminateGrace.Duration},
		Logger:   log,
		Metrics:  met,
	})

	svc := relay.NewService(relay.ServiceConfig{
		Resolver: resolver,
		Selector: selector,
		Engine:   engine,
		Sessions: sessions,
		Logger:   log,
		Metrics:  met,
	})

	return &app{
		settings: settings,
		log:      log,
		met:      met,
		sessions: sessions,
		selector: selector,
		svc:      svc,
		handler:  relay.NewHandler(svc, log),
	}, nil
}

func parsePlatforms(names []string) ([]relay.PlatformTag, error) {
	tags := make([]relay.PlatformTag, 0, len(names))
	for _, name := range names {
		tag, ok := relay.ParsePlatform(name)
		if !ok {
			return nil, fmt.Errorf("unknown platform %q in pipe platforms", name)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (a *app) router() http.Handler {
	limit := ratelimit.Middleware(ratelimit.Config{
		RequestLimit: a.settings.RateLimit,
		WindowSize:   a.settings.RateWindow.Duration,
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logger.RequestLogger(a.log))
	r.Use(metrics.RequestMiddleware(a.met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		a.met.Handler(func() { a.met.SetActiveSessions(a.sessions.ActiveCount()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", a.handler.Healthz)
	r.Get("/sessions", a.handler.Sessions)
	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Post("/resolve", a.handler.Resolve)
		r.Post("/download", a.handler.Download)
		r.Get("/stream", a.handler.Stream)
	})
	return r
}

// serve runs the HTTP server until ctx is cancelled, then drains
// connections for up to shutdownTimeout.
func (a *app) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.settings.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("server starting",
			"port", a.settings.Port,
			"ytdlp_path", a.settings.YTDLPPath,
			"youtube_engine", a.settings.YouTubeEngine,
			"pipe_platforms", a.settings.PipePlatforms,
			"log_level", a.settings.LogLevel,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received, draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			// Relays still running: cut their connections so every child
			// gets terminated before the process exits.
			a.log.Warn("drain timed out, closing relays", "active_sessions", a.sessions.ActiveCount())
			_ = srv.Close()
			a.awaitRelays(a.settings.TerminateGrace.Duration + time.Second)
			return fmt.Errorf("shutdown: %w", err)
		}
		a.log.Info("server stopped")
		return nil
	})
	return g.Wait()
}

// awaitRelays waits up to timeout for the session registry to empty.
func (a *app) awaitRelays(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for a.sessions.ActiveCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}
