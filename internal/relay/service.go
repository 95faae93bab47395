package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"media-relay/internal/platform/metrics"

	"github.com/google/uuid"
)

// ServiceConfig wires the pipeline stages into a Service.
type ServiceConfig struct {
	Resolver *Resolver
	Selector *Selector
	Engine   *Engine
	Sessions *SessionRegistry
	Logger   *slog.Logger
	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// Service runs the classify, resolve, select and relay pipeline.
type Service struct {
	resolver *Resolver
	selector *Selector
	engine   *Engine
	sessions *SessionRegistry
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() SessionID
}

// NewService returns a Service. A nil Sessions gets a fresh registry.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		resolver: cfg.Resolver,
		selector: cfg.Selector,
		engine:   cfg.Engine,
		sessions: cfg.Sessions,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		now:      time.Now,
		newID:    func() SessionID { return SessionID(uuid.NewString()) },
	}
}

// Resolve classifies rawURL and resolves it into a descriptor.
func (s *Service) Resolve(ctx context.Context, rawURL string) (PlatformTag, MediaDescriptor, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", MediaDescriptor{}, ErrInput
	}

	tag := Classify(rawURL)
	start := s.now()
	d, err := s.resolver.Resolve(ctx, rawURL, tag)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	if s.metrics != nil {
		s.metrics.ObserveResolution(string(tag), outcome)
	}
	s.log.Debug("resolved",
		slog.String("platform", string(tag)),
		slog.String("outcome", outcome),
		slog.Int("candidates", len(d.Candidates)),
		slog.Duration("duration", s.now().Sub(start)))
	return tag, d, err
}

// Stream resolves rawURL and relays the media to w. See Engine.Relay for
// which errors leave the response untouched.
func (s *Service) Stream(ctx context.Context, w http.ResponseWriter, rawURL string) (int64, error) {
	tag, d, err := s.Resolve(ctx, rawURL)
	if err != nil {
		return 0, err
	}

	plan, err := s.selector.Select(tag, d)
	if err != nil {
		return 0, err
	}

	sess := &StreamSession{
		ID:        s.newID(),
		SourceURL: d.SourceURL,
		Platform:  tag,
		Strategy:  plan.Strategy,
		StartedAt: s.now().UTC(),
	}
	if err := s.sessions.Add(sess); err != nil {
		return 0, fmt.Errorf("register session %s: %w", sess.ID, err)
	}
	defer s.sessions.Remove(sess.ID)

	s.log.Info("relay started",
		slog.String("session_id", string(sess.ID)),
		slog.String("platform", string(tag)),
		slog.String("strategy", string(plan.Strategy)),
		slog.String("filename", plan.Filename))

	n, err := s.engine.Relay(ctx, w, plan, sess)
	if err == nil {
		s.log.Info("relay finished",
			slog.String("session_id", string(sess.ID)),
			slog.Int64("bytes", n),
			slog.Duration("duration", s.now().Sub(sess.StartedAt)))
	}
	return n, err
}

// Sessions returns the in-flight relays.
func (s *Service) Sessions() []SessionInfo {
	return s.sessions.Snapshot()
}

// ActiveSessions returns the number of in-flight relays.
func (s *Service) ActiveSessions() int {
	return s.sessions.ActiveCount()
}
