package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultFormat prefers a single merged MP4, then separate MP4 video +
	// M4A audio, then whatever is best.
	DefaultFormat = "best[ext=mp4]/bestvideo[ext=mp4]+bestaudio[ext=m4a]/best"

	// DefaultUserAgent is the browser identity sent to platforms.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Settings is the process-wide configuration. It is built once at start and
// passed by value; nothing mutates it afterwards.
type Settings struct {
	Port      string `toml:"port"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	YTDLPPath     string   `toml:"ytdlp_path"`
	Format        string   `toml:"format"`
	UserAgent     string   `toml:"user_agent"`
	// YouTubeEngine is "ytdlp" or "native". It only changes resolution:
	// while youtube is in PipePlatforms the bytes still come from yt-dlp,
	// so "native" supplies just the title. Set PIPE_PLATFORMS="" to proxy
	// the URL the native engine resolved.
	YouTubeEngine string   `toml:"youtube_engine"`
	// PipePlatforms are relayed through the toolchain; an empty list
	// proxies every platform.
	PipePlatforms []string `toml:"pipe_platforms"`

	ResolveTimeout    Duration `toml:"resolve_timeout"`
	ConnectTimeout    Duration `toml:"connect_timeout"`
	TerminateGrace    Duration `toml:"terminate_grace"`
	MaxFilenameLength int      `toml:"max_filename_length"`

	RateLimit  int      `toml:"rate_limit"`
	RateWindow Duration `toml:"rate_window"`

	// Headers are sent on every proxied fetch; per-media headers from the
	// extraction engine take precedence.
	Headers map[string]string `toml:"headers"`
}

// Duration lets TOML files spell durations as strings ("45s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		Port:              "8080",
		LogLevel:          "info",
		LogFormat:         "json",
		YTDLPPath:         "yt-dlp",
		Format:            DefaultFormat,
		UserAgent:         DefaultUserAgent,
		YouTubeEngine:     "ytdlp",
		PipePlatforms:     []string{"youtube"},
		ResolveTimeout:    Duration{45 * time.Second},
		ConnectTimeout:    Duration{30 * time.Second},
		TerminateGrace:    Duration{2 * time.Second},
		MaxFilenameLength: 100,
		RateLimit:         60,
		RateWindow:        Duration{time.Minute},
		Headers:           map[string]string{},
	}
}

// LoadFile overlays the TOML file at path onto s. Keys absent from the file
// keep their current values.
func LoadFile(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Read assembles Settings from defaults, the optional TOML file named by
// CONFIG_FILE, then environment variables, in that order of precedence.
func Read() (Settings, error) {
	s := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := LoadFile(&s, path); err != nil {
			return Settings{}, err
		}
	}

	s.Port = GetEnv("PORT", s.Port)
	s.LogLevel = GetEnv("LOG_LEVEL", s.LogLevel)
	s.LogFormat = GetEnv("LOG_FORMAT", s.LogFormat)
	s.YTDLPPath = GetEnv("YTDLP_PATH", s.YTDLPPath)
	s.Format = GetEnv("FORMAT", s.Format)
	s.UserAgent = GetEnv("USER_AGENT", s.UserAgent)
	s.YouTubeEngine = strings.ToLower(GetEnv("YOUTUBE_ENGINE", s.YouTubeEngine))
	s.PipePlatforms = GetEnvList("PIPE_PLATFORMS", s.PipePlatforms)
	s.ResolveTimeout.Duration = GetEnvDuration("RESOLVE_TIMEOUT", s.ResolveTimeout.Duration)
	s.ConnectTimeout.Duration = GetEnvDuration("CONNECT_TIMEOUT", s.ConnectTimeout.Duration)
	s.TerminateGrace.Duration = GetEnvDuration("TERMINATE_GRACE", s.TerminateGrace.Duration)
	s.MaxFilenameLength = GetEnvInt("MAX_FILENAME_LENGTH", s.MaxFilenameLength)
	s.RateLimit = GetEnvInt("RATE_LIMIT", s.RateLimit)
	s.RateWindow.Duration = GetEnvDuration("RATE_WINDOW", s.RateWindow.Duration)

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// Validate checks values are within acceptable bounds.
func (s Settings) Validate() error {
	if s.Port == "" {
		return errors.New("port cannot be empty")
	}
	if s.YTDLPPath == "" {
		return errors.New("ytdlp_path cannot be empty")
	}
	if s.Format == "" {
		return errors.New("format cannot be empty")
	}
	switch s.YouTubeEngine {
	case "ytdlp", "native":
	default:
		return fmt.Errorf("unsupported youtube engine %q (valid: ytdlp, native)", s.YouTubeEngine)
	}
	if s.ResolveTimeout.Duration <= 0 {
		return errors.New("resolve_timeout must be positive")
	}
	if s.ConnectTimeout.Duration <= 0 {
		return errors.New("connect_timeout must be positive")
	}
	if s.MaxFilenameLength <= 0 {
		return errors.New("max_filename_length must be positive")
	}
	if s.RateLimit < 0 {
		return errors.New("rate_limit cannot be negative")
	}
	if s.RateLimit > 0 && s.RateWindow.Duration <= 0 {
		return errors.New("rate_window must be positive when rate_limit is set")
	}
	return nil
}

// DefaultHeaders returns the browser-identity header set for outbound fetches:
// the configured User-Agent plus any [headers] from the config file.
func (s Settings) DefaultHeaders() map[string]string {
	h := make(map[string]string, len(s.Headers)+1)
	h["User-Agent"] = s.UserAgent
	for k, v := range s.Headers {
		h[k] = v
	}
	return h
}
