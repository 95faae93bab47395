package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"media-relay/internal/platform/config"
	"media-relay/internal/platform/logger"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var Version = "dev"

func newRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:   "media-relay",
		Short: "Resolve social media links and relay the media as a download",
		Long: `media-relay resolves a video page URL with an extraction engine and streams
the media back to the client as an MP4 attachment, without storing it.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				return config.Load(envFile)
			}
			_ = config.Load()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of .env")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "resolve <url>",
		Short: "Resolve a URL and print the media descriptor as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), args[0])
		},
	})
	return root
}

func runServe(ctx context.Context) error {
	settings, err := config.Read()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log := logger.New(settings.LogLevel, settings.LogFormat)

	a, err := newApp(settings, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.serve(ctx); err != nil {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}

func runResolve(ctx context.Context, rawURL string) error {
	settings, err := config.Read()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	log := logger.NewTo(os.Stderr, settings.LogLevel, "text")

	a, err := newApp(settings, log)
	if err != nil {
		return err
	}

	tag, d, err := a.svc.Resolve(ctx, rawURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	out := struct {
		Platform string `json:"platform"`
		Strategy string `json:"strategy"`
		Filename string `json:"filename,omitempty"`
		Error    string `json:"error,omitempty"`
		Media    any    `json:"media"`
	}{
		Platform: string(tag),
		Strategy: string(a.selector.StrategyFor(tag)),
		Media:    d,
	}
	if plan, err := a.selector.Select(tag, d); err != nil {
		out.Error = err.Error()
	} else {
		out.Filename = plan.Filename
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
