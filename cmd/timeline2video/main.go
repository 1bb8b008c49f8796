// Command timeline2video renders a slideshow video from a timeline request
// file: timed image segments, motion effects, transitions, an optional
// weather overlay and background music.
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ivlev/timeline2video/internal/config"
	"github.com/ivlev/timeline2video/internal/engine"
	"github.com/ivlev/timeline2video/internal/storage"
	"github.com/ivlev/timeline2video/internal/system"
	"github.com/ivlev/timeline2video/internal/timeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		profilePath string
		musicPath   string
		effect      string
		outroURL    string
		crossfade   bool
		seed        int64
		detectHW    bool
	)

	cmd := &cobra.Command{
		Use:   "timeline2video <request.json>",
		Short: "Render a slideshow video from a timed-segment request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional; real env always wins.
			_ = godotenv.Load()

			ctx := cmd.Context()
			cfg, err := config.Load(ctx, profilePath)
			if err != nil {
				return err
			}

			logger := cfg.NewLogger()
			system.InitResourceLimits(logger)

			if detectHW && cfg.VideoCodec == "libx264" {
				if enc := system.GetBestH264Encoder(); enc != "libx264" {
					logger.Info("hardware encoder detected", "encoder", enc)
					cfg.VideoCodec = enc
				}
			}

			req, err := readRequest(args[0])
			if err != nil {
				return err
			}

			// Flag overrides on top of the request file.
			if musicPath != "" {
				req.BackgroundMusic = musicPath
			}
			if effect != "" {
				req.WeatherEffect = effect
			}
			if outroURL != "" {
				req.OutroURL = outroURL
			}
			if cmd.Flags().Changed("crossfade") {
				req.UseCrossfade = crossfade
			}

			opts := []engine.Option{}
			if seed != 0 {
				opts = append(opts, engine.WithRand(rand.New(rand.NewSource(seed))))
			} else {
				opts = append(opts, engine.WithRand(rand.New(rand.NewSource(time.Now().UnixNano()))))
			}
			if cfg.S3Enabled() {
				sink, err := storage.NewS3Sink(ctx, cfg.S3Bucket, cfg.S3Region, logger)
				if err != nil {
					return err
				}
				opts = append(opts, engine.WithSink(sink))
			}

			result := engine.New(cfg, logger, opts...).Generate(ctx, *req)

			out, _ := json.MarshalIndent(result, "", "  ")
			fmt.Println(string(out))

			if !result.Success {
				return fmt.Errorf("render failed: %s", result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "YAML render profile")
	cmd.Flags().StringVar(&musicPath, "music", "", "background music file (overrides request)")
	cmd.Flags().StringVar(&effect, "effect", "", "weather effect: rain, snow or fire (overrides request)")
	cmd.Flags().StringVar(&outroURL, "outro-url", "", "append a QR outro slide for this URL")
	cmd.Flags().BoolVar(&crossfade, "crossfade", true, "crossfade between clips")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for reproducible effect choices (0 = time-based)")
	cmd.Flags().BoolVar(&detectHW, "detect-hw-encoder", true, "probe ffmpeg for a hardware H.264 encoder")

	return cmd
}

func readRequest(path string) (*timeline.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read request file: %w", err)
	}
	var req timeline.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("parse request file %s: %w", path, err)
	}
	return &req, nil
}
