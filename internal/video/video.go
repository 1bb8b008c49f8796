// Package video hands the finished frame and audio stream to an external
// encoder. The core guarantees only the logical frame content; container
// writing and codec behavior belong to ffmpeg.
package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"

	"github.com/ivlev/timeline2video/internal/audio"
	"github.com/ivlev/timeline2video/internal/system"
)

// FrameStream is the pull-based frame source the encoder consumes. Frames
// are pulled in strictly increasing time order, exactly once each.
type FrameStream interface {
	Size() (int, int)
	FPS() int
	FrameCount() int
	Duration() float64
	Next() (*image.RGBA, bool)
}

// CodecParams are passed through to the encoder untouched.
type CodecParams struct {
	VideoCodec   string
	AudioCodec   string
	Bitrate      string
	AudioBitrate string
	Quality      int
}

// Encoder writes a frame stream plus optional audio plan to a media file.
type Encoder interface {
	Encode(ctx context.Context, stream FrameStream, plan *audio.Plan, params CodecParams, outPath string) error
}

// FFmpegEncoder streams raw RGBA frames into an ffmpeg subprocess over
// stdin, avoiding any intermediate frame files on disk.
type FFmpegEncoder struct {
	logger *slog.Logger
}

// NewFFmpegEncoder creates the default encoder.
func NewFFmpegEncoder(logger *slog.Logger) *FFmpegEncoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegEncoder{logger: logger}
}

// Encode runs ffmpeg to completion. On failure the partial output file is
// removed; a half-written container is worse than no file.
func (e *FFmpegEncoder) Encode(ctx context.Context, stream FrameStream, plan *audio.Plan, params CodecParams, outPath string) error {
	w, h := stream.Size()
	args := e.buildArgs(w, h, stream.FPS(), stream.Duration(), plan, params, outPath)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var fflog bytes.Buffer
	cmd.Stdout = &fflog
	cmd.Stderr = &fflog

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}

	e.logger.Debug("encoder started", "output", outPath, "frames", stream.FrameCount())

	writeErr := e.writeFrames(stream, stdin)
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("ffmpeg: %w\n%s", err, fflog.String())
	}
	if writeErr != nil {
		_ = os.Remove(outPath)
		return fmt.Errorf("write frames: %w", writeErr)
	}
	return nil
}

// writeFrames drains the stream into w, returning each pooled frame buffer
// after its bytes are on the pipe.
func (e *FFmpegEncoder) writeFrames(stream FrameStream, w interface{ Write([]byte) (int, error) }) error {
	for {
		frame, ok := stream.Next()
		if !ok {
			return nil
		}
		_, err := w.Write(frame.Pix)
		system.PutImage(frame)
		if err != nil {
			return err
		}
	}
}

func (e *FFmpegEncoder) buildArgs(width, height, fps int, duration float64, plan *audio.Plan, params CodecParams, outPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
	}

	if plan != nil {
		if plan.ExtraLoops > 0 {
			args = append(args, "-stream_loop", fmt.Sprintf("%d", plan.ExtraLoops))
		}
		args = append(args, "-i", plan.Path)
	}

	args = append(args, "-map", "0:v")
	if plan != nil {
		args = append(args,
			"-map", "1:a",
			"-af", plan.FilterExpr(),
			"-c:a", params.AudioCodec,
			"-b:a", params.AudioBitrate,
			"-shortest",
		)
	}

	args = append(args,
		"-t", fmt.Sprintf("%f", duration),
		"-r", fmt.Sprintf("%d", fps),
		"-pix_fmt", "yuv420p",
		"-c:v", params.VideoCodec,
	)
	args = append(args, qualityArgs(params)...)
	args = append(args, outPath)
	return args
}

// qualityArgs maps the quality knob onto the selected encoder. Hardware
// encoders take a bitrate or constant-quality value instead of CRF.
func qualityArgs(params CodecParams) []string {
	switch params.VideoCodec {
	case "h264_videotoolbox":
		return []string{"-b:v", params.Bitrate}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", params.Quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", params.Quality), "-preset", "medium"}
	}
}
