// Package system contains process-level preflight and ffmpeg probing
// helpers shared by the render pipeline.
package system

import (
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open-file limit. Segment rendering keeps
// several decoded frames and ffmpeg pipes open at once.
func InitResourceLimits(logger *slog.Logger) {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("could not read file descriptor limit", "error", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("could not raise file descriptor limit", "error", err)
	} else {
		logger.Debug("file descriptor limit raised", "limit", rLimit.Cur)
	}
}

// CheckAvailableMemory warns when free memory is below what a render at the
// given resolution is likely to need. A 1080p RGBA frame is ~8 MB; the
// pipeline holds a small fixed number of them, but the encoder subprocess
// buffers more.
func CheckAvailableMemory(logger *slog.Logger, width, height int) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		logger.Debug("memory stats unavailable", "error", err)
		return
	}

	frameBytes := uint64(width) * uint64(height) * 4
	needed := frameBytes * 64
	if vm.Available < needed {
		logger.Warn("low available memory for render",
			"available_mb", vm.Available/1024/1024,
			"recommended_mb", needed/1024/1024)
	}
}

// GetBestH264Encoder probes the local ffmpeg build for hardware H.264
// encoders, preferring VideoToolbox, then NVENC, falling back to libx264.
func GetBestH264Encoder() string {
	candidates := []string{"h264_videotoolbox", "h264_nvenc"}

	cmd := exec.Command("ffmpeg", "-encoders")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "libx264"
	}

	for _, name := range candidates {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}

// GetAudioDuration returns the duration of an audio file in seconds via
// ffprobe.
func GetAudioDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var duration float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration); err != nil {
		return 0, fmt.Errorf("ffprobe %s: parse duration: %w", path, err)
	}
	return duration, nil
}
