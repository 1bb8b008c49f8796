package audio

import (
	"os"
	"path/filepath"
	"testing"
)

func fixedProbe(duration float64) func(string) (float64, error) {
	return func(string) (float64, error) { return duration, nil }
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestPlanLooping(t *testing.T) {
	tests := []struct {
		name       string
		sourceDur  float64
		videoDur   float64
		wantLoops  int
	}{
		{"track longer than video", 120.0, 30.0, 0},
		{"track equal to video", 30.0, 30.0, 0},
		{"track half the video", 15.0, 30.0, 1},
		{"track much shorter", 7.0, 30.0, 4},
		{"slightly shorter", 29.5, 30.0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := touch(t, "track.mp3")
			mixer := NewMixer(0.3, nil).WithProbe(fixedProbe(tt.sourceDur))

			plan, err := mixer.Plan(path, tt.videoDur)
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}
			if plan.ExtraLoops != tt.wantLoops {
				t.Errorf("ExtraLoops = %d, want %d", plan.ExtraLoops, tt.wantLoops)
			}
			if plan.TrimSeconds != tt.videoDur {
				t.Errorf("TrimSeconds = %.2f, want %.2f", plan.TrimSeconds, tt.videoDur)
			}
			if plan.SourceSeconds != tt.sourceDur {
				t.Errorf("SourceSeconds = %.2f, want %.2f", plan.SourceSeconds, tt.sourceDur)
			}
		})
	}
}

func TestPlanVolume(t *testing.T) {
	path := touch(t, "track.mp3")
	mixer := NewMixer(0.25, nil).WithProbe(fixedProbe(60))

	plan, err := mixer.Plan(path, 30)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Volume != 0.25 {
		t.Errorf("Volume = %.2f, want 0.25", plan.Volume)
	}
	if expr := plan.FilterExpr(); expr != "volume=0.250" {
		t.Errorf("FilterExpr = %q, want volume=0.250", expr)
	}
}

func TestPlanErrors(t *testing.T) {
	mixer := NewMixer(0.3, nil).WithProbe(fixedProbe(60))

	if _, err := mixer.Plan("", 30); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := mixer.Plan(filepath.Join(t.TempDir(), "missing.mp3"), 30); err == nil {
		t.Error("expected error for missing file")
	}

	path := touch(t, "silent.mp3")
	if _, err := mixer.WithProbe(fixedProbe(0)).Plan(path, 30); err == nil {
		t.Error("expected error for zero-duration track")
	}
}
