package ffmpeg

import (
	"image"
	"reflect"
	"strings"
	"testing"
	"time"
)

// TestOutputBufferWraps verifies the buffer keeps the newest lines in order.
func TestOutputBufferWraps(t *testing.T) {
	ob := NewOutputBuffer(3)
	if got := ob.Recent(); len(got) != 0 {
		t.Fatalf("Expected no lines, got %v", got)
	}

	for _, l := range []string{"a", "b", "c", "d", "e"} {
		ob.Add(l)
	}
	got := ob.Recent()
	if len(got) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(got))
	}
	for i, want := range []string{"c", "d", "e"} {
		if !strings.HasSuffix(got[i], "] "+want) {
			t.Errorf("Line %d: expected suffix %q, got %q", i, want, got[i])
		}
	}
}

// TestParseFrame verifies progress line parsing.
func TestParseFrame(t *testing.T) {
	tests := []struct {
		line string
		want int
		ok   bool
	}{
		{"frame=  120 fps= 30 q=28.0 size=     512kB", 120, true},
		{"frame=7", 7, true},
		{"Input #0, rawvideo, from 'pipe:':", 0, false},
	}
	for _, tt := range tests {
		n, ok := ParseFrame(tt.line)
		if n != tt.want || ok != tt.ok {
			t.Errorf("%q: expected %d/%v, got %d/%v", tt.line, tt.want, tt.ok, n, ok)
		}
	}
}

// TestMonitorFollow verifies progress tracking across CR-separated lines.
func TestMonitorFollow(t *testing.T) {
	m := NewMonitor(nil, 10)
	start := time.Now()
	go m.Follow(strings.NewReader("Stream mapping:\nframe=   10 fps=0\rframe=   25 fps=25\rframe=   20\n"))
	m.Wait()

	frame, at := m.Progress()
	if frame != 25 {
		t.Errorf("Expected frame 25, got %d", frame)
	}
	if at.Before(start) {
		t.Error("Expected progress time to be updated")
	}
	if n := len(m.Recent()); n != 4 {
		t.Errorf("Expected 4 buffered lines, got %d", n)
	}
	if !m.Healthy() {
		t.Error("Expected monitor to be healthy")
	}
}

// TestMonitorTimestampErrors verifies repeated timestamp errors mark it unhealthy.
func TestMonitorTimestampErrors(t *testing.T) {
	m := NewMonitor(nil, 10)
	line := "Non-monotonic DTS; previous: 10, current: 9; changing to 11"
	go m.Follow(strings.NewReader(strings.Repeat(line+"\n", 3)))
	m.Wait()

	if m.Healthy() {
		t.Error("Expected monitor to be unhealthy")
	}
}

// TestBuildArgs verifies the raw input is declared before encoder args.
func TestBuildArgs(t *testing.T) {
	args := BuildArgs(Options{
		Args:   []string{"-c:v", "libx264"},
		Output: "rtmp://example/live",
		FPS:    29.97,
		Size:   image.Pt(640, 480),
	})

	want := []string{
		"-hide_banner", "-loglevel", "info", "-y",
		"-f", "rawvideo", "-pix_fmt", "bgr24", "-s", "640x480", "-r", "29.97", "-i", "-",
		"-c:v", "libx264", "-f", "flv", "rtmp://example/live",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("Expected %v, got %v", want, args)
	}
}

// TestNewSinkValidates verifies bad options fail before starting a process.
func TestNewSinkValidates(t *testing.T) {
	if _, err := NewSink(Options{Size: image.Pt(10, 10)}, nil); err == nil {
		t.Error("Expected error for empty output")
	}
	if _, err := NewSink(Options{Output: "out.mp4"}, nil); err == nil {
		t.Error("Expected error for zero size")
	}
	if _, err := NewSink(Options{Binary: "/nonexistent/ffmpeg", Output: "out.mp4", Size: image.Pt(2, 2)}, nil); err == nil {
		t.Error("Expected error for missing binary")
	}
}
