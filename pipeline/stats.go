package pipeline

import (
	"sync"
	"time"
)

// Stats is a mutex-guarded set of pipeline counters. Durations are averaged
// over the window since the last Reset.
type Stats struct {
	mu sync.Mutex

	framesRead      int64
	framesAnnotated int64
	framesWritten   int64
	framesSkipped   int64
	detectFailures  int64
	logoSkips       int64
	unknownLabels   int64
	snapshots       int64

	detectTimeTotal   time.Duration
	annotateTimeTotal time.Duration
	writeTimeTotal    time.Duration
	detectCount       int64
	annotateCount     int64
	writeCount        int64
	windowStart       time.Time
	windowFrames      int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	FramesRead      int64         `json:"frames_read"`
	FramesAnnotated int64         `json:"frames_annotated"`
	FramesWritten   int64         `json:"frames_written"`
	FramesSkipped   int64         `json:"frames_skipped"`
	DetectFailures  int64         `json:"detect_failures"`
	LogoSkips       int64         `json:"logo_skips"`
	UnknownLabels   int64         `json:"unknown_labels"`
	Snapshots       int64         `json:"snapshots"`
	AvgDetect       time.Duration `json:"avg_detect_ns"`
	AvgAnnotate     time.Duration `json:"avg_annotate_ns"`
	AvgWrite        time.Duration `json:"avg_write_ns"`
	ProcessFPS      float64       `json:"process_fps"`
}

// NewStats creates a new pipeline statistics tracker
func NewStats() *Stats {
	return &Stats{windowStart: time.Now()}
}

func (s *Stats) UpdateRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesRead++
}

func (s *Stats) UpdateDetect(d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectTimeTotal += d
	s.detectCount++
	if failed {
		s.detectFailures++
	}
}

func (s *Stats) UpdateAnnotate(d time.Duration, unknown int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesAnnotated++
	s.annotateTimeTotal += d
	s.annotateCount++
	s.unknownLabels += int64(unknown)
}

func (s *Stats) UpdateWrite(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesWritten++
	s.writeTimeTotal += d
	s.writeCount++
	s.windowFrames++
}

// SetSkipped records the number of unusable frames the source dropped.
func (s *Stats) SetSkipped(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.framesSkipped = n
}

func (s *Stats) UpdateLogoSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoSkips++
}

func (s *Stats) UpdateSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots++
}

// Snapshot returns a copy of the counters and the averages of the current
// window.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		FramesRead:      s.framesRead,
		FramesAnnotated: s.framesAnnotated,
		FramesWritten:   s.framesWritten,
		FramesSkipped:   s.framesSkipped,
		DetectFailures:  s.detectFailures,
		LogoSkips:       s.logoSkips,
		UnknownLabels:   s.unknownLabels,
		Snapshots:       s.snapshots,
	}
	if s.detectCount > 0 {
		snap.AvgDetect = s.detectTimeTotal / time.Duration(s.detectCount)
	}
	if s.annotateCount > 0 {
		snap.AvgAnnotate = s.annotateTimeTotal / time.Duration(s.annotateCount)
	}
	if s.writeCount > 0 {
		snap.AvgWrite = s.writeTimeTotal / time.Duration(s.writeCount)
	}
	if window := time.Since(s.windowStart).Seconds(); window > 0 {
		snap.ProcessFPS = float64(s.windowFrames) / window
	}
	return snap
}

// Reset clears the timing window but keeps the running totals.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detectTimeTotal = 0
	s.annotateTimeTotal = 0
	s.writeTimeTotal = 0
	s.detectCount = 0
	s.annotateCount = 0
	s.writeCount = 0
	s.windowFrames = 0
	s.windowStart = time.Now()
}
