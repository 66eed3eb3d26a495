package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	frameRegex          = regexp.MustCompile(`frame=\s*(\d+)`)
	timestampErrorRegex = regexp.MustCompile(`(?i)((DTS|PTS)\s+\d+,\s+next:\d+.*invalid dropping|Non-monotonic DTS.*previous:.*current:.*changing to)`)
)

// OutputBuffer stores recent output lines for crash dump analysis
type OutputBuffer struct {
	lines    []string
	maxLines int
	index    int
	full     bool
	mutex    sync.RWMutex
}

// NewOutputBuffer creates a circular buffer for storing recent output
func NewOutputBuffer(maxLines int) *OutputBuffer {
	if maxLines < 1 {
		maxLines = 1
	}
	return &OutputBuffer{
		lines:    make([]string, maxLines),
		maxLines: maxLines,
	}
}

// Add stores a new line in the circular buffer
func (ob *OutputBuffer) Add(line string) {
	ob.mutex.Lock()
	defer ob.mutex.Unlock()

	ob.lines[ob.index] = fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05.000"), line)
	ob.index = (ob.index + 1) % ob.maxLines
	if ob.index == 0 {
		ob.full = true
	}
}

// Recent returns the buffered lines, oldest first
func (ob *OutputBuffer) Recent() []string {
	ob.mutex.RLock()
	defer ob.mutex.RUnlock()

	if !ob.full {
		out := make([]string, ob.index)
		copy(out, ob.lines[:ob.index])
		return out
	}

	out := make([]string, 0, ob.maxLines)
	for i := 0; i < ob.maxLines; i++ {
		out = append(out, ob.lines[(ob.index+i)%ob.maxLines])
	}
	return out
}

// Monitor follows ffmpeg's stderr for progress and timestamp errors.
type Monitor struct {
	logger *zap.Logger
	buffer *OutputBuffer

	mutex           sync.RWMutex
	lastOutput      time.Time
	lastFrameNumber int
	lastFrameUpdate time.Time
	timestampErrors int
	lastErrorTime   time.Time
	unhealthy       bool

	done chan struct{}
}

// NewMonitor keeps the last maxLines lines of output.
func NewMonitor(logger *zap.Logger, maxLines int) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now()
	return &Monitor{
		logger:          logger,
		buffer:          NewOutputBuffer(maxLines),
		lastOutput:      now,
		lastFrameUpdate: now,
		done:            make(chan struct{}),
	}
}

// Follow reads pipe until EOF. It is meant to run in its own goroutine;
// Wait blocks until it returns.
func (m *Monitor) Follow(pipe io.Reader) {
	defer close(m.done)

	scanner := bufio.NewScanner(pipe)
	// ffmpeg progress lines are carriage-return separated
	scanner.Split(scanLinesOrCR)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		m.buffer.Add(line)
		m.processLine(line)
		m.logger.Debug(line)
	}
	if err := scanner.Err(); err != nil {
		m.buffer.Add(fmt.Sprintf("SCANNER_ERROR: %v", err))
		m.logger.Warn("ffmpeg output scanner failed", zap.Error(err))
	}
}

// Wait blocks until Follow has drained its pipe.
func (m *Monitor) Wait() {
	<-m.done
}

func (m *Monitor) processLine(line string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	m.lastOutput = now

	if timestampErrorRegex.MatchString(line) {
		// Reset counter if it's been more than 30 seconds since last error
		if now.Sub(m.lastErrorTime) > 30*time.Second {
			m.timestampErrors = 0
		}
		m.timestampErrors++
		m.lastErrorTime = now
		m.logger.Warn("ffmpeg timestamp error", zap.Int("count", m.timestampErrors), zap.String("line", line))

		if m.timestampErrors >= 3 {
			m.unhealthy = true
			m.timestampErrors = 0
		}
	}

	if n, ok := ParseFrame(line); ok && n > m.lastFrameNumber {
		m.lastFrameNumber = n
		m.lastFrameUpdate = now
	}
}

// Progress returns the last frame number ffmpeg reported and when.
func (m *Monitor) Progress() (frame int, at time.Time) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.lastFrameNumber, m.lastFrameUpdate
}

// Healthy is false after three timestamp errors within 30 seconds.
func (m *Monitor) Healthy() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return !m.unhealthy
}

// Recent returns the buffered output lines, oldest first.
func (m *Monitor) Recent() []string {
	return m.buffer.Recent()
}

// DumpCrashInfo logs the recent output for crash analysis
func (m *Monitor) DumpCrashInfo(reason string) {
	lines := m.Recent()
	m.logger.Error("ffmpeg crash dump", zap.String("reason", reason), zap.Int("lines", len(lines)))
	for _, line := range lines {
		m.logger.Error(line)
	}
}

// ParseFrame extracts N from an ffmpeg "frame=N" progress line.
func ParseFrame(line string) (int, bool) {
	matches := frameRegex.FindStringSubmatch(line)
	if len(matches) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func scanLinesOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
