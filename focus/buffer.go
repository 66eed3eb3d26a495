package focus

import (
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// DefaultCapacity is the number of recent frames kept for snapshots.
const DefaultCapacity = 50

// ErrEmptyBuffer is returned by Sharpest before any frame was pushed.
var ErrEmptyBuffer = errors.New("frame buffer is empty")

// FrameBuffer keeps clones of the most recent frames. It is safe for use by
// the frame pump and snapshot requests at the same time.
type FrameBuffer struct {
	mu   sync.Mutex
	ring *Ring[gocv.Mat]
}

func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &FrameBuffer{ring: NewRing[gocv.Mat](capacity)}
}

// Push stores a clone of frame; the caller keeps ownership of frame.
func (b *FrameBuffer) Push(frame gocv.Mat) {
	clone := frame.Clone()

	b.mu.Lock()
	evicted, ok := b.ring.Push(clone)
	b.mu.Unlock()

	if ok {
		evicted.Close()
	}
}

// Sharpest returns a clone of the best-focused buffered frame, which the
// caller must Close, along with its score.
func (b *FrameBuffer) Sharpest() (gocv.Mat, float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	best, _, score, ok := Sharpest(b.ring, Score)
	if !ok {
		return gocv.NewMat(), 0, ErrEmptyBuffer
	}
	return best.Clone(), score, nil
}

func (b *FrameBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ring.Len()
}

func (b *FrameBuffer) Cap() int {
	return b.ring.Cap()
}

// Close releases every buffered frame.
func (b *FrameBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ring.Clear(func(m gocv.Mat) { m.Close() })
}
