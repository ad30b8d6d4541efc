package conversation

import (
	"sync"

	"github.com/ashureev/solace/internal/domain"
)

// SummaryWindow is how many recent messages feed the rolling summary.
const SummaryWindow = 10

// Window is a fixed-size ring of the most recent persisted messages.
// When full, pushing overwrites the oldest entry.
type Window struct {
	buf  []domain.Message
	size int
	head int // next write position
	full bool
	mu   sync.RWMutex
}

// NewWindow creates a ring holding at most size messages.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = SummaryWindow
	}
	return &Window{
		buf:  make([]domain.Message, size),
		size: size,
	}
}

// Push appends msg, dropping the oldest message when the ring is full.
func (w *Window) Push(msg domain.Message) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf[w.head] = msg
	w.head = (w.head + 1) % w.size
	if w.head == 0 {
		w.full = true
	}
}

// Messages returns the buffered messages, oldest first.
func (w *Window) Messages() []domain.Message {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.full {
		out := make([]domain.Message, w.head)
		copy(out, w.buf[:w.head])
		return out
	}

	// Wrap-around: head -> end + start -> head
	out := make([]domain.Message, 0, w.size)
	out = append(out, w.buf[w.head:]...)
	return append(out, w.buf[:w.head]...)
}

// Len returns the number of buffered messages.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.full {
		return w.size
	}
	return w.head
}

// Reset empties the ring.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	clear(w.buf)
	w.head = 0
	w.full = false
}

// Capacity returns the maximum number of messages held.
func (w *Window) Capacity() int {
	return w.size
}
