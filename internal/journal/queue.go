package journal

import "sync"

// entryQueue is a thread-safe FIFO of entries waiting to be persisted.
//
// The queue is unbounded so a recorder, which runs inside channel delivery,
// never blocks the dialing sequence on disk I/O.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Writer's Run loop.
type entryQueue struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
	signal  chan struct{} // Signals entry availability (buffered, size 1)
}

func newEntryQueue() *entryQueue {
	return &entryQueue{
		entries: make([]Entry, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds an entry to the back of the queue.
// Returns false if the queue is closed.
func (q *entryQueue) Enqueue(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.entries = append(q.entries, e)

	// Non-blocking: a buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front entry without blocking.
func (q *entryQueue) TryDequeue() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Entry{}, false
	}

	e := q.entries[0]
	q.entries[0] = Entry{}
	if len(q.entries) == 1 {
		q.entries = q.entries[:0]
	} else {
		q.entries = q.entries[1:]
	}
	return e, true
}

// Wait returns a channel that signals when entries may be available. It is
// closed once the queue is closed.
func (q *entryQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *entryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close signals that no more entries will be enqueued and wakes the
// waiter.
func (q *entryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
