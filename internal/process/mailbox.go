package process

import "sync"

// mailboxChunkSize is the number of messages per linked-list node. Mirrors
// the teacher's ChunkedIngress sizing rationale: fixed-size arrays give
// cache locality and amortize allocation, and a sync.Pool recycles
// exhausted chunks instead of letting the GC reclaim them one at a time.
const mailboxChunkSize = 128

var mailboxChunkPool = sync.Pool{
	New: func() any { return &mailboxChunk{} },
}

type mailboxChunk struct {
	messages [mailboxChunkSize]Message
	next     *mailboxChunk
	readPos  int
	writePos int
}

func newMailboxChunk() *mailboxChunk {
	c := mailboxChunkPool.Get().(*mailboxChunk)
	c.next = nil
	c.readPos = 0
	c.writePos = 0
	return c
}

func returnMailboxChunk(c *mailboxChunk) {
	for i := 0; i < c.writePos; i++ {
		c.messages[i] = Message{}
	}
	c.next = nil
	c.readPos = 0
	c.writePos = 0
	mailboxChunkPool.Put(c)
}

// Mailbox is a process's FIFO message queue. Sends arrive from any thread
// and are serialised by mu; receives are only ever performed by the
// process's current run-lock holder, per the invariant in spec.md §3
// ("the mailbox accepts sends from any thread; receives are only
// performed by the owning process").
type Mailbox struct {
	mu     sync.Mutex
	head   *mailboxChunk
	tail   *mailboxChunk
	length int
}

// Push enqueues a message. Safe to call from any goroutine.
func (m *Mailbox) Push(msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tail == nil {
		m.tail = newMailboxChunk()
		m.head = m.tail
	}
	if m.tail.writePos == mailboxChunkSize {
		next := newMailboxChunk()
		m.tail.next = next
		m.tail = next
	}
	m.tail.messages[m.tail.writePos] = msg
	m.tail.writePos++
	m.length++
}

// Pop dequeues the oldest message, if any. Must only be called by the
// process's run-lock holder.
func (m *Mailbox) Pop() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.head == nil {
		return Message{}, false
	}
	if m.head.readPos >= m.head.writePos {
		if m.head == m.tail {
			// Sole chunk drained; reset cursors for reuse instead of
			// allocating a fresh one on the next push.
			m.head.readPos = 0
			m.head.writePos = 0
			return Message{}, false
		}
		old := m.head
		m.head = m.head.next
		returnMailboxChunk(old)
		if m.head.readPos >= m.head.writePos {
			return Message{}, false
		}
	}

	msg := m.head.messages[m.head.readPos]
	m.head.messages[m.head.readPos] = Message{}
	m.head.readPos++
	m.length--
	return msg, true
}

// Len reports the number of messages currently queued. Safe from any
// goroutine; intended for diagnostics and tests, not hot-path logic.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.length
}
