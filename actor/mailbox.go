package actor

import "sync"

// Mailbox is a bounded circular buffer of message envelopes guarded by one
// mutex and two condition variables. Producers block on notFull while the
// mailbox is full and open; consumers block on notEmpty while it is empty
// and open. Every waiter re-checks its predicate after waking, so spurious
// wakeups and lost signals are harmless. Close broadcast-wakes all waiters;
// a send blocked across Close fails explicitly instead of vanishing.
type Mailbox struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf      []*Message
	head     int
	tail     int
	count    int
	capacity int

	closed bool
}

// NewMailbox creates a mailbox with the given fixed capacity.
func NewMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = DefaultConfig().MailboxSize
	}
	m := &Mailbox{
		buf:      make([]*Message, capacity),
		capacity: capacity,
	}
	m.notEmpty = sync.NewCond(&m.mu)
	m.notFull = sync.NewCond(&m.mu)
	return m
}

// Put enqueues a message, blocking while the mailbox is full. It returns
// false when the mailbox is closed, including when it is closed while the
// caller is blocked.
func (m *Mailbox) Put(msg *Message) bool {
	if msg == nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for m.count == m.capacity && !m.closed {
		m.notFull.Wait()
	}
	if m.closed {
		return false
	}

	m.buf[m.tail] = msg
	m.tail = (m.tail + 1) % m.capacity
	m.count++

	m.notEmpty.Signal()
	return true
}

// Get dequeues a message, blocking while the mailbox is empty. It returns
// false when the mailbox is closed and drained.
func (m *Mailbox) Get() (*Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.count == 0 && !m.closed {
		m.notEmpty.Wait()
	}
	if m.count == 0 {
		return nil, false
	}
	return m.takeLocked(), true
}

// TryGet dequeues a message without blocking. It returns false when the
// mailbox is empty.
func (m *Mailbox) TryGet() (*Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count == 0 {
		return nil, false
	}
	return m.takeLocked(), true
}

func (m *Mailbox) takeLocked() *Message {
	msg := m.buf[m.head]
	m.buf[m.head] = nil
	m.head = (m.head + 1) % m.capacity
	m.count--

	m.notFull.Signal()
	return msg
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Cap returns the fixed capacity.
func (m *Mailbox) Cap() int {
	return m.capacity
}

// IsEmpty reports whether the mailbox has no queued messages.
func (m *Mailbox) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count == 0
}

// Close marks the mailbox closed and wakes every blocked producer and
// consumer. Queued messages remain readable through TryGet.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.notEmpty.Broadcast()
	m.notFull.Broadcast()
}

// Drain discards every queued message. Payloads are sender-owned and are
// left untouched.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.count
	for m.count > 0 {
		m.buf[m.head] = nil
		m.head = (m.head + 1) % m.capacity
		m.count--
	}
	m.notFull.Broadcast()
	return n
}
