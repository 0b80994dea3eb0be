package pipeline

import "sync"

// mailbox is an unbounded FIFO between a publisher that must never block and
// a consumer reading from out.
type mailbox[T any] struct {
	mu    sync.Mutex
	queue []T
	wake  chan struct{}
	out   chan T
	quit  chan struct{}
	once  sync.Once
}

func newMailbox[T any]() *mailbox[T] {
	m := &mailbox[T]{
		wake: make(chan struct{}, 1),
		out:  make(chan T),
		quit: make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *mailbox[T]) put(v T) {
	m.mu.Lock()
	m.queue = append(m.queue, v)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox[T]) run() {
	defer close(m.out)

	var zero T
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			select {
			case <-m.wake:
				continue
			case <-m.quit:
				return
			}
		}
		v := m.queue[0]
		m.queue[0] = zero
		m.queue = m.queue[1:]
		m.mu.Unlock()

		select {
		case m.out <- v:
		case <-m.quit:
			return
		}
	}
}

func (m *mailbox[T]) close() {
	m.once.Do(func() { close(m.quit) })
}

// StatusSubscription observes the latest pipeline status. Intermediate
// values may be skipped when the reader is slow; the newest is never lost.
type StatusSubscription struct {
	p  *Pipeline
	ch chan Status
}

// C returns the status channel. It is closed by Close.
func (s *StatusSubscription) C() <-chan Status {
	return s.ch
}

// Close ends the subscription. Safe to call more than once.
func (s *StatusSubscription) Close() {
	s.p.mu.Lock()
	defer s.p.mu.Unlock()
	if _, ok := s.p.statusSubs[s]; ok {
		delete(s.p.statusSubs, s)
		close(s.ch)
	}
}

// offer replaces any unread status with st. Callers hold p.mu, so there is
// a single writer and the loop ends after at most one drain.
func (s *StatusSubscription) offer(st Status) {
	for {
		select {
		case s.ch <- st:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// RecordSubscription observes the record output: a replay of the current
// records followed by every later change, in order.
type RecordSubscription struct {
	p   *Pipeline
	box *mailbox[Change]
}

// C returns the change channel. It is closed after Close.
func (s *RecordSubscription) C() <-chan Change {
	return s.box.out
}

// Close ends the subscription. Safe to call more than once.
func (s *RecordSubscription) Close() {
	s.p.mu.Lock()
	delete(s.p.recordSubs, s)
	s.p.mu.Unlock()
	s.box.close()
}

// SubscribeStatus returns a subscription that immediately holds the current
// status.
func (p *Pipeline) SubscribeStatus() *StatusSubscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &StatusSubscription{p: p, ch: make(chan Status, 1)}
	sub.ch <- p.statusLocked()
	p.statusSubs[sub] = struct{}{}
	return sub
}

// SubscribeRecords returns a subscription that first replays the current
// records as RecordAdded changes.
func (p *Pipeline) SubscribeRecords() *RecordSubscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &RecordSubscription{p: p, box: newMailbox[Change]()}
	for _, rec := range p.records {
		sub.box.put(Change{Kind: RecordAdded, Record: rec, Generation: p.gen})
	}
	p.recordSubs[sub] = struct{}{}
	return sub
}

func (p *Pipeline) publishStatusLocked() {
	st := p.statusLocked()
	for sub := range p.statusSubs {
		sub.offer(st)
	}
}

func (p *Pipeline) publishChangeLocked(c Change) {
	for sub := range p.recordSubs {
		sub.box.put(c)
	}
}
