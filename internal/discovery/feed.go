package discovery

import (
	"sync"
)

// Feed holds the activation bookkeeping every Stream implementation shares:
// one live Session at a time, idempotent teardown, a terminal failure, and a
// delivery channel that is closed only after every in-flight send has
// finished.
//
// Backends call Begin from Activate, deliver through the returned Session,
// and call End from Deactivate.
type Feed struct {
	mu  sync.Mutex
	cur *Session

	// lifecycle orders hardware start/stop across sessions so a late stop of
	// an old session can never cancel a newer one.
	lifecycle sync.Mutex
}

// Session is a single activation of a Feed.
type Session struct {
	feed  *Feed
	out   chan Result
	done  chan struct{}
	stop  func()
	sends sync.WaitGroup

	failing bool
	ended   bool
}

// Begin opens a new session. start runs while the session is being opened
// and may launch producers; if it fails the session is ended and the error is
// returned as a *FailedError. stop runs exactly once when the session ends.
func (f *Feed) Begin(start func(*Session) error, stop func()) (*Session, error) {
	f.lifecycle.Lock()
	defer f.lifecycle.Unlock()

	f.mu.Lock()
	if f.cur != nil {
		f.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	s := &Session{
		feed: f,
		out:  make(chan Result),
		done: make(chan struct{}),
		stop: stop,
	}
	f.cur = s
	f.mu.Unlock()

	if start != nil {
		if err := start(s); err != nil {
			s.markEnded()
			s.finish()
			return nil, AsFailure(err)
		}
	}

	return s, nil
}

// Current returns the live session, or nil.
func (f *Feed) Current() *Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

// Active reports whether a session is live.
func (f *Feed) Active() bool {
	return f.Current() != nil
}

// End ends the live session, if any, without a failure.
func (f *Feed) End() {
	if s := f.Current(); s != nil {
		s.End()
	}
}

// Results returns the session's delivery channel.
func (s *Session) Results() <-chan Result {
	return s.out
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Emit delivers ev to the consumer. It blocks until the consumer receives it
// or the session ends, and reports whether the event was delivered.
func (s *Session) Emit(ev Event) bool {
	return s.deliver(Result{Event: ev}, false)
}

// Fail delivers err as the terminal result and ends the session. Later
// Emit and Fail calls are ignored.
func (s *Session) Fail(err error) {
	if err == nil {
		err = Failure("unknown failure", nil)
	}
	s.deliver(Result{Err: AsFailure(err)}, true)
	s.End()
}

// End ends the session: producers are released, stop runs once, and the
// delivery channel is closed after in-flight sends drain.
func (s *Session) End() {
	s.feed.lifecycle.Lock()
	defer s.feed.lifecycle.Unlock()

	if !s.markEnded() {
		return
	}
	if s.stop != nil {
		s.stop()
	}
	s.finish()
}

func (s *Session) deliver(r Result, terminal bool) bool {
	f := s.feed
	f.mu.Lock()
	if s.ended || s.failing {
		f.mu.Unlock()
		return false
	}
	if terminal {
		s.failing = true
	}
	s.sends.Add(1)
	f.mu.Unlock()
	defer s.sends.Done()

	select {
	case s.out <- r:
		return true
	case <-s.done:
		return false
	}
}

// markEnded flips the session to ended and releases blocked senders. It
// returns false if the session had already ended.
func (s *Session) markEnded() bool {
	f := s.feed
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ended {
		return false
	}
	s.ended = true
	if f.cur == s {
		f.cur = nil
	}
	close(s.done)
	return true
}

func (s *Session) finish() {
	go func() {
		s.sends.Wait()
		close(s.out)
	}()
}
