package bridge

import (
	"sync"
	"time"
)

// Reason records why the bridge is shutting down.
type Reason int32

const (
	// ReasonNone means no shutdown has been requested.
	ReasonNone Reason = iota
	// ReasonInterrupt is recorded for SIGINT.
	ReasonInterrupt
	// ReasonTerminate is recorded for SIGTERM.
	ReasonTerminate
	// ReasonSetup means the device or the listening socket could not be
	// acquired.
	ReasonSetup
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInterrupt:
		return "interrupt"
	case ReasonTerminate:
		return "terminate"
	case ReasonSetup:
		return "setup failure"
	default:
		return "unknown"
	}
}

// ExitCode maps the reason to a process exit status. An interrupt is the
// normal way to stop the service and exits successfully.
func (r Reason) ExitCode() int {
	switch r {
	case ReasonNone, ReasonInterrupt:
		return 0
	default:
		return 1
	}
}

// deadliner is a blocking endpoint whose pending calls can be failed early.
type deadliner interface {
	SetDeadline(t time.Time) error
}

// aLongTimeAgo is a deadline that has always expired.
var aLongTimeAgo = time.Unix(1, 0)

// Shutdown is a set-once stop token shared by the accept loop and the
// connection handler. Recording a reason expires the deadline of every
// watched endpoint, so a goroutine blocked in Accept or Read wakes up with an
// error and re-checks the token. Nothing is closed here; releasing resources
// is left to the goroutine that owns them.
type Shutdown struct {
	mu      sync.Mutex
	reason  Reason
	done    chan struct{}
	nextID  int
	watched map[int]deadliner
}

// NewShutdown returns a token with no reason recorded.
func NewShutdown() *Shutdown {
	return &Shutdown{
		done:    make(chan struct{}),
		watched: make(map[int]deadliner),
	}
}

// Request records r unless a reason is already set. It reports whether this
// call was the one that set it.
func (s *Shutdown) Request(r Reason) bool {
	if r == ReasonNone {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != ReasonNone {
		return false
	}
	s.reason = r
	close(s.done)
	// SetDeadline only fails on an endpoint that is already closed, and a
	// closed endpoint has nothing left to interrupt.
	for _, d := range s.watched {
		_ = d.SetDeadline(aLongTimeAgo)
	}
	return true
}

// Reason returns the recorded reason, or ReasonNone.
func (s *Shutdown) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Requested reports whether a reason has been recorded.
func (s *Shutdown) Requested() bool {
	return s.Reason() != ReasonNone
}

// Done is closed once a reason has been recorded.
func (s *Shutdown) Done() <-chan struct{} {
	return s.done
}

// watch registers d to be interrupted by Request. If a reason is already
// recorded d is interrupted immediately. The returned func unregisters d.
func (s *Shutdown) watch(d deadliner) (unwatch func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reason != ReasonNone {
		_ = d.SetDeadline(aLongTimeAgo)
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.watched[id] = d
	return func() {
		s.mu.Lock()
		delete(s.watched, id)
		s.mu.Unlock()
	}
}
