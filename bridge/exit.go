package bridge

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrSetup wraps failures to acquire the device or the listening socket.
var ErrSetup = errors.New("bridge: setup failed")

// Result is the outcome of Service.Run.
type Result struct {
	Reason Reason
	// Err joins the setup failure, if any, with every close that failed
	// during teardown.
	Err error
}

// ExitCode is the process status for the result. Teardown errors are
// reported through Err and do not change it.
func (r Result) ExitCode() int {
	return r.Reason.ExitCode()
}

// resource is a handle the bridge may or may not have acquired. A nil
// closer means not open; release closes at most once.
type resource struct {
	name string
	c    io.Closer
}

func (r *resource) acquire(c io.Closer) {
	r.c = c
}

func (r *resource) isOpen() bool {
	return r.c != nil
}

func (r *resource) release() error {
	if r.c == nil {
		return nil
	}
	c := r.c
	r.c = nil
	return c.Close()
}

func (s *Service) closeClient() {
	if err := s.client.release(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Warn().Err(err).Msg("unable to close client socket")
	}
}

func (s *Service) closeListener() {
	if err := s.listener.release(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Warn().Err(err).Msg("unable to close listening socket")
	}
}

// exit releases whatever is still open, in order device, client socket,
// listening socket, and builds the result. It keeps going past failures.
func (s *Service) exit(reason Reason, cause error) Result {
	errs := []error{cause}
	for _, r := range []*resource{&s.device, &s.client, &s.listener} {
		if !r.isOpen() {
			continue
		}
		if err := r.release(); err != nil {
			s.log.Error().Err(err).Str("resource", r.name).Msg("close failed")
			errs = append(errs, fmt.Errorf("close %s: %w", r.name, err))
			continue
		}
		s.log.Info().Str("resource", r.name).Msg("closed")
	}

	res := Result{Reason: reason, Err: errors.Join(errs...)}
	s.log.Info().Stringer("reason", reason).Int("status", res.ExitCode()).Msg("serial service exit")
	return res
}
