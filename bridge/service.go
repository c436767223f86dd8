package bridge

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// Service bridges one serial device to one TCP client.
//
// Run owns two goroutines: the calling one runs the accept loop and the
// connection handler, a second one runs the Poller. Both consult the same
// Shutdown token; only the first ever tears anything down.
type Service struct {
	cfg  Config
	log  zerolog.Logger
	stop *Shutdown

	dev  Device
	conn Connection

	device   resource
	client   resource
	listener resource

	ready      chan struct{}
	addr       net.Addr
	pollerDone chan struct{}
}

// New returns a Service for cfg. A nil cfg.OpenDevice opens cfg.Device as a
// serial port.
func New(cfg Config, log zerolog.Logger) *Service {
	if cfg.OpenDevice == nil {
		cfg.OpenDevice = openSerial
	}
	return &Service{
		cfg:        cfg,
		log:        log,
		device:     resource{name: "serial port"},
		client:     resource{name: "client socket"},
		listener:   resource{name: "listening socket"},
		ready:      make(chan struct{}),
		pollerDone: make(chan struct{}),
	}
}

// Ready is closed once the device is open, the socket is listening and the
// poller is running.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listening address. It is valid after Ready is closed.
func (s *Service) Addr() net.Addr {
	return s.addr
}

// Attached reports whether a client is currently attached.
func (s *Service) Attached() bool {
	return s.conn.Attached()
}

// Run serves until sd records a reason, then tears down and returns. A setup
// failure returns immediately with ReasonSetup and an error wrapping ErrSetup.
func (s *Service) Run(sd *Shutdown) Result {
	s.stop = sd
	s.log.Info().Str("device", s.cfg.Device).Int("baud", s.cfg.BaudRate).
		Str("addr", s.cfg.Addr).Msg("serial service starting")

	if err := s.cfg.Validate(); err != nil {
		s.log.Error().Err(err).Msg("invalid configuration")
		return s.exit(ReasonSetup, fmt.Errorf("%w: %w", ErrSetup, err))
	}

	dev, err := s.cfg.OpenDevice(s.cfg)
	if err != nil {
		s.log.Error().Err(err).Str("device", s.cfg.Device).Msg("unable to open serial port")
		return s.exit(ReasonSetup, fmt.Errorf("%w: open device: %w", ErrSetup, err))
	}
	s.dev = &lockedDevice{dev: dev}
	s.device.acquire(s.dev)
	if named, ok := dev.(interface{ Name() string }); ok {
		s.log.Info().Str("device", named.Name()).Msg("serial port opened")
	}

	if isPrivilegedPort(s.cfg.Addr) && !hasBindCapability() {
		s.log.Warn().Str("addr", s.cfg.Addr).
			Msg("CAP_NET_BIND_SERVICE is required to bind privileged (<1024) ports")
	}

	ln, err := listenTCP(s.cfg.Addr, ListenBacklog)
	if err != nil {
		s.log.Error().Err(err).Str("addr", s.cfg.Addr).Msg("unable to listen")
		return s.exit(ReasonSetup, fmt.Errorf("%w: %w", ErrSetup, err))
	}
	s.listener.acquire(ln)
	s.addr = ln.Addr()
	s.log.Info().Stringer("addr", s.addr).Int("backlog", ListenBacklog).Msg("tcp server listening")

	var ann *announcer
	if s.cfg.MDNS {
		ann = announce(s.addr, s.cfg.Device, s.log)
	}

	poller := NewPoller(s.dev, &s.conn, s.cfg.PollInterval, s.log)
	stopPoller := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(s.pollerDone)
		if err := poller.Run(stopPoller); errors.Is(err, ErrDeviceClosed) {
			s.log.Warn().Msg("poller exited, device frames will not reach clients until restart")
		}
	}()
	close(s.ready)

	s.acceptLoop(ln)

	close(stopPoller)
	wg.Wait()
	ann.Shutdown()

	return s.exit(s.stop.Reason(), nil)
}
