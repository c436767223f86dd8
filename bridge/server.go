package bridge

import (
	"errors"
	"io"
	"net"
	"time"
)

type outcome int

const (
	outcomeContinue outcome = iota
	outcomeStop
)

const (
	acceptRetryMin = 5 * time.Millisecond
	acceptRetryMax = time.Second
)

// acceptLoop admits one client at a time and serves it to completion before
// accepting the next. It only returns once shutdown has been requested, after
// closing the listener.
func (s *Service) acceptLoop(ln net.Listener) outcome {
	if d, ok := ln.(deadliner); ok {
		unwatch := s.stop.watch(d)
		defer unwatch()
	}

	var retry time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.stop.Requested() {
				s.log.Info().Stringer("reason", s.stop.Reason()).Msg("accept interrupted, stopping")
				s.closeListener()
				return outcomeStop
			}

			if retry == 0 {
				retry = acceptRetryMin
			} else {
				retry = min(retry*2, acceptRetryMax)
			}
			s.log.Error().Err(err).Dur("retry", retry).Msg("refused pending connection, unable to accept")

			select {
			case <-s.stop.Done():
			case <-time.After(retry):
			}
			continue
		}
		retry = 0

		if s.handle(conn) == outcomeStop {
			s.closeListener()
			return outcomeStop
		}
	}
}

// handle relays client frames to the device until the client goes away or
// shutdown interrupts the read.
func (s *Service) handle(conn net.Conn) outcome {
	s.client.acquire(conn)
	unwatch := s.stop.watch(conn)
	defer unwatch()

	log := s.log.With().Str("peer", peerAddr(conn)).Logger()
	log.Info().Msg("new connection with client")

	s.conn.attach(conn)

	frame := make([]byte, FrameSize)
	for {
		_, err := io.ReadFull(conn, frame)
		if err == nil {
			log.Debug().Hex("frame", frame).Msg("ingress")
			if err := s.dev.Send(frame); err != nil {
				log.Warn().Err(err).Msg("unable to forward frame to serial port")
			}
			continue
		}

		if errors.Is(err, io.EOF) {
			log.Info().Msg("client disconnected")
			break
		}
		if s.stop.Requested() {
			log.Info().Stringer("reason", s.stop.Reason()).Msg("read interrupted, closing client")
			s.conn.detach()
			s.closeClient()
			return outcomeStop
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Warn().Msg("client disconnected mid-frame")
		} else {
			log.Error().Err(err).Msg("reading from client")
		}
		break
	}

	s.conn.detach()
	s.closeClient()
	return outcomeContinue
}

func peerAddr(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return "unknown"
	}
	if tcp, ok := addr.(*net.TCPAddr); ok && tcp.IP != nil {
		return tcp.IP.String()
	}
	return addr.String()
}
