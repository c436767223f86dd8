package bridge

import (
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

// ErrDeviceClosed is returned by Poller.Run when the device goes away.
var ErrDeviceClosed = errors.New("bridge: serial device closed")

// Poller samples the device once per interval and forwards each complete
// frame to the attached client. Frames read while no client is attached are
// dropped.
type Poller struct {
	dev      Device
	conn     *Connection
	interval time.Duration
	log      zerolog.Logger

	frame [FrameSize]byte
	fill  int
}

// NewPoller returns a Poller reading dev every interval and writing to the
// client attached to conn.
func NewPoller(dev Device, conn *Connection, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		dev:      dev,
		conn:     conn,
		interval: interval,
		log:      log.With().Str("component", "poller").Logger(),
	}
}

// Run polls until stop is closed (returns nil) or the device is closed
// (returns ErrDeviceClosed). stop is checked once per iteration, while
// waiting for the next poll.
func (p *Poller) Run(stop <-chan struct{}) error {
	p.log.Info().Dur("interval", p.interval).Msg("serial port polling")

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-timer.C:
		}

		if err := p.poll(); err != nil {
			return err
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) poll() error {
	n, err := p.dev.Receive(p.frame[p.fill:])
	switch {
	case errors.Is(err, serial.ErrNoData):
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, serial.ErrClosed), err == nil && n == 0:
		if p.fill > 0 {
			p.log.Warn().Hex("partial", p.frame[:p.fill]).Msg("dropping incomplete frame")
		}
		p.log.Warn().Msg("serial port closed")
		return ErrDeviceClosed
	case err != nil:
		p.log.Error().Err(err).Msg("serial receive failed")
		return nil
	}

	p.fill += n
	if p.fill < FrameSize {
		p.log.Debug().Int("have", p.fill).Int("want", FrameSize).Msg("partial frame buffered")
		return nil
	}
	p.fill = 0
	p.forward(p.frame[:])
	return nil
}

func (p *Poller) forward(frame []byte) {
	p.log.Debug().Hex("frame", frame).Msg("egress")

	conn, attached := p.conn.snapshot()
	if !attached {
		p.log.Debug().Msg("no client attached, frame discarded")
		return
	}
	if _, err := conn.Write(frame); err != nil {
		p.log.Warn().Err(err).Msg("unable to send frame to client")
	}
}
