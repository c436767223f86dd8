package bridge

import (
	"sync"

	serial "github.com/luhtfiimanal/go-serial-bridge"
)

// Device is the frame channel the bridge relays to and from.
//
// Receive must not block: it returns serial.ErrNoData when nothing is queued
// and io.EOF once the device has been closed externally. Close is called at
// most once per successful open.
type Device interface {
	Receive(p []byte) (int, error)
	Send(p []byte) error
	Close() error
}

var _ Device = (*serial.Port)(nil)

func openSerial(cfg Config) (Device, error) {
	return serial.Open(serial.Config{
		Device:   cfg.Device,
		BaudRate: cfg.BaudRate,
	})
}

// lockedDevice serializes the poller's receives with the handler's sends.
type lockedDevice struct {
	mu  sync.Mutex
	dev Device
}

func (d *lockedDevice) Receive(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.Receive(p)
}

func (d *lockedDevice) Send(p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.Send(p)
}

func (d *lockedDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dev.Close()
}
