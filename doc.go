// Package serial provides a minimal, Linux-only serial port used as the
// frame channel of the serial bridge service.
//
// The port is opened in raw mode and kept non-blocking, so a poller can
// sample it on a fixed interval without ever stalling:
//
//   - Receive returns ErrNoData when nothing is queued and io.EOF when the
//     device went away (hangup, unplugged adapter, closed pty master)
//   - Send writes a whole buffer, waiting a bounded time for room
//   - Close is idempotent and wakes a Send blocked on a full output queue
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:   serial.DevicePath(0),
//	    BaudRate: 115200,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	buf := make([]byte, 12)
//	n, err := port.Receive(buf)
//	switch {
//	case errors.Is(err, serial.ErrNoData):
//	    // try again later
//	case errors.Is(err, io.EOF):
//	    // device closed
//	case err == nil:
//	    fmt.Printf("received % x\n", buf[:n])
//	}
//
// The bridge service built on top of it lives in the bridge package and is
// started by cmd/serialbridge.
package serial
