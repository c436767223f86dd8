package serial

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrNoData is returned by Receive when the device has nothing to read right now.
	ErrNoData = errors.New("serial: no data available")
	// ErrClosed is returned by operations on a Port that has been closed.
	ErrClosed = errors.New("serial: port closed")
)

// DefaultWriteTimeout bounds how long Send waits for the device to accept output.
const DefaultWriteTimeout = time.Second

// Port provides non-blocking, frame-oriented access to a Linux serial port.
// It is safe for concurrent use by multiple goroutines.
type Port struct {
	fd        int
	done      chan struct{}
	closeOnce sync.Once
	config    Config
	pipeR     int // self-pipe read fd
	pipeW     int // self-pipe write fd
}

// Config holds configuration parameters for opening a serial port.
type Config struct {
	Device       string
	BaudRate     int
	WriteTimeout time.Duration // default DefaultWriteTimeout
}

// DevicePath returns the device node for a USB serial adapter index.
func DevicePath(index int) string {
	return fmt.Sprintf("/dev/ttyUSB%d", index)
}

// Open opens a serial port using the provided Config and returns a Port.
// The port is configured for raw, unbuffered operation and stays in
// non-blocking mode so Receive never waits for data.
func Open(cfg Config) (*Port, error) {
	baud, err := baudToUnix(cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}

	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("get termios: %w", err)
	}

	// Raw mode
	termios.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	termios.Oflag &^= unix.OPOST
	termios.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	termios.Cflag &^= unix.CSIZE | unix.PARENB
	termios.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	termios.Cflag &^= unix.CBAUD
	termios.Cflag |= baud
	termios.Ispeed = baud
	termios.Ospeed = baud

	// Reads return whatever is queued, including nothing.
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set termios: %w", err)
	}

	// Self-pipe wakes a Send blocked in poll when the port is closed.
	pipeFds := make([]int, 2)
	if err := unix.Pipe2(pipeFds, unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("pipe: %w", err)
	}

	return &Port{
		fd:     fd,
		done:   make(chan struct{}),
		config: cfg,
		pipeR:  pipeFds[0],
		pipeW:  pipeFds[1],
	}, nil
}

// Name returns the device path the port was opened with.
func (p *Port) Name() string {
	return p.config.Device
}

// Receive reads whatever the device has queued into buf, up to len(buf) bytes.
// It never blocks: ErrNoData means nothing is available now, and io.EOF means
// the device went away (hangup or I/O error on the line).
func (p *Port) Receive(buf []byte) (int, error) {
	if p.isClosed() {
		return 0, ErrClosed
	}
	for {
		n, err := unix.Read(p.fd, buf)
		switch {
		case err == nil && n > 0:
			return n, nil
		case err == nil:
			// VMIN=0 reports an empty queue as a zero-length read; a hung-up
			// line reports POLLHUP, which tells the two apart.
			if p.hungUp() {
				return 0, io.EOF
			}
			return 0, ErrNoData
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return 0, ErrNoData
		case errors.Is(err, unix.EIO), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
			return 0, io.EOF
		case errors.Is(err, unix.EBADF):
			return 0, ErrClosed
		default:
			return 0, fmt.Errorf("read %s: %w", p.config.Device, err)
		}
	}
}

// Send writes buf to the device in full, waiting up to the configured
// write timeout for the output queue to drain.
func (p *Port) Send(buf []byte) error {
	deadline := time.Now().Add(p.config.WriteTimeout)
	for len(buf) > 0 {
		if p.isClosed() {
			return ErrClosed
		}
		n, err := unix.Write(p.fd, buf)
		if n > 0 {
			buf = buf[n:]
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			if err := p.waitWritable(deadline); err != nil {
				return err
			}
		case errors.Is(err, unix.EIO), errors.Is(err, unix.ENXIO), errors.Is(err, unix.ENODEV):
			return io.EOF
		case errors.Is(err, unix.EBADF):
			return ErrClosed
		default:
			return fmt.Errorf("write %s: %w", p.config.Device, err)
		}
	}
	return nil
}

func (p *Port) waitWritable(deadline time.Time) error {
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("write %s: %w", p.config.Device, unix.ETIMEDOUT)
		}
		// Use poll to wait for room or kill signal
		pfd := []unix.PollFd{
			{Fd: int32(p.fd), Events: unix.POLLOUT},
			{Fd: int32(p.pipeR), Events: unix.POLLIN},
		}
		_, err := unix.Poll(pfd, int(remaining/time.Millisecond)+1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll %s: %w", p.config.Device, err)
		}
		if pfd[1].Revents&unix.POLLIN != 0 || p.isClosed() {
			return ErrClosed
		}
		if pfd[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
			return io.EOF
		}
		if pfd[0].Revents&unix.POLLOUT != 0 {
			return nil
		}
	}
}

func (p *Port) hungUp() bool {
	pfd := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, 0)
	return err == nil && n > 0 && pfd[0].Revents&unix.POLLHUP != 0
}

func (p *Port) isClosed() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Close closes the serial port and unblocks any pending Send.
// Safe to call multiple times; subsequent calls are no-ops.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		// Wake up poll using self-pipe
		unix.Write(p.pipeW, []byte{1})
		err = syscall.Close(p.fd)
		unix.Close(p.pipeR)
		unix.Close(p.pipeW)
	})
	return err
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	default:
		return 0, fmt.Errorf("unsupported baud rate %d", baud)
	}
}
