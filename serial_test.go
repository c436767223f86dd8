package serial

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func openPair(t *testing.T) (*Port, *os.File) {
	t.Helper()
	return openPairTimeout(t, 0)
}

// openPairTimeout opens the slave side of a fresh pty as a Port. Nothing
// reads the master unless the test does, so output backs up once the line
// discipline buffer is full.
func openPairTimeout(t *testing.T, writeTimeout time.Duration) (*Port, *os.File) {
	t.Helper()
	master, slave, err := pty.Open()
	require.NoError(t, err)
	t.Cleanup(func() { master.Close(); slave.Close() })

	port, err := Open(Config{
		Device:       slave.Name(),
		BaudRate:     115200,
		WriteTimeout: writeTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() { port.Close() })
	return port, master
}

func TestPort_ReceiveNoData(t *testing.T) {
	port, _ := openPair(t)

	buf := make([]byte, 12)
	n, err := port.Receive(buf)
	require.ErrorIs(t, err, ErrNoData)
	require.Zero(t, n)
}

func TestPort_ReceiveFrame(t *testing.T) {
	port, master := openPair(t)

	frame := []byte("HELLO-WORLD!")
	_, err := master.Write(frame)
	require.NoError(t, err)

	got := make([]byte, 0, len(frame))
	buf := make([]byte, len(frame))
	require.Eventually(t, func() bool {
		n, err := port.Receive(buf[:len(frame)-len(got)])
		if err != nil {
			return false
		}
		got = append(got, buf[:n]...)
		return len(got) == len(frame)
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, frame, got)
}

func TestPort_Send(t *testing.T) {
	port, master := openPair(t)

	frame := []byte("0123456789AB")
	require.NoError(t, port.Send(frame))

	buf := make([]byte, len(frame))
	_, err := io.ReadFull(master, buf)
	require.NoError(t, err)
	require.Equal(t, frame, buf)
}

func TestPort_SendTimesOutWhenOutputBacksUp(t *testing.T) {
	port, _ := openPairTimeout(t, 50*time.Millisecond)

	start := time.Now()
	err := port.Send(make([]byte, 1<<20))
	require.ErrorIs(t, err, unix.ETIMEDOUT)
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestPort_CloseUnblocksSend(t *testing.T) {
	port, _ := openPairTimeout(t, 10*time.Second)

	errc := make(chan error, 1)
	go func() {
		errc <- port.Send(make([]byte, 1<<20))
	}()

	select {
	case err := <-errc:
		t.Fatalf("Send returned before Close: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, port.Close())
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return after Close")
	}
}

func TestPort_Name(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	defer slave.Close()

	port, err := Open(Config{Device: slave.Name(), BaudRate: 9600})
	require.NoError(t, err)
	defer port.Close()
	require.Equal(t, slave.Name(), port.Name())
}

func TestPort_DeviceClosed(t *testing.T) {
	port, master := openPair(t)

	// Simulate device disconnect by closing master
	require.NoError(t, master.Close())

	buf := make([]byte, 12)
	require.Eventually(t, func() bool {
		_, err := port.Receive(buf)
		return errors.Is(err, io.EOF)
	}, time.Second, 5*time.Millisecond)
}

func TestPort_CloseIsIdempotent(t *testing.T) {
	port, _ := openPair(t)

	require.NoError(t, port.Close())
	require.NoError(t, port.Close())

	_, err := port.Receive(make([]byte, 12))
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, port.Send([]byte("x")), ErrClosed)
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(Config{Device: "/dev/does-not-exist", BaudRate: 115200})
	require.Error(t, err)

	_, err = Open(Config{Device: "/dev/null", BaudRate: 12345})
	require.ErrorContains(t, err, "unsupported baud rate")
}

func TestDevicePath(t *testing.T) {
	require.Equal(t, "/dev/ttyUSB0", DevicePath(0))
	require.Equal(t, "/dev/ttyUSB3", DevicePath(3))
}
