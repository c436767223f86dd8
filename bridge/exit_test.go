package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingCloser struct {
	name  string
	order *[]string
	err   error
}

func (c *recordingCloser) Close() error {
	*c.order = append(*c.order, c.name)
	return c.err
}

func TestExit_ClosesInOrderAndKeepsGoing(t *testing.T) {
	s := New(testConfig(&fakeDevice{}), testLogger(t))

	var order []string
	devErr := errors.New("device busy")
	s.device.acquire(&recordingCloser{name: "device", order: &order, err: devErr})
	s.client.acquire(&recordingCloser{name: "client", order: &order})
	s.listener.acquire(&recordingCloser{name: "listener", order: &order})

	res := s.exit(ReasonTerminate, nil)
	require.Equal(t, []string{"device", "client", "listener"}, order)
	require.Equal(t, 1, res.ExitCode())
	require.ErrorIs(t, res.Err, devErr)

	// Nothing is released twice.
	res = s.exit(ReasonTerminate, nil)
	require.Len(t, order, 3)
	require.NoError(t, res.Err)
}

func TestExit_SkipsResourcesNeverAcquired(t *testing.T) {
	s := New(testConfig(&fakeDevice{}), testLogger(t))

	var order []string
	s.listener.acquire(&recordingCloser{name: "listener", order: &order})

	res := s.exit(ReasonInterrupt, nil)
	require.Equal(t, []string{"listener"}, order)
	require.Equal(t, 0, res.ExitCode())
	require.NoError(t, res.Err)
}
