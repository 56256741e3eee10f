package link

import (
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/pkg/term"
	"github.com/stretchr/testify/require"
)

// TestSerialLinkRoundTrip exercises SerialLink against a real pseudo
// terminal pair instead of a physical UART.
func TestSerialLinkRoundTrip(t *testing.T) {
	ptmx, tty, err := pty.Open()
	require.NoError(t, err)
	defer ptmx.Close()
	defer tty.Close()

	fd, err := term.Open(tty.Name(), term.RawMode)
	require.NoError(t, err)

	l := &SerialLink{fd: fd, mtu: 20}

	done := make(chan struct{})
	go func() {
		ptmx.Write([]byte{0x80, 0x81, 0x90, 0x40, 0x7F})
		close(done)
	}()

	type readResult struct {
		n   int
		err error
	}
	buf := make([]byte, 16)
	results := make(chan readResult, 1)
	go func() {
		n, err := l.Read(buf)
		results <- readResult{n, err}
	}()

	select {
	case res := <-results:
		require.NoError(t, res.err)
		require.Equal(t, []byte{0x80, 0x81, 0x90, 0x40, 0x7F}, buf[:res.n])
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for serial read")
	}
	<-done

	require.Equal(t, uint16(20), l.MTUWrite())
	require.NoError(t, l.Close())
}
