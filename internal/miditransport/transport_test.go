package miditransport

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donwade/bluez-alsa-midi/internal/link"
)

// pipeLink adapts a net.Conn (from net.Pipe) to the Link interface for
// tests, standing in for a real BLE GATT notify/write pair.
type pipeLink struct {
	net.Conn
	mtu uint16
}

func (p *pipeLink) MTUWrite() uint16 { return p.mtu }

func newFIFOEndpoint(t *testing.T) *link.Endpoint {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fifo")
	ep, err := link.OpenFIFOEndpoint(path)
	require.NoError(t, err)
	t.Cleanup(func() { ep.Close() })
	return ep
}

func TestTransportBLEMIDIToMIDIIn(t *testing.T) {
	bleSide, bridgeSide := net.Pipe()
	defer bleSide.Close()

	midiIn := newFIFOEndpoint(t)
	midiOut := newFIFOEndpoint(t)

	tr := New(&pipeLink{Conn: bridgeSide, mtu: 23}, midiIn, midiOut, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, tr.Start(ctx))
	defer tr.Stop()

	// Single BLE-MIDI packet: header, timestamp, note-on.
	packet := []byte{0x80, 0x81, 0x90, 0x40, 0x7F}
	done := make(chan struct{})
	go func() {
		bleSide.Write(packet)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out writing BLE-MIDI packet")
	}

	buf := make([]byte, 16)
	n, err := waitForRead(t, midiIn, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x90, 0x40, 0x7F}, buf[:n])
}

func TestTransportMTUZeroDropsOutboundWrites(t *testing.T) {
	_, bridgeSide := net.Pipe()
	defer bridgeSide.Close()

	midiIn := newFIFOEndpoint(t)
	midiOut := newFIFOEndpoint(t)

	tr := New(&pipeLink{Conn: bridgeSide, mtu: 0}, midiIn, midiOut, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, tr.Start(ctx))
	defer tr.Stop()

	n, err := midiOut.Write([]byte{0x90, 0x40, 0x7F})
	require.NoError(t, err)
	assert.Equal(t, 3, n, "midi_out write should succeed locally even though the link is unestablished")
}

func TestTransportStartIsIdempotent(t *testing.T) {
	_, bridgeSide := net.Pipe()
	defer bridgeSide.Close()

	tr := New(&pipeLink{Conn: bridgeSide, mtu: 23}, newFIFOEndpoint(t), newFIFOEndpoint(t), nil)
	ctx := context.Background()

	require.NoError(t, tr.Start(ctx))
	require.NoError(t, tr.Start(ctx))
	tr.Stop()
	tr.Stop()
}

// waitForRead polls ep.Read until it returns a non-zero read or the
// deadline expires, since Endpoint.Read on a non-blocking FIFO with no
// data queued returns (0, nil) rather than blocking.
func waitForRead(t *testing.T, ep *link.Endpoint, buf []byte) (int, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		n, err := ep.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return 0, context.DeadlineExceeded
}
