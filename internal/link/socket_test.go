package link

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketLinkHandshakeAndFraming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ble-midi.sock")

	ln, err := ListenSocket(path)
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan *SocketLink, 1)
	serverErr := make(chan error, 1)
	go func() {
		server, err := AcceptSocket(ln, 20)
		if err != nil {
			serverErr <- err
			return
		}
		serverDone <- server
	}()

	client, err := DialSocket(path)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, uint16(20), client.MTUWrite())

	var server *SocketLink
	select {
	case server = <-serverDone:
	case err := <-serverErr:
		t.Fatalf("accept failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server accept")
	}
	defer server.Close()

	packet := []byte{0x80, 0x81, 0x90, 0x40, 0x7F}
	_, err = client.Write(packet)
	require.NoError(t, err)

	buf := make([]byte, 32)
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, packet, buf[:n])
}

func TestSocketLinkReadShortBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ble-midi.sock")

	ln, err := ListenSocket(path)
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan *SocketLink, 1)
	go func() {
		server, _ := AcceptSocket(ln, 20)
		serverDone <- server
	}()

	client, err := DialSocket(path)
	require.NoError(t, err)
	defer client.Close()
	server := <-serverDone
	defer server.Close()

	_, err = client.Write([]byte{0x01, 0x02, 0x03, 0x04})
	require.NoError(t, err)

	tooSmall := make([]byte, 2)
	_, err = server.Read(tooSmall)
	assert.Error(t, err)
}
