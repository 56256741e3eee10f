package link

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"golang.org/x/sys/unix"
)

// SocketLink is a Link backed by a Unix domain socket. It stands in for
// the file descriptor BlueZ's AcquireWrite/AcquireNotify D-Bus calls
// hand back, so the bridge core can be exercised without a real BlueZ
// stack; the GATT handshake itself is out of scope here. The negotiated
// MTU, which BlueZ would return alongside the fd, is instead exchanged
// with a 2-byte handshake when the connection is established; after
// that each packet is sent length-prefixed so packet boundaries survive
// the underlying byte stream.
type SocketLink struct {
	conn net.Conn
	mtu  uint16
}

// DialSocket connects to a Unix socket acting as the BLE-MIDI peer and
// performs the MTU handshake.
func DialSocket(path string) (*SocketLink, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("link: dial %s: %w", path, err)
	}

	mtu, err := readHandshake(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("link: mtu handshake with %s: %w", path, err)
	}

	tuneRecvBuffer(conn)

	return &SocketLink{conn: conn, mtu: mtu}, nil
}

// ListenSocket starts a Unix socket listener for AcceptSocket.
func ListenSocket(path string) (net.Listener, error) {
	return net.Listen("unix", path)
}

// AcceptSocket accepts one connection on ln and performs the MTU
// handshake as the peer, reporting mtu to the client.
func AcceptSocket(ln net.Listener, mtu uint16) (*SocketLink, error) {
	conn, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("link: accept: %w", err)
	}
	if err := writeHandshake(conn, mtu); err != nil {
		conn.Close()
		return nil, fmt.Errorf("link: mtu handshake: %w", err)
	}

	tuneRecvBuffer(conn)

	return &SocketLink{conn: conn, mtu: mtu}, nil
}

// tuneRecvBuffer grows the socket receive buffer so that a burst of
// queued BLE-MIDI packets does not get silently dropped by the kernel
// before the bridge's read loop drains it.
func tuneRecvBuffer(conn net.Conn) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return
	}
	raw.Control(func(fd uintptr) {
		unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, 1<<18)
	})
}

func writeHandshake(w io.Writer, mtu uint16) error {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], mtu)
	_, err := w.Write(hdr[:])
	return err
}

func readHandshake(r io.Reader) (uint16, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(hdr[:]), nil
}

// Write sends p as one length-prefixed frame.
func (l *SocketLink) Write(p []byte) (int, error) {
	var hdr [2]byte
	binary.BigEndian.PutUint16(hdr[:], uint16(len(p)))
	if _, err := l.conn.Write(hdr[:]); err != nil {
		return 0, err
	}
	return l.conn.Write(p)
}

// Read fills p with the next frame's payload. p must be large enough
// to hold it; ErrShortBuffer is returned otherwise.
func (l *SocketLink) Read(p []byte) (int, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(l.conn, hdr[:]); err != nil {
		return 0, err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n > len(p) {
		return 0, io.ErrShortBuffer
	}
	return io.ReadFull(l.conn, p[:n])
}

func (l *SocketLink) Close() error     { return l.conn.Close() }
func (l *SocketLink) MTUWrite() uint16 { return l.mtu }
