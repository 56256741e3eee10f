// Package link provides concrete byte-stream transports that stand in
// for the BlueZ GATT acquisition handshake (AcquireWrite/AcquireNotify),
// which is out of scope for this bridge, plus the local MIDI FIFO
// endpoints.
package link

import "io"

// Link is a readable/writable channel carrying BLE-MIDI packets, plus
// the negotiated ATT MTU needed to size outbound packets. A real BlueZ
// stack hands this shape back from AcquireWrite/AcquireNotify; the
// implementations in this package (Unix-socket, serial) let the rest
// of the bridge be exercised without one.
type Link interface {
	io.ReadWriteCloser

	// MTUWrite returns the negotiated write MTU in bytes. A value of 0
	// means the link is not yet established and must not be written to,
	// mirroring the C transport's t->mtu_write == 0 guard.
	MTUWrite() uint16
}
