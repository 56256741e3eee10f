package link

import (
	"fmt"

	"github.com/pkg/term"
)

// serialBaudRates lists the speeds this link will actually program into
// the UART.
var serialBaudRates = map[int]bool{
	1200: true, 2400: true, 4800: true, 9600: true,
	19200: true, 38400: true, 57600: true, 115200: true,
	230400: true, 460800: true, 921600: true,
}

// SerialLink is a Link backed by a UART passthrough, for BLE controllers
// that expose the MIDI GATT characteristic stream as raw bytes over a
// serial connection rather than through BlueZ/D-Bus.
type SerialLink struct {
	fd  *term.Term
	mtu uint16
}

// OpenSerial opens device at the given baud rate. mtu is the write MTU
// to report via MTUWrite; serial links have no GATT negotiation, so the
// caller picks a conservative value (e.g. the BLE-MIDI default of 23-3).
func OpenSerial(device string, baud int, mtu uint16) (*SerialLink, error) {
	fd, err := term.Open(device, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("link: open serial device %s: %w", device, err)
	}

	switch {
	case baud == 0:
		// Leave it alone.
	case serialBaudRates[baud]:
		if err := fd.SetSpeed(baud); err != nil {
			fd.Close()
			return nil, fmt.Errorf("link: set serial speed %d: %w", baud, err)
		}
	default:
		fd.Close()
		return nil, fmt.Errorf("link: unsupported serial speed %d", baud)
	}

	return &SerialLink{fd: fd, mtu: mtu}, nil
}

func (l *SerialLink) Read(p []byte) (int, error)  { return l.fd.Read(p) }
func (l *SerialLink) Write(p []byte) (int, error) { return l.fd.Write(p) }
func (l *SerialLink) Close() error                { return l.fd.Close() }
func (l *SerialLink) MTUWrite() uint16            { return l.mtu }
