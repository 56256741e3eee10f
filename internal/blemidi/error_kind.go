package blemidi

import "errors"

// Error kinds surfaced by State.Parse, returned as Go errors rather
// than an errno-style side channel.
var (
	// ErrInvalid reports a missing or malformed BLE-MIDI header, or a
	// timestamp byte appearing as the final byte of a packet.
	ErrInvalid = errors.New("blemidi: malformed packet header or trailing timestamp byte")

	// ErrInvalidStatus reports a data byte found where a status byte
	// was required, with no usable running status.
	ErrInvalidStatus = errors.New("blemidi: data byte where a status byte was expected")

	// ErrBadMessage reports a channel-voice message that ran out of
	// packet before all of its data bytes arrived.
	ErrBadMessage = errors.New("blemidi: channel-voice message ended before its data bytes")

	// ErrTooLarge reports a SysEx message that exceeded the 256-byte
	// reassembly buffer. Unlike the other three, this is not a hard
	// failure: State.Parse still returns true and State.Buffer holds
	// the truncated message. Further SysEx body bytes are discarded
	// until the terminating 0xF7 arrives.
	ErrTooLarge = errors.New("blemidi: sysex message exceeded reassembly buffer, truncated")
)
