// Package blemidi decodes the "MIDI over Bluetooth Low Energy" wire
// format (BLE-MIDI) into classical MIDI 1.0 byte streams.
//
// A BLE-MIDI packet is a sequence of timestamped MIDI messages, where
// System Exclusive messages may be split across an arbitrary number of
// packets and may themselves be interrupted by interleaved real-time
// messages. State is a small incremental decoder: feed it one packet at
// a time through repeated calls to Parse until it stops reporting a
// freshly completed message.
package blemidi

const (
	bufferMIDISize = 8
	bufferSysSize  = 256
)

// State is a BLE-MIDI parser. The zero value is a valid, ready-to-use
// parser: there is no constructor.
//
// Parse must be called repeatedly with the same packet until it returns
// false; only then may the next packet be presented.
type State struct {
	ts     uint16
	tsHigh uint16
	tsSys  uint16

	status        byte
	statusSys     bool
	statusRestore bool

	// sysexOverflowed is set once a SysEx message has been emitted
	// truncated (ErrTooLarge) and stays set until the closing 0xF7
	// arrives. While set, SysEx body bytes are parsed and discarded
	// instead of being appended to bufferSys, and any interleaved
	// status byte (real-time, or the eventual 0xF7) is reassembled
	// into bufferMIDI instead, so it is still reported correctly.
	sysexOverflowed bool

	bufferMIDI   [bufferMIDISize]byte
	bufferSys    [bufferSysSize]byte
	bufferSysLen int

	currentLen int

	// Buffer and Timestamp are valid after Parse returns true: Buffer
	// holds the most recently completed (or truncated) MIDI message,
	// and Timestamp its 13-bit BLE-MIDI timestamp.
	Buffer    []byte
	Timestamp uint16
}

// Parse consumes as much of packet as needed to produce the next
// complete MIDI message, picking up where the previous call on the
// same packet left off.
//
//   - (true, nil): one message was emitted; State.Buffer/State.Timestamp
//     are valid.
//   - (true, ErrTooLarge): a SysEx message was emitted truncated at the
//     256-byte reassembly limit; the caller should still forward it.
//   - (false, nil): packet fully consumed, no further messages this call.
//   - (false, err): the packet is malformed (err is one of ErrInvalid,
//     ErrInvalidStatus, or ErrBadMessage). The parser has been reset and
//     the caller may present a fresh packet on the next call.
//
// Callers must zero a State once (or simply declare a new one) and then
// call Parse repeatedly on each incoming packet until it returns
// anything other than (true, nil) or (true, ErrTooLarge). That
// completing call (the first (false, nil) or (false, err) result) is
// the only call guaranteed idempotent: it resets the parser's cursor to
// 0 so that the next call is ready to read a fresh packet from its
// start. Calling Parse again afterwards with the same bytes does not
// keep returning (false, nil); it has no way to tell "the same
// exhausted packet, again" from "a new packet that happens to start
// with the same bytes" and parses it as the latter.
func (s *State) Parse(packet []byte) (bool, error) {
	cur := s.currentLen

	if cur == len(packet) {
		s.currentLen = 0
		return false, nil
	}

	var buf []byte
	var bufCap int
	var bufLen int
	status := s.status

	if s.statusSys {
		if s.sysexOverflowed {
			buf = s.bufferMIDI[:]
			bufCap = bufferMIDISize
		} else {
			buf = s.bufferSys[:]
			bufCap = bufferSysSize
			bufLen = s.bufferSysLen
		}
		status = 0xF0
	} else {
		buf = s.bufferMIDI[:]
		bufCap = bufferMIDISize
	}

	if cur == 0 {
		if len(packet) < 3 || packet[0]>>6 != 0b10 {
			s.currentLen = 0
			return false, ErrInvalid
		}
		s.tsHigh = uint16(packet[0]&0x3F) << 7
		cur = 1
	}

retry:
	if packet[cur]&0x80 != 0 {
		s.ts = s.tsHigh | uint16(packet[cur]&0x7F)
		cur++
		if cur == len(packet) {
			s.currentLen = 0
			return false, ErrInvalid
		}

		if packet[cur]&0x80 != 0 {
			status = packet[cur]
			switch status {
			case 0xF0:
				buf = s.bufferSys[:]
				bufCap = bufferSysSize
				bufLen = s.bufferSysLen
				s.tsSys = s.ts
				s.statusSys = true
				s.sysexOverflowed = false
			case 0xF7:
				s.statusSys = false
				s.sysexOverflowed = false
			default:
				// A real-time message interleaved in an unfinished SysEx
				// is reassembled on its own; the SysEx body stays in
				// bufferSys and resumes on the next call.
				if s.statusSys && status >= 0xF8 {
					buf = s.bufferMIDI[:]
					bufCap = bufferMIDISize
					bufLen = 0
				}
			}
			if bufLen < bufCap {
				buf[bufLen] = status
				bufLen++
			}
			cur++
			if cur == len(packet) {
				goto final
			}
		}
	}

	if status == 0xF0 && s.sysexOverflowed {
		// Discarding the body of a truncated SysEx: skip data bytes
		// without storing them, then loop back to parse whatever
		// status byte interrupts the stream (real-time, or the
		// terminating 0xF7).
		for cur < len(packet) && packet[cur]&0x80 == 0 {
			cur++
		}
		if cur == len(packet) {
			s.currentLen = 0
			return false, nil
		}
		goto retry
	}

	if bufLen == 0 && s.statusRestore {
		buf[bufLen] = status
		bufLen++
		s.statusRestore = false
	}

	{
		msgLen := MessageLen(status)
		if msgLen == 0 {
			s.currentLen = 0
			return false, ErrInvalidStatus
		}

		unbounded := msgLen == SysExLen
		remaining := msgLen - 1

		for unbounded || remaining > 0 {
			if packet[cur]&0x80 != 0 {
				break
			}
			if bufLen == bufCap {
				break
			}
			buf[bufLen] = packet[cur]
			bufLen++
			cur++
			if !unbounded {
				remaining--
			}
			if cur == len(packet) {
				if !unbounded && remaining != 0 {
					s.currentLen = 0
					return false, ErrBadMessage
				}
				goto final
			}
		}

		if !unbounded && remaining != 0 {
			s.currentLen = 0
			return false, ErrBadMessage
		}

		if unbounded && bufLen == bufCap {
			s.sysexOverflowed = true
			s.bufferSysLen = bufLen
			s.currentLen = cur
			s.Buffer = buf[:bufLen]
			s.Timestamp = s.ts
			return true, ErrTooLarge
		}
	}

	if status == 0xF0 {
		s.bufferSysLen = bufLen
		goto retry
	}

final:
	s.Buffer = buf[:bufLen]
	s.Timestamp = s.ts

	if IsChannelVoice(status) {
		s.status = status
	}
	// System-common messages cancel running status in classical MIDI
	// but not on the BLE-MIDI wire, so the bridge must remember to
	// reinsert the channel-voice status byte on the next running-status
	// message. A SysEx transmission (0xF0 or its 0xF7 terminator) is not
	// a real-time message either, so it cancels running status the same
	// way in classical MIDI and is included in this range.
	if status >= 0xF0 && status < 0xF8 {
		s.statusRestore = true
	}

	s.currentLen = cur

	switch status {
	case 0xF0:
		s.bufferSysLen = bufLen
		s.currentLen = 0
		return false, nil
	case 0xF7:
		s.bufferSysLen = 0
		s.Timestamp = s.tsSys
	}

	return true, nil
}
