// Package miditransport bridges a BLE-MIDI link.Link and the local
// midi_in/midi_out FIFOs, decoding inbound BLE-MIDI packets with
// internal/blemidi and forwarding outbound classical MIDI bytes
// unchanged onto the link.
//
// Grounded on the original BlueALSA transport: midi.c's three IO
// watches (midi_watch_ble_midi, midi_watch_input, midi_watch_output)
// and ba-transport-midi.c's mutex-guarded, reference-counted endpoint
// struct. The midi_watch_ble_midi and midi_watch_output callbacks
// become goroutines reading from io.Reader values instead, so the
// transport is constructed from explicit descriptors rather than global
// ba_transport state. midi_watch_input has no counterpart: nothing
// watches midi_in for its reader hanging up, and the endpoint stays
// open until Close.
package miditransport

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/donwade/bluez-alsa-midi/internal/blemidi"
	"github.com/donwade/bluez-alsa-midi/internal/link"
)

// readBufferSize matches the 512-byte scratch buffer midi_watch_ble_midi
// and midi_watch_output use in the original source.
const readBufferSize = 512

// idlePollInterval throttles the midi_out read loop when it is backed by
// a non-blocking FIFO Endpoint that returns (0, nil) while the pipe
// holds no data, rather than spinning the watch goroutine hot.
const idlePollInterval = 20 * time.Millisecond

// Transport wires one BLE-MIDI Link to the local midi_in/midi_out
// endpoints. The zero value is not usable; construct with New.
type Transport struct {
	link    link.Link
	midiIn  *link.Endpoint
	midiOut *link.Endpoint
	logger  *log.Logger

	refs int32

	onActivity func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New builds a Transport. l carries BLE-MIDI packets; midiIn receives
// the decoded classical MIDI byte stream; midiOut is read for bytes to
// forward. Re-encoding classical MIDI back into BLE-MIDI packets is out
// of scope, so midiOut bytes are relayed to the link as-is; pairing
// this with an upstream encoder is the caller's responsibility.
func New(l link.Link, midiIn, midiOut *link.Endpoint, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.Default()
	}
	return &Transport{link: l, midiIn: midiIn, midiOut: midiOut, logger: logger, refs: 1}
}

// OnActivity registers fn to be called once per decoded MIDI message
// and once per chunk of bytes forwarded from midi_out, e.g. to flash an
// activityled.LED. Must be set before
// Start; nil disables the notification.
func (t *Transport) OnActivity(fn func()) {
	t.onActivity = fn
}

func (t *Transport) notifyActivity() {
	if t.onActivity != nil {
		t.onActivity()
	}
}

// Ref increments the transport's reference count, mirroring
// ba_transport_midi_ref. Callers handing the transport to a new
// goroutine or watch must call Ref first and Unref when done.
func (t *Transport) Ref() *Transport {
	atomic.AddInt32(&t.refs, 1)
	return t
}

// Unref decrements the reference count and, once it reaches zero,
// stops the transport. The link and endpoints stay open; Close releases
// them. Mirrors ba_transport_midi_unref.
func (t *Transport) Unref() {
	if atomic.AddInt32(&t.refs, -1) == 0 {
		t.Stop()
	}
}

// Start launches the BLE-MIDI read watch and the midi_out read watch.
// It is idempotent: calling Start on an already-started transport is a
// no-op, matching midi_transport_start's fd_watch_id == 0 guards.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.started = true

	t.wg.Add(2)
	go t.watchBLEMIDI(runCtx)
	go t.watchMIDIOut(runCtx)

	return nil
}

// Stop cancels both watches and waits for them to exit. Safe to call
// more than once.
func (t *Transport) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.cancel()
	t.started = false
	t.mu.Unlock()

	t.wg.Wait()
}

// watchBLEMIDI mirrors midi_watch_ble_midi: read a packet off the link,
// run it through the BLE-MIDI parser until exhausted, and write every
// decoded message to midi_in.
func (t *Transport) watchBLEMIDI(ctx context.Context) {
	defer t.wg.Done()

	var parser blemidi.State
	buf := make([]byte, readBufferSize)

	// Unblock a pending link Read once ctx is cancelled, for links that
	// support read deadlines (net.Conn-backed ones do).
	if d, ok := t.link.(interface{ SetReadDeadline(time.Time) error }); ok {
		d.SetReadDeadline(time.Time{})
		go func() {
			<-ctx.Done()
			d.SetReadDeadline(time.Now())
		}()
	}

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := t.link.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return
			}
			t.logger.Error("BLE-MIDI link read error", "err", err)
			continue
		}
		if n == 0 {
			continue
		}

		packet := buf[:n]
		for {
			ok, perr := parser.Parse(packet)
			if perr != nil && !errors.Is(perr, blemidi.ErrTooLarge) {
				t.logger.Error("couldn't parse BLE-MIDI packet", "err", perr)
				break
			}
			if !ok {
				break
			}
			if len(parser.Buffer) > 0 {
				t.logger.Debug("decoded BLE-MIDI message",
					"status", parser.Buffer[0],
					"len", len(parser.Buffer),
					"system_common", blemidi.IsSystemCommon(parser.Buffer[0]),
					"truncated", errors.Is(perr, blemidi.ErrTooLarge))
			}
			if _, werr := t.midiIn.Write(parser.Buffer); werr != nil {
				t.logger.Error("midi_in write error", "err", werr)
			}
			t.notifyActivity()
		}
	}
}

// watchMIDIOut mirrors midi_watch_output: read from midi_out and, if
// the link is established (non-zero write MTU), forward the bytes.
func (t *Transport) watchMIDIOut(ctx context.Context) {
	defer t.wg.Done()

	buf := make([]byte, readBufferSize)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := t.midiOut.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			t.logger.Error("MIDI output read error", "err", err)
			continue
		}
		if n == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePollInterval):
			}
			continue
		}

		if t.link.MTUWrite() == 0 {
			continue
		}
		if _, err := t.link.Write(buf[:n]); err != nil {
			t.logger.Error("BLE-MIDI link write error", "err", err)
		}
		t.notifyActivity()
	}
}

// Close releases the transport's own resources (the link and the
// endpoints), for use by a caller that owns all three and is shutting
// the bridge down for good rather than just dropping a reference.
func (t *Transport) Close() error {
	t.Stop()

	var errs []error
	if err := t.link.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.midiIn.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.midiOut.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
