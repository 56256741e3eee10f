// Package activityled drives an optional GPIO line that flashes on
// inbound/outbound MIDI traffic, as a physical side indicator of
// protocol activity, using github.com/warthog618/go-gpiocdev.
package activityled

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// flashDuration is how long the line stays active after a single
// Flash() call before returning to its idle state.
const flashDuration = 30 * time.Millisecond

// Line is the subset of *gpiocdev.Line this package needs, split out
// so tests can supply a fake instead of real GPIO hardware.
type Line interface {
	SetValue(v int) error
	Close() error
}

// LED drives one GPIO line as an activity indicator.
type LED struct {
	mu     sync.Mutex
	line   Line
	invert bool
	timer  *time.Timer
}

// Open requests lineOffset on chip as an output, initially idle.
func Open(chip string, lineOffset int, invert bool) (*LED, error) {
	line, err := gpiocdev.RequestLine(chip, lineOffset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("activityled: request %s line %d: %w", chip, lineOffset, err)
	}

	led := &LED{line: line, invert: invert}
	if err := led.set(false); err != nil {
		line.Close()
		return nil, err
	}
	return led, nil
}

func (l *LED) set(active bool) error {
	v := 0
	if active != l.invert {
		v = 1
	}
	return l.line.SetValue(v)
}

// Flash drives the line active for flashDuration, then returns it to
// idle. Safe to call repeatedly in quick succession; each call resets
// the idle timer rather than stacking flashes.
func (l *LED) Flash() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.set(true); err != nil {
		return err
	}

	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(flashDuration, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.set(false)
	})
	return nil
}

// Close stops any pending flash and releases the GPIO line.
func (l *LED) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.timer != nil {
		l.timer.Stop()
	}
	return l.line.Close()
}
