package activityled

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLine is a test double for Line that records calls without
// requiring GPIO hardware.
type mockLine struct {
	value  int
	closed bool
}

func (m *mockLine) SetValue(v int) error {
	m.value = v
	return nil
}

func (m *mockLine) Close() error {
	m.closed = true
	return nil
}

func TestLEDFlashReturnsToIdle(t *testing.T) {
	mock := &mockLine{}
	led := &LED{line: mock}

	require.NoError(t, led.Flash())
	assert.Equal(t, 1, mock.value, "line should be active immediately after Flash")

	time.Sleep(flashDuration * 3)

	led.mu.Lock()
	value := mock.value
	led.mu.Unlock()
	assert.Equal(t, 0, value, "line should return to idle after flashDuration")
}

func TestLEDFlashInverted(t *testing.T) {
	mock := &mockLine{}
	led := &LED{line: mock, invert: true}

	require.NoError(t, led.Flash())
	assert.Equal(t, 0, mock.value, "inverted line should read low while active")
}

func TestLEDClose(t *testing.T) {
	mock := &mockLine{}
	led := &LED{line: mock}

	require.NoError(t, led.Flash())
	require.NoError(t, led.Close())
	assert.True(t, mock.closed)
}
