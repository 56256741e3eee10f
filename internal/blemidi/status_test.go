package blemidi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageLen(t *testing.T) {
	cases := []struct {
		status byte
		want   int
	}{
		{0x80, 3}, {0x90, 3}, {0xA0, 3}, {0xB0, 3},
		{0xC0, 2}, {0xD0, 2},
		{0xE0, 3},
		{0xF0, SysExLen},
		{0xF1, 2}, {0xF3, 2},
		{0xF2, 3},
		{0xF6, 1}, {0xF7, 1}, {0xF8, 1}, {0xFA, 1}, {0xFB, 1}, {0xFC, 1}, {0xFE, 1}, {0xFF, 1},
		{0xF4, 0}, {0xF5, 0}, {0xF9, 0}, {0xFD, 0},
		{0x00, 0},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, MessageLen(c.status), "status 0x%02X", c.status)
	}
}

func TestIsChannelVoice(t *testing.T) {
	assert.True(t, IsChannelVoice(0x90))
	assert.True(t, IsChannelVoice(0xE0))
	assert.False(t, IsChannelVoice(0xF0))
	assert.False(t, IsChannelVoice(0xFF))
}

func TestIsSystemCommon(t *testing.T) {
	for status := 0xF1; status < 0xF7; status++ {
		assert.Truef(t, IsSystemCommon(byte(status)), "status 0x%02X", status)
	}

	notSystemCommon := []byte{0xF0, 0xF7, 0xF8, 0xFA, 0xFB, 0xFC, 0xFE, 0xFF, 0x90, 0xC0}
	for _, status := range notSystemCommon {
		assert.Falsef(t, IsSystemCommon(status), "status 0x%02X", status)
	}
}
