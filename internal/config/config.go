// Package config loads bridge configuration from a YAML file: one
// struct of typed fields that can be populated from either a config
// file or command line flags, with flags taking precedence when both
// are set.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LinkKind selects which link.Link implementation the bridge daemon
// constructs.
type LinkKind string

const (
	LinkUnix   LinkKind = "unix"
	LinkSerial LinkKind = "serial"
)

// Config is the bridge daemon's full set of runtime settings. Every
// field mirrors a command-line flag in cmd/ble-midi-bridge; a field
// left at its zero value falls back to the flag (or the flag's
// default) rather than overriding it.
type Config struct {
	Link         LinkKind `yaml:"link"`
	Socket       string   `yaml:"socket"`
	SerialDevice string   `yaml:"serial_device"`
	SerialSpeed  int      `yaml:"serial_speed"`

	MIDIIn  string `yaml:"midi_in"`
	MIDIOut string `yaml:"midi_out"`

	Advertise bool   `yaml:"advertise"`
	LEDChip   string `yaml:"led_chip"`
	LEDLine   int    `yaml:"led_line"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Load reads and parses a YAML config file. A missing path is not an
// error: the caller gets a zero Config and relies entirely on flags.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// MergeFlag returns override if it differs from def (the flag's
// declared default), otherwise falls back to fromFile. This implements
// "flags take precedence over the config file, but only when the user
// actually set them" without needing a flag-was-set bitmask.
func MergeFlag[T comparable](override, def, fromFile T) T {
	if override != def {
		return override
	}
	var zero T
	if fromFile != zero {
		return fromFile
	}
	return override
}
