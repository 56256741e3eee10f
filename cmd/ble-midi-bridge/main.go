// Command ble-midi-bridge decodes BLE-MIDI packets from a configured
// link and bridges them to local MIDI FIFOs.
//
// One flat set of pflag flags with a custom pflag.Usage banner,
// optionally supplemented by a YAML config file loaded after the flags
// are parsed; a flag left at its default takes the file's value, a flag
// set to anything else wins over it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/donwade/bluez-alsa-midi/internal/activityled"
	"github.com/donwade/bluez-alsa-midi/internal/config"
	"github.com/donwade/bluez-alsa-midi/internal/discovery"
	"github.com/donwade/bluez-alsa-midi/internal/link"
	"github.com/donwade/bluez-alsa-midi/internal/logging"
	"github.com/donwade/bluez-alsa-midi/internal/miditransport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ble-midi-bridge:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   = pflag.String("config", "", "Path to YAML config file")
		linkKind     = pflag.String("link", "unix", "Link type: unix or serial")
		socketPath   = pflag.String("socket", "/run/ble-midi-bridge.sock", "Unix socket path for the unix link")
		serialDevice = pflag.String("serial-device", "", "Serial device path for the serial link")
		serialSpeed  = pflag.Int("serial-speed", 115200, "Serial link baud rate")
		midiInPath   = pflag.String("midi-in", "/tmp/ble-midi/midi_in", "Path of the midi_in FIFO")
		midiOutPath  = pflag.String("midi-out", "/tmp/ble-midi/midi_out", "Path of the midi_out FIFO")
		advertise    = pflag.Bool("advertise", false, "Announce this bridge over mDNS/DNS-SD")
		ledChip      = pflag.String("led-chip", "", "GPIO chip device for the activity LED (e.g. gpiochip0); empty disables it")
		ledLine      = pflag.Int("led-line", 0, "GPIO line offset for the activity LED")
		logLevel     = pflag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFile      = pflag.String("log-file", "", "Directory for daily-rotating log files; empty logs to stderr only")
	)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ble-midi-bridge [options]\n\n")
		fmt.Fprintf(os.Stderr, "Bridges a BLE-MIDI link to local MIDI FIFOs.\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	fileCfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	cfg := config.Config{
		Link:         config.MergeFlag(config.LinkKind(*linkKind), "unix", fileCfg.Link),
		Socket:       config.MergeFlag(*socketPath, "/run/ble-midi-bridge.sock", fileCfg.Socket),
		SerialDevice: config.MergeFlag(*serialDevice, "", fileCfg.SerialDevice),
		SerialSpeed:  config.MergeFlag(*serialSpeed, 115200, fileCfg.SerialSpeed),
		MIDIIn:       config.MergeFlag(*midiInPath, "/tmp/ble-midi/midi_in", fileCfg.MIDIIn),
		MIDIOut:      config.MergeFlag(*midiOutPath, "/tmp/ble-midi/midi_out", fileCfg.MIDIOut),
		Advertise:    *advertise || fileCfg.Advertise,
		LEDChip:      config.MergeFlag(*ledChip, "", fileCfg.LEDChip),
		LEDLine:      config.MergeFlag(*ledLine, 0, fileCfg.LEDLine),
		LogLevel:     config.MergeFlag(*logLevel, "info", fileCfg.LogLevel),
		LogFile:      config.MergeFlag(*logFile, "", fileCfg.LogFile),
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Dir: cfg.LogFile})
	if err != nil {
		return err
	}

	bleLink, err := openLink(cfg)
	if err != nil {
		return err
	}

	midiIn, err := link.OpenFIFOEndpoint(cfg.MIDIIn)
	if err != nil {
		return err
	}
	midiOut, err := link.OpenFIFOEndpoint(cfg.MIDIOut)
	if err != nil {
		return err
	}

	var led *activityled.LED
	if cfg.LEDChip != "" {
		led, err = activityled.Open(cfg.LEDChip, cfg.LEDLine, false)
		if err != nil {
			return err
		}
		defer led.Close()
	}

	transport := miditransport.New(bleLink, midiIn, midiOut, logger)
	defer transport.Close()
	if led != nil {
		transport.OnActivity(func() {
			if err := led.Flash(); err != nil {
				logger.Error("activity led flash failed", "err", err)
			}
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Advertise {
		if err := discovery.Announce(ctx, "", servicePort(cfg), logger); err != nil {
			logger.Error("dns-sd announce failed, continuing without it", "err", err)
		}
	}

	if err := transport.Start(ctx); err != nil {
		return err
	}

	logger.Info("ble-midi-bridge running", "link", cfg.Link, "midi_in", cfg.MIDIIn, "midi_out", cfg.MIDIOut)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

func openLink(cfg config.Config) (link.Link, error) {
	switch cfg.Link {
	case config.LinkSerial:
		return link.OpenSerial(cfg.SerialDevice, cfg.SerialSpeed, 20)
	case config.LinkUnix, "":
		ln, err := link.ListenSocket(cfg.Socket)
		if err != nil {
			return nil, err
		}
		return link.AcceptSocket(ln, 20)
	default:
		return nil, fmt.Errorf("unknown link type %q", cfg.Link)
	}
}

// servicePort is a placeholder for the port advertised under
// _ble-midi-bridge._tcp; the unix-socket link has no TCP port of its
// own, so announcing is only meaningful when paired with discovery
// tooling that resolves the advertised host and connects over the
// configured socket path out of band.
func servicePort(cfg config.Config) int {
	return 0
}
