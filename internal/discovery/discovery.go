// Package discovery announces the running bridge over mDNS/DNS-SD so
// desktop tooling can find a headless bridge without a fixed address,
// using the pure-Go github.com/brutella/dnssd package.
package discovery

import (
	"context"
	"fmt"
	"os"

	"github.com/brutella/dnssd"
	"github.com/charmbracelet/log"
)

// ServiceType is the DNS-SD service type advertised for this bridge.
const ServiceType = "_ble-midi-bridge._tcp"

// Announce registers name (or a hostname-derived default) as an
// _ble-midi-bridge._tcp service on port and starts responding to mDNS
// queries in the background until ctx is cancelled.
func Announce(ctx context.Context, name string, port int, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if name == "" {
		name = defaultServiceName()
	}

	cfg := dnssd.Config{
		Name: name,
		Type: ServiceType,
		Port: port,
	}

	svc, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("discovery: create service: %w", err)
	}

	responder, err := dnssd.NewResponder()
	if err != nil {
		return fmt.Errorf("discovery: create responder: %w", err)
	}

	if _, err := responder.Add(svc); err != nil {
		return fmt.Errorf("discovery: add service: %w", err)
	}

	logger.Info("announcing BLE-MIDI bridge", "name", name, "port", port)

	go func() {
		if err := responder.Respond(ctx); err != nil && ctx.Err() == nil {
			logger.Error("dns-sd responder error", "err", err)
		}
	}()

	return nil
}

func defaultServiceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "ble-midi-bridge"
	}
	return "ble-midi-bridge @ " + host
}
