// Package switcher routes the USB peripheral on the carrier board to the
// host computer or to the externally connected target by toggling the USB
// switch pin on the I2C port expander. Every operation that reaches the
// physical bus runs under the TargetInteraction resource lock, so only one
// process drives the hardware at a time.
package switcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/usbswitch/resourcelock"
)

// Target is where the USB peripheral gets routed.
type Target int

const (
	// TargetHost routes the peripheral to the host computer.
	TargetHost Target = iota
	// TargetExternal routes the peripheral to the external USB connector.
	TargetExternal
)

// String returns the CLI spelling of the target.
func (t Target) String() string {
	switch t {
	case TargetHost:
		return "pc"
	case TargetExternal:
		return "ecu"
	}
	return fmt.Sprintf("target(%d)", int(t))
}

// ParseTarget resolves the CLI spelling of a routing target.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pc":
		return TargetHost, nil
	case "ecu":
		return TargetExternal, nil
	}
	return 0, fmt.Errorf("invalid target %q: choose \"pc\" or \"ecu\"", s)
}

// Switcher owns the routing decision on top of a pin-level expander.
type Switcher struct {
	expander Expander
	locks    *resourcelock.Registry
	pinout   Pinout
	standard string
	logger   pslog.Logger
}

// New builds a Switcher for the given board standard and brings the
// expander's pin directions and default levels into a known state. The
// setup pass holds the TargetInteraction lock like every other bus access.
func New(ctx context.Context, expander Expander, locks *resourcelock.Registry, standard string, logger pslog.Logger) (*Switcher, error) {
	pinout, err := PinoutFor(standard)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	s := &Switcher{
		expander: expander,
		locks:    locks,
		pinout:   pinout,
		standard: standard,
		logger:   logger.With("sys", "switcher"),
	}
	if err := s.locks.With(ctx, resourcelock.TargetInteraction, s.applyDefaults); err != nil {
		return nil, fmt.Errorf("initialise port expander: %w", err)
	}
	return s, nil
}

// applyDefaults configures pin directions and drives output pins to their
// default levels. Runs under the TargetInteraction lock.
func (s *Switcher) applyDefaults(context.Context) error {
	var outputs [2]uint8
	for _, a := range s.pinout {
		if a.Output {
			outputs[a.Port] |= 1 << a.Pin
		}
	}
	for port := uint8(0); port < 2; port++ {
		if err := s.expander.ConfigureDirections(port, outputs[port]); err != nil {
			return err
		}
	}
	for fn, a := range s.pinout {
		if !a.Output {
			continue
		}
		if err := s.expander.SetPin(a.Port, a.Pin, a.Default); err != nil {
			return fmt.Errorf("set default level of %s: %w", fn, err)
		}
	}
	return nil
}

// Connect routes the USB peripheral to the given target.
func (s *Switcher) Connect(ctx context.Context, target Target) error {
	switch target {
	case TargetHost:
		return s.ConnectToHost(ctx)
	case TargetExternal:
		return s.ConnectToExternal(ctx)
	}
	return fmt.Errorf("invalid target %v", target)
}

// ConnectToHost routes the peripheral to the host computer.
func (s *Switcher) ConnectToHost(ctx context.Context) error {
	s.logger.Info("usb.route", "target", TargetHost.String())
	// Board standard 2.0 inverted the USB switch polarity.
	return s.driveUSBSwitch(ctx, s.standard == "2.0")
}

// ConnectToExternal routes the peripheral to the external USB connector.
func (s *Switcher) ConnectToExternal(ctx context.Context) error {
	s.logger.Info("usb.route", "target", TargetExternal.String())
	return s.driveUSBSwitch(ctx, s.standard != "2.0")
}

func (s *Switcher) driveUSBSwitch(ctx context.Context, level bool) error {
	a, ok := s.pinout[FuncUSBSwitch]
	if !ok {
		return fmt.Errorf("board standard %q has no USB switch pin", s.standard)
	}
	return s.locks.With(ctx, resourcelock.TargetInteraction, func(context.Context) error {
		return s.expander.SetPin(a.Port, a.Pin, level)
	})
}

// deviceTreeHatDir is the overlay directory advertising installed hats.
var deviceTreeHatDir = "/proc/device-tree/hat"

// Installed reports whether the device tree advertises the USB switcher
// hat. Unreadable entries are skipped rather than failing the probe.
func Installed() bool {
	entries, err := os.ReadDir(deviceTreeHatDir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(deviceTreeHatDir, entry.Name()))
		if err != nil {
			continue
		}
		if strings.Contains(string(contents), "usb_switcher") {
			return true
		}
	}
	return false
}
