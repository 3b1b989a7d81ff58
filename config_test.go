package usbswitch_test

import (
	"strings"
	"testing"

	"pkt.systems/usbswitch"
	"pkt.systems/usbswitch/resourcelock"
)

func TestValidateAppliesDefaults(t *testing.T) {
	t.Parallel()

	cfg := usbswitch.Config{ExpanderAddress: usbswitch.DefaultExpanderAddress}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.LockDir != resourcelock.DefaultDirectory() {
		t.Fatalf("LockDir = %q, want the default coordination directory", cfg.LockDir)
	}
	if cfg.BoardStandard != usbswitch.DefaultBoardStandard {
		t.Fatalf("BoardStandard = %q, want %q", cfg.BoardStandard, usbswitch.DefaultBoardStandard)
	}
}

func TestValidateRejectsBadAddress(t *testing.T) {
	t.Parallel()

	for _, addr := range []int{0, -1, 0x80, 0x1000} {
		cfg := usbswitch.DefaultConfig()
		cfg.ExpanderAddress = addr
		if err := cfg.Validate(); err == nil {
			t.Fatalf("Validate accepted expander address %#x", addr)
		}
	}
}

func TestValidateRejectsNegativeBus(t *testing.T) {
	t.Parallel()

	cfg := usbswitch.DefaultConfig()
	cfg.I2CBus = -1
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "bus") {
		t.Fatalf("Validate error = %v, want a bus index error", err)
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	t.Parallel()

	cfg := usbswitch.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate on defaults: %v", err)
	}
}
