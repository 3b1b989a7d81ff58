//go:build !windows

package switcher_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"golang.org/x/sys/unix"
	"pkt.systems/usbswitch/internal/switcher"
	"pkt.systems/usbswitch/resourcelock"
)

type pinKey struct {
	port, pin uint8
}

// fakeExpander records pin writes; onSet observes each write in order.
type fakeExpander struct {
	mu         sync.Mutex
	directions map[uint8]uint8
	pins       map[pinKey]bool
	onSet      func(port, pin uint8, level bool)
}

func newFakeExpander() *fakeExpander {
	return &fakeExpander{
		directions: make(map[uint8]uint8),
		pins:       make(map[pinKey]bool),
	}
}

func (f *fakeExpander) ConfigureDirections(port uint8, outputs uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directions[port] = outputs
	return nil
}

func (f *fakeExpander) SetPin(port, pin uint8, level bool) error {
	f.mu.Lock()
	f.pins[pinKey{port, pin}] = level
	hook := f.onSet
	f.mu.Unlock()
	if hook != nil {
		hook(port, pin, level)
	}
	return nil
}

func (f *fakeExpander) Pin(port, pin uint8) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pins[pinKey{port, pin}], nil
}

func (f *fakeExpander) Close() error { return nil }

func (f *fakeExpander) level(t *testing.T, port, pin uint8) bool {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	level, ok := f.pins[pinKey{port, pin}]
	if !ok {
		t.Fatalf("pin %d.%d was never written", port, pin)
	}
	return level
}

func newTestLocks(t *testing.T) *resourcelock.Registry {
	t.Helper()
	r, err := resourcelock.NewRegistry(resourcelock.WithRegistryDirectory(t.TempDir()))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

// flockHeld reports whether path is exclusively flock-held by someone.
func flockHeld(t *testing.T, path string) bool {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return true
		}
		t.Fatalf("flock %s: %v", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		t.Fatalf("funlock %s: %v", path, err)
	}
	return false
}

func TestNewAppliesDefaultDirectionsAndLevels(t *testing.T) {
	t.Parallel()

	exp := newFakeExpander()
	locks := newTestLocks(t)
	if _, err := switcher.New(context.Background(), exp, locks, "1.2", nil); err != nil {
		t.Fatalf("New: %v", err)
	}
	// Standard 1.2: port 0 pin 5 is the only input, port 1 is all outputs.
	if got := exp.directions[0]; got != 0xdf {
		t.Fatalf("port 0 direction mask = %#x, want 0xdf", got)
	}
	if got := exp.directions[1]; got != 0xff {
		t.Fatalf("port 1 direction mask = %#x, want 0xff", got)
	}
	// Relays default on, EEPROM write protection default on.
	if !exp.level(t, 0, 0) {
		t.Fatal("Relay_1 default level should be high")
	}
	if !exp.level(t, 0, 7) {
		t.Fatal("Eeprom_WP default level should be high")
	}
	if exp.level(t, 0, 6) {
		t.Fatal("USB switch default level should be low")
	}
}

func TestConnectPolarityFollowsBoardStandard(t *testing.T) {
	t.Parallel()

	cases := []struct {
		standard      string
		hostLevel     bool
		externalLevel bool
	}{
		{standard: "1.0", hostLevel: false, externalLevel: true},
		{standard: "1.2", hostLevel: false, externalLevel: true},
		{standard: "2.0", hostLevel: true, externalLevel: false},
	}
	for _, tc := range cases {
		t.Run(tc.standard, func(t *testing.T) {
			t.Parallel()

			exp := newFakeExpander()
			locks := newTestLocks(t)
			sw, err := switcher.New(context.Background(), exp, locks, tc.standard, nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := sw.ConnectToHost(context.Background()); err != nil {
				t.Fatalf("ConnectToHost: %v", err)
			}
			if got := exp.level(t, 0, 6); got != tc.hostLevel {
				t.Fatalf("host routing level = %v, want %v", got, tc.hostLevel)
			}
			if err := sw.ConnectToExternal(context.Background()); err != nil {
				t.Fatalf("ConnectToExternal: %v", err)
			}
			if got := exp.level(t, 0, 6); got != tc.externalLevel {
				t.Fatalf("external routing level = %v, want %v", got, tc.externalLevel)
			}
		})
	}
}

func TestConnectHoldsTargetInteractionLock(t *testing.T) {
	t.Parallel()

	exp := newFakeExpander()
	locks := newTestLocks(t)
	sw, err := switcher.New(context.Background(), exp, locks, "1.2", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	lockPath := locks.Mutex(resourcelock.TargetInteraction).Path()
	sawHeld := false
	exp.onSet = func(uint8, uint8, bool) {
		sawHeld = flockHeld(t, lockPath)
	}
	if err := sw.ConnectToHost(context.Background()); err != nil {
		t.Fatalf("ConnectToHost: %v", err)
	}
	if !sawHeld {
		t.Fatal("bus write ran without the target_interaction lock")
	}
	if flockHeld(t, lockPath) {
		t.Fatal("target_interaction lock leaked after the routing call")
	}
}

func TestNewRejectsUnknownBoardStandard(t *testing.T) {
	t.Parallel()

	if _, err := switcher.New(context.Background(), newFakeExpander(), newTestLocks(t), "9.9", nil); err == nil {
		t.Fatal("expected an error for an unknown board standard")
	}
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    switcher.Target
		wantErr bool
	}{
		{in: "pc", want: switcher.TargetHost},
		{in: "ECU", want: switcher.TargetExternal},
		{in: " Pc ", want: switcher.TargetHost},
		{in: "printer", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := switcher.ParseTarget(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseTarget(%q) succeeded, want error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTarget(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTarget(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
