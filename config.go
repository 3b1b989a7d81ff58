package usbswitch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/usbswitch/resourcelock"
)

const (
	// DefaultConfigFileName is the config file searched for when --config is omitted.
	DefaultConfigFileName = "config.yaml"
	// DefaultAcquireTimeout bounds how long commands wait for a contended lock.
	DefaultAcquireTimeout = 60 * time.Second
	// DefaultI2CBus is the index of the I2C peripheral the port expander sits on.
	DefaultI2CBus = 1
	// DefaultExpanderAddress is the PCA9539A address on an unprogrammed board.
	DefaultExpanderAddress = 0x74
	// DefaultBoardStandard selects the pinout and USB switch polarity when
	// the board does not advertise one.
	DefaultBoardStandard = "1.2"
)

// Config captures the tunables for the usbswitch tool.
type Config struct {
	// LockDir is the shared coordination directory holding the lock files.
	// Empty selects resourcelock.DefaultDirectory().
	LockDir string
	// AcquireTimeout bounds lock waits for every command; zero or negative
	// waits forever.
	AcquireTimeout time.Duration
	// I2CBus is the index of the I2C peripheral.
	I2CBus int
	// ExpanderAddress is the port expander address on the bus.
	ExpanderAddress int
	// BoardStandard is the carrier board standard version ("1.0" .. "2.0").
	// Standard 2.0 inverts the USB switch pin polarity.
	BoardStandard string
	// LogLevel overrides the log level when non-empty.
	LogLevel string
}

// Validate normalizes and checks the configuration in place.
func (c *Config) Validate() error {
	c.LockDir = strings.TrimSpace(c.LockDir)
	if c.LockDir == "" {
		c.LockDir = resourcelock.DefaultDirectory()
	}
	if c.I2CBus < 0 {
		return fmt.Errorf("i2c bus index %d is negative", c.I2CBus)
	}
	if c.ExpanderAddress <= 0 || c.ExpanderAddress > 0x7f {
		return fmt.Errorf("expander address %#x is outside the 7-bit range", c.ExpanderAddress)
	}
	c.BoardStandard = strings.TrimSpace(c.BoardStandard)
	if c.BoardStandard == "" {
		c.BoardStandard = DefaultBoardStandard
	}
	return nil
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	return Config{
		LockDir:         resourcelock.DefaultDirectory(),
		AcquireTimeout:  DefaultAcquireTimeout,
		I2CBus:          DefaultI2CBus,
		ExpanderAddress: DefaultExpanderAddress,
		BoardStandard:   DefaultBoardStandard,
	}
}

// DefaultConfigDir returns the default configuration directory
// ($HOME/.usbswitch, overridable via USBSWITCH_CONFIG_DIR).
func DefaultConfigDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("USBSWITCH_CONFIG_DIR")); override != "" {
		if filepath.IsAbs(override) {
			return override, nil
		}
		return filepath.Abs(override)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".usbswitch"), nil
}
