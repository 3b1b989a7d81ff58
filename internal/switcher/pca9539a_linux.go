//go:build linux

package switcher

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// PCA9539A register addresses, per the NXP datasheet.
const (
	regInput0  = 0x00
	regOutput0 = 0x02
	regConfig0 = 0x06
)

const i2cSlaveIoctl = 0x0703 // I2C_SLAVE from linux/i2c-dev.h

// PCA9539A drives the NXP PCA9539A 16-bit port expander over Linux i2c-dev.
type PCA9539A struct {
	mu   sync.Mutex
	dev  *os.File
	addr int
}

// OpenPCA9539A binds the expander at addr on the given bus index.
func OpenPCA9539A(bus, addr int) (*PCA9539A, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	dev, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("i2c interface %s is not enabled: %w", path, err)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(dev.Fd()), i2cSlaveIoctl, addr); err != nil {
		dev.Close()
		return nil, fmt.Errorf("select i2c device %#x on %s: %w", addr, path, err)
	}
	return &PCA9539A{dev: dev, addr: addr}, nil
}

// ConfigureDirections marks pins of a port as outputs. The configuration
// register uses 1 for input, so the mask is inverted on the way in.
func (e *PCA9539A) ConfigureDirections(port uint8, outputs uint8) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writeReg(regConfig0+port, ^outputs)
}

// SetPin drives one output pin via read-modify-write of the output register.
func (e *PCA9539A) SetPin(port, pin uint8, level bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	current, err := e.readReg(regOutput0 + port)
	if err != nil {
		return err
	}
	next := current &^ (1 << pin)
	if level {
		next = current | 1<<pin
	}
	if next == current {
		return nil
	}
	return e.writeReg(regOutput0+port, next)
}

// Pin reads the level of one pin from the input register.
func (e *PCA9539A) Pin(port, pin uint8) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	value, err := e.readReg(regInput0 + port)
	if err != nil {
		return false, err
	}
	return value&(1<<pin) != 0, nil
}

// Close releases the bus handle.
func (e *PCA9539A) Close() error {
	return e.dev.Close()
}

func (e *PCA9539A) writeReg(reg, value uint8) error {
	if _, err := e.dev.Write([]byte{reg, value}); err != nil {
		return fmt.Errorf("write register %#x on device %#x: %w", reg, e.addr, err)
	}
	return nil
}

func (e *PCA9539A) readReg(reg uint8) (uint8, error) {
	if _, err := e.dev.Write([]byte{reg}); err != nil {
		return 0, fmt.Errorf("select register %#x on device %#x: %w", reg, e.addr, err)
	}
	buf := make([]byte, 1)
	if _, err := e.dev.Read(buf); err != nil {
		return 0, fmt.Errorf("read register %#x on device %#x: %w", reg, e.addr, err)
	}
	return buf[0], nil
}
