package switcher

// Expander is the pin-level surface of the I2C port expander. The switching
// logic only ever talks to pins; register and wire details stay behind this
// interface.
type Expander interface {
	// ConfigureDirections marks the given pins of a port as outputs (bit
	// set in outputs means output).
	ConfigureDirections(port uint8, outputs uint8) error
	// SetPin drives one output pin high or low.
	SetPin(port, pin uint8, level bool) error
	// Pin reads the current level of one pin.
	Pin(port, pin uint8) (bool, error)
	// Close releases the underlying bus handle.
	Close() error
}
