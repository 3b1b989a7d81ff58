package switcher

import "fmt"

// PinFunc names the board functions routed through the port expander.
type PinFunc string

const (
	FuncUSBSwitch     PinFunc = "USB_Switch"
	FuncCANShort      PinFunc = "Switch_CAN_Short"
	FuncEEPROMWP      PinFunc = "Eeprom_WP"
	funcRelayPrefix           = "Relay_"
	funcRoutePrefix           = "Route_CAN_"
)

// PinAssignment places one board function on an expander pin.
type PinAssignment struct {
	Port    uint8
	Pin     uint8
	Output  bool
	Default bool // default output level for output pins
}

// Pinout maps board functions to expander pins for one board standard.
type Pinout map[PinFunc]PinAssignment

func relayFunc(n int) PinFunc { return PinFunc(fmt.Sprintf("%s%d", funcRelayPrefix, n)) }
func routeFunc(n int) PinFunc { return PinFunc(fmt.Sprintf("%s%d", funcRoutePrefix, n)) }

func basePinout() Pinout {
	p := Pinout{
		FuncUSBSwitch: {Port: 0, Pin: 6, Output: true, Default: false},
	}
	for n := 1; n <= 5; n++ {
		p[relayFunc(n)] = PinAssignment{Port: 0, Pin: uint8(n - 1), Output: true, Default: true}
	}
	p[relayFunc(6)] = PinAssignment{Port: 0, Pin: 5, Output: false}
	for n := 1; n <= 8; n++ {
		p[routeFunc(n)] = PinAssignment{Port: 1, Pin: uint8(n - 1), Output: true, Default: false}
	}
	return p
}

func pinoutV10() Pinout {
	p := basePinout()
	p[FuncCANShort] = PinAssignment{Port: 0, Pin: 7, Output: true, Default: false}
	return p
}

func pinoutDefault() Pinout {
	p := basePinout()
	p[FuncEEPROMWP] = PinAssignment{Port: 0, Pin: 7, Output: true, Default: true}
	return p
}

// pinouts keys board standard versions to their pin layout. Standard 2.0
// shares the 1.2 layout; only the USB switch polarity differs, which
// Switcher handles.
var pinouts = map[string]Pinout{
	"1.0": pinoutV10(),
	"1.1": pinoutDefault(),
	"1.2": pinoutDefault(),
	"2.0": pinoutDefault(),
}

// PinoutFor resolves the pin layout for a board standard version.
func PinoutFor(standard string) (Pinout, error) {
	p, ok := pinouts[standard]
	if !ok {
		return nil, fmt.Errorf("no pin layout for board standard %q", standard)
	}
	return p, nil
}
