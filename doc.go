// Package usbswitch holds the configuration surface of the usbswitch tool,
// a command-line utility that routes the USB peripheral on the CAN Switcher
// carrier board either to the host computer or to the externally connected
// target.
//
// Because several independent processes may drive the same board, shared
// configuration, and shared caches, every command coordinates through the
// cross-process advisory locks in package resourcelock. The hardware side
// lives in internal/switcher and is deliberately thin: a pin-level port
// expander interface with the routing decision on top.
//
// The usbswitch binary under cmd/usbswitch wires the pieces together:
//
//	usbswitch connect pc     # route the peripheral to the host
//	usbswitch connect ecu    # route the peripheral to the target
//	usbswitch locks          # show which resource locks are held, and by whom
//	usbswitch exclusive -- cmd [args...]  # run cmd holding every lock
package usbswitch
