//go:build linux

package main

import (
	"fmt"

	"pkt.systems/usbswitch"
	"pkt.systems/usbswitch/internal/switcher"
)

func openExpander(cfg *usbswitch.Config) (switcher.Expander, error) {
	if !switcher.Installed() {
		return nil, fmt.Errorf("the usb switcher hat is not advertised by the device tree")
	}
	return switcher.OpenPCA9539A(cfg.I2CBus, cfg.ExpanderAddress)
}
