//go:build !linux

package main

import (
	"errors"

	"pkt.systems/usbswitch"
	"pkt.systems/usbswitch/internal/switcher"
)

func openExpander(*usbswitch.Config) (switcher.Expander, error) {
	return nil, errors.New("the usb switcher hardware is only reachable on linux (i2c-dev)")
}
