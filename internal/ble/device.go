package ble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	"github.com/pkg/errors"
)

// OpenDevice opens the default HCI device and registers it with the BLE
// stack. Call once per process before scanning; scanning usually needs
// CAP_NET_ADMIN or root.
func OpenDevice() error {
	device, err := linux.NewDevice()
	if err != nil {
		return errors.Wrap(err, "failed to open ble device")
	}
	ble.SetDefaultDevice(device)
	return nil
}

// CloseDevice detaches the HCI device.
func CloseDevice() error {
	return ble.Stop()
}
