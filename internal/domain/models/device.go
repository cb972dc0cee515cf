package models

import "strings"

type Device struct {
	DeviceID string `json:"device_id" db:"device_id"`
	Address  string `json:"address" db:"address"`
	Selected bool   `json:"selected" db:"selected"`
}

// DeviceID derives a filesystem-safe identifier from a network address.
func DeviceID(address string) string {
	return strings.NewReplacer(".", "_", ":", "_", "/", "_").Replace(address)
}

func NewDevice(address string) Device {
	return Device{
		DeviceID: DeviceID(address),
		Address:  address,
		Selected: true,
	}
}
