package domain

import (
	"fmt"
	"strings"
)

// MaxDeviceNameLength bounds device names; they are embedded in storage keys.
const MaxDeviceNameLength = 128

// DeviceID identifies a mounted device. Name is the cluster-wide key;
// Address is the management endpoint the owning member connects to.
type DeviceID struct {
	Name    string `json:"name" koanf:"name"`
	Address string `json:"address" koanf:"address"`
}

// NewDeviceID creates and validates a DeviceID.
func NewDeviceID(name, address string) (DeviceID, error) {
	id := DeviceID{Name: name, Address: address}
	return id, id.Validate()
}

// Validate checks the device name.
func (d DeviceID) Validate() error {
	if d.Name == "" {
		return ErrDeviceInvalid.WithDetails("name is required")
	}
	if len(d.Name) > MaxDeviceNameLength {
		return ErrDeviceInvalid.WithDetails(fmt.Sprintf("name exceeds %d characters", MaxDeviceNameLength))
	}
	if strings.ContainsAny(d.Name, "\x00/") {
		return ErrDeviceInvalid.WithDetails("name must not contain '/' or NUL")
	}
	return nil
}

// String returns "name" or "name@address".
func (d DeviceID) String() string {
	if d.Address == "" {
		return d.Name
	}
	return d.Name + "@" + d.Address
}
