package domain

import (
	"fmt"
	"strings"
)

// Store selects one of the two data trees of a device.
type Store int

const (
	StoreConfiguration Store = iota
	StoreOperational
)

// String returns the canonical store name.
func (s Store) String() string {
	switch s {
	case StoreConfiguration:
		return "configuration"
	case StoreOperational:
		return "operational"
	default:
		return fmt.Sprintf("store(%d)", int(s))
	}
}

// Valid reports whether s is a known store.
func (s Store) Valid() bool {
	return s == StoreConfiguration || s == StoreOperational
}

// ParseStore parses a store name. Short forms "config" and "oper" are accepted.
func ParseStore(s string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "configuration", "config", "cfg":
		return StoreConfiguration, nil
	case "operational", "oper", "op":
		return StoreOperational, nil
	}
	return 0, ErrInvalidArgument.WithDetails(fmt.Sprintf("unknown store %q", s))
}
