package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

var errReadBytes = errors.New("confloader: map provider has no byte form")

// mapProvider is a koanf.Provider over dotted keys.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errReadBytes
}

func (m mapProvider) Read() (map[string]any, error) {
	return maps.Unflatten(m, "."), nil
}
