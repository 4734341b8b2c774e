// Package initwfn wraps Gorgonia weight initializers behind a typed
// configuration so that the initialization scheme can live in an
// experiment configuration file.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of weight initializers that are
// available
type Type string

// Available initializer types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	HeU     Type = "HeU"
	HeN     Type = "HeN"
	Zeroes  Type = "Zeroes"
)

// InitWFn describes a Gorgonia weight initializer. Gain is ignored by
// the Zeroes initializer.
type InitWFn struct {
	Type Type    `yaml:"type"`
	Gain float64 `yaml:"gain"`
}

// NewGlorotU returns a Glorot uniform initializer configuration
func NewGlorotU(gain float64) InitWFn {
	return InitWFn{Type: GlorotU, Gain: gain}
}

// Validate returns an error if the configuration describes no
// constructible initializer
func (w InitWFn) Validate() error {
	switch w.Type {
	case GlorotU, GlorotN, HeU, HeN, Zeroes:
		return nil
	}
	return fmt.Errorf("validate: no such initializer type %q", w.Type)
}

// Create returns the Gorgonia InitWFn described by the configuration
func (w InitWFn) Create() (G.InitWFn, error) {
	switch w.Type {
	case GlorotU:
		return G.GlorotU(w.Gain), nil
	case GlorotN:
		return G.GlorotN(w.Gain), nil
	case HeU:
		return G.HeU(w.Gain), nil
	case HeN:
		return G.HeN(w.Gain), nil
	case Zeroes:
		return G.Zeroes(), nil
	}
	return nil, fmt.Errorf("create: no such initializer type %q", w.Type)
}
