package layers

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// Activator is the per-element nonlinearity of a layer together with its
// analytic derivative. Tag identifies the variant on disk.
type Activator interface {
	Activate(x float32) float32
	Derivative(x float32) float32
	Tag() string
	fmt.Stringer
}

// ActivatorLookup maps on-disk tags to activators.
var ActivatorLookup = map[string]Activator{
	ReLU{}.Tag():    ReLU{},
	Sigmoid{}.Tag(): Sigmoid{},
}

// ParseActivator resolves a user-facing name ("relu", "sigmoid") or a tag.
func ParseActivator(name string) (Activator, error) {
	if act, ok := ActivatorLookup[name]; ok {
		return act, nil
	}
	for _, act := range ActivatorLookup {
		if strings.EqualFold(act.String(), name) {
			return act, nil
		}
	}
	return nil, fmt.Errorf("%w: activation %q", ErrUnknownTag, name)
}

// ReLU is max(0, x).
type ReLU struct{}

func (ReLU) Activate(x float32) float32 {
	if x < 0 {
		return 0
	}
	return x
}

// Derivative is taken as 0 at x == 0.
func (ReLU) Derivative(x float32) float32 {
	if x > 0 {
		return 1
	}
	return 0
}

func (ReLU) Tag() string    { return "REL" }
func (ReLU) String() string { return "relu" }

// Sigmoid is the logistic function 1/(1+e^-x).
type Sigmoid struct{}

func (Sigmoid) Activate(x float32) float32 {
	return 1 / (1 + math32.Exp(-x))
}

func (s Sigmoid) Derivative(x float32) float32 {
	sig := s.Activate(x)
	return sig * (1 - sig)
}

func (Sigmoid) Tag() string    { return "SIG" }
func (Sigmoid) String() string { return "sigmoid" }
