package enums

import "fmt"

// OrderPhase is an order's position in the fulfillment pipeline.
type OrderPhase string

const (
	OrderPhaseNew          OrderPhase = "new"
	OrderPhaseConfirmation OrderPhase = "confirmation"
	OrderPhaseShipping     OrderPhase = "shipping"
)

var validOrderPhases = []OrderPhase{
	OrderPhaseNew,
	OrderPhaseConfirmation,
	OrderPhaseShipping,
}

// String implements fmt.Stringer.
func (o OrderPhase) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderPhase.
func (o OrderPhase) IsValid() bool {
	for _, candidate := range validOrderPhases {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderPhase converts raw input into an OrderPhase.
func ParseOrderPhase(value string) (OrderPhase, error) {
	for _, candidate := range validOrderPhases {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order phase %q", value)
}
