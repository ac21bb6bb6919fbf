package enums

import "fmt"

// ReturnToConfirmationMode controls where a returned suivi sends the order.
type ReturnToConfirmationMode string

const (
	// ReturnModeSameWorker reopens confirmation targeted at the worker who
	// originally confirmed the order.
	ReturnModeSameWorker ReturnToConfirmationMode = "same_worker"
	// ReturnModeOpen drops the order back into the unassigned pool.
	ReturnModeOpen ReturnToConfirmationMode = "open"
	// ReturnModeChoose parks the order for an explicit supervisor decision.
	ReturnModeChoose ReturnToConfirmationMode = "choose"
)

var validReturnModes = []ReturnToConfirmationMode{
	ReturnModeSameWorker,
	ReturnModeOpen,
	ReturnModeChoose,
}

// String implements fmt.Stringer.
func (r ReturnToConfirmationMode) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnToConfirmationMode.
func (r ReturnToConfirmationMode) IsValid() bool {
	for _, candidate := range validReturnModes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnToConfirmationMode converts raw input into a ReturnToConfirmationMode.
func ParseReturnToConfirmationMode(value string) (ReturnToConfirmationMode, error) {
	for _, candidate := range validReturnModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return-to-confirmation mode %q", value)
}
