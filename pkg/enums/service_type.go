package enums

import "fmt"

// ServiceType identifies one worker-performed processing stage of an order.
type ServiceType string

const (
	ServiceTypeConfirmation ServiceType = "confirmation"
	ServiceTypeSuivi        ServiceType = "suivi"
	ServiceTypeQuality      ServiceType = "quality"
	ServiceTypeCallback     ServiceType = "callback"
)

var validServiceTypes = []ServiceType{
	ServiceTypeConfirmation,
	ServiceTypeSuivi,
	ServiceTypeQuality,
	ServiceTypeCallback,
}

// ServiceTypes returns every known service type in pipeline order.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, len(validServiceTypes))
	copy(out, validServiceTypes)
	return out
}

// String implements fmt.Stringer.
func (s ServiceType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ServiceType.
func (s ServiceType) IsValid() bool {
	for _, candidate := range validServiceTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseServiceType converts raw input into a ServiceType.
func ParseServiceType(value string) (ServiceType, error) {
	for _, candidate := range validServiceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid service type %q", value)
}
