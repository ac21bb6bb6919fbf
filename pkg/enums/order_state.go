package enums

import "fmt"

// OrderState is an order's outcome independent of its pipeline phase.
type OrderState string

const (
	OrderStateNew       OrderState = "new"
	OrderStateConfirmed OrderState = "confirmed"
	OrderStateCancelled OrderState = "cancelled"
	OrderStateCallback  OrderState = "callback"
	OrderStateDelivered OrderState = "delivered"
	OrderStateReturned  OrderState = "returned"
)

var validOrderStates = []OrderState{
	OrderStateNew,
	OrderStateConfirmed,
	OrderStateCancelled,
	OrderStateCallback,
	OrderStateDelivered,
	OrderStateReturned,
}

// String implements fmt.Stringer.
func (o OrderState) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderState.
func (o OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the order accepts no further assignments.
func (o OrderState) IsTerminal() bool {
	switch o {
	case OrderStateDelivered, OrderStateReturned, OrderStateCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
