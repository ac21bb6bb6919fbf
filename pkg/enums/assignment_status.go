package enums

import "fmt"

// AssignmentStatus tracks the lifecycle of an order assignment.
type AssignmentStatus string

const (
	AssignmentStatusPending    AssignmentStatus = "pending"
	AssignmentStatusTaken      AssignmentStatus = "taken"
	AssignmentStatusCompleted  AssignmentStatus = "completed"
	AssignmentStatusReleased   AssignmentStatus = "released"
	AssignmentStatusReassigned AssignmentStatus = "reassigned"
	AssignmentStatusExpired    AssignmentStatus = "expired"
)

var validAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusPending,
	AssignmentStatusTaken,
	AssignmentStatusCompleted,
	AssignmentStatusReleased,
	AssignmentStatusReassigned,
	AssignmentStatusExpired,
}

// ActiveAssignmentStatuses are the statuses that count toward the
// single-active-assignment-per-stage rule and the worker load counter.
var ActiveAssignmentStatuses = []AssignmentStatus{
	AssignmentStatusPending,
	AssignmentStatusTaken,
}

// String implements fmt.Stringer.
func (a AssignmentStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssignmentStatus.
func (a AssignmentStatus) IsValid() bool {
	for _, candidate := range validAssignmentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsActive reports whether the assignment still occupies its stage slot.
func (a AssignmentStatus) IsActive() bool {
	return a == AssignmentStatusPending || a == AssignmentStatusTaken
}

// IsTerminal reports whether no further transitions are possible.
func (a AssignmentStatus) IsTerminal() bool {
	return a.IsValid() && !a.IsActive()
}

// ParseAssignmentStatus converts raw input into an AssignmentStatus.
func ParseAssignmentStatus(value string) (AssignmentStatus, error) {
	for _, candidate := range validAssignmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment status %q", value)
}
