package workers

import (
	dbtypes "github.com/codtrack/fulfillment-engine/pkg/db/types"
)

// UpdateConfigInput carries a partial worker config update. Nil fields are
// left untouched; restriction lists replace the stored value wholesale.
type UpdateConfigInput struct {
	CanDoConfirmation *bool
	CanDoSuivi        *bool
	CanDoQuality      *bool
	CanDoCallback     *bool

	MaxConcurrentAssignments *int
	AutoAssignPriority       *int

	RestrictedCityIDs   *dbtypes.UUIDArray
	RestrictedSourceIDs *dbtypes.UUIDArray
}
