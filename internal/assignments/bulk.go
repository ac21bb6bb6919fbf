package assignments

import (
	"context"
)

// Bulk operations run each item in its own transaction; partial success is
// the normal outcome and item failures never abort the batch.

func (s *service) BulkAssign(ctx context.Context, items []AssignInput) *BulkResult {
	result := NewBulkResult(len(items))
	for _, item := range items {
		created, err := s.Assign(ctx, item)
		if err != nil {
			result.AddFailure(item.OrderID.String(), err)
			continue
		}
		result.AddSuccess(created.ID.String())
	}
	return result
}

func (s *service) BulkSelfAssign(ctx context.Context, items []AssignInput) *BulkResult {
	result := NewBulkResult(len(items))
	for _, item := range items {
		created, err := s.SelfAssign(ctx, item)
		if err != nil {
			result.AddFailure(item.OrderID.String(), err)
			continue
		}
		result.AddSuccess(created.ID.String())
	}
	return result
}

func (s *service) BulkReassign(ctx context.Context, items []ReassignInput) *BulkResult {
	result := NewBulkResult(len(items))
	for _, item := range items {
		created, err := s.Reassign(ctx, item)
		if err != nil {
			result.AddFailure(item.AssignmentID.String(), err)
			continue
		}
		result.AddSuccess(created.ID.String())
	}
	return result
}

func (s *service) BulkCompleteSuivi(ctx context.Context, items []CompleteSuiviInput) *BulkResult {
	result := NewBulkResult(len(items))
	for _, item := range items {
		completed, err := s.CompleteSuivi(ctx, item)
		if err != nil {
			result.AddFailure(item.AssignmentID.String(), err)
			continue
		}
		result.AddSuccess(completed.ID.String())
	}
	return result
}
