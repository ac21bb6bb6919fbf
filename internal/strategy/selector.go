package strategy

import (
	"math/rand"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/google/uuid"
)

// Candidate is a point-in-time snapshot of a worker eligible for a stage.
// Eligibility filtering (capability, online, restrictions, capacity) happens
// before candidates reach the selector; selection itself is pure.
type Candidate struct {
	UserID                 uuid.UUID
	CurrentAssignmentCount int
	AutoAssignPriority     int
	LastAssignedAt         *time.Time
}

// RNG is the subset of math/rand the random strategy needs, injected so tests
// can fix the sequence.
type RNG interface {
	Intn(n int) int
}

// Selector picks one worker from an eligible pool according to the configured
// strategy.
type Selector struct {
	rng RNG
}

// NewSelector builds a selector. A nil rng falls back to a time-seeded source.
func NewSelector(rng RNG) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// Pick returns the chosen worker's ID. An empty pool yields
// CodeNoEligibleWorker.
func (s *Selector) Pick(strategy enums.AssignmentStrategy, pool []Candidate) (uuid.UUID, error) {
	if len(pool) == 0 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNoEligibleWorker, "no eligible worker for stage")
	}

	switch strategy {
	case enums.AssignmentStrategyRoundRobin:
		return pickRoundRobin(pool).UserID, nil
	case enums.AssignmentStrategyLeastLoaded:
		return pickLeastLoaded(pool).UserID, nil
	case enums.AssignmentStrategyRandom:
		return pool[s.rng.Intn(len(pool))].UserID, nil
	case enums.AssignmentStrategyPriority:
		return pickPriority(pool).UserID, nil
	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown assignment strategy")
	}
}

// pickRoundRobin prefers workers never assigned before, then the oldest
// last_assigned_at; user ID breaks remaining ties deterministically.
func pickRoundRobin(pool []Candidate) Candidate {
	best := pool[0]
	for _, c := range pool[1:] {
		if roundRobinLess(c, best) {
			best = c
		}
	}
	return best
}

func roundRobinLess(a, b Candidate) bool {
	switch {
	case a.LastAssignedAt == nil && b.LastAssignedAt != nil:
		return true
	case a.LastAssignedAt != nil && b.LastAssignedAt == nil:
		return false
	case a.LastAssignedAt != nil && b.LastAssignedAt != nil:
		if !a.LastAssignedAt.Equal(*b.LastAssignedAt) {
			return a.LastAssignedAt.Before(*b.LastAssignedAt)
		}
	}
	return a.UserID.String() < b.UserID.String()
}

// pickLeastLoaded takes the minimum live count, falling back to round-robin
// order among equals.
func pickLeastLoaded(pool []Candidate) Candidate {
	best := pool[0]
	for _, c := range pool[1:] {
		if c.CurrentAssignmentCount < best.CurrentAssignmentCount {
			best = c
			continue
		}
		if c.CurrentAssignmentCount == best.CurrentAssignmentCount && roundRobinLess(c, best) {
			best = c
		}
	}
	return best
}

// pickPriority takes the highest auto_assign_priority, falling back to
// least-loaded order among equals.
func pickPriority(pool []Candidate) Candidate {
	best := pool[0]
	for _, c := range pool[1:] {
		if c.AutoAssignPriority > best.AutoAssignPriority {
			best = c
			continue
		}
		if c.AutoAssignPriority == best.AutoAssignPriority {
			if c.CurrentAssignmentCount < best.CurrentAssignmentCount {
				best = c
				continue
			}
			if c.CurrentAssignmentCount == best.CurrentAssignmentCount && roundRobinLess(c, best) {
				best = c
			}
		}
	}
	return best
}
