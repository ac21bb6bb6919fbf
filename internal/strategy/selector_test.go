package strategy

import (
	"testing"
	"time"

	"github.com/codtrack/fulfillment-engine/pkg/enums"
	pkgerrors "github.com/codtrack/fulfillment-engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRNG struct {
	values []int
	idx    int
}

func (f *fixedRNG) Intn(n int) int {
	v := f.values[f.idx%len(f.values)]
	f.idx++
	return v % n
}

func candidate(id string, count, priority int, lastAssigned *time.Time) Candidate {
	return Candidate{
		UserID:                 uuid.MustParse(id),
		CurrentAssignmentCount: count,
		AutoAssignPriority:     priority,
		LastAssignedAt:         lastAssigned,
	}
}

const (
	idA = "00000000-0000-0000-0000-00000000000a"
	idB = "00000000-0000-0000-0000-00000000000b"
	idC = "00000000-0000-0000-0000-00000000000c"
)

func TestPick_EmptyPool(t *testing.T) {
	sel := NewSelector(nil)
	_, err := sel.Pick(enums.AssignmentStrategyRoundRobin, nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNoEligibleWorker))
}

func TestPick_UnknownStrategy(t *testing.T) {
	sel := NewSelector(nil)
	_, err := sel.Pick(enums.AssignmentStrategy("chaos"), []Candidate{candidate(idA, 0, 0, nil)})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRoundRobin_NeverAssignedFirst(t *testing.T) {
	sel := NewSelector(nil)
	hourAgo := time.Now().Add(-time.Hour)

	picked, err := sel.Pick(enums.AssignmentStrategyRoundRobin, []Candidate{
		candidate(idA, 0, 0, &hourAgo),
		candidate(idB, 5, 0, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idB), picked)
}

func TestRoundRobin_OldestLastAssignedWins(t *testing.T) {
	sel := NewSelector(nil)
	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now().Add(-10 * time.Minute)

	picked, err := sel.Pick(enums.AssignmentStrategyRoundRobin, []Candidate{
		candidate(idA, 0, 0, &recent),
		candidate(idB, 0, 0, &old),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idB), picked)
}

func TestRoundRobin_UserIDTiebreak(t *testing.T) {
	sel := NewSelector(nil)
	ts := time.Now().Add(-time.Hour)

	picked, err := sel.Pick(enums.AssignmentStrategyRoundRobin, []Candidate{
		candidate(idC, 0, 0, &ts),
		candidate(idA, 0, 0, &ts),
		candidate(idB, 0, 0, &ts),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idA), picked)
}

func TestLeastLoaded_MinimumCountWins(t *testing.T) {
	sel := NewSelector(nil)

	picked, err := sel.Pick(enums.AssignmentStrategyLeastLoaded, []Candidate{
		candidate(idA, 3, 0, nil),
		candidate(idB, 1, 0, nil),
		candidate(idC, 2, 0, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idB), picked)
}

func TestLeastLoaded_RoundRobinTiebreak(t *testing.T) {
	sel := NewSelector(nil)
	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now().Add(-5 * time.Minute)

	picked, err := sel.Pick(enums.AssignmentStrategyLeastLoaded, []Candidate{
		candidate(idA, 2, 0, &recent),
		candidate(idB, 2, 0, &old),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idB), picked)
}

func TestRandom_UsesInjectedRNG(t *testing.T) {
	pool := []Candidate{
		candidate(idA, 0, 0, nil),
		candidate(idB, 0, 0, nil),
		candidate(idC, 0, 0, nil),
	}

	sel := NewSelector(&fixedRNG{values: []int{2, 0}})

	picked, err := sel.Pick(enums.AssignmentStrategyRandom, pool)
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idC), picked)

	picked, err = sel.Pick(enums.AssignmentStrategyRandom, pool)
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idA), picked)
}

func TestPriority_HighestWins(t *testing.T) {
	sel := NewSelector(nil)

	picked, err := sel.Pick(enums.AssignmentStrategyPriority, []Candidate{
		candidate(idA, 0, 1, nil),
		candidate(idB, 0, 9, nil),
		candidate(idC, 0, 5, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idB), picked)
}

func TestPriority_LeastLoadedTiebreak(t *testing.T) {
	sel := NewSelector(nil)

	picked, err := sel.Pick(enums.AssignmentStrategyPriority, []Candidate{
		candidate(idA, 4, 5, nil),
		candidate(idB, 1, 5, nil),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idB), picked)
}

func TestPriority_FullTiebreakChain(t *testing.T) {
	sel := NewSelector(nil)
	old := time.Now().Add(-3 * time.Hour)
	recent := time.Now().Add(-time.Minute)

	picked, err := sel.Pick(enums.AssignmentStrategyPriority, []Candidate{
		candidate(idA, 2, 5, &recent),
		candidate(idB, 2, 5, &old),
	})
	require.NoError(t, err)
	assert.Equal(t, uuid.MustParse(idB), picked)
}
