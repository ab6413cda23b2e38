package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mib = 1 << 20

func TestPlanChunks_EmptyAsset(t *testing.T) {
	assert.Empty(t, PlanChunks(0, time.Minute, Limits{MaxBytes: 25 * mib}))
}

func TestPlanChunks_UnderCeilingIsWhole(t *testing.T) {
	segs := PlanChunks(10*mib, 30*time.Minute, Limits{MaxBytes: 25 * mib, SegmentDuration: 10 * time.Minute})
	require.Len(t, segs, 1)
	assert.True(t, segs[0].Whole)
	assert.Equal(t, time.Duration(0), segs[0].Start)
	assert.Equal(t, 30*time.Minute, segs[0].End)
}

func TestPlanChunks_ExactCeilingIsWhole(t *testing.T) {
	segs := PlanChunks(25*mib, time.Hour, Limits{MaxBytes: 25 * mib, SegmentDuration: 10 * time.Minute})
	require.Len(t, segs, 1)
	assert.True(t, segs[0].Whole)
}

func TestPlanChunks_SplitsWithTruncatedTail(t *testing.T) {
	segs := PlanChunks(60*mib, 25*time.Minute, Limits{MaxBytes: 25 * mib, SegmentDuration: 10 * time.Minute})
	require.Len(t, segs, 3)

	assert.Equal(t, Segment{Index: 0, Start: 0, End: 10 * time.Minute}, segs[0])
	assert.Equal(t, Segment{Index: 1, Start: 10 * time.Minute, End: 20 * time.Minute}, segs[1])
	assert.Equal(t, Segment{Index: 2, Start: 20 * time.Minute, End: 25 * time.Minute}, segs[2])
	assert.Equal(t, 5*time.Minute, segs[2].Duration())
}

func TestPlanChunks_ContiguousCoverage(t *testing.T) {
	total := 47*time.Minute + 13*time.Second
	segs := PlanChunks(100*mib, total, Limits{MaxBytes: 25 * mib, SegmentDuration: 10 * time.Minute})

	var covered time.Duration
	for i, s := range segs {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, covered, s.Start)
		assert.False(t, s.Whole)
		covered = s.End
	}
	assert.Equal(t, total, covered)
}

func TestPlanChunks_DerivedBudget(t *testing.T) {
	// 50 MiB / 60 分钟，上限 25 MiB -> 每段 30 分钟
	segs := PlanChunks(50*mib, time.Hour, Limits{MaxBytes: 25 * mib})
	require.Len(t, segs, 2)
	assert.Equal(t, 30*time.Minute, segs[0].Duration())
	assert.Equal(t, 30*time.Minute, segs[1].Duration())
}

func TestDerivedBudget_Minimum(t *testing.T) {
	assert.Equal(t, time.Second, derivedBudget(1000*mib, 2*time.Second, 1))
}
