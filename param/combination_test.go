package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinationsOrder(t *testing.T) {
	combos := Combinations([]int{225, 235}, []int{40, 45}, []float64{17, 17.5})
	require.Len(t, combos, 8)

	want := []Combination{
		{225, 40, 17}, {225, 40, 17.5},
		{225, 45, 17}, {225, 45, 17.5},
		{235, 40, 17}, {235, 40, 17.5},
		{235, 45, 17}, {235, 45, 17.5},
	}
	assert.Equal(t, want, combos)
}

func TestCombinationsEmptyDimension(t *testing.T) {
	assert.Empty(t, Combinations([]int{225}, nil, []float64{17}))
}

func TestCombinationFormatting(t *testing.T) {
	c := Combination{Width: 225, Ratio: 45, Diameter: 17.5}
	assert.Equal(t, "17.5", c.DiameterString())
	assert.Equal(t, "225/45R17.5", c.Size())
	assert.Equal(t, "225-45-17.5", c.String())

	c.Diameter = 17
	assert.Equal(t, "225/45R17", c.Size())
}

func TestScrapeTaskLifecycle(t *testing.T) {
	task := NewScrapeTask("tirerack", "10001", Combination{225, 40, 17})
	assert.Equal(t, TaskPending, task.Status)
	assert.False(t, task.Done())
	assert.Equal(t, "tirerack/10001/225-40-17", task.String())

	task.Status = TaskFailed
	assert.True(t, task.Done())
}
