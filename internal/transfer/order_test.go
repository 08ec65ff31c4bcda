package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(components ...string) []Instruction {
	out := make([]Instruction, len(components))
	for i, c := range components {
		out[i] = Instruction{Component: c, Volume: float64(i + 1)}
	}
	return out
}

func TestReorderByComponent(t *testing.T) {
	in := seq("a", "water", "b", "dye", "a", "water", "c")
	got := ReorderByComponent(in, []string{"water", "dye", "absent"})

	assert.Equal(t, []float64{2, 6, 4, 1, 3, 5, 7}, volumes(got))
	assert.Equal(t, "a", in[0].Component, "input is not modified")

	assert.Equal(t, volumes(in), volumes(ReorderByComponent(in, nil)), "no order keeps the input order")
}

func TestSplitByComponentGroups(t *testing.T) {
	in := seq("a", "water", "b", "dye", "a", "water", "c")
	groups := []Group{
		{Name: "reagents", Components: []string{"a", "b"}},
		{Name: "fill", Components: []string{"water", "a"}},
		{Name: "empty", Components: []string{"zzz"}},
	}
	batches := SplitByComponentGroups(in, groups)
	if assert.Len(t, batches, 4) {
		assert.Equal(t, "reagents", batches[0].Name)
		assert.Equal(t, []float64{1, 3, 5}, volumes(batches[0].Instructions))
		assert.Equal(t, []float64{2, 6}, volumes(batches[1].Instructions))
		assert.Empty(t, batches[2].Instructions)
		assert.Equal(t, RemainderGroup, batches[3].Name)
		assert.Equal(t, []float64{4, 7}, volumes(batches[3].Instructions))
	}

	total := 0
	for _, b := range batches {
		total += len(b.Instructions)
	}
	assert.Equal(t, len(in), total, "no instruction dropped or duplicated")
}
