package transfer

import "sort"

// RemainderGroup names the batch holding components that are in no group.
const RemainderGroup = "remainder"

// ReorderByComponent returns the instructions with the components named in
// order first, in that relative order, followed by every other instruction.
// Instructions keep their original relative order within each component
// and within the unnamed tail.
func ReorderByComponent(instructions []Instruction, order []string) []Instruction {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		if _, dup := rank[name]; !dup {
			rank[name] = i
		}
	}
	tail := len(order)
	key := func(in Instruction) int {
		if r, ok := rank[in.Component]; ok {
			return r
		}
		return tail
	}

	out := make([]Instruction, len(instructions))
	copy(out, instructions)
	sort.SliceStable(out, func(i, j int) bool {
		return key(out[i]) < key(out[j])
	})
	return out
}

// Group names a set of components dispensed together.
type Group struct {
	Name       string   `yaml:"name" json:"name"`
	Components []string `yaml:"components" json:"components"`
}

// Batch is the instruction list for one group.
type Batch struct {
	Name         string
	Instructions []Instruction
}

// SplitByComponentGroups partitions instructions into one batch per group, in
// group order, followed by a RemainderGroup batch for components no group
// names. A component named by more than one group belongs to the first.
// Every instruction lands in exactly one batch, in its original relative order.
func SplitByComponentGroups(instructions []Instruction, groups []Group) []Batch {
	owner := make(map[string]int)
	for gi, g := range groups {
		for _, c := range g.Components {
			if _, taken := owner[c]; !taken {
				owner[c] = gi
			}
		}
	}

	batches := make([]Batch, len(groups)+1)
	for i, g := range groups {
		batches[i].Name = g.Name
	}
	batches[len(groups)].Name = RemainderGroup

	for _, in := range instructions {
		gi, ok := owner[in.Component]
		if !ok {
			gi = len(groups)
		}
		batches[gi].Instructions = append(batches[gi].Instructions, in)
	}
	return batches
}
