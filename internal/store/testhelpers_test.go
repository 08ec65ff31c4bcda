package store

import (
	"testing"

	"github.com/dyluth/echoplan/internal/transfer"
	"github.com/dyluth/echoplan/pkg/plate"
	"github.com/stretchr/testify/require"
)

// sampleRun builds a small valid run with one destination and one source plate
func sampleRun(t *testing.T, name string, createdAtMs int64) *Run {
	t.Helper()
	spec := plate.Spec{Dimensions: plate.Dimensions{Rows: 16, Columns: 24}, WellCapacity: 65000, DeadVolume: 15000}

	dst, err := plate.New(spec)
	require.NoError(t, err)
	require.NoError(t, dst.FillWellAt(plate.MustParseLabel("A1"), "nacl", 2500))
	require.NoError(t, dst.FillWellAt(plate.MustParseLabel("A1"), "water", 37500))

	src, err := plate.New(spec)
	require.NoError(t, err)
	require.NoError(t, src.FillWellAt(plate.MustParseLabel("A1"), "nacl", 17500))
	require.NoError(t, src.FillWellAt(plate.MustParseLabel("B1"), "water", 52500))

	instructions := []transfer.Instruction{
		{
			SourcePlate: "Source[1]", SourcePlateType: "384PP_AQ_BP",
			SourceWell:       transfer.SingleWell(plate.MustParseLabel("A1")),
			DestinationPlate: "Destination[1]", DestinationWell: plate.MustParseLabel("A1"),
			Volume: 2500, Component: "nacl",
		},
		{
			SourcePlate: "Source[1]", SourcePlateType: "384PP_AQ_BP",
			SourceWell:       transfer.SingleWell(plate.MustParseLabel("B1")),
			DestinationPlate: "Destination[1]", DestinationWell: plate.MustParseLabel("A1"),
			Volume: 37500, Component: "water",
		},
	}

	r := NewRun(name, []*plate.Plate{dst}, []*plate.Plate{src}, instructions)
	if createdAtMs > 0 {
		r.CreatedAtMs = createdAtMs
	}
	return r
}

// requireSameRun compares two runs field by field, plates by content
func requireSameRun(t *testing.T, want, got *Run) {
	t.Helper()
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.CreatedAtMs, got.CreatedAtMs)
	require.Equal(t, want.Destinations, got.Destinations)
	require.Equal(t, want.Sources, got.Sources)
	require.Len(t, got.Instructions, len(want.Instructions))
	for i := range want.Instructions {
		require.Equal(t, want.Instructions[i].String(), got.Instructions[i].String())
		require.True(t, want.Instructions[i].SourceWell.Equal(got.Instructions[i].SourceWell))
	}
}

func mustLabel(s string) plate.WellLabel {
	return plate.MustParseLabel(s)
}
