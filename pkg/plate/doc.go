// Package plate provides the well-plate data model shared by every stage of
// echoplan: well addressing, plates holding per-well component volumes, and the
// persisted plate record format.
//
// # Addressing
//
// A plate of R rows and C columns has R*C wells with linear indices 0..R*C-1.
// The fill orientation decides how an index maps onto a label:
//
//   - Vertical (column-major):   index = row + column*R
//   - Horizontal (row-major):    index = column + row*C
//
// Rows are named A..Z, then AA, AB, ... AZ, BA, ... (the alphabet concatenated
// with itself), matching the labels printed on 1536-well plates. Columns are
// numbered from 1.
//
//	label, _ := plate.LabelOf(17, plate.Dimensions{Rows: 16, Columns: 24}, plate.Vertical)
//	// label.String() == "B2"
//
// # Plates
//
// A Plate owns its wells and its fill cursor. Wells are created on first
// write; an empty well has no entry at all. Every write is capacity-checked
// against the plate's well capacity, which includes the dead volume.
//
// # Records
//
// Record is the persisted form of a plate (dimensions as "RxC", dead volume,
// well capacity and the well map). The cursor is not persisted.
package plate
