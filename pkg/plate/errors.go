package plate

import "errors"

var (
	// ErrOutOfRange indicates a well label, index or cursor position outside the plate.
	ErrOutOfRange = errors.New("plate: well out of range")
	// ErrCapacityExceeded indicates a fill would overflow a well.
	ErrCapacityExceeded = errors.New("plate: well capacity exceeded")
	// ErrInvalidCapacity indicates a well capacity that leaves no usable volume
	// above the dead volume, or a negative capacity or dead volume.
	ErrInvalidCapacity = errors.New("plate: invalid well capacity")
	// ErrNegativeDiluent indicates a sample whose components already exceed the
	// target sample volume.
	ErrNegativeDiluent = errors.New("plate: negative diluent volume")
	// ErrInvalidVolume indicates a negative or non-finite volume.
	ErrInvalidVolume = errors.New("plate: invalid volume")
	// ErrInvalidLabel indicates a well label that cannot be parsed.
	ErrInvalidLabel = errors.New("plate: invalid well label")
	// ErrInvalidDimensions indicates plate dimensions that are not positive or
	// exceed the addressable row range.
	ErrInvalidDimensions = errors.New("plate: invalid dimensions")
)
