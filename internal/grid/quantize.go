// Package grid maps coordinates onto the fixed GeoBlock lattice and ranks
// blocks by grid distance.
package grid

import (
	"fmt"
	"math"
)

const (
	// Scale turns degrees into integer lattice units.
	Scale = 10000
	// Step is the lattice spacing in scaled units (0.0005 degrees).
	Step = 5

	nearLatticeTolerance = 0.0000001
)

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Quantize snaps a coordinate axis onto the lattice, returning the scaled
// integer. Positive values are floored and negative values ceilinged away
// from zero. NaN and Inf are rejected with a panic.
func Quantize(coord float64) int {
	if math.IsNaN(coord) || math.IsInf(coord, 0) {
		panic(fmt.Sprintf("grid: cannot quantize non-finite coordinate %v", coord))
	}

	// truncate, do not round: -4.5 is really -4.50000000001
	scaled := int(coord * Scale)

	// multiples of five degrees scale exactly
	if math.Mod(coord, 5) == 0 {
		return scaled
	}
	if scaled%Step == 0 && scaled > 0 {
		return scaled
	}
	// negative values sitting on a lattice line only after truncation
	if scaled%Step == 0 && scaled < 0 && float64(scaled)-coord*Scale < nearLatticeTolerance {
		return scaled
	}

	last := scaled % 100

	if coord >= 0 {
		if last >= 0 && last < Step {
			return scaled - last
		}
		return scaled - last + Step
	}
	if last <= 0 && last > -Step {
		return scaled - last - Step
	}
	return scaled - last - 2*Step
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
