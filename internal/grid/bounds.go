package grid

import "github.com/paulmach/orb"

// Bound is the lattice square the fine cell anchors, in degrees (lon, lat).
func (c FineCell) Bound() orb.Bound {
	minLat := float64(c.Lat) / Scale
	minLon := float64(c.Lon) / Scale
	step := float64(Step) / Scale
	return orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{minLon + step, minLat + step},
	}
}
