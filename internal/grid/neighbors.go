package grid

// NeighborCount is the size of the 3x3 coarse neighbourhood.
const NeighborCount = 9

// Neighbors returns the 3x3 block of BigGeoBlock keys around coarseKey,
// itself included, row-major with latitude varying slowest. Keys are
// re-derived through the coordinate path and never de-duplicated.
func Neighbors(coarseKey string) ([]string, error) {
	c, err := ParseCoarseKey(coarseKey)
	if err != nil {
		return nil, err
	}
	return neighborsOf(c), nil
}

// NeighborsOf is Neighbors for the BigGeoBlock containing (lat, lon).
func NeighborsOf(lat, lon float64) []string {
	return neighborsOf(CoarseCellOf(lat, lon))
}

func neighborsOf(c CoarseCell) []string {
	out := make([]string, 0, NeighborCount)
	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			out = append(out, CoarseKey(float64(c.Lat+i), float64(c.Lon+j)))
		}
	}
	return out
}
