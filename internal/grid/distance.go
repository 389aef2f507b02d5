package grid

import (
	"sort"
)

// Radius is the Chebyshev distance between two cells in lattice units.
func Radius(a, b FineCell) int {
	return max(abs(a.Lat-b.Lat), abs(a.Lon-b.Lon))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type Ranked struct {
	Key    string
	Cell   FineCell
	Radius int
}

// Rank orders GeoBlock keys by radius from origin's block. Keys at the same
// radius are ordered by plain string comparison, not numerically, so signed
// keys sort by their byte values.
func Rank(keys []string, origin Coordinate) ([]Ranked, error) {
	center := FineCellOf(origin.Lat, origin.Lon)

	buckets := make(map[int][]Ranked)
	for _, k := range keys {
		c, err := ParseFineKey(k)
		if err != nil {
			return nil, err
		}
		r := Radius(center, c)
		buckets[r] = append(buckets[r], Ranked{Key: k, Cell: c, Radius: r})
	}

	radii := make([]int, 0, len(buckets))
	for r := range buckets {
		radii = append(radii, r)
	}
	sort.Ints(radii)

	out := make([]Ranked, 0, len(keys))
	for _, r := range radii {
		b := buckets[r]
		sort.SliceStable(b, func(i, j int) bool { return b[i].Key < b[j].Key })
		out = append(out, b...)
	}
	return out, nil
}

// SortByDistance is Rank without the radius annotations.
func SortByDistance(keys []string, origin Coordinate) ([]string, error) {
	ranked, err := Rank(keys, origin)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Key
	}
	return out, nil
}
