package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const keySep = "_"

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("malformed grid key")

type ParseError struct {
	Key    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse grid key %q: %s", e.Key, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// FineCell is a 0.0005 x 0.0005 degree block in scaled lattice units.
type FineCell struct {
	Lat int
	Lon int
}

// CoarseCell is a 1 x 1 degree block.
type CoarseCell struct {
	Lat int
	Lon int
}

func FineCellOf(lat, lon float64) FineCell {
	return FineCell{Lat: Quantize(lat), Lon: Quantize(lon)}
}

func CoarseCellOf(lat, lon float64) CoarseCell {
	return FineCellOf(lat, lon).Coarse()
}

func (c FineCell) Coarse() CoarseCell {
	return CoarseCell{Lat: floorDiv(c.Lat, Scale), Lon: floorDiv(c.Lon, Scale)}
}

func (c FineCell) Key() string {
	return formatFine(c.Lat) + keySep + formatFine(c.Lon)
}

func (c CoarseCell) Key() string {
	return formatCoarse(c.Lat) + keySep + formatCoarse(c.Lon)
}

// FineKey returns the GeoBlock key, e.g. "0377805_-1224010".
func FineKey(lat, lon float64) string {
	return FineCellOf(lat, lon).Key()
}

// CoarseKey returns the BigGeoBlock key, e.g. "037_-123".
func CoarseKey(lat, lon float64) string {
	return CoarseCellOf(lat, lon).Key()
}

// padding counts digits only; a minus sign is an extra character
func formatFine(v int) string {
	if v < 0 {
		return fmt.Sprintf("%08d", v)
	}
	return fmt.Sprintf("%07d", v)
}

func formatCoarse(v int) string {
	if v < 0 {
		return fmt.Sprintf("%04d", v)
	}
	return fmt.Sprintf("%03d", v)
}

func ParseFineKey(key string) (FineCell, error) {
	lat, lon, err := parsePair(key)
	if err != nil {
		return FineCell{}, err
	}
	return FineCell{Lat: lat, Lon: lon}, nil
}

func ParseCoarseKey(key string) (CoarseCell, error) {
	lat, lon, err := parsePair(key)
	if err != nil {
		return CoarseCell{}, err
	}
	return CoarseCell{Lat: lat, Lon: lon}, nil
}

func parsePair(key string) (int, int, error) {
	parts := strings.Split(key, keySep)
	if len(parts) != 2 {
		return 0, 0, &ParseError{Key: key, Reason: fmt.Sprintf("want 2 components, got %d", len(parts))}
	}
	lat, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, &ParseError{Key: key, Reason: fmt.Sprintf("latitude component %q is not an integer", parts[0])}
	}
	lon, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, &ParseError{Key: key, Reason: fmt.Sprintf("longitude component %q is not an integer", parts[1])}
	}
	return lat, lon, nil
}
