package sampling

import (
	"context"
)

// Coordinate grid of RequestCoordinates.
const (
	latitudeRange   = 180
	latitudeOffset  = -90
	longitudeRange  = 360
	longitudeOffset = -180
)

// Coordinate is a point on the integer-degree grid.
type Coordinate struct {
	Latitude  int64 `json:"latitude"`
	Longitude int64 `json:"longitude"`
}

// RequestRandomInt returns a random integer in [min, max).
func (e *Engine) RequestRandomInt(ctx context.Context, min, max int64) (int64, error) {
	return e.NextIntInRange(ctx, min, max)
}

// RequestRandomHex returns a random lowercase hex string of the given length.
func (e *Engine) RequestRandomHex(ctx context.Context, length int) (string, error) {
	return e.NextHexString(ctx, length)
}

// RequestCoordinates returns count random coordinates.
func (e *Engine) RequestCoordinates(ctx context.Context, count int) ([]Coordinate, error) {
	pairs, err := e.NextCoordinatePairs(ctx, latitudeRange, longitudeRange, count)
	if err != nil {
		return nil, err
	}

	coords := make([]Coordinate, len(pairs))
	for i, p := range pairs {
		coords[i] = Coordinate{
			Latitude:  p.Lat + latitudeOffset,
			Longitude: p.Lon + longitudeOffset,
		}
	}
	return coords, nil
}
