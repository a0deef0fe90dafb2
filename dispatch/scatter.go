package dispatch

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/safing/entropool/sampling"
)

const (
	metersPerDegree = 111_320
	bytesPerPoint   = 16
	maxPoints       = 1000
)

// Point is a location in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Distance  float64 `json:"distance"`
}

// ScatterEngine is the built-in engine. It scatters points uniformly over the
// circle around the center, using the record content as its only source of
// randomness. A filter level above zero keeps only that many points closest
// to the center.
var ScatterEngine = EngineFunc(scatter)

func scatter(ctx context.Context, in *Input) (Result, error) {
	data, err := hex.DecodeString(in.Entropy)
	if err != nil {
		return nil, fmt.Errorf("invalid entropy: %w", err)
	}

	count := min(len(data)/bytesPerPoint, maxPoints)
	if count == 0 {
		return nil, fmt.Errorf("not enough entropy for a single point")
	}
	engine := sampling.NewEngine(sampling.NewReaderSource(bytes.NewReader(data)), sampling.Options{})

	points := make([]Point, 0, count)
	for i := 0; i < count; i++ {
		u1, err := engine.NextDouble(ctx)
		if err != nil {
			return nil, err
		}
		u2, err := engine.NextDouble(ctx)
		if err != nil {
			return nil, err
		}

		angle := 2 * math.Pi * u1
		distance := in.Radius * math.Sqrt(u2)
		lat := in.Latitude + distance*math.Cos(angle)/metersPerDegree
		lon := in.Longitude
		if cos := math.Cos(lat * math.Pi / 180); cos > 1e-9 {
			lon += distance * math.Sin(angle) / (metersPerDegree * cos)
		}
		points = append(points, Point{
			Latitude:  lat,
			Longitude: lon,
			Distance:  distance,
		})
	}

	if in.Filter > 0 && in.Filter < len(points) {
		sort.Slice(points, func(i, j int) bool {
			return points[i].Distance < points[j].Distance
		})
		points = points[:in.Filter]
	}

	return Result{
		"points": points,
		"count":  len(points),
	}, nil
}
