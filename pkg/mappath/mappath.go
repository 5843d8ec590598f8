// Copyright (c) 2026 Wasteland Blues. All rights reserved.

// Package mappath provides coordinate geometry helpers for the map canvas.
//
// Coordinates are expressed as percentages of the map space ([0,100] on both
// axes), so the generated paths scale with the rendered canvas on the client.
package mappath

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Point is a position in percentage-of-map-space coordinates.
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between two points.
func Distance(from, to Point) float64 {
	dx := to.X - from.X
	dy := to.Y - from.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RoadPath generates a curved SVG path between two points.
//
// The control point of the quadratic curve is jittered around the midpoint so
// roads do not render as sterile straight lines. The jitter is bounded by the
// distance between the endpoints, keeping short roads from looping.
func RoadPath(from, to Point) string {
	midX := (from.X + to.X) / 2
	midY := (from.Y + to.Y) / 2

	offset := math.Min(20, Distance(from, to)/4)
	controlX := midX + (rand.Float64()-0.5)*offset
	controlY := midY + (rand.Float64()-0.5)*offset

	return fmt.Sprintf("M %g%% %g%% Q %g%% %g%% %g%% %g%%",
		from.X, from.Y, controlX, controlY, to.X, to.Y)
}
