package mob

import (
	"math"

	"github.com/nathoo/mobcore/types"
)

// Dist is the euclidean distance between two points.
func Dist(a, b types.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// AngleTo is the angle of the vector from a to b.
func AngleTo(a, b types.Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// Polar converts an angle and magnitude into a vector.
func Polar(angle, magnitude float64) types.Point {
	return types.Point{X: math.Cos(angle) * magnitude, Y: math.Sin(angle) * magnitude}
}

// Rotate rotates p around the origin.
func Rotate(p types.Point, angle float64) types.Point {
	c, s := math.Cos(angle), math.Sin(angle)
	return types.Point{X: p.X*c - p.Y*s, Y: p.X*s + p.Y*c}
}

// Add returns a+b.
func Add(a, b types.Point) types.Point {
	return types.Point{X: a.X + b.X, Y: a.Y + b.Y}
}

// Sub returns a-b.
func Sub(a, b types.Point) types.Point {
	return types.Point{X: a.X - b.X, Y: a.Y - b.Y}
}

// NormalizeAngle wraps an angle into (-pi, pi].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
