// Package vecmath provides the 2D/3D vector primitives the grid, query and
// ORCA packages are built on.
package vecmath

import "math"

// Vector3 is a point or direction in the Z-up world frame.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vector3) Dot(other Vector3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vector3) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vector3) Length() float64 {
	return math.Sqrt(v.LengthSquared())
}

func (v Vector3) Normalize() Vector3 {
	l := v.Length()
	if l == 0 {
		return Vector3{}
	}
	return Vector3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}
}

func (v Vector3) DistanceTo(other Vector3) float64 {
	return v.Sub(other).Length()
}

func (v Vector3) DistanceToSquared(other Vector3) float64 {
	return v.Sub(other).LengthSquared()
}

// XY drops the Z component, the plane ORCA operates in.
func (v Vector3) XY() Vector2 {
	return Vector2{X: v.X, Y: v.Y}
}

// Vector2 is a point or direction in the ORCA XY plane.
type Vector2 struct {
	X, Y float64
}

func (v Vector2) Add(other Vector2) Vector2 {
	return Vector2{X: v.X + other.X, Y: v.Y + other.Y}
}

func (v Vector2) Sub(other Vector2) Vector2 {
	return Vector2{X: v.X - other.X, Y: v.Y - other.Y}
}

func (v Vector2) Scale(s float64) Vector2 {
	return Vector2{X: v.X * s, Y: v.Y * s}
}

func (v Vector2) Dot(other Vector2) float64 {
	return v.X*other.X + v.Y*other.Y
}

func (v Vector2) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

func (v Vector2) Length() float64 {
	return math.Sqrt(v.LengthSquared())
}

func (v Vector2) Normalize() Vector2 {
	l := v.Length()
	if l == 0 {
		return Vector2{}
	}
	return Vector2{X: v.X / l, Y: v.Y / l}
}

// Det is the 2D cross product / determinant of v and other: positive when
// other is to the left of v.
func (v Vector2) Det(other Vector2) float64 {
	return v.X*other.Y - v.Y*other.X
}

// Perp rotates v by 90 degrees counter-clockwise.
func (v Vector2) Perp() Vector2 {
	return Vector2{X: -v.Y, Y: v.X}
}

// To3 lifts a 2D vector back into 3D with the given Z.
func (v Vector2) To3(z float64) Vector3 {
	return Vector3{X: v.X, Y: v.Y, Z: z}
}

// LeftOf returns the signed area of the triangle (a, b, p); positive if p is
// left of the directed segment a->b.
func LeftOf(a, b, p Vector2) float64 {
	return b.Sub(a).Det(p.Sub(a))
}

// NearestOnSegment returns the closest point to p on segment [a,b] and the
// parametric t (clamped to [0,1]) at which it occurs.
func NearestOnSegment(p, a, b Vector3) (Vector3, float64) {
	ab := b.Sub(a)
	lenSq := ab.LengthSquared()
	if lenSq == 0 {
		return a, 0
	}
	t := p.Sub(a).Dot(ab) / lenSq
	t = Clamp(t, 0, 1)
	return a.Add(ab.Scale(t)), t
}

// PointToSegmentDistSq returns the squared distance from p to segment [a,b].
func PointToSegmentDistSq(p, a, b Vector3) float64 {
	nearest, _ := NearestOnSegment(p, a, b)
	return p.DistanceToSquared(nearest)
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Sqr(v float64) float64 { return v * v }

// Line is a directed half-plane boundary: the feasible side is
// {v : (v - Point) dot Perp(Direction) >= 0}.
type Line struct {
	Point     Vector2
	Direction Vector2
}
