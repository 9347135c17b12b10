package main

import "math"

// Vec3 is a world-space position or direction. Y is up.
type Vec3 struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	Z float64 `json:"z" msgpack:"z"`
}

// V3 is shorthand for building a Vec3
func V3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

func (v Vec3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalize returns the unit vector, or the zero vector for a zero input
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Flat drops the height component
func (v Vec3) Flat() Vec3 {
	return Vec3{v.X, 0, v.Z}
}

func (v Vec3) DistanceTo(o Vec3) float64 {
	return o.Sub(v).Len()
}

// HorizontalDistanceTo ignores height, used by hover/dive checks
func (v Vec3) HorizontalDistanceTo(o Vec3) float64 {
	return o.Sub(v).Flat().Len()
}

// Yaw returns the heading of the flattened vector around the up axis
func (v Vec3) Yaw() float64 {
	return math.Atan2(v.X, v.Z)
}

func (v Vec3) round() Vec3 {
	return Vec3{round2(v.X), round2(v.Y), round2(v.Z)}
}
