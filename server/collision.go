package main

import "math"

// CheckCollision checks if two circles overlap on the ground plane
func CheckCollision(x1, z1, r1, x2, z2, r2 float64) bool {
	dx := x2 - x1
	dz := z2 - z1
	dist2 := dx*dx + dz*dz
	radSum := r1 + r2
	return dist2 <= radSum*radSum
}

// raySphereIntersect returns the distance along a normalized ray to the first
// intersection with a sphere, if it lies within [0, maxDist].
// An origin inside the sphere hits at distance 0.
func raySphereIntersect(origin, dir, center Vec3, radius, maxDist float64) (float64, bool) {
	f := origin.Sub(center)
	c := f.Dot(f) - radius*radius
	if c <= 0 {
		return 0, true
	}
	b := f.Dot(dir)
	if b > 0 {
		// origin outside and pointing away
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 || t > maxDist {
		return 0, false
	}
	return t, true
}

// Body is the core's view of a rendered mesh: a position, a heading and a
// bounding sphere. The asset layer guarantees every entity has one.
type Body struct {
	pos      Vec3
	yaw      float64
	radius   float64
	released bool
}

// NewBody creates a spatial body with a bounding sphere radius
func NewBody(pos Vec3, radius float64) *Body {
	return &Body{pos: pos, radius: radius}
}

// Position returns the body center
func (b *Body) Position() Vec3 {
	return b.pos
}

// SetPosition moves the body
func (b *Body) SetPosition(p Vec3) {
	b.pos = p
}

// Yaw returns the facing angle in radians
func (b *Body) Yaw() float64 {
	return b.yaw
}

// Radius returns the bounding-sphere radius
func (b *Body) Radius() float64 {
	return b.radius
}

// FaceTowards turns the body toward a target on the ground plane
func (b *Body) FaceTowards(target Vec3) {
	d := target.Sub(b.pos).Flat()
	if d.Len() == 0 {
		return
	}
	b.yaw = d.Yaw()
}

// DistanceTo returns the 3D distance from the center to p
func (b *Body) DistanceTo(p Vec3) float64 {
	return b.pos.DistanceTo(p)
}

// IntersectRay tests a normalized ray against the bounding sphere
func (b *Body) IntersectRay(origin, dir Vec3, maxDist float64) (float64, bool) {
	if b.released {
		return 0, false
	}
	return raySphereIntersect(origin, dir, b.pos, b.radius, maxDist)
}

// Release marks the body as handed back to the asset layer
func (b *Body) Release() {
	b.released = true
}

// Released reports whether the body was handed back
func (b *Body) Released() bool {
	return b.released
}
