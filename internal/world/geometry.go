package world

import "math"

// Vec2 is a 2D point or direction in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns the component-wise sum of two vectors.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns the component-wise difference of two vectors.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale multiplies both components by f.
func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

// Length returns the Euclidean magnitude.
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalized returns a unit vector pointing the same way, or the zero vector.
func (v Vec2) Normalized() Vec2 {
	length := v.Length()
	if length == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / length, Y: v.Y / length}
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Vec2) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// CircleRectOverlap reports whether a circle intersects an obstacle rectangle.
func CircleRectOverlap(cx, cy, radius float64, obs Obstacle) bool {
	closestX := Clamp(cx, obs.X, obs.X+obs.Width)
	closestY := Clamp(cy, obs.Y, obs.Y+obs.Height)
	dx := cx - closestX
	dy := cy - closestY
	return dx*dx+dy*dy < radius*radius
}

// SegmentRectIntersects reports whether the segment a→b crosses an obstacle
// rectangle. Used by line-of-sight and throw-path queries.
func SegmentRectIntersects(a, b Vec2, obs Obstacle) bool {
	// Either endpoint inside the rect counts as an intersection.
	if pointInRect(a, obs) || pointInRect(b, obs) {
		return true
	}
	corners := [4]Vec2{
		{X: obs.X, Y: obs.Y},
		{X: obs.X + obs.Width, Y: obs.Y},
		{X: obs.X + obs.Width, Y: obs.Y + obs.Height},
		{X: obs.X, Y: obs.Y + obs.Height},
	}
	for i := 0; i < 4; i++ {
		if segmentsIntersect(a, b, corners[i], corners[(i+1)%4]) {
			return true
		}
	}
	return false
}

func pointInRect(p Vec2, obs Obstacle) bool {
	return p.X >= obs.X && p.X <= obs.X+obs.Width && p.Y >= obs.Y && p.Y <= obs.Y+obs.Height
}

func segmentsIntersect(p1, p2, p3, p4 Vec2) bool {
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return d1 == 0 && onSegment(p3, p4, p1) ||
		d2 == 0 && onSegment(p3, p4, p2) ||
		d3 == 0 && onSegment(p1, p2, p3) ||
		d4 == 0 && onSegment(p1, p2, p4)
}

func cross(a, b, c Vec2) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

func onSegment(a, b, p Vec2) bool {
	return math.Min(a.X, b.X) <= p.X && p.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= p.Y && p.Y <= math.Max(a.Y, b.Y)
}
