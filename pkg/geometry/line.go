package geometry

import "math"

// Line represents an infinite line through Base with unit direction Dir.
type Line struct {
	Base Point2D
	Dir  Point2D
}

// LineThrough returns the line through a and b, directed from a to b.
func LineThrough(a, b Point2D) Line {
	return Line{Base: a, Dir: b.Sub(a).Normalized()}
}

// SignedDistanceTo returns the signed perpendicular distance from the line
// to p. The sign is positive on the left side of the direction vector.
func (l Line) SignedDistanceTo(p Point2D) float64 {
	return l.Dir.Cross(p.Sub(l.Base))
}

// DistanceTo returns the perpendicular distance from the line to p.
func (l Line) DistanceTo(p Point2D) float64 {
	return math.Abs(l.SignedDistanceTo(p))
}

// Hyperplane represents a line in Hesse normal form: all points q with
// Normal.Dot(q) == Offset. Normal is a unit vector.
type Hyperplane struct {
	Normal Point2D
	Offset float64
}

// HyperplaneFor returns the hyperplane with the given unit normal passing
// through p.
func HyperplaneFor(normal, p Point2D) Hyperplane {
	return Hyperplane{Normal: normal, Offset: normal.Dot(p)}
}

// SignedDistance returns the signed distance from the hyperplane to p.
func (h Hyperplane) SignedDistance(p Point2D) float64 {
	return h.Normal.Dot(p) - h.Offset
}

// Distance returns the absolute distance from the hyperplane to p.
func (h Hyperplane) Distance(p Point2D) float64 {
	return math.Abs(h.SignedDistance(p))
}

// Intersect returns the intersection point of two hyperplanes. The second
// return value is false if the lines are (near) parallel.
func (h Hyperplane) Intersect(other Hyperplane) (Point2D, bool) {
	det := h.Normal.X*other.Normal.Y - h.Normal.Y*other.Normal.X
	if math.Abs(det) < 1e-12 {
		return Point2D{}, false
	}
	return Point2D{
		X: (h.Offset*other.Normal.Y - other.Offset*h.Normal.Y) / det,
		Y: (h.Normal.X*other.Offset - other.Normal.X*h.Offset) / det,
	}, true
}

// DistanceToSegment returns the distance from p to the segment [a, b].
func DistanceToSegment(a, b, p Point2D) float64 {
	ab := b.Sub(a)
	lenSq := ab.SquaredNorm()
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := p.Sub(a).Dot(ab) / lenSq
	if t < 0 {
		return p.Distance(a)
	}
	if t > 1 {
		return p.Distance(b)
	}
	return p.Distance(a.Add(ab.Scale(t)))
}

// IsPointLeftOf reports whether p lies strictly left of the directed line
// from a to b.
func IsPointLeftOf(a, b, p Point2D) bool {
	return b.Sub(a).Cross(p.Sub(a)) > 0
}

// SegmentAngle returns the angle in [0, pi] between the segments a1-a2 and
// b1-b2, ignoring segment orientation beyond the given endpoint order.
func SegmentAngle(a1, a2, b1, b2 Point2D) float64 {
	dot := a1.Sub(a2).Normalized().Dot(b1.Sub(b2).Normalized())
	return math.Acos(math.Max(-1, math.Min(dot, 1)))
}
