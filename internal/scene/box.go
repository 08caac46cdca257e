package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Box3 is an axis-aligned bounding box. The zero value is not empty, use
// EmptyBox to start an accumulation.
type Box3 struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func EmptyBox() Box3 {
	inf := float32(math.Inf(1))
	return Box3{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func BoxOf(points []mgl32.Vec3) Box3 {
	b := EmptyBox()
	for _, p := range points {
		b = b.ExpandPoint(p)
	}
	return b
}

func (b Box3) IsEmpty() bool {
	return b.Max.X() < b.Min.X() || b.Max.Y() < b.Min.Y() || b.Max.Z() < b.Min.Z()
}

func (b Box3) ExpandPoint(p mgl32.Vec3) Box3 {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

func (b Box3) Union(o Box3) Box3 {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return b.ExpandPoint(o.Min).ExpandPoint(o.Max)
}

func (b Box3) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box3) Size() mgl32.Vec3 {
	if b.IsEmpty() {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// MaxDimension is the largest extent along any axis.
func (b Box3) MaxDimension() float32 {
	s := b.Size()
	return max(s.X(), s.Y(), s.Z())
}

// LongestAxis returns 0, 1 or 2 for X, Y, Z. Ties resolve to the lower axis.
func (b Box3) LongestAxis() int {
	s := b.Size()
	axis := 0
	for i := 1; i < 3; i++ {
		if s[i] > s[axis] {
			axis = i
		}
	}
	return axis
}

// LongestHorizontalAxis picks X or Z, whichever is longer.
func (b Box3) LongestHorizontalAxis() int {
	s := b.Size()
	if s.Z() > s.X() {
		return 2
	}
	return 0
}
