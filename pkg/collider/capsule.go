// Package collider fits bounding capsules to point clouds.
//
// The fitted capsule's medial axis follows the principal axis of the points,
// found by a singular value decomposition of the centered point set. The
// result is a value; nothing here holds state between calls, so independent
// point sets may be fitted concurrently.
package collider

import (
	"errors"
	"fmt"
	gomath "math"

	"gonum.org/v1/gonum/mat"

	"github.com/Faultbox/midgard-colliders/pkg/math"
)

// ErrInvalidInput is returned when a point set cannot define a capsule.
var ErrInvalidInput = errors.New("invalid capsule input")

// parallelEpsilon is the cross product length below which a reference
// direction counts as parallel to the principal axis.
const parallelEpsilon = 1e-6

// Capsule describes a bounding capsule in the coordinate space of the points it was fitted to.
type Capsule struct {
	// Radius is the maximum perpendicular distance from any point to the medial axis.
	Radius float64
	// Height is the distance between the two hemisphere centers; it excludes the caps.
	Height float64
	// Center is the midpoint of the medial axis.
	Center math.Vec3
	// Axis is the unit principal axis.
	Axis math.Vec3
	// Orientation holds the fitted basis as columns X, Y, Z. The column
	// selected by AlignAxis equals Axis.
	Orientation math.Mat3
	AlignAxis   Axis
}

// FitCapsule computes the capsule bounding points. axis selects which column
// of the orientation follows the principal axis.
//
// Fewer than two points, or points that all coincide, yield ErrInvalidInput.
func FitCapsule(points []math.Vec3, axis Axis) (Capsule, error) {
	if len(points) < 2 {
		return Capsule{}, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidInput, len(points))
	}

	centroid := math.Centroid(points)
	principal, err := principalAxis(points, centroid)
	if err != nil {
		return Capsule{}, err
	}

	// Projections are taken relative to the centroid so the midpoint of
	// their range offsets the centroid directly.
	minProj, maxProj := gomath.Inf(1), gomath.Inf(-1)
	var radius float64
	for _, p := range points {
		v := p.Sub(centroid)
		t := v.Dot(principal)
		minProj = gomath.Min(minProj, t)
		maxProj = gomath.Max(maxProj, t)
		radius = gomath.Max(radius, v.Sub(principal.Scale(t)).Length())
	}

	return Capsule{
		Radius:      radius,
		Height:      maxProj - minProj,
		Center:      centroid.Add(principal.Scale((minProj + maxProj) / 2)),
		Axis:        principal,
		Orientation: alignedBasis(principal, axis),
		AlignAxis:   axis,
	}, nil
}

// principalAxis returns the first right singular vector of the centered
// points. Singular values come back non-increasing, so ties resolve to
// whichever direction the decomposition lists first. The sign is fixed so
// that the largest-magnitude component is positive.
func principalAxis(points []math.Vec3, centroid math.Vec3) (math.Vec3, error) {
	distinct := false
	data := make([]float64, 0, len(points)*3)
	for _, p := range points {
		v := p.Sub(centroid)
		data = append(data, v.X, v.Y, v.Z)
		distinct = distinct || p != points[0]
	}
	// Only exact duplicates coincide. The centroid of equal points can
	// still be off by a rounding error, so the SVD is not asked.
	if !distinct {
		return math.Vec3{}, fmt.Errorf("%w: all %d points coincide, no principal axis", ErrInvalidInput, len(points))
	}

	var svd mat.SVD
	if ok := svd.Factorize(mat.NewDense(len(points), 3, data), mat.SVDThin); !ok {
		return math.Vec3{}, errors.New("singular value decomposition did not converge")
	}

	values := svd.Values(nil)
	if values[0] == 0 {
		return math.Vec3{}, fmt.Errorf("%w: all %d points coincide, no principal axis", ErrInvalidInput, len(points))
	}

	var v mat.Dense
	svd.VTo(&v)
	axis := math.Vec3{X: v.At(0, 0), Y: v.At(1, 0), Z: v.At(2, 0)}.Normalize()

	a := axis.Abs()
	lead := axis.X
	if a.Y > a.X && a.Y >= a.Z {
		lead = axis.Y
	} else if a.Z > a.X && a.Z > a.Y {
		lead = axis.Z
	}
	if lead < 0 {
		axis = axis.Scale(-1)
	}
	return axis, nil
}

// alignedBasis builds a right-handed orthonormal basis whose column for
// align equals principal.
func alignedBasis(principal math.Vec3, align Axis) math.Mat3 {
	side := perpendicular(principal, align)

	switch align {
	case AxisX:
		x := principal
		y := side
		return math.Mat3FromColumns(x, y, x.Cross(y).Normalize())
	case AxisY:
		y := principal
		x := side
		return math.Mat3FromColumns(x, y, x.Cross(y).Normalize())
	default:
		z := principal
		x := side
		return math.Mat3FromColumns(x, z.Cross(x).Normalize(), z)
	}
}

// perpendicular returns a unit vector orthogonal to principal. It crosses the
// axis' primary reference with principal, falls back to the secondary
// reference, and finally to the world axis least aligned with principal,
// which can never be parallel to it.
func perpendicular(principal math.Vec3, align Axis) math.Vec3 {
	primary, secondary := align.references()
	for _, ref := range []math.Vec3{primary, secondary, leastAligned(principal)} {
		if side := ref.Cross(principal); side.Length() > parallelEpsilon {
			return side.Normalize()
		}
	}
	// Unreachable for a unit principal axis.
	return math.UnitX
}

func leastAligned(v math.Vec3) math.Vec3 {
	a := v.Abs()
	switch {
	case a.X <= a.Y && a.X <= a.Z:
		return math.UnitX
	case a.Y <= a.Z:
		return math.UnitY
	default:
		return math.UnitZ
	}
}

// Endpoints returns the two hemisphere centers.
func (c Capsule) Endpoints() (math.Vec3, math.Vec3) {
	half := c.Axis.Scale(c.Height / 2)
	return c.Center.Sub(half), c.Center.Add(half)
}

// Length returns the full extent along the axis, caps included.
func (c Capsule) Length() float64 {
	return c.Height + 2*c.Radius
}

// Contains reports whether p lies within eps of the capsule volume.
func (c Capsule) Contains(p math.Vec3, eps float64) bool {
	start, end := c.Endpoints()
	seg := end.Sub(start)
	toPoint := p.Sub(start)

	lenSq := seg.Dot(seg)
	if lenSq == 0 {
		return toPoint.Length() <= c.Radius+eps
	}

	t := gomath.Max(0, gomath.Min(1, toPoint.Dot(seg)/lenSq))
	closest := start.Add(seg.Scale(t))
	return p.Distance(closest) <= c.Radius+eps
}

// Inflate returns a copy with the radius grown by offset. Negative offsets
// shrink it; the radius never drops below zero.
func (c Capsule) Inflate(offset float64) Capsule {
	c.Radius = gomath.Max(0, c.Radius+offset)
	return c
}

// Rotation returns the orientation as a unit quaternion.
func (c Capsule) Rotation() math.Quat {
	return math.QuatFromMat3(c.Orientation)
}

// MeshTransform returns the matrix placing a capsule mesh built along local Z
// around the origin onto this capsule: local Z maps to Axis, and the origin
// maps to Center. The other two local axes follow the remaining basis columns
// in cyclic order, so the transform stays a proper rotation.
func (c Capsule) MeshTransform() math.Mat4 {
	k := c.AlignAxis.column()
	rot := math.Mat3FromColumns(
		c.Orientation.Col((k+1)%3),
		c.Orientation.Col((k+2)%3),
		c.Orientation.Col(k),
	)
	return math.Translate(c.Center.X, c.Center.Y, c.Center.Z).Mul(math.FromMat3(rot))
}
