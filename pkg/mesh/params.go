package mesh

import (
	"fmt"
	gomath "math"
	"strings"

	"go.uber.org/zap"
)

// Lower bounds applied by Params.Clamp.
const (
	MinLongitudes = 3
	MinLatitudes  = 2
	MinRadius     = 0.0001
	MinDepth      = 0.0002
)

// UVProfile controls how much of the texture's V range each hemisphere gets.
type UVProfile int

const (
	// UVFixed gives the south hemisphere a third of V and the north two thirds.
	UVFixed UVProfile = iota
	// UVAspect sizes the south share as radius / (depth + 2*radius).
	UVAspect
	// UVUniform spaces V evenly across all vertex rows.
	UVUniform
)

// ParseUVProfile parses "fixed", "aspect" or "uniform" (case-insensitive).
func ParseUVProfile(s string) (UVProfile, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "FIXED":
		return UVFixed, nil
	case "ASPECT":
		return UVAspect, nil
	case "UNIFORM":
		return UVUniform, nil
	}
	return UVFixed, fmt.Errorf("unknown uv profile %q (want FIXED, ASPECT or UNIFORM)", s)
}

func (p UVProfile) String() string {
	switch p {
	case UVAspect:
		return "ASPECT"
	case UVUniform:
		return "UNIFORM"
	default:
		return "FIXED"
	}
}

// Params describes a capsule mesh. Depth is the length of the cylindrical
// body; the caps add Radius at each end.
type Params struct {
	Longitudes int
	Latitudes  int
	Rings      int
	Depth      float64
	Radius     float64
	UVProfile  UVProfile
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		Longitudes: 32,
		Latitudes:  16,
		Rings:      0,
		Depth:      1.0,
		Radius:     0.5,
		UVProfile:  UVFixed,
	}
}

// Clamp returns p with every field raised to its minimum and Latitudes
// rounded up to an even number (down at math.MaxInt). A non-finite radius
// or depth falls back to its minimum.
func (p Params) Clamp() Params {
	p.Radius = clampLength(p.Radius, MinRadius)
	p.Depth = clampLength(p.Depth, MinDepth)
	p.Rings = max(0, p.Rings)
	p.Longitudes = max(MinLongitudes, p.Longitudes)
	p.Latitudes = max(MinLatitudes, p.Latitudes)
	if p.Latitudes%2 != 0 {
		if p.Latitudes == gomath.MaxInt {
			p.Latitudes--
		} else {
			p.Latitudes++
		}
	}
	return p
}

func clampLength(v, minimum float64) float64 {
	if gomath.IsNaN(v) || gomath.IsInf(v, 0) {
		return minimum
	}
	return gomath.Max(minimum, v)
}

// LogClamped returns p.Clamp() and logs the adjustment at debug level when
// clamping changed anything.
func (p Params) LogClamped(log *zap.Logger) Params {
	c := p.Clamp()
	if c != p {
		log.Debug("capsule parameters clamped",
			zap.Int("longitudes", p.Longitudes), zap.Int("longitudesClamped", c.Longitudes),
			zap.Int("latitudes", p.Latitudes), zap.Int("latitudesClamped", c.Latitudes),
			zap.Int("rings", p.Rings), zap.Int("ringsClamped", c.Rings),
			zap.Float64("radius", p.Radius), zap.Float64("radiusClamped", c.Radius),
			zap.Float64("depth", p.Depth), zap.Float64("depthClamped", c.Depth),
		)
	}
	return c
}

// Counts holds the buffer lengths of a capsule mesh.
type Counts struct {
	Vertices int
	UVs      int
	Normals  int
	Faces    int
}

// CapsuleCounts returns the buffer lengths BuildCapsule produces for p
// (after clamping). With L longitudes, T latitudes and R rings:
//
//	vertices = 2 + L(T+R)
//	uvs      = 2L + (L+1)(T+R)
//	normals  = 2 + L(T-1)
//	faces    = L(T+R+1)
//
// Cylinder rows reuse the equator normals, hence no R term for normals.
func CapsuleCounts(p Params) Counts {
	p = p.Clamp()
	l, t, r := p.Longitudes, p.Latitudes, p.Rings
	return Counts{
		Vertices: 2 + l*(t+r),
		UVs:      2*l + (l+1)*(t+r),
		Normals:  2 + l*(t-1),
		Faces:    l * (t + r + 1),
	}
}
