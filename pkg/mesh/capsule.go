package mesh

import (
	gomath "math"

	"github.com/Faultbox/midgard-colliders/pkg/math"
)

// BuildCapsule generates a closed capsule centered on the origin with its
// axis along Z. The north pole sits at +Z.
//
// Out of range parameters are clamped (see Params.Clamp); BuildCapsule never
// fails. Every buffer offset below is computed up front from the clamped
// counts, and the buffers are filled in place.
//
// Buffer layout, in order:
//
//	vertices: north pole, north rings, north equator, mid rings, south equator, south rings, south pole
//	uvs:      north pole fan, north rings, north equator, mid rings, south equator, south rings, south pole fan
//	normals:  north pole, north rings, equator, south rings, south pole
//	faces:    north fan, north quads, cylinder quads, south quads, south fan
func BuildCapsule(p Params) *Mesh {
	c := p.Clamp()

	lons := c.Longitudes
	lonsP1 := lons + 1
	halfLats := c.Latitudes / 2
	hemiRings := halfLats - 1
	rings := c.Rings
	radius := c.Radius
	halfDepth := c.Depth / 2
	summit := halfDepth + radius

	// Vertex offsets.
	vNorthEquator := 1 + lons*hemiRings
	vCylinder := vNorthEquator + lons
	vSouthEquator := vCylinder + lons*rings
	vSouthHemi := vSouthEquator + lons
	vSouthPole := vSouthHemi + lons*hemiRings
	vSouthLast := vSouthPole - lons

	// Texture coordinate offsets. Non-polar rows carry a seam column.
	tNorthHemi := lons
	tNorthEquator := tNorthHemi + lonsP1*hemiRings
	tCylinder := tNorthEquator + lonsP1
	tSouthEquator := tCylinder + lonsP1*rings
	tSouthHemi := tSouthEquator + lonsP1
	tSouthPole := tSouthHemi + lonsP1*hemiRings
	tSouthLast := tSouthPole - lonsP1

	// Normal offsets. Mid rings and the south equator reuse the equator normals.
	nEquator := vNorthEquator
	nSouthHemi := nEquator + lons
	nSouthPole := nSouthHemi + lons*hemiRings
	nSouthLast := nSouthPole - lons

	// Face offsets.
	fNorthHemi := lons
	fCylinder := fNorthHemi + lons*hemiRings
	fSouthHemi := fCylinder + lons*(rings+1)
	fSouthFan := fSouthHemi + lons*hemiRings
	faceCount := fSouthFan + lons

	m := &Mesh{
		Vertices:    make([]math.Vec3, vSouthPole+1),
		UVs:         make([]math.Vec2, tSouthPole+lons),
		Normals:     make([]math.Vec3, nSouthPole+1),
		VertexFaces: make([]Face, faceCount),
		UVFaces:     make([]Face, faceCount),
		NormalFaces: make([]Face, faceCount),
	}

	m.Vertices[0] = math.Vec3{Z: summit}
	m.Vertices[vSouthPole] = math.Vec3{Z: -summit}
	m.Normals[0] = math.UnitZ
	m.Normals[nSouthPole] = math.Vec3{Z: -1}

	southV := 1.0 / 3.0
	switch c.UVProfile {
	case UVAspect:
		southV = radius / (c.Depth + 2*radius)
	case UVUniform:
		southV = float64(halfLats) / float64(rings+1+c.Latitudes)
	}
	northV := 1 - southV

	// U per seam column; j/lons keeps U exactly 1 at the seam.
	us := make([]float64, lonsP1)
	for j := range us {
		us[j] = float64(j) / float64(lons)
	}

	sinTheta := make([]float64, lons)
	cosTheta := make([]float64, lons)
	toTheta := 2 * gomath.Pi / float64(lons)

	for j := 0; j < lons; j++ {
		jn := (j + 1) % lons
		sinTheta[j], cosTheta[j] = gomath.Sincos(float64(j) * toTheta)

		// Pole UVs sit halfway between their two fan-base neighbors.
		poleU := (float64(j) + 0.5) / float64(lons)
		m.UVs[j] = math.Vec2{X: poleU, Y: 1}
		m.UVs[tSouthPole+j] = math.Vec2{X: poleU, Y: 0}

		x := radius * cosTheta[j]
		y := radius * sinTheta[j]
		m.Vertices[vNorthEquator+j] = math.Vec3{X: x, Y: y, Z: halfDepth}
		m.Vertices[vSouthEquator+j] = math.Vec3{X: x, Y: y, Z: -halfDepth}
		m.Normals[nEquator+j] = math.Vec3{X: cosTheta[j], Y: sinTheta[j]}

		m.VertexFaces[j] = Face{0, 1 + j, 1 + jn}
		m.UVFaces[j] = Face{j, tNorthHemi + j, tNorthHemi + j + 1}
		m.NormalFaces[j] = Face{0, 1 + j, 1 + jn}

		f := fSouthFan + j
		m.VertexFaces[f] = Face{vSouthPole, vSouthLast + jn, vSouthLast + j}
		m.UVFaces[f] = Face{tSouthPole + j, tSouthLast + j + 1, tSouthLast + j}
		m.NormalFaces[f] = Face{nSouthPole, nSouthLast + jn, nSouthLast + j}
	}

	for j, u := range us {
		m.UVs[tNorthEquator+j] = math.Vec2{X: u, Y: northV}
		m.UVs[tSouthEquator+j] = math.Vec2{X: u, Y: southV}
	}

	// Hemisphere rings. North ring i counts down from the pole, south ring i
	// counts down from the equator; both use the same colatitude phi.
	for i := 0; i < hemiRings; i++ {
		sinPhi, cosPhi := gomath.Sincos(float64(i+1) * gomath.Pi / float64(c.Latitudes))

		northRadial := radius * sinPhi
		northZ := halfDepth + radius*cosPhi
		southRadial := radius * cosPhi
		southZ := -halfDepth - radius*sinPhi

		vNorth := 1 + i*lons
		vSouth := vSouthHemi + i*lons
		nSouth := nSouthHemi + i*lons

		// Quads connect each ring to the next one toward the south pole.
		vNorthCur, vNorthNext := vNorth, vNorth+lons
		tNorthCur := tNorthHemi + i*lonsP1
		vSouthCur := vSouthEquator + i*lons
		tSouthCur := tSouthEquator + i*lonsP1
		nSouthCur := nEquator + i*lons

		for j := 0; j < lons; j++ {
			m.Vertices[vNorth+j] = math.Vec3{
				X: northRadial * cosTheta[j],
				Y: northRadial * sinTheta[j],
				Z: northZ,
			}
			m.Normals[vNorth+j] = math.Vec3{X: sinPhi * cosTheta[j], Y: sinPhi * sinTheta[j], Z: cosPhi}

			m.Vertices[vSouth+j] = math.Vec3{
				X: southRadial * cosTheta[j],
				Y: southRadial * sinTheta[j],
				Z: southZ,
			}
			m.Normals[nSouth+j] = math.Vec3{X: cosPhi * cosTheta[j], Y: cosPhi * sinTheta[j], Z: -sinPhi}

			fn := fNorthHemi + i*lons + j
			m.VertexFaces[fn] = quad(vNorthCur, vNorthNext, j, lons)
			m.UVFaces[fn] = seamQuad(tNorthCur, tNorthCur+lonsP1, j)
			m.NormalFaces[fn] = quad(vNorthCur, vNorthNext, j, lons)

			fs := fSouthHemi + i*lons + j
			m.VertexFaces[fs] = quad(vSouthCur, vSouthCur+lons, j, lons)
			m.UVFaces[fs] = seamQuad(tSouthCur, tSouthCur+lonsP1, j)
			m.NormalFaces[fs] = quad(nSouthCur, nSouthCur+lons, j, lons)
		}

		fac := float64(i+1) / float64(halfLats)
		northRowV := (1 - fac) + fac*northV
		southRowV := southV * (1 - fac)
		tNorth := tNorthHemi + i*lonsP1
		tSouth := tSouthHemi + i*lonsP1
		for j, u := range us {
			m.UVs[tNorth+j] = math.Vec2{X: u, Y: northRowV}
			m.UVs[tSouth+j] = math.Vec2{X: u, Y: southRowV}
		}
	}

	// Mid rings strictly between the equators; fac never reaches 0 or 1.
	for r := 1; r <= rings; r++ {
		fac := float64(r) / float64(rings+1)
		v := northV*(1-fac) + southV*fac
		vRow := vCylinder + (r-1)*lons
		tRow := tCylinder + (r-1)*lonsP1
		for j := 0; j < lons; j++ {
			m.Vertices[vRow+j] = m.Vertices[vNorthEquator+j].Lerp(m.Vertices[vSouthEquator+j], fac)
		}
		for j, u := range us {
			m.UVs[tRow+j] = math.Vec2{X: u, Y: v}
		}
	}

	for r := 0; r <= rings; r++ {
		vCur := vNorthEquator + r*lons
		tCur := tNorthEquator + r*lonsP1
		for j := 0; j < lons; j++ {
			jn := (j + 1) % lons
			f := fCylinder + r*lons + j
			m.VertexFaces[f] = quad(vCur, vCur+lons, j, lons)
			m.UVFaces[f] = seamQuad(tCur, tCur+lonsP1, j)
			m.NormalFaces[f] = Face{nEquator + j, nEquator + j, nEquator + jn, nEquator + jn}
		}
	}

	return m
}

// quad joins column j of ring cur to ring next, wrapping at the last column.
// Winding is counter-clockwise seen from outside.
func quad(cur, next, j, lons int) Face {
	jn := (j + 1) % lons
	return Face{cur + j, next + j, next + jn, cur + jn}
}

// seamQuad is quad for texture rows, which have a separate seam column instead of wrapping.
func seamQuad(cur, next, j int) Face {
	return Face{cur + j, next + j, next + j + 1, cur + j + 1}
}
