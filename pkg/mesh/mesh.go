// Package mesh generates collider meshes as flat, indexed buffers.
//
// A Mesh keeps positions, texture coordinates and normals in separate
// buffers, each with its own face index list, the way OBJ does. Faces are
// triangles or quads.
package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-colliders/pkg/math"
)

// Face lists buffer indices of one polygon, counter-clockwise seen from outside.
type Face []int

// Mesh holds indexed geometry. VertexFaces, UVFaces and NormalFaces are
// parallel: face i uses VertexFaces[i] into Vertices, UVFaces[i] into UVs and
// NormalFaces[i] into Normals.
type Mesh struct {
	Vertices []math.Vec3
	UVs      []math.Vec2
	Normals  []math.Vec3

	VertexFaces []Face
	UVFaces     []Face
	NormalFaces []Face
}

// VertexCount returns the number of positions.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of polygons.
func (m *Mesh) FaceCount() int {
	return len(m.VertexFaces)
}

// TriangleCount returns the number of triangles after fan triangulation.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.VertexFaces {
		if len(f) >= 3 {
			n += len(f) - 2
		}
	}
	return n
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Validate checks that the face lists are parallel, that every index is in
// range, and that no face repeats a vertex.
func (m *Mesh) Validate() error {
	if len(m.UVFaces) != len(m.VertexFaces) || len(m.NormalFaces) != len(m.VertexFaces) {
		return fmt.Errorf("face lists differ in length: vertex %d, uv %d, normal %d",
			len(m.VertexFaces), len(m.UVFaces), len(m.NormalFaces))
	}

	var errs []error
	for i, vf := range m.VertexFaces {
		tf, nf := m.UVFaces[i], m.NormalFaces[i]
		if len(vf) < 3 || len(vf) > 4 {
			errs = append(errs, fmt.Errorf("face %d: %d corners", i, len(vf)))
			continue
		}
		if len(tf) != len(vf) || len(nf) != len(vf) {
			errs = append(errs, fmt.Errorf("face %d: corner counts differ (%d/%d/%d)", i, len(vf), len(tf), len(nf)))
			continue
		}
		seen := make(map[int]bool, len(vf))
		for k := range vf {
			if vf[k] < 0 || vf[k] >= len(m.Vertices) {
				errs = append(errs, fmt.Errorf("face %d: vertex index %d out of range", i, vf[k]))
			}
			if tf[k] < 0 || tf[k] >= len(m.UVs) {
				errs = append(errs, fmt.Errorf("face %d: uv index %d out of range", i, tf[k]))
			}
			if nf[k] < 0 || nf[k] >= len(m.Normals) {
				errs = append(errs, fmt.Errorf("face %d: normal index %d out of range", i, nf[k]))
			}
			if seen[vf[k]] {
				errs = append(errs, fmt.Errorf("face %d: vertex %d repeated", i, vf[k]))
			}
			seen[vf[k]] = true
		}
	}
	return errors.Join(errs...)
}

// Edge is an undirected vertex pair with the smaller index first.
type Edge [2]int

func newEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{a, b}
}

// EdgeUseCounts returns how many faces use each edge.
func (m *Mesh) EdgeUseCounts() map[Edge]int {
	counts := make(map[Edge]int)
	for _, f := range m.VertexFaces {
		for k := range f {
			counts[newEdge(f[k], f[(k+1)%len(f)])]++
		}
	}
	return counts
}

// IsClosed reports whether every edge is shared by exactly two faces and
// every shared edge is traversed once in each direction, i.e. the surface is
// watertight and consistently wound.
func (m *Mesh) IsClosed() bool {
	directed := make(map[[2]int]int)
	for _, f := range m.VertexFaces {
		for k := range f {
			directed[[2]int{f[k], f[(k+1)%len(f)]}]++
		}
	}
	for e, n := range m.EdgeUseCounts() {
		if n != 2 {
			return false
		}
		if directed[[2]int{e[0], e[1]}] != 1 || directed[[2]int{e[1], e[0]}] != 1 {
			return false
		}
	}
	return len(m.VertexFaces) > 0
}

// Transform returns a copy with positions transformed by t and normals by its
// rotation part, renormalized. Face lists are shared with m.
func (m *Mesh) Transform(t math.Mat4) *Mesh {
	out := &Mesh{
		Vertices:    make([]math.Vec3, len(m.Vertices)),
		UVs:         m.UVs,
		Normals:     make([]math.Vec3, len(m.Normals)),
		VertexFaces: m.VertexFaces,
		UVFaces:     m.UVFaces,
		NormalFaces: m.NormalFaces,
	}
	for i, v := range m.Vertices {
		out.Vertices[i] = t.TransformPoint(v)
	}
	for i, n := range m.Normals {
		out.Normals[i] = t.TransformDirection(n).Normalize()
	}
	return out
}

// Triangulate returns a copy where every quad (a, b, c, d) is split into
// (a, b, c) and (a, c, d). Buffers are shared with m.
func (m *Mesh) Triangulate() *Mesh {
	out := &Mesh{
		Vertices: m.Vertices,
		UVs:      m.UVs,
		Normals:  m.Normals,
	}
	n := m.TriangleCount()
	out.VertexFaces = make([]Face, 0, n)
	out.UVFaces = make([]Face, 0, n)
	out.NormalFaces = make([]Face, 0, n)

	for i, vf := range m.VertexFaces {
		for k := 1; k+1 < len(vf); k++ {
			out.VertexFaces = append(out.VertexFaces, Face{vf[0], vf[k], vf[k+1]})
			out.UVFaces = append(out.UVFaces, Face{m.UVFaces[i][0], m.UVFaces[i][k], m.UVFaces[i][k+1]})
			out.NormalFaces = append(out.NormalFaces, Face{m.NormalFaces[i][0], m.NormalFaces[i][k], m.NormalFaces[i][k+1]})
		}
	}
	return out
}
