// RSM (Resource Model) reader. Each model node becomes one point set in
// model space, posed at frame zero.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/midgard-colliders/pkg/encoding"
	"github.com/Faultbox/midgard-colliders/pkg/math"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidNodeCount      = errors.New("invalid RSM node count")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
	ErrRSMParentCycle        = errors.New("RSM node hierarchy contains a cycle")
	ErrEmptyRSM              = errors.New("RSM contains no vertices")
)

const (
	rsmNameLen     = 40
	maxRSMNodes    = 10000
	maxRSMElements = 100000
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// RSMNode is one node of the model hierarchy with its transform at frame
// zero. Textures and faces are skipped while reading; of the keyframes only
// the first rotation and scale keys are kept.
type RSMNode struct {
	Name   string
	Parent string // empty for the root

	Matrix   math.Mat3 // applied to vertices before Offset; not inherited
	Offset   math.Vec3
	Position math.Vec3
	RotAngle float64 // radians
	RotAxis  math.Vec3
	Scale    math.Vec3

	// First keyframes, if the node is animated. A rotation key replaces the
	// axis-angle rotation; a scale key multiplies Scale.
	RotKey   *math.Quat
	ScaleKey *math.Vec3

	Vertices []math.Vec3
}

// localTransform places the node relative to its parent:
// Position * Rotation * Scale.
func (n *RSMNode) localTransform() math.Mat4 {
	t := math.Translate(n.Position.X, n.Position.Y, n.Position.Z)
	switch {
	case n.RotKey != nil:
		t = t.Mul(math.FromMat3(n.RotKey.Normalize().ToMat3()))
	case n.RotAngle != 0 && n.RotAxis.Length() > 1e-6:
		t = t.Mul(math.FromMat3(math.QuatFromAxisAngle(n.RotAxis.Normalize(), n.RotAngle).ToMat3()))
	}
	t = t.Mul(math.Scale(n.Scale.X, n.Scale.Y, n.Scale.Z))
	if n.ScaleKey != nil {
		t = t.Mul(math.Scale(n.ScaleKey.X, n.ScaleKey.Y, n.ScaleKey.Z))
	}
	return t
}

// RSM is the geometry of a parsed model file.
type RSM struct {
	Version  RSMVersion
	RootNode string
	Nodes    []RSMNode
}

// rsmReader reads little-endian fields and keeps the first error.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (r *rsmReader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.err = ErrTruncatedRSMData
	}
}

func (r *rsmReader) skip(n int) {
	if r.err != nil {
		return
	}
	if n > r.r.Len() {
		r.err = ErrTruncatedRSMData
		return
	}
	r.r.Seek(int64(n), 1)
}

// count reads an element count and rejects values outside [0, limit].
func (r *rsmReader) count(limit int32) int {
	var n int32
	r.read(&n)
	if r.err == nil && (n < 0 || n > limit) {
		r.err = fmt.Errorf("%w: %d", ErrInvalidRSMCount, n)
	}
	if r.err != nil {
		return 0
	}
	return int(n)
}

func (r *rsmReader) name() string {
	var buf [rsmNameLen]byte
	r.read(&buf)
	return encoding.DecodeName(buf[:])
}

func (r *rsmReader) float() float64 {
	var f float32
	r.read(&f)
	return float64(f)
}

func (r *rsmReader) vec3() math.Vec3 {
	var v [3]float32
	r.read(&v)
	return math.Vec3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// ParseRSM parses RSM data from a byte slice.
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < 6 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != "GRSM" {
		return nil, ErrInvalidRSMMagic
	}

	model := &RSM{Version: RSMVersion{Major: data[4], Minor: data[5]}}
	if model.Version.Major < 1 || model.Version.Major > 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, model.Version)
	}

	r := &rsmReader{r: bytes.NewReader(data[6:])}

	// Animation length and shading type
	r.skip(8)
	// Global alpha (v1.4+)
	if model.Version.AtLeast(1, 4) {
		r.skip(1)
	}
	// Reserved
	r.skip(16)

	textures := r.count(maxRSMElements)
	r.skip(textures * rsmNameLen)

	model.RootNode = r.name()

	var nodeCount int32
	r.read(&nodeCount)
	if r.err != nil {
		return nil, r.err
	}
	if nodeCount < 0 || nodeCount > maxRSMNodes {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNodeCount, nodeCount)
	}

	model.Nodes = make([]RSMNode, nodeCount)
	for i := range model.Nodes {
		parseRSMNode(r, model.Version, &model.Nodes[i])
		if r.err != nil {
			return nil, fmt.Errorf("parsing node %d: %w", i, r.err)
		}
	}

	// Trailing volume boxes are not needed.
	return model, nil
}

func parseRSMNode(r *rsmReader, version RSMVersion, node *RSMNode) {
	node.Name = r.name()
	node.Parent = r.name()

	textures := r.count(maxRSMElements)
	r.skip(textures * 4)

	var m [9]float32
	r.read(&m)
	for i, f := range m {
		node.Matrix[i] = float64(f)
	}
	node.Offset = r.vec3()
	node.Position = r.vec3()
	node.RotAngle = r.float()
	node.RotAxis = r.vec3()
	node.Scale = r.vec3()

	vertices := r.count(maxRSMElements)
	node.Vertices = make([]math.Vec3, 0, vertices)
	for i := 0; i < vertices; i++ {
		node.Vertices = append(node.Vertices, r.vec3())
	}

	// Texture coordinates: vertex color (v1.2+), then U and V
	texCoordSize := 8
	faceSize := 20
	if version.AtLeast(1, 2) {
		texCoordSize += 4
		faceSize += 4 // smoothing group
	}
	r.skip(r.count(maxRSMElements) * texCoordSize)
	r.skip(r.count(maxRSMElements) * faceSize)

	// Keyframes: position (before v1.5), rotation, scale (v1.5+). Each key
	// starts with its int32 frame number.
	if !version.AtLeast(1, 5) {
		r.skip(r.count(maxRSMElements) * 16)
	}
	if n := r.count(maxRSMElements); n > 0 {
		var q [4]float32 // x, y, z, w
		r.skip(4)
		r.read(&q)
		r.skip((n - 1) * 20)
		node.RotKey = &math.Quat{X: float64(q[0]), Y: float64(q[1]), Z: float64(q[2]), W: float64(q[3])}
	}
	if version.AtLeast(1, 5) {
		if n := r.count(maxRSMElements); n > 0 {
			r.skip(4)
			scale := r.vec3()
			r.skip((n - 1) * 16)
			node.ScaleKey = &scale
		}
	}
}

// ParseRSMFile parses an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// NodeTransforms returns the model-space transform of every node, composing
// each node's local transform with its ancestors'. A node whose parent names
// no other node is a root.
func (m *RSM) NodeTransforms() ([]math.Mat4, error) {
	byName := make(map[string]int, len(m.Nodes))
	for i := range m.Nodes {
		if _, dup := byName[m.Nodes[i].Name]; !dup {
			byName[m.Nodes[i].Name] = i
		}
	}

	const (
		pending = iota
		visiting
		done
	)
	state := make([]int, len(m.Nodes))
	transforms := make([]math.Mat4, len(m.Nodes))

	var resolve func(i int) error
	resolve = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w at node %q", ErrRSMParentCycle, m.Nodes[i].Name)
		}
		state[i] = visiting

		parent := math.Identity()
		if p, ok := byName[m.Nodes[i].Parent]; ok && p != i && m.Nodes[i].Parent != "" {
			if err := resolve(p); err != nil {
				return err
			}
			parent = transforms[p]
		}
		transforms[i] = parent.Mul(m.Nodes[i].localTransform())
		state[i] = done
		return nil
	}

	for i := range m.Nodes {
		if err := resolve(i); err != nil {
			return nil, err
		}
	}
	return transforms, nil
}

// PointSets returns the model-space vertices of every node that has any.
func (m *RSM) PointSets() ([]PointSet, error) {
	transforms, err := m.NodeTransforms()
	if err != nil {
		return nil, err
	}

	var sets []PointSet
	for i, node := range m.Nodes {
		if len(node.Vertices) == 0 {
			continue
		}
		name := node.Name
		if name == "" {
			name = DefaultObjectName
		}
		set := PointSet{Name: name, Points: make([]math.Vec3, len(node.Vertices))}
		for k, v := range node.Vertices {
			set.Points[k] = transforms[i].TransformPoint(node.Matrix.MulVec3(v).Add(node.Offset))
		}
		sets = append(sets, set)
	}
	return sets, nil
}

// LoadRSM reads an RSM file and returns one point set per node.
func LoadRSM(path string) ([]PointSet, error) {
	model, err := ParseRSMFile(path)
	if err != nil {
		return nil, err
	}
	return rsmPointSets(model, path)
}

func rsmPointSets(model *RSM, source string) ([]PointSet, error) {
	sets, err := model.PointSets()
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRSM, source)
	}
	return sets, nil
}
