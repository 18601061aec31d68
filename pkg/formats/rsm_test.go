package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-colliders/pkg/encoding"
	"github.com/Faultbox/midgard-colliders/pkg/math"
)

type testRSMNode struct {
	name, parent string
	matrix       [9]float32
	offset       [3]float32
	position     [3]float32
	rotAngle     float32
	rotAxis      [3]float32
	scale        [3]float32
	rotKey       *[4]float32 // x, y, z, w
	scaleKey     *[3]float32 // written for v1.5+ only
	vertices     [][3]float32
}

func newTestRSMNode(name, parent string, vertices ...[3]float32) testRSMNode {
	return testRSMNode{
		name:     name,
		parent:   parent,
		matrix:   [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
		scale:    [3]float32{1, 1, 1},
		vertices: vertices,
	}
}

// makeRSM encodes a model with one texture, and one texcoord and face per
// node, laid out for the given version. Nodes get a position key before v1.5
// and two rotation or scale keys when rotKey or scaleKey is set.
func makeRSM(major, minor uint8, root string, nodes ...testRSMNode) []byte {
	v := RSMVersion{major, minor}
	var buf bytes.Buffer
	w := func(data any) { binary.Write(&buf, binary.LittleEndian, data) }

	buf.WriteString("GRSM")
	buf.WriteByte(major)
	buf.WriteByte(minor)
	w(int32(1000)) // animation length
	w(int32(2))    // shading
	if v.AtLeast(1, 4) {
		buf.WriteByte(255)
	}
	buf.Write(make([]byte, 16))

	w(int32(1))
	buf.Write(encoding.EncodeName("texture.bmp", rsmNameLen))
	buf.Write(encoding.EncodeName(root, rsmNameLen))

	w(int32(len(nodes)))
	for _, n := range nodes {
		buf.Write(encoding.EncodeName(n.name, rsmNameLen))
		buf.Write(encoding.EncodeName(n.parent, rsmNameLen))
		w(int32(1))
		w(int32(0))
		w(n.matrix)
		w(n.offset)
		w(n.position)
		w(n.rotAngle)
		w(n.rotAxis)
		w(n.scale)

		w(int32(len(n.vertices)))
		for _, vert := range n.vertices {
			w(vert)
		}

		w(int32(1))
		if v.AtLeast(1, 2) {
			w([4]uint8{255, 255, 255, 255})
		}
		w([2]float32{0.5, 0.5})

		w(int32(1))
		w([3]uint16{0, 0, 0})
		w([3]uint16{0, 0, 0})
		w(uint16(0))
		w(uint16(0))
		w(int32(0))
		if v.AtLeast(1, 2) {
			w(int32(0))
		}

		if !v.AtLeast(1, 5) {
			w(int32(1))
			w(int32(0))
			w([3]float32{})
		}
		if n.rotKey != nil {
			w(int32(2))
			w(int32(0))
			w(*n.rotKey)
			w(int32(100))
			w([4]float32{0, 0, 0, 1})
		} else {
			w(int32(0))
		}
		if v.AtLeast(1, 5) {
			if n.scaleKey != nil {
				w(int32(2))
				w(int32(0))
				w(*n.scaleKey)
				w(int32(100))
				w([3]float32{1, 1, 1})
			} else {
				w(int32(0))
			}
		}
	}

	w(int32(0)) // volume boxes
	return buf.Bytes()
}

func TestParseRSM_MagicValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid magic", makeRSM(1, 5, "root"), nil},
		{"invalid magic", append([]byte("XXXX"), makeRSM(1, 5, "root")[4:]...), ErrInvalidRSMMagic},
		{"empty data", []byte{}, ErrTruncatedRSMData},
		{"truncated data", []byte{'G', 'R', 'S'}, ErrTruncatedRSMData},
		{"header only", []byte("GRSM\x01\x05"), ErrTruncatedRSMData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSM(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseRSM_VersionLayouts(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		wantErr bool
	}{
		{"v1.1", 1, 1, false},
		{"v1.2", 1, 2, false},
		{"v1.3", 1, 3, false},
		{"v1.4", 1, 4, false},
		{"v1.5", 1, 5, false},
		{"v2.1", 2, 1, false},
		{"v2.3", 2, 3, false},
		{"v0.1 unsupported", 0, 1, true},
		{"v3.0 unsupported", 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := newTestRSMNode("hull", "", [3]float32{1, 2, 3})
			second := newTestRSMNode("mast", "hull", [3]float32{4, 5, 6})
			model, err := ParseRSM(makeRSM(tt.major, tt.minor, "hull", first, second))
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedRSMVersion) {
					t.Errorf("expected unsupported version, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			// Both nodes decode only if every skipped block had the right size
			if len(model.Nodes) != 2 {
				t.Fatalf("expected 2 nodes, got %d", len(model.Nodes))
			}
			if got := model.Nodes[1].Vertices[0]; got != (math.Vec3{X: 4, Y: 5, Z: 6}) {
				t.Errorf("second node vertex = %v", got)
			}
			if model.RootNode != "hull" {
				t.Errorf("expected root 'hull', got %q", model.RootNode)
			}
		})
	}
}

func TestRSMVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version RSMVersion
		major   uint8
		minor   uint8
		want    bool
	}{
		{RSMVersion{1, 5}, 1, 5, true},
		{RSMVersion{1, 5}, 1, 4, true},
		{RSMVersion{1, 5}, 1, 6, false},
		{RSMVersion{1, 5}, 2, 0, false},
		{RSMVersion{2, 3}, 1, 9, true},
		{RSMVersion{2, 3}, 2, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := tt.version.AtLeast(tt.major, tt.minor); got != tt.want {
				t.Errorf("AtLeast(%d, %d) = %v, want %v", tt.major, tt.minor, got, tt.want)
			}
		})
	}
}

func TestParseRSM_CountErrors(t *testing.T) {
	valid := makeRSM(1, 4, "root", newTestRSMNode("root", "", [3]float32{}))

	// Node count sits after magic, version, 8 header bytes, alpha, reserved,
	// the texture table and the root name.
	nodeCountAt := 6 + 8 + 1 + 16 + 4 + rsmNameLen + rsmNameLen
	badNodes := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badNodes[nodeCountAt:], uint32(0xFFFFFFFF))
	if _, err := ParseRSM(badNodes); !errors.Is(err, ErrInvalidNodeCount) {
		t.Errorf("expected ErrInvalidNodeCount, got %v", err)
	}

	// Vertex count follows two names, the texture ids and 22 floats.
	vertexCountAt := nodeCountAt + 4 + 2*rsmNameLen + 8 + 22*4
	badVertices := bytes.Clone(valid)
	binary.LittleEndian.PutUint32(badVertices[vertexCountAt:], uint32(0xFFFFFFFF))
	if _, err := ParseRSM(badVertices); !errors.Is(err, ErrInvalidRSMCount) {
		t.Errorf("expected ErrInvalidRSMCount, got %v", err)
	}

	// Dropping the volume box count and the rotation key count
	if _, err := ParseRSM(valid[:len(valid)-8]); !errors.Is(err, ErrTruncatedRSMData) {
		t.Errorf("expected ErrTruncatedRSMData, got %v", err)
	}

	// The volume box section is optional
	if _, err := ParseRSM(valid[:len(valid)-4]); err != nil {
		t.Errorf("unexpected error without volume boxes: %v", err)
	}
}

func TestRSMPointSets_Hierarchy(t *testing.T) {
	base := newTestRSMNode("base", "", [3]float32{1, 0, 0})
	base.position = [3]float32{1, 2, 3}
	base.scale = [3]float32{2, 2, 2}

	arm := newTestRSMNode("arm", "base", [3]float32{0, 0, 0})
	arm.position = [3]float32{10, 0, 0}
	arm.offset = [3]float32{0, 1, 0}

	turned := newTestRSMNode("turned", "", [3]float32{1, 0, 0})
	turned.rotAngle = float32(gomath.Pi / 2)
	turned.rotAxis = [3]float32{0, 0, 5}

	empty := newTestRSMNode("dummy", "base")

	model, err := ParseRSM(makeRSM(1, 5, "base", base, arm, turned, empty))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sets, err := model.PointSets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 3 {
		t.Fatalf("expected 3 point sets (empty node dropped), got %d", len(sets))
	}

	tests := []struct {
		name string
		want math.Vec3
	}{
		{"base", math.Vec3{X: 3, Y: 2, Z: 3}},
		{"arm", math.Vec3{X: 21, Y: 4, Z: 3}},
		{"turned", math.Vec3{X: 0, Y: 1, Z: 0}},
	}
	for i, tt := range tests {
		if sets[i].Name != tt.name {
			t.Errorf("set %d: expected name %q, got %q", i, tt.name, sets[i].Name)
		}
		if got := sets[i].Points[0]; !got.ApproxEqual(tt.want, 1e-5) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestRSMPointSets_Keyframes(t *testing.T) {
	s := float32(gomath.Sqrt2 / 2)

	node := newTestRSMNode("vane", "", [3]float32{1, 0, 0})
	node.rotAngle = 1 // replaced by the rotation key
	node.rotAxis = [3]float32{1, 0, 0}
	node.rotKey = &[4]float32{0, 0, s, s} // quarter turn about Z
	node.scaleKey = &[3]float32{3, 3, 3}

	model, err := ParseRSM(makeRSM(1, 5, "vane", node, newTestRSMNode("tail", "vane", [3]float32{0, 0, 1})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.Nodes[0].RotKey == nil || model.Nodes[0].ScaleKey == nil {
		t.Fatal("expected first keyframes to be kept")
	}
	if model.Nodes[1].RotKey != nil {
		t.Error("node without keys should have no rotation key")
	}

	sets, err := model.PointSets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := sets[0].Points[0], (math.Vec3{Y: 3}); !got.ApproxEqual(want, 1e-5) {
		t.Errorf("keyed node: expected %v, got %v", want, got)
	}
	// Children inherit the keyed rotation and scale
	if got, want := sets[1].Points[0], (math.Vec3{Z: 3}); !got.ApproxEqual(want, 1e-5) {
		t.Errorf("child node: expected %v, got %v", want, got)
	}
}

func TestRSMPointSets_ChildBeforeParent(t *testing.T) {
	child := newTestRSMNode("child", "root", [3]float32{0, 0, 0})
	root := newTestRSMNode("root", "")
	root.position = [3]float32{0, 0, 7}

	model, err := ParseRSM(makeRSM(1, 4, "root", child, root))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sets, err := model.PointSets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sets[0].Points[0]; got != (math.Vec3{Z: 7}) {
		t.Errorf("expected parent translation applied, got %v", got)
	}
}

func TestRSMPointSets_Cycle(t *testing.T) {
	a := newTestRSMNode("a", "b", [3]float32{})
	b := newTestRSMNode("b", "a", [3]float32{})

	model, err := ParseRSM(makeRSM(1, 4, "a", a, b))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := model.PointSets(); !errors.Is(err, ErrRSMParentCycle) {
		t.Errorf("expected ErrRSMParentCycle, got %v", err)
	}
}

func TestRSMKoreanNodeName(t *testing.T) {
	model, err := ParseRSM(makeRSM(1, 4, "돛", newTestRSMNode("돛", "", [3]float32{})))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model.Nodes[0].Name != "돛" {
		t.Errorf("expected decoded name, got %q", model.Nodes[0].Name)
	}
}

func TestLoadPointSets(t *testing.T) {
	dir := t.TempDir()

	rsmPath := filepath.Join(dir, "ship.RSM")
	ship := makeRSM(1, 4, "hull", newTestRSMNode("hull", "", [3]float32{0, 0, 0}, [3]float32{0, 0, 1}))
	if err := os.WriteFile(rsmPath, ship, 0644); err != nil {
		t.Fatal(err)
	}
	sets, err := LoadPointSets(rsmPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 1 || sets[0].Name != "hull" || len(sets[0].Points) != 2 {
		t.Errorf("unexpected point sets %+v", sets)
	}

	objPath := filepath.Join(dir, "ship.obj")
	if err := os.WriteFile(objPath, []byte("o hull\nv 0 0 0\nv 0 0 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	sets, err = LoadPointSets(objPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 1 || sets[0].Name != "hull" {
		t.Errorf("unexpected point sets %+v", sets)
	}

	emptyPath := filepath.Join(dir, "empty.rsm")
	if err := os.WriteFile(emptyPath, makeRSM(1, 4, "root", newTestRSMNode("root", "")), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPointSets(emptyPath); !errors.Is(err, ErrEmptyRSM) {
		t.Errorf("expected ErrEmptyRSM, got %v", err)
	}
}

func TestParsePointSets(t *testing.T) {
	model := makeRSM(1, 5, "hull", newTestRSMNode("hull", "", [3]float32{1, 1, 1}))
	sets, err := ParsePointSets("data/model/ship.rsm", model)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 1 || sets[0].Points[0] != (math.Vec3{X: 1, Y: 1, Z: 1}) {
		t.Errorf("unexpected point sets %+v", sets)
	}

	sets, err = ParsePointSets("crate.obj", []byte("v 1 2 3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sets) != 1 || sets[0].Name != DefaultObjectName {
		t.Errorf("unexpected point sets %+v", sets)
	}

	if _, err := ParsePointSets("crate.rsm", []byte("v 1 2 3\n")); !errors.Is(err, ErrInvalidRSMMagic) {
		t.Errorf("expected ErrInvalidRSMMagic, got %v", err)
	}
}
