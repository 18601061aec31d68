package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-colliders/pkg/math"
	"github.com/Faultbox/midgard-colliders/pkg/mesh"
)

// OBJ format errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrEmptyOBJ         = errors.New("OBJ contains no vertices")
)

// ParseOBJ reads the "v" statements of a Wavefront OBJ file, grouped by the
// "o" and "g" statements preceding them. Faces and every other statement are
// ignored; only positions matter for fitting. Groups without vertices are dropped.
func ParseOBJ(data []byte) ([]PointSet, error) {
	var sets []PointSet
	current := PointSet{Name: DefaultObjectName}

	flush := func() {
		if len(current.Points) > 0 {
			sets = append(sets, current)
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "o", "g":
			name := strings.Join(fields[1:], " ")
			if name == "" {
				name = DefaultObjectName
			}
			flush()
			current = PointSet{Name: name}
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("%w: line %d: want 3 coordinates, got %d", ErrInvalidOBJVertex, line, len(fields)-1)
			}
			var xyz [3]float64
			for k := range xyz {
				f, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidOBJVertex, line, err)
				}
				xyz[k] = f
			}
			current.Points = append(current.Points, math.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}
	flush()

	if len(sets) == 0 {
		return nil, ErrEmptyOBJ
	}
	return sets, nil
}

// LoadOBJ reads and parses an OBJ file from disk.
func LoadOBJ(path string) ([]PointSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

// NamedMesh pairs a mesh with the object name written for it.
type NamedMesh struct {
	Name string
	Mesh *mesh.Mesh
}

// WriteOBJ writes meshes as one OBJ file, each under its own "o" statement.
// Faces reference position/uv/normal triples; indices are 1-based and global
// across objects, as OBJ requires.
func WriteOBJ(w io.Writer, meshes ...NamedMesh) error {
	bw := bufio.NewWriter(w)
	var vBase, tBase, nBase int

	for _, nm := range meshes {
		m := nm.Mesh
		fmt.Fprintf(bw, "o %s\n", nm.Name)
		for _, v := range m.Vertices {
			fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
		}
		for _, t := range m.UVs {
			fmt.Fprintf(bw, "vt %s %s\n", formatFloat(t.X), formatFloat(t.Y))
		}
		for _, n := range m.Normals {
			fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
		}
		for i, vf := range m.VertexFaces {
			bw.WriteString("f")
			for k := range vf {
				fmt.Fprintf(bw, " %d/%d/%d", vBase+vf[k]+1, tBase+m.UVFaces[i][k]+1, nBase+m.NormalFaces[i][k]+1)
			}
			bw.WriteByte('\n')
		}
		vBase += len(m.Vertices)
		tBase += len(m.UVs)
		nBase += len(m.Normals)
	}
	return bw.Flush()
}

// SaveOBJ writes meshes to an OBJ file on disk.
func SaveOBJ(path string, meshes ...NamedMesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating OBJ file: %w", err)
	}
	if err := WriteOBJ(f, meshes...); err != nil {
		f.Close()
		return fmt.Errorf("writing OBJ file: %w", err)
	}
	return f.Close()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 6, 64)
}
