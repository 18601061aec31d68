// Package formats reads point clouds from model files and writes collider
// meshes as Wavefront OBJ.
package formats

import (
	"path/filepath"
	"strings"

	"github.com/Faultbox/midgard-colliders/pkg/math"
)

// DefaultObjectName names points that carry no object name of their own.
const DefaultObjectName = "object"

// PointSet is the vertex positions of one named object.
type PointSet struct {
	Name   string
	Points []math.Vec3
}

// LoadPointSets reads the objects of a model file, choosing the reader by
// extension: ".rsm" for Ragnarok Online models, Wavefront OBJ otherwise.
func LoadPointSets(path string) ([]PointSet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rsm":
		return LoadRSM(path)
	default:
		return LoadOBJ(path)
	}
}

// ParsePointSets is LoadPointSets for model data already in memory; name
// selects the reader.
func ParsePointSets(name string, data []byte) ([]PointSet, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".rsm":
		model, err := ParseRSM(data)
		if err != nil {
			return nil, err
		}
		return rsmPointSets(model, name)
	default:
		return ParseOBJ(data)
	}
}
