package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-colliders/internal/config"
	"github.com/Faultbox/midgard-colliders/internal/logger"
	"github.com/Faultbox/midgard-colliders/internal/pipeline"
	"github.com/Faultbox/midgard-colliders/pkg/formats"
	"github.com/Faultbox/midgard-colliders/pkg/grf"
	"github.com/Faultbox/midgard-colliders/pkg/mesh"
)

// colliderSuffix is appended to source object names in generated OBJ files.
const colliderSuffix = "_collider"

// fitReport is the YAML form of one fitted object.
type fitReport struct {
	Name     string      `yaml:"name"`
	Radius   float64     `yaml:"radius,omitempty"`
	Height   float64     `yaml:"height,omitempty"`
	Center   *[3]float64 `yaml:"center,omitempty,flow"`
	Axis     *[3]float64 `yaml:"axis,omitempty,flow"`
	Rotation *[4]float64 `yaml:"rotation,omitempty,flow"` // w, x, y, z
	Error    string      `yaml:"error,omitempty"`
}

func newFitReport(r pipeline.Result) fitReport {
	if r.Err != nil {
		return fitReport{Name: r.Name, Error: r.Err.Error()}
	}
	c := r.Capsule
	q := c.Rotation()
	return fitReport{
		Name:     r.Name,
		Radius:   c.Radius,
		Height:   c.Height,
		Center:   &[3]float64{c.Center.X, c.Center.Y, c.Center.Z},
		Axis:     &[3]float64{c.Axis.X, c.Axis.Y, c.Axis.Z},
		Rotation: &[4]float64{q.W, q.X, q.Y, q.Z},
	}
}

// failures joins the errors of failed results.
func failures(results []pipeline.Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// splitArchivePath splits "archive.grf:inner/path" into its two parts.
func splitArchivePath(arg string) (archive, inner string, ok bool) {
	i := strings.Index(strings.ToLower(arg), ".grf:")
	if i < 0 {
		return "", "", false
	}
	return arg[:i+len(".grf")], arg[i+len(".grf:"):], true
}

// readPointSets loads a model file, or a model stored in a GRF archive when
// the argument has the form "archive.grf:path/in/archive".
func readPointSets(arg string) ([]formats.PointSet, error) {
	archivePath, inner, ok := splitArchivePath(arg)
	if !ok {
		return formats.LoadPointSets(arg)
	}

	archive, err := grf.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	data, err := archive.Read(inner)
	if err != nil {
		return nil, err
	}
	return formats.ParsePointSets(inner, data)
}

func loadObjects(ctx context.Context, cfg *config.Config, path string) ([]pipeline.Result, error) {
	objects, err := readPointSets(path)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded point sets", zap.String("path", path), zap.Int("objects", len(objects)))

	return pipeline.Run(ctx, objects, pipeline.OptionsFromConfig(cfg))
}

func cmdFit(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: capsulegen fit <model>")
	}

	results, err := loadObjects(ctx, cfg, args[0])
	if err != nil {
		return err
	}

	reports := make([]fitReport, len(results))
	for i, r := range results {
		reports[i] = newFitReport(r)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(reports); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	return failures(results)
}

func cmdBuild(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: capsulegen build <model> <output.obj>")
	}

	results, err := loadObjects(ctx, cfg, args[0])
	if err != nil {
		return err
	}

	var meshes []formats.NamedMesh
	for _, r := range results {
		if r.Err == nil {
			meshes = append(meshes, formats.NamedMesh{Name: r.Name + colliderSuffix, Mesh: r.Mesh})
		}
	}
	if len(meshes) > 0 {
		if err := formats.SaveOBJ(args[1], meshes...); err != nil {
			return err
		}
		logger.Info("colliders written", zap.String("path", args[1]), zap.Int("meshes", len(meshes)))
	}

	return failures(results)
}

func cmdPrimitive(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: capsulegen primitive <output.obj>")
	}

	p := cfg.MeshParams(cfg.Capsule.Radius, cfg.Capsule.Depth)
	m := mesh.BuildCapsule(p.LogClamped(logger.Named("primitive")))
	if cfg.Output.Triangulate {
		m = m.Triangulate()
	}

	if err := formats.SaveOBJ(args[0], formats.NamedMesh{Name: "Capsule", Mesh: m}); err != nil {
		return err
	}
	logger.Info("capsule written",
		zap.String("path", args[0]),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("faces", m.FaceCount()),
	)
	return nil
}

func cmdList(args []string, out io.Writer) error {
	if len(args) < 1 {
		return errors.New("usage: capsulegen list <archive.grf>")
	}

	archive, err := grf.Open(args[0])
	if err != nil {
		return err
	}
	defer archive.Close()

	for _, name := range archive.List(".rsm", ".obj") {
		fmt.Fprintf(out, "%s:%s\n", args[0], name)
	}
	return nil
}

func cmdConfig(cfg *config.Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return yaml.NewEncoder(out).Encode(cfg)
	}
	if args[0] != "save" {
		return fmt.Errorf("unknown config action: %s", args[0])
	}

	path := filepath.Join(config.ConfigDir(), "config.yaml")
	save := cfg.Save
	if len(args) > 1 {
		path = args[1]
		save = func() error { return cfg.SaveTo(path) }
	}
	if err := save(); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "Saved %s\n", path)
	return nil
}
