// Package pipeline fits and builds capsule colliders for many objects at once.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-colliders/internal/config"
	"github.com/Faultbox/midgard-colliders/internal/logger"
	"github.com/Faultbox/midgard-colliders/pkg/collider"
	"github.com/Faultbox/midgard-colliders/pkg/formats"
	"github.com/Faultbox/midgard-colliders/pkg/mesh"
)

// Options controls one pipeline run.
type Options struct {
	Axis   collider.Axis
	Offset float64
	// Tessellation holds the segment counts and UV profile. Its Radius and
	// Depth are replaced by each fitted capsule.
	Tessellation mesh.Params
	// Local leaves meshes at the origin along +Z instead of placing them
	// over their source points.
	Local       bool
	Triangulate bool
	Workers     int
}

// OptionsFromConfig converts validated settings into pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Axis:         cfg.Axis(),
		Offset:       cfg.Fit.Offset,
		Tessellation: cfg.MeshParams(0, 0),
		Local:        cfg.Fit.Space == config.SpaceLocal,
		Triangulate:  cfg.Output.Triangulate,
		Workers:      cfg.Fit.Workers,
	}
}

// Result holds the outcome of processing one object.
type Result struct {
	Name    string
	Capsule collider.Capsule
	Mesh    *mesh.Mesh
	Err     error
}

// Run fits one capsule per point set and builds its mesh. Results keep the
// order of objects. A failed object records its error in its Result and does
// not stop the others; the returned error is non-nil only when ctx ends
// before every object was processed.
func Run(ctx context.Context, objects []formats.PointSet, opts Options) ([]Result, error) {
	log := logger.Named("pipeline")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(objects))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range objects {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = Process(objects[i], opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	log.Info("colliders generated",
		zap.Int("objects", len(objects)),
		zap.Int("failed", failed),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)),
	)

	return results, nil
}

// Process fits and builds the collider for a single object.
func Process(obj formats.PointSet, opts Options) Result {
	log := logger.Named("pipeline").With(zap.String("object", obj.Name))

	c, err := collider.FitCapsule(obj.Points, opts.Axis)
	if err != nil {
		log.Warn("capsule fit failed", zap.Int("points", len(obj.Points)), zap.Error(err))
		return Result{Name: obj.Name, Err: fmt.Errorf("fitting %s: %w", obj.Name, err)}
	}
	if opts.Offset != 0 {
		c = c.Inflate(opts.Offset)
	}

	p := opts.Tessellation
	p.Radius = c.Radius
	p.Depth = c.Height
	m := mesh.BuildCapsule(p.LogClamped(log))

	if !opts.Local {
		m = m.Transform(c.MeshTransform())
	}
	if opts.Triangulate {
		m = m.Triangulate()
	}

	log.Debug("capsule fitted",
		zap.Int("points", len(obj.Points)),
		zap.Float64("radius", c.Radius),
		zap.Float64("height", c.Height),
		zap.Stringer("axis", opts.Axis),
		zap.Int("faces", m.FaceCount()),
	)

	return Result{Name: obj.Name, Capsule: c, Mesh: m}
}
