package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-colliders/internal/config"
	"github.com/Faultbox/midgard-colliders/internal/logger"
	"github.com/Faultbox/midgard-colliders/pkg/collider"
	"github.com/Faultbox/midgard-colliders/pkg/formats"
	"github.com/Faultbox/midgard-colliders/pkg/math"
	"github.com/Faultbox/midgard-colliders/pkg/mesh"
)

// rod returns points around the X axis from x=-2 to x=2 at distance 0.1.
func rod(offset math.Vec3) []math.Vec3 {
	var pts []math.Vec3
	for x := -2.0; x <= 2.0; x++ {
		pts = append(pts,
			math.Vec3{X: x, Y: 0.1}.Add(offset),
			math.Vec3{X: x, Y: -0.1}.Add(offset),
			math.Vec3{X: x, Z: 0.1}.Add(offset),
			math.Vec3{X: x, Z: -0.1}.Add(offset),
		)
	}
	return pts
}

func testOptions() Options {
	return Options{
		Axis: collider.AxisZ,
		Tessellation: mesh.Params{
			Longitudes: 8,
			Latitudes:  4,
			Rings:      1,
			UVProfile:  mesh.UVFixed,
		},
		Workers: 2,
	}
}

func TestRunKeepsOrderAndIsolatesFailures(t *testing.T) {
	objects := []formats.PointSet{
		{Name: "Left", Points: rod(math.Vec3{Y: -3})},
		{Name: "Broken", Points: []math.Vec3{{X: 1}}},
		{Name: "Right", Points: rod(math.Vec3{Y: 3})},
	}

	results, err := Run(context.Background(), objects, testOptions())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Left", results[0].Name)
	assert.Equal(t, "Broken", results[1].Name)
	assert.Equal(t, "Right", results[2].Name)

	assert.ErrorIs(t, results[1].Err, collider.ErrInvalidInput)
	assert.Nil(t, results[1].Mesh)

	want := mesh.CapsuleCounts(mesh.Params{Longitudes: 8, Latitudes: 4, Rings: 1})
	for _, i := range []int{0, 2} {
		r := results[i]
		require.NoError(t, r.Err)
		require.NotNil(t, r.Mesh)
		assert.InDelta(t, 0.1, r.Capsule.Radius, 1e-9)
		assert.InDelta(t, 4.0, r.Capsule.Height, 1e-9)
		assert.Len(t, r.Mesh.Vertices, want.Vertices)
		assert.Equal(t, want.Faces, r.Mesh.FaceCount())
		assert.NoError(t, r.Mesh.Validate())
		assert.True(t, r.Mesh.IsClosed())
	}
}

func TestProcessWorldSpace(t *testing.T) {
	offset := math.Vec3{X: 1, Y: 2, Z: 3}
	r := Process(formats.PointSet{Name: "Rod", Points: rod(offset)}, testOptions())
	require.NoError(t, r.Err)

	assert.True(t, r.Capsule.Center.ApproxEqual(offset, 1e-9), "center %v", r.Capsule.Center)

	// The north pole sits one cap beyond the upper hemisphere center
	pole := r.Mesh.Vertices[0]
	want := offset.Add(r.Capsule.Axis.Scale(r.Capsule.Height/2 + r.Capsule.Radius))
	assert.True(t, pole.ApproxEqual(want, 1e-9), "pole %v, want %v", pole, want)

	for _, v := range r.Mesh.Vertices {
		assert.True(t, r.Capsule.Contains(v, 1e-9), "vertex %v outside capsule", v)
	}
}

func TestProcessLocalSpace(t *testing.T) {
	opts := testOptions()
	opts.Local = true

	r := Process(formats.PointSet{Name: "Rod", Points: rod(math.Vec3{X: 5})}, opts)
	require.NoError(t, r.Err)

	assert.True(t, r.Mesh.Vertices[0].ApproxEqual(math.Vec3{Z: 2.1}, 1e-9), "pole %v", r.Mesh.Vertices[0])
	assert.True(t, r.Mesh.Vertices[len(r.Mesh.Vertices)-1].ApproxEqual(math.Vec3{Z: -2.1}, 1e-9))
}

func TestProcessOffsetAndTriangulate(t *testing.T) {
	opts := testOptions()
	opts.Local = true
	opts.Offset = 0.4
	opts.Triangulate = true

	r := Process(formats.PointSet{Name: "Rod", Points: rod(math.Vec3{})}, opts)
	require.NoError(t, r.Err)

	assert.InDelta(t, 0.5, r.Capsule.Radius, 1e-9)
	for i, f := range r.Mesh.VertexFaces {
		assert.Len(t, f, 3, "face %d", i)
	}
	assert.True(t, r.Mesh.Vertices[0].ApproxEqual(math.Vec3{Z: 2.5}, 1e-9))

	// Shrinking past zero clamps the radius
	opts.Offset = -1
	r = Process(formats.PointSet{Name: "Rod", Points: rod(math.Vec3{})}, opts)
	require.NoError(t, r.Err)
	assert.Zero(t, r.Capsule.Radius)
	assert.NoError(t, r.Mesh.Validate())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	objects := []formats.PointSet{{Name: "Rod", Points: rod(math.Vec3{})}}
	_, err := Run(ctx, objects, testOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunEmpty(t *testing.T) {
	results, err := Run(context.Background(), nil, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunLogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(nil)

	objects := []formats.PointSet{
		{Name: "Rod", Points: rod(math.Vec3{})},
		{Name: "Dot", Points: []math.Vec3{{}, {}}},
	}
	_, err := Run(context.Background(), objects, testOptions())
	require.NoError(t, err)

	summary := logs.FilterMessage("colliders generated").All()
	require.Len(t, summary, 1)
	fields := summary[0].ContextMap()
	assert.EqualValues(t, 2, fields["objects"])
	assert.EqualValues(t, 1, fields["failed"])

	assert.Equal(t, 1, logs.FilterMessage("capsule fit failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("capsule fitted").Len())
}

func TestProcessLogsClampedRadius(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.SetLogger(zap.New(core))
	defer logger.SetLogger(nil)

	// A straight line fits with zero radius, which the builder raises.
	line := []math.Vec3{{X: -1}, {X: 1}}
	res := Process(formats.PointSet{Name: "Line", Points: line}, testOptions())
	require.NoError(t, res.Err)
	require.NoError(t, res.Mesh.Validate())

	clamped := logs.FilterMessage("capsule parameters clamped").All()
	require.Len(t, clamped, 1)
	assert.Equal(t, mesh.MinRadius, clamped[0].ContextMap()["radiusClamped"])
	assert.Equal(t, "Line", clamped[0].ContextMap()["object"])
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Fit.Axis = "y"
	cfg.Fit.Offset = 0.25
	cfg.Fit.Space = config.SpaceLocal
	cfg.Fit.Workers = 3
	cfg.Output.Triangulate = true
	cfg.Capsule.Longitudes = 12

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, collider.AxisY, opts.Axis)
	assert.Equal(t, 0.25, opts.Offset)
	assert.True(t, opts.Local)
	assert.True(t, opts.Triangulate)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 12, opts.Tessellation.Longitudes)
	assert.Equal(t, mesh.UVFixed, opts.Tessellation.UVProfile)
}
