package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gekko3d/bsplight"
	"github.com/gekko3d/bsplight/leveldata"
	"github.com/gekko3d/bsplight/lighting"
	"github.com/gekko3d/bsplight/logging"
	"github.com/gekko3d/bsplight/profiler"
	"github.com/gekko3d/bsplight/pvs"
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func TestParsePath(t *testing.T) {
	wps, err := parsePath("0,0,0  10,5,-2.5")
	require.NoError(t, err)
	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {10, 5, -2.5}}, wps)

	for _, bad := range []string{"", "1,2", "1,2,x"} {
		_, err := parsePath(bad)
		assert.Error(t, err, bad)
	}
}

func TestWalk(t *testing.T) {
	pts := walk([]mgl32.Vec3{{0, 0, 0}, {4, 0, 0}}, 4)
	assert.Equal(t, []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}, {4, 0, 0}}, pts)

	assert.Equal(t, []mgl32.Vec3{{1, 2, 3}}, walk([]mgl32.Vec3{{1, 2, 3}}, 0))
}

func TestSimulate_RecordsGauges(t *testing.T) {
	prof := profiler.NewProfiler()
	clock := &lighting.StepClock{}
	lvl, err := bsplight.LoadLevel("../../leveldata/testdata/three_rooms.yaml", nil, bsplight.Options{Clock: clock, Metrics: prof})
	require.NoError(t, err)

	obj := lighting.NewSceneObject()
	pts := walk([]mgl32.Vec3{{10, 10, 10}, {40, 40, 10}}, 3)
	simulate(logging.NewNopLogger(), lvl, prof, clock, obj, pts, 0.1)

	assert.Equal(t, len(pts), prof.CallCount(lighting.ScopeUpdate))
	assert.Equal(t, 1, prof.Counts[countCacheEntries])
	assert.Greater(t, prof.Counts[countLiveLights], 0)
	assert.InDelta(t, 0.4, clock.Now, 1e-9)
}

func TestDumpCubemaps(t *testing.T) {
	lvl, err := leveldata.Load("../../leveldata/testdata/three_rooms.yaml")
	require.NoError(t, err)
	vis, err := pvs.Build(lvl.Tree.Leafs, lvl.VisData)
	require.NoError(t, err)
	reg, err := registry.Build(lvl.Input, lvl.Tree, vis, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, dumpCubemaps(logging.NewNopLogger(), reg, dir))

	files, err := filepath.Glob(filepath.Join(dir, "*.tiff"))
	require.NoError(t, err)
	// Six faces of the full cubemap and three of the partial one.
	assert.Len(t, files, 9)

	f, err := os.Open(filepath.Join(dir, "cubemap_0_px.tiff"))
	require.NoError(t, err)
	defer f.Close()
	img, err := tiff.Decode(f)
	require.NoError(t, err)
	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}
