package lighting

import (
	"fmt"
	"testing"

	"github.com/gekko3d/bsplight/bsp"
	"github.com/gekko3d/bsplight/pvs"
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

var (
	// inDark is in leaf 1, which has no probes and no lights.
	inDark = mgl32.Vec3{-5, 5, 5}
	// inLit is in leaf 2, next to its probe and lights.
	inLit = mgl32.Vec3{5, 5, 5}

	whiteProbe = registry.ColorRGBExp32{R: 255, G: 255, B: 255}
	dimProbe   = registry.ColorRGBExp32{R: 255, G: 255, B: 255, Exponent: -6}
)

type fixture struct {
	probe     registry.ColorRGBExp32
	numLights int
	sun       bool
}

// build makes a level split at x=0: leaf 1 behind, leaf 2 in front. Leaf 2
// holds one probe, one cubemap and numLights white point lights along X.
// Leaf 1 sees leaf 2 but not the other way round.
func (f fixture) build(t *testing.T) (*registry.Registry, *bsp.Tree) {
	t.Helper()
	tree := &bsp.Tree{
		Planes: []bsp.Plane{{Normal: mgl32.Vec3{1, 0, 0}}},
		Nodes:  []bsp.Node{{Plane: 0, Children: [2]int32{bsp.LeafRef(2), bsp.LeafRef(1)}}},
		Leafs: []bsp.Leaf{
			{VisOffset: -1},
			{VisOffset: -1, Mins: mgl32.Vec3{-10, 0, 0}, Maxs: mgl32.Vec3{0, 10, 10}},
			{VisOffset: -1, Mins: mgl32.Vec3{0, 0, 0}, Maxs: mgl32.Vec3{10, 10, 10}, AmbientCount: 1},
		},
	}
	vis := pvs.FromRows([][]byte{{0x00}, {0x02}, {0x00}})

	var sample registry.AmbientSample
	for i := range sample.Cube {
		sample.Cube[i] = f.probe
	}
	sample.X, sample.Y, sample.Z = 128, 128, 128

	texels := make([]registry.ColorRGBExp32, 6)
	in := registry.Input{
		Leafs:          tree.Leafs,
		AmbientSamples: []registry.AmbientSample{sample},
		Cubemaps: []registry.CubemapRecord{
			{Pos: mgl32.Vec3{8, 8, 8}, Size: 1, FaceOffsets: [6]int{0, 1, 2, 3, 4, 5}},
		},
		CubemapTexels: texels,
		Gamma:         2.2,
	}
	for i := 0; i < f.numLights; i++ {
		in.Entities = append(in.Entities, registry.Entity{
			"classname": "light",
			"origin":    fmt.Sprintf("%d 5 5", i+1),
			"_light":    "255 255 255 255",
		})
	}
	if f.sun {
		in.Entities = append(in.Entities, registry.Entity{
			"classname": "light_environment",
			"pitch":     "-90",
			"_light":    "255 255 255 255",
		})
	}

	reg, err := registry.Build(in, tree, vis, nil)
	require.NoError(t, err)
	return reg, tree
}

func (f fixture) cache(t *testing.T, cfg Config, opts Options) (*Cache, *StepClock) {
	t.Helper()
	reg, tree := f.build(t)
	clock := &StepClock{}
	if opts.Clock == nil {
		opts.Clock = clock
	}
	return NewCache(reg, tree, cfg, opts), clock
}

// fakeTracer blocks rays ending at any of blocked and reports sky when
// sky is set.
type fakeTracer struct {
	blocked []mgl32.Vec3
	sky     bool
	calls   int
}

func (f *fakeTracer) Trace(start, end mgl32.Vec3, mask Contents) TraceResult {
	f.calls++
	if mask&ContentsSky != 0 {
		if f.sky {
			return TraceResult{Hit: true, Contents: ContentsSky}
		}
		return TraceResult{Hit: true, Contents: ContentsSolid}
	}
	for _, b := range f.blocked {
		if b == end {
			return TraceResult{Hit: true, Contents: ContentsSolid}
		}
	}
	return TraceResult{}
}

func distToTarget(cube registry.AmbientCube, target float32) float32 {
	var d float32
	for _, face := range cube {
		d += face.Sub(mgl32.Vec3{target, target, target}).LenSqr()
	}
	return d
}
