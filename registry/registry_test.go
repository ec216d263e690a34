package registry

import (
	"testing"

	"github.com/gekko3d/bsplight/bsp"
	"github.com/gekko3d/bsplight/logging"
	"github.com/gekko3d/bsplight/pvs"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLevel is split at x=0 (leaf 1 behind), the front half at y=0
// (leaf 2 at y>=0, leaf 3 below). Leaf 1 sees 2, leaf 2 sees 1 and 3,
// leaf 3 sees only itself.
func testLevel() (*bsp.Tree, *pvs.Table) {
	tree := &bsp.Tree{
		Planes: []bsp.Plane{
			{Normal: mgl32.Vec3{1, 0, 0}},
			{Normal: mgl32.Vec3{0, 1, 0}},
		},
		Nodes: []bsp.Node{
			{Plane: 0, Children: [2]int32{1, bsp.LeafRef(1)}},
			{Plane: 1, Children: [2]int32{bsp.LeafRef(2), bsp.LeafRef(3)}},
		},
		Leafs: []bsp.Leaf{
			{VisOffset: -1},
			{VisOffset: -1, Mins: mgl32.Vec3{-10, -10, 0}, Maxs: mgl32.Vec3{0, 10, 10}},
			{VisOffset: -1, Mins: mgl32.Vec3{0, 0, 0}, Maxs: mgl32.Vec3{10, 10, 10}, AmbientFirst: 0, AmbientCount: 3},
			{VisOffset: -1, Mins: mgl32.Vec3{0, -10, 0}, Maxs: mgl32.Vec3{10, 0, 10}},
		},
	}
	vis := pvs.FromRows([][]byte{{0x00}, {0x02}, {0x05}, {0x00}})
	return tree, vis
}

func testInput(tree *bsp.Tree) Input {
	white := ColorRGBExp32{R: 255, G: 255, B: 255}
	texels := make([]ColorRGBExp32, 6)
	for i := range texels {
		texels[i] = white
	}
	return Input{
		Entities: []Entity{
			{"classname": "light", "origin": "-5 0 5", "_light": "255 255 255 255"},
			{"classname": "light_spot", "origin": "5 5 5", "_light": "255 0 0 255"},
			{"classname": "light_environment", "angles": "0 0 0", "pitch": "-90", "_light": "255 255 200 255"},
			{"classname": "worldspawn"},
		},
		Leafs: tree.Leafs,
		AmbientSamples: []AmbientSample{
			{X: 0, Y: 0, Z: 0, Cube: [6]ColorRGBExp32{white}},
			{X: 255, Y: 255, Z: 255},
			{X: 0, Y: 0, Z: 0},
		},
		Cubemaps: []CubemapRecord{
			{Pos: mgl32.Vec3{5, 5, 5}, Size: 1, FaceOffsets: [6]int{0, 1, 2, 3, 4, 5}},
			{Pos: mgl32.Vec3{1, 1, 1}, Size: 1, FaceOffsets: [6]int{0, 1, 2, -1, 4, 5}},
			{Pos: mgl32.Vec3{5, 5, 5}, Size: 1, FaceOffsets: [6]int{0, 1, 2, 3, 4, 5}},
		},
		CubemapTexels: texels,
		Gamma:         2.2,
	}
}

func buildTestRegistry(t *testing.T) *Registry {
	t.Helper()
	tree, vis := testLevel()
	reg, err := Build(testInput(tree), tree, vis, logging.NewNopLogger())
	require.NoError(t, err)
	return reg
}

func TestBuild_Lights(t *testing.T) {
	reg := buildTestRegistry(t)

	require.Len(t, reg.Lights(), 3)
	for i, l := range reg.Lights() {
		assert.Equal(t, i, l.ID)
	}
	point, _ := reg.Light(0)
	assert.Equal(t, 1, point.Leaf)
	spot, _ := reg.Light(1)
	assert.Equal(t, 2, spot.Leaf)

	sun, ok := reg.Sun()
	require.True(t, ok)
	assert.Equal(t, LightTypeDirectional, sun.Type)

	_, ok = reg.Light(3)
	assert.False(t, ok)
}

func TestBuild_LeafLightsFollowPVS(t *testing.T) {
	reg := buildTestRegistry(t)

	assert.Equal(t, []int{0, 1}, reg.LeafLights(1))
	assert.Equal(t, []int{0, 1}, reg.LeafLights(2))
	assert.Equal(t, []int{1}, reg.LeafLights(3))
	assert.Empty(t, reg.LeafLights(0))
	assert.Nil(t, reg.LeafLights(99))

	// The directional light never lands in a bucket.
	for leaf := 0; leaf < reg.NumLeafs(); leaf++ {
		assert.NotContains(t, reg.LeafLights(leaf), 2)
	}
}

func TestBuild_NoPVSKeepsLightsInTheirOwnLeaf(t *testing.T) {
	tree, _ := testLevel()
	reg, err := Build(testInput(tree), tree, pvs.Empty(len(tree.Leafs)), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0}, reg.LeafLights(1))
	assert.Equal(t, []int{1}, reg.LeafLights(2))
	assert.Empty(t, reg.LeafLights(3))
}

func TestBuild_ProbesDeduplicatedAndDecoded(t *testing.T) {
	reg := buildTestRegistry(t)

	probes := reg.Probes(2)
	require.Len(t, probes, 2)
	assert.Equal(t, mgl32.Vec3{0, 0, 0}, probes[0].Pos)
	assert.Equal(t, mgl32.Vec3{10, 10, 10}, probes[1].Pos)
	assert.InDelta(t, 1, probes[0].Cube[FacePosX][0], 1e-6)
	assert.Zero(t, probes[0].Cube[FaceNegX][0])

	idx, ok := reg.NearestProbe(2, mgl32.Vec3{9, 9, 9})
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	p, ok := reg.Probe(2, idx)
	require.True(t, ok)
	assert.Equal(t, 2, p.Leaf)

	_, ok = reg.NearestProbe(1, mgl32.Vec3{})
	assert.False(t, ok)
	_, ok = reg.NearestProbe(-1, mgl32.Vec3{})
	assert.False(t, ok)
}

func TestBuild_Cubemaps(t *testing.T) {
	reg := buildTestRegistry(t)

	require.Len(t, reg.Cubemaps(), 2)
	full, _ := reg.Cubemap(0)
	assert.True(t, full.Complete)
	assert.Equal(t, 2, full.Leaf)
	assert.Equal(t, uint16(0xffff), full.Faces[FacePosZ].RGBA64At(0, 0).R)

	partial, _ := reg.Cubemap(1)
	assert.False(t, partial.Complete)
	assert.Nil(t, partial.Faces[FaceNegY])

	// The incomplete cubemap is closer but never chosen.
	idx, ok := reg.NearestCompleteCubemap(mgl32.Vec3{1, 1, 1})
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestBuild_SampleRangeOutOfBounds(t *testing.T) {
	tests := []struct {
		name         string
		first, count int
		samples      int
	}{
		{name: "past end", first: 0, count: 3, samples: 2},
		{name: "negative first", first: -1, count: 2, samples: 3},
		{name: "negative count", first: 1, count: -1, samples: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tree, vis := testLevel()
			in := testInput(tree)
			in.Leafs = append([]bsp.Leaf(nil), tree.Leafs...)
			in.Leafs[2].AmbientFirst = tc.first
			in.Leafs[2].AmbientCount = tc.count
			in.AmbientSamples = in.AmbientSamples[:tc.samples]

			var err error
			require.NotPanics(t, func() { _, err = Build(in, tree, vis, nil) })
			assert.Error(t, err)
		})
	}
}

func TestSortByDistance(t *testing.T) {
	reg := buildTestRegistry(t)
	ids := []int{0, 1}
	reg.SortByDistance(ids, mgl32.Vec3{6, 6, 5})
	assert.Equal(t, []int{1, 0}, ids)
}

func TestColorRGBExp32(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, ColorRGBExp32{R: 255}.Linear())
	assert.InDelta(t, 2, ColorRGBExp32{R: 255, Exponent: 1}.Linear()[0], 1e-6)
	assert.InDelta(t, 0.5, ColorRGBExp32{R: 255, Exponent: -1}.Linear()[0], 1e-6)

	c := ColorRGBExp32{R: 255, Exponent: -2}.GammaEncoded(2.2)
	assert.InDelta(t, 0.5325, c[0], 1e-3)
	assert.Equal(t, ColorRGBExp32{G: 255}.Linear(), ColorRGBExp32{G: 255}.GammaEncoded(0))
}

func TestRemapValClamped(t *testing.T) {
	assert.Equal(t, float32(5), remapValClamped(127.5, 0, 255, 0, 10))
	assert.Equal(t, float32(10), remapValClamped(300, 0, 255, 0, 10))
	assert.Equal(t, float32(3), remapValClamped(1, 2, 2, 3, 4))
}
