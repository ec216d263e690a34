package bsplight

import (
	"testing"

	"github.com/gekko3d/bsplight/leveldata"
	"github.com/gekko3d/bsplight/lighting"
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeRooms = "leveldata/testdata/three_rooms.yaml"

func loadThreeRooms(t *testing.T) (*Level, *lighting.StepClock) {
	t.Helper()
	clock := &lighting.StepClock{}
	lvl, err := LoadLevel(threeRooms, nil, Options{Clock: clock})
	require.NoError(t, err)
	return lvl, clock
}

func TestNewLevel_NoData(t *testing.T) {
	_, err := NewLevel(nil, nil, Options{})
	assert.ErrorIs(t, err, ErrNoLevelData)

	_, err = LoadLevel("leveldata/testdata/missing.yaml", nil, Options{})
	assert.Error(t, err)
}

func TestLevel_Visibility(t *testing.T) {
	lvl, _ := loadThreeRooms(t)

	assert.Equal(t, 2, lvl.FindLeaf(mgl32.Vec3{10, 10, 10}))
	for leaf := 0; leaf < 4; leaf++ {
		assert.True(t, lvl.IsVisible(leaf, leaf))
	}
	assert.True(t, lvl.IsVisible(1, 2))
	assert.True(t, lvl.IsVisible(2, 3))
	assert.False(t, lvl.IsVisible(3, 2))
	assert.False(t, lvl.IsVisible(1, 3))
}

func TestLevel_Update(t *testing.T) {
	lvl, clock := loadThreeRooms(t)
	obj := lighting.NewSceneObject()

	snap := lvl.Update(obj, lighting.NewTransform(mgl32.Vec3{10, 10, 10}), true)
	assert.Equal(t, 2, snap.Leaf)
	assert.NotEqual(t, registry.AmbientCube{}, snap.AmbientCube)
	assert.Equal(t, 0, snap.Cubemap)
	assert.True(t, snap.CubemapChanged)

	// The sky box is straight above, so the sun leads the light list.
	require.Greater(t, snap.ActiveLights, 0)
	assert.Equal(t, registry.LightTypeDirectional, snap.Active()[0].Type)

	clock.Advance(0.1)
	snap = lvl.Update(obj, lighting.NewTransform(mgl32.Vec3{10, -10, 10}), true)
	assert.Equal(t, 3, snap.Leaf)
	assert.Equal(t, 0, snap.Cubemap, "the partial cubemap is never chosen")

	assert.Equal(t, 1, lvl.Cache().Len())
	lvl.Detach(obj.Handle())
	assert.Zero(t, lvl.Cache().Len())
}

func TestLevel_EyeSpaceLights(t *testing.T) {
	lvl, _ := loadThreeRooms(t)
	lights := lvl.EyeSpaceLights(mgl32.Vec3{10, 10, 10}, mgl32.Ident4())
	// Sun, the point light seen through leaf 1 and the local spot.
	require.Len(t, lights, 3)
	assert.Equal(t, registry.LightTypeDirectional, lights[0].Type)
}

func TestNewLevel_BadVisDataFallsBackToSameLeaf(t *testing.T) {
	data, err := leveldata.Load(threeRooms)
	require.NoError(t, err)
	data.VisData = data.VisData[:1]

	lvl, err := NewLevel(data, nil, Options{})
	require.NoError(t, err)
	assert.False(t, lvl.IsVisible(1, 2))
	assert.True(t, lvl.IsVisible(2, 2))
}

func TestNewLevel_BadSamplesFail(t *testing.T) {
	data, err := leveldata.Load(threeRooms)
	require.NoError(t, err)
	data.Input.AmbientSamples = data.Input.AmbientSamples[:1]

	_, err = NewLevel(data, nil, Options{})
	assert.Error(t, err)
}

func TestLevel_NilSafe(t *testing.T) {
	var lvl *Level
	snap := lvl.Update(lighting.NewSceneObject(), lighting.NewTransform(mgl32.Vec3{}), true)
	assert.Equal(t, -1, snap.Cubemap)
	assert.Zero(t, lvl.FindLeaf(mgl32.Vec3{1, 2, 3}))
	assert.True(t, lvl.IsVisible(4, 4))
	assert.False(t, lvl.IsVisible(1, 2))
	assert.Nil(t, lvl.EyeSpaceLights(mgl32.Vec3{}, mgl32.Ident4()))
	assert.Nil(t, lvl.Registry())
	lvl.Detach(lighting.NewSceneObject().Handle())
	lvl.Close()
}

func TestLevel_Close(t *testing.T) {
	lvl, _ := loadThreeRooms(t)
	lvl.Update(lighting.NewSceneObject(), lighting.NewTransform(mgl32.Vec3{10, 10, 10}), true)
	lvl.Close()
	assert.Zero(t, lvl.Cache().Len())
}

// floorRoom is one leaf with a floor brush whose top is z=0, a light
// above the floor and one below it.
const floorRoom = `
name: floor_room
planes:
  - {normal: [1, 0, 0], dist: 0}
nodes:
  - {plane: 0, children: [-2, -2]}
leafs:
  - {mins: [0, 0, 0], maxs: [0, 0, 0]}
  - {mins: [-64, -64, -64], maxs: [64, 64, 64]}
entities:
  - {classname: light, origin: "0 0 32", _light: "255 255 255 200"}
  - {classname: light, origin: "8 0 -32", _light: "255 255 255 200"}
occluders:
  - {mins: [-64, -64, -16], maxs: [64, 64, 0], contents: solid}
`

func TestLevel_ObjectOnFloorSeesLightAbove(t *testing.T) {
	data, err := leveldata.Parse([]byte(floorRoom))
	require.NoError(t, err)
	lvl, err := NewLevel(data, nil, Options{Clock: &lighting.StepClock{}})
	require.NoError(t, err)

	for _, z := range []float32{0, 0.01} {
		snap := lvl.Update(lighting.NewSceneObject(), lighting.NewTransform(mgl32.Vec3{0, 0, z}), true)
		require.Equal(t, 1, snap.ActiveLights, "z=%v", z)
		assert.Equal(t, 0, snap.Active()[0].ID, "the light under the floor stays occluded")
	}
}

func TestNewLevel_NegativeAmbientCountFails(t *testing.T) {
	data, err := leveldata.Load(threeRooms)
	require.NoError(t, err)
	data.Input.Leafs[2].AmbientFirst = 1
	data.Input.Leafs[2].AmbientCount = -1

	var lvl *Level
	require.NotPanics(t, func() { lvl, err = NewLevel(data, nil, Options{}) })
	assert.Error(t, err)
	assert.Nil(t, lvl)
}
