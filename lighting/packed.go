package lighting

import (
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	MaxActiveLights = 4
	MaxTotalLights  = 8
)

// PackedLight is the renderer-facing layout of one light.
type PackedLight struct {
	ID        int
	Type      registry.LightType
	Position  [4]float32 // xyz, type
	Direction [4]float32 // xyz, unused
	Color     [4]float32 // rgb, unused
	Falloff   [4]float32 // constant, linear, quadratic, cap
	Cone      [4]float32 // inner cos, outer cos, exponent, unused
	Fade      [4]float32 // start, end, unused, unused
}

func packLight(l registry.Light, color mgl32.Vec3) PackedLight {
	f := l.Falloff
	return PackedLight{
		ID:        l.ID,
		Type:      l.Type,
		Position:  [4]float32{l.Pos[0], l.Pos[1], l.Pos[2], float32(l.Type)},
		Direction: [4]float32{l.Direction[0], l.Direction[1], l.Direction[2], 0},
		Color:     [4]float32{color[0], color[1], color[2], 0},
		Falloff:   [4]float32{f.Constant, f.Linear, f.Quadratic, f.Cap},
		Cone:      [4]float32{f.InnerCone, f.OuterCone, f.Exponent, 0},
		Fade:      [4]float32{f.StartFade, f.EndFade, 0, 0},
	}
}

func (p PackedLight) RGB() mgl32.Vec3 {
	return mgl32.Vec3{p.Color[0], p.Color[1], p.Color[2]}
}

func (p *PackedLight) setRGB(c mgl32.Vec3) {
	p.Color[0], p.Color[1], p.Color[2] = c[0], c[1], c[2]
}

// Snapshot is the lighting state handed to the renderer for one object.
// Lights[:ActiveLights] are active; Lights[ActiveLights:LightCount] are
// fading out.
type Snapshot struct {
	AmbientCube    registry.AmbientCube
	Lights         [MaxTotalLights]PackedLight
	LightCount     int
	ActiveLights   int
	Cubemap        int
	CubemapFaces   *registry.Cubemap
	CubemapChanged bool
	AmbientBoosted bool
	Leaf           int
	Sequence       uint64
}

// EmptySnapshot is returned when there is nothing to light against.
func EmptySnapshot() Snapshot {
	return Snapshot{Cubemap: -1}
}

func (s *Snapshot) Active() []PackedLight { return s.Lights[:s.ActiveLights] }

func (s *Snapshot) Fading() []PackedLight { return s.Lights[s.ActiveLights:s.LightCount] }
