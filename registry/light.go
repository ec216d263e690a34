package registry

import "github.com/go-gl/mathgl/mgl32"

type LightType uint32

const (
	LightTypePoint       LightType = 0
	LightTypeDirectional LightType = 1
	LightTypeSpot        LightType = 2
)

func (t LightType) String() string {
	switch t {
	case LightTypePoint:
		return "point"
	case LightTypeDirectional:
		return "directional"
	case LightTypeSpot:
		return "spot"
	}
	return "unknown"
}

// Falloff holds distance and cone attenuation. Cone values are cosines and
// only meaningful for spot lights.
type Falloff struct {
	Constant  float32
	Linear    float32
	Quadratic float32
	StartFade float32
	EndFade   float32 // -1 disables the fade window
	Cap       float32
	InnerCone float32
	OuterCone float32
	Exponent  float32
}

// Attenuation is 1/(c + l*d + q*d^2), or 1 when the denominator vanishes.
func (f Falloff) Attenuation(dist float32) float32 {
	denom := f.Constant + f.Linear*dist + f.Quadratic*dist*dist
	if denom > 0.00001 {
		return 1 / denom
	}
	return 1
}

// Light is immutable once the registry is built. ID is its index in the
// registry's light slice. Direction is the direction the light travels and
// is unused for point lights; Pos is unused for directional lights.
type Light struct {
	ID        int
	Type      LightType
	Leaf      int
	Pos       mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Falloff   Falloff
}
