package lighting

import (
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
)

// EyeLight is a light transformed into camera space. Point lights carry
// only Position, directional lights only Direction, spot lights both.
type EyeLight struct {
	ID        int
	Type      registry.LightType
	Position  mgl32.Vec3
	Direction mgl32.Vec3
}

// EyeSpaceLights transforms the lights potentially visible from the
// camera's leaf, plus the sun, by view.
func EyeSpaceLights(reg *registry.Registry, loc Locator, camPos mgl32.Vec3, view mgl32.Mat4) []EyeLight {
	if reg == nil || loc == nil {
		return nil
	}
	ids := reg.LeafLights(loc.FindLeaf(camPos))
	out := make([]EyeLight, 0, len(ids)+1)
	if sun, ok := reg.Sun(); ok {
		out = append(out, eyeLight(sun, view))
	}
	for _, id := range ids {
		light, _ := reg.Light(id)
		out = append(out, eyeLight(light, view))
	}
	return out
}

func eyeLight(l registry.Light, view mgl32.Mat4) EyeLight {
	e := EyeLight{ID: l.ID, Type: l.Type}
	if l.Type != registry.LightTypeDirectional {
		e.Position = view.Mul4x1(l.Pos.Vec4(1)).Vec3()
	}
	if l.Type != registry.LightTypePoint {
		e.Direction = view.Mul4x1(l.Direction.Vec4(0)).Vec3()
	}
	return e
}
