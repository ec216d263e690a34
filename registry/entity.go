package registry

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Entity is one parsed level entity: its key/value pairs.
type Entity map[string]string

func (e Entity) Classname() string { return e["classname"] }

func (e Entity) Float(key string) float32 {
	v, err := strconv.ParseFloat(strings.TrimSpace(e[key]), 32)
	if err != nil {
		return 0
	}
	return float32(v)
}

func (e Entity) Int(key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(e[key]))
	if err != nil {
		return 0
	}
	return v
}

// Floats parses up to n whitespace separated numbers; missing ones are 0.
func (e Entity) Floats(key string, n int) []float32 {
	out := make([]float32, n)
	for i, f := range strings.Fields(e[key]) {
		if i >= n {
			break
		}
		if v, err := strconv.ParseFloat(f, 32); err == nil {
			out[i] = float32(v)
		}
	}
	return out
}

func (e Entity) Vec3(key string) mgl32.Vec3 {
	f := e.Floats(key, 3)
	return mgl32.Vec3{f[0], f[1], f[2]}
}

// IsLight reports whether the entity describes a light source.
func (e Entity) IsLight() bool {
	return strings.HasPrefix(e.Classname(), "light")
}

func lightTypeFromClassname(classname string) LightType {
	switch {
	case classname == "light_environment":
		return LightTypeDirectional
	case classname == "light_spot":
		return LightTypeSpot
	}
	return LightTypePoint
}

// colorFromValue decodes "r g b brightness": channels are normalised,
// gamma-decoded with 2.2 and scaled by brightness/255.
func colorFromValue(value string) mgl32.Vec3 {
	fields := strings.Fields(value)
	v := [4]float64{0, 0, 0, 255}
	for i := 0; i < len(fields) && i < 4; i++ {
		if f, err := strconv.ParseFloat(fields[i], 64); err == nil {
			v[i] = f
		}
	}
	scale := v[3] / 255.0
	var out mgl32.Vec3
	for i := 0; i < 3; i++ {
		out[i] = float32(math.Pow(v[i]/255.0, 2.2) * scale)
	}
	return out
}

// anglesToVector turns (yaw, pitch) in degrees into a unit direction.
func anglesToVector(yaw, pitch float32) mgl32.Vec3 {
	y := float64(mgl32.DegToRad(yaw))
	p := float64(mgl32.DegToRad(pitch))
	return mgl32.Vec3{
		float32(math.Cos(y) * math.Cos(p)),
		float32(math.Sin(y) * math.Cos(p)),
		float32(math.Sin(p)),
	}
}

// LightFromEntity converts a light entity into a Light. ID and Leaf are
// left for the registry to assign. ok is false for non-light entities.
func LightFromEntity(e Entity) (Light, bool) {
	if !e.IsLight() {
		return Light{}, false
	}

	light := Light{
		Type:  lightTypeFromClassname(e.Classname()),
		Pos:   e.Vec3("origin"),
		Color: colorFromValue(e["_light"]),
	}

	if light.Type == LightTypeDirectional || light.Type == LightTypeSpot {
		angles := e.Floats("angles", 3)
		pitch := e.Float("pitch")
		if pitch == 0 {
			pitch = angles[0]
		}
		light.Direction = anglesToVector(angles[1], pitch)
	}

	if light.Type == LightTypeDirectional {
		return light, true
	}

	light.Falloff, light.Color = falloffFromEntity(e, light.Color)

	if light.Type == LightTypeSpot {
		inner := e.Float("_inner_cone")
		if inner == 0 {
			inner = 10
		}
		outer := e.Float("_cone")
		if outer == 0 || outer < inner {
			outer = inner
		}
		if inner == 180 && outer == 180 {
			light.Type = LightTypePoint
		} else {
			light.Falloff.InnerCone = float32(math.Cos(float64(inner) / 180 * math.Pi))
			light.Falloff.OuterCone = float32(math.Cos(float64(outer) / 180 * math.Pi))
			light.Falloff.Exponent = e.Float("_exponent")
		}
	}
	return light, true
}

const equalEpsilon = 0.001

// falloffFromEntity derives attenuation coefficients. Lights with explicit
// coefficients have their intensity rescaled to be correct at distance 100.
func falloffFromEntity(e Entity, intensity mgl32.Vec3) (Falloff, mgl32.Vec3) {
	out := Falloff{StartFade: 0, EndFade: -1, Cap: 1.0e22}

	if d50 := e.Float("_fifty_percent_distance"); d50 != 0 {
		d0 := e.Float("_zero_percent_distance")
		if d0 < d50 {
			d0 = d50 * 2
		}
		a, b, c := float32(0), float32(1), float32(0)
		if qa, qb, qc, ok := solveInverseQuadraticMonotonic(0, 1, d50, 2, d0, 256); ok {
			a, b, c = qa, qb, qc
		}

		// Rescale so the fifty percent point is right even when monotonicity
		// forced a different curve.
		v50 := c + d50*(b+d50*a)
		scale := float32(2) / v50
		out.Quadratic = a * scale
		out.Linear = b * scale
		out.Constant = c * scale

		if e.Int("_hardfalloff") != 0 {
			out.EndFade = d0
			out.StartFade = 0.75*d0 + 0.25*d50
		} else if a != 0 {
			// Past the turning point of the quadratic the light would get
			// brighter again; fade it out instead.
			if flMax := b / (-2 * a); flMax > 0 {
				out.Cap = flMax
				out.StartFade = flMax
				out.EndFade = 10 * flMax
			}
		}
		return out, intensity
	}

	out.Constant = e.Float("_constant_attn")
	out.Linear = e.Float("_linear_attn")
	out.Quadratic = e.Float("_quadratic_attn")

	if out.Constant < equalEpsilon {
		out.Constant = 0
	}
	if out.Linear < equalEpsilon {
		out.Linear = 0
	}
	if out.Quadratic < equalEpsilon {
		out.Quadratic = 0
	}
	if out.Constant == 0 && out.Linear == 0 && out.Quadratic == 0 {
		out.Constant = 1
	}

	if ratio := out.Constant + 100*out.Linear + 100*100*out.Quadratic; ratio > 0 {
		intensity = intensity.Mul(ratio)
	}
	return out, intensity
}

// solveInverseQuadratic finds a, b, c with a*x^2 + b*x + c = y through
// three points.
func solveInverseQuadratic(x1, y1, x2, y2, x3, y3 float32) (a, b, c float32, ok bool) {
	det := (x1 - x2) * (x1 - x3) * (x2 - x3)
	if det == 0 {
		return 0, 0, 0, false
	}
	a = (x3*(-y1+y2) + x2*(y1-y3) + x1*(-y2+y3)) / det
	b = (x3*x3*(y1-y2) + x1*x1*(y2-y3) + x2*x2*(-y1+y3)) / det
	c = (x1*x3*(-x1+x3)*y2 + x2*x2*(x3*y1-x1*y3) + x2*(-(x3*x3*y1)+x1*x1*y3)) / det
	return a, b, c, true
}

// solveInverseQuadraticMonotonic is solveInverseQuadratic, but pulls the
// middle point towards the line between the ends until the curve is
// monotonic over the sampled range.
func solveInverseQuadraticMonotonic(x1, y1, x2, y2, x3, y3 float32) (a, b, c float32, ok bool) {
	if x1 > x2 {
		x1, x2, y1, y2 = x2, x1, y2, y1
	}
	if x2 > x3 {
		x2, x3, y2, y3 = x3, x2, y3, y2
	}
	if x1 > x2 {
		x1, x2, y1, y2 = x2, x1, y2, y1
	}

	for blend := float32(0); blend <= 1; blend += 0.05 {
		lerp := y1 + (y3-y1)*(x2-x1)/(x3-x1)
		tempY2 := (1-blend)*y2 + blend*lerp
		a, b, c, ok = solveInverseQuadratic(x1, y1, x2, tempY2, x3, y3)
		if !ok {
			return 0, 0, 0, false
		}
		derivative := 2*a + b
		switch {
		case y1 < y2 && y2 < y3:
			if derivative >= 0 {
				return a, b, c, true
			}
		case y1 > y2 && y2 > y3:
			if derivative <= 0 {
				return a, b, c, true
			}
		default:
			return a, b, c, true
		}
	}
	return a, b, c, true
}
