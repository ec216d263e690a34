package lighting

import "github.com/go-gl/mathgl/mgl32"

// Contents is a bit mask of brush content types.
type Contents uint32

const (
	ContentsSolid Contents = 1 << iota
	ContentsSky
)

type TraceResult struct {
	Hit      bool
	Contents Contents
}

// Tracer casts rays against static level geometry. Only brushes whose
// contents intersect mask can stop the ray.
type Tracer interface {
	Trace(start, end mgl32.Vec3, mask Contents) TraceResult
}

const (
	// traceLift raises trace starts off the surface an object rests on.
	traceLift        = 0.05
	skyTraceDistance = 10000
)

// skyVisible reports whether a ray from p against the sun's travel
// direction escapes into the sky. A nil tracer sees open sky.
func skyVisible(tr Tracer, p, sunDir mgl32.Vec3) bool {
	if tr == nil {
		return true
	}
	start := p.Add(mgl32.Vec3{0, 0, traceLift})
	end := start.Sub(sunDir.Mul(skyTraceDistance))
	res := tr.Trace(start, end, ContentsSky|ContentsSolid)
	return res.Hit && res.Contents&ContentsSky != 0
}

func lightVisible(tr Tracer, p, lightPos mgl32.Vec3) bool {
	if tr == nil {
		return true
	}
	start := p.Add(mgl32.Vec3{0, 0, traceLift})
	return !tr.Trace(start, lightPos, ContentsSolid).Hit
}
