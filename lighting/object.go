package lighting

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Object is a scene object the host wants lit. The host owns its lifetime
// and must call Cache.Detach when it goes away.
type Object interface {
	Handle() uuid.UUID
	// LightingOrigin is an optional sample point offset in object space.
	LightingOrigin() (mgl32.Vec3, bool)
	AmbientBoost() bool
}

// SceneObject is a plain Object for hosts without their own entity type.
type SceneObject struct {
	ID        uuid.UUID
	Origin    mgl32.Vec3
	HasOrigin bool
	Boost     bool
}

func NewSceneObject() *SceneObject {
	return &SceneObject{ID: uuid.New()}
}

func (o *SceneObject) Handle() uuid.UUID                  { return o.ID }
func (o *SceneObject) LightingOrigin() (mgl32.Vec3, bool) { return o.Origin, o.HasOrigin }
func (o *SceneObject) AmbientBoost() bool                 { return o.Boost }

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

func NewTransform(pos mgl32.Vec3) Transform {
	return Transform{Position: pos, Rotation: mgl32.QuatIdent()}
}

// SamplePoint returns the world space point lighting is evaluated at.
func (t Transform) SamplePoint(obj Object) mgl32.Vec3 {
	offset, ok := obj.LightingOrigin()
	if !ok {
		return t.Position
	}
	rot := t.Rotation
	if rot == (mgl32.Quat{}) {
		rot = mgl32.QuatIdent()
	}
	return t.Position.Add(rot.Rotate(offset))
}

// Clock supplies the frame time in seconds.
type Clock interface {
	FrameTime() float64
}

type wallClock struct {
	start time.Time
}

// NewWallClock returns a Clock measuring seconds since its creation.
func NewWallClock() Clock {
	return &wallClock{start: time.Now()}
}

func (c *wallClock) FrameTime() float64 {
	return time.Since(c.start).Seconds()
}

// StepClock is advanced by hand, one frame at a time.
type StepClock struct {
	Now float64
}

func (c *StepClock) FrameTime() float64 { return c.Now }

func (c *StepClock) Advance(dt float64) { c.Now += dt }

// MetricsSink receives named timing spans from the update path.
type MetricsSink interface {
	BeginScope(name string)
	EndScope(name string)
}

type nopMetrics struct{}

func (nopMetrics) BeginScope(string) {}
func (nopMetrics) EndScope(string)   {}
