// Package occlusion provides a simple lighting.Tracer over axis aligned
// brush boxes.
package occlusion

import (
	"math"

	"github.com/gekko3d/bsplight/lighting"
	"github.com/go-gl/mathgl/mgl32"
)

type Box struct {
	Mins     mgl32.Vec3
	Maxs     mgl32.Vec3
	Contents lighting.Contents
}

// BoxTracer tests segments against a fixed set of boxes held in a BVH. It
// is immutable and safe for concurrent use.
type BoxTracer struct {
	boxes []Box
	tree  bvh
}

func NewBoxTracer(boxes []Box) *BoxTracer {
	own := append([]Box(nil), boxes...)
	return &BoxTracer{boxes: own, tree: buildBVH(own)}
}

// Trace reports the first box along start->end whose contents match mask.
func (b *BoxTracer) Trace(start, end mgl32.Vec3, mask lighting.Contents) lighting.TraceResult {
	if b == nil {
		return lighting.TraceResult{}
	}
	dir := end.Sub(start)
	best := float32(math.MaxFloat32)
	var res lighting.TraceResult
	b.tree.visit(start, dir, func() float32 { return best }, func(i int32) {
		box := b.boxes[i]
		if box.Contents&mask == 0 {
			return
		}
		tMin, tMax, ok := intersectSegment(start, dir, box.Mins, box.Maxs)
		if !ok || tMin > tMax || tMin > 1 || tMin >= best {
			return
		}
		best = tMin
		res = lighting.TraceResult{Hit: true, Contents: box.Contents}
	})
	return res
}

// intersectSegment is the slab test for origin + t*dir, clamped to t >= 0.
func intersectSegment(origin, dir, minB, maxB mgl32.Vec3) (float32, float32, bool) {
	tMin, tMax := float32(0), float32(math.MaxFloat32)
	for axis := 0; axis < 3; axis++ {
		if float32(math.Abs(float64(dir[axis]))) < 1e-8 {
			if origin[axis] < minB[axis] || origin[axis] > maxB[axis] {
				return 0, 0, false
			}
			continue
		}
		inv := 1 / dir[axis]
		t1 := (minB[axis] - origin[axis]) * inv
		t2 := (maxB[axis] - origin[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = max(tMin, t1)
		tMax = min(tMax, t2)
	}
	return tMin, tMax, true
}
