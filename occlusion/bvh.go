package occlusion

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// bvhNode is an inner node when Box is -1, otherwise a leaf holding one box.
type bvhNode struct {
	Min   mgl32.Vec3
	Max   mgl32.Vec3
	Left  int32
	Right int32
	Box   int32
}

type bvhItem struct {
	Min      mgl32.Vec3
	Max      mgl32.Vec3
	Centroid mgl32.Vec3
	Index    int32
}

type bvh struct {
	nodes []bvhNode
}

func buildBVH(boxes []Box) bvh {
	var b bvh
	if len(boxes) == 0 {
		return b
	}
	items := make([]bvhItem, len(boxes))
	for i, box := range boxes {
		items[i] = bvhItem{
			Min:      box.Mins,
			Max:      box.Maxs,
			Centroid: box.Mins.Add(box.Maxs).Mul(0.5),
			Index:    int32(i),
		}
	}
	b.nodes = make([]bvhNode, 0, 2*len(items)-1)
	b.recursiveBuild(items)
	return b
}

// recursiveBuild splits at the median centroid along the widest axis.
func (b *bvh) recursiveBuild(items []bvhItem) int32 {
	idx := int32(len(b.nodes))
	b.nodes = append(b.nodes, bvhNode{Left: -1, Right: -1, Box: -1})

	inf := float32(math.Inf(1))
	minB := mgl32.Vec3{inf, inf, inf}
	maxB := mgl32.Vec3{-inf, -inf, -inf}
	for _, it := range items {
		for a := 0; a < 3; a++ {
			minB[a] = min(minB[a], it.Min[a])
			maxB[a] = max(maxB[a], it.Max[a])
		}
	}
	b.nodes[idx].Min = minB
	b.nodes[idx].Max = maxB

	if len(items) == 1 {
		b.nodes[idx].Box = items[0].Index
		return idx
	}

	extent := maxB.Sub(minB)
	axis := 0
	if extent[1] > extent[0] {
		axis = 1
	}
	if extent[2] > extent[axis] {
		axis = 2
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Centroid[axis] < items[j].Centroid[axis]
	})

	mid := len(items) / 2
	left := b.recursiveBuild(items[:mid])
	right := b.recursiveBuild(items[mid:])
	b.nodes[idx].Left = left
	b.nodes[idx].Right = right
	return idx
}

// visit calls fn for every leaf box whose bounds the segment may touch
// before t = limit(). limit is re-read as the search tightens.
func (b *bvh) visit(origin, dir mgl32.Vec3, limit func() float32, fn func(box int32)) {
	if len(b.nodes) == 0 {
		return
	}
	stack := make([]int32, 0, 32)
	stack = append(stack, 0)
	for len(stack) > 0 {
		n := &b.nodes[stack[len(stack)-1]]
		stack = stack[:len(stack)-1]

		tMin, tMax, ok := intersectSegment(origin, dir, n.Min, n.Max)
		if !ok || tMin > tMax || tMin > 1 || tMin > limit() {
			continue
		}
		if n.Box >= 0 {
			fn(n.Box)
			continue
		}
		stack = append(stack, n.Left, n.Right)
	}
}
