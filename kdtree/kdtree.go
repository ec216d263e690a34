// Package kdtree is a static 3-D k-d tree for nearest point queries, built
// on gonum's spatial/kdtree. It stores indices into the caller's point
// slice, never the items themselves.
package kdtree

import (
	"github.com/go-gl/mathgl/mgl32"
	gonumkd "gonum.org/v1/gonum/spatial/kdtree"
)

// item is one stored point and the caller's index for it.
type item struct {
	pos   gonumkd.Point
	index int
}

func (p item) Compare(c gonumkd.Comparable, d gonumkd.Dim) float64 {
	return p.pos.Compare(c.(item).pos, d)
}

func (p item) Dims() int { return 3 }

// Distance is the squared euclidean distance.
func (p item) Distance(c gonumkd.Comparable) float64 {
	return p.pos.Distance(c.(item).pos)
}

type items []item

func (p items) Index(i int) gonumkd.Comparable         { return p[i] }
func (p items) Len() int                               { return len(p) }
func (p items) Slice(start, end int) gonumkd.Interface { return p[start:end] }
func (p items) Pivot(d gonumkd.Dim) int                { return plane{items: p, dim: d}.Pivot() }

// plane sorts items along one dimension for median partitioning.
type plane struct {
	items
	dim gonumkd.Dim
}

func (p plane) Less(i, j int) bool { return p.items[i].pos[p.dim] < p.items[j].pos[p.dim] }
func (p plane) Swap(i, j int)      { p.items[i], p.items[j] = p.items[j], p.items[i] }
func (p plane) Pivot() int         { return gonumkd.Partition(p, gonumkd.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) gonumkd.SortSlicer {
	p.items = p.items[start:end]
	return p
}

type Tree struct {
	tree *gonumkd.Tree
	n    int
}

// Build returns nil for an empty point set; every query on a nil tree
// reports no result.
func Build(points []mgl32.Vec3) *Tree {
	return BuildFiltered(points, nil)
}

// BuildFiltered indexes only the points keep accepts. Query results are
// still indices into points. A nil keep accepts everything.
func BuildFiltered(points []mgl32.Vec3, keep func(i int) bool) *Tree {
	list := make(items, 0, len(points))
	for i, p := range points {
		if keep != nil && !keep(i) {
			continue
		}
		list = append(list, item{pos: toPoint(p), index: i})
	}
	if len(list) == 0 {
		return nil
	}
	return &Tree{tree: gonumkd.New(list, false), n: len(list)}
}

func toPoint(p mgl32.Vec3) gonumkd.Point {
	return gonumkd.Point{float64(p[0]), float64(p[1]), float64(p[2])}
}

// Len is the number of indexed points.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

// Nearest returns the index of the point closest to p.
func (t *Tree) Nearest(p mgl32.Vec3) (int, bool) {
	if t == nil {
		return -1, false
	}
	c, _ := t.tree.Nearest(item{pos: toPoint(p)})
	if c == nil {
		return -1, false
	}
	return c.(item).index, true
}
