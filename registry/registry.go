// Package registry indexes a level's lights, ambient probes and reflection
// probes per BSP leaf. It is built once at level load and read-only after.
package registry

import (
	"fmt"
	"sort"

	"github.com/gekko3d/bsplight/bsp"
	"github.com/gekko3d/bsplight/kdtree"
	"github.com/gekko3d/bsplight/logging"
	"github.com/go-gl/mathgl/mgl32"
)

type Locator interface {
	FindLeaf(p mgl32.Vec3) int
	NumLeafs() int
}

type Visibility interface {
	IsVisible(from, to int) bool
}

// Input is the baked, already parsed level data the registry indexes.
// Leafs carry bounds and each leaf's slice of AmbientSamples.
type Input struct {
	Entities       []Entity
	Leafs          []bsp.Leaf
	AmbientSamples []AmbientSample
	Cubemaps       []CubemapRecord
	CubemapTexels  []ColorRGBExp32
	Gamma          float32
}

type Registry struct {
	lights     []Light
	sun        int
	leafLights [][]int

	probes     [][]AmbientProbe
	probeTrees []*kdtree.Tree

	cubemaps    []Cubemap
	cubemapTree *kdtree.Tree
}

// Build indexes in against the level's locator and PVS. Only a sample
// range that falls outside AmbientSamples is an error.
func Build(in Input, loc Locator, vis Visibility, log logging.Logger) (*Registry, error) {
	log = logging.OrNop(log)

	numLeafs := loc.NumLeafs()
	r := &Registry{
		sun:        -1,
		leafLights: make([][]int, numLeafs),
		probes:     make([][]AmbientProbe, numLeafs),
		probeTrees: make([]*kdtree.Tree, numLeafs),
	}

	r.buildLights(in.Entities, loc, vis)
	if err := r.buildProbes(in, numLeafs); err != nil {
		return nil, err
	}
	r.buildCubemaps(in, loc, log)

	probes := 0
	for _, p := range r.probes {
		probes += len(p)
	}
	log.Infof("registry: %d lights (sun=%v), %d ambient probes in %d leafs, %d cubemaps",
		len(r.lights), r.sun >= 0, probes, numLeafs, len(r.cubemaps))
	return r, nil
}

func (r *Registry) buildLights(entities []Entity, loc Locator, vis Visibility) {
	for _, ent := range entities {
		light, ok := LightFromEntity(ent)
		if !ok {
			continue
		}
		light.ID = len(r.lights)
		light.Leaf = loc.FindLeaf(light.Pos)
		r.lights = append(r.lights, light)
		if light.Type == LightTypeDirectional {
			r.sun = light.ID
		}
	}

	for _, light := range r.lights {
		if light.Type == LightTypeDirectional {
			continue
		}
		for leaf := range r.leafLights {
			if vis.IsVisible(light.Leaf, leaf) {
				r.leafLights[leaf] = append(r.leafLights[leaf], light.ID)
			}
		}
	}
}

func (r *Registry) buildProbes(in Input, numLeafs int) error {
	for i := 0; i < numLeafs && i < len(in.Leafs); i++ {
		leaf := in.Leafs[i]
		if leaf.AmbientCount == 0 {
			continue
		}
		first, last := leaf.AmbientFirst, leaf.AmbientFirst+leaf.AmbientCount
		if first < 0 || leaf.AmbientCount < 0 || last > len(in.AmbientSamples) {
			return fmt.Errorf("leaf %d: ambient samples [%d,%d) outside %d samples", i, first, last, len(in.AmbientSamples))
		}

		var points []mgl32.Vec3
		for _, s := range in.AmbientSamples[first:last] {
			probe := decodeSample(s, i, leaf.Mins, leaf.Maxs, in.Gamma)
			if containsPos(points, probe.Pos) {
				continue
			}
			r.probes[i] = append(r.probes[i], probe)
			points = append(points, probe.Pos)
		}
		r.probeTrees[i] = kdtree.Build(points)
	}
	return nil
}

func (r *Registry) buildCubemaps(in Input, loc Locator, log logging.Logger) {
	var points []mgl32.Vec3
	for _, rec := range in.Cubemaps {
		if containsPos(points, rec.Pos) {
			continue
		}
		cm := Cubemap{
			Index:    len(r.cubemaps),
			Pos:      rec.Pos,
			Leaf:     loc.FindLeaf(rec.Pos),
			Size:     rec.Size,
			Complete: true,
		}
		for face, ofs := range rec.FaceOffsets {
			img, ok := decodeFace(in.CubemapTexels, ofs, rec.Size)
			if !ok {
				log.Debugf("cubemap %d: no image on side %d", cm.Index, face)
				cm.Complete = false
				continue
			}
			cm.Faces[face] = img
		}
		r.cubemaps = append(r.cubemaps, cm)
		points = append(points, cm.Pos)
	}
	r.cubemapTree = kdtree.BuildFiltered(points, func(i int) bool {
		return r.cubemaps[i].Complete
	})
}

func containsPos(points []mgl32.Vec3, p mgl32.Vec3) bool {
	for _, q := range points {
		if q == p {
			return true
		}
	}
	return false
}

func (r *Registry) NumLeafs() int { return len(r.leafLights) }

func (r *Registry) Lights() []Light { return r.lights }

func (r *Registry) Light(id int) (Light, bool) {
	if id < 0 || id >= len(r.lights) {
		return Light{}, false
	}
	return r.lights[id], true
}

// Sun returns the directional light, if the level has one.
func (r *Registry) Sun() (Light, bool) {
	if r.sun < 0 {
		return Light{}, false
	}
	return r.lights[r.sun], true
}

// LeafLights returns the ids of non-directional lights potentially visible
// from leaf. The slice is shared; callers must copy before reordering.
func (r *Registry) LeafLights(leaf int) []int {
	if leaf < 0 || leaf >= len(r.leafLights) {
		return nil
	}
	return r.leafLights[leaf]
}

func (r *Registry) Probes(leaf int) []AmbientProbe {
	if leaf < 0 || leaf >= len(r.probes) {
		return nil
	}
	return r.probes[leaf]
}

// NearestProbe returns the index within Probes(leaf) of the probe closest
// to p. ok is false for a leaf without probes.
func (r *Registry) NearestProbe(leaf int, p mgl32.Vec3) (int, bool) {
	if leaf < 0 || leaf >= len(r.probeTrees) {
		return -1, false
	}
	return r.probeTrees[leaf].Nearest(p)
}

func (r *Registry) Probe(leaf, index int) (*AmbientProbe, bool) {
	probes := r.Probes(leaf)
	if index < 0 || index >= len(probes) {
		return nil, false
	}
	return &probes[index], true
}

func (r *Registry) Cubemaps() []Cubemap { return r.cubemaps }

func (r *Registry) Cubemap(i int) (*Cubemap, bool) {
	if i < 0 || i >= len(r.cubemaps) {
		return nil, false
	}
	return &r.cubemaps[i], true
}

// NearestCompleteCubemap returns the closest cubemap with all six faces.
func (r *Registry) NearestCompleteCubemap(p mgl32.Vec3) (int, bool) {
	return r.cubemapTree.Nearest(p)
}

// SortByDistance orders light ids by squared distance from p, nearest first.
func (r *Registry) SortByDistance(ids []int, p mgl32.Vec3) {
	sort.SliceStable(ids, func(i, j int) bool {
		return r.lights[ids[i]].Pos.Sub(p).LenSqr() < r.lights[ids[j]].Pos.Sub(p).LenSqr()
	})
}
