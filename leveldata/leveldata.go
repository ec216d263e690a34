// Package leveldata loads a level's baked lighting inputs from a YAML
// description: the BSP tree, visdata, light entities, ambient samples,
// cubemaps and occluder boxes.
package leveldata

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gekko3d/bsplight/bsp"
	"github.com/gekko3d/bsplight/lighting"
	"github.com/gekko3d/bsplight/occlusion"
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

var ErrEmptyTree = errors.New("leveldata: level has no nodes or leafs")

// Level is the decoded form of one level file.
type Level struct {
	Name      string
	Tree      *bsp.Tree
	VisData   []byte
	Input     registry.Input
	Occluders []occlusion.Box
}

// Tracer returns a tracer over the level's occluder boxes.
func (l *Level) Tracer() *occlusion.BoxTracer {
	return occlusion.NewBoxTracer(l.Occluders)
}

type levelFile struct {
	Name           string            `yaml:"name"`
	Gamma          float32           `yaml:"gamma"`
	Planes         []planeEntry      `yaml:"planes"`
	Nodes          []nodeEntry       `yaml:"nodes"`
	Leafs          []leafEntry       `yaml:"leafs"`
	VisData        []byte            `yaml:"visdata"`
	Entities       []registry.Entity `yaml:"entities"`
	AmbientSamples []sampleEntry     `yaml:"ambient_samples"`
	Cubemaps       []cubemapEntry    `yaml:"cubemaps"`
	CubemapTexels  [][4]int          `yaml:"cubemap_texels"`
	Occluders      []occluderEntry   `yaml:"occluders"`
}

type planeEntry struct {
	Normal [3]float32 `yaml:"normal"`
	Dist   float32    `yaml:"dist"`
}

// nodeEntry children use the BSP encoding: >= 0 is a node, -1-n is leaf n.
type nodeEntry struct {
	Plane    int32    `yaml:"plane"`
	Children [2]int32 `yaml:"children"`
}

type leafEntry struct {
	Mins         [3]float32 `yaml:"mins"`
	Maxs         [3]float32 `yaml:"maxs"`
	VisOffset    *int32     `yaml:"vis_offset"`
	AmbientFirst int        `yaml:"ambient_first"`
	AmbientCount int        `yaml:"ambient_count"`
}

type sampleEntry struct {
	Pos  [3]uint8  `yaml:"pos"`
	Cube [6][4]int `yaml:"cube"`
}

type cubemapEntry struct {
	Pos   [3]float32 `yaml:"pos"`
	Size  int        `yaml:"size"`
	Faces []int      `yaml:"faces"`
}

type occluderEntry struct {
	Mins     [3]float32 `yaml:"mins"`
	Maxs     [3]float32 `yaml:"maxs"`
	Contents string     `yaml:"contents"`
}

// Load reads and decodes a level file.
func Load(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level: %w", err)
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse level %s: %w", path, err)
	}
	return lvl, nil
}

func Parse(data []byte) (*Level, error) {
	var f levelFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.Nodes) == 0 || len(f.Leafs) == 0 {
		return nil, ErrEmptyTree
	}

	tree, err := f.tree()
	if err != nil {
		return nil, err
	}
	occluders, err := f.occluders()
	if err != nil {
		return nil, err
	}

	lvl := &Level{
		Name:      f.Name,
		Tree:      tree,
		VisData:   f.VisData,
		Occluders: occluders,
		Input: registry.Input{
			Entities:       f.Entities,
			Leafs:          tree.Leafs,
			AmbientSamples: make([]registry.AmbientSample, len(f.AmbientSamples)),
			CubemapTexels:  make([]registry.ColorRGBExp32, len(f.CubemapTexels)),
			Gamma:          f.Gamma,
		},
	}
	if lvl.Input.Gamma == 0 {
		lvl.Input.Gamma = 2.2
	}
	for i, s := range f.AmbientSamples {
		out := registry.AmbientSample{X: s.Pos[0], Y: s.Pos[1], Z: s.Pos[2]}
		for face, c := range s.Cube {
			out.Cube[face] = rgbExp(c)
		}
		lvl.Input.AmbientSamples[i] = out
	}
	for i, c := range f.CubemapTexels {
		lvl.Input.CubemapTexels[i] = rgbExp(c)
	}
	for i, cm := range f.Cubemaps {
		rec := registry.CubemapRecord{Pos: vec3(cm.Pos), Size: cm.Size}
		for face := range rec.FaceOffsets {
			rec.FaceOffsets[face] = -1
			if face < len(cm.Faces) {
				rec.FaceOffsets[face] = cm.Faces[face]
			}
		}
		if cm.Size <= 0 {
			return nil, fmt.Errorf("cubemap %d: size %d", i, cm.Size)
		}
		lvl.Input.Cubemaps = append(lvl.Input.Cubemaps, rec)
	}
	return lvl, nil
}

func (f *levelFile) tree() (*bsp.Tree, error) {
	t := &bsp.Tree{
		Planes: make([]bsp.Plane, len(f.Planes)),
		Nodes:  make([]bsp.Node, len(f.Nodes)),
		Leafs:  make([]bsp.Leaf, len(f.Leafs)),
	}
	for i, p := range f.Planes {
		t.Planes[i] = bsp.Plane{Normal: vec3(p.Normal), Dist: p.Dist}
	}
	for i, n := range f.Nodes {
		if n.Plane < 0 || int(n.Plane) >= len(t.Planes) {
			return nil, fmt.Errorf("node %d: plane %d out of range", i, n.Plane)
		}
		for _, c := range n.Children {
			if c >= 0 && int(c) >= len(t.Nodes) {
				return nil, fmt.Errorf("node %d: child node %d out of range", i, c)
			}
			if c < 0 && int(^c) >= len(t.Leafs) {
				return nil, fmt.Errorf("node %d: child leaf %d out of range", i, ^c)
			}
		}
		t.Nodes[i] = bsp.Node{Plane: n.Plane, Children: n.Children}
	}
	for i, l := range f.Leafs {
		leaf := bsp.Leaf{
			Mins:         vec3(l.Mins),
			Maxs:         vec3(l.Maxs),
			VisOffset:    -1,
			AmbientFirst: l.AmbientFirst,
			AmbientCount: l.AmbientCount,
		}
		if l.VisOffset != nil {
			leaf.VisOffset = *l.VisOffset
		}
		t.Leafs[i] = leaf
	}
	return t, nil
}

func (f *levelFile) occluders() ([]occlusion.Box, error) {
	out := make([]occlusion.Box, 0, len(f.Occluders))
	for i, o := range f.Occluders {
		contents, err := parseContents(o.Contents)
		if err != nil {
			return nil, fmt.Errorf("occluder %d: %w", i, err)
		}
		out = append(out, occlusion.Box{Mins: vec3(o.Mins), Maxs: vec3(o.Maxs), Contents: contents})
	}
	return out, nil
}

func parseContents(s string) (lighting.Contents, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "solid":
		return lighting.ContentsSolid, nil
	case "sky":
		return lighting.ContentsSky, nil
	}
	return 0, fmt.Errorf("unknown contents %q", s)
}

func rgbExp(c [4]int) registry.ColorRGBExp32 {
	return registry.ColorRGBExp32{R: uint8(c[0]), G: uint8(c[1]), B: uint8(c[2]), Exponent: int8(c[3])}
}

func vec3(v [3]float32) mgl32.Vec3 { return mgl32.Vec3(v) }
