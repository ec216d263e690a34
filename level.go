// Package bsplight resolves dynamic ambient lighting for objects moving
// through a BSP level. A Level owns everything built from one loaded
// level: the BSP tree, the PVS, the light and probe registry and the
// per-object lighting cache.
package bsplight

import (
	"errors"
	"fmt"

	"github.com/gekko3d/bsplight/bsp"
	"github.com/gekko3d/bsplight/leveldata"
	"github.com/gekko3d/bsplight/lighting"
	"github.com/gekko3d/bsplight/logging"
	"github.com/gekko3d/bsplight/pvs"
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var ErrNoLevelData = errors.New("bsplight: no level data")

type Options struct {
	// Tracer overrides the level's own occluder boxes.
	Tracer  lighting.Tracer
	Clock   lighting.Clock
	Metrics lighting.MetricsSink
	Logger  logging.Logger
}

type Level struct {
	ID   uuid.UUID
	Name string

	tree  *bsp.Tree
	vis   *pvs.Table
	reg   *registry.Registry
	cache *lighting.Cache
	log   logging.Logger
}

// LoadLevel reads a level file and builds its lighting context.
func LoadLevel(path string, cfg *Config, opts Options) (*Level, error) {
	data, err := leveldata.Load(path)
	if err != nil {
		return nil, err
	}
	return NewLevel(data, cfg, opts)
}

func NewLevel(data *leveldata.Level, cfg *Config, opts Options) (*Level, error) {
	if data == nil || data.Tree == nil {
		return nil, ErrNoLevelData
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := logging.OrNop(opts.Logger)

	vis, err := pvs.Build(data.Tree.Leafs, data.VisData)
	if err != nil {
		log.Warnf("level %s: bad visdata, only same-leaf visibility: %v", data.Name, err)
		vis = pvs.Empty(data.Tree.NumLeafs())
	} else if !vis.HasData() {
		log.Warnf("level %s: no visdata, only same-leaf visibility", data.Name)
	}

	reg, err := registry.Build(data.Input, data.Tree, vis, log)
	if err != nil {
		return nil, fmt.Errorf("build registry for %s: %w", data.Name, err)
	}

	tracer := opts.Tracer
	if tracer == nil && len(data.Occluders) > 0 {
		tracer = data.Tracer()
	}

	l := &Level{
		ID:   uuid.New(),
		Name: data.Name,
		tree: data.Tree,
		vis:  vis,
		reg:  reg,
		log:  log,
	}
	l.cache = lighting.NewCache(reg, data.Tree, cfg.LightingConfig(), lighting.Options{
		Tracer:  tracer,
		Clock:   opts.Clock,
		Metrics: opts.Metrics,
		Logger:  log,
	})
	log.Infof("level %s loaded as %s: %d leafs, pvs=%v", l.Name, l.ID, data.Tree.NumLeafs(), vis.HasData())
	return l, nil
}

// Update returns obj's lighting at xf. A nil level yields an empty snapshot.
func (l *Level) Update(obj lighting.Object, xf lighting.Transform, full bool) lighting.Snapshot {
	if l == nil {
		return lighting.EmptySnapshot()
	}
	return l.cache.Update(obj, xf, full)
}

// Detach must be called when a lit object is destroyed.
func (l *Level) Detach(handle uuid.UUID) {
	if l == nil {
		return
	}
	l.cache.Detach(handle)
}

func (l *Level) FindLeaf(p mgl32.Vec3) int {
	if l == nil {
		return 0
	}
	return l.tree.FindLeaf(p)
}

func (l *Level) IsVisible(from, to int) bool {
	if l == nil {
		return from == to
	}
	return l.vis.IsVisible(from, to)
}

func (l *Level) EyeSpaceLights(camPos mgl32.Vec3, view mgl32.Mat4) []lighting.EyeLight {
	if l == nil {
		return nil
	}
	return lighting.EyeSpaceLights(l.reg, l.tree, camPos, view)
}

func (l *Level) Registry() *registry.Registry {
	if l == nil {
		return nil
	}
	return l.reg
}

func (l *Level) Cache() *lighting.Cache {
	if l == nil {
		return nil
	}
	return l.cache
}

// Close drops all per-object state.
func (l *Level) Close() {
	if l == nil {
		return
	}
	n := l.cache.Len()
	l.cache.Reset()
	l.log.Infof("level %s unloaded, dropped %d lighting entries", l.Name, n)
}
