// Package lighting resolves per-object dynamic lighting against a level's
// registry: an ambient cube blended toward the nearest probe, a small set
// of packed lights with fade-out, and the nearest reflection cubemap.
package lighting

import (
	"math"
	"sync"

	"github.com/gekko3d/bsplight/logging"
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	// changeEpsilon is compared against squared displacement.
	changeEpsilon = 1e-3
	// leafNudge lifts the sample point off the floor before the leaf walk.
	leafNudge = 0.1
)

const (
	ScopeUpdate        = "lighting.update"
	ScopeFindProbe     = "lighting.find_probe"
	ScopeFindCubemap   = "lighting.find_cubemap"
	ScopeInterpAmbient = "lighting.interp_ambient"
	ScopeLocalLights   = "lighting.local_lights"
	ScopeAddLights     = "lighting.add_lights"
	ScopeFadeLights    = "lighting.fade_lights"
	ScopeAmbientBoost  = "lighting.ambient_boost"
)

type Locator interface {
	FindLeaf(p mgl32.Vec3) int
}

type Options struct {
	Tracer  Tracer
	Clock   Clock
	Metrics MetricsSink
	Logger  logging.Logger
}

type occlusion struct {
	epoch    uint64
	occluded bool
}

type objectState struct {
	pos      mgl32.Vec3
	leaf     int
	lastTime float64
	lastSeen float64

	probe *registry.AmbientProbe

	ambient     registry.AmbientCube
	boosted     registry.AmbientCube
	boostActive bool

	// candidates is the sorted light list of the last position change;
	// sunSlot is the sun's index in it or -1.
	candidates []int
	sunSlot    int
	epoch      uint64
	occlusion  map[int]occlusion

	lights       [MaxTotalLights]PackedLight
	lightCount   int
	activeLights int

	cubemap int

	seq      uint64
	snapshot Snapshot
}

func newObjectState(now float64) *objectState {
	return &objectState{
		lastTime:  now,
		lastSeen:  now,
		sunSlot:   -1,
		cubemap:   -1,
		occlusion: make(map[int]occlusion),
		snapshot:  EmptySnapshot(),
	}
}

// Cache owns the lighting state of every object lit in one level. All
// methods are safe for concurrent use; one mutex covers a whole update.
type Cache struct {
	reg     *registry.Registry
	loc     Locator
	cfg     Config
	tracer  Tracer
	clock   Clock
	metrics MetricsSink
	log     logging.Logger

	mu        sync.Mutex
	entries   map[uuid.UUID]*objectState
	lastSweep float64
}

func NewCache(reg *registry.Registry, loc Locator, cfg Config, opts Options) *Cache {
	c := &Cache{
		reg:     reg,
		loc:     loc,
		cfg:     cfg,
		tracer:  opts.Tracer,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		log:     logging.OrNop(opts.Logger),
		entries: make(map[uuid.UUID]*objectState),
	}
	if c.clock == nil {
		c.clock = NewWallClock()
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}
	c.lastSweep = c.clock.FrameTime()
	return c
}

func (c *Cache) Config() Config { return c.cfg }

// Update recomputes the lighting of obj at xf and returns the result. With
// full false an existing entry's last snapshot is returned untouched.
func (c *Cache) Update(obj Object, xf Transform, full bool) Snapshot {
	if c == nil || obj == nil || c.reg == nil || c.loc == nil {
		return EmptySnapshot()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.BeginScope(ScopeUpdate)
	defer c.metrics.EndScope(ScopeUpdate)

	now := c.clock.FrameTime()
	c.maybeSweep(now)

	handle := obj.Handle()
	st, ok := c.entries[handle]
	isNew := !ok
	if isNew {
		st = newObjectState(now)
		c.entries[handle] = st
		if c.log.DebugEnabled() {
			c.log.Debugf("lighting: new entry %s (%d live)", handle, len(c.entries))
		}
	}
	st.lastSeen = now

	pos := xf.SamplePoint(obj)

	if !full && !isNew {
		return st.snapshot
	}

	moved := isNew || pos.Sub(st.pos).LenSqr() > changeEpsilon

	dt := now - st.lastTime
	if dt <= 0 {
		dt = 0
	} else {
		st.lastTime = now
	}
	atten := c.attenuation(dt, isNew)

	st.leaf = c.loc.FindLeaf(pos.Add(mgl32.Vec3{0, 0, leafNudge}))

	cubemapChanged := false
	if moved {
		c.metrics.BeginScope(ScopeFindProbe)
		if idx, ok := c.reg.NearestProbe(st.leaf, pos); ok {
			st.probe, _ = c.reg.Probe(st.leaf, idx)
		}
		c.metrics.EndScope(ScopeFindProbe)

		c.metrics.BeginScope(ScopeFindCubemap)
		if idx, ok := c.reg.NearestCompleteCubemap(pos); ok && idx != st.cubemap {
			st.cubemap = idx
			cubemapChanged = true
		}
		c.metrics.EndScope(ScopeFindCubemap)

		st.pos = pos
	}

	ambientChanged := c.blendAmbient(st, atten)

	if moved {
		c.selectLights(st, pos)
	}
	c.packLights(st, pos, atten)
	c.boostAmbient(st, obj, pos, moved || ambientChanged)

	st.seq++
	st.snapshot = c.snapshot(st, cubemapChanged)
	return st.snapshot
}

// attenuation is the share of the remaining difference kept this frame.
// Zero snaps to the target.
func (c *Cache) attenuation(dt float64, isNew bool) float32 {
	if isNew || !c.cfg.smoothing() {
		return 0
	}
	return float32(math.Exp(-float64(c.cfg.LightInterpSpeed) * dt))
}

func (c *Cache) blendAmbient(st *objectState, atten float32) bool {
	if st.probe == nil {
		return false
	}
	c.metrics.BeginScope(ScopeInterpAmbient)
	defer c.metrics.EndScope(ScopeInterpAmbient)

	changed := false
	for i, target := range st.probe.Cube {
		delta := target.Sub(st.ambient[i])
		if delta.LenSqr() < changeEpsilon*changeEpsilon {
			delta = mgl32.Vec3{}
		} else {
			delta = delta.Mul(atten)
		}
		next := target.Sub(delta)
		if next != st.ambient[i] {
			st.ambient[i] = next
			changed = true
		}
	}
	return changed
}

// selectLights rebuilds the distance sorted candidate list for a new
// position and starts a new occlusion epoch.
func (c *Cache) selectLights(st *objectState, pos mgl32.Vec3) {
	c.metrics.BeginScope(ScopeLocalLights)
	defer c.metrics.EndScope(ScopeLocalLights)

	local := c.reg.LeafLights(st.leaf)
	st.candidates = st.candidates[:0]
	st.sunSlot = -1
	if sun, ok := c.reg.Sun(); ok && skyVisible(c.tracer, pos, sun.Direction) {
		st.candidates = append(st.candidates, sun.ID)
		st.sunSlot = 0
	}
	first := len(st.candidates)
	st.candidates = append(st.candidates, local...)
	c.reg.SortByDistance(st.candidates[first:], pos)

	st.epoch++
}

func (c *Cache) occluded(st *objectState, slot, id int, pos mgl32.Vec3) bool {
	if slot == st.sunSlot {
		return false
	}
	if r, ok := st.occlusion[id]; ok && r.epoch == st.epoch {
		return r.occluded
	}
	light, _ := c.reg.Light(id)
	occ := !lightVisible(c.tracer, pos, light.Pos)
	st.occlusion[id] = occlusion{epoch: st.epoch, occluded: occ}
	return occ
}

func (c *Cache) packLights(st *objectState, pos mgl32.Vec3, atten float32) {
	smoothing := c.cfg.smoothing()

	old := st.lights
	oldCount := st.lightCount
	var matched [MaxTotalLights]bool

	c.metrics.BeginScope(ScopeAddLights)
	count := 0
	for slot, id := range st.candidates {
		if count >= MaxActiveLights {
			break
		}
		if c.occluded(st, slot, id, pos) {
			continue
		}
		light, _ := c.reg.Light(id)
		color := light.Color
		if smoothing {
			for j := 0; j < oldCount; j++ {
				if old[j].ID != id {
					continue
				}
				matched[j] = true
				delta := light.Color.Sub(old[j].RGB()).Mul(atten)
				color = light.Color.Sub(delta)
				break
			}
		}
		st.lights[count] = packLight(light, color)
		count++
	}
	st.activeLights = count
	c.metrics.EndScope(ScopeAddLights)

	if smoothing {
		c.metrics.BeginScope(ScopeFadeLights)
		for j := 0; j < oldCount && count < MaxTotalLights; j++ {
			if matched[j] {
				continue
			}
			if old[j].RGB().LenSqr() < c.cfg.FadeCutoff {
				continue
			}
			st.lights[count] = old[j]
			st.lights[count].setRGB(old[j].RGB().Mul(atten))
			count++
		}
		c.metrics.EndScope(ScopeFadeLights)
	}

	for j := count; j < MaxTotalLights; j++ {
		st.lights[j] = PackedLight{}
	}
	st.lightCount = count
}

var lumCoeff = mgl32.Vec3{0.3, 0.59, 0.11}

func (c *Cache) boostAmbient(st *objectState, obj Object, pos mgl32.Vec3, changed bool) {
	if st.lightCount == 0 || !c.cfg.AmbientBoost || !obj.AmbientBoost() {
		st.boostActive = false
		return
	}
	if !changed {
		return
	}
	c.metrics.BeginScope(ScopeAmbientBoost)
	defer c.metrics.EndScope(ScopeAmbientBoost)

	var avg, maxLum float32
	for _, face := range st.ambient {
		lum := face.Dot(lumCoeff)
		avg += lum
		if lum > maxLum {
			maxLum = lum
		}
	}
	avg /= float32(len(st.ambient))

	var direct float32
	for _, pl := range st.lights[:st.activeLights] {
		light, _ := c.reg.Light(pl.ID)
		a := float32(1)
		if light.Type != registry.LightTypeDirectional {
			a = light.Falloff.Attenuation(light.Pos.Sub(pos).Len())
		}
		direct += light.Color.Mul(a).Dot(lumCoeff)
	}

	want := direct * c.cfg.AmbientBoostFraction
	if avg >= c.cfg.AmbientBoostMinLuminance || avg >= want {
		st.boostActive = false
		return
	}

	factor := c.cfg.AmbientBoostMaxFactor
	if maxLum > 0 && want/maxLum < factor {
		factor = want / maxLum
	}
	if factor < 1 {
		factor = 1
	}
	for i, face := range st.ambient {
		st.boosted[i] = face.Mul(factor)
	}
	st.boostActive = true
}

func (c *Cache) snapshot(st *objectState, cubemapChanged bool) Snapshot {
	snap := Snapshot{
		AmbientCube:    st.ambient,
		Lights:         st.lights,
		LightCount:     st.lightCount,
		ActiveLights:   st.activeLights,
		Cubemap:        st.cubemap,
		CubemapChanged: cubemapChanged,
		AmbientBoosted: st.boostActive,
		Leaf:           st.leaf,
		Sequence:       st.seq,
	}
	if st.boostActive {
		snap.AmbientCube = st.boosted
	}
	if st.cubemap >= 0 {
		snap.CubemapFaces, _ = c.reg.Cubemap(st.cubemap)
	}
	return snap
}

// Detach forgets the object. Hosts call it when the object is destroyed.
func (c *Cache) Detach(handle uuid.UUID) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[handle]
	delete(c.entries, handle)
	return ok
}

// Sweep drops entries not updated within StaleAfter seconds of now and
// returns how many were removed.
func (c *Cache) Sweep(now float64) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(now)
}

func (c *Cache) maybeSweep(now float64) {
	if c.cfg.SweepInterval <= 0 || now-c.lastSweep < c.cfg.SweepInterval {
		return
	}
	if n := c.sweepLocked(now); n > 0 {
		c.log.Debugf("lighting: swept %d stale entries", n)
	}
}

func (c *Cache) sweepLocked(now float64) int {
	c.lastSweep = now
	if c.cfg.StaleAfter <= 0 {
		return 0
	}
	removed := 0
	for h, st := range c.entries {
		if now-st.lastSeen > c.cfg.StaleAfter {
			delete(c.entries, h)
			removed++
		}
	}
	return removed
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Reset drops every entry, as on level unload.
func (c *Cache) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]*objectState)
}
