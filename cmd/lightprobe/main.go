// Command lightprobe walks one object along a path through a level and
// logs the lighting it would receive at every step.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gekko3d/bsplight"
	"github.com/gekko3d/bsplight/lighting"
	"github.com/gekko3d/bsplight/logging"
	"github.com/gekko3d/bsplight/profiler"
	"github.com/gekko3d/bsplight/registry"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/tiff"
)

var faceNames = [6]string{"px", "nx", "py", "ny", "pz", "nz"}

const (
	countCacheEntries = "cache_entries"
	countLiveLights   = "live_lights"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "config/lightprobe.toml", "TOML config file")
		levelPath  = flag.String("level", "", "YAML level file")
		pathSpec   = flag.String("path", "0,0,0", "space separated x,y,z waypoints")
		steps      = flag.Int("steps", 10, "updates per path segment")
		dt         = flag.Float64("dt", 1.0/60, "seconds between updates")
		boost      = flag.Bool("boost", false, "let the object opt into ambient boost")
		dumpDir    = flag.String("dump-cubemaps", "", "write cubemap faces as TIFF into this directory")
		debug      = flag.Bool("debug", false, "force debug logging")
	)
	flag.Parse()

	if *levelPath == "" {
		return fmt.Errorf("-level is required")
	}
	waypoints, err := parsePath(*pathSpec)
	if err != nil {
		return err
	}

	cfg, err := bsplight.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()
	if *debug {
		log.SetDebug(true)
	}

	prof := profiler.NewProfiler()
	clock := &lighting.StepClock{}
	lvl, err := bsplight.LoadLevel(*levelPath, cfg, bsplight.Options{
		Clock:   clock,
		Metrics: prof,
		Logger:  log,
	})
	if err != nil {
		return err
	}
	defer lvl.Close()

	obj := lighting.NewSceneObject()
	obj.Boost = *boost
	simulate(log, lvl, prof, clock, obj, walk(waypoints, *steps), *dt)
	lvl.Detach(obj.Handle())

	log.Infof("profile:\n%s", prof.StatsString())

	if *dumpDir != "" {
		return dumpCubemaps(log, lvl.Registry(), *dumpDir)
	}
	return nil
}

func parsePath(arg string) ([]mgl32.Vec3, error) {
	var out []mgl32.Vec3
	for _, wp := range strings.Fields(arg) {
		parts := strings.Split(wp, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("waypoint %q: want x,y,z", wp)
		}
		var v mgl32.Vec3
		for i, s := range parts {
			f, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("waypoint %q: %w", wp, err)
			}
			v[i] = float32(f)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	return out, nil
}

// simulate updates obj once per point, advancing the clock by dt between
// updates, and keeps the cache size and packed light gauges current.
func simulate(log logging.Logger, lvl *bsplight.Level, prof *profiler.Profiler, clock *lighting.StepClock, obj lighting.Object, pts []mgl32.Vec3, dt float64) {
	for step, p := range pts {
		snap := lvl.Update(obj, lighting.NewTransform(p), true)
		logSnapshot(log, step, p, snap)
		prof.SetCount(countCacheEntries, lvl.Cache().Len())
		prof.SetCount(countLiveLights, snap.LightCount)
		clock.Advance(dt)
	}
}

// walk samples each segment at steps points, plus the final waypoint.
func walk(waypoints []mgl32.Vec3, steps int) []mgl32.Vec3 {
	if steps < 1 {
		steps = 1
	}
	var out []mgl32.Vec3
	for i := 0; i+1 < len(waypoints); i++ {
		a, b := waypoints[i], waypoints[i+1]
		for s := 0; s < steps; s++ {
			t := float32(s) / float32(steps)
			out = append(out, a.Add(b.Sub(a).Mul(t)))
		}
	}
	return append(out, waypoints[len(waypoints)-1])
}

func logSnapshot(log logging.Logger, step int, p mgl32.Vec3, snap lighting.Snapshot) {
	ids := make([]string, 0, snap.LightCount)
	for i, l := range snap.Lights[:snap.LightCount] {
		id := strconv.Itoa(l.ID)
		if i >= snap.ActiveLights {
			id += "~"
		}
		ids = append(ids, id)
	}
	log.Infof("step %d pos=(%.1f %.1f %.1f) leaf=%d ambient+z=%.3v boosted=%v lights=[%s] cubemap=%d changed=%v",
		step, p[0], p[1], p[2], snap.Leaf, snap.AmbientCube[registry.FacePosZ], snap.AmbientBoosted,
		strings.Join(ids, " "), snap.Cubemap, snap.CubemapChanged)
}

func dumpCubemaps(log logging.Logger, reg *registry.Registry, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	written := 0
	for _, cm := range reg.Cubemaps() {
		for face, img := range cm.Faces {
			if img == nil {
				continue
			}
			name := filepath.Join(dir, fmt.Sprintf("cubemap_%d_%s.tiff", cm.Index, faceNames[face]))
			if err := writeTIFF(name, img); err != nil {
				return err
			}
			written++
		}
	}
	log.Infof("wrote %d cubemap faces to %s", written, dir)
	return nil
}

func writeTIFF(path string, img *image.RGBA64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
