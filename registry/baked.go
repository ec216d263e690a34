package registry

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ColorRGBExp32 is the compiler's shared-exponent colour: each channel is
// c * 2^Exponent / 255 in linear space.
type ColorRGBExp32 struct {
	R, G, B  uint8
	Exponent int8
}

func (c ColorRGBExp32) Linear() mgl32.Vec3 {
	s := math.Ldexp(1, int(c.Exponent)) / 255.0
	return mgl32.Vec3{float32(float64(c.R) * s), float32(float64(c.G) * s), float32(float64(c.B) * s)}
}

// GammaEncoded is the linear colour raised to 1/gamma, as the ambient cube
// is consumed in gamma space.
func (c ColorRGBExp32) GammaEncoded(gamma float32) mgl32.Vec3 {
	lin := c.Linear()
	if gamma <= 0 {
		return lin
	}
	inv := 1 / float64(gamma)
	return mgl32.Vec3{
		float32(math.Pow(float64(lin[0]), inv)),
		float32(math.Pow(float64(lin[1]), inv)),
		float32(math.Pow(float64(lin[2]), inv)),
	}
}

// Cube face order.
const (
	FacePosX = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// AmbientCube is six RGB irradiance values, one per principal axis.
type AmbientCube [6]mgl32.Vec3

// AmbientSample is one baked probe: a fixed point position within its
// leaf's bounds (0..255 per axis) and a compressed cube.
type AmbientSample struct {
	Cube    [6]ColorRGBExp32
	X, Y, Z uint8
}

type AmbientProbe struct {
	Leaf int
	Pos  mgl32.Vec3
	Cube AmbientCube
}

func remapValClamped(val, a, b, c, d float32) float32 {
	if a == b {
		if val >= b {
			return d
		}
		return c
	}
	t := (val - a) / (b - a)
	t = mgl32.Clamp(t, 0, 1)
	return c + (d-c)*t
}

func decodeSample(s AmbientSample, leaf int, mins, maxs mgl32.Vec3, gamma float32) AmbientProbe {
	p := AmbientProbe{
		Leaf: leaf,
		Pos: mgl32.Vec3{
			remapValClamped(float32(s.X), 0, 255, mins[0], maxs[0]),
			remapValClamped(float32(s.Y), 0, 255, mins[1], maxs[1]),
			remapValClamped(float32(s.Z), 0, 255, mins[2], maxs[2]),
		},
	}
	for i := range p.Cube {
		p.Cube[i] = s.Cube[i].GammaEncoded(gamma)
	}
	return p
}

// CubemapRecord describes one baked reflection probe. FaceOffsets index
// the shared texel array; -1 marks a face the compiler did not render.
type CubemapRecord struct {
	Pos         mgl32.Vec3
	Size        int
	FaceOffsets [6]int
}

type Cubemap struct {
	Index    int
	Pos      mgl32.Vec3
	Leaf     int
	Size     int
	Faces    [6]*image.RGBA64
	Complete bool
}

// decodeFace expands size*size texels at offset into a 16-bit linear image.
func decodeFace(texels []ColorRGBExp32, offset, size int) (*image.RGBA64, bool) {
	if offset < 0 || size <= 0 || offset+size*size > len(texels) {
		return nil, false
	}
	img := image.NewRGBA64(image.Rect(0, 0, size, size))
	xel := offset
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			lin := texels[xel].Linear()
			img.SetRGBA64(x, y, color.RGBA64{
				R: to16(lin[0]),
				G: to16(lin[1]),
				B: to16(lin[2]),
				A: 0xffff,
			})
			xel++
		}
	}
	return img, true
}

func to16(v float32) uint16 {
	return uint16(mgl32.Clamp(v, 0, 1)*0xffff + 0.5)
}
