package sim

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
)

// VelocityField samples flow vectors at geographic positions.
// u is eastward and v northward ground speed in m/s. ok is false outside
// the field's extent; the advection kernel drops such particles.
type VelocityField interface {
	Sample(lon, lat float64) (u, v float64, ok bool)
	Bounds() Bounds
}

// TextureField is a raster-backed velocity field. The red and green
// channels encode u and v mapped from [-0.5, 0.5] to [0, 255]; full
// deflection corresponds to maxSpeed m/s. Lookups filter bilinearly,
// wrapping longitude when the extent spans the full globe and clamping
// at the other edges.
type TextureField struct {
	width, height int
	data          []float32 // interleaved u, v per texel
	bounds        Bounds
	maxSpeed      float64
}

// NewTextureField decodes img into a sampler covering bounds.
func NewTextureField(img image.Image, bounds Bounds, maxSpeed float64) *TextureField {
	r := img.Bounds()
	w := r.Dx()
	h := r.Dy()
	f := &TextureField{
		width:    w,
		height:   h,
		data:     make([]float32, w*h*2),
		bounds:   bounds,
		maxSpeed: maxSpeed,
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, _, _ := img.At(r.Min.X+x, r.Min.Y+y).RGBA()
			// 16-bit channel back to the byte convention, then to [-1, 1].
			u := (float64(cr>>8)/255 - 0.5) * 2
			v := (float64(cg>>8)/255 - 0.5) * 2
			f.data[(y*w+x)*2] = float32(u * maxSpeed)
			f.data[(y*w+x)*2+1] = float32(v * maxSpeed)
		}
	}
	return f
}

// LoadTextureField reads a PNG velocity raster from r.
func LoadTextureField(r io.Reader, bounds Bounds, maxSpeed float64) (*TextureField, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("sim: decoding velocity raster: %w", err)
	}
	return NewTextureField(img, bounds, maxSpeed), nil
}

// LoadTextureFieldFile reads a PNG velocity raster from disk.
func LoadTextureFieldFile(path string, bounds Bounds, maxSpeed float64) (*TextureField, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sim: opening velocity raster: %w", err)
	}
	defer fh.Close()
	return LoadTextureField(fh, bounds, maxSpeed)
}

// Bounds returns the geographic extent the raster is keyed to.
func (f *TextureField) Bounds() Bounds {
	return f.bounds
}

// Sample returns the bilinearly filtered flow vector at (lon, lat).
func (f *TextureField) Sample(lon, lat float64) (u, v float64, ok bool) {
	b := f.bounds
	if lat < b.MinLat || lat > b.MaxLat || lon < b.MinLon || lon > b.MaxLon {
		return 0, 0, false
	}

	// Texel-center mapping: raster row 0 is the northern edge.
	fx := (lon - b.MinLon) / (b.MaxLon - b.MinLon) * float64(f.width)
	fy := (b.MaxLat - lat) / (b.MaxLat - b.MinLat) * float64(f.height)
	fx -= 0.5
	fy -= 0.5

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	u00, v00 := f.texel(x0, y0)
	u10, v10 := f.texel(x0+1, y0)
	u01, v01 := f.texel(x0, y0+1)
	u11, v11 := f.texel(x0+1, y0+1)

	u = lerp(lerp(u00, u10, tx), lerp(u01, u11, tx), ty)
	v = lerp(lerp(v00, v10, tx), lerp(v01, v11, tx), ty)
	return u, v, true
}

// texel fetches one sample with longitude wrap (global extents) or edge
// clamp otherwise.
func (f *TextureField) texel(x, y int) (u, v float64) {
	if f.wrapsLon() {
		x = ((x % f.width) + f.width) % f.width
	} else if x < 0 {
		x = 0
	} else if x >= f.width {
		x = f.width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= f.height {
		y = f.height - 1
	}
	i := (y*f.width + x) * 2
	return float64(f.data[i]), float64(f.data[i+1])
}

func (f *TextureField) wrapsLon() bool {
	return f.bounds.MaxLon-f.bounds.MinLon >= 360
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
