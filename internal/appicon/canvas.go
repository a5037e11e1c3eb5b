package appicon

import (
	"image"
	"image/color"
	"math"
	"sort"
)

// canvas is an RGBA surface with source-over antialiased fills.
type canvas struct {
	img  *image.RGBA
	size float64
}

func newCanvas(size int) *canvas {
	return &canvas{img: image.NewRGBA(image.Rect(0, 0, size, size)), size: float64(size)}
}

// u converts a fraction of the canvas edge into pixels.
func (c *canvas) u(f float64) float64 {
	return f * c.size
}

func (c *canvas) over(x, y int, src color.RGBA, coverage float64) {
	if x < 0 || y < 0 || x >= c.img.Rect.Dx() || y >= c.img.Rect.Dy() {
		return
	}
	sa := float64(src.A) / 255 * clamp(coverage, 0, 1)
	if sa <= 0 {
		return
	}
	i := c.img.PixOffset(x, y)
	px := c.img.Pix[i : i+4 : i+4]
	da := float64(px[3]) / 255
	outA := sa + da*(1-sa)
	mix := func(s, d uint8) uint8 {
		return uint8(clamp((float64(s)*sa+float64(d)*da*(1-sa))/outA, 0, 255))
	}
	px[0] = mix(src.R, px[0])
	px[1] = mix(src.G, px[1])
	px[2] = mix(src.B, px[2])
	px[3] = uint8(clamp(outA*255, 0, 255))
}

// roundedRect fills [x0,x1]x[y0,y1] with corner radius r. shade picks the
// colour per pixel.
func (c *canvas) roundedRect(x0, y0, x1, y1, r float64, shade func(x, y float64) color.RGBA) {
	r = math.Min(r, math.Min(x1-x0, y1-y0)/2)
	for y := int(math.Floor(y0)); y <= int(math.Ceil(y1)); y++ {
		for x := int(math.Floor(x0)); x <= int(math.Ceil(x1)); x++ {
			fx, fy := float64(x)+0.5, float64(y)+0.5
			nx := clamp(fx, x0+r, x1-r)
			ny := clamp(fy, y0+r, y1-r)
			// Signed distance to the rounded edge, negative inside.
			d := math.Hypot(fx-nx, fy-ny) - r
			if nx == fx && ny == fy {
				d = -math.Min(math.Min(fx-x0, x1-fx), math.Min(fy-y0, y1-fy))
			}
			c.over(x, y, shade(fx, fy), 0.5-d)
		}
	}
}

func (c *canvas) circle(cx, cy, r float64, col color.RGBA) {
	for y := int(math.Floor(cy - r - 1)); y <= int(math.Ceil(cy+r+1)); y++ {
		for x := int(math.Floor(cx - r - 1)); x <= int(math.Ceil(cx+r+1)); x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) - r
			c.over(x, y, col, 0.5-d)
		}
	}
}

type point struct{ X, Y float64 }

// polygon fills poly with the even-odd rule by scanline.
func (c *canvas) polygon(poly []point, col color.RGBA) {
	if len(poly) < 3 {
		return
	}
	top, bottom := poly[0].Y, poly[0].Y
	for _, p := range poly {
		top = math.Min(top, p.Y)
		bottom = math.Max(bottom, p.Y)
	}
	for y := int(math.Floor(top)); y <= int(math.Ceil(bottom)); y++ {
		fy := float64(y) + 0.5
		var xs []float64
		for i, a := range poly {
			b := poly[(i+1)%len(poly)]
			if (a.Y <= fy) != (b.Y <= fy) {
				xs = append(xs, a.X+(fy-a.Y)/(b.Y-a.Y)*(b.X-a.X))
			}
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(math.Floor(xs[i])); x <= int(math.Ceil(xs[i+1])); x++ {
				fx := float64(x) + 0.5
				coverage := math.Min(fx-xs[i]+0.5, xs[i+1]-fx+0.5)
				c.over(x, y, col, coverage)
			}
		}
	}
}

// resample box-filters src down to a size x size image.
func resample(src *image.RGBA, size int) *image.RGBA {
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if sw == size && sh == size {
		copy(dst.Pix, src.Pix)
		return dst
	}
	sx, sy := float64(sw)/float64(size), float64(sh)/float64(size)
	for y := 0; y < size; y++ {
		ys, ye := int(float64(y)*sy), min(int(math.Ceil(float64(y+1)*sy)), sh)
		for x := 0; x < size; x++ {
			xs, xe := int(float64(x)*sx), min(int(math.Ceil(float64(x+1)*sx)), sw)
			var sum [4]float64
			n := 0.0
			for py := ys; py < ye; py++ {
				for px := xs; px < xe; px++ {
					i := src.PixOffset(px, py)
					for k := 0; k < 4; k++ {
						sum[k] += float64(src.Pix[i+k])
					}
					n++
				}
			}
			if n == 0 {
				continue
			}
			o := dst.PixOffset(x, y)
			for k := 0; k < 4; k++ {
				dst.Pix[o+k] = uint8(sum[k] / n)
			}
		}
	}
	return dst
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	t = clamp(t, 0, 1)
	mix := func(x, y uint8) uint8 { return uint8(float64(x) + (float64(y)-float64(x))*t) }
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
