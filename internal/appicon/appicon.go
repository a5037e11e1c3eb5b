// Package appicon renders the application and tray icons procedurally, so the
// binary carries no image assets.
package appicon

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

var (
	skyTop     = color.RGBA{R: 0x5e, G: 0xc8, B: 0xf2, A: 0xff}
	skyBottom  = color.RGBA{R: 0x1f, G: 0x5f, B: 0xd1, A: 0xff}
	frameColor = color.RGBA{R: 0xf4, G: 0xf7, B: 0xfb, A: 0xff}
	barColor   = color.RGBA{R: 0x23, G: 0x2b, B: 0x3a, A: 0xff}
	paneColor  = color.RGBA{R: 0xdd, G: 0xe6, B: 0xf2, A: 0xff}
	shadow     = color.RGBA{A: 0x48}
	dotColors  = []color.RGBA{
		{R: 0xff, G: 0x5f, B: 0x57, A: 0xff},
		{R: 0xfe, G: 0xbc, B: 0x2e, A: 0xff},
		{R: 0x28, G: 0xc8, B: 0x40, A: 0xff},
	}
)

var (
	AppICOSizes  = []int{256, 128, 64, 48, 32, 16}
	TrayICOSizes = []int{64, 32, 24, 16}
)

// RenderApp draws the launcher icon: a window glyph on a rounded gradient tile.
func RenderApp(size int) *image.RGBA {
	c := newCanvas(size)
	edge := c.u(1)
	c.roundedRect(0, 0, edge, edge, c.u(0.2), func(_, y float64) color.RGBA {
		return lerp(skyTop, skyBottom, y/edge)
	})
	drawWindow(c, 0.18, 0.24, 0.82, 0.78)
	return c.img
}

// RenderTray draws the window glyph alone on a transparent background.
func RenderTray(size int) *image.RGBA {
	c := newCanvas(size)
	drawWindow(c, 0.06, 0.14, 0.94, 0.86)
	return c.img
}

func drawWindow(c *canvas, left, top, right, bottom float64) {
	x0, y0, x1, y1 := c.u(left), c.u(top), c.u(right), c.u(bottom)
	radius := c.u(0.05)
	bar := y0 + c.u(0.12)
	solid := func(col color.RGBA) func(float64, float64) color.RGBA {
		return func(float64, float64) color.RGBA { return col }
	}

	off := c.u(0.015)
	c.roundedRect(x0+off, y0+off*2, x1+off, y1+off*2, radius, solid(shadow))
	c.roundedRect(x0, y0, x1, y1, radius, solid(barColor))
	c.roundedRect(x0+c.u(0.02), bar, x1-c.u(0.02), y1-c.u(0.02), radius*0.6, solid(frameColor))

	dot := c.u(0.022)
	for i, col := range dotColors {
		c.circle(x0+c.u(0.06)+float64(i)*dot*3, y0+(bar-y0)/2, dot, col)
	}

	// Content: a sidebar pane and an arrow pointing out of the window.
	c.roundedRect(x0+c.u(0.05), bar+c.u(0.04), x0+c.u(0.22), y1-c.u(0.06), radius*0.4, solid(paneColor))
	ax, ay := x1-c.u(0.12), bar+c.u(0.08)
	w := c.u(0.045)
	c.polygon([]point{
		{X: ax - c.u(0.2), Y: ay + c.u(0.2) + w},
		{X: ax - c.u(0.2) - w, Y: ay + c.u(0.2)},
		{X: ax - w, Y: ay + w},
		{X: ax - c.u(0.1), Y: ay + w},
		{X: ax - c.u(0.1), Y: ay},
		{X: ax, Y: ay},
		{X: ax, Y: ay + c.u(0.1)},
		{X: ax - w, Y: ay + c.u(0.1)},
		{X: ax - w, Y: ay + w*2},
	}, skyBottom)
}

// PNG encodes img.
func PNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type icoDirEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	BytesInRes uint32
	Offset     uint32
}

// ICO packs src, resampled to each size, into a PNG-compressed .ico file.
func ICO(src *image.RGBA, sizes []int) ([]byte, error) {
	blobs := make([][]byte, 0, len(sizes))
	for _, size := range sizes {
		if size <= 0 || size > 256 {
			return nil, fmt.Errorf("ico size %d out of range", size)
		}
		blob, err := PNG(resample(src, size))
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, blob)
	}

	var out bytes.Buffer
	header := [3]uint16{0, 1, uint16(len(blobs))} // reserved, type icon, count
	if err := binary.Write(&out, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	offset := uint32(6 + 16*len(blobs))
	for i, blob := range blobs {
		side := uint8(sizes[i] % 256) // 0 means 256
		entry := icoDirEntry{
			Width:      side,
			Height:     side,
			Planes:     1,
			BitCount:   32,
			BytesInRes: uint32(len(blob)),
			Offset:     offset,
		}
		if err := binary.Write(&out, binary.LittleEndian, entry); err != nil {
			return nil, err
		}
		offset += uint32(len(blob))
	}
	for _, blob := range blobs {
		out.Write(blob)
	}
	return out.Bytes(), nil
}

// TrayICO is the tray icon in the format systray expects on Windows.
func TrayICO() ([]byte, error) {
	return ICO(RenderTray(256), TrayICOSizes)
}

// AppPNG is the launcher icon at size pixels.
func AppPNG(size int) ([]byte, error) {
	return PNG(RenderApp(size))
}
