package desktop

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
)

const iconSize = 32

var (
	iconOnce sync.Once
	iconPNG  []byte
)

// AppIconPNG returns the generated application icon as PNG.
func AppIconPNG() []byte {
	iconOnce.Do(func() {
		var buf bytes.Buffer
		if err := png.Encode(&buf, drawIcon()); err == nil {
			iconPNG = buf.Bytes()
		}
	})
	return iconPNG
}

// AppIconICO wraps the PNG icon in a single-image ICO container, which is
// what the Windows tray expects.
func AppIconICO() []byte {
	data := AppIconPNG()
	if len(data) == 0 {
		return nil
	}

	var buf bytes.Buffer
	// ICONDIR
	binary.Write(&buf, binary.LittleEndian, [3]uint16{0, 1, 1})
	// ICONDIRENTRY
	buf.WriteByte(iconSize)                             // width
	buf.WriteByte(iconSize)                             // height
	buf.WriteByte(0)                                    // palette
	buf.WriteByte(0)                                    // reserved
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // planes
	binary.Write(&buf, binary.LittleEndian, uint16(32)) // bits per pixel
	binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	binary.Write(&buf, binary.LittleEndian, uint32(6+16)) // image offset
	buf.Write(data)
	return buf.Bytes()
}

// drawIcon draws two white waves on a round sea-blue badge, antialiased at
// the edges.
func drawIcon() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, iconSize, iconSize))
	const c = iconSize / 2.0

	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			fx := float64(x) + 0.5
			fy := float64(y) + 0.5

			d := math.Hypot(fx-c, fy-c)
			badge := 0.0
			if d <= c-1.5 {
				badge = 1.0
			} else if d <= c-0.5 {
				badge = (c - 0.5 - d)
			}
			if badge <= 0 {
				continue
			}

			// Waves: y = base + amplitude*sin(x)
			wave := 0.0
			for _, base := range []float64{13.0, 20.0} {
				wy := base + 2.2*math.Sin(fx/3.2)
				dist := math.Abs(fy - wy)
				if dist <= 1.2 {
					wave = 1.0
				} else if dist <= 1.9 {
					wave = math.Max(wave, (1.9-dist)/0.7)
				}
			}

			r := lerp(18, 255, wave)
			g := lerp(92, 255, wave)
			b := lerp(140, 255, wave)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: uint8(math.Min(badge, 1.0) * 255)})
		}
	}
	return img
}

func lerp(from, to, t float64) uint8 {
	return uint8(from + (to-from)*math.Min(math.Max(t, 0), 1))
}
