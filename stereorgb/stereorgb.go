// Package stereorgb converts the raw Bayer-filtered frames produced by the
// gantry's stereo RGB camera pair in to ordinary RGB images. The camera
// writes one uint8 sample per pixel using a GBRG colour filter array; the
// missing two channels at each pixel are interpolated from their neighbours.
package stereorgb

import (
	"fmt"
	"image"

	"github.com/tidwall/gjson"
)

const DefaultWidth int = 3296
const DefaultHeight int = 2472

// Shape describes the pixel dimensions of a single raw camera frame.
type Shape struct {
	Width  int
	Height int
}

// GetImageShape derives the frame dimensions for the named side ("left" or
// "right") from a capture's gantry metadata. Missing dimensions fall back to
// the camera's factory defaults.
func GetImageShape(body []byte, side string) (*Shape, error) {

	if side != "left" && side != "right" {
		return nil, fmt.Errorf("Invalid side '%s'", side)
	}

	shape := &Shape{
		Width:  DefaultWidth,
		Height: DefaultHeight,
	}

	width_rsp := gjson.GetBytes(body, fmt.Sprintf("sensor_variable_metadata.image_width_px.%s", side))

	if width_rsp.Exists() {
		shape.Width = int(width_rsp.Int())
	}

	height_rsp := gjson.GetBytes(body, fmt.Sprintf("sensor_variable_metadata.image_height_px.%s", side))

	if height_rsp.Exists() {
		shape.Height = int(height_rsp.Int())
	}

	if shape.Width <= 0 || shape.Height <= 0 {
		return nil, fmt.Errorf("Invalid image shape %dx%d", shape.Width, shape.Height)
	}

	return shape, nil
}

// Demosaic interpolates a raw GBRG Bayer frame in to an RGB image using
// bilinear interpolation. The length of raw must match the shape exactly.
func Demosaic(raw []byte, shape *Shape) (*image.RGBA, error) {

	w := shape.Width
	h := shape.Height

	if len(raw) != w*h {
		return nil, fmt.Errorf("Raw frame is %d bytes, expected %d (%dx%d)", len(raw), w*h, w, h)
	}

	sample := func(x int, y int) (int, bool) {

		if x < 0 || x >= w || y < 0 || y >= h {
			return 0, false
		}

		return int(raw[y*w+x]), true
	}

	average := func(coords ...[2]int) uint8 {

		sum := 0
		count := 0

		for _, c := range coords {

			v, ok := sample(c[0], c[1])

			if ok {
				sum += v
				count += 1
			}
		}

		if count == 0 {
			return 0
		}

		return uint8(sum / count)
	}

	im := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {

		for x := 0; x < w; x++ {

			v := raw[y*w+x]

			var r, g, b uint8

			switch {
			case y%2 == 0 && x%2 == 0:

				// green pixel on a blue row
				g = v
				r = average([2]int{x, y - 1}, [2]int{x, y + 1})
				b = average([2]int{x - 1, y}, [2]int{x + 1, y})

			case y%2 == 0:

				// blue pixel
				b = v
				g = average([2]int{x - 1, y}, [2]int{x + 1, y}, [2]int{x, y - 1}, [2]int{x, y + 1})
				r = average([2]int{x - 1, y - 1}, [2]int{x + 1, y - 1}, [2]int{x - 1, y + 1}, [2]int{x + 1, y + 1})

			case x%2 == 0:

				// red pixel
				r = v
				g = average([2]int{x - 1, y}, [2]int{x + 1, y}, [2]int{x, y - 1}, [2]int{x, y + 1})
				b = average([2]int{x - 1, y - 1}, [2]int{x + 1, y - 1}, [2]int{x - 1, y + 1}, [2]int{x + 1, y + 1})

			default:

				// green pixel on a red row
				g = v
				r = average([2]int{x - 1, y}, [2]int{x + 1, y})
				b = average([2]int{x, y - 1}, [2]int{x, y + 1})
			}

			i := im.PixOffset(x, y)

			im.Pix[i] = r
			im.Pix[i+1] = g
			im.Pix[i+2] = b
			im.Pix[i+3] = 0xff
		}
	}

	return im, nil
}
