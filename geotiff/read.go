package geotiff

import (
	"fmt"
	"io"

	"github.com/rwcarlsen/goexif/tiff"

	"github.com/agpipeline/go-gantry-transformers/spatial"
)

// Info is a struct describing the georeferencing recorded in a GeoTIFF file.
type Info struct {
	// Pixel width of the image.
	Width int
	// Pixel height of the image.
	Height int
	// The contents of the ImageDescription tag, if any.
	Description string
	// Degrees per pixel in x, y and z.
	PixelScale []float64
	// The raster-to-model tiepoint. The fourth and fifth elements are the
	// longitude and latitude of the top-left corner.
	Tiepoint []float64
	// The EPSG code of the geographic coordinate system.
	EPSG int
}

// Read parses the TIFF tag structure of a GeoTIFF file and returns its
// georeferencing details. It is used to verify files written by Encode.
func Read(r io.Reader) (*Info, error) {

	tf, err := tiff.Decode(r)

	if err != nil {
		return nil, fmt.Errorf("Failed to decode TIFF structure, %w", err)
	}

	if len(tf.Dirs) == 0 {
		return nil, fmt.Errorf("TIFF file has no IFDs")
	}

	tags := make(map[uint16]*tiff.Tag)

	for _, t := range tf.Dirs[0].Tags {
		tags[t.Id] = t
	}

	info := &Info{}

	width_tag, ok := tags[tagImageWidth]

	if !ok {
		return nil, fmt.Errorf("Missing ImageWidth tag")
	}

	width, err := width_tag.Int(0)

	if err != nil {
		return nil, err
	}

	info.Width = width

	height_tag, ok := tags[tagImageLength]

	if !ok {
		return nil, fmt.Errorf("Missing ImageLength tag")
	}

	height, err := height_tag.Int(0)

	if err != nil {
		return nil, err
	}

	info.Height = height

	desc_tag, ok := tags[tagImageDescription]

	if ok {

		desc, err := desc_tag.StringVal()

		if err != nil {
			return nil, err
		}

		info.Description = desc
	}

	scale_tag, ok := tags[tagModelPixelScale]

	if ok {

		scale, err := floats(scale_tag)

		if err != nil {
			return nil, err
		}

		info.PixelScale = scale
	}

	tiepoint_tag, ok := tags[tagModelTiepoint]

	if ok {

		tiepoint, err := floats(tiepoint_tag)

		if err != nil {
			return nil, err
		}

		info.Tiepoint = tiepoint
	}

	geokeys_tag, ok := tags[tagGeoKeyDirectory]

	if ok {

		count := int(geokeys_tag.Count)

		for i := 4; i+3 < count; i += 4 {

			key, err := geokeys_tag.Int(i)

			if err != nil {
				return nil, err
			}

			// GeographicTypeGeoKey
			if key == 2048 {

				epsg, err := geokeys_tag.Int(i + 3)

				if err != nil {
					return nil, err
				}

				info.EPSG = epsg
			}
		}
	}

	return info, nil
}

// Bounds derives the geographic extent of the file from its pixel scale and
// tiepoint.
func (info *Info) Bounds() (*spatial.Bounds, error) {

	if len(info.PixelScale) < 2 || len(info.Tiepoint) < 5 {
		return nil, fmt.Errorf("File is not georeferenced")
	}

	lon_min := info.Tiepoint[3]
	lat_max := info.Tiepoint[4]

	b := &spatial.Bounds{
		LonMin: lon_min,
		LonMax: lon_min + info.PixelScale[0]*float64(info.Width),
		LatMax: lat_max,
		LatMin: lat_max - info.PixelScale[1]*float64(info.Height),
	}

	return b, nil
}

func floats(t *tiff.Tag) ([]float64, error) {

	vs := make([]float64, int(t.Count))

	for i := range vs {

		v, err := t.Float(i)

		if err != nil {
			return nil, err
		}

		vs[i] = v
	}

	return vs, nil
}
