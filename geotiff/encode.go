// Package geotiff writes the georeferenced TIFF files produced by the
// raw-capture converter. The encoder covers exactly the converter's output
// profile: a single IFD, 8-bit RGB samples, Deflate-compressed strips and
// WGS-84 (EPSG:4326) georeferencing via the ModelPixelScale and
// ModelTiepoint tags.
package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/agpipeline/go-gantry-transformers/spatial"
)

const (
	tagImageWidth       uint16 = 256
	tagImageLength      uint16 = 257
	tagBitsPerSample    uint16 = 258
	tagCompression      uint16 = 259
	tagPhotometric      uint16 = 262
	tagImageDescription uint16 = 270
	tagStripOffsets     uint16 = 273
	tagSamplesPerPixel  uint16 = 277
	tagRowsPerStrip     uint16 = 278
	tagStripByteCounts  uint16 = 279
	tagPlanarConfig     uint16 = 284
	tagModelPixelScale  uint16 = 33550
	tagModelTiepoint    uint16 = 33922
	tagGeoKeyDirectory  uint16 = 34735
)

const (
	typeASCII  uint16 = 2
	typeShort  uint16 = 3
	typeLong   uint16 = 4
	typeDouble uint16 = 12
)

const compressionDeflate uint16 = 8

// geoKeys is the GeoKeyDirectory payload for a geographic WGS-84 raster:
// GTModelTypeGeoKey = geographic, GTRasterTypeGeoKey = pixel-is-area,
// GeographicTypeGeoKey = EPSG:4326.
var geoKeys = []uint16{
	1, 1, 0, 3,
	1024, 0, 1, 2,
	1025, 0, 1, 1,
	2048, 0, 1, 4326,
}

// WriteOptions is a struct containing application-specific options for
// writing a GeoTIFF file.
type WriteOptions struct {
	// The geographic extent of the image.
	Bounds *spatial.Bounds
	// An optional free-form description embedded in the ImageDescription
	// tag. Typically a JSON document describing the converter.
	Description string
}

type ifdEntry struct {
	id    uint16
	typ   uint16
	count uint32
	// inline value, for payloads of four bytes or fewer
	value []byte
	// external payload, stored in the values area
	payload []byte
}

// Encode writes im to wr as a Deflate-compressed RGB GeoTIFF georeferenced
// to opts.Bounds.
func Encode(wr io.Writer, im image.Image, opts *WriteOptions) error {

	if opts.Bounds == nil {
		return fmt.Errorf("Missing bounds")
	}

	b := im.Bounds()
	w := b.Dx()
	h := b.Dy()

	if w == 0 || h == 0 {
		return fmt.Errorf("Image has no pixels")
	}

	strip, err := compressPixels(im)

	if err != nil {
		return fmt.Errorf("Failed to compress image data, %w", err)
	}

	entries := []*ifdEntry{
		longEntry(tagImageWidth, uint32(w)),
		longEntry(tagImageLength, uint32(h)),
		shortsEntry(tagBitsPerSample, []uint16{8, 8, 8}),
		shortEntry(tagCompression, compressionDeflate),
		shortEntry(tagPhotometric, 2),
	}

	if opts.Description != "" {
		entries = append(entries, asciiEntry(tagImageDescription, opts.Description))
	}

	// strip offset is patched below once the layout is known
	strip_entry := longEntry(tagStripOffsets, 0)

	entries = append(entries,
		strip_entry,
		shortEntry(tagSamplesPerPixel, 3),
		longEntry(tagRowsPerStrip, uint32(h)),
		longEntry(tagStripByteCounts, uint32(len(strip))),
		shortEntry(tagPlanarConfig, 1),
		doublesEntry(tagModelPixelScale, []float64{
			opts.Bounds.Width() / float64(w),
			opts.Bounds.Height() / float64(h),
			0.0,
		}),
		doublesEntry(tagModelTiepoint, []float64{
			0.0, 0.0, 0.0,
			opts.Bounds.LonMin, opts.Bounds.LatMax, 0.0,
		}),
		shortsEntry(tagGeoKeyDirectory, geoKeys),
	)

	// layout: 8-byte header, strip data, external values, IFD

	strip_offset := uint32(8)
	binary.LittleEndian.PutUint32(strip_entry.value, strip_offset)

	values_offset := strip_offset + uint32(len(strip))

	if values_offset%2 != 0 {
		values_offset += 1
	}

	offset := values_offset

	for _, e := range entries {

		if e.payload == nil {
			continue
		}

		binary.LittleEndian.PutUint32(e.value, offset)
		offset += uint32(len(e.payload))

		if offset%2 != 0 {
			offset += 1
		}
	}

	ifd_offset := offset

	// header

	header := make([]byte, 8)
	header[0] = 'I'
	header[1] = 'I'
	binary.LittleEndian.PutUint16(header[2:], 42)
	binary.LittleEndian.PutUint32(header[4:], ifd_offset)

	_, err = wr.Write(header)

	if err != nil {
		return err
	}

	// strip data

	_, err = wr.Write(strip)

	if err != nil {
		return err
	}

	pos := strip_offset + uint32(len(strip))

	if pos%2 != 0 {

		_, err = wr.Write([]byte{0})

		if err != nil {
			return err
		}

		pos += 1
	}

	// external values

	for _, e := range entries {

		if e.payload == nil {
			continue
		}

		_, err = wr.Write(e.payload)

		if err != nil {
			return err
		}

		pos += uint32(len(e.payload))

		if pos%2 != 0 {

			_, err = wr.Write([]byte{0})

			if err != nil {
				return err
			}

			pos += 1
		}
	}

	// the IFD itself

	ifd := new(bytes.Buffer)

	binary.Write(ifd, binary.LittleEndian, uint16(len(entries)))

	for _, e := range entries {

		binary.Write(ifd, binary.LittleEndian, e.id)
		binary.Write(ifd, binary.LittleEndian, e.typ)
		binary.Write(ifd, binary.LittleEndian, e.count)
		ifd.Write(e.value)
	}

	// no further IFDs
	binary.Write(ifd, binary.LittleEndian, uint32(0))

	_, err = wr.Write(ifd.Bytes())

	if err != nil {
		return err
	}

	return nil
}

func compressPixels(im image.Image) ([]byte, error) {

	b := im.Bounds()

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)

	row := make([]byte, b.Dx()*3)

	for y := b.Min.Y; y < b.Max.Y; y++ {

		i := 0

		for x := b.Min.X; x < b.Max.X; x++ {

			r, g, bl, _ := im.At(x, y).RGBA()

			row[i] = uint8(r >> 8)
			row[i+1] = uint8(g >> 8)
			row[i+2] = uint8(bl >> 8)
			i += 3
		}

		_, err := zw.Write(row)

		if err != nil {
			return nil, err
		}
	}

	err := zw.Close()

	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func shortEntry(id uint16, v uint16) *ifdEntry {

	value := make([]byte, 4)
	binary.LittleEndian.PutUint16(value, v)

	return &ifdEntry{
		id:    id,
		typ:   typeShort,
		count: 1,
		value: value,
	}
}

func longEntry(id uint16, v uint32) *ifdEntry {

	value := make([]byte, 4)
	binary.LittleEndian.PutUint32(value, v)

	return &ifdEntry{
		id:    id,
		typ:   typeLong,
		count: 1,
		value: value,
	}
}

func shortsEntry(id uint16, vs []uint16) *ifdEntry {

	payload := make([]byte, len(vs)*2)

	for i, v := range vs {
		binary.LittleEndian.PutUint16(payload[i*2:], v)
	}

	e := &ifdEntry{
		id:    id,
		typ:   typeShort,
		count: uint32(len(vs)),
		value: make([]byte, 4),
	}

	if len(payload) <= 4 {
		copy(e.value, payload)
	} else {
		e.payload = payload
	}

	return e
}

func doublesEntry(id uint16, vs []float64) *ifdEntry {

	payload := make([]byte, len(vs)*8)

	for i, v := range vs {
		binary.LittleEndian.PutUint64(payload[i*8:], math.Float64bits(v))
	}

	return &ifdEntry{
		id:      id,
		typ:     typeDouble,
		count:   uint32(len(vs)),
		value:   make([]byte, 4),
		payload: payload,
	}
}

func asciiEntry(id uint16, s string) *ifdEntry {

	payload := append([]byte(s), 0)

	e := &ifdEntry{
		id:    id,
		typ:   typeASCII,
		count: uint32(len(payload)),
		value: make([]byte, 4),
	}

	if len(payload) <= 4 {
		copy(e.value, payload)
	} else {
		e.payload = payload
	}

	return e
}
