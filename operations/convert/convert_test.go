package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	_ "gocloud.dev/blob/fileblob"

	"github.com/agpipeline/go-gantry-transformers/geotiff"
)

var testMetadata = []byte(`{
	"@context": ["https://clowder.ncsa.illinois.edu/contexts/metadata.jsonld"],
	"content": {
		"terraref_cleaned_metadata": true,
		"gantry_variable_metadata": {
			"datetime": "2017-08-31T13:22:46-07:00",
			"position_m": { "x": 179.386, "y": 0.468, "z": 0.6 }
		},
		"sensor_variable_metadata": {
			"image_width_px": { "left": 4, "right": 4 },
			"image_height_px": { "left": 4, "right": 4 }
		},
		"sensor_fixed_metadata": {
			"sensor manufacturer": "Allied Vision"
		},
		"experiment_metadata": [
			{ "name": "Season 4: Sorghum", "start_date": "2017-04-20", "end_date": "2017-09-18" }
		],
		"spatial_metadata": {
			"left": {
				"bounding_box": {
					"type": "Polygon",
					"coordinates": [[
						[-111.975071, 33.074543],
						[-111.975071, 33.074588],
						[-111.974994, 33.074588],
						[-111.974994, 33.074543],
						[-111.975071, 33.074543]
					]]
				}
			}
		}
	}
}`)

func writeFixtures(t *testing.T, root string) (string, string) {

	bin_path := filepath.Join(root, "capture_left.bin")
	md_path := filepath.Join(root, "capture_metadata_cleaned.json")

	raw := make([]byte, 16)

	for i := range raw {
		raw[i] = 0x60
	}

	err := os.WriteFile(bin_path, raw, 0644)
	require.NoError(t, err)

	err = os.WriteFile(md_path, testMetadata, 0644)
	require.NoError(t, err)

	return bin_path, md_path
}

func TestConvertBin(t *testing.T) {

	ctx := context.Background()

	root := t.TempDir()
	bin_path, md_path := writeFixtures(t, root)

	opts := &ConvertBinOptions{
		BinFile:      bin_path,
		MetadataFile: md_path,
		WorkingSpace: root,
	}

	result, err := ConvertBin(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Code)
	require.Len(t, result.Container, 1)

	container := result.Container[0]

	assert.Equal(t, "RGB GeoTIFFs", container.Name)
	assert.False(t, container.Exists)

	require.Len(t, container.File, 1)
	assert.Equal(t, filepath.Join(root, "capture_left.tif"), container.File[0].Path)
	assert.Equal(t, "rgb_geotiff", container.File[0].Key)

	// the produced file is a valid GeoTIFF with the capture's bounds

	fh, err := os.Open(container.File[0].Path)
	require.NoError(t, err)

	defer fh.Close()

	info, err := geotiff.Read(fh)
	require.NoError(t, err)

	assert.Equal(t, 4, info.Width)
	assert.Equal(t, 4, info.Height)
	assert.Equal(t, 4326, info.EPSG)

	bounds, err := info.Bounds()
	require.NoError(t, err)

	assert.InDelta(t, 33.074588, bounds.LatMax, 1e-9)
	assert.InDelta(t, -111.975071, bounds.LonMin, 1e-9)

	// the attached metadata carries the experiment context and fingerprints

	require.NotNil(t, container.Metadata)
	assert.True(t, container.Metadata.Replace)

	doc := []byte(container.Metadata.Data)

	assert.Equal(t, "cat:extractor", gjson.GetBytes(doc, "agent.\\@type").String())
	assert.Equal(t, "stereoTop", gjson.GetBytes(doc, "agent.name").String())
	assert.Equal(t, "capture_left.tif", gjson.GetBytes(doc, "filename").String())

	content := gjson.GetBytes(doc, "content")
	require.True(t, content.Exists())

	assert.Equal(t, bin_path, content.Get("raw_data_source").String())
	assert.Equal(t, "Season 4: Sorghum", content.Get("experiment_metadata.0.name").String())
	assert.False(t, content.Get("sensor_fixed_metadata").Exists())
	assert.NotEmpty(t, content.Get(`media:fingerprint`).String())
	assert.NotEmpty(t, content.Get(`media:imagehash_avg`).String())
	assert.NotEmpty(t, content.Get(`media:imagehash_diff`).String())
}

func TestConvertBinPreview(t *testing.T) {

	ctx := context.Background()

	root := t.TempDir()
	bin_path, md_path := writeFixtures(t, root)

	opts := &ConvertBinOptions{
		BinFile:      bin_path,
		MetadataFile: md_path,
		WorkingSpace: root,
		Preview:      true,
	}

	result, err := ConvertBin(ctx, opts)
	require.NoError(t, err)

	require.Equal(t, 0, result.Code)
	require.Len(t, result.Container, 1)
	require.Len(t, result.Container[0].File, 2)

	thumb := result.Container[0].File[1]
	assert.Equal(t, "preview", thumb.Key)

	_, err = os.Stat(thumb.Path)
	assert.NoError(t, err)
}

func TestConvertBinMissingMetadata(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	opts := &ConvertBinOptions{
		BinFile:      filepath.Join(root, "capture_left.bin"),
		MetadataFile: filepath.Join(root, "nope.json"),
		WorkingSpace: root,
	}

	result, err := ConvertBin(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, -1, result.Code)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "Unable to load JSON")
}

func TestConvertBinNotCleaned(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	md_path := filepath.Join(root, "metadata.json")

	err := os.WriteFile(md_path, []byte(`{"lemnatec_measurement_metadata": {}}`), 0644)
	require.NoError(t, err)

	opts := &ConvertBinOptions{
		BinFile:      filepath.Join(root, "capture_left.bin"),
		MetadataFile: md_path,
		WorkingSpace: root,
	}

	result, err := ConvertBin(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, -2, result.Code)
}

func TestConvertBinMissingTimestamp(t *testing.T) {

	ctx := context.Background()
	root := t.TempDir()

	md_path := filepath.Join(root, "metadata.json")

	err := os.WriteFile(md_path, []byte(`{"terraref_cleaned_metadata": true}`), 0644)
	require.NoError(t, err)

	opts := &ConvertBinOptions{
		BinFile:      filepath.Join(root, "capture_left.bin"),
		MetadataFile: md_path,
		WorkingSpace: root,
	}

	result, err := ConvertBin(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, -3, result.Code)
}

func TestConvertBinWrongSide(t *testing.T) {

	ctx := context.Background()

	root := t.TempDir()
	_, md_path := writeFixtures(t, root)

	for _, fname := range []string{"capture.bin", "capture_left.bin.bak", "capture_left_bin"} {

		t.Run(fname, func(t *testing.T) {

			opts := &ConvertBinOptions{
				BinFile:      filepath.Join(root, fname),
				MetadataFile: md_path,
				WorkingSpace: root,
			}

			result, err := ConvertBin(ctx, opts)
			require.NoError(t, err)

			assert.Equal(t, -4, result.Code)
			assert.Contains(t, result.Error.Message, "left or right")
		})
	}
}

func TestConvertBinMissingBounds(t *testing.T) {

	ctx := context.Background()

	root := t.TempDir()
	bin_path, _ := writeFixtures(t, root)

	md_path := filepath.Join(root, "no_bounds.json")

	body := []byte(`{
		"terraref_cleaned_metadata": true,
		"gantry_variable_metadata": { "datetime": "2017-08-31T13:22:46-07:00" }
	}`)

	err := os.WriteFile(md_path, body, 0644)
	require.NoError(t, err)

	opts := &ConvertBinOptions{
		BinFile:      bin_path,
		MetadataFile: md_path,
		WorkingSpace: root,
	}

	result, err := ConvertBin(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, -5, result.Code)
	assert.Contains(t, result.Error.Message, "Spatial metadata")
}

func TestConvertBinShortFrame(t *testing.T) {

	ctx := context.Background()

	root := t.TempDir()
	bin_path, md_path := writeFixtures(t, root)

	// a truncated frame is an unexpected failure, not a domain code

	err := os.WriteFile(bin_path, make([]byte, 7), 0644)
	require.NoError(t, err)

	opts := &ConvertBinOptions{
		BinFile:      bin_path,
		MetadataFile: md_path,
		WorkingSpace: root,
	}

	_, err = ConvertBin(ctx, opts)
	assert.Error(t, err)

	// and no partial output is left behind

	_, err = os.Stat(filepath.Join(root, "capture_left.tif"))
	assert.True(t, os.IsNotExist(err))
}

func TestConvertBinFixtureSanity(t *testing.T) {

	// keep the fixture and the demosaic contract in sync
	w := gjson.GetBytes(testMetadata, "content.sensor_variable_metadata.image_width_px.left").Int()
	h := gjson.GetBytes(testMetadata, "content.sensor_variable_metadata.image_height_px.left").Int()

	assert.Equal(t, fmt.Sprintf("%dx%d", 4, 4), fmt.Sprintf("%dx%d", w, h))
}
