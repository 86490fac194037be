// Package convert turns a raw stereo camera capture and its cleaned gantry
// metadata in to a georeferenced TIFF file in a working space.
package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aaronland/go-image-tools/util"
	"github.com/nfnt/resize"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gocloud.dev/blob"

	"github.com/agpipeline/go-gantry-transformers/common"
	"github.com/agpipeline/go-gantry-transformers/geotiff"
	"github.com/agpipeline/go-gantry-transformers/metadata"
	"github.com/agpipeline/go-gantry-transformers/sensors"
	"github.com/agpipeline/go-gantry-transformers/spatial"
	"github.com/agpipeline/go-gantry-transformers/stereorgb"
)

const ExtractorName string = "stereoTop"
const ExtractorVersion string = "1.0"

// previewWidth is the pixel width of optional preview images. Height follows
// the source aspect ratio.
const previewWidth int = 800

type converterInfo struct {
	Name        string              `json:"name"`
	Version     string              `json:"version"`
	Author      string              `json:"author"`
	Description string              `json:"description"`
	Repository  []map[string]string `json:"repository"`
}

// ConvertBinOptions is a struct containing application-specific options for
// converting a single raw capture.
type ConvertBinOptions struct {
	// Full path to the .bin file to convert. The filename must end in
	// '_left.bin' or '_right.bin'.
	BinFile string
	// Full path to the capture's cleaned metadata.
	MetadataFile string
	// The folder to use as a workspace and for storing results.
	WorkingSpace string
	// Whether to also write a downscaled PNG preview of the converted frame.
	Preview bool
	// Optional lookup map of fixed sensor metadata (see the lookup package).
	FixedMetadata *sync.Map
}

// ConvertBin converts a raw capture to a GeoTIFF file. Domain failures (bad
// metadata, wrong filenames) are reported in the returned Result envelope
// with a negative code; unexpected failures are returned as errors.
func ConvertBin(ctx context.Context, opts *ConvertBinOptions) (*common.Result, error) {

	body, err := common.ReadJSONFile(ctx, opts.MetadataFile)

	if err != nil {
		slog.Debug("Failed to load metadata", "error", err)
		return common.ErrorResult(-1, "Unable to load JSON from file '%s'", opts.MetadataFile), nil
	}

	terra_md, err := metadata.GetGantryMetadata(body, ExtractorName)

	if err != nil {
		slog.Debug("Failed to bless metadata", "error", err)
		return common.ErrorResult(-2, "Unable to find %s metadata in JSON file '%s'", ExtractorName, opts.MetadataFile), nil
	}

	terra_md, err = metadata.AppendFixedMetadata(terra_md, opts.FixedMetadata, ExtractorName)

	if err != nil {
		return nil, fmt.Errorf("Failed to append fixed metadata, %w", err)
	}

	timestamp, err := metadata.GetTimestamp(terra_md)

	if err != nil {
		return common.ErrorResult(-3, "Unable to find timestamp in JSON file '%s'", opts.BinFile), nil
	}

	_, _, updated_experiment, err := metadata.GetSeasonAndExperiment(timestamp, terra_md)

	if err != nil {
		slog.Warn("Failed to derive season and experiment", "timestamp", timestamp, "error", err)
	}

	var side string

	switch {
	case strings.HasSuffix(opts.BinFile, "_left.bin"):
		side = "left"
	case strings.HasSuffix(opts.BinFile, "_right.bin"):
		side = "right"
	default:
		return common.ErrorResult(-4, "Bin file must be a left or right file: '%s'", opts.BinFile), nil
	}

	sensor, err := sensors.New("", "ua-mac", "rgb_geotiff")

	if err != nil {
		return nil, err
	}

	shape, err := stereorgb.GetImageShape(terra_md, side)

	if err != nil {
		return common.ErrorResult(-5, "Spatial metadata is not properly identified. Unable to continue"), nil
	}

	bbox_rsp := gjson.GetBytes(terra_md, fmt.Sprintf("spatial_metadata.%s.bounding_box", side))

	if !bbox_rsp.Exists() {
		return common.ErrorResult(-5, "Spatial metadata is not properly identified. Unable to continue"), nil
	}

	bounds, err := spatial.BoundsFromGeoJSON([]byte(bbox_rsp.Raw))

	if err != nil {
		slog.Debug("Failed to parse bounding box", "error", err)
		return common.ErrorResult(-5, "Spatial metadata is not properly identified. Unable to continue"), nil
	}

	raw, err := os.ReadFile(opts.BinFile)

	if err != nil {
		return nil, fmt.Errorf("Failed to read '%s', %w", opts.BinFile, err)
	}

	im, err := stereorgb.Demosaic(raw, shape)

	if err != nil {
		return nil, fmt.Errorf("Failed to demosaic '%s', %w", opts.BinFile, err)
	}

	base := strings.TrimSuffix(filepath.Base(opts.BinFile), filepath.Ext(opts.BinFile))

	tiff_fname := fmt.Sprintf("%s.tif", base)
	tiff_path := filepath.Join(opts.WorkingSpace, tiff_fname)

	bucket, err := common.OpenBucket(ctx, opts.WorkingSpace)

	if err != nil {
		return nil, err
	}

	defer bucket.Close()

	written := make([]string, 0)

	scrub := func() {

		for _, path := range written {
			bucket.Delete(ctx, path)
		}
	}

	info := converterInfo{
		Name:        ExtractorName,
		Version:     ExtractorVersion,
		Author:      "extractor@extractor.com",
		Description: "Maricopa agricultural gantry bin to geotiff converter",
		Repository: []map[string]string{
			{
				"repType": "git",
				"repUrl":  "https://github.com/agpipeline/go-gantry-transformers.git",
			},
		},
	}

	enc_info, err := json.Marshal(info)

	if err != nil {
		return nil, err
	}

	gt_opts := &geotiff.WriteOptions{
		Bounds:      bounds,
		Description: string(enc_info),
	}

	err = writeGeoTIFF(ctx, bucket, tiff_fname, im, gt_opts)

	if err != nil {
		return nil, fmt.Errorf("Failed to write '%s', %w", tiff_path, err)
	}

	written = append(written, tiff_fname)

	files := []*common.ResultFile{
		&common.ResultFile{
			Path: tiff_path,
			Key:  sensor.Sensor,
		},
	}

	if opts.Preview {

		thumb_fname := fmt.Sprintf("%s_thumb.png", base)

		err = writePreview(ctx, bucket, thumb_fname, im)

		if err != nil {
			scrub()
			return nil, fmt.Errorf("Failed to write preview, %w", err)
		}

		written = append(written, thumb_fname)

		files = append(files, &common.ResultFile{
			Path: filepath.Join(opts.WorkingSpace, thumb_fname),
			Key:  "preview",
		})
	}

	doc, err := buildMetadata(ctx, terra_md, updated_experiment, im, tiff_fname, opts.BinFile)

	if err != nil {
		scrub()
		return nil, err
	}

	result := &common.Result{
		Code: 0,
		Container: []*common.ResultContainer{
			&common.ResultContainer{
				Name:   sensor.DisplayName(),
				Exists: false,
				Metadata: &common.ResultMetadata{
					Replace: true,
					Data:    json.RawMessage(doc),
				},
				File: files,
			},
		},
	}

	return result, nil
}

// buildMetadata assembles the JSON-LD document attached to the produced
// container: the trimmed gantry metadata plus experiment context, the raw
// data source and the fingerprint and perceptual hashes of the frame.
func buildMetadata(ctx context.Context, terra_md []byte, updated_experiment []byte, im *image.RGBA, tiff_fname string, bin_file string) ([]byte, error) {

	trimmed, err := metadata.TrimForOutput(terra_md)

	if err != nil {
		return nil, fmt.Errorf("Failed to trim metadata, %w", err)
	}

	if updated_experiment != nil {

		trimmed, err = sjson.SetRawBytes(trimmed, "experiment_metadata", updated_experiment)

		if err != nil {
			return nil, err
		}
	}

	trimmed, err = sjson.SetBytes(trimmed, "raw_data_source", bin_file)

	if err != nil {
		return nil, err
	}

	trimmed, err = sjson.SetBytes(trimmed, "extractor_version", ExtractorVersion)

	if err != nil {
		return nil, err
	}

	fingerprint, err := common.HashFile(bin_file)

	if err != nil {
		return nil, fmt.Errorf("Failed to fingerprint '%s', %w", bin_file, err)
	}

	trimmed, err = sjson.SetBytes(trimmed, "media:fingerprint", fingerprint)

	if err != nil {
		return nil, err
	}

	hashes, err := common.ImageHashes(ctx, im)

	if err != nil {
		return nil, fmt.Errorf("Failed to hash image, %w", err)
	}

	for _, h := range hashes {

		k := fmt.Sprintf("media:imagehash_%s", h.Approach)

		trimmed, err = sjson.SetBytes(trimmed, k, h.Hash)

		if err != nil {
			return nil, err
		}
	}

	return metadata.NewExtractorDocument(trimmed, tiff_fname, ExtractorName, ExtractorVersion)
}

func writeGeoTIFF(ctx context.Context, bucket *blob.Bucket, fname string, im *image.RGBA, gt_opts *geotiff.WriteOptions) error {

	wr, err := bucket.NewWriter(ctx, fname, common.PublicWriterOptions())

	if err != nil {
		return err
	}

	err = geotiff.Encode(wr, im, gt_opts)

	if err != nil {
		wr.Close()
		bucket.Delete(ctx, fname)
		return err
	}

	return wr.Close()
}

func writePreview(ctx context.Context, bucket *blob.Bucket, fname string, im *image.RGBA) error {

	thumb := resize.Resize(uint(previewWidth), 0, im, resize.Lanczos3)

	wr, err := bucket.NewWriter(ctx, fname, common.PublicWriterOptions())

	if err != nil {
		return err
	}

	err = util.EncodeImage(thumb, "png", wr)

	if err != nil {
		wr.Close()
		bucket.Delete(ctx, fname)
		return err
	}

	return wr.Close()
}
