// Package clean turns the raw LemnaTec metadata recorded alongside a capture
// in to a cleaned, contextualized JSON-LD document in a working space.
package clean

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/whosonfirst/go-ioutil"

	"github.com/agpipeline/go-gantry-transformers/common"
	"github.com/agpipeline/go-gantry-transformers/metadata"
)

// Sensors that do not have metadata that can be cleaned.
var skipSensors = []string{"Full Field"}

// CleanMetadataOptions is a struct containing application-specific options
// for cleaning a single metadata file.
type CleanMetadataOptions struct {
	// The name of the sensor the metadata is associated with.
	Sensor string
	// Full path to the metadata file to clean.
	Filename string
	// The folder to use as a workspace and for storing results.
	WorkingSpace string
	// An optional user identification string to add to the metadata.
	UserID string
	// Optional lookup map of fixed sensor metadata (see the lookup package).
	FixedMetadata *sync.Map
}

// CleanMetadata cleans the metadata in the file named by opts and writes the
// result, as JSON-LD, next to it in the working space. Domain failures are
// reported in the returned Result envelope with a negative code; unexpected
// failures are returned as errors.
func CleanMetadata(ctx context.Context, opts *CleanMetadataOptions) (*common.Result, error) {

	if slices.Contains(skipSensors, opts.Sensor) {

		slog.Info("Sensor does not have metadata that can be cleaned, returning success", "sensor", opts.Sensor)

		result := &common.Result{
			Code:    0,
			Message: fmt.Sprintf("Sensor '%s' does not have metadata that can be cleaned", opts.Sensor),
		}

		return result, nil
	}

	body, err := common.ReadJSONFile(ctx, opts.Filename)

	if err != nil {
		slog.Debug("Failed to load metadata", "error", err)
		return common.ErrorResult(-1, "Unable to load JSON from specified file: '%s'", opts.Filename), nil
	}

	// feeding an already-cleaned document back through is fine; Clean
	// unwraps its content block first

	cleaned, err := metadata.Clean(body, opts.Sensor)

	if err != nil {
		return nil, fmt.Errorf("Failed to clean metadata, %w", err)
	}

	cleaned, err = metadata.AppendFixedMetadata(cleaned, opts.FixedMetadata, opts.Sensor)

	if err != nil {
		return nil, fmt.Errorf("Failed to append fixed metadata, %w", err)
	}

	doc, err := metadata.NewUserDocument(cleaned, opts.UserID)

	if err != nil {
		return nil, fmt.Errorf("Failed to assemble JSON-LD document, %w", err)
	}

	var indented bytes.Buffer

	err = json.Indent(&indented, doc, "", "  ")

	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(opts.Filename)
	base := strings.TrimSuffix(filepath.Base(opts.Filename), ext)

	new_fname := fmt.Sprintf("%s_cleaned%s", base, ext)
	new_path := filepath.Join(opts.WorkingSpace, new_fname)

	abs_space, err := filepath.Abs(opts.WorkingSpace)

	if err != nil {
		return nil, err
	}

	wr, err := common.NewWriter(ctx, fmt.Sprintf("fs://%s", abs_space))

	if err != nil {
		return nil, fmt.Errorf("Failed to create writer for '%s', %w", opts.WorkingSpace, err)
	}

	fh, err := ioutil.NewReadSeekCloser(bytes.NewReader(indented.Bytes()))

	if err != nil {
		return nil, err
	}

	slog.Info("Saving cleaned metadata", "path", new_path)

	_, err = wr.Write(ctx, new_fname, fh)

	if err != nil {
		return nil, fmt.Errorf("Failed to write '%s', %w", new_path, err)
	}

	result := &common.Result{
		Code: 0,
		File: []*common.ResultFile{
			&common.ResultFile{
				Path: new_path,
				Key:  opts.Sensor,
			},
		},
	}

	return result, nil
}
