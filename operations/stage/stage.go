// Package stage copies raw captures from a source bucket in to a working
// space so that they can be converted.
package stage

import (
	"context"
	"fmt"
	"io"
	"path"

	"gocloud.dev/blob"
)

// StageCaptureOptions is a struct containing application-specific options for
// staging a single capture.
type StageCaptureOptions struct {
	// The bucket the capture is stored in.
	Source *blob.Bucket
	// The working-space bucket the capture is copied to.
	Target *blob.Bucket
	// The key of the .bin file in Source.
	Path string
	// The key of the capture's metadata document in Source, empty if there
	// is none.
	MetadataPath string
	// Whether to copy over a capture that is already staged.
	Force bool
}

// StageCapture copies a capture (the .bin file plus its metadata document)
// in to a working space and returns the target key of the .bin file. Unless
// Force is set, already-staged captures are left alone. A partial copy is
// deleted before the error is returned.
func StageCapture(ctx context.Context, opts *StageCaptureOptions) (string, error) {

	select {
	case <-ctx.Done():
		return "", nil
	default:
		// pass
	}

	target_path := path.Base(opts.Path)

	if !opts.Force {

		exists, err := opts.Target.Exists(ctx, target_path)

		if err != nil {
			return target_path, err
		}

		if exists {
			return target_path, nil
		}
	}

	err := copyObject(ctx, opts.Source, opts.Target, opts.Path, target_path)

	if err != nil {
		return target_path, fmt.Errorf("Failed to stage '%s', %w", opts.Path, err)
	}

	if opts.MetadataPath == "" {
		return target_path, nil
	}

	md_target := path.Base(opts.MetadataPath)

	err = copyObject(ctx, opts.Source, opts.Target, opts.MetadataPath, md_target)

	if err != nil {

		// don't leave a capture without its metadata lying around
		opts.Target.Delete(ctx, target_path)

		return target_path, fmt.Errorf("Failed to stage '%s', %w", opts.MetadataPath, err)
	}

	return target_path, nil
}

func copyObject(ctx context.Context, source *blob.Bucket, target *blob.Bucket, source_path string, target_path string) error {

	source_fh, err := source.NewReader(ctx, source_path, nil)

	if err != nil {
		return err
	}

	defer source_fh.Close()

	target_wr, err := target.NewWriter(ctx, target_path, nil)

	if err != nil {
		return err
	}

	_, err = io.Copy(target_wr, source_fh)

	if err != nil {
		target_wr.Close()
		target.Delete(ctx, target_path)
		return err
	}

	return target_wr.Close()
}
