// Package gather walks a storage bucket looking for raw gantry captures: a
// '*_left.bin' or '*_right.bin' file with a sibling 'metadata.json' document.
// Each capture found is fingerprinted and dispatched to a caller-defined
// callback.
package gather

import (
	"context"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"gocloud.dev/blob"

	"github.com/agpipeline/go-gantry-transformers/common"
)

// GatherCapturesResponse is a struct describing a single raw capture found in
// a bucket.
type GatherCapturesResponse struct {
	// The key of the .bin file.
	Path string
	// Which camera the capture came from, "left" or "right".
	Side string
	// The key of the sibling metadata document, empty if the capture has
	// none.
	MetadataPath string
	// SHA-1 fingerprint of the .bin file.
	Fingerprint string
	// The capture timestamp recorded in the metadata, when present.
	Timestamp string
}

type GatherCapturesCallbackFunc func(*GatherCapturesResponse) error

type GatherCapturesOptions struct {
	Callback GatherCapturesCallbackFunc
	// Whether to SHA-1 fingerprint each capture as it is found.
	Fingerprint bool
}

func GatherCaptures(ctx context.Context, bucket *blob.Bucket, cb GatherCapturesCallbackFunc) error {

	opts := &GatherCapturesOptions{
		Callback:    cb,
		Fingerprint: true,
	}

	return GatherCapturesWithOptions(ctx, bucket, opts)
}

func GatherCapturesWithOptions(ctx context.Context, bucket *blob.Bucket, opts *GatherCapturesOptions) error {

	gather_ch := make(chan *GatherCapturesResponse)

	done_ch := make(chan bool)
	err_ch := make(chan error)

	go func() {

		err := CrawlCaptures(ctx, bucket, opts, gather_ch)

		if err != nil {
			err_ch <- err
		}

		done_ch <- true
	}()

	gathering := true
	wg := new(sync.WaitGroup)

	for {
		select {

		case <-done_ch:
			gathering = false
		case err := <-err_ch:
			return err
		case gather_rsp := <-gather_ch:

			wg.Add(1)

			go func(rsp *GatherCapturesResponse) {

				defer wg.Done()

				err := opts.Callback(rsp)

				if err != nil {
					slog.Error("Failed to process capture", "path", rsp.Path, "error", err)
				}

			}(gather_rsp)

		}

		if !gathering {
			break
		}
	}

	wg.Wait()
	return nil
}

// Iterate through all the items stored in a blob.Bucket instance, generate a
// GatherCapturesResponse for things that are raw captures and dispatch that
// response to a user-defined channel.
func CrawlCaptures(ctx context.Context, bucket *blob.Bucket, opts *GatherCapturesOptions, rsp_ch chan *GatherCapturesResponse) error {

	var list func(context.Context, *blob.Bucket, string) error

	list = func(ctx context.Context, b *blob.Bucket, prefix string) error {

		iter := b.List(&blob.ListOptions{
			Delimiter: "/",
			Prefix:    prefix,
		})

		for {

			select {
			case <-ctx.Done():
				return nil
			default:
				// pass
			}

			obj, err := iter.Next(ctx)

			if err == io.EOF {
				break
			}

			if err != nil {
				return err
			}

			if obj.IsDir {

				err := list(ctx, b, obj.Key)

				if err != nil {
					return err
				}

				continue
			}

			rsp, err := GatherCaptureResponseWithPath(ctx, bucket, obj.Key, opts)

			if err != nil {
				return err
			}

			if rsp == nil {
				continue
			}

			rsp_ch <- rsp
		}

		return nil
	}

	return list(ctx, bucket, "")
}

func GatherCaptureResponseWithPath(ctx context.Context, bucket *blob.Bucket, key string, opts *GatherCapturesOptions) (*GatherCapturesResponse, error) {

	var side string

	switch {
	case strings.HasSuffix(key, "_left.bin"):
		side = "left"
	case strings.HasSuffix(key, "_right.bin"):
		side = "right"
	default:
		return nil, nil
	}

	rsp := &GatherCapturesResponse{
		Path: key,
		Side: side,
	}

	md_key := path.Join(path.Dir(key), "metadata.json")

	exists, err := bucket.Exists(ctx, md_key)

	if err != nil {
		return nil, err
	}

	if exists {

		rsp.MetadataPath = md_key

		body, err := bucket.ReadAll(ctx, md_key)

		if err != nil {
			return nil, err
		}

		ts_rsp := gjson.GetBytes(body, "content.gantry_variable_metadata.datetime")

		if !ts_rsp.Exists() {
			ts_rsp = gjson.GetBytes(body, "gantry_variable_metadata.datetime")
		}

		rsp.Timestamp = ts_rsp.String()
	}

	if opts.Fingerprint {

		fp, err := common.FingerprintFile(ctx, bucket, key)

		if err != nil {
			return nil, err
		}

		rsp.Fingerprint = fp
	}

	return rsp, nil
}
