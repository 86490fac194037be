// Package scrub removes the artifacts derived from a capture (the GeoTIFF,
// preview, cleaned metadata and result envelope) from a working space so that
// the capture can be re-processed from scratch.
package scrub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gocloud.dev/blob"
)

// Scrubber removes derived capture artifacts from a working-space bucket.
type Scrubber struct {
	// The working-space bucket holding the artifacts.
	Bucket *blob.Bucket
	// When true, log what would be removed without removing anything.
	Dryrun bool
	mu     *sync.RWMutex
}

// ScrubRequest names a single capture whose derived artifacts should be
// removed. Name is the capture's base name, for example 'capture_left' for
// 'capture_left.bin'.
type ScrubRequest struct {
	Name string `json:"name"`
}

func NewScrubber(bucket *blob.Bucket) (*Scrubber, error) {

	mu := new(sync.RWMutex)

	s := &Scrubber{
		Bucket: bucket,
		Dryrun: false,
		mu:     mu,
	}

	return s, nil
}

// derivedArtifacts lists the working-space keys a conversion run may have
// produced for a capture. The cleaner names its output after the capture's
// sibling metadata.json, not after the capture itself.
func derivedArtifacts(name string) []string {

	return []string{
		fmt.Sprintf("%s.tif", name),
		fmt.Sprintf("%s_thumb.png", name),
		"metadata_cleaned.json",
		"output/result.json",
	}
}

// ScrubCaptures removes the derived artifacts for every request, processing
// requests concurrently. Individual failures are logged; artifacts that were
// never produced are not an error.
func (s *Scrubber) ScrubCaptures(ctx context.Context, requests ...*ScrubRequest) error {

	remaining := len(requests)

	done_ch := make(chan bool)
	scrubbed_ch := make(chan string)
	err_ch := make(chan error)

	for _, req := range requests {

		go func(req *ScrubRequest) {

			defer func() {
				done_ch <- true
			}()

			select {
			case <-ctx.Done():
				return
			default:
				// pass
			}

			err := s.scrub(ctx, req)

			if err != nil {
				err_ch <- fmt.Errorf("Failed to scrub '%s', %w", req.Name, err)
				return
			}

			scrubbed_ch <- req.Name
		}(req)
	}

	for remaining > 0 {

		select {
		case <-done_ch:
			remaining -= 1
		case name := <-scrubbed_ch:
			slog.Info("Scrubbed capture", "name", name)
		case err := <-err_ch:
			slog.Error("Scrub failed", "error", err)
		}
	}

	return nil
}

func (s *Scrubber) scrub(ctx context.Context, req *ScrubRequest) error {

	for _, key := range derivedArtifacts(req.Name) {

		exists, err := s.Bucket.Exists(ctx, key)

		if err != nil {
			return err
		}

		if !exists {
			continue
		}

		if s.Dryrun {
			slog.Info("[dryrun] delete", "key", key)
			continue
		}

		s.mu.Lock()
		err = s.Bucket.Delete(ctx, key)
		s.mu.Unlock()

		if err != nil {
			return err
		}
	}

	return nil
}
