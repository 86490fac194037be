package common

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// ReadJSONFile loads the contents of the JSON file at path through a cached
// whosonfirst/go-reader.Reader instance. Missing files and invalid JSON are
// reported as errors.
func ReadJSONFile(ctx context.Context, path string) ([]byte, error) {

	abs_path, err := filepath.Abs(path)

	if err != nil {
		return nil, fmt.Errorf("Failed to derive absolute path for '%s', %w", path, err)
	}

	root := filepath.Dir(abs_path)
	fname := filepath.Base(abs_path)

	r, err := NewReader(ctx, fmt.Sprintf("fs://%s", root))

	if err != nil {
		return nil, fmt.Errorf("Failed to create reader for '%s', %w", root, err)
	}

	fh, err := r.Read(ctx, fname)

	if err != nil {
		return nil, fmt.Errorf("Failed to open '%s' for reading, %w", path, err)
	}

	defer fh.Close()

	body, err := io.ReadAll(fh)

	if err != nil {
		return nil, fmt.Errorf("Failed to read '%s', %w", path, err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Invalid JSON in '%s'", path)
	}

	return body, nil
}
