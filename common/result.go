package common

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/whosonfirst/go-ioutil"
)

// ResultError is a struct containing the error message assigned to a failed
// (non-zero) Result instance.
type ResultError struct {
	// Human-readable description of what went wrong.
	Message string `json:"message"`
}

// ResultMetadata is a struct containing the metadata document attached to a
// ResultContainer instance.
type ResultMetadata struct {
	// Whether the metadata should replace any existing metadata.
	Replace bool `json:"replace"`
	// The metadata document itself. Typically a JSON-LD document.
	Data json.RawMessage `json:"data"`
}

// ResultFile is a struct describing a single file produced during a run.
type ResultFile struct {
	// Path to the file on disk.
	Path string `json:"path"`
	// A label identifying what the file is, for example a product name.
	Key string `json:"key"`
}

// ResultContainer is a struct describing a logical container (dataset) that
// files produced during a run belong to.
type ResultContainer struct {
	// The display name of the container.
	Name string `json:"name"`
	// Whether the container already exists.
	Exists bool `json:"exists"`
	// Metadata to attach to the container.
	Metadata *ResultMetadata `json:"metadata,omitempty"`
	// The files belonging to the container.
	File []*ResultFile `json:"file,omitempty"`
}

// Result is the envelope written at the end of every run. A Code of zero
// means success; negative codes are operation-specific failures.
type Result struct {
	Code      int                `json:"code"`
	Message   string             `json:"message,omitempty"`
	Error     *ResultError       `json:"error,omitempty"`
	Container []*ResultContainer `json:"container,omitempty"`
	File      []*ResultFile      `json:"file,omitempty"`
}

// ErrorResult returns a Result instance with code and a formatted error
// message.
func ErrorResult(code int, format string, args ...interface{}) *Result {

	msg := fmt.Sprintf(format, args...)
	slog.Error(msg)

	return &Result{
		Code: code,
		Error: &ResultError{
			Message: msg,
		},
	}
}

// SaveResult writes result as (2-space indented) JSON to 'output/result.json'
// relative to working_space, creating folders as needed.
func SaveResult(ctx context.Context, working_space string, result *Result) error {

	output_path := filepath.Join(working_space, "output")

	err := os.MkdirAll(output_path, 0755)

	if err != nil {
		return fmt.Errorf("Failed to create output folder '%s', %w", output_path, err)
	}

	body, err := json.MarshalIndent(result, "", "  ")

	if err != nil {
		return fmt.Errorf("Failed to encode result, %w", err)
	}

	wr, err := NewWriter(ctx, fmt.Sprintf("fs://%s", output_path))

	if err != nil {
		return fmt.Errorf("Failed to create writer for '%s', %w", output_path, err)
	}

	br := bytes.NewReader(body)
	fh, err := ioutil.NewReadSeekCloser(br)

	if err != nil {
		return err
	}

	slog.Info("Storing result", "path", filepath.Join(output_path, "result.json"))
	slog.Debug("Result", "body", string(body))

	_, err = wr.Write(ctx, "result.json", fh)

	if err != nil {
		return fmt.Errorf("Failed to write result.json, %w", err)
	}

	return nil
}
