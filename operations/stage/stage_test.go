package stage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

func TestStageCapture(t *testing.T) {

	ctx := context.Background()

	source := memblob.OpenBucket(nil)
	defer source.Close()

	target := memblob.OpenBucket(nil)
	defer target.Close()

	err := source.WriteAll(ctx, "2017-08-31/capture_left.bin", []byte("raw"), nil)
	require.NoError(t, err)

	err = source.WriteAll(ctx, "2017-08-31/metadata.json", []byte(`{}`), nil)
	require.NoError(t, err)

	opts := &StageCaptureOptions{
		Source:       source,
		Target:       target,
		Path:         "2017-08-31/capture_left.bin",
		MetadataPath: "2017-08-31/metadata.json",
	}

	target_path, err := StageCapture(ctx, opts)
	require.NoError(t, err)

	assert.Equal(t, "capture_left.bin", target_path)

	body, err := target.ReadAll(ctx, "capture_left.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("raw"), body)

	_, err = target.ReadAll(ctx, "metadata.json")
	assert.NoError(t, err)
}

func TestStageCaptureExists(t *testing.T) {

	ctx := context.Background()

	source := memblob.OpenBucket(nil)
	defer source.Close()

	target := memblob.OpenBucket(nil)
	defer target.Close()

	err := source.WriteAll(ctx, "capture_left.bin", []byte("new"), nil)
	require.NoError(t, err)

	err = target.WriteAll(ctx, "capture_left.bin", []byte("old"), nil)
	require.NoError(t, err)

	opts := &StageCaptureOptions{
		Source: source,
		Target: target,
		Path:   "capture_left.bin",
	}

	// without force, the staged copy wins

	_, err = StageCapture(ctx, opts)
	require.NoError(t, err)

	body, err := target.ReadAll(ctx, "capture_left.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), body)

	// with force, it is replaced

	opts.Force = true

	_, err = StageCapture(ctx, opts)
	require.NoError(t, err)

	body, err = target.ReadAll(ctx, "capture_left.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), body)
}

func TestStageCapturePartialFailure(t *testing.T) {

	ctx := context.Background()

	source := memblob.OpenBucket(nil)
	defer source.Close()

	target := memblob.OpenBucket(nil)
	defer target.Close()

	err := source.WriteAll(ctx, "capture_left.bin", []byte("raw"), nil)
	require.NoError(t, err)

	opts := &StageCaptureOptions{
		Source:       source,
		Target:       target,
		Path:         "capture_left.bin",
		MetadataPath: "missing/metadata.json",
	}

	_, err = StageCapture(ctx, opts)
	require.Error(t, err)

	// the bin copy is scrubbed when its metadata can't be staged

	exists, err := target.Exists(ctx, "capture_left.bin")
	require.NoError(t, err)
	assert.False(t, exists)
}
