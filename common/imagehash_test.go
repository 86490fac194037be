package common

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageHashes(t *testing.T) {

	ctx := context.Background()

	im := image.NewRGBA(image.Rect(0, 0, 16, 16))

	hashes, err := ImageHashes(ctx, im)
	require.NoError(t, err)

	require.Len(t, hashes, 2)

	for _, h := range hashes {
		require.NotNil(t, h)
		assert.NotEmpty(t, h.Approach)
		assert.NotEmpty(t, h.Hash)
	}
}

func TestImageHashesCancelled(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	im := image.NewRGBA(image.Rect(0, 0, 16, 16))

	hashes, err := ImageHashes(ctx, im)
	require.NoError(t, err)

	// cancelled hashing never yields placeholder entries

	for _, h := range hashes {
		require.NotNil(t, h)
	}
}
