package common

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"gocloud.dev/blob"
)

/*

You might be thinking: I know, I'll make a common pool of buckets that all the
codes can use! It's okay, I thought that too. The problem is that if you call
the bucket's Close() method in your code (and you should call it _somewhere_)
then it will stop working (as expected) for all the other code that currently
has an instance of it. It's just not worth the logistics to bother with a pool
of buckets so create them as one-offs, as needed. (20191213/thisisaaronland)

*/

// OpenBucket returns a new gocloud.dev/blob.Bucket instance for uri. Plain
// filesystem paths (no scheme) are treated as file:// buckets so that working
// spaces can be passed around as ordinary directories.
func OpenBucket(ctx context.Context, uri string) (*blob.Bucket, error) {

	if !strings.Contains(uri, "://") {

		abs_path, err := filepath.Abs(uri)

		if err != nil {
			return nil, fmt.Errorf("Failed to derive absolute path for '%s', %w", uri, err)
		}

		uri = fmt.Sprintf("file://%s", abs_path)
	}

	bucket, err := blob.OpenBucket(ctx, uri)

	if err != nil {
		return nil, fmt.Errorf("Failed to open bucket '%s', %w", uri, err)
	}

	return bucket, nil
}

// PublicWriterOptions returns a blob.WriterOptions instance whose BeforeWrite
// hook assigns a 'public-read' ACL to anything written to an S3-backed bucket.
// The hook is a no-op for other bucket implementations.
func PublicWriterOptions() *blob.WriterOptions {

	before := func(asFunc func(interface{}) bool) error {

		s3_req := &s3manager.UploadInput{}
		ok := asFunc(&s3_req)

		if ok {
			s3_req.ACL = aws.String("public-read")
		}

		return nil
	}

	return &blob.WriterOptions{
		BeforeWrite: before,
	}
}
