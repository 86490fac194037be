// gather-captures crawls one or more buckets of raw gantry captures and
// prints a JSON record for every .bin file found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/agpipeline/go-gantry-transformers/common"
	"github.com/agpipeline/go-gantry-transformers/operations/gather"
)

func main() {

	flag.Parse()

	ctx := context.Background()

	cb := func(rsp *gather.GatherCapturesResponse) error {

		enc, err := json.Marshal(rsp)

		if err != nil {
			return err
		}

		fmt.Println(string(enc))
		return nil
	}

	for _, uri := range flag.Args() {

		log.Println(uri)

		bucket, err := common.OpenBucket(ctx, uri)

		if err != nil {
			log.Fatal(err)
		}

		err = gather.GatherCaptures(ctx, bucket, cb)

		if err != nil {
			log.Fatal(err)
		}

		bucket.Close()
	}
}
