// bin2tif converts a raw stereo camera .bin file in to a georeferenced TIFF
// file, using the capture's cleaned metadata for spatial information.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/agpipeline/go-gantry-transformers/common"
	"github.com/agpipeline/go-gantry-transformers/lookup"
	"github.com/agpipeline/go-gantry-transformers/operations/convert"
)

func main() {

	logging := flag.String("logging", os.Getenv("LOGGING"), "The path or URI of a JSON logging configuration file.")
	debug := flag.Bool("debug", false, "Enable debug logging.")
	info := flag.Bool("info", false, "Enable info logging.")

	preview := flag.Bool("preview", false, "Also write a downscaled PNG preview of the converted frame.")
	fixed_metadata := flag.String("fixed-metadata", "", "An optional gocloud.dev/blob bucket URI containing fixed sensor metadata documents.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] bin_file metadata_file working_space\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	err := common.SetupLogging(*logging, common.LogLevel(*debug, *info))

	if err != nil {
		log.Fatalf("Failed to set up logging, %v", err)
	}

	args := flag.Args()

	if len(args) != 3 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()

	var fixed_lookup *sync.Map

	if *fixed_metadata != "" {

		looker_upper, err := lookup.NewBlobLookerUpper(ctx, *fixed_metadata)

		if err != nil {
			log.Fatalf("Failed to create fixed metadata looker upper, %v", err)
		}

		fixed_lookup, err = lookup.NewLookupMap(ctx, []lookup.LookerUpper{looker_upper}, []lookup.AppendLookupFunc{lookup.FixedMetadataAppendLookupFunc})

		if err != nil {
			log.Fatalf("Failed to load fixed metadata, %v", err)
		}
	}

	opts := &convert.ConvertBinOptions{
		BinFile:       args[0],
		MetadataFile:  args[1],
		WorkingSpace:  args[2],
		Preview:       *preview,
		FixedMetadata: fixed_lookup,
	}

	result, err := convert.ConvertBin(ctx, opts)

	if err != nil {
		log.Fatalf("Failed to convert %s, %v", args[0], err)
	}

	err = common.SaveResult(ctx, args[2], result)

	if err != nil {
		log.Fatalf("Failed to save result, %v", err)
	}

	os.Exit(result.Code)
}
