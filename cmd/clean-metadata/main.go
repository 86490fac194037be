// clean-metadata converts raw LemnaTec gantry metadata in to a cleaned,
// contextualized JSON-LD document.
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
	"github.com/agpipeline/go-gantry-transformers/operations/clean"
)

func main() {

	logging := flag.String("logging", os.Getenv("LOGGING"), "The path or URI of a JSON logging configuration file.")
	debug := flag.Bool("debug", false, "Enable debug logging.")
	info := flag.Bool("info", false, "Enable info logging.")

	fixed_metadata := flag.String("fixed-metadata", "", "An optional gocloud.dev/blob bucket URI containing fixed sensor metadata documents.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] sensor metadata_file working_space [userid]\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	err := common.SetupLogging(*logging, common.LogLevel(*debug, *info))

	if err != nil {
		log.Fatalf("Failed to set up logging, %v", err)
	}

	args := flag.Args()

	if len(args) < 3 || len(args) > 4 {
		flag.Usage()
		os.Exit(2)
	}

	userid := ""

	if len(args) == 4 {
		userid = args[3]
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

	opts := &clean.CleanMetadataOptions{
		Sensor:        args[0],
		Filename:      args[1],
		WorkingSpace:  args[2],
		UserID:        userid,
		FixedMetadata: fixed_lookup,
	}

	result, err := clean.CleanMetadata(ctx, opts)

	if err != nil {
		log.Fatalf("Failed to clean %s, %v", args[1], err)
	}

	err = common.SaveResult(ctx, args[2], result)

	if err != nil {
		log.Fatalf("Failed to save result, %v", err)
	}

	os.Exit(result.Code)
}
