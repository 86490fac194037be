// fetch-bety retrieves reference datasets (cultivars, experiments, sites,
// traits) from a BETYdb instance and writes them as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/agpipeline/go-gantry-transformers/common"
	"github.com/agpipeline/go-gantry-transformers/operations/fetch"
)

func main() {

	logging := flag.String("logging", os.Getenv("LOGGING"), "The path or URI of a JSON logging configuration file.")
	debug := flag.Bool("debug", false, "Enable debug logging.")
	info := flag.Bool("info", false, "Enable info logging.")

	options := flag.String("options", "", "An optional comma separated list of name/value pairs to pass to the API, for example \"name=value,name2=value2\".")
	output := flag.String("output", "", "An optional whosonfirst/go-writer URI naming where the dataset is written. Defaults to stdout://.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] datatype [date]\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Parse()

	err := common.SetupLogging(*logging, common.LogLevel(*debug, *info))

	if err != nil {
		log.Fatalf("Failed to set up logging, %v", err)
	}

	args := flag.Args()

	if len(args) < 1 || len(args) > 2 {
		flag.Usage()
		os.Exit(2)
	}

	date := ""

	if len(args) == 2 {
		date = args[1]
	}

	ctx := context.Background()

	opts := &fetch.FetchOptions{
		Datatype:  args[0],
		Date:      date,
		Options:   *options,
		WriterURI: *output,
	}

	result, err := fetch.Fetch(ctx, opts)

	if err != nil {
		log.Fatalf("Failed to fetch %s, %v", args[0], err)
	}

	if result.Error != nil {
		log.Println(result.Error.Message)
	}

	os.Exit(result.Code)
}
