// Package fetch pulls reference datasets (cultivars, experiments, sites,
// traits) from a BETYdb instance and writes them as JSON.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/whosonfirst/go-ioutil"

	"github.com/agpipeline/go-gantry-transformers/bety"
	"github.com/agpipeline/go-gantry-transformers/common"
)

// FetchOptions is a struct containing application-specific options for
// fetching a single reference dataset.
type FetchOptions struct {
	// The type of data to retrieve: cultivars, experiments, sites, traits.
	Datatype string
	// The date (YYYY-MM-DD) required by the "sites" datatype.
	Date string
	// Optional comma separated list of name/value pairs to pass to the API,
	// for example "name=value,name2=value2".
	Options string
	// The BETYdb client to query with. A default client is created when nil.
	Client *bety.Client
	// A whosonfirst/go-writer URI naming where the dataset is written.
	// Defaults to stdout://.
	WriterURI string
}

// Fetch retrieves the dataset named by opts.Datatype and writes it, as a
// 2-space indented JSON array, through the configured writer. Domain failures
// are reported in the returned Result envelope with a negative code;
// transport failures are returned as errors.
func Fetch(ctx context.Context, opts *FetchOptions) (*common.Result, error) {

	if opts.Datatype == "sites" && opts.Date == "" {
		return common.ErrorResult(-1, `A date must be specified with the datatype parameter of "sites"`), nil
	}

	cl := opts.Client

	if cl == nil {

		new_cl, err := bety.NewClient()

		if err != nil {
			return nil, err
		}

		cl = new_cl
	}

	params, err := parseOptions(opts.Options)

	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		slog.Debug("Calling BETYdb with options", "params", params.Encode())
	}

	var rows []byte

	switch opts.Datatype {
	case "cultivars":
		rows, err = cl.GetCultivars(ctx, params)
	case "experiments":
		rows, err = cl.GetExperiments(ctx, params)
	case "sites":
		rows, err = cl.GetSites(ctx, opts.Date, params)
	case "traits":
		rows, err = cl.GetTraits(ctx, params)
	default:
		return common.ErrorResult(-2, "Invalid datatype parameter specified: '%s'. Stopping processing", opts.Datatype), nil
	}

	if err != nil {
		return nil, fmt.Errorf("Failed to fetch %s, %w", opts.Datatype, err)
	}

	var indented bytes.Buffer

	err = json.Indent(&indented, rows, "", "  ")

	if err != nil {
		return nil, err
	}

	writer_uri := opts.WriterURI

	if writer_uri == "" {
		writer_uri = "stdout://"
	}

	wr, err := common.NewWriter(ctx, writer_uri)

	if err != nil {
		return nil, err
	}

	fh, err := ioutil.NewReadSeekCloser(bytes.NewReader(indented.Bytes()))

	if err != nil {
		return nil, err
	}

	_, err = wr.Write(ctx, fmt.Sprintf("%s.json", opts.Datatype), fh)

	if err != nil {
		return nil, fmt.Errorf("Failed to write %s dataset, %w", opts.Datatype, err)
	}

	result := &common.Result{
		Code: 0,
	}

	return result, nil
}

// parseOptions splits a comma separated list of name/value pairs in to query
// parameters. Bare names are passed with empty values.
func parseOptions(raw string) (url.Values, error) {

	params := url.Values{}

	if raw == "" {
		return params, nil
	}

	for _, one_option := range strings.Split(raw, ",") {

		name, value, found := strings.Cut(one_option, "=")

		if !found {
			params.Set(one_option, "")
			continue
		}

		if name == "" {
			continue
		}

		params.Set(name, value)
	}

	return params, nil
}
