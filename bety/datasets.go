package bety

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GetCultivars fetches every cultivar known to the database as a JSON array.
// Extra query parameters may be passed in params.
func (cl *Client) GetCultivars(ctx context.Context, params url.Values) ([]byte, error) {

	params = withParam(params, "limit", "none")

	body, err := cl.get(ctx, "cultivars", params)

	if err != nil {
		return nil, err
	}

	return unwrapRows(body, "cultivar")
}

// GetExperiments fetches every experiment, with full association details, as
// a JSON array.
func (cl *Client) GetExperiments(ctx context.Context, params url.Values) ([]byte, error) {

	params = withParam(params, "associations_mode", "full_info")
	params = withParam(params, "limit", "none")

	body, err := cl.get(ctx, "experiments", params)

	if err != nil {
		return nil, err
	}

	return unwrapRows(body, "experiment")
}

// GetTraits fetches every trait definition as a JSON array.
func (cl *Client) GetTraits(ctx context.Context, params url.Values) ([]byte, error) {

	params = withParam(params, "limit", "none")

	body, err := cl.get(ctx, "traits", params)

	if err != nil {
		return nil, err
	}

	return unwrapRows(body, "trait")
}

// GetSites fetches the sites attached to experiments active on date
// (YYYY-MM-DD), de-duplicated by site id, as a JSON array.
func (cl *Client) GetSites(ctx context.Context, date string, params url.Values) ([]byte, error) {

	if date == "" {
		return nil, fmt.Errorf("Missing date")
	}

	experiments, err := cl.GetExperiments(ctx, params)

	if err != nil {
		return nil, err
	}

	sites := []byte("[]")
	seen := make(map[int64]bool)

	var set_err error

	gjson.ParseBytes(experiments).ForEach(func(_ gjson.Result, exp gjson.Result) bool {

		start := exp.Get("start_date").String()
		end := exp.Get("end_date").String()

		if start == "" || end == "" {
			return true
		}

		if date < start || date > end {
			return true
		}

		exp.Get("sites").ForEach(func(_ gjson.Result, row gjson.Result) bool {

			site := row.Get("site")

			if !site.Exists() {
				site = row
			}

			id := site.Get("id").Int()

			if seen[id] {
				return true
			}

			seen[id] = true

			sites, set_err = sjson.SetRawBytes(sites, "-1", []byte(site.Raw))
			return set_err == nil
		})

		return set_err == nil
	})

	if set_err != nil {
		return nil, set_err
	}

	return sites, nil
}

// unwrapRows flattens the API's {"data": [{"<kind>": {...}}, ...]} envelope
// in to a plain JSON array of rows.
func unwrapRows(body []byte, kind string) ([]byte, error) {

	rows := []byte("[]")

	var err error

	gjson.GetBytes(body, "data").ForEach(func(_ gjson.Result, row gjson.Result) bool {

		inner := row.Get(kind)

		if !inner.Exists() {
			inner = row
		}

		rows, err = sjson.SetRawBytes(rows, "-1", []byte(inner.Raw))
		return err == nil
	})

	if err != nil {
		return nil, err
	}

	return rows, nil
}

func withParam(params url.Values, key string, value string) url.Values {

	if params == nil {
		params = url.Values{}
	}

	if params.Get(key) == "" {
		params.Set(key, value)
	}

	return params
}
