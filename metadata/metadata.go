// Package metadata handles the sensor metadata documents recorded alongside
// gantry captures: extracting cleaned ("blessed") gantry metadata for a
// sensor, looking up capture timestamps, deriving season and experiment
// context and cleaning raw LemnaTec metadata in to the pipeline's
// standardized form.
package metadata

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// GetGantryMetadata returns the cleaned gantry metadata in body, blessed for
// use with sensor. Documents that have not been through the metadata cleaner
// (no 'terraref_cleaned_metadata' flag) are an error.
func GetGantryMetadata(body []byte, sensor string) ([]byte, error) {

	body = UnwrapContent(body)

	cleaned_rsp := gjson.GetBytes(body, "terraref_cleaned_metadata")

	if !cleaned_rsp.Exists() || !cleaned_rsp.Bool() {
		return nil, fmt.Errorf("Metadata has not been cleaned")
	}

	return body, nil
}

// AppendFixedMetadata merges the fixed metadata document for sensor from a
// lookup map (see the lookup package) in to body under
// 'sensor_fixed_metadata'. Missing lookups leave body unchanged.
func AppendFixedMetadata(body []byte, lu *sync.Map, sensor string) ([]byte, error) {

	if lu == nil {
		return body, nil
	}

	v, ok := lu.Load(sensor)

	if !ok {
		return body, nil
	}

	fixed, ok := v.([]byte)

	if !ok {
		return nil, fmt.Errorf("Fixed metadata for '%s' is not a JSON document", sensor)
	}

	return sjson.SetRawBytes(body, "sensor_fixed_metadata", fixed)
}

// GetTimestamp looks up the capture timestamp in body, preferring an explicit
// 'timestamp' key and falling back to the gantry's recorded datetime.
func GetTimestamp(body []byte) (string, error) {

	body = UnwrapContent(body)

	ts_rsp := gjson.GetBytes(body, "timestamp")

	if ts_rsp.Exists() {
		return ts_rsp.String(), nil
	}

	ts_rsp = gjson.GetBytes(body, "gantry_variable_metadata.datetime")

	if ts_rsp.Exists() {
		return ts_rsp.String(), nil
	}

	return "", fmt.Errorf("Unable to find timestamp")
}

// TrimForOutput returns a copy of body suitable for attaching to a produced
// file: the (bulky) fixed sensor metadata is removed.
func TrimForOutput(body []byte) ([]byte, error) {

	return sjson.DeleteBytes(body, "sensor_fixed_metadata")
}

// GetSeasonAndExperiment derives the season name, experiment name and the
// experiment metadata entries active at timestamp from the
// 'experiment_metadata' date ranges in body. A timestamp matching no
// experiment returns empty values, not an error.
func GetSeasonAndExperiment(timestamp string, body []byte) (string, string, []byte, error) {

	if len(timestamp) < 10 {
		return "", "", nil, fmt.Errorf("Invalid timestamp '%s'", timestamp)
	}

	date := timestamp[0:10]

	experiments_rsp := gjson.GetBytes(body, "experiment_metadata")

	if !experiments_rsp.Exists() || !experiments_rsp.IsArray() {
		return "", "", nil, nil
	}

	season := ""
	experiment := ""
	updated := []byte("[]")

	var err error

	experiments_rsp.ForEach(func(_ gjson.Result, exp gjson.Result) bool {

		start := exp.Get("start_date").String()
		end := exp.Get("end_date").String()

		if start == "" || end == "" {
			return true
		}

		if date < start || date > end {
			return true
		}

		name := exp.Get("name").String()

		if experiment == "" {
			experiment = name
			season = seasonFromName(name)
		}

		updated, err = sjson.SetRawBytes(updated, "-1", []byte(exp.Raw))
		return err == nil
	})

	if err != nil {
		return "", "", nil, err
	}

	if experiment == "" {
		return "", "", nil, nil
	}

	return season, experiment, updated, nil
}

// Experiment names at the ua-mac station follow the convention
// "Season N: <description>".
func seasonFromName(name string) string {

	idx := strings.Index(name, ":")

	if idx == -1 {
		return ""
	}

	prefix := strings.TrimSpace(name[0:idx])

	if !strings.HasPrefix(prefix, "Season") {
		return ""
	}

	return prefix
}
