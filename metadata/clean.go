package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// The gantry control system records timestamps in local (US/Arizona) time
// with no zone. Arizona does not observe DST so the offset is fixed.
const gantryTimeLayout string = "01/02/2006 15:04:05"

var gantryZone = time.FixedZone("MST", -7*60*60)

// Key renames applied to 'gantry_system_variable_metadata'. Everything else
// falls back to generic snake-casing.
var gantryKeys = map[string]string{
	"position x [m]":          "position_m.x",
	"position y [m]":          "position_m.y",
	"position z [m]":          "position_m.z",
	"speed x [m/s]":           "speed_m/s.x",
	"speed y [m/s]":           "speed_m/s.y",
	"speed z [m/s]":           "speed_m/s.z",
	"scanSpeedInMPerS [m/s]":  "scan_speed_m/s",
	"scanDistance [m]":        "scan_distance_m",
	"scanDistanceInM [m]":     "scan_distance_m",
	"scanDirectionIsPositive": "scan_direction_is_positive",
	"sensor setting time [s]": "sensor_setting_time_s",
	"time":                    "datetime",
}

// Key renames applied to 'sensor_variable_metadata' for the stereo RGB
// camera.
var stereoSensorKeys = map[string]string{
	"current setting rotate flip type": "rotate_flip_type",
	"current setting crosshairs":       "crosshairs",
	"current setting exposure":         "exposure",
	"current setting gain":             "gain",
	"current setting gamma":            "gamma",
	"width left image [pixel]":         "image_width_px.left",
	"height left image [pixel]":        "image_height_px.left",
	"width right image [pixel]":        "image_width_px.right",
	"height right image [pixel]":       "image_height_px.right",
}

// Top-level LemnaTec sections with dedicated handling. Anything else is
// preserved under a snake-cased name.
var knownSections = map[string]bool{
	"gantry_system_variable_metadata": true,
	"gantry_system_fixed_metadata":    true,
	"sensor_variable_metadata":        true,
	"sensor_fixed_metadata":           true,
	"user_given_metadata":             true,
	"spatial_metadata":                true,
}

var unitPattern = regexp.MustCompile(`\s*\[([^\]]*)\]\s*$`)
var camelPattern = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// Clean converts a raw LemnaTec metadata document in to the pipeline's
// standardized form for sensor. The output carries a
// 'terraref_cleaned_metadata' flag marking it as blessed for downstream
// converters.
func Clean(body []byte, sensor string) ([]byte, error) {

	body = UnwrapContent(body)

	lemnatec_rsp := gjson.GetBytes(body, "lemnatec_measurement_metadata")

	if lemnatec_rsp.Exists() {
		body = []byte(lemnatec_rsp.Raw)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("Invalid metadata document")
	}

	out := []byte("{}")

	out, err := sjson.SetBytes(out, "terraref_cleaned_metadata", true)

	if err != nil {
		return nil, err
	}

	gantry_rsp := gjson.GetBytes(body, "gantry_system_variable_metadata")

	if gantry_rsp.Exists() {

		cleaned, err := cleanSection(gantry_rsp, gantryKeys)

		if err != nil {
			return nil, fmt.Errorf("Failed to clean gantry metadata, %w", err)
		}

		out, err = sjson.SetRawBytes(out, "gantry_variable_metadata", cleaned)

		if err != nil {
			return nil, err
		}
	}

	fixed_rsp := gjson.GetBytes(body, "gantry_system_fixed_metadata")

	if fixed_rsp.Exists() {

		cleaned, err := cleanSection(fixed_rsp, nil)

		if err != nil {
			return nil, fmt.Errorf("Failed to clean gantry fixed metadata, %w", err)
		}

		out, err = sjson.SetRawBytes(out, "gantry_fixed_metadata", cleaned)

		if err != nil {
			return nil, err
		}
	}

	sensor_rsp := gjson.GetBytes(body, "sensor_variable_metadata")

	if sensor_rsp.Exists() {

		var keys map[string]string

		if sensor == "stereoTop" {
			keys = stereoSensorKeys
		}

		cleaned, err := cleanSection(sensor_rsp, keys)

		if err != nil {
			return nil, fmt.Errorf("Failed to clean sensor metadata, %w", err)
		}

		out, err = sjson.SetRawBytes(out, "sensor_variable_metadata", cleaned)

		if err != nil {
			return nil, err
		}
	}

	sensor_fixed_rsp := gjson.GetBytes(body, "sensor_fixed_metadata")

	if sensor_fixed_rsp.Exists() {

		out, err = sjson.SetRawBytes(out, "sensor_fixed_metadata", []byte(sensor_fixed_rsp.Raw))

		if err != nil {
			return nil, err
		}
	}

	user_rsp := gjson.GetBytes(body, "user_given_metadata")

	if user_rsp.Exists() {

		out, err = sjson.SetRawBytes(out, "experiment_metadata", []byte(user_rsp.Raw))

		if err != nil {
			return nil, err
		}
	}

	spatial_rsp := gjson.GetBytes(body, "spatial_metadata")

	if spatial_rsp.Exists() {

		out, err = sjson.SetRawBytes(out, "spatial_metadata", []byte(spatial_rsp.Raw))

		if err != nil {
			return nil, err
		}
	}

	// preserve anything the station added that we don't know about yet

	var walk_err error

	gjson.ParseBytes(body).ForEach(func(key gjson.Result, value gjson.Result) bool {

		name := key.String()

		if knownSections[name] {
			return true
		}

		out, walk_err = sjson.SetRawBytes(out, snakeKey(name), []byte(value.Raw))
		return walk_err == nil
	})

	if walk_err != nil {
		return nil, walk_err
	}

	return out, nil
}

// cleanSection rewrites every key in section using the renames table (falling
// back to snake-casing) and coerces string values in to numbers and booleans
// where possible.
func cleanSection(section gjson.Result, renames map[string]string) ([]byte, error) {

	out := []byte("{}")

	var err error

	section.ForEach(func(key gjson.Result, value gjson.Result) bool {

		name := key.String()

		path, ok := renames[name]

		if !ok {
			path = snakeKey(name)
		}

		if path == "datetime" {

			t, t_err := time.ParseInLocation(gantryTimeLayout, value.String(), gantryZone)

			if t_err == nil {
				out, err = sjson.SetBytes(out, path, t.Format(time.RFC3339))
				return err == nil
			}
		}

		out, err = setCoerced(out, path, value)
		return err == nil
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// setCoerced assigns value to path, converting the gantry's stringly-typed
// numbers and Y/N flags to native JSON types.
func setCoerced(out []byte, path string, value gjson.Result) ([]byte, error) {

	if value.Type != gjson.String {
		return sjson.SetRawBytes(out, path, []byte(value.Raw))
	}

	str := value.String()

	switch str {
	case "Y", "y", "true", "True":
		return sjson.SetBytes(out, path, true)
	case "N", "n", "false", "False":
		return sjson.SetBytes(out, path, false)
	}

	if i, err := strconv.ParseInt(str, 10, 64); err == nil {
		return sjson.SetBytes(out, path, i)
	}

	if f, err := strconv.ParseFloat(str, 64); err == nil {
		return sjson.SetBytes(out, path, f)
	}

	return sjson.SetBytes(out, path, str)
}

// snakeKey converts a raw LemnaTec key to snake case, folding any trailing
// '[unit]' marker in to the name. For example "scanDistance [m]" becomes
// "scan_distance_m".
func snakeKey(key string) string {

	unit := ""

	m := unitPattern.FindStringSubmatch(key)

	if m != nil {
		unit = m[1]
		key = unitPattern.ReplaceAllString(key, "")
	}

	key = camelPattern.ReplaceAllString(key, "${1}_${2}")
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, " ", "_")

	for strings.Contains(key, "__") {
		key = strings.ReplaceAll(key, "__", "_")
	}

	key = strings.Trim(key, "_")

	if unit != "" {
		key = fmt.Sprintf("%s_%s", key, unit)
	}

	return key
}
