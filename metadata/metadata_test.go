package metadata

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestGetGantryMetadata(t *testing.T) {

	body := []byte(`{
		"@context": ["https://clowder.ncsa.illinois.edu/contexts/metadata.jsonld"],
		"content": {
			"terraref_cleaned_metadata": true,
			"gantry_variable_metadata": { "datetime": "2017-08-31T13:22:46-07:00" }
		}
	}`)

	md, err := GetGantryMetadata(body, "stereoTop")
	require.NoError(t, err)

	assert.True(t, gjson.GetBytes(md, "terraref_cleaned_metadata").Bool())
}

func TestGetGantryMetadataNotCleaned(t *testing.T) {

	body := []byte(`{"lemnatec_measurement_metadata": {}}`)

	_, err := GetGantryMetadata(body, "stereoTop")
	assert.Error(t, err)
}

func TestGetTimestamp(t *testing.T) {

	body := []byte(`{"timestamp": "2017-08-31T13:22:46-07:00"}`)

	ts, err := GetTimestamp(body)
	require.NoError(t, err)
	assert.Equal(t, "2017-08-31T13:22:46-07:00", ts)

	// fall back to the gantry's recorded datetime

	body = []byte(`{"gantry_variable_metadata": {"datetime": "2017-08-31T13:22:46-07:00"}}`)

	ts, err = GetTimestamp(body)
	require.NoError(t, err)
	assert.Equal(t, "2017-08-31T13:22:46-07:00", ts)

	_, err = GetTimestamp([]byte(`{}`))
	assert.Error(t, err)
}

func TestGetSeasonAndExperiment(t *testing.T) {

	body := []byte(`{
		"experiment_metadata": [
			{ "name": "Season 4: Sorghum", "start_date": "2017-04-20", "end_date": "2017-09-18" },
			{ "name": "Season 5: Durum Wheat", "start_date": "2017-11-20", "end_date": "2018-04-05" }
		]
	}`)

	season, experiment, updated, err := GetSeasonAndExperiment("2017-08-31T13:22:46-07:00", body)
	require.NoError(t, err)

	assert.Equal(t, "Season 4", season)
	assert.Equal(t, "Season 4: Sorghum", experiment)

	matches := gjson.ParseBytes(updated)
	require.True(t, matches.IsArray())
	assert.Len(t, matches.Array(), 1)
}

func TestGetSeasonAndExperimentNoMatch(t *testing.T) {

	body := []byte(`{
		"experiment_metadata": [
			{ "name": "Season 4: Sorghum", "start_date": "2017-04-20", "end_date": "2017-09-18" }
		]
	}`)

	season, experiment, updated, err := GetSeasonAndExperiment("2019-01-01T00:00:00-07:00", body)
	require.NoError(t, err)

	assert.Equal(t, "", season)
	assert.Equal(t, "", experiment)
	assert.Nil(t, updated)
}

func TestTrimForOutput(t *testing.T) {

	body := []byte(`{
		"terraref_cleaned_metadata": true,
		"sensor_fixed_metadata": { "sensor manufacturer": "Allied Vision" },
		"gantry_variable_metadata": {}
	}`)

	trimmed, err := TrimForOutput(body)
	require.NoError(t, err)

	assert.False(t, gjson.GetBytes(trimmed, "sensor_fixed_metadata").Exists())
	assert.True(t, gjson.GetBytes(trimmed, "terraref_cleaned_metadata").Bool())
}

func TestAppendFixedMetadata(t *testing.T) {

	lu := new(sync.Map)
	lu.Store("stereoTop", []byte(`{"sensor manufacturer": "Allied Vision"}`))

	body := []byte(`{"terraref_cleaned_metadata": true}`)

	appended, err := AppendFixedMetadata(body, lu, "stereoTop")
	require.NoError(t, err)

	assert.Equal(t, "Allied Vision", gjson.GetBytes(appended, "sensor_fixed_metadata.sensor manufacturer").String())

	// an unknown sensor leaves the document untouched

	same, err := AppendFixedMetadata(body, lu, "flirIrCamera")
	require.NoError(t, err)
	assert.Equal(t, body, same)
}

func TestNewUserDocument(t *testing.T) {

	doc, err := NewUserDocument([]byte(`{"a": 1}`), "user-100")
	require.NoError(t, err)

	context := gjson.GetBytes(doc, "\\@context")
	require.True(t, context.IsArray())

	assert.Equal(t, ClowderContext, context.Get("0").String())
	assert.Equal(t, UAMACVocab, context.Get("1.\\@vocab").String())

	assert.Equal(t, "cat:user", gjson.GetBytes(doc, "agent.\\@type").String())
	assert.Equal(t, "user-100", gjson.GetBytes(doc, "agent.user_id").String())
	assert.Equal(t, int64(1), gjson.GetBytes(doc, "content.a").Int())

	// verify the literal '@' keys with a plain decode, independent of any
	// path syntax

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(doc, &decoded))

	_, has_context := decoded["@context"]
	assert.True(t, has_context)

	agent, agent_ok := decoded["agent"].(map[string]interface{})
	require.True(t, agent_ok)

	_, has_type := agent["@type"]
	assert.True(t, has_type)

	// no user id, no agent.user_id

	doc, err = NewUserDocument([]byte(`{}`), "")
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(doc, "agent.user_id").Exists())
}

func TestNewExtractorDocument(t *testing.T) {

	doc, err := NewExtractorDocument([]byte(`{"a": 1}`), "capture_left.tif", "stereoTop", "1.0")
	require.NoError(t, err)

	assert.Equal(t, ClowderContext, gjson.GetBytes(doc, "\\@context.0").String())
	assert.Equal(t, "cat:extractor", gjson.GetBytes(doc, "agent.\\@type").String())
	assert.Equal(t, "stereoTop", gjson.GetBytes(doc, "agent.name").String())
	assert.Equal(t, "1.0", gjson.GetBytes(doc, "agent.version").String())
	assert.Equal(t, "capture_left.tif", gjson.GetBytes(doc, "filename").String())
}
