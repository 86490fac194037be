package bety

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testServer(t *testing.T, responses map[string]string) *httptest.Server {

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusForbidden)
			return
		}

		body, ok := responses[r.URL.Path]

		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestGetCultivars(t *testing.T) {

	s := testServer(t, map[string]string{
		"/api/v1/cultivars": `{
			"metadata": { "URI": "/api/v1/cultivars" },
			"data": [
				{ "cultivar": { "id": 1, "name": "Big Kahuna" } },
				{ "cultivar": { "id": 2, "name": "PI_152730" } }
			]
		}`,
	})

	defer s.Close()

	cl, err := NewClientWithURL(s.URL, "s3cret")
	require.NoError(t, err)

	rows, err := cl.GetCultivars(context.Background(), nil)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(rows)
	require.True(t, parsed.IsArray())

	assert.Len(t, parsed.Array(), 2)
	assert.Equal(t, "Big Kahuna", parsed.Get("0.name").String())
	assert.Equal(t, int64(2), parsed.Get("1.id").Int())
}

func TestGetExperimentsParams(t *testing.T) {

	var got_query url.Values

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got_query = r.URL.Query()
		w.Write([]byte(`{"data": []}`))
	}))

	defer s.Close()

	cl, err := NewClientWithURL(s.URL, "s3cret")
	require.NoError(t, err)

	_, err = cl.GetExperiments(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "full_info", got_query.Get("associations_mode"))
	assert.Equal(t, "none", got_query.Get("limit"))
	assert.Equal(t, "s3cret", got_query.Get("key"))
}

func TestGetSites(t *testing.T) {

	s := testServer(t, map[string]string{
		"/api/v1/experiments": `{
			"data": [
				{ "experiment": {
					"id": 10,
					"name": "Season 4: Sorghum",
					"start_date": "2017-04-20",
					"end_date": "2017-09-18",
					"sites": [
						{ "site": { "id": 100, "sitename": "MAC Field Scanner Season 4 Range 1 Column 1" } },
						{ "site": { "id": 101, "sitename": "MAC Field Scanner Season 4 Range 1 Column 2" } }
					]
				}},
				{ "experiment": {
					"id": 11,
					"name": "Season 4: Sorghum BAP",
					"start_date": "2017-04-20",
					"end_date": "2017-09-18",
					"sites": [
						{ "site": { "id": 100, "sitename": "MAC Field Scanner Season 4 Range 1 Column 1" } }
					]
				}},
				{ "experiment": {
					"id": 12,
					"name": "Season 5: Durum Wheat",
					"start_date": "2017-11-20",
					"end_date": "2018-04-05",
					"sites": [
						{ "site": { "id": 200, "sitename": "MAC Field Scanner Season 5 Range 1 Column 1" } }
					]
				}}
			]
		}`,
	})

	defer s.Close()

	cl, err := NewClientWithURL(s.URL, "s3cret")
	require.NoError(t, err)

	sites, err := cl.GetSites(context.Background(), "2017-06-15", nil)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(sites)
	require.True(t, parsed.IsArray())

	// site 100 appears in two experiments but only once here
	assert.Len(t, parsed.Array(), 2)
	assert.Equal(t, int64(100), parsed.Get("0.id").Int())
	assert.Equal(t, int64(101), parsed.Get("1.id").Int())
}

func TestGetSitesMissingDate(t *testing.T) {

	cl, err := NewClientWithURL("http://localhost:1", "s3cret")
	require.NoError(t, err)

	_, err = cl.GetSites(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestGetMissingData(t *testing.T) {

	s := testServer(t, map[string]string{
		"/api/v1/traits": `{"metadata": {}}`,
	})

	defer s.Close()

	cl, err := NewClientWithURL(s.URL, "s3cret")
	require.NoError(t, err)

	_, err = cl.GetTraits(context.Background(), nil)
	assert.Error(t, err)
}

func TestGetRetries(t *testing.T) {

	count := 0

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		count += 1

		if count < 3 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}

		w.Write([]byte(`{"data": [{"trait": {"id": 1}}]}`))
	}))

	defer s.Close()

	cl, err := NewClientWithURL(s.URL, "s3cret")
	require.NoError(t, err)

	rows, err := cl.GetTraits(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, count)
	assert.Equal(t, int64(1), gjson.GetBytes(rows, "0.id").Int())
}
