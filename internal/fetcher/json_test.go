package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDepartment struct {
	Version     int    `json:"version"`
	LastUpdated string `json:"last_updated"`
}

func TestDecodeJSONObject(t *testing.T) {
	got, err := DecodeJSONObject[testDepartment](strings.NewReader(`{"version":1,"last_updated":"2021-05-12T08:00:00+02:00"}`))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "2021-05-12T08:00:00+02:00", got.LastUpdated)
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[testDepartment](strings.NewReader(`{"version":`))
	assert.Error(t, err)
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/75.json", r.URL.Path)
		_, _ = w.Write([]byte(`{"version":1}`))
	}))
	defer srv.Close()

	got, err := FetchJSON[testDepartment](context.Background(), newTestFetcher(), srv.URL+"/75.json")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestFetchJSON_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := FetchJSON[testDepartment](context.Background(), newTestFetcher(), srv.URL+"/99.json")
	assert.Error(t, err)
}
