package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const communeIndex = `{
	"query": "",
	"communes": [
		{"c": "75056", "z": "75001", "n": "Paris", "d": "75", "g": "48.8566,2.3522"},
		{"c": "78646", "z": "78000", "n": "Versailles", "d": "78", "g": "48.8049,2.1204"},
		{"c": "94081", "z": "94400", "n": "Vitry-sur-Seine", "d": "94", "g": "48.7875,2.3928"},
		{"c": "92012", "z": "92100", "n": "Boulogne-Billancourt", "d": "92", "g": "48.8397,2.2399"},
		{"c": "00000", "z": "00000", "n": "Nowhere", "d": null}
	]
}`

func TestCommuneResponse_Decode(t *testing.T) {
	var r CommuneResponse
	require.NoError(t, json.Unmarshal([]byte(communeIndex), &r))
	require.Len(t, r.Communes, 5)

	paris := r.Communes[0]
	require.NotNil(t, paris.Location)
	assert.Equal(t, 48.8566, paris.Location.Lat())
	assert.Equal(t, 2.3522, paris.Location.Lon())
	assert.Equal(t, "75", *paris.Department)

	assert.Nil(t, r.Communes[4].Location)
	assert.Nil(t, r.Communes[4].Department)
}

func TestCommuneLocation_Invalid(t *testing.T) {
	var c Commune
	assert.Error(t, json.Unmarshal([]byte(`{"g":"48.8566"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"g":"north,2.3"}`), &c))
}

func TestCommuneLocation_Marshal(t *testing.T) {
	var c Commune
	require.NoError(t, json.Unmarshal([]byte(`{"n":"Paris","g":"48.8566,2.3522"}`), &c))
	out, err := json.Marshal(c.Location)
	require.NoError(t, err)
	assert.Equal(t, `"48.8566,2.3522"`, string(out))
}

func TestBestCommune(t *testing.T) {
	var r CommuneResponse
	require.NoError(t, json.Unmarshal([]byte(communeIndex), &r))

	tests := []struct {
		query string
		want  string
	}{
		{"Paris", "Paris"},
		{"paris", "Paris"},
		{"versaille", "Versailles"},
		{"Vitry sur Seine", "Vitry-sur-Seine"},
		{"92100", "Boulogne-Billancourt"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, err := r.BestCommune(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name)
		})
	}

	_, err := r.BestCommune("Marseille")
	assert.Error(t, err)
	_, err = r.BestCommune("Nowhere")
	assert.Error(t, err)
	_, err = r.BestCommune("  ")
	assert.Error(t, err)
}

func TestFetchCommunes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(communeIndex))
	}))
	defer srv.Close()

	r, err := FetchCommunes(context.Background(), newTestFetcher(), srv.URL+"/communes.json")
	require.NoError(t, err)
	assert.Len(t, r.Communes, 5)
}
