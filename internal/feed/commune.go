package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/rotisserie/eris"

	"github.com/sells-group/chronodose-cli/internal/fetcher"
	"github.com/sells-group/chronodose-cli/internal/geo"
)

// minCommuneSimilarity rejects matches that share little more than a prefix.
const minCommuneSimilarity = 0.9

// CommuneResponse is the commune index document.
type CommuneResponse struct {
	Query    string    `json:"query"`
	Communes []Commune `json:"communes"`
}

// Commune is one entry of the commune index, with the index's terse keys.
type Commune struct {
	Code       string           `json:"c"`
	Zip        string           `json:"z"`
	Name       string           `json:"n"`
	Department *string          `json:"d"`
	Location   *CommuneLocation `json:"g"`
}

// CommuneLocation is a "lat,lon" string on the wire.
type CommuneLocation struct {
	geo.Point
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *CommuneLocation) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	p, err := geo.ParsePoint(s)
	if err != nil {
		return err
	}
	l.Point = p
	return nil
}

// MarshalJSON implements json.Marshaler.
func (l CommuneLocation) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Point.String())
}

// FetchCommunes downloads the commune index.
func FetchCommunes(ctx context.Context, f fetcher.Fetcher, url string) (*CommuneResponse, error) {
	resp, err := fetcher.FetchJSON[CommuneResponse](ctx, f, url)
	if err != nil {
		return nil, eris.Wrap(err, "feed: fetch communes")
	}
	return resp, nil
}

// BestCommune returns the located commune whose name is closest to name by
// Jaro-Winkler similarity, ignoring case and accents. A zip code matches
// exactly.
func (r *CommuneResponse) BestCommune(name string) (*Commune, error) {
	want := fold(strings.TrimSpace(name))
	if want == "" {
		return nil, eris.New("feed: empty commune name")
	}

	var best *Commune
	var bestScore float64
	for i := range r.Communes {
		c := &r.Communes[i]
		if c.Location == nil {
			continue
		}
		if c.Zip == want {
			return c, nil
		}
		score := matchr.JaroWinkler(want, fold(c.Name), false)
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == nil || bestScore < minCommuneSimilarity {
		return nil, eris.Errorf("feed: no commune matches %q", name)
	}
	return best, nil
}
