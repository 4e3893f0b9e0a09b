package chronodose

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sells-group/chronodose-cli/pkg/doctolib"
)

// fakeBackend serves the three booking endpoints from canned data and
// records what it was asked.
type fakeBackend struct {
	t *testing.T

	booking        string
	availabilities string
	// claim decides the answer to one appointment POST by start date. It
	// returns a status code and a JSON body.
	claim func(startDate string) (int, string)

	mu             sync.Mutex
	bookingCalls   int
	availQueries   []map[string]string
	claims         []string
	claimCookies   []string
	inFlight       atomic.Int32
	maxInFlight    atomic.Int32
	sessionCounter atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	return &fakeBackend{
		t:              t,
		booking:        `{"data":{"visit_motives":[],"agendas":[]}}`,
		availabilities: `{"availabilities":[]}`,
		claim: func(string) (int, string) {
			return http.StatusCreated, `{"id":"rdv-1"}`
		},
	}
}

func (b *fakeBackend) start() (*httptest.Server, doctolib.Client) {
	srv := httptest.NewServer(b)
	b.t.Cleanup(srv.Close)
	return srv, doctolib.NewClient(doctolib.WithBaseURL(srv.URL))
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/booking/"):
		b.mu.Lock()
		b.bookingCalls++
		b.mu.Unlock()
		_, _ = w.Write([]byte(b.booking))

	case r.Method == http.MethodGet && r.URL.Path == "/availabilities.json":
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		b.mu.Lock()
		b.availQueries = append(b.availQueries, q)
		b.mu.Unlock()
		_, _ = w.Write([]byte(b.availabilities))

	case r.Method == http.MethodPost && r.URL.Path == "/appointments.json":
		n := b.inFlight.Add(1)
		defer b.inFlight.Add(-1)
		for {
			cur := b.maxInFlight.Load()
			if n <= cur || b.maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}

		var req doctolib.AppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		cookie, err := r.Cookie("session")
		if err != nil {
			cookie = &http.Cookie{Name: "session", Value: "s" + strconv.Itoa(int(b.sessionCounter.Add(1)))}
			http.SetCookie(w, cookie)
		}

		b.mu.Lock()
		b.claims = append(b.claims, req.Appointment.StartDate)
		b.claimCookies = append(b.claimCookies, cookie.Value)
		b.mu.Unlock()

		status, body := b.claim(req.Appointment.StartDate)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (b *fakeBackend) recordedClaims() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.claims...)
}

func (b *fakeBackend) recordedCookies() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.claimCookies...)
}

func (b *fakeBackend) availabilityCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.availQueries)
}

func ptr[T any](v T) *T { return &v }
