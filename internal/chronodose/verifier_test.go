package chronodose

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/chronodose-cli/pkg/doctolib"
	"github.com/sells-group/chronodose-cli/pkg/doctolib/mocks"
)

const (
	takenBody = `{"error":"Ce créneau n'est plus disponible"}`
	freeBody  = `{"id":"rdv-42"}`
)

var testSlots = []Slot{
	"2021-05-12T09:00:00.000+02:00",
	"2021-05-12T09:05:00.000+02:00",
	"2021-05-12T09:10:00.000+02:00",
}

func fastVerifierConfig() VerifierConfig {
	cfg := DefaultVerifierConfig()
	cfg.SettleDelay = 0
	return cfg
}

// countingTransport tracks the peak number of concurrent requests.
type countingTransport struct {
	next     http.RoundTripper
	inFlight atomic.Int32
	peak     atomic.Int32
	total    atomic.Int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	c.total.Add(1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return c.next.RoundTrip(req)
}

func TestVerify_ClassifiesAndReleases(t *testing.T) {
	backend := newFakeBackend(t)
	backend.claim = func(startDate string) (int, string) {
		switch startDate {
		case string(testSlots[1]):
			return http.StatusCreated, freeBody
		case string(testSlots[2]):
			return http.StatusInternalServerError, `oops`
		default:
			return http.StatusUnprocessableEntity, takenBody
		}
	}
	_, client := backend.start()

	outcomes, err := NewVerifier(client, fastVerifierConfig()).Verify(context.Background(), testIDs, testSlots)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Taken, Free, ProbeFailed}, outcomes)

	claims := backend.recordedClaims()
	require.Len(t, claims, 4)
	assert.Equal(t, []string{string(testSlots[0]), string(testSlots[1]), string(testSlots[2])}, claims[:3])
	assert.Equal(t, "2021-05-22T09:00:00+02:00", claims[3])
}

func TestVerify_SingleSessionCookies(t *testing.T) {
	backend := newFakeBackend(t)
	_, client := backend.start()

	_, err := NewVerifier(client, fastVerifierConfig()).Verify(context.Background(), testIDs, testSlots)
	require.NoError(t, err)

	cookies := backend.recordedCookies()
	require.Len(t, cookies, 4)
	for _, c := range cookies {
		assert.Equal(t, cookies[0], c)
	}
}

func TestVerify_ClaimsAreSequential(t *testing.T) {
	backend := newFakeBackend(t)
	srv, _ := backend.start()
	rt := &countingTransport{next: http.DefaultTransport}
	client := doctolib.NewClient(doctolib.WithBaseURL(srv.URL), doctolib.WithTransport(rt))

	slots := make([]Slot, 0, 8)
	for i := range 8 {
		slots = append(slots, Slot(time.Date(2021, 5, 12, 9, i, 0, 0, naiveOffset).Format(time.RFC3339)))
	}

	outcomes, err := NewVerifier(client, fastVerifierConfig()).Verify(context.Background(), testIDs, slots)
	require.NoError(t, err)
	assert.Len(t, outcomes, 8)
	assert.Equal(t, int32(1), rt.peak.Load())
	assert.Equal(t, int32(9), rt.total.Load())
	assert.Equal(t, int32(1), backend.maxInFlight.Load())
}

func TestVerify_EmptyCandidatesMakesNoRequest(t *testing.T) {
	backend := newFakeBackend(t)
	srv, _ := backend.start()
	rt := &countingTransport{next: http.DefaultTransport}
	client := doctolib.NewClient(doctolib.WithBaseURL(srv.URL), doctolib.WithTransport(rt))

	outcomes, err := NewVerifier(client, fastVerifierConfig()).Verify(context.Background(), testIDs, nil)
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Zero(t, rt.total.Load())
}

func TestVerify_ReleaseAfterTransportFailures(t *testing.T) {
	backend := newFakeBackend(t)
	backend.claim = func(string) (int, string) {
		return http.StatusBadGateway, ``
	}
	_, client := backend.start()

	outcomes, err := NewVerifier(client, fastVerifierConfig()).Verify(context.Background(), testIDs, testSlots)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{ProbeFailed, ProbeFailed, ProbeFailed}, outcomes)

	claims := backend.recordedClaims()
	require.Len(t, claims, 4, "exactly one decoy after the real claims")
	assert.Equal(t, "2021-05-22T09:00:00+02:00", claims[3])
}

func TestVerify_ReleaseSurvivesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backend := newFakeBackend(t)
	backend.claim = func(startDate string) (int, string) {
		if startDate == string(testSlots[0]) {
			cancel()
		}
		return http.StatusUnprocessableEntity, takenBody
	}
	_, client := backend.start()

	outcomes, err := NewVerifier(client, fastVerifierConfig()).Verify(ctx, testIDs, testSlots)
	assert.ErrorIs(t, err, ErrVerification)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, outcomes, len(testSlots))
	assert.Equal(t, []Outcome{ProbeFailed, ProbeFailed}, outcomes[1:])

	claims := backend.recordedClaims()
	require.Len(t, claims, 2)
	assert.Equal(t, string(testSlots[0]), claims[0])
	assert.Equal(t, "2021-05-22T09:00:00+02:00", claims[1])
}

func TestVerify_SessionOpenFailure(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("NewSession").Return(nil, errors.New("cookie jar"))

	_, err := NewVerifier(client, fastVerifierConfig()).Verify(context.Background(), testIDs, testSlots)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestVerificationSession_DecoyAcceptedIsNotFatal(t *testing.T) {
	sess := mocks.NewMockSession(t)
	sess.On("CreateAppointment", mock.Anything, mock.Anything).
		Return(&doctolib.AppointmentResponse{Fields: map[string]json.RawMessage{}}, nil).Maybe()
	sess.On("Close").Return().Once()

	client := mocks.NewMockClient(t)
	client.On("NewSession").Return(sess, nil)

	v := NewVerifier(client, fastVerifierConfig())
	vs, err := v.Open(testIDs)
	require.NoError(t, err)
	defer vs.Close()

	assert.Equal(t, Free, vs.AttemptClaim(context.Background(), testSlots[0]))
	assert.NoError(t, vs.ReleaseViaDecoy(context.Background()))
	assert.Equal(t, 1, vs.Attempts())
}

func TestVerificationSession_Lifecycle(t *testing.T) {
	sess := mocks.NewMockSession(t)
	sess.On("Close").Return().Once()

	client := mocks.NewMockClient(t)
	client.On("NewSession").Return(sess, nil)

	vs, err := NewVerifier(client, fastVerifierConfig()).Open(testIDs)
	require.NoError(t, err)

	// no claim means no decoy
	require.NoError(t, vs.ReleaseViaDecoy(context.Background()))

	vs.Close()
	vs.Close()
	assert.Equal(t, ProbeFailed, vs.AttemptClaim(context.Background(), testSlots[0]))
	assert.Zero(t, vs.Attempts())
	sess.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
}

func TestVerificationSession_DecoyRequestShape(t *testing.T) {
	var decoy doctolib.AppointmentRequest
	sess := mocks.NewMockSession(t)
	sess.On("CreateAppointment", mock.Anything, mock.MatchedBy(func(r doctolib.AppointmentRequest) bool {
		return r.Appointment.StartDate == string(testSlots[0])
	})).Return(&doctolib.AppointmentResponse{Fields: map[string]json.RawMessage{"id": json.RawMessage(`"x"`)}}, nil).Once()
	sess.On("CreateAppointment", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { decoy = args.Get(1).(doctolib.AppointmentRequest) }).
		Return(&doctolib.AppointmentResponse{Fields: map[string]json.RawMessage{"error": json.RawMessage(`"taken"`)}}, nil).Once()
	sess.On("Close").Return()

	client := mocks.NewMockClient(t)
	client.On("NewSession").Return(sess, nil)

	outcomes, err := NewVerifier(client, fastVerifierConfig()).Verify(context.Background(), testIDs, testSlots[:1])
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Free}, outcomes)

	assert.Equal(t, "2021-05-22T09:00:00+02:00", decoy.Appointment.StartDate)
	assert.Equal(t, "10-11", decoy.AgendaIDs)
	assert.Equal(t, []string{"5"}, decoy.PracticeIDs)
	assert.Equal(t, "1", decoy.Appointment.VisitMotiveIDs)
}

func TestSleepCtx(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepCtx(context.Background(), 0))
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "free", Free.String())
	assert.Equal(t, "taken", Taken.String())
	assert.Equal(t, "probe_failed", ProbeFailed.String())
}
