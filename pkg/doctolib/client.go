// Package doctolib provides a client for the live booking backend: booking-page
// metadata, the availability calendar and cookie-bound appointment sessions.
package doctolib

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public booking host.
const DefaultBaseURL = "https://www.doctolib.fr"

// Client defines the booking backend operations.
type Client interface {
	// Booking fetches the booking-page metadata of a center.
	Booking(ctx context.Context, slug string) (*Booking, error)
	// Availabilities queries the availability calendar.
	Availabilities(ctx context.Context, q AvailabilityQuery) (*AvailabilityResponse, error)
	// NewSession opens a cookie-bound session for appointment claims.
	NewSession() (Session, error)
}

// Session is a cookie-bound conversation with the backend. Holds placed by
// CreateAppointment belong to the session that placed them.
type Session interface {
	// CreateAppointment submits a reservation attempt for one slot.
	CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error)
	// Close releases the session's connections. The session must not be used afterwards.
	Close()
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.timeout = d
	}
}

// WithTransport sets the round tripper used by every request and session.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *httpClient) {
		c.transport = rt
	}
}

// WithRateLimiter shares a token bucket across all requests of the client.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	transport http.RoundTripper
	limiter   *rate.Limiter
	http      *resty.Client
}

// NewClient creates a booking backend client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL:   DefaultBaseURL,
		userAgent: "chronodose-cli/1.0",
		timeout:   15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = c.newResty()
	return c
}

// newResty builds a resty client with the shared settings. Retries stay
// disabled: a repeated claim could leave a hold behind.
func (c *httpClient) newResty() *resty.Client {
	r := resty.New()
	r.SetBaseURL(c.baseURL)
	r.SetTimeout(c.timeout)
	r.SetHeader("User-Agent", c.userAgent)
	r.SetHeader("Accept", "application/json")
	r.SetRetryCount(0)
	if c.transport != nil {
		r.SetTransport(c.transport)
	}
	if c.limiter != nil {
		lim := c.limiter
		r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			if err := lim.Wait(req.Context()); err != nil {
				return eris.Wrap(err, "doctolib: rate limiter wait")
			}
			return nil
		})
	}
	return r
}

func (c *httpClient) Booking(ctx context.Context, slug string) (*Booking, error) {
	if slug == "" {
		return nil, eris.New("doctolib: empty center slug")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("slug", slug).
		Get("/booking/{slug}.json")
	if err != nil {
		return nil, eris.Wrapf(err, "doctolib: fetch booking %s", slug)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, eris.Errorf("doctolib: booking %s: unexpected status %d", slug, resp.StatusCode())
	}

	var out Booking
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, eris.Wrapf(err, "doctolib: decode booking %s", slug)
	}
	return &out, nil
}

func (c *httpClient) Availabilities(ctx context.Context, q AvailabilityQuery) (*AvailabilityResponse, error) {
	params := url.Values{}
	params.Set("start_date", q.StartDate)
	params.Set("visit_motive_ids", q.VisitMotiveIDs)
	params.Set("agenda_ids", q.AgendaIDs)
	params.Set("insurance_sector", q.InsuranceSector)
	params.Set("practice_ids", q.PracticeIDs)
	params.Set("destroy_temporary", strconv.FormatBool(q.DestroyTemporary))
	params.Set("limit", strconv.Itoa(q.Limit))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/availabilities.json")
	if err != nil {
		return nil, eris.Wrap(err, "doctolib: fetch availabilities")
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, eris.Errorf("doctolib: availabilities: unexpected status %d", resp.StatusCode())
	}

	var out AvailabilityResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, eris.Wrap(err, "doctolib: decode availabilities")
	}
	return &out, nil
}

func (c *httpClient) NewSession() (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, eris.Wrap(err, "doctolib: create cookie jar")
	}
	r := c.newResty()
	r.SetCookieJar(jar)
	return &session{http: r}, nil
}

type session struct {
	http *resty.Client
}

func (s *session) CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/appointments.json")
	if err != nil {
		return nil, eris.Wrapf(err, "doctolib: create appointment %s", req.Appointment.StartDate)
	}
	// Refusals arrive as error documents with 4xx codes; only server faults
	// are treated as transport failures.
	if resp.StatusCode() >= http.StatusInternalServerError {
		return nil, eris.Errorf("doctolib: create appointment %s: unexpected status %d", req.Appointment.StartDate, resp.StatusCode())
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &fields); err != nil {
		return nil, eris.Wrapf(err, "doctolib: decode appointment response (status %d)", resp.StatusCode())
	}
	if fields == nil {
		return nil, eris.Errorf("doctolib: empty appointment response (status %d)", resp.StatusCode())
	}

	out := &AppointmentResponse{Fields: fields}
	zap.L().Debug("doctolib: appointment response",
		zap.String("start_date", req.Appointment.StartDate),
		zap.Int("status", resp.StatusCode()),
		zap.Bool("rejected", out.Rejected()),
	)
	return out, nil
}

func (s *session) Close() {
	s.http.GetClient().CloseIdleConnections()
}
