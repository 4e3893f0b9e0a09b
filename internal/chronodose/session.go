package chronodose

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/pkg/doctolib"
)

// Outcome classifies one verified slot.
type Outcome int

const (
	// Free means the backend accepted the claim: the slot is genuinely bookable.
	Free Outcome = iota
	// Taken means the backend answered with an error document.
	Taken
	// ProbeFailed means the claim could not be completed at the transport level.
	ProbeFailed
)

func (o Outcome) String() string {
	switch o {
	case Free:
		return "free"
	case Taken:
		return "taken"
	case ProbeFailed:
		return "probe_failed"
	default:
		return "unknown"
	}
}

// VerificationSession is one claim/release pass over a single center. Claims
// place holds tied to the session's cookies; ReleaseViaDecoy evicts them. The
// session is single-use: once released or closed it refuses further claims.
type VerificationSession struct {
	sess        doctolib.Session
	ids         IdentifierSet
	settleDelay time.Duration
	decoyOffset time.Duration
	now         func() time.Time

	attempts int
	first    Slot
	released bool
	closed   bool
	log      *zap.Logger
}

// AttemptClaim submits a reservation for slot and classifies the answer.
// Calls must not overlap.
func (s *VerificationSession) AttemptClaim(ctx context.Context, slot Slot) Outcome {
	if s.closed || s.released {
		s.log.Warn("claim on a finished verification session", zap.String("slot", string(slot)))
		return ProbeFailed
	}

	if s.attempts == 0 {
		s.first = slot
	}
	s.attempts++

	resp, err := s.sess.CreateAppointment(ctx, s.request(string(slot)))
	if err != nil {
		s.log.Debug("claim failed", zap.String("slot", string(slot)), zap.Error(err))
		return ProbeFailed
	}
	if resp.Rejected() {
		s.log.Debug("slot unavailable", zap.String("slot", string(slot)), zap.String("reason", resp.ErrorMessage()))
		return Taken
	}
	s.log.Debug("slot available", zap.String("slot", string(slot)))
	return Free
}

// ReleaseViaDecoy waits for the backend to settle, then claims a slot far
// outside any real calendar so the backend drops whichever real slot the
// session holds. It is a no-op when no claim was attempted.
func (s *VerificationSession) ReleaseViaDecoy(ctx context.Context) error {
	if s.attempts == 0 || s.released {
		return nil
	}
	if s.closed {
		return eris.New("chronodose: release on a closed session")
	}
	s.released = true

	if err := sleepCtx(ctx, s.settleDelay); err != nil {
		return eris.Wrap(err, "chronodose: settle before release")
	}

	decoy := s.decoyTime().Format(time.RFC3339)
	resp, err := s.sess.CreateAppointment(ctx, s.request(decoy))
	if err != nil {
		return eris.Wrapf(err, "chronodose: decoy claim %s", decoy)
	}

	if !resp.Rejected() {
		s.log.Warn("decoy claim was accepted, expected unavailable",
			zap.String("decoy", decoy),
			zap.String("appointment_id", resp.ID()),
		)
		return nil
	}
	s.log.Debug("decoy claim rejected as expected", zap.String("decoy", decoy))
	return nil
}

// Close ends the session. It is safe to call more than once.
func (s *VerificationSession) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.sess.Close()
}

// Attempts returns the number of real claims submitted so far.
func (s *VerificationSession) Attempts() int {
	return s.attempts
}

func (s *VerificationSession) decoyTime() time.Time {
	if t, err := s.first.Time(); err == nil {
		return t.Add(s.decoyOffset)
	}
	return s.now().In(naiveOffset).Add(s.decoyOffset)
}

func (s *VerificationSession) request(startDate string) doctolib.AppointmentRequest {
	return doctolib.AppointmentRequest{
		AgendaIDs:   s.ids.AgendaParam(),
		PracticeIDs: []string{s.ids.PracticeParam()},
		Appointment: doctolib.AppointmentSlot{
			StartDate:      startDate,
			VisitMotiveIDs: s.ids.VisitMotiveParam(),
		},
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
