package chronodose

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/pkg/doctolib"
)

// VerifierConfig holds the empirically chosen timings of the claim/release
// protocol.
type VerifierConfig struct {
	// SettleDelay is waited between the last real claim and the decoy.
	SettleDelay time.Duration
	// DecoyOffset is added to the first candidate to build the decoy slot.
	DecoyOffset time.Duration
	// ReleaseTimeout bounds the release step, which runs even after the
	// caller's context is cancelled.
	ReleaseTimeout time.Duration
}

// DefaultVerifierConfig returns the timings observed to work against the
// live backend.
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		SettleDelay:    time.Second,
		DecoyOffset:    10 * 24 * time.Hour,
		ReleaseTimeout: 15 * time.Second,
	}
}

// Verifier determines which candidate slots are genuinely free by claiming
// them on the live backend.
type Verifier struct {
	client doctolib.Client
	cfg    VerifierConfig
	now    func() time.Time
}

// NewVerifier creates a Verifier. Non-positive offsets and timeouts fall back
// to the defaults; a zero settle delay is honoured.
func NewVerifier(client doctolib.Client, cfg VerifierConfig) *Verifier {
	def := DefaultVerifierConfig()
	if cfg.DecoyOffset <= 0 {
		cfg.DecoyOffset = def.DecoyOffset
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = def.ReleaseTimeout
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	return &Verifier{client: client, cfg: cfg, now: time.Now}
}

// Open starts a verification session for one center.
func (v *Verifier) Open(ids IdentifierSet) (*VerificationSession, error) {
	sess, err := v.client.NewSession()
	if err != nil {
		return nil, newScanError(ErrVerification, "", err)
	}
	return &VerificationSession{
		sess:        sess,
		ids:         ids,
		settleDelay: v.cfg.SettleDelay,
		decoyOffset: v.cfg.DecoyOffset,
		now:         v.now,
		log:         zap.L().With(zap.String("agendas", ids.AgendaParam())),
	}, nil
}

// Verify claims every slot in order within a single session, then releases
// the held slot with a decoy claim. The returned outcomes are index-aligned
// with slots. No request is made when slots is empty. If ctx ends mid-batch
// the remaining slots are ProbeFailed, the hold is still released and the
// error is ErrVerification.
func (v *Verifier) Verify(ctx context.Context, ids IdentifierSet, slots []Slot) ([]Outcome, error) {
	outcomes := make([]Outcome, len(slots))
	if len(slots) == 0 {
		return outcomes, nil
	}

	sess, err := v.Open(ids)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	for i, slot := range slots {
		if ctx.Err() != nil {
			for j := i; j < len(slots); j++ {
				outcomes[j] = ProbeFailed
			}
			break
		}
		outcomes[i] = sess.AttemptClaim(ctx, slot)
	}

	v.release(ctx, sess)
	if err := ctx.Err(); err != nil {
		return outcomes, newScanError(ErrVerification, "", err)
	}
	return outcomes, nil
}

// release runs the decoy step on a context that survives cancellation of
// ctx, so a hold is never left behind by an interrupted scan.
func (v *Verifier) release(ctx context.Context, sess *VerificationSession) {
	if sess.Attempts() == 0 {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.cfg.ReleaseTimeout)
	defer cancel()

	if err := sess.ReleaseViaDecoy(rctx); err != nil {
		sess.log.Error("decoy release failed, a hold may persist until it expires", zap.Error(err))
	}
}
