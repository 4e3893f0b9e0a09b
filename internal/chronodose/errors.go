package chronodose

import (
	"github.com/rotisserie/eris"
)

// Failure kinds of a center scan. Callers match them with errors.Is.
var (
	ErrMalformedURL      = eris.New("malformed booking url")
	ErrMalformedMetadata = eris.New("malformed booking metadata")
	ErrMetadataFetch     = eris.New("booking metadata fetch failed")
	ErrProbe             = eris.New("availability probe failed")
	ErrVerification      = eris.New("slot verification failed")
)

// ScanError ties a failure kind to the center it happened on and its cause.
type ScanError struct {
	Kind   error
	Center string
	Err    error
}

func (e *ScanError) Error() string {
	msg := e.Kind.Error()
	if e.Center != "" {
		msg = e.Center + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *ScanError) Is(target error) bool {
	return target == e.Kind
}

func newScanError(kind error, center string, err error) *ScanError {
	return &ScanError{Kind: kind, Center: center, Err: err}
}
