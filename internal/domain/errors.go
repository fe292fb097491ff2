package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrVerificationFailed signals that an auth token was supplied but the
	// membership service could not confirm it. Callers must refuse the whole
	// request rather than fall back to client-asserted data.
	ErrVerificationFailed = errors.New("membership verification failed")

	// ErrUpstreamUnreachable signals a transport-level failure talking to the
	// chat completion provider.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrMalformedUpstreamResponse signals a 2xx upstream response missing the
	// expected completion text.
	ErrMalformedUpstreamResponse = errors.New("malformed upstream response")
)

// QuotaExceededError rejects a chat request whose pre-increment counter has
// already reached the plan cap.
type QuotaExceededError struct {
	Used   int
	Cap    int
	Period Period
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %d/%d (%s)", e.Used, e.Cap, e.Period)
}

// UpstreamError carries the status and body of a non-success upstream
// response. There is no retry; it propagates to the request boundary.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}
