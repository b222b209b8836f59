package retry

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Kind is the classification of a failed external call.
type Kind int

const (
	Fatal Kind = iota
	RateLimit
	Capacity
	Unavailable
	Timeout
	Connection
)

func (k Kind) String() string {
	switch k {
	case RateLimit:
		return "rate_limit"
	case Capacity:
		return "capacity"
	case Unavailable:
		return "unavailable"
	case Timeout:
		return "timeout"
	case Connection:
		return "connection"
	default:
		return "fatal"
	}
}

// Retriable reports whether a failure of this kind is worth another attempt.
func (k Kind) Retriable() bool {
	return k != Fatal
}

// Classifier maps an error to its kind.
type Classifier func(err error) Kind

// markers are matched against the lower cased error message, in order.
var markers = []struct {
	kind    Kind
	phrases []string
}{
	{RateLimit, []string{"rate limit", "ratelimit", "too many requests", "429"}},
	{Capacity, []string{"token limit", "tokens", "quota"}},
	{Unavailable, []string{"503", "service unavailable", "overloaded"}},
	{Timeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{Connection, []string{"connection refused", "connection reset", "connection error", "broken pipe", "no such host", "unexpected eof"}},
}

// Classify inspects the error message for markers of rate limiting, capacity
// exhaustion, unavailability, timeouts and connection failures. Everything else is Fatal.
// Cancellation by the caller is always Fatal.
func Classify(err error) Kind {
	if err == nil {
		return Fatal
	}
	if errors.Is(err, context.Canceled) {
		return Fatal
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Connection
	}

	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		for _, phrase := range m.phrases {
			if strings.Contains(msg, phrase) {
				return m.kind
			}
		}
	}
	return Fatal
}

// IsRetriable reports whether err would be retried by the default classifier.
func IsRetriable(err error) bool {
	return Classify(err).Retriable()
}
