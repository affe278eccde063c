package doh

import (
	"fmt"
)

// Kind classifies a TransportError.
type Kind int

const (
	// KindNetwork covers failures before a response arrives: DNS, dial, TLS, timeouts.
	KindNetwork Kind = iota
	// KindStatus means the upstream answered with a non-2xx HTTP status.
	KindStatus
	// KindBody means the response body could not be read or exceeded the DNS message limit.
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindStatus:
		return "status"
	case KindBody:
		return "body"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// TransportError reports a failed exchange with a DoH upstream.
type TransportError struct {
	Kind       Kind
	URL        string
	StatusCode int // set for KindStatus
	Err        error
}

func (e *TransportError) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("doh %s: upstream returned HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("doh %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
