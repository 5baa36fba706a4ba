package certkit

import (
	"errors"
	"fmt"
)

// ErrNoCertificates indicates that no valid certificate set is cached:
// nothing was ever fetched, or the cached set has expired. It points at
// missing setup rather than a bad token and is never swallowed.
var ErrNoCertificates = errors.New("certkit: no certificates cached")

// ErrCertificateNotFound indicates the cache is populated but holds no
// certificate for the requested key id.
var ErrCertificateNotFound = errors.New("certkit: certificate not found")

// RequestError reports a non-200 response from the certificate endpoint.
type RequestError struct {
	StatusCode int
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("certkit: certificate request failed with status %d", e.StatusCode)
}

// TTLError reports a fetch that advertised an implausibly short certificate
// lifetime. A MaxAge of 0 means the cache-control max-age directive was
// missing or unparsable.
type TTLError struct {
	MaxAge int
}

func (e *TTLError) Error() string {
	if e.MaxAge == 0 {
		return "certkit: certificate response has no usable cache-control max-age"
	}
	return fmt.Sprintf("certkit: certificate ttl too low: max-age=%d, need more than %d", e.MaxAge, MinTTLSeconds)
}
