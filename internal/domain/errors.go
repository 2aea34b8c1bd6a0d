package domain

import "errors"

var (
	// ErrUpstreamUnavailable covers transport failures, timeouts, TLS
	// handshake errors and non-2xx responses from a remote endpoint.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMalformedResponse means the payload arrived but could not be
	// decoded into the required fields. Never retried.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrIOFailure is a local filesystem failure while writing a report.
	ErrIOFailure = errors.New("io failure")
)
