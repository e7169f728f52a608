// Package apierr holds the error types shared by the inverter and PVOutput clients.
package apierr

import (
	"fmt"
)

// UpstreamError is a non-success response from a remote API
type UpstreamError struct {
	Service    string // "fronius" or "pvoutput"
	URL        string
	StatusCode int
	Body       string
	Payload    string // request payload, if any
}

func (e *UpstreamError) Error() string {
	if e.Payload != "" {
		return fmt.Sprintf("%s: %s returned status %d: %s (payload: %s)", e.Service, e.URL, e.StatusCode, e.Body, e.Payload)
	}
	return fmt.Sprintf("%s: %s returned status %d: %s", e.Service, e.URL, e.StatusCode, e.Body)
}

// ParseError means a response did not carry the expected fields.
// Callers treat it as "no data" rather than a failed request.
type ParseError struct {
	Service string
	Channel string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parsing %s response: %v", e.Service, e.Channel, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
