// Package types holds the wire shapes shared by every API response.
package types

// SuccessEnvelope wraps successful payloads so clients always unwrap `data`.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps an APIError so errors are distinguishable from data
// at the top level of the body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// APIError is the client-facing error shape. Code is one of the stable
// error-code strings; Details carries field-level validation context when
// exposing it is safe.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}
