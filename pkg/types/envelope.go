package types

// Envelope wraps every successful API payload under "data".
type Envelope[T any] struct {
	Data T `json:"data"`
}

// SuccessEnvelope is what handlers write; clients decode into a typed Envelope.
type SuccessEnvelope = Envelope[any]

// APIError is the body of every failed request. RequestID echoes the
// X-Request-Id header so a client report can be matched to server logs.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
