package core

// AttributeSet is a user+context snapshot at evaluation time. It is built
// once per request by flattening the user's static attributes with the
// scenario's dynamic attributes and is never mutated afterwards.
type AttributeSet map[string]any

// MergeAttributes flattens static user attributes with per-scenario context
// attributes into one set. Context attributes win on collision.
func MergeAttributes(user, context AttributeSet) AttributeSet {
	merged := make(AttributeSet, len(user)+len(context))
	for k, v := range user {
		merged[k] = v
	}
	for k, v := range context {
		merged[k] = v
	}
	return merged
}

// AccessRequest is one simulated access attempt: a resource plus the
// flattened attribute snapshot. Constructed once per simulation case.
type AccessRequest struct {
	// ID identifies the request within a batch (e.g. "alice@office-hours").
	ID string `json:"id"`

	// Resource being accessed.
	Resource string `json:"resource"`

	// Attributes is the flattened user+context snapshot.
	Attributes AttributeSet `json:"attributes"`

	// InvalidReason is set when the attribute set failed schema validation.
	// Such requests still produce a Decision (fail-closed Block), the batch
	// continues, and the reason surfaces as a warning on the decision pair.
	InvalidReason string `json:"invalid_reason,omitempty"`
}

// Invalid reports whether the request's attributes failed validation.
func (r *AccessRequest) Invalid() bool {
	return r.InvalidReason != ""
}
