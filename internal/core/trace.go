package core

// ConditionResult captures the outcome of one condition node for
// explainability. Logic nodes carry a Label and Children; leaves carry the
// rendered Expression and an optional Reason on mismatch.
type ConditionResult struct {
	Matched bool `json:"matched"`

	// For leaves
	Expression string `json:"expression,omitempty"` // e.g. "location in [US CA]"
	Reason     string `json:"reason,omitempty"`

	// For branching
	Label    string            `json:"label,omitempty"` // e.g. "AND"
	Children []ConditionResult `json:"children,omitempty"`
}

// PolicyResult captures why a specific policy applied or not.
type PolicyResult struct {
	PolicyID    string `json:"policy_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Enabled mirrors the policy flag; disabled policies are shown in the
	// trace but can never apply.
	Enabled bool `json:"enabled"`

	// Matched is true when the condition tree was satisfied.
	Matched bool `json:"matched"`

	// Applied is Enabled && Matched: the policy contributed its effect.
	Applied bool `json:"applied"`

	Effect           Effect            `json:"effect"`
	ConditionResults []ConditionResult `json:"condition_results,omitempty"`
}

// EvaluationTrace is the detailed trail of evaluating one request against
// one policy set.
type EvaluationTrace struct {
	// CorrelationID identifies the evaluation request, if any.
	CorrelationID string `json:"correlation_id,omitempty"`

	RequestID  string       `json:"request_id"`
	Resource   string       `json:"resource,omitempty"`
	PolicySet  string       `json:"policy_set"`
	Attributes AttributeSet `json:"attributes"`

	// PolicyResults contains the result of every policy evaluated, in set order.
	PolicyResults []PolicyResult `json:"policy_results"`

	// Decision is the combined final decision.
	Decision Decision `json:"decision"`
}
