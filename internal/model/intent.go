package model

// ParsedIntent represents the constraints extracted from one user message.
// Every field is optional; absence means unconstrained.
type ParsedIntent struct {
	Raw          string    `json:"raw"`
	Budget       *int      `json:"budgetInr,omitempty"`
	Brands       []string  `json:"brandIncludes,omitempty"`
	OSPreference *OS       `json:"osPreference,omitempty"`
	Features     []Feature `json:"features,omitempty"`
}

// HasFeature reports whether the intent asks for the given feature
func (i ParsedIntent) HasFeature(f Feature) bool {
	for _, x := range i.Features {
		if x == f {
			return true
		}
	}
	return false
}

// SafetyReason enumerates why a message was refused
type SafetyReason string

const (
	ReasonUnsafeRequest     SafetyReason = "unsafe_request"
	ReasonPromptInjection   SafetyReason = "prompt_injection"
	ReasonSecretsRequest    SafetyReason = "secrets_request"
	ReasonDefamationOrToxic SafetyReason = "defamation_or_toxic"
	ReasonIrrelevant        SafetyReason = "irrelevant"
)

// SafetyDecision is either an allow (Refused false) or a refusal with a canned reply
type SafetyDecision struct {
	Refused   bool         `json:"refused"`
	Reason    SafetyReason `json:"reason,omitempty"`
	SafeReply string       `json:"safeReply,omitempty"`
}

// Allow is the decision for messages that pass every safety class
func Allow() SafetyDecision {
	return SafetyDecision{}
}

// Refuse builds a refusal decision
func Refuse(reason SafetyReason, safeReply string) SafetyDecision {
	return SafetyDecision{Refused: true, Reason: reason, SafeReply: safeReply}
}
