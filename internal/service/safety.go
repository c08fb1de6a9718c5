package service

import (
	"unicode/utf8"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

// SafetyClassifier decides whether a message may enter the shopping pipeline.
// Classes are checked in a fixed priority order and the first hit wins.
type SafetyClassifier struct {
	classes         []safetyClass
	shoppingSignals []string
	minLength       int
	offTopicReply   string
}

type safetyClass struct {
	reason   model.SafetyReason
	patterns []string
	reply    string
}

// NewSafetyClassifier creates a classifier over the given keyword tables
func NewSafetyClassifier(patterns *config.Patterns) *SafetyClassifier {
	s := patterns.Safety
	return &SafetyClassifier{
		classes: []safetyClass{
			{model.ReasonUnsafeRequest, s.Unsafe, s.Replies.UnsafeRequest},
			{model.ReasonPromptInjection, s.Injection, s.Replies.PromptInjection},
			{model.ReasonSecretsRequest, s.Secrets, s.Replies.SecretsRequest},
			{model.ReasonDefamationOrToxic, s.Defamation, s.Replies.DefamationOrToxic},
		},
		shoppingSignals: s.ShoppingSignals,
		minLength:       s.IrrelevantMinLength,
		offTopicReply:   s.Replies.Irrelevant,
	}
}

// Evaluate classifies a raw user message. Replies are canned and never echo the input.
func (c *SafetyClassifier) Evaluate(userText string) model.SafetyDecision {
	t := utils.Normalize(userText)

	for _, class := range c.classes {
		if containsAnyNormalized(t, class.patterns) {
			return model.Refuse(class.reason, class.reply)
		}
	}

	// Short messages like "hi" are let through even without shopping vocabulary
	if !containsAnyNormalized(t, c.shoppingSignals) && utf8.RuneCountInString(t) > c.minLength {
		return model.Refuse(model.ReasonIrrelevant, c.offTopicReply)
	}

	return model.Allow()
}
