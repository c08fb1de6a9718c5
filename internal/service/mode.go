package service

import (
	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

// ModeClassifier infers the kind of answer a message asks for
type ModeClassifier struct {
	explain    []string
	compare    []string
	singlePick []string
}

// NewModeClassifier creates a classifier over the given keyword tables
func NewModeClassifier(patterns *config.Patterns) *ModeClassifier {
	return &ModeClassifier{
		explain:    normalizeAll(patterns.Modes.Explain),
		compare:    normalizeAll(patterns.Modes.Compare),
		singlePick: normalizeAll(patterns.Modes.SinglePick),
	}
}

// Infer returns explain, compare or recommend. Explain phrasing wins over compare phrasing.
func (m *ModeClassifier) Infer(text string) model.ChatMode {
	t := utils.Normalize(text)
	switch {
	case containsAnyPhrase(t, m.explain):
		return model.ModeExplain
	case containsAnyPhrase(t, m.compare):
		return model.ModeCompare
	default:
		return model.ModeRecommend
	}
}

// WantsSinglePick reports whether the user asked for exactly one suggestion
func (m *ModeClassifier) WantsSinglePick(text string) bool {
	return containsAnyPhrase(utils.Normalize(text), m.singlePick)
}

func containsAnyPhrase(t string, phrases []string) bool {
	for _, p := range phrases {
		if utils.ContainsPhrase(t, p) {
			return true
		}
	}
	return false
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := utils.Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}
