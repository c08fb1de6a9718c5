package service

import (
	"regexp"
	"strings"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

// Older clients embed the ids in the assistant text instead of meta
var catalogIDsMarker = regexp.MustCompile(`(?i)\[catalog_ids:([a-z0-9\-_,]+)\]`)

// ConversationResolver reads follow-up context out of the request history.
// It is the only place that knows about the legacy inline id marker.
type ConversationResolver struct {
	followUp []string
}

// NewConversationResolver creates a resolver over the given follow-up phrases
func NewConversationResolver(patterns *config.Patterns) *ConversationResolver {
	return &ConversationResolver{followUp: normalizeAll(patterns.FollowUp)}
}

// IsFollowUp reports whether text refers back to previously shown phones
func (r *ConversationResolver) IsFollowUp(text string) bool {
	return containsAnyNormalized(utils.Normalize(text), r.followUp)
}

// LastUsedCatalogIDs returns the ids grounding the newest assistant message that has any
func LastUsedCatalogIDs(history []model.ChatMessage) []string {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != model.RoleAssistant {
			continue
		}
		if m.Meta != nil && len(m.Meta.UsedCatalogIDs) > 0 {
			return cleanIDs(m.Meta.UsedCatalogIDs)
		}
		if match := catalogIDsMarker.FindStringSubmatch(m.Content); match != nil {
			if ids := cleanIDs(strings.Split(match[1], ",")); len(ids) > 0 {
				return ids
			}
		}
	}
	return nil
}

// LastUserMessage returns the trimmed content of the newest user message
func LastUserMessage(history []model.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return strings.TrimSpace(history[i].Content)
		}
	}
	return ""
}

// RecentHistory returns the last window messages with content capped at maxChars runes
func RecentHistory(history []model.ChatMessage, window, maxChars int) []model.ChatMessage {
	if window <= 0 || len(history) == 0 {
		return nil
	}
	start := len(history) - window
	if start < 0 {
		start = 0
	}

	out := make([]model.ChatMessage, 0, len(history)-start)
	for _, m := range history[start:] {
		content := strings.TrimSpace(catalogIDsMarker.ReplaceAllString(m.Content, ""))
		out = append(out, model.ChatMessage{
			Role:    m.Role,
			Content: utils.TruncateRunes(content, maxChars),
		})
	}
	return out
}

func cleanIDs(raw []string) []string {
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
