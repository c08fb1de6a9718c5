package service

import (
	"regexp"
	"strings"

	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

var vsPairPattern = regexp.MustCompile(`(?i)(.+?)\s+(?:vs|versus)\s+(.+)`)

// Name match weights; a phone must reach nameMatchThreshold to be returned
const (
	nameScoreExact        = 100
	nameScoreContainsFull = 70
	nameScoreModel        = 50
	nameScoreBrand        = 10
	nameMatchThreshold    = 30
)

// VsPair is the two free-text sides of an "A vs B" question
type VsPair struct {
	Left  string
	Right string
}

// ExtractVsPair splits text on its first "vs" or "versus" separator
func ExtractVsPair(text string) (VsPair, bool) {
	t := strings.Join(strings.Fields(text), " ")
	m := vsPairPattern.FindStringSubmatch(t)
	if m == nil {
		return VsPair{}, false
	}
	left, right := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	if left == "" || right == "" {
		return VsPair{}, false
	}
	return VsPair{Left: left, Right: right}, true
}

// ResolveByName returns the catalog item best matching a free-text name.
// Ties keep catalog order; weak matches such as a bare brand are rejected.
func ResolveByName(items []model.Phone, name string) (model.Phone, bool) {
	q := utils.Normalize(name)
	if q == "" {
		return model.Phone{}, false
	}

	best, bestScore := -1, 0
	for i, p := range items {
		if s := nameMatchScore(p, q); s > bestScore {
			best, bestScore = i, s
		}
	}

	if best < 0 || bestScore < nameMatchThreshold {
		return model.Phone{}, false
	}
	return items[best], true
}

func nameMatchScore(p model.Phone, q string) int {
	full := utils.Normalize(p.Title())
	modelName := utils.Normalize(p.Model)
	brand := utils.Normalize(p.Brand)

	score := 0
	if q == full {
		score += nameScoreExact
	}
	if strings.Contains(q, full) {
		score += nameScoreContainsFull
	}
	if modelName != "" && strings.Contains(q, modelName) {
		score += nameScoreModel
	}
	if brand != "" && strings.Contains(q, brand) {
		score += nameScoreBrand
	}
	return score
}

// ResolvePair resolves both sides of a vs question to two distinct catalog items
func ResolvePair(items []model.Phone, pair VsPair) ([]model.Phone, bool) {
	left, ok := ResolveByName(items, pair.Left)
	if !ok {
		return nil, false
	}
	right, ok := ResolveByName(items, pair.Right)
	if !ok || right.ID == left.ID {
		return nil, false
	}
	return []model.Phone{left, right}, true
}
