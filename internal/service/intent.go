package service

import (
	"regexp"
	"strconv"
	"strings"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

// Budget patterns in precedence order; the first hit wins.
var (
	budgetRupeeK      = regexp.MustCompile(`(?:₹|\brs\.?|\binr)\s*(\d{1,3})\s*k\b`)
	budgetRupeeAmount = regexp.MustCompile(`(?:₹|\brs\.?|\binr)\s*([0-9][0-9,]*)`)
	budgetPlainK      = regexp.MustCompile(`\b(\d{1,3})\s*k\b`)
	budgetCeiling     = regexp.MustCompile(`\b(?:under|below|within|around|upto|up to|less than)\s+(\d{1,3}\s*k|\d{4,6})\b`)
	budgetKeyword     = regexp.MustCompile(`\bbudget\s+(\d{1,3}\s*k|\d{4,6})\b`)
)

// IntentParser extracts budget, brand, OS and feature constraints from free text.
// All extractors are keyword driven and run independently of each other.
type IntentParser struct {
	brands        []config.BrandAliases
	features      []config.FeatureKeyword
	os            config.OSKeywords
	minSubstrings int
}

// NewIntentParser creates a new intent parser over the given keyword tables
func NewIntentParser(patterns *config.Patterns) *IntentParser {
	return &IntentParser{
		brands:        patterns.Brands,
		features:      patterns.Features,
		os:            patterns.OS,
		minSubstrings: patterns.BrandMatching.MinSubstringAliasLength,
	}
}

// Parse extracts structured constraints from a natural language query
func (p *IntentParser) Parse(raw string) model.ParsedIntent {
	t := utils.Normalize(raw)
	return model.ParsedIntent{
		Raw:          raw,
		Budget:       parseBudget(t),
		Brands:       p.parseBrands(t),
		OSPreference: p.parseOS(t),
		Features:     p.parseFeatures(t),
	}
}

// parseBudget returns the budget ceiling in rupees, or nil when none is stated
func parseBudget(t string) *int {
	if m := budgetRupeeK.FindStringSubmatch(t); m != nil {
		if n, ok := positive(m[1], 1000); ok {
			return &n
		}
	}
	if m := budgetRupeeAmount.FindStringSubmatch(t); m != nil {
		if n, ok := positive(strings.ReplaceAll(m[1], ",", ""), 1); ok {
			return &n
		}
	}
	if m := budgetPlainK.FindStringSubmatch(t); m != nil {
		if n, ok := positive(m[1], 1000); ok {
			return &n
		}
	}
	for _, re := range []*regexp.Regexp{budgetCeiling, budgetKeyword} {
		if m := re.FindStringSubmatch(t); m != nil {
			if n, ok := parseAmount(m[1]); ok {
				return &n
			}
		}
	}
	return nil
}

// parseAmount converts "25k", "25 k" or "25000" into rupees
func parseAmount(s string) (int, bool) {
	s = strings.ReplaceAll(s, " ", "")
	if strings.HasSuffix(s, "k") {
		return positive(strings.TrimSuffix(s, "k"), 1000)
	}
	return positive(s, 1)
}

func positive(digits string, multiplier int) (int, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n * multiplier, true
}

// parseOS checks iOS keywords before Android so "apple" never reads as Android
func (p *IntentParser) parseOS(t string) *model.OS {
	if containsAnyNormalized(t, p.os.IOS) {
		os := model.OSIOS
		return &os
	}
	if containsAnyNormalized(t, p.os.Android) {
		os := model.OSAndroid
		return &os
	}
	return nil
}

// parseBrands returns matched brands de-duplicated in table order
func (p *IntentParser) parseBrands(t string) []string {
	var matched []string
	seen := make(map[string]bool)
	for _, b := range p.brands {
		if seen[b.Name] {
			continue
		}
		for _, alias := range b.Aliases {
			if p.aliasMatches(t, utils.Normalize(alias)) {
				matched = append(matched, b.Name)
				seen[b.Name] = true
				break
			}
		}
	}
	return matched
}

// aliasMatches treats aliases shorter than the configured minimum as whole tokens
func (p *IntentParser) aliasMatches(t, alias string) bool {
	if alias == "" {
		return false
	}
	if len([]rune(alias)) < p.minSubstrings {
		return utils.ContainsPhrase(t, alias)
	}
	return strings.Contains(t, alias)
}

func (p *IntentParser) parseFeatures(t string) []model.Feature {
	var matched []model.Feature
	seen := make(map[model.Feature]bool)
	for _, f := range p.features {
		feature := model.Feature(f.Name)
		if seen[feature] {
			continue
		}
		if containsAnyNormalized(t, f.Keywords) {
			matched = append(matched, feature)
			seen[feature] = true
		}
	}
	return matched
}

// containsAnyNormalized is utils.ContainsAny for text that is already normalized
func containsAnyNormalized(t string, needles []string) bool {
	for _, n := range needles {
		n = utils.Normalize(n)
		if n != "" && strings.Contains(t, n) {
			return true
		}
	}
	return false
}
