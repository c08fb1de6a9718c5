package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// Patterns holds every keyword table the turn pipeline matches against.
// It is loaded once at startup and never mutated afterwards.
type Patterns struct {
	Safety         SafetyPatterns   `yaml:"safety"`
	Brands         []BrandAliases   `yaml:"brands" validate:"required,min=1,dive"`
	BrandMatching  BrandMatching    `yaml:"brand_matching"`
	Features       []FeatureKeyword `yaml:"features" validate:"required,min=1,dive"`
	OS             OSKeywords       `yaml:"os"`
	FollowUp       []string         `yaml:"follow_up" validate:"required,min=1,dive,required"`
	Modes          ModeKeywords     `yaml:"modes"`
	ExplainTopics  []ExplainTopic   `yaml:"explain_topics" validate:"dive"`
	ExplainGeneric string           `yaml:"explain_generic" validate:"required"`
}

// SafetyPatterns are the ordered refusal classes plus the off-topic heuristic
type SafetyPatterns struct {
	Unsafe              []string      `yaml:"unsafe" validate:"required,min=1,dive,required"`
	Injection           []string      `yaml:"injection" validate:"required,min=1,dive,required"`
	Secrets             []string      `yaml:"secrets" validate:"required,min=1,dive,required"`
	Defamation          []string      `yaml:"defamation" validate:"required,min=1,dive,required"`
	ShoppingSignals     []string      `yaml:"shopping_signals" validate:"required,min=1,dive,required"`
	IrrelevantMinLength int           `yaml:"irrelevant_min_length" validate:"gte=0"`
	Replies             SafetyReplies `yaml:"replies"`
}

// SafetyReplies holds the canned reply for every refusal reason
type SafetyReplies struct {
	UnsafeRequest     string `yaml:"unsafe_request" validate:"required"`
	PromptInjection   string `yaml:"prompt_injection" validate:"required"`
	SecretsRequest    string `yaml:"secrets_request" validate:"required"`
	DefamationOrToxic string `yaml:"defamation_or_toxic" validate:"required"`
	Irrelevant        string `yaml:"irrelevant" validate:"required"`
}

// BrandAliases maps a canonical brand to its lexical variants
type BrandAliases struct {
	Name    string   `yaml:"name" validate:"required"`
	Aliases []string `yaml:"aliases" validate:"required,min=1,dive,required"`
}

// BrandMatching tunes how short aliases are matched
type BrandMatching struct {
	MinSubstringAliasLength int `yaml:"min_substring_alias_length" validate:"gte=0"`
}

// FeatureKeyword maps a feature tag to the words that request it
type FeatureKeyword struct {
	Name     string   `yaml:"name" validate:"required,oneof=camera battery performance display charging compact gaming"`
	Keywords []string `yaml:"keywords" validate:"required,min=1,dive,required"`
}

// OSKeywords lists the words that signal an OS preference
type OSKeywords struct {
	IOS     []string `yaml:"ios" validate:"required,min=1,dive,required"`
	Android []string `yaml:"android" validate:"required,min=1,dive,required"`
}

// ModeKeywords drives answer-mode inference and single-pick detection
type ModeKeywords struct {
	Explain    []string `yaml:"explain" validate:"required,min=1"`
	Compare    []string `yaml:"compare" validate:"required,min=1"`
	SinglePick []string `yaml:"single_pick" validate:"required,min=1"`
}

// ExplainTopic is a canned explanation selected by keyword
type ExplainTopic struct {
	Keywords []string `yaml:"keywords" validate:"required,min=1"`
	Text     string   `yaml:"text" validate:"required"`
}

// LoadPatterns reads the pattern tables from path, or the built-in tables when path is empty
func LoadPatterns(path string) (*Patterns, error) {
	data := defaultPatterns
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read patterns file: %w", err)
		}
		data = b
	}
	return ParsePatterns(data)
}

// DefaultPatterns returns the built-in pattern tables
func DefaultPatterns() *Patterns {
	p, err := ParsePatterns(defaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("built-in patterns are invalid: %v", err))
	}
	return p
}

// ParsePatterns decodes and validates YAML pattern tables
func ParsePatterns(data []byte) (*Patterns, error) {
	var p Patterns
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse patterns: %w", err)
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid patterns: %w", err)
	}
	return &p, nil
}
