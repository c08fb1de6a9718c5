package service

import (
	"fmt"
	"strconv"
	"strings"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
	"phoneadvisor/internal/utils"
)

// maxFallbackProducts bounds cards and comparison columns built without the model
const maxFallbackProducts = 3

const (
	notListed = "not listed"
	notAvail  = "N/A"
)

// Canned messages shared by the fallback and recovery paths
const (
	MessageEmptyInput   = "Please type a phone-related question (budget, brand, camera, battery etc.)."
	MessageNoMatch      = "I couldn't find a match in the current catalog. Try increasing your budget, removing brand filters, or tell me your top priority (camera/battery/performance/compact)."
	MessageServerError  = "Server error. Please try again."
	messageRecommend    = "Here are the best matches from our catalog."
	messageCompare      = "Here's a comparison from our catalog."
	messageDetailFormat = "Here are the details for %s from our catalog."
)

// FallbackSynthesizer builds catalog-grounded answers without calling any model.
// It is pure: the same input always produces the same envelope.
type FallbackSynthesizer struct {
	topics  []config.ExplainTopic
	generic string
}

// NewFallbackSynthesizer creates a synthesizer using the canned explanations in patterns
func NewFallbackSynthesizer(patterns *config.Patterns) *FallbackSynthesizer {
	return &FallbackSynthesizer{
		topics:  patterns.ExplainTopics,
		generic: patterns.ExplainGeneric,
	}
}

// Synthesize answers in the requested mode using only the given candidates
func (f *FallbackSynthesizer) Synthesize(mode model.ChatMode, userMessage string, candidates []model.Phone) model.ChatResponse {
	if len(candidates) == 1 {
		return DetailResponse(candidates[0])
	}

	switch mode {
	case model.ModeExplain:
		return model.ChatResponse{
			Mode:           model.ModeExplain,
			Message:        f.explain(userMessage),
			UsedCatalogIDs: []string{},
		}
	case model.ModeCompare:
		if len(candidates) >= 2 {
			return CompareResponse(candidates)
		}
	default:
		if len(candidates) > 0 {
			top := firstN(candidates, maxFallbackProducts)
			return model.ChatResponse{
				Mode:           model.ModeRecommend,
				Message:        messageRecommend,
				Products:       cardsOf(top),
				UsedCatalogIDs: model.IDsOf(top),
			}
		}
	}

	return model.ChatResponse{
		Mode:           model.ModeClarify,
		Message:        MessageNoMatch,
		UsedCatalogIDs: []string{},
	}
}

// explain picks the first canned topic whose keyword appears in the message
func (f *FallbackSynthesizer) explain(userMessage string) string {
	t := utils.Normalize(userMessage)
	for _, topic := range f.topics {
		if containsAnyPhrase(t, normalizeAll(topic.Keywords)) {
			return strings.TrimSpace(topic.Text)
		}
	}
	return strings.TrimSpace(f.generic)
}

// DetailResponse is the single-phone card listing every known spec
func DetailResponse(p model.Phone) model.ChatResponse {
	highlights := []string{
		"Price: " + utils.FormatINR(p.Price),
		"OS: " + string(p.OS),
		"RAM: " + formatInt(p.RAMGB, "GB", notListed),
		"Storage: " + formatInt(p.StorageGB, "GB", notListed),
		"Display: " + formatInches(p.DisplayInches, notListed),
		"Refresh rate: " + formatInt(p.RefreshRateHz, "Hz", notListed),
		"Battery: " + formatInt(p.BatteryMAh, " mAh", notListed),
		"Charging: " + formatInt(p.ChargingW, "W", notListed),
		"Primary camera: " + formatInt(p.CameraPrimaryMP, "MP", notListed),
		"OIS: " + formatBool(p.HasOIS, notListed),
		"Rating: " + formatRating(p.Rating),
	}
	if p.Summary != nil && *p.Summary != "" {
		highlights = append(highlights, *p.Summary)
	}

	return model.ChatResponse{
		Mode:    model.ModeRecommend,
		Message: fmt.Sprintf(messageDetailFormat, p.Title()),
		Products: []model.ProductCard{{
			ID:         p.ID,
			Title:      p.Title(),
			Price:      p.Price,
			Highlights: highlights,
		}},
		UsedCatalogIDs: []string{p.ID},
	}
}

// CompareResponse builds the fixed-row table over at most three phones
func CompareResponse(phones []model.Phone) model.ChatResponse {
	top := firstN(phones, maxFallbackProducts)

	headers := make([]string, len(top))
	for i, p := range top {
		headers[i] = p.Title()
	}

	row := func(label string, value func(model.Phone) string) model.ComparisonRow {
		values := make([]string, len(top))
		for i, p := range top {
			values[i] = value(p)
		}
		return model.ComparisonRow{Label: label, Values: values}
	}

	return model.ChatResponse{
		Mode:     model.ModeCompare,
		Message:  messageCompare,
		Products: cardsOf(top),
		Comparison: &model.Comparison{
			ProductIDs: model.IDsOf(top),
			Headers:    headers,
			Rows: []model.ComparisonRow{
				row("Price", func(p model.Phone) string { return utils.FormatINR(p.Price) }),
				row("OS", func(p model.Phone) string { return string(p.OS) }),
				row("Display", func(p model.Phone) string { return formatInches(p.DisplayInches, notAvail) }),
				row("Refresh Rate", func(p model.Phone) string { return formatInt(p.RefreshRateHz, "Hz", notAvail) }),
				row("Battery", func(p model.Phone) string { return formatInt(p.BatteryMAh, " mAh", notAvail) }),
				row("Charging", func(p model.Phone) string { return formatInt(p.ChargingW, "W", notAvail) }),
				row("OIS", func(p model.Phone) string { return formatBool(p.HasOIS, notAvail) }),
			},
		},
		UsedCatalogIDs: model.IDsOf(top),
	}
}

// ProductCardOf renders the short card used in recommendation lists
func ProductCardOf(p model.Phone) model.ProductCard {
	summary := "Option from our catalog"
	if p.Summary != nil && *p.Summary != "" {
		summary = *p.Summary
	}

	ois := "OIS not listed in our catalog"
	if p.HasOIS != nil && *p.HasOIS {
		ois = "OIS available"
	}

	battery := "Battery not listed"
	if p.BatteryMAh != nil {
		battery = fmt.Sprintf("Battery: %d mAh", *p.BatteryMAh)
	}

	charging := "Charging not listed"
	if p.ChargingW != nil {
		charging = fmt.Sprintf("Charging: %dW", *p.ChargingW)
	}

	return model.ProductCard{
		ID:         p.ID,
		Title:      p.Title(),
		Price:      p.Price,
		Highlights: []string{summary, ois, battery, charging},
	}
}

func cardsOf(phones []model.Phone) []model.ProductCard {
	cards := make([]model.ProductCard, len(phones))
	for i, p := range phones {
		cards[i] = ProductCardOf(p)
	}
	return cards
}

func firstN(phones []model.Phone, n int) []model.Phone {
	if len(phones) > n {
		return phones[:n]
	}
	return phones
}

func formatInt(v *int, unit, missing string) string {
	if v == nil {
		return missing
	}
	return strconv.Itoa(*v) + unit
}

func formatInches(v *float64, missing string) string {
	if v == nil {
		return missing
	}
	return strconv.FormatFloat(*v, 'f', -1, 64) + `"`
}

func formatBool(v *bool, missing string) string {
	switch {
	case v == nil:
		return missing
	case *v:
		return "Yes"
	default:
		return "No"
	}
}

func formatRating(v *float64) string {
	if v == nil {
		return notListed
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "/5"
}
