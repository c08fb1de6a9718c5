package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"phoneadvisor/internal/config"
	"phoneadvisor/internal/model"
)

// Match reason constants
const (
	ReasonWithinBudget     = "Within budget"
	ReasonCloseToBudget    = "Makes good use of your budget"
	ReasonCameraFocus      = "Strong camera focus"
	ReasonHasOIS           = "Has OIS (stabilization)"
	ReasonBatteryExcellent = "Excellent battery size"
	ReasonBatteryGood      = "Good battery size"
	ReasonBatteryDecent    = "Decent battery size"
	ReasonChargingVeryFast = "Very fast charging"
	ReasonChargingFast     = "Fast charging"
	ReasonChargingStandard = "Standard charging"
	ReasonCompactSmall     = "Compact / one-hand friendly size"
	ReasonCompactManage    = "Relatively manageable size"
	ReasonDisplay120       = "120Hz smooth display"
	ReasonDisplayHigh      = "High refresh display"
	ReasonPerformance      = "Performance-oriented"
	ReasonGaming           = "Suitable for gaming (proxy)"
)

// DefaultCandidateLimit is used when a caller passes a non-positive limit
const DefaultCandidateLimit = 5

// Ranker filters and scores catalog items against a parsed intent
type Ranker struct {
	weights config.RankingConfig
}

// NewRanker creates a new ranker with the given scoring constants
func NewRanker(weights config.RankingConfig) *Ranker {
	return &Ranker{weights: weights}
}

// DefaultRankingConfig returns the stock scoring constants
func DefaultRankingConfig() config.RankingConfig {
	return config.RankingConfig{
		BudgetMatch:        10,
		BudgetClosenessMax: 3,
		OSMatch:            4,
		CameraTag:          6,
		CameraOIS:          2,
		BatteryTiers:       [3]float64{6, 4, 2},
		ChargingTiers:      [3]float64{6, 4, 2},
		CompactTiers:       [2]float64{6, 3},
		DisplayTiers:       [2]float64{4, 2},
		PerformanceTag:     4,
		GamingExtra:        2,
		RatingMax:          3,
	}
}

// Rank applies the hard filters, scores the survivors and returns at most limit candidates.
// Ties keep catalog order.
func (r *Ranker) Rank(items []model.Phone, intent model.ParsedIntent, limit int) []model.RankedCandidate {
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	filtered := FilterPhones(items, intent)

	results := make([]model.RankedCandidate, 0, len(filtered))
	for _, phone := range filtered {
		score, reasons := r.score(phone, intent)
		results = append(results, model.RankedCandidate{
			Phone:   phone,
			Score:   score,
			Reasons: reasons,
		})
	}

	// Sort by score descending
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// FilterPhones keeps only phones satisfying every hard constraint of the intent
func FilterPhones(items []model.Phone, intent model.ParsedIntent) []model.Phone {
	var allowedBrands map[string]bool
	if len(intent.Brands) > 0 {
		allowedBrands = make(map[string]bool, len(intent.Brands))
		for _, b := range intent.Brands {
			allowedBrands[strings.ToLower(b)] = true
		}
	}

	out := make([]model.Phone, 0, len(items))
	for _, p := range items {
		if intent.Budget != nil && p.Price > *intent.Budget {
			continue
		}
		if allowedBrands != nil && !allowedBrands[strings.ToLower(p.Brand)] {
			continue
		}
		if intent.OSPreference != nil && p.OS != *intent.OSPreference {
			continue
		}
		out = append(out, p)
	}
	return out
}

// score sums the independent signals, recording one reason per contribution
func (r *Ranker) score(p model.Phone, intent model.ParsedIntent) (float64, []string) {
	w := r.weights
	score := 0.0
	reasons := []string{}

	add := func(points float64, reason string) {
		score += points
		reasons = append(reasons, reason)
	}

	if intent.Budget != nil && *intent.Budget > 0 && p.Price <= *intent.Budget {
		add(w.BudgetMatch, ReasonWithinBudget)
		budget := float64(*intent.Budget)
		closeness := 1 - (budget-float64(p.Price))/budget
		if bonus := clamp(closeness*w.BudgetClosenessMax, 0, w.BudgetClosenessMax); bonus > 0 {
			add(bonus, ReasonCloseToBudget)
		}
	}

	if intent.OSPreference != nil && p.OS == *intent.OSPreference {
		add(w.OSMatch, fmt.Sprintf("Matches OS preference (%s)", *intent.OSPreference))
	}

	for _, f := range intent.Features {
		switch f {
		case model.FeatureCamera:
			if p.HasTag(model.FeatureCamera) {
				add(w.CameraTag, ReasonCameraFocus)
			}
			if p.HasOIS != nil && *p.HasOIS {
				add(w.CameraOIS, ReasonHasOIS)
			}

		case model.FeatureBattery:
			if p.BatteryMAh == nil {
				continue
			}
			switch mah := *p.BatteryMAh; {
			case mah >= 5500:
				add(w.BatteryTiers[0], ReasonBatteryExcellent)
			case mah >= 5000:
				add(w.BatteryTiers[1], ReasonBatteryGood)
			case mah >= 4500:
				add(w.BatteryTiers[2], ReasonBatteryDecent)
			}

		case model.FeatureCharging:
			if p.ChargingW == nil {
				continue
			}
			switch watts := *p.ChargingW; {
			case watts >= 80:
				add(w.ChargingTiers[0], ReasonChargingVeryFast)
			case watts >= 33:
				add(w.ChargingTiers[1], ReasonChargingFast)
			case watts >= 18:
				add(w.ChargingTiers[2], ReasonChargingStandard)
			}

		case model.FeatureCompact:
			if p.DisplayInches == nil {
				continue
			}
			switch inches := *p.DisplayInches; {
			case inches <= 6.2:
				add(w.CompactTiers[0], ReasonCompactSmall)
			case inches <= 6.5:
				add(w.CompactTiers[1], ReasonCompactManage)
			}

		case model.FeatureDisplay:
			if p.RefreshRateHz == nil {
				continue
			}
			switch hz := *p.RefreshRateHz; {
			case hz >= 120:
				add(w.DisplayTiers[0], ReasonDisplay120)
			case hz >= 90:
				add(w.DisplayTiers[1], ReasonDisplayHigh)
			}

		case model.FeaturePerformance, model.FeatureGaming:
			// No chipset data in the catalog, so the performance tag is the proxy
			if !p.HasTag(model.FeaturePerformance) {
				continue
			}
			add(w.PerformanceTag, ReasonPerformance)
			if f == model.FeatureGaming {
				add(w.GamingExtra, ReasonGaming)
			}
		}
	}

	if p.Rating != nil {
		if bonus := clamp((*p.Rating-3.5)*2, 0, w.RatingMax); bonus > 0 {
			add(bonus, fmt.Sprintf("Highly rated (%.1f/5)", *p.Rating))
		}
	}

	return score, reasons
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
