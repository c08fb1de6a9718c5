package model

import "fmt"

// OS represents a phone operating system
type OS string

const (
	OSAndroid OS = "Android"
	OSIOS     OS = "iOS"
)

// Feature is a shopping priority a phone can be tagged with and a user can ask for
type Feature string

const (
	FeatureCamera      Feature = "camera"
	FeatureBattery     Feature = "battery"
	FeaturePerformance Feature = "performance"
	FeatureDisplay     Feature = "display"
	FeatureCharging    Feature = "charging"
	FeatureCompact     Feature = "compact"
	FeatureGaming      Feature = "gaming"
)

// AllFeatures lists every feature in canonical order
var AllFeatures = []Feature{
	FeatureCamera,
	FeatureBattery,
	FeaturePerformance,
	FeatureDisplay,
	FeatureCharging,
	FeatureCompact,
	FeatureGaming,
}

// Phone represents a single catalog item.
// Identifying fields are always present; every spec pointer may be nil.
type Phone struct {
	ID    string `json:"id" db:"id" validate:"required"`
	Brand string `json:"brand" db:"brand" validate:"required"`
	Model string `json:"model" db:"model" validate:"required"`
	Price int    `json:"priceInr" db:"price_inr" validate:"gt=0"`
	OS    OS     `json:"os" db:"os" validate:"oneof=Android iOS"`

	RAMGB           *int      `json:"ramGb,omitempty" db:"ram_gb"`
	StorageGB       *int      `json:"storageGb,omitempty" db:"storage_gb"`
	DisplayInches   *float64  `json:"displayInches,omitempty" db:"display_inches"`
	RefreshRateHz   *int      `json:"refreshRateHz,omitempty" db:"refresh_rate_hz"`
	BatteryMAh      *int      `json:"batteryMah,omitempty" db:"battery_mah"`
	ChargingW       *int      `json:"chargingW,omitempty" db:"charging_w"`
	CameraPrimaryMP *int      `json:"cameraPrimaryMp,omitempty" db:"camera_primary_mp"`
	HasOIS          *bool     `json:"hasOis,omitempty" db:"has_ois"`
	Rating          *float64  `json:"rating,omitempty" db:"rating" validate:"omitempty,gte=0,lte=5"`
	Summary         *string   `json:"summary,omitempty" db:"summary"`
	Tags            []Feature `json:"tags,omitempty" db:"-" validate:"omitempty,dive,oneof=camera battery performance display charging compact gaming"`
}

// Title returns the display name used in cards, tables and name matching
func (p Phone) Title() string {
	return fmt.Sprintf("%s %s", p.Brand, p.Model)
}

// HasTag reports whether the phone carries the given feature tag
func (p Phone) HasTag(f Feature) bool {
	for _, t := range p.Tags {
		if t == f {
			return true
		}
	}
	return false
}

// RankedCandidate pairs a phone with its score for the current turn
type RankedCandidate struct {
	Phone   Phone    `json:"phone"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// PhonesOf unwraps ranked candidates, preserving order
func PhonesOf(candidates []RankedCandidate) []Phone {
	phones := make([]Phone, len(candidates))
	for i, c := range candidates {
		phones[i] = c.Phone
	}
	return phones
}

// IDsOf returns the ids of the given phones, preserving order
func IDsOf(phones []Phone) []string {
	ids := make([]string, len(phones))
	for i, p := range phones {
		ids[i] = p.ID
	}
	return ids
}
