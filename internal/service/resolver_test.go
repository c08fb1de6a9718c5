package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoneadvisor/internal/model"
)

func TestExtractVsPair(t *testing.T) {
	tests := []struct {
		input string
		want  VsPair
		ok    bool
	}{
		{"Pixel 8a vs Galaxy A55 5G", VsPair{Left: "Pixel 8a", Right: "Galaxy A55 5G"}, true},
		{"iPhone 15 versus OnePlus 12R", VsPair{Left: "iPhone 15", Right: "OnePlus 12R"}, true},
		{"a55   VS \t 12r", VsPair{Left: "a55", Right: "12r"}, true},
		{"canvas case for pixel", VsPair{}, false},
		{"compare pixel and oneplus", VsPair{}, false},
		{"vs 12r", VsPair{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ExtractVsPair(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveByName(t *testing.T) {
	phones := fixturePhones()

	tests := []struct {
		name   string
		query  string
		wantID string
	}{
		{"full title", "Google Pixel 8a", "pixel-8a"},
		{"model only", "pixel 8a", "pixel-8a"},
		{"model with noise", "the galaxy a55 5g please", "samsung-a55"},
		{"short model", "12R", "oneplus-12r"},
		{"iphone", "iPhone 15", "apple-iphone-15"},
		{"brand only", "samsung", ""},
		{"unknown", "nokia 3310", ""},
		{"blank", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveByName(phones, tt.query)
			if tt.wantID == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestResolvePair(t *testing.T) {
	phones := fixturePhones()

	got, ok := ResolvePair(phones, VsPair{Left: "pixel 8a", Right: "oneplus 12r"})
	require.True(t, ok)
	assert.Equal(t, []string{"pixel-8a", "oneplus-12r"}, model.IDsOf(got))

	got, ok = ResolvePair(phones, VsPair{Left: "oneplus 12r", Right: "pixel 8a"})
	require.True(t, ok)
	assert.Equal(t, []string{"oneplus-12r", "pixel-8a"}, model.IDsOf(got))

	_, ok = ResolvePair(phones, VsPair{Left: "pixel 8a", Right: "google pixel 8a"})
	assert.False(t, ok, "both sides name the same phone")

	_, ok = ResolvePair(phones, VsPair{Left: "samsung", Right: "pixel 8a"})
	assert.False(t, ok, "a bare brand does not resolve")

	_, ok = ResolvePair(phones, VsPair{Left: "pixel 8a", Right: "nokia"})
	assert.False(t, ok)
}
