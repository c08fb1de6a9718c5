package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoneadvisor/internal/model"
)

func TestBuildGroundingPayload(t *testing.T) {
	bare := model.Phone{ID: "bare-1", Brand: "Vivo", Model: "T3", Price: 19999, OS: model.OSAndroid}
	history := []model.ChatMessage{user("samsung under 20k"), assistant("Here you go", "samsung-m14")}

	payload := BuildGroundingPayload("tell me more", model.ModeRecommend, history, []model.Phone{mustPhone("samsung-m14"), bare})

	rendered, err := payload.Render()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))

	assert.Equal(t, "tell me more", decoded["userQuery"])
	assert.Equal(t, "recommend", decoded["modeHint"])

	hist := decoded["history"].([]any)
	require.Len(t, hist, 2)
	assert.Equal(t, map[string]any{"role": "assistant", "content": "Here you go"}, hist[1])

	facts := decoded["catalogFacts"].([]any)
	require.Len(t, facts, 2)

	first := facts[0].(map[string]any)
	assert.Equal(t, "samsung-m14", first["id"])
	assert.Equal(t, "Samsung Galaxy M14 5G", first["name"])
	assert.Equal(t, float64(13990), first["price"])
	assert.Equal(t, false, first["hasOis"])

	second := facts[1].(map[string]any)
	assert.Contains(t, second, "batteryMah", "missing specs are sent as null")
	assert.Nil(t, second["batteryMah"])
	assert.Equal(t, []any{}, second["tags"])
}

func TestBuildGroundingPayload_Empty(t *testing.T) {
	rendered, err := BuildGroundingPayload("what is ois", model.ModeExplain, nil, nil).Render()
	require.NoError(t, err)
	assert.Contains(t, rendered, `"catalogFacts": []`)
	assert.Contains(t, rendered, `"history": []`)
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt()

	for _, want := range []string{"catalogFacts", "usedCatalogIds", "Output Contract:", "modeHint", `"mode"`} {
		assert.Contains(t, prompt, want)
	}
	assert.Equal(t, prompt, BuildSystemPrompt())
}
