package entities_test

import (
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/rpg-builder/internal/entities"
)

func TestStepOrder(t *testing.T) {
	assert.Equal(t, 0, entities.StepAbilityScores.Order())
	assert.Equal(t, 5, entities.StepSpells.Order())
	assert.Equal(t, -1, entities.StepKind("feats").Order())
}

func TestStepDataClone(t *testing.T) {
	data := entities.StepData{entities.StepClass: json.RawMessage(`{"class":"wizard"}`)}
	clone := data.Clone()
	clone[entities.StepClass][10] = 'X'
	clone[entities.StepOrigin] = json.RawMessage(`{}`)

	assert.Equal(t, `{"class":"wizard"}`, string(data[entities.StepClass]))
	assert.False(t, data.Has(entities.StepOrigin))
	assert.Equal(t, "wizard", data.SelectedClass())
	assert.Equal(t, "", entities.StepData{}.SelectedClass())
}

func TestDraftCloneIsolated(t *testing.T) {
	draft := &entities.Draft{
		ID:             "draft_1",
		VariantFlags:   map[string]any{"point_buy_budget": true},
		MarkedComplete: []entities.StepKind{entities.StepClass},
		StepData:       entities.StepData{},
	}
	clone := draft.Clone()
	clone.VariantFlags["point_buy_budget"] = false
	clone.MarkedComplete[0] = entities.StepSpells

	assert.True(t, draft.Flag("point_buy_budget"))
	assert.True(t, draft.IsMarkedComplete(entities.StepClass))
	assert.Equal(t, "character_draft", draft.GetType())
	assert.Equal(t, "draft_1", draft.GetID())
}

func TestFlag(t *testing.T) {
	flags := map[string]any{"a": true, "b": "TRUE", "c": "1", "d": float64(1), "e": "no", "f": 0.0}
	for _, name := range []string{"a", "b", "c", "d"} {
		assert.True(t, entities.Flag(flags, name), name)
	}
	for _, name := range []string{"e", "f", "missing"} {
		assert.False(t, entities.Flag(flags, name), name)
	}
	assert.False(t, entities.Flag(nil, "a"))
}

func TestAbilityScoresDecoding(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		var p entities.AbilityScoresPayload
		require.NoError(t, json.Unmarshal([]byte(`{"method":"manual","scores":{"strength":10}}`), &p))
		assert.Equal(t, 10, p.Scores["strength"])
	})

	t.Run("list of six", func(t *testing.T) {
		var p entities.AbilityScoresPayload
		require.NoError(t, json.Unmarshal([]byte(`{"scores":[15,14,13,12,10,8]}`), &p))
		assert.Equal(t, 15, p.Scores["strength"])
		assert.Equal(t, 8, p.Scores["charisma"])
	})

	t.Run("short list", func(t *testing.T) {
		var p entities.AbilityScoresPayload
		err := json.Unmarshal([]byte(`{"scores":[15,14]}`), &p)
		var shapeErr *entities.ShapeError
		require.True(t, stderrors.As(err, &shapeErr))
		assert.Equal(t, "scores", shapeErr.Field)
	})
}
