package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Ability score generation methods
const (
	MethodStandardArray = "standard_array"
	MethodPointBuy      = "point_buy"
	MethodManual        = "manual"
)

// AbilityNames lists the six abilities in canonical order
var AbilityNames = []string{
	"strength",
	"dexterity",
	"constitution",
	"intelligence",
	"wisdom",
	"charisma",
}

// ShapeError reports a payload field that could not be decoded into its shape
type ShapeError struct {
	Field   string
	Message string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AbilityScores maps ability name to score.
// It decodes from either an object or a list of six integers in AbilityNames order.
type AbilityScores map[string]int

// UnmarshalJSON implements json.Unmarshaler
func (a *AbilityScores) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*a = nil
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var values []int
		if err := json.Unmarshal(trimmed, &values); err != nil {
			return &ShapeError{Field: "scores", Message: "list entries must be integers"}
		}
		if len(values) != len(AbilityNames) {
			return &ShapeError{
				Field:   "scores",
				Message: fmt.Sprintf("list must hold %d values, got %d", len(AbilityNames), len(values)),
			}
		}
		out := make(AbilityScores, len(values))
		for i, v := range values {
			out[AbilityNames[i]] = v
		}
		*a = out
		return nil
	}

	var m map[string]int
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return &ShapeError{Field: "scores", Message: "must be an object of integers or a list of six integers"}
	}
	*a = m
	return nil
}

// AbilityScoresPayload is the ability_scores step
type AbilityScoresPayload struct {
	Method    string         `json:"method"`
	Scores    AbilityScores  `json:"scores"`
	Modifiers map[string]int `json:"modifiers,omitempty"`
}

// OriginPayload is the origin step
type OriginPayload struct {
	Species    string   `json:"species"`
	Background string   `json:"background"`
	Languages  []string `json:"languages"`
}

// ClassPayload is the class step
type ClassPayload struct {
	Class string `json:"class"`
}

// ProficienciesPayload is the proficiencies step
type ProficienciesPayload struct {
	Skills    []string `json:"skills"`
	Tools     []string `json:"tools"`
	Expertise []string `json:"expertise"`
}

// CustomItem is a user-authored equipment entry
type CustomItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// EquipmentPayload is the equipment step
type EquipmentPayload struct {
	Weapons     []string       `json:"weapons"`
	Armor       []string       `json:"armor"`
	Packs       []string       `json:"packs"`
	Currency    map[string]int `json:"currency"`
	CustomItems []CustomItem   `json:"custom_items"`
}

// SpellsPayload is the spells step
type SpellsPayload struct {
	Cantrips []string `json:"cantrips"`
	Known    []string `json:"known"`
	Prepared []string `json:"prepared"`
}

// NormalizeMethod lower-cases and trims an ability method name
func NormalizeMethod(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
