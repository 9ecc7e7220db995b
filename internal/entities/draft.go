// Package entities provides core data structures for rpg-builder.
package entities

import (
	"encoding/json"
	"maps"
	"strings"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/core"
)

// EntityTypeDraft is the core.Entity type reported by drafts
const EntityTypeDraft = "character_draft"

// MaxNameLength bounds a draft's display name, counted in runes
const MaxNameLength = 150

// Starting level bounds and default
const (
	MinStartingLevel     = 1
	MaxStartingLevel     = 20
	DefaultStartingLevel = 1
)

// Status is the lifecycle state of a draft
type Status string

// Draft statuses
const (
	StatusDraft            Status = "draft"
	StatusInProgress       Status = "in_progress"
	StatusReadyForFinalize Status = "ready_for_finalize"
)

// StepKind names one configuration step
type StepKind string

// Step kinds
const (
	StepAbilityScores StepKind = "ability_scores"
	StepOrigin        StepKind = "origin"
	StepClass         StepKind = "class"
	StepProficiencies StepKind = "proficiencies"
	StepEquipment     StepKind = "equipment"
	StepSpells        StepKind = "spells"
)

// StepOrder is the fixed sequence a draft moves through
var StepOrder = []StepKind{
	StepAbilityScores,
	StepOrigin,
	StepClass,
	StepProficiencies,
	StepEquipment,
	StepSpells,
}

// Order returns the kind's position in StepOrder, or -1
func (k StepKind) Order() int {
	for i, kind := range StepOrder {
		if kind == k {
			return i
		}
	}
	return -1
}

// StepData maps a step kind to its normalized JSON payload.
// An absent key means the step has not been started.
type StepData map[StepKind]json.RawMessage

// Has reports whether a payload is stored for kind
func (d StepData) Has(kind StepKind) bool {
	_, ok := d[kind]
	return ok
}

// Decode unmarshals the payload stored for kind into v.
// It reports false without error when the step has no payload.
func (d StepData) Decode(kind StepKind, v any) (bool, error) {
	raw, ok := d[kind]
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, err
	}
	return true, nil
}

// Clone returns a copy that shares no map with d
func (d StepData) Clone() StepData {
	if d == nil {
		return StepData{}
	}
	out := make(StepData, len(d))
	for kind, raw := range d {
		out[kind] = append(json.RawMessage(nil), raw...)
	}
	return out
}

// SelectedClass returns the class id chosen in the class step, if any
func (d StepData) SelectedClass() string {
	var payload ClassPayload
	if ok, err := d.Decode(StepClass, &payload); !ok || err != nil {
		return ""
	}
	return payload.Class
}

// Draft is a partially complete character configuration
type Draft struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"owner_id"`
	Name           string         `json:"name,omitempty"`
	Status         Status         `json:"status"`
	StartingLevel  int            `json:"starting_level"`
	AllowFeats     bool           `json:"allow_feats"`
	VariantFlags   map[string]any `json:"variant_flags"`
	CurrentStep    StepKind       `json:"current_step,omitempty"`
	MarkedComplete []StepKind     `json:"marked_complete,omitempty"`
	StepData       StepData       `json:"step_data"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// GetID implements core.Entity
func (d *Draft) GetID() string {
	return d.ID
}

// GetType implements core.Entity
func (d *Draft) GetType() string {
	return EntityTypeDraft
}

// Summary strips the step data for list views
func (d *Draft) Summary() *DraftSummary {
	return &DraftSummary{
		ID:            d.ID,
		Name:          d.Name,
		Status:        d.Status,
		CurrentStep:   d.CurrentStep,
		StartingLevel: d.StartingLevel,
		AllowFeats:    d.AllowFeats,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// Clone returns a deep copy safe to hand to another caller
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	out.VariantFlags = maps.Clone(d.VariantFlags)
	out.MarkedComplete = append([]StepKind(nil), d.MarkedComplete...)
	out.StepData = d.StepData.Clone()
	return &out
}

// IsMarkedComplete reports whether the caller flagged kind as done
func (d *Draft) IsMarkedComplete(kind StepKind) bool {
	for _, k := range d.MarkedComplete {
		if k == kind {
			return true
		}
	}
	return false
}

// Flag reads a boolean variant flag. Strings "true" and "1" count as set.
func (d *Draft) Flag(name string) bool {
	return Flag(d.VariantFlags, name)
}

// Flag reads a boolean entry from a variant flag map
func Flag(flags map[string]any, name string) bool {
	switch v := flags[name].(type) {
	case bool:
		return v
	case string:
		v = strings.ToLower(strings.TrimSpace(v))
		return v == "true" || v == "1"
	case float64:
		return v != 0
	}
	return false
}

// DraftSummary is the list view of a draft
type DraftSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name,omitempty"`
	Status        Status    `json:"status"`
	CurrentStep   StepKind  `json:"current_step,omitempty"`
	StartingLevel int       `json:"starting_level"`
	AllowFeats    bool      `json:"allow_feats"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Progress is computed on read and never persisted
type Progress struct {
	Completed []StepKind `json:"completed"`
	Missing   []StepKind `json:"missing"`
	NextStep  StepKind   `json:"next_step,omitempty"`
	Percent   int        `json:"percent"`
}

var _ core.Entity = (*Draft)(nil)
