// Package steps defines the ordered character-building steps, their payload
// validation and their completeness predicates.
package steps

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

// Context is the read-only input every validator sees
type Context struct {
	Catalog       *catalog.Catalog
	StepData      entities.StepData
	StartingLevel int
	AllowFeats    bool
	VariantFlags  map[string]any
}

// NewContext builds a validation context for draft against c
func NewContext(c *catalog.Catalog, draft *entities.Draft) *Context {
	return &Context{
		Catalog:       c,
		StepData:      draft.StepData,
		StartingLevel: draft.StartingLevel,
		AllowFeats:    draft.AllowFeats,
		VariantFlags:  draft.VariantFlags,
	}
}

// WithStepData returns a copy of the context reading data instead
func (c *Context) WithStepData(data entities.StepData) *Context {
	out := *c
	out.StepData = data
	return &out
}

// Definition describes one step kind
type Definition struct {
	Kind  entities.StepKind
	Order int

	// Validate checks a raw payload and returns its normalized encoding.
	// Failures are errors.InvalidArgument carrying field violations.
	Validate func(raw json.RawMessage, sc *Context) (json.RawMessage, error)

	// Complete reports whether a stored payload satisfies the step
	Complete func(stored json.RawMessage, sc *Context) bool
}

// Registry holds the step definitions in order
type Registry struct {
	ordered []*Definition
	byKind  map[entities.StepKind]*Definition
}

// NewRegistry returns the registry of all six steps
func NewRegistry() *Registry {
	r := &Registry{byKind: make(map[entities.StepKind]*Definition)}
	r.register(abilityScoresStep())
	r.register(originStep())
	r.register(classStep())
	r.register(proficienciesStep())
	r.register(equipmentStep())
	r.register(spellsStep())
	return r
}

func (r *Registry) register(def *Definition) {
	def.Order = def.Kind.Order()
	r.ordered = append(r.ordered, def)
	r.byKind[def.Kind] = def
}

// Lookup returns the definition for kind or an UnknownStep error
func (r *Registry) Lookup(kind entities.StepKind) (*Definition, error) {
	def, ok := r.byKind[kind]
	if !ok {
		return nil, errors.UnknownStep(string(kind))
	}
	return def, nil
}

// Definitions returns the definitions in step order
func (r *Registry) Definitions() []*Definition {
	return append([]*Definition(nil), r.ordered...)
}

// Progress evaluates every completeness predicate against sc.StepData
func (r *Registry) Progress(sc *Context) entities.Progress {
	progress := entities.Progress{
		Completed: []entities.StepKind{},
		Missing:   []entities.StepKind{},
	}
	for _, def := range r.ordered {
		raw, ok := sc.StepData[def.Kind]
		if ok && def.Complete(raw, sc) {
			progress.Completed = append(progress.Completed, def.Kind)
			continue
		}
		progress.Missing = append(progress.Missing, def.Kind)
	}
	if len(progress.Missing) > 0 {
		progress.NextStep = progress.Missing[0]
	}
	if len(r.ordered) > 0 {
		progress.Percent = len(progress.Completed) * 100 / len(r.ordered)
	}
	return progress
}

// Status derives the draft status from sc.StepData
func (r *Registry) Status(sc *Context) entities.Status {
	if len(sc.StepData) == 0 {
		return entities.StatusDraft
	}
	if len(r.Progress(sc).Missing) == 0 {
		return entities.StatusReadyForFinalize
	}
	return entities.StatusInProgress
}

// define adapts typed validate and complete functions to a Definition
func define[T any](
	kind entities.StepKind,
	validate func(p *T, sc *Context, vb *errors.ValidationBuilder) *T,
	complete func(p *T, sc *Context) bool,
) *Definition {
	return &Definition{
		Kind: kind,
		Validate: func(raw json.RawMessage, sc *Context) (json.RawMessage, error) {
			var payload T
			if err := decodeStrict(raw, &payload); err != nil {
				return nil, err
			}

			vb := errors.NewValidationBuilder()
			normalized := validate(&payload, sc, vb)
			if err := vb.Build(); err != nil {
				return nil, errors.Wrapf(err, "invalid %s payload", kind).WithMeta("step", string(kind))
			}

			out, err := json.Marshal(normalized)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode %s payload", kind)
			}
			return out, nil
		},
		Complete: func(stored json.RawMessage, sc *Context) bool {
			var payload T
			if err := json.Unmarshal(stored, &payload); err != nil {
				return false
			}
			return complete(&payload, sc)
		},
	}
}

// decodeStrict rejects unknown fields and reports shape problems as violations
func decodeStrict(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil {
		return nil
	}

	vb := errors.NewValidationBuilder()

	var shapeErr *entities.ShapeError
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case stderrors.As(err, &shapeErr):
		vb.Violation(shapeErr.Field, errors.ReasonInvalidValue, shapeErr.Message)
	case stderrors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "payload"
		}
		vb.Violationf(field, errors.ReasonInvalidValue, "expected %s", typeErr.Type)
	case stderrors.As(err, &syntaxErr):
		vb.Violation("payload", errors.ReasonInvalidValue, "malformed JSON")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		vb.Violationf(field, errors.ReasonUnknownField, "unknown field %q", field)
	default:
		vb.Violation("payload", errors.ReasonInvalidValue, err.Error())
	}
	return vb.Build()
}

// collect validates a list of catalog ids. Duplicates are dropped, or reported
// when rejectDupes is set.
func collect(field string, ids []string, rejectDupes bool, exists func(string) bool, vb *errors.ValidationBuilder) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		path := fmt.Sprintf("%s[%d]", field, i)
		if _, dup := seen[id]; dup {
			if rejectDupes {
				vb.Violationf(path, errors.ReasonDuplicate, "%q selected more than once", id)
			}
			continue
		}
		seen[id] = struct{}{}
		if exists != nil && !exists(id) {
			vb.UnknownID(path, id)
			continue
		}
		out = append(out, id)
	}
	return out
}
