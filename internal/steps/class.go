package steps

import (
	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

func classStep() *Definition {
	return define(entities.StepClass, validateClass, classComplete)
}

// An empty class clears the selection
func validateClass(p *entities.ClassPayload, sc *Context, vb *errors.ValidationBuilder) *entities.ClassPayload {
	if p.Class != "" {
		if _, ok := sc.Catalog.Class(p.Class); !ok {
			vb.UnknownID("class", p.Class)
		}
	}
	return &entities.ClassPayload{Class: p.Class}
}

func classComplete(p *entities.ClassPayload, sc *Context) bool {
	if p.Class == "" {
		return false
	}
	_, ok := sc.Catalog.Class(p.Class)
	return ok
}

// selectedClass resolves the class chosen earlier in the draft
func selectedClass(sc *Context) (*catalog.Class, bool) {
	id := sc.StepData.SelectedClass()
	if id == "" {
		return nil, false
	}
	return sc.Catalog.Class(id)
}
