package steps

import (
	"github.com/KirkDiggler/rpg-builder/internal/entities"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

func originStep() *Definition {
	return define(entities.StepOrigin, validateOrigin, originComplete)
}

func validateOrigin(p *entities.OriginPayload, sc *Context, vb *errors.ValidationBuilder) *entities.OriginPayload {
	c := sc.Catalog

	if p.Species != "" {
		if _, ok := c.Species(p.Species); !ok {
			vb.UnknownID("species", p.Species)
		}
	}
	if p.Background != "" {
		if _, ok := c.Background(p.Background); !ok {
			vb.UnknownID("background", p.Background)
		}
	}

	languages := collect("languages", p.Languages, true, c.HasLanguage, vb)

	return &entities.OriginPayload{
		Species:    p.Species,
		Background: p.Background,
		Languages:  languages,
	}
}

func originComplete(p *entities.OriginPayload, sc *Context) bool {
	if p.Species == "" || p.Background == "" {
		return false
	}
	_, speciesOK := sc.Catalog.Species(p.Species)
	_, backgroundOK := sc.Catalog.Background(p.Background)
	return speciesOK && backgroundOK
}
